package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lakeshore-health/telehealth-gateway/internal/availability"
	"github.com/lakeshore-health/telehealth-gateway/internal/catalog"
	"github.com/lakeshore-health/telehealth-gateway/internal/square"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

// PlatformAPI is the slice of the Square client the workflow needs.
type PlatformAPI interface {
	SearchCustomers(ctx context.Context, email string) ([]square.Customer, error)
	CreateCustomer(ctx context.Context, customer square.Customer) (*square.Customer, error)
	UpdateCustomer(ctx context.Context, customerID, note string) error
	CreatePayment(ctx context.Context, req square.PaymentRequest) (*square.Payment, error)
	CreateBooking(ctx context.Context, req square.BookingRequest) (*square.Booking, error)
}

// ServiceResolver resolves a variation id into a priced offering.
type ServiceResolver interface {
	FindByVariationID(ctx context.Context, variationID string) (*catalog.ServiceOffering, error)
}

// Notifier sends the confirmation email. Failures are logged, never surfaced.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, toEmail, toName string, conf Confirmation) error
}

// Observer counts workflow outcomes. The metrics package implements it.
type Observer interface {
	ObservePayment(status string)
	ObserveBooking(status string)
	ObserveBookingDuration(status string, seconds float64)
}

// ErrPaymentRequired means the deployment demands payment before booking and
// the request carried no payment token.
var ErrPaymentRequired = errors.New("booking: payment token required")

// PaymentError marks a failed capture. The workflow aborts before any booking
// call; the already-written customer record is intentionally left in place.
type PaymentError struct{ Err error }

func (e *PaymentError) Error() string { return "booking: payment failed: " + e.Err.Error() }
func (e *PaymentError) Unwrap() error { return e.Err }

// Request is one booking attempt.
type Request struct {
	Intake             PatientIntake
	ServiceVariationID string
	StartAt            time.Time
	TeamMemberID       string
	PaymentToken       string
}

// Confirmation is the human-readable summary returned to the patient.
type Confirmation struct {
	Service      string `json:"service"`
	Time         string `json:"time"`
	Price        string `json:"price"`
	VideoCallURL string `json:"videoCallUrl,omitempty"`
}

// Result is the workflow outcome.
type Result struct {
	BookingID    string
	CustomerID   string
	PaymentID    string
	AccessCode   string
	Confirmation Confirmation
}

// Options fixes the deployment's strategy choices at startup.
type Options struct {
	RequirePayment      bool
	AppendCustomerNote  bool
	VideoCallURL        string
	DefaultTeamMemberID string
	DisplayLocation     *time.Location
}

// Service runs the three-step booking workflow.
type Service struct {
	api      PlatformAPI
	resolver ServiceResolver
	notifier Notifier
	observer Observer
	opts     Options
	logger   *logging.Logger

	now func() time.Time
}

func NewService(api PlatformAPI, resolver ServiceResolver, notifier Notifier, observer Observer, opts Options, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.DisplayLocation == nil {
		opts.DisplayLocation = time.UTC
	}
	return &Service{
		api:      api,
		resolver: resolver,
		notifier: notifier,
		observer: observer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Create executes customer resolution, optional payment capture, and booking
// creation, strictly in that order. A failed payment aborts before the
// booking call. There is no rollback for earlier steps.
func (s *Service) Create(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if err := ValidateIntake(req.Intake); err != nil {
		return nil, err
	}
	offering, err := s.resolver.FindByVariationID(ctx, req.ServiceVariationID)
	if err != nil {
		return nil, err
	}
	teamMemberID := req.TeamMemberID
	if teamMemberID == "" {
		teamMemberID = s.opts.DefaultTeamMemberID
	}

	accessCode, err := NewAccessCode()
	if err != nil {
		return nil, err
	}

	customerID, err := s.resolveCustomer(ctx, req.Intake)
	if err != nil {
		return nil, err
	}

	var paymentID string
	switch {
	case req.PaymentToken != "":
		payment, err := s.capturePayment(ctx, req, offering, customerID)
		if err != nil {
			return nil, err
		}
		paymentID = payment.ID
	case s.opts.RequirePayment:
		return nil, ErrPaymentRequired
	}

	recordedAt := s.now()
	sellerNote := RenderNoteRecord(req.Intake, accessCode, recordedAt)
	if s.opts.VideoCallURL != "" {
		sellerNote += "\nVIDEO LINK: " + s.opts.VideoCallURL + " (send to patient 10 minutes before the visit)"
	}
	customerNote := fmt.Sprintf("Service: %s | Chief complaint: %s | Duration: %s | Symptoms: %s | Access code: %s",
		offering.Name, req.Intake.Health.ChiefComplaint, req.Intake.Health.Duration, req.Intake.Health.Symptoms, accessCode)

	created, err := s.api.CreateBooking(ctx, square.BookingRequest{
		IdempotencyKey: uuid.NewString(),
		CustomerID:     customerID,
		StartAt:        req.StartAt,
		Segment: square.AppointmentSegment{
			DurationMinutes:         offering.Duration,
			ServiceVariationID:      offering.VariationID,
			TeamMemberID:            teamMemberID,
			ServiceVariationVersion: offering.Version,
		},
		CustomerNote: customerNote,
		SellerNote:   sellerNote,
	})
	if err != nil {
		s.observeBooking("error")
		s.observeDuration("error", start)
		if paymentID != "" {
			// Accepted inconsistency: the charge stands even though no
			// appointment exists. Surfaced in logs only.
			s.logger.Error("booking failed after successful payment; charge not reversed",
				"payment_id", paymentID, "customer_id", customerID, "error", err)
		}
		return nil, err
	}
	s.observeBooking("ok")
	s.observeDuration("ok", start)

	result := &Result{
		BookingID:  created.ID,
		CustomerID: customerID,
		PaymentID:  paymentID,
		AccessCode: accessCode,
		Confirmation: Confirmation{
			Service:      offering.Name,
			Time:         availability.FormatDisplayTime(req.StartAt, s.opts.DisplayLocation),
			Price:        offering.Price,
			VideoCallURL: s.opts.VideoCallURL,
		},
	}

	if s.notifier != nil {
		if err := s.notifier.SendBookingConfirmation(ctx, req.Intake.Personal.Email, req.Intake.Personal.FullName(), result.Confirmation); err != nil {
			s.logger.Warn("confirmation email failed", "error", err, "booking_id", created.ID)
		}
	}

	return result, nil
}

// resolveCustomer finds the customer by exact email or creates one, writing
// the rendered intake record into the platform note either way.
func (s *Service) resolveCustomer(ctx context.Context, intake PatientIntake) (string, error) {
	rendered := RenderNoteRecord(intake, "", s.now())

	customers, err := s.api.SearchCustomers(ctx, intake.Personal.Email)
	if err != nil {
		return "", err
	}
	if len(customers) > 0 {
		existing := customers[0]
		note := rendered
		if s.opts.AppendCustomerNote {
			note = AppendNoteRecord(existing.Note, rendered)
		}
		if err := s.api.UpdateCustomer(ctx, existing.ID, note); err != nil {
			return "", err
		}
		return existing.ID, nil
	}

	created, err := s.api.CreateCustomer(ctx, square.Customer{
		GivenName:    intake.Personal.FirstName,
		FamilyName:   intake.Personal.LastName,
		EmailAddress: intake.Personal.Email,
		PhoneNumber:  intake.Personal.Phone,
		Note:         rendered,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *Service) capturePayment(ctx context.Context, req Request, offering *catalog.ServiceOffering, customerID string) (*square.Payment, error) {
	payment, err := s.api.CreatePayment(ctx, square.PaymentRequest{
		SourceID:       req.PaymentToken,
		IdempotencyKey: uuid.NewString(),
		Amount:         square.Money{Amount: offering.PriceCents, Currency: "USD"},
		CustomerID:     customerID,
		Note:           "Telehealth: " + offering.Name,
	})
	if err != nil {
		s.observePayment("error")
		return nil, &PaymentError{Err: err}
	}
	s.observePayment("ok")
	return payment, nil
}

func (s *Service) observePayment(status string) {
	if s.observer != nil {
		s.observer.ObservePayment(status)
	}
}

func (s *Service) observeBooking(status string) {
	if s.observer != nil {
		s.observer.ObserveBooking(status)
	}
}

func (s *Service) observeDuration(status string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveBookingDuration(status, time.Since(start).Seconds())
	}
}
