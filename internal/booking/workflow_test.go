package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeshore-health/telehealth-gateway/internal/catalog"
	"github.com/lakeshore-health/telehealth-gateway/internal/square"
)

// stubPlatform records call counts so tests can assert the ordering contract.
type stubPlatform struct {
	customers []square.Customer

	searchCalls  int
	createCalls  int
	updateCalls  int
	paymentCalls int
	bookingCalls int

	searchErr       error
	lastUpdateNote  string
	lastCreated     square.Customer
	lastPayment     square.PaymentRequest
	lastBooking     square.BookingRequest
	paymentErr      error
	bookingErr      error
	createdCustomer string
}

func (s *stubPlatform) SearchCustomers(ctx context.Context, email string) ([]square.Customer, error) {
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.customers, nil
}

func (s *stubPlatform) CreateCustomer(ctx context.Context, customer square.Customer) (*square.Customer, error) {
	s.createCalls++
	s.lastCreated = customer
	id := s.createdCustomer
	if id == "" {
		id = "CUST-NEW"
	}
	created := customer
	created.ID = id
	// Later searches find the record, like the real platform.
	s.customers = []square.Customer{created}
	return &created, nil
}

func (s *stubPlatform) UpdateCustomer(ctx context.Context, customerID, note string) error {
	s.updateCalls++
	s.lastUpdateNote = note
	for i := range s.customers {
		if s.customers[i].ID == customerID {
			s.customers[i].Note = note
		}
	}
	return nil
}

func (s *stubPlatform) CreatePayment(ctx context.Context, req square.PaymentRequest) (*square.Payment, error) {
	s.paymentCalls++
	s.lastPayment = req
	if s.paymentErr != nil {
		return nil, s.paymentErr
	}
	return &square.Payment{ID: "PAY-1", Status: "COMPLETED", ReceiptURL: "https://squareup.com/receipt/PAY-1"}, nil
}

func (s *stubPlatform) CreateBooking(ctx context.Context, req square.BookingRequest) (*square.Booking, error) {
	s.bookingCalls++
	s.lastBooking = req
	if s.bookingErr != nil {
		return nil, s.bookingErr
	}
	return &square.Booking{ID: "BOOK-1", CustomerID: req.CustomerID, StartAt: req.StartAt.UTC().Format(time.RFC3339)}, nil
}

type stubResolver struct{ offering catalog.ServiceOffering }

func (s *stubResolver) FindByVariationID(ctx context.Context, variationID string) (*catalog.ServiceOffering, error) {
	if variationID != s.offering.VariationID {
		return nil, fmt.Errorf("%w %q", catalog.ErrUnknownService, variationID)
	}
	o := s.offering
	return &o, nil
}

type stubObserver struct {
	payments  []string
	bookings  []string
	durations []string
}

func (s *stubObserver) ObservePayment(status string) { s.payments = append(s.payments, status) }
func (s *stubObserver) ObserveBooking(status string) { s.bookings = append(s.bookings, status) }
func (s *stubObserver) ObserveBookingDuration(status string, seconds float64) {
	s.durations = append(s.durations, status)
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) SendBookingConfirmation(ctx context.Context, toEmail, toName string, conf Confirmation) error {
	s.calls++
	return s.err
}

func testOffering() catalog.ServiceOffering {
	return catalog.ServiceOffering{
		ID:          "ITEM1",
		Name:        "Telehealth Wellness Visit",
		Price:       "125.00",
		PriceCents:  12500,
		Duration:    45,
		VariationID: "VAR1",
		Version:     3,
	}
}

func newWorkflow(platform *stubPlatform, notifier Notifier, opts Options) *Service {
	svc := NewService(platform, &stubResolver{offering: testOffering()}, notifier, nil, opts, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) }
	return svc
}

func validRequest() Request {
	return Request{
		Intake:             sampleIntake(),
		ServiceVariationID: "VAR1",
		StartAt:            time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC),
	}
}

func TestCreate_NewCustomer(t *testing.T) {
	platform := &stubPlatform{}
	notifier := &stubNotifier{}
	svc := newWorkflow(platform, notifier, Options{AppendCustomerNote: true, DefaultTeamMemberID: "TM1", VideoCallURL: "https://meet.example.com/room"})

	result, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "BOOK-1", result.BookingID)
	assert.Equal(t, "CUST-NEW", result.CustomerID)
	assert.Empty(t, result.PaymentID)
	assert.Len(t, result.AccessCode, 6)
	assert.Equal(t, "Telehealth Wellness Visit", result.Confirmation.Service)
	assert.Equal(t, "125.00", result.Confirmation.Price)
	assert.NotEmpty(t, result.Confirmation.Time)

	assert.Equal(t, 1, platform.searchCalls)
	assert.Equal(t, 1, platform.createCalls)
	assert.Equal(t, 0, platform.updateCalls)
	assert.Equal(t, 1, platform.bookingCalls)
	assert.Equal(t, 1, notifier.calls)

	// The booking carries the intake record plus the access code in the
	// seller note, and the short summary in the customer note.
	rec, ok := ParseNoteRecord(platform.lastBooking.SellerNote)
	require.True(t, ok)
	assert.Equal(t, result.AccessCode, rec.AccessCode)
	assert.Equal(t, "jane@example.com", rec.Email)
	assert.Contains(t, platform.lastBooking.CustomerNote, "Persistent cough")
	assert.Contains(t, platform.lastBooking.SellerNote, "VIDEO LINK: https://meet.example.com/room")
	assert.Equal(t, "TM1", platform.lastBooking.Segment.TeamMemberID)
	assert.Equal(t, int64(3), platform.lastBooking.Segment.ServiceVariationVersion)
	assert.NotEmpty(t, platform.lastBooking.IdempotencyKey)
}

func TestCreate_RepeatEmailReusesCustomer(t *testing.T) {
	platform := &stubPlatform{}
	svc := newWorkflow(platform, nil, Options{AppendCustomerNote: true})

	first, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.Equal(t, 1, platform.createCalls, "second booking must not create another customer")
	assert.Equal(t, 1, platform.updateCalls)

	// Appended note keeps both visit records.
	assert.Contains(t, platform.lastUpdateNote, "TELEHEALTH INTAKE v1")
	rec, ok := ParseNoteRecord(platform.lastUpdateNote)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", rec.Email)
}

func TestCreate_OverwriteNoteWhenAppendDisabled(t *testing.T) {
	platform := &stubPlatform{customers: []square.Customer{{ID: "CUST-9", Note: "old note"}}}
	svc := newWorkflow(platform, nil, Options{AppendCustomerNote: false})

	_, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotContains(t, platform.lastUpdateNote, "old note")
}

func TestCreate_PaymentFailureAbortsBeforeBooking(t *testing.T) {
	platform := &stubPlatform{paymentErr: &square.APIError{Status: 402, Code: "CARD_DECLINED", Detail: "Card declined."}}
	svc := newWorkflow(platform, nil, Options{RequirePayment: true})

	req := validRequest()
	req.PaymentToken = "cnon:card-token"
	_, err := svc.Create(context.Background(), req)

	var paymentErr *PaymentError
	require.ErrorAs(t, err, &paymentErr)
	assert.Equal(t, 1, platform.paymentCalls)
	assert.Equal(t, 0, platform.bookingCalls, "booking must not be created after a failed payment")
	// The customer record written in step 1 stays (accepted inconsistency).
	assert.Equal(t, 1, platform.createCalls)
}

func TestCreate_PaymentRequiredButMissingToken(t *testing.T) {
	platform := &stubPlatform{}
	svc := newWorkflow(platform, nil, Options{RequirePayment: true})

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrPaymentRequired)
	assert.Equal(t, 0, platform.paymentCalls)
	assert.Equal(t, 0, platform.bookingCalls)
}

func TestCreate_PaymentCapturedBeforeBooking(t *testing.T) {
	platform := &stubPlatform{}
	svc := newWorkflow(platform, nil, Options{RequirePayment: true})

	req := validRequest()
	req.PaymentToken = "cnon:card-token"
	result, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "PAY-1", result.PaymentID)
	assert.Equal(t, int64(12500), platform.lastPayment.Amount.Amount)
	assert.Equal(t, "USD", platform.lastPayment.Amount.Currency)
	assert.NotEmpty(t, platform.lastPayment.IdempotencyKey)
	assert.Equal(t, 1, platform.bookingCalls)
}

func TestCreate_BookingFailureAfterPaymentKeepsCharge(t *testing.T) {
	platform := &stubPlatform{bookingErr: &square.APIError{Status: 500, Detail: "platform down"}}
	svc := newWorkflow(platform, nil, Options{RequirePayment: true})

	req := validRequest()
	req.PaymentToken = "cnon:card-token"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 1, platform.paymentCalls, "no compensating refund is attempted")
}

func TestCreate_UnknownService(t *testing.T) {
	svc := newWorkflow(&stubPlatform{}, nil, Options{})
	req := validRequest()
	req.ServiceVariationID = "MISSING"
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, catalog.ErrUnknownService)
}

func TestCreate_ObserverSeesOutcomeAndDuration(t *testing.T) {
	obs := &stubObserver{}
	svc := NewService(&stubPlatform{}, &stubResolver{offering: testOffering()}, nil, obs, Options{}, nil)

	_, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, obs.bookings)
	assert.Equal(t, []string{"ok"}, obs.durations)

	failing := NewService(&stubPlatform{bookingErr: errors.New("boom")}, &stubResolver{offering: testOffering()}, nil, obs, Options{}, nil)
	_, err = failing.Create(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, []string{"ok", "error"}, obs.bookings)
	assert.Equal(t, []string{"ok", "error"}, obs.durations)
}

func TestCreate_NotifierFailureDoesNotFailBooking(t *testing.T) {
	platform := &stubPlatform{}
	notifier := &stubNotifier{err: errors.New("smtp down")}
	svc := newWorkflow(platform, notifier, Options{})

	result, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "BOOK-1", result.BookingID)
	assert.Equal(t, 1, notifier.calls)
}
