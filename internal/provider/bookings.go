package provider

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lakeshore-health/telehealth-gateway/internal/availability"
	"github.com/lakeshore-health/telehealth-gateway/internal/booking"
	"github.com/lakeshore-health/telehealth-gateway/internal/square"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

// ErrNoMatch means no booking satisfied the access-code + email lookup.
var ErrNoMatch = errors.New("provider: no matching appointment")

// ProviderAPI is the slice of the Square client this package needs.
type ProviderAPI interface {
	ListBookings(ctx context.Context, teamMemberID string, startAtMin, startAtMax time.Time) ([]square.Booking, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*square.Customer, error)
}

// BookingCustomer is the display block recovered from the customer record,
// falling back to the booking's note record when the lookup fails.
type BookingCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Booking is one upcoming appointment on the provider portal.
type Booking struct {
	ID           string          `json:"id"`
	StartAt      string          `json:"startAt"`
	Time         string          `json:"time"`
	TeamMemberID string          `json:"teamMemberId"`
	Customer     BookingCustomer `json:"customer"`
	Notes        string          `json:"notes"`
}

// Bookings lists and searches appointments for the configured providers.
type Bookings struct {
	api           ProviderAPI
	teamMemberIDs []string
	displayLoc    *time.Location
	logger        *logging.Logger

	now func() time.Time
}

func NewBookings(api ProviderAPI, teamMemberIDs []string, displayLoc *time.Location, logger *logging.Logger) *Bookings {
	if logger == nil {
		logger = logging.Default()
	}
	if displayLoc == nil {
		displayLoc = time.UTC
	}
	return &Bookings{
		api:           api,
		teamMemberIDs: teamMemberIDs,
		displayLoc:    displayLoc,
		logger:        logger,
		now:           time.Now,
	}
}

// Upcoming returns the next 90 days of bookings, sorted by start time. With
// an empty teamMemberID every configured provider is queried and the results
// are concatenated, labeled by provider.
func (b *Bookings) Upcoming(ctx context.Context, teamMemberID string) ([]Booking, error) {
	now := b.now()
	raw, err := b.fetch(ctx, teamMemberID, now, now.AddDate(0, 0, 90))
	if err != nil {
		return nil, err
	}
	return b.enrich(ctx, raw), nil
}

// FindByAccessCode scans a -30d..+90d window for a booking whose note text
// contains the access code, then requires the email to appear in the same
// note. Knowledge of both is the whole authentication.
func (b *Bookings) FindByAccessCode(ctx context.Context, accessCode, email string) (*Booking, error) {
	now := b.now()
	raw, err := b.fetch(ctx, "", now.AddDate(0, 0, -30), now.AddDate(0, 0, 90))
	if err != nil {
		return nil, err
	}
	for _, item := range raw {
		if !strings.Contains(item.booking.SellerNote, accessCode) {
			continue
		}
		if !strings.Contains(item.booking.SellerNote, email) {
			continue
		}
		enriched := b.enrich(ctx, []labeledBooking{item})
		return &enriched[0], nil
	}
	return nil, ErrNoMatch
}

type labeledBooking struct {
	booking      square.Booking
	teamMemberID string
}

// fetch queries each requested provider sequentially; the per-customer
// enrichment afterwards is the only concurrent part.
func (b *Bookings) fetch(ctx context.Context, teamMemberID string, min, max time.Time) ([]labeledBooking, error) {
	ids := b.teamMemberIDs
	if teamMemberID != "" {
		ids = []string{teamMemberID}
	}
	if len(ids) == 0 {
		ids = []string{""}
	}

	var out []labeledBooking
	for _, id := range ids {
		bookings, err := b.api.ListBookings(ctx, id, min, max)
		if err != nil {
			return nil, err
		}
		for _, bk := range bookings {
			label := id
			if label == "" && len(bk.Segments) > 0 {
				label = bk.Segments[0].TeamMemberID
			}
			out = append(out, labeledBooking{booking: bk, teamMemberID: label})
		}
	}
	return out, nil
}

// enrich joins each booking with its customer record, all lookups in flight
// at once. A failed lookup yields a placeholder, never a failed request.
func (b *Bookings) enrich(ctx context.Context, items []labeledBooking) []Booking {
	out := make([]Booking, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item labeledBooking) {
			defer wg.Done()
			out[i] = b.toBooking(ctx, item)
		}(i, item)
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].StartAt < out[j].StartAt })
	return out
}

func (b *Bookings) toBooking(ctx context.Context, item labeledBooking) Booking {
	result := Booking{
		ID:           item.booking.ID,
		StartAt:      item.booking.StartAt,
		TeamMemberID: item.teamMemberID,
		Notes:        item.booking.CustomerNote,
		Customer:     b.customerFor(ctx, item.booking),
	}
	if at, err := time.Parse(time.RFC3339, item.booking.StartAt); err == nil {
		result.Time = availability.FormatDisplayTime(at, b.displayLoc)
	}
	return result
}

func (b *Bookings) customerFor(ctx context.Context, bk square.Booking) BookingCustomer {
	if bk.CustomerID != "" {
		customer, err := b.api.RetrieveCustomer(ctx, bk.CustomerID)
		if err == nil {
			return BookingCustomer{
				Name:  strings.TrimSpace(customer.GivenName + " " + customer.FamilyName),
				Email: customer.EmailAddress,
				Phone: customer.PhoneNumber,
			}
		}
		b.logger.Warn("customer lookup failed, using note record", "customer_id", bk.CustomerID, "error", err)
	}
	if rec, ok := booking.ParseNoteRecord(bk.SellerNote); ok {
		return BookingCustomer{Name: rec.Name, Email: rec.Email, Phone: rec.Phone}
	}
	return BookingCustomer{Name: "Unknown patient"}
}
