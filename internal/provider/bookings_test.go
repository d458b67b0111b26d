package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeshore-health/telehealth-gateway/internal/api/respond"
	"github.com/lakeshore-health/telehealth-gateway/internal/booking"
	"github.com/lakeshore-health/telehealth-gateway/internal/square"
)

type stubProviderAPI struct {
	bookingsByProvider map[string][]square.Booking
	customers          map[string]square.Customer
	customerErr        map[string]error
	listErr            error
}

func (s *stubProviderAPI) ListBookings(ctx context.Context, teamMemberID string, min, max time.Time) ([]square.Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.bookingsByProvider[teamMemberID], nil
}

func (s *stubProviderAPI) RetrieveCustomer(ctx context.Context, customerID string) (*square.Customer, error) {
	if err := s.customerErr[customerID]; err != nil {
		return nil, err
	}
	c, ok := s.customers[customerID]
	if !ok {
		return nil, errors.New("not found")
	}
	return &c, nil
}

func sellerNote(t *testing.T, email, accessCode string) string {
	t.Helper()
	intake := booking.PatientIntake{
		Personal: booking.PersonalInfo{FirstName: "Jane", LastName: "Doe", Email: email, Phone: "+15555550123", DOB: "1990-04-12"},
		Health:   booking.HealthInfo{ChiefComplaint: "Cough"},
		Consents: booking.Consents{HIPAA: true, Telehealth: true, Signature: "Jane Doe"},
	}
	return booking.RenderNoteRecord(intake, accessCode, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
}

func fixedNow() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) }

func TestUpcoming_SortedAndEnriched(t *testing.T) {
	api := &stubProviderAPI{
		bookingsByProvider: map[string][]square.Booking{
			"TM1": {
				{ID: "B2", CustomerID: "C2", StartAt: "2025-06-03T15:00:00Z", CustomerNote: "later"},
				{ID: "B1", CustomerID: "C1", StartAt: "2025-06-02T13:00:00Z", CustomerNote: "sooner"},
			},
		},
		customers: map[string]square.Customer{
			"C1": {ID: "C1", GivenName: "Jane", FamilyName: "Doe", EmailAddress: "jane@example.com", PhoneNumber: "+15555550123"},
			"C2": {ID: "C2", GivenName: "Bob", FamilyName: "Ray", EmailAddress: "bob@example.com"},
		},
	}
	svc := NewBookings(api, []string{"TM1"}, time.UTC, nil)
	svc.now = fixedNow

	bookings, err := svc.Upcoming(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "B1", bookings[0].ID)
	assert.Equal(t, "B2", bookings[1].ID)
	assert.Equal(t, "Jane Doe", bookings[0].Customer.Name)
	assert.Equal(t, "jane@example.com", bookings[0].Customer.Email)
	assert.Equal(t, "TM1", bookings[0].TeamMemberID)
	assert.NotEmpty(t, bookings[0].Time)
}

func TestUpcoming_CustomerFailureYieldsPlaceholder(t *testing.T) {
	api := &stubProviderAPI{
		bookingsByProvider: map[string][]square.Booking{
			"TM1": {
				{ID: "B1", CustomerID: "C1", StartAt: "2025-06-02T13:00:00Z", SellerNote: sellerNote(t, "jane@example.com", "654321")},
				{ID: "B2", CustomerID: "C2", StartAt: "2025-06-02T14:00:00Z"},
			},
		},
		customerErr: map[string]error{
			"C1": errors.New("rate limited"),
			"C2": errors.New("rate limited"),
		},
	}
	svc := NewBookings(api, []string{"TM1"}, time.UTC, nil)
	svc.now = fixedNow

	bookings, err := svc.Upcoming(context.Background(), "")
	require.NoError(t, err, "per-item customer failures must not fail the request")
	require.Len(t, bookings, 2)

	// B1 recovers the patient from its note record; B2 has neither.
	assert.Equal(t, "Jane Doe", bookings[0].Customer.Name)
	assert.Equal(t, "jane@example.com", bookings[0].Customer.Email)
	assert.Equal(t, "Unknown patient", bookings[1].Customer.Name)
}

func TestUpcoming_MultiProviderConcatenated(t *testing.T) {
	api := &stubProviderAPI{
		bookingsByProvider: map[string][]square.Booking{
			"TM1": {{ID: "B1", StartAt: "2025-06-02T13:00:00Z"}},
			"TM2": {{ID: "B2", StartAt: "2025-06-02T09:00:00Z"}},
		},
	}
	svc := NewBookings(api, []string{"TM1", "TM2"}, time.UTC, nil)
	svc.now = fixedNow

	bookings, err := svc.Upcoming(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "B2", bookings[0].ID)
	assert.Equal(t, "TM2", bookings[0].TeamMemberID)
	assert.Equal(t, "TM1", bookings[1].TeamMemberID)
}

func TestUpcoming_ScopedToOneProvider(t *testing.T) {
	api := &stubProviderAPI{
		bookingsByProvider: map[string][]square.Booking{
			"TM1": {{ID: "B1", StartAt: "2025-06-02T13:00:00Z"}},
			"TM2": {{ID: "B2", StartAt: "2025-06-02T09:00:00Z"}},
		},
	}
	svc := NewBookings(api, []string{"TM1", "TM2"}, time.UTC, nil)
	svc.now = fixedNow

	bookings, err := svc.Upcoming(context.Background(), "TM2")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "B2", bookings[0].ID)
}

func TestFindByAccessCode(t *testing.T) {
	api := &stubProviderAPI{
		bookingsByProvider: map[string][]square.Booking{
			"TM1": {
				{ID: "B1", StartAt: "2025-06-02T13:00:00Z", SellerNote: sellerNote(t, "jane@example.com", "654321")},
			},
		},
	}
	svc := NewBookings(api, []string{"TM1"}, time.UTC, nil)
	svc.now = fixedNow

	match, err := svc.FindByAccessCode(context.Background(), "654321", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "B1", match.ID)

	// Code matches but the email belongs to someone else: 404 territory.
	_, err = svc.FindByAccessCode(context.Background(), "654321", "mallory@example.com")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = svc.FindByAccessCode(context.Background(), "000000", "jane@example.com")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestHandler_LoginFlow(t *testing.T) {
	h := NewHandler(NewStaticSecret(map[string]string{"TM1": "hunter2"}), nil, nil, respond.Responder{})

	body, _ := json.Marshal(map[string]string{"password": "wrong"})
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/provider/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	body, _ = json.Marshal(map[string]string{"password": "hunter2"})
	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/provider/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "TM1", resp.TeamMemberID)
	assert.NotEmpty(t, resp.Token)
}

func TestHandler_PatientLoginNotFound(t *testing.T) {
	api := &stubProviderAPI{bookingsByProvider: map[string][]square.Booking{}}
	svc := NewBookings(api, []string{"TM1"}, time.UTC, nil)
	svc.now = fixedNow
	h := NewHandler(NoAuth{}, svc, nil, respond.Responder{})

	body, _ := json.Marshal(map[string]string{"accessCode": "123456", "email": "jane@example.com"})
	rr := httptest.NewRecorder()
	h.PatientLogin(rr, httptest.NewRequest(http.MethodPost, "/api/patient-login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_PatientLoginValidation(t *testing.T) {
	h := NewHandler(NoAuth{}, nil, nil, respond.Responder{})
	body, _ := json.Marshal(map[string]string{"accessCode": "123456"})
	rr := httptest.NewRecorder()
	h.PatientLogin(rr, httptest.NewRequest(http.MethodPost, "/api/patient-login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
