package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lakeshore-health/telehealth-gateway/internal/api/respond"
	"github.com/lakeshore-health/telehealth-gateway/internal/catalog"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

// Handler serves POST /api/booking.
type Handler struct {
	service *Service
	logger  *logging.Logger
	respond respond.Responder
}

type bookingRequest struct {
	Personal PersonalInfo `json:"personal"`
	Health   HealthInfo   `json:"health"`
	Consents Consents     `json:"consents"`
	Service  struct {
		ID          string `json:"id"`
		VariationID string `json:"variationId"`
	} `json:"service"`
	// Flat alias kept for older clients.
	ServiceVariationID string `json:"serviceVariationId"`
	SelectedTime       string `json:"selectedTime"`
	TeamMemberID       string `json:"teamMemberId,omitempty"`
	PaymentToken       string `json:"paymentToken,omitempty"`
}

type bookingResponse struct {
	Success      bool         `json:"success"`
	BookingID    string       `json:"bookingId"`
	CustomerID   string       `json:"customerId"`
	PaymentID    string       `json:"paymentId,omitempty"`
	AccessCode   string       `json:"accessCode,omitempty"`
	Confirmation Confirmation `json:"confirmation"`
}

func NewHandler(service *Service, logger *logging.Logger, rp respond.Responder) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger, respond: rp}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	variationID := req.ServiceVariationID
	if variationID == "" {
		variationID = req.Service.VariationID
	}
	if variationID == "" {
		variationID = req.Service.ID
	}
	if variationID == "" {
		h.respond.Error(w, http.StatusBadRequest, "service is required", "")
		return
	}
	startAt, err := time.Parse(time.RFC3339, req.SelectedTime)
	if err != nil {
		h.respond.Error(w, http.StatusBadRequest, "selectedTime must be RFC 3339", "")
		return
	}

	result, err := h.service.Create(r.Context(), Request{
		Intake: PatientIntake{
			Personal: req.Personal,
			Health:   req.Health,
			Consents: req.Consents,
		},
		ServiceVariationID: variationID,
		StartAt:            startAt,
		TeamMemberID:       req.TeamMemberID,
		PaymentToken:       req.PaymentToken,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("booking created",
		"booking_id", result.BookingID,
		"customer_id", result.CustomerID,
		"paid", result.PaymentID != "",
	)
	h.respond.JSON(w, http.StatusOK, bookingResponse{
		Success:      true,
		BookingID:    result.BookingID,
		CustomerID:   result.CustomerID,
		PaymentID:    result.PaymentID,
		AccessCode:   result.AccessCode,
		Confirmation: result.Confirmation,
	})
}

// writeError maps workflow failures onto the gateway's taxonomy: patient
// mistakes are 400s, anything that reached the platform and failed is a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var paymentErr *PaymentError
	switch {
	case errors.Is(err, ErrPaymentRequired):
		h.respond.Error(w, http.StatusBadRequest, "Payment is required to book this appointment", "")
	case errors.Is(err, ErrInvalidIntake):
		h.respond.Error(w, http.StatusBadRequest, "Invalid booking request", err.Error())
	case errors.Is(err, catalog.ErrUnknownService):
		h.respond.Error(w, http.StatusBadRequest, "Unknown service", err.Error())
	case errors.As(err, &paymentErr):
		h.logger.Error("payment capture failed", "error", err)
		h.respond.RemoteError(w, "Payment failed", paymentErr.Err)
	default:
		h.logger.Error("booking workflow failed", "error", err)
		h.respond.RemoteError(w, "Failed to create booking", err)
	}
}
