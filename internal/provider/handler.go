package provider

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lakeshore-health/telehealth-gateway/internal/api/respond"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

// Handler serves the provider login, bookings listing, and patient lookup.
type Handler struct {
	auth     Authenticator
	bookings *Bookings
	logger   *logging.Logger
	respond  respond.Responder
}

func NewHandler(auth Authenticator, bookings *Bookings, logger *logging.Logger, rp respond.Responder) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{auth: auth, bookings: bookings, logger: logger, respond: rp}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success      bool   `json:"success"`
	TeamMemberID string `json:"teamMemberId"`
	Token        string `json:"token"`
}

// Login compares the submitted password against the configured secrets and
// hands out a presence-only session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	teamMemberID, ok := h.auth.Authenticate(req.Password)
	if !ok {
		h.logger.Warn("provider login rejected", "remote_ip", r.RemoteAddr)
		h.respond.Error(w, http.StatusUnauthorized, "Invalid password", "")
		return
	}
	token, err := NewSessionToken()
	if err != nil {
		h.respond.Error(w, http.StatusInternalServerError, "Failed to issue session token", err.Error())
		return
	}
	h.logger.Info("provider logged in", "team_member_id", teamMemberID)
	h.respond.JSON(w, http.StatusOK, loginResponse{Success: true, TeamMemberID: teamMemberID, Token: token})
}

// ListBookings returns the provider's forward-looking schedule.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	teamMemberID := r.URL.Query().Get("teamMemberId")
	bookings, err := h.bookings.Upcoming(r.Context(), teamMemberID)
	if err != nil {
		h.logger.Error("bookings listing failed", "error", err)
		h.respond.RemoteError(w, "Failed to fetch bookings", err)
		return
	}
	h.respond.JSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

type patientLoginRequest struct {
	AccessCode string `json:"accessCode"`
	Email      string `json:"email"`
}

// PatientLogin resolves an appointment from the access code embedded in its
// notes plus the booking email.
func (h *Handler) PatientLogin(w http.ResponseWriter, r *http.Request) {
	var req patientLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.AccessCode == "" || req.Email == "" {
		h.respond.Error(w, http.StatusBadRequest, "accessCode and email are required", "")
		return
	}

	match, err := h.bookings.FindByAccessCode(r.Context(), req.AccessCode, req.Email)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			h.respond.Error(w, http.StatusNotFound, "No appointment found for that code and email", "")
			return
		}
		h.logger.Error("patient lookup failed", "error", err)
		h.respond.RemoteError(w, "Failed to look up appointment", err)
		return
	}
	h.respond.JSON(w, http.StatusOK, map[string]any{"success": true, "appointment": match})
}
