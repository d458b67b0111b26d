package availability

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lakeshore-health/telehealth-gateway/internal/api/respond"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

// Handler serves POST /api/availability.
type Handler struct {
	service             *Service
	defaultTeamMemberID string
	logger              *logging.Logger
	respond             respond.Responder
}

type availabilityRequest struct {
	ServiceVariationID string `json:"serviceVariationId"`
	// Older clients send serviceId; both name the catalog variation.
	ServiceID    string `json:"serviceId"`
	Date         string `json:"date"`
	TeamMemberID string `json:"teamMemberId,omitempty"`
}

func NewHandler(service *Service, defaultTeamMemberID string, logger *logging.Logger, rp respond.Responder) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, defaultTeamMemberID: defaultTeamMemberID, logger: logger, respond: rp}
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	variationID := req.ServiceVariationID
	if variationID == "" {
		variationID = req.ServiceID
	}
	if variationID == "" {
		h.respond.Error(w, http.StatusBadRequest, "serviceVariationId is required", "")
		return
	}
	if req.Date == "" {
		h.respond.Error(w, http.StatusBadRequest, "date is required", "")
		return
	}
	teamMemberID := req.TeamMemberID
	if teamMemberID == "" {
		teamMemberID = h.defaultTeamMemberID
	}

	result, err := h.service.ForDate(r.Context(), variationID, teamMemberID, req.Date)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			h.respond.Error(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", "")
			return
		}
		h.logger.Error("availability search failed", "error", err, "service", variationID, "date", req.Date)
		h.respond.RemoteError(w, "Failed to check availability", err)
		return
	}

	body := map[string]any{"availabilities": result.Slots}
	if result.Note != "" {
		body["note"] = result.Note
	}
	h.respond.JSON(w, http.StatusOK, body)
}
