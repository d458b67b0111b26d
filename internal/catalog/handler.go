package catalog

import (
	"net/http"

	"github.com/lakeshore-health/telehealth-gateway/internal/api/respond"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

// Handler serves GET /api/services.
type Handler struct {
	service *Service
	logger  *logging.Logger
	respond respond.Responder
}

func NewHandler(service *Service, logger *logging.Logger, rp respond.Responder) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger, respond: rp}
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	offerings, err := h.service.ListServices(r.Context())
	if err != nil {
		h.logger.Error("catalog listing failed", "error", err)
		h.respond.RemoteError(w, "Failed to load services", err)
		return
	}
	h.respond.JSON(w, http.StatusOK, map[string]any{"services": offerings})
}
