// Package payments exposes the standalone capture endpoint for flows that
// collect payment outside the booking workflow.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/lakeshore-health/telehealth-gateway/internal/api/respond"
	"github.com/lakeshore-health/telehealth-gateway/internal/catalog"
	"github.com/lakeshore-health/telehealth-gateway/internal/square"
	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

// PaymentAPI is the slice of the Square client this package needs.
type PaymentAPI interface {
	CreatePayment(ctx context.Context, req square.PaymentRequest) (*square.Payment, error)
}

// ServiceResolver prices a payment by catalog variation when the request
// names a service instead of an amount.
type ServiceResolver interface {
	FindByVariationID(ctx context.Context, variationID string) (*catalog.ServiceOffering, error)
}

// Handler serves POST /api/process-payment.
type Handler struct {
	api      PaymentAPI
	resolver ServiceResolver
	logger   *logging.Logger
	respond  respond.Responder
}

type paymentRequest struct {
	SourceID string `json:"sourceId"`
	// Either an explicit minor-unit amount or a catalog variation to price.
	AmountCents        int64  `json:"amount,omitempty"`
	ServiceVariationID string `json:"serviceVariationId,omitempty"`
	CustomerID         string `json:"customerId,omitempty"`
	Note               string `json:"note,omitempty"`
}

type paymentResponse struct {
	Success    bool   `json:"success"`
	PaymentID  string `json:"paymentId"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
}

func NewHandler(api PaymentAPI, resolver ServiceResolver, logger *logging.Logger, rp respond.Responder) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{api: api, resolver: resolver, logger: logger, respond: rp}
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.SourceID == "" {
		h.respond.Error(w, http.StatusBadRequest, "sourceId is required", "")
		return
	}

	amount := req.AmountCents
	note := req.Note
	if amount <= 0 {
		if req.ServiceVariationID == "" {
			h.respond.Error(w, http.StatusBadRequest, "amount or serviceVariationId is required", "")
			return
		}
		offering, err := h.resolver.FindByVariationID(r.Context(), req.ServiceVariationID)
		if err != nil {
			if errors.Is(err, catalog.ErrUnknownService) {
				h.respond.Error(w, http.StatusBadRequest, "Unknown service", err.Error())
				return
			}
			h.logger.Error("service lookup failed", "error", err)
			h.respond.RemoteError(w, "Failed to look up service", err)
			return
		}
		amount = offering.PriceCents
		if note == "" {
			note = "Telehealth: " + offering.Name
		}
	}

	payment, err := h.api.CreatePayment(r.Context(), square.PaymentRequest{
		SourceID:       req.SourceID,
		IdempotencyKey: uuid.NewString(),
		Amount:         square.Money{Amount: amount, Currency: "USD"},
		CustomerID:     req.CustomerID,
		Note:           note,
	})
	if err != nil {
		h.logger.Error("payment capture failed", "error", err)
		h.respond.RemoteError(w, "Payment failed", err)
		return
	}

	h.logger.Info("payment captured", "payment_id", payment.ID, "amount_cents", amount)
	h.respond.JSON(w, http.StatusOK, paymentResponse{
		Success:    true,
		PaymentID:  payment.ID,
		ReceiptURL: payment.ReceiptURL,
	})
}
