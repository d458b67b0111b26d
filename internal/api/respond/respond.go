// Package respond centralizes the gateway's JSON response shapes, including
// the apologetic error body with an optional support phone line.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lakeshore-health/telehealth-gateway/internal/square"
)

// Responder writes the gateway's response shapes. It is constructed once at
// startup and handed to each handler; the zero value works and omits the
// support line.
type Responder struct {
	// SupportPhone, when set, is appended to every error body so patients
	// have a manual fallback when the gateway cannot recover.
	SupportPhone string
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Support string `json:"support,omitempty"`
}

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (rp Responder) JSON(w http.ResponseWriter, status int, v any) {
	JSON(w, status, v)
}

// Error writes the standard error body.
func (rp Responder) Error(w http.ResponseWriter, status int, msg, details string) {
	body := errorBody{Error: msg, Details: details}
	if rp.SupportPhone != "" {
		body.Support = "We're sorry for the trouble. Please call " + rp.SupportPhone + " and we'll book you by phone."
	}
	JSON(w, status, body)
}

// RemoteError maps a failed Square call to a 500 whose details carry the
// upstream error message, matching the gateway's pass-through error policy.
func (rp Responder) RemoteError(w http.ResponseWriter, msg string, err error) {
	var apiErr *square.APIError
	if errors.As(err, &apiErr) {
		rp.Error(w, http.StatusInternalServerError, msg, apiErr.Detail)
		return
	}
	rp.Error(w, http.StatusInternalServerError, msg, err.Error())
}
