package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"waxcrate/internal/ingest"
	"waxcrate/internal/services"
)

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the service error taxonomy onto HTTP statuses. Ingestion
// rejections additionally carry their machine-readable reason code so the
// uploader can distinguish a fixable filename from a banned payload.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: services.Details(err).Message}
	status := http.StatusInternalServerError

	if reason, ok := ingest.ReasonOf(err); ok {
		body.Reason = string(reason)
		status = http.StatusBadRequest
		if reason == ingest.ReasonTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, body)
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, services.ErrMissingFields):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrExternal):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, body)
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: message})
}
