package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fides-dpp/trust-engine/internal/core/services"
	"github.com/fides-dpp/trust-engine/internal/log"
)

// messageResponse is the error body shape of every non 2xx response
type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeBody encodes the body leaving already set headers untouched
func writeBody(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps service error kinds onto HTTP statuses
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notAllowlisted *services.NotAllowlistedError
		unresolved     *services.ProductResolutionError
	)
	switch {
	case errors.Is(err, services.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
	case errors.Is(err, services.ErrIssuerNotFound), errors.Is(err, services.ErrTokenNotFound):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: err.Error()})
	case errors.As(err, &notAllowlisted):
		writeJSON(w, http.StatusForbidden, messageResponse{Message: err.Error()})
	case errors.As(err, &unresolved):
		writeJSON(w, http.StatusUnprocessableEntity, messageResponse{Message: err.Error()})
	case errors.Is(err, services.ErrIssuerNotVerified), errors.Is(err, services.ErrUnsupportedKeyType):
		writeJSON(w, http.StatusConflict, messageResponse{Message: err.Error()})
	case errors.Is(err, services.ErrStorageUnavailable), errors.Is(err, services.ErrConfigurationMissing):
		writeJSON(w, http.StatusServiceUnavailable, messageResponse{Message: err.Error()})
	default:
		log.Error(r.Context(), "unhandled api error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
