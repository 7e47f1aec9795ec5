package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
)

// maxBodyBytes bounds request bodies (trade uploads)
const maxBodyBytes = 32 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text)
}

// decodeBody reads a JSON body, rejecting unknown fields
func decodeBody(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error, notFound int) int {
	var verr analysisconfig.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, audit.ErrNoTrades), errors.Is(err, storage.ErrNotFound):
		return notFound
	case errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
