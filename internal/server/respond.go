package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	apperrors "air-jarvis/internal/errors"
)

// Face images arrive base64 encoded inside the JSON body.
const maxBodyBytes = 20 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	msg := err.Error()

	if ae, ok := apperrors.As(err); ok {
		status = apperrors.StatusOf(ae)
		code = string(ae.Code)
		msg = ae.Message
	} else if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		code = "TIMEOUT"
	} else if errors.Is(err, context.Canceled) {
		code = "CANCELED"
	}

	s.Metrics.IncError(code)
	log.Printf("[%s] ❌ %s %s: %v", RequestID(r.Context()), r.Method, r.URL.Path, err)
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewInvalidInput("Request body required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewInvalidInput("Request body too large")
		}
		return apperrors.NewInvalidInput("Invalid JSON body")
	}
	return nil
}
