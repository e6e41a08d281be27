package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// MaxBodyBytes bounds every decoded request body.
const MaxBodyBytes = 1 << 20

// ErrEmptyBody is returned by Decode when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

// Decode reads a JSON body into dst. Unknown fields are ignored.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("respond: encode payload failed")
	}
}
