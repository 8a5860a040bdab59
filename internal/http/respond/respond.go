package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the error body shared by every handler.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON writes payload as the response body with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	write(w, status, payload)
}

// Error writes an error response using the shared envelope.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

func write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("respond: encode payload failed", "error", err)
	}
}
