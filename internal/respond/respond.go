// Package respond writes JSON HTTP responses.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// JSON writes data as a JSON response with the given status
func JSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Error writes {"error": message} with the given status
func Error(w http.ResponseWriter, status int, message string, log zerolog.Logger) {
	JSON(w, status, map[string]string{"error": message}, log)
}
