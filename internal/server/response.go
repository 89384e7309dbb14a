package server

import (
	"net/http"

	"github.com/goccy/go-json"

	"starling/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON sends v with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("json_encode_error", map[string]any{"error": err.Error()})
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
