package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

const (
	// SmallBodyLimit covers create, join and image requests.
	SmallBodyLimit = 4 * 1024
	// LargeBodyLimit covers turn, referee and opponent requests.
	LargeBodyLimit = 10 * 1024
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// methodAllowed writes a 405 unless the request uses method.
func methodAllowed(w http.ResponseWriter, r *http.Request, logger *slog.Logger, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+method)
	return false
}

// decodeBody reads a JSON body of at most limit bytes into dst. It writes
// 413 for oversized bodies and 400 for malformed ones.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, limit int64, dst any) bool {
	if r.ContentLength > limit {
		writeError(w, logger, http.StatusRequestEntityTooLarge, "Request too large")
		return false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, logger, http.StatusRequestEntityTooLarge, "Request too large")
			return false
		}
		writeError(w, logger, http.StatusBadRequest, "Invalid JSON")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		logger.Debug("Invalid request body", "error", err)
		writeError(w, logger, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// seat reads a player number that must be exactly 1 or 2. Anything else,
// including strings, yields 0.
func seat(v any) int {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	switch f {
	case 1:
		return 1
	case 2:
		return 2
	default:
		return 0
	}
}

// text stringifies a loosely typed JSON field.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
