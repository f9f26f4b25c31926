package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxAuthBodySize = 4 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON decodes a JSON request body into T, rejecting oversized or
// malformed bodies with a 400. The bool result is false when a response has
// already been written.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxBytes int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	err := json.NewDecoder(r.Body).Decode(&v)
	if err != nil && !errors.Is(err, io.EOF) {
		// An empty body decodes to the zero value; per-field validation in
		// the handler produces the precise rejection.
		writeError(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	return v, true
}
