// Package httpjson maps domain results and sentinel errors onto JSON HTTP
// responses.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

type errorBody struct {
	Error string `json:"error"`
}

// Write serializes v with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps domain sentinels to HTTP statuses. Unknown errors become
// 500 with a generic body so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrBadRequest):
		Write(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, types.ErrNotFound):
		Write(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, types.ErrConflict):
		Write(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, types.ErrGeneration):
		Write(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		Write(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// Decode parses a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return types.ErrBadRequest
	}
	return nil
}
