// Package httpx holds the JSON envelope shared by the records API and its
// client.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MaxBodyBytes caps request bodies. Every write endpoint takes a tiny
// object.
const MaxBodyBytes = 64 << 10

// APIError is the body of every non-2xx response.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, APIError{Error: msg, Code: code, Details: details})
}

// DecodeJSON reads one JSON object from r into v. Unknown fields and
// trailing data are rejected. On failure a 400 is written and false is
// returned.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("trailing data after json object")
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", nil)
			return false
		}
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body: "+err.Error(), nil)
		return false
	}
	return true
}
