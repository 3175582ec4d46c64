// Package httputil writes JSON responses and maps domain errors to HTTP
// statuses.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "medicineweb/pkg/domain-errors"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Field            string `json:"field,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and writes the error
// body. Internal error details never leak to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		body.ErrorDescription = err.Error()
		body.Field = dErrors.FieldOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
