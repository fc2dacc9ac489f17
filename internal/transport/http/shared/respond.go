// Package shared holds the response helpers every handler package uses so the
// JSON error envelope stays identical across endpoints.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "securyflex/pkg/domain-errors"
)

// WriteJSON serializes v with the given status. Encoding failures are
// swallowed; by that point the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Uncoded
// errors map to 500 with a generic code so raw error text never leaks.
func WriteError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeOf(err)
	message := "internal error"
	var de *pkgerrors.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	WriteJSON(w, code.HTTPStatus(), map[string]string{
		"error":   string(code),
		"message": message,
	})
}
