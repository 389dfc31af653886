/*
Package req provides request parsing helpers for the backend side of the wire protocol.

It is used by the in-process fake backend to bind JSON request bodies with the same strictness
as the production backend: a JSON content type, no unknown fields, and a single document.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"chatsdk/pkg/errs"
)

// MaxBodySize is the maximum accepted size (1 MB) of a JSON request body.
const MaxBodySize int64 = 1 << 20

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.Error {
	if !IsJSON(r) {
		return errs.NewError(errs.ErrInputError)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInputError)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrInputError)
	}

	return nil
}

// IsJSON reports whether the request declares a JSON body.
func IsJSON(r *http.Request) bool {
	mediaType, _, _ := strings.Cut(r.Header.Get("Content-Type"), ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "application/json")
}

// QueryJSON decodes the JSON document carried by the query parameter name, as GET endpoints
// receive their filters. A missing parameter leaves dst untouched.
func QueryJSON(r *http.Request, name string, dst any) *errs.Error {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return errs.NewError(errs.ErrInputError)
	}
	return nil
}
