/*
Package resp defines the JSON envelope exchanged with the chat backend.

The backend wraps every REST response in a JSONResponse carrying a business code, a message and
an optional payload. The client decodes envelopes with Decode and turns failed ones into
*errs.Error values; the in-process fake backend writes them with RespondSuccess and RespondError.
*/
package resp

import (
	"encoding/json"
	"io"
	"net/http"

	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/errs"
)

// JSONResponse defines the standardized JSON envelope of the backend.
type JSONResponse struct {
	// Code is the business status code (0 for success, others for specific errors, see errs package).
	Code int `json:"code"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`

	// StatusCode repeats the HTTP status of failed responses.
	StatusCode int `json:"StatusCode,omitempty"`

	// Data is the optional response payload.
	Data json.RawMessage `json:"data,omitempty"`
}

// RespondJSON is a generic response function used to set the Content-Type and send the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
			"path", r.URL.Path,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends a successful HTTP response (HTTP 200 OK).
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}

	res := JSONResponse{
		Code:    0,
		Message: "success",
		Data:    raw,
	}
	RespondJSON(w, r, http.StatusOK, res)
}

// RespondError sends an HTTP response containing the error information of chatErr.
func RespondError(w http.ResponseWriter, r *http.Request, chatErr *errs.Error) {
	if chatErr == nil {
		chatErr = errs.NewError(errs.ErrUnknown)
	}

	status := chatErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	res := JSONResponse{
		Code:       chatErr.Code,
		Message:    chatErr.Message,
		StatusCode: status,
	}
	RespondJSON(w, r, status, res)
}

// Decode reads an envelope from body and unmarshals its payload into dst (which may be nil).
// A failed envelope, or a non-2xx status without a readable envelope, is returned as a
// network error.
func Decode(status int, body io.Reader, dst any) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return errs.NewError(errs.ErrNetworkFailed, err)
	}

	var envelope JSONResponse
	if len(raw) == 0 {
		if status >= http.StatusBadRequest {
			return noErrorBody(status)
		}
		return nil
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if status >= http.StatusBadRequest {
			return noErrorBody(status)
		}
		return errs.NewError(errs.ErrParserError, err)
	}

	if envelope.Code != 0 || status >= http.StatusBadRequest {
		if envelope.StatusCode == 0 {
			envelope.StatusCode = status
		}
		return errs.Network(envelope.Code, envelope.StatusCode, envelope.Message, nil)
	}

	if dst == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		return errs.NewError(errs.ErrParserError, err)
	}
	return nil
}

func noErrorBody(status int) *errs.Error {
	e := errs.NewError(errs.ErrNoErrorBody, status)
	e.StatusCode = status
	return e
}
