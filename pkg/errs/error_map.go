/*
Package errs provides the error taxonomy of the chat client and the backend error code constants.

This file defines the map from error codes to their template Error, used to build consistent
failures from backend codes and client-side transport conditions.
*/
package errs

import "net/http"

// errorMap stores the template Error corresponding to every known error code.
var errorMap = map[int]Error{
	// Backend error codes
	ErrInputError:              {Kind: KindNetwork, Code: ErrInputError, Message: "Invalid request parameters.", StatusCode: http.StatusBadRequest},
	ErrAuthenticationFailed:    {Kind: KindNetwork, Code: ErrAuthenticationFailed, Message: "Authentication failed.", StatusCode: http.StatusUnauthorized},
	ErrDuplicateUsername:       {Kind: KindNetwork, Code: ErrDuplicateUsername, Message: "Username is already taken.", StatusCode: http.StatusBadRequest},
	ErrRateLimit:               {Kind: KindNetwork, Code: ErrRateLimit, Message: "Too many requests. Please try again later.", StatusCode: http.StatusTooManyRequests},
	ErrNotFound:                {Kind: KindNetwork, Code: ErrNotFound, Message: "Resource not found.", StatusCode: http.StatusNotFound},
	ErrNotAllowed:              {Kind: KindNetwork, Code: ErrNotAllowed, Message: "Operation not allowed.", StatusCode: http.StatusForbidden},
	ErrTokenExpired:            {Kind: KindNetwork, Code: ErrTokenExpired, Message: "Token has expired.", StatusCode: http.StatusUnauthorized},
	ErrTokenNotValid:           {Kind: KindNetwork, Code: ErrTokenNotValid, Message: "Token is not valid.", StatusCode: http.StatusUnauthorized},
	ErrTokenDateIncorrect:      {Kind: KindNetwork, Code: ErrTokenDateIncorrect, Message: "Token date is incorrect.", StatusCode: http.StatusUnauthorized},
	ErrTokenSignatureIncorrect: {Kind: KindNetwork, Code: ErrTokenSignatureIncorrect, Message: "Token signature is incorrect.", StatusCode: http.StatusUnauthorized},

	// Client-side transport and parsing errors
	ErrParserError:              {Kind: KindNetwork, Code: ErrParserError, Message: "Unable to parse the backend response."},
	ErrSocketClosed:             {Kind: KindNetwork, Code: ErrSocketClosed, Message: "Socket closed."},
	ErrSocketFailure:            {Kind: KindNetwork, Code: ErrSocketFailure, Message: "Socket failure: %v"},
	ErrCantParseConnectionEvent: {Kind: KindNetwork, Code: ErrCantParseConnectionEvent, Message: "Unable to parse the connection event."},
	ErrCantParseEvent:           {Kind: KindNetwork, Code: ErrCantParseEvent, Message: "Unable to parse event: %s"},
	ErrInvalidToken:             {Kind: KindValidation, Code: ErrInvalidToken, Message: "Invalid token: %v"},
	ErrNetworkFailed:            {Kind: KindNetwork, Code: ErrNetworkFailed, Message: "Network request failed: %v"},
	ErrNoErrorBody:              {Kind: KindNetwork, Code: ErrNoErrorBody, Message: "Backend returned status %d without an error body."},
	ErrUndefinedToken:           {Kind: KindValidation, Code: ErrUndefinedToken, Message: "No defined token. Check if the user was connected."},
	ErrUploadFailed:             {Kind: KindNetwork, Code: ErrUploadFailed, Message: "Attachment storage failed: %v"},
	ErrInvalidAttachment:        {Kind: KindValidation, Code: ErrInvalidAttachment, Message: "Invalid attachment: %s"},

	// Unclassified
	ErrUnknown: {Kind: KindGeneric, Code: ErrUnknown, Message: "Something went wrong. Please try again."},
}
