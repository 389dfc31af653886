/*
Package errs provides the error taxonomy of the chat client and the backend error code constants.

Every operation of the client resolves its Call with a typed failure built here: validation
errors for bad caller input, generic errors for plugin vetoes and business-rule rejections,
network errors wrapping transport failures, and timeout errors for connect deadlines.
Cancellation is not an error kind; it is signalled with ErrCancelled.
*/
package errs

// Backend error codes reported in REST error bodies and socket error frames.
const (
	// ErrInputError indicates that the backend rejected the request parameters.
	ErrInputError = 4

	// ErrAuthenticationFailed indicates that the API key or token could not be authenticated.
	ErrAuthenticationFailed = 5

	// ErrDuplicateUsername indicates that the requested user name is already taken.
	ErrDuplicateUsername = 6

	// ErrRateLimit indicates that the client exceeded the backend rate limit.
	ErrRateLimit = 9

	// ErrNotFound indicates that the addressed resource does not exist.
	ErrNotFound = 16

	// ErrNotAllowed indicates that the current user lacks the permission for the operation.
	ErrNotAllowed = 17

	// ErrTokenExpired indicates that the user token has expired and must be refreshed.
	ErrTokenExpired = 40

	// ErrTokenNotValid indicates that the user token could not be parsed.
	ErrTokenNotValid = 41

	// ErrTokenDateIncorrect indicates that the token issue date lies in the future.
	ErrTokenDateIncorrect = 42

	// ErrTokenSignatureIncorrect indicates that the token signature does not match.
	ErrTokenSignatureIncorrect = 43
)

// 1xxx: Client-side transport and parsing errors
const (
	// ErrParserError indicates that a backend payload could not be decoded.
	ErrParserError = 1000

	// ErrSocketClosed indicates that the realtime connection was closed.
	ErrSocketClosed = 1001

	// ErrSocketFailure indicates that the realtime connection failed.
	ErrSocketFailure = 1002

	// ErrCantParseConnectionEvent indicates that the first socket event was not a valid connection event.
	ErrCantParseConnectionEvent = 1003

	// ErrCantParseEvent indicates that a socket event could not be decoded.
	ErrCantParseEvent = 1004

	// ErrInvalidToken indicates that the supplied token could not be decoded locally.
	ErrInvalidToken = 1005

	// ErrNetworkFailed indicates that the HTTP request did not reach the backend.
	ErrNetworkFailed = 1011

	// ErrNoErrorBody indicates that the backend returned a failure status without an error body.
	ErrNoErrorBody = 1012

	// ErrUndefinedToken indicates that no token was available for an authenticated call.
	ErrUndefinedToken = 1014

	// ErrUploadFailed indicates that the attachment storage rejected an upload or delete.
	ErrUploadFailed = 1020

	// ErrInvalidAttachment indicates that an attachment failed content type or size validation.
	ErrInvalidAttachment = 1021
)

// 5xxx: Unclassified errors
const (
	// ErrUnknown represents an unclassified error.
	ErrUnknown = 5000
)
