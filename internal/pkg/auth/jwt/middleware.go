package jwt

import (
	"context"
	"net/http"
	"strings"

	"chatsdk/internal/pkg/logx"
)

// Define Context Key for storing the Payload struct, preventing key collisions with other packages.
type contextKey string

const (
	// ContextAuthPayloadKey is the key used to store the parsed Payload in the request Context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// RequestToken extracts the token of the Authorization header. Both the bare token sent by the
// client and the "Bearer <token>" form are accepted.
func RequestToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return authHeader
}

// Authenticate resolves the Payload of a token. Development tokens are accepted without
// signature when allowDevTokens is set.
func Authenticate(tokenString, secretKey string, allowDevTokens bool) (*Payload, error) {
	if allowDevTokens && IsDevToken(tokenString) {
		userID, err := UserID(tokenString)
		if err != nil {
			return nil, err
		}
		return &Payload{UserID: userID}, nil
	}

	return ParseToken(tokenString, secretKey)
}

// IdentityExtractorMiddleware attempts to extract and validate a token from the request header
// or the "authorization" query parameter (used by websocket upgrades). It injects the Payload
// into the Context upon success. It does NOT interrupt the request on failure or missing
// token; handlers decide whether authentication is required.
func IdentityExtractorMiddleware(secretKey string, allowDevTokens bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := RequestToken(r)
			if tokenString == "" {
				tokenString = r.URL.Query().Get("authorization")
			}
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := Authenticate(tokenString, secretKey, allowDevTokens)
			if err != nil {
				logx.Warn("Invalid or expired JWT provided", "error", err.Error())
				ctx := context.WithValue(r.Context(), contextKey("auth_error"), err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext safely extracts the authenticated Payload from the request Context.
// A nil return means the request carries no valid token.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}

// GetAuthErrorFromContext returns the token validation error recorded by the middleware, if any.
func GetAuthErrorFromContext(r *http.Request) error {
	err, _ := r.Context().Value(contextKey("auth_error")).(error)
	return err
}
