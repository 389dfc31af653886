/*
Package jwt reads and issues the user tokens of the chat backend.

The client never holds the signing secret: it only decodes the user_id claim without
verifying the signature, to check that a token belongs to the user being connected, and it
builds unsigned development tokens for anonymous and local sessions. Signing and verification
are used by the in-process fake backend.
*/
package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims of a chat user token.
type Payload struct {
	// StandardClaims embeds the registered claims (exp, iat, iss).
	jwt.StandardClaims

	// UserID is the id of the user the token was issued for.
	UserID string `json:"user_id"`
}
