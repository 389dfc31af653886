package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// UserTokenExpiration defines the lifetime of tokens issued by the fake backend.
	UserTokenExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "chatsdk-backend"

	// DevTokenSignature replaces the signature segment of development tokens.
	DevTokenSignature = "devtoken"
)

// ErrMissingUserID is returned when a token has no user_id claim.
var ErrMissingUserID = errors.New("token has no user_id claim")

// GenerateToken creates and signs a token for userID. A zero duration issues a token without expiry.
func GenerateToken(userID string, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	payload := &Payload{
		StandardClaims: jwt.StandardClaims{
			IssuedAt: now.Unix(),
			Issuer:   TokenIssuer,
		},
		UserID: userID,
	}
	if duration > 0 {
		payload.ExpiresAt = now.Add(duration).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates the token string using the provided secretKey.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}

// IsExpired reports whether err returned by ParseToken is an expiry failure.
func IsExpired(err error) bool {
	var ve *jwt.ValidationError
	return errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0
}

// UserID decodes the user_id claim of tokenString without verifying its signature.
func UserID(tokenString string) (string, error) {
	claims := &Payload{}

	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return "", err
	}

	if claims.UserID == "" {
		return "", ErrMissingUserID
	}

	return claims.UserID, nil
}

// DevToken builds an unsigned development token for userID.
func DevToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Payload{UserID: userID})

	signingString, err := token.SigningString()
	if err != nil {
		return "", err
	}

	return signingString + "." + DevTokenSignature, nil
}

// IsDevToken reports whether tokenString is a development token.
func IsDevToken(tokenString string) bool {
	return strings.HasSuffix(tokenString, "."+DevTokenSignature)
}
