/*
Package identity resolves who a connect request is for: a regular user with an application
token, a guest user with a backend-issued token, or the anonymous user with a development
token. Resolution is pure and has no side effects; the session state machine acts on the
returned Identity.
*/
package identity

import (
	"chatsdk/internal/pkg/auth/jwt"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
)

// MsgTokenUserMismatch is returned when the token belongs to another user.
const MsgTokenUserMismatch = "The user_id provided on the JWT token doesn't match with the current user you try to connect"

// Kind is the kind of user being connected.
type Kind int

const (
	KindRegular Kind = iota
	KindGuest
	KindAnonymous
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindGuest:
		return "guest"
	case KindAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Identity is a validated user/token pair.
type Identity struct {
	User  *models.User
	Token string
	Kind  Kind

	// Provider reloads the token when it expires. Nil keeps Token for the whole session.
	Provider TokenProvider
}

// IsAnonymous reports whether the identity is the anonymous user.
func (i Identity) IsAnonymous() bool {
	return i.Kind == KindAnonymous
}

// TokenDecoder extracts the user id a token was issued for.
type TokenDecoder interface {
	UserID(token string) (string, error)
}

// JWTDecoder decodes the user_id claim without verifying the signature.
type JWTDecoder struct{}

func (JWTDecoder) UserID(token string) (string, error) { return jwt.UserID(token) }

// Resolver validates identities.
type Resolver struct {
	decoder TokenDecoder
}

// NewResolver creates a Resolver. A nil decoder uses JWTDecoder.
func NewResolver(decoder TokenDecoder) *Resolver {
	if decoder == nil {
		decoder = JWTDecoder{}
	}
	return &Resolver{decoder: decoder}
}

// ResolveAndValidate checks that token was issued for claimed. An undecodable token counts as
// a mismatch. The anonymous kind carries its own development token and is not checked.
func (r *Resolver) ResolveAndValidate(token string, claimed *models.User, kind Kind) (Identity, error) {
	if claimed == nil || claimed.ID == "" {
		return Identity{}, errs.Validation(MsgTokenUserMismatch)
	}

	if kind != KindAnonymous {
		userID, err := r.decoder.UserID(token)
		if err != nil || userID != claimed.ID {
			return Identity{}, errs.Validation(MsgTokenUserMismatch)
		}
	}

	return Identity{User: claimed.Clone(), Token: token, Kind: kind}, nil
}

// Anonymous returns the identity of the anonymous user with a locally generated development token.
func (r *Resolver) Anonymous() (Identity, error) {
	token, err := jwt.DevToken(models.AnonymousUserID)
	if err != nil {
		return Identity{}, errs.NewError(errs.ErrInvalidToken, err)
	}

	return Identity{
		User:  &models.User{ID: models.AnonymousUserID, Role: models.RoleAnonymous},
		Token: token,
		Kind:  KindAnonymous,
	}, nil
}

// Guest validates a backend-issued guest user and token pair.
func (r *Resolver) Guest(guest models.GuestUser) (Identity, error) {
	return r.ResolveAndValidate(guest.AccessToken, &guest.User, KindGuest)
}
