package identity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/internal/pkg/auth/jwt"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
)

func TestResolveAndValidate(t *testing.T) {
	r := NewResolver(nil)
	token, err := jwt.DevToken("jc")
	require.NoError(t, err)

	id, err := r.ResolveAndValidate(token, &models.User{ID: "jc", Name: "Jc"}, KindRegular)
	require.NoError(t, err)
	assert.Equal(t, "jc", id.User.ID)
	assert.Equal(t, token, id.Token)
	assert.Equal(t, KindRegular, id.Kind)
}

func TestResolveAndValidateMismatch(t *testing.T) {
	r := NewResolver(nil)
	token, err := jwt.DevToken("someone-else")
	require.NoError(t, err)

	_, err = r.ResolveAndValidate(token, &models.User{ID: "jc"}, KindRegular)

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
	assert.EqualError(t, err, MsgTokenUserMismatch)
}

func TestResolveAndValidateUndecodableToken(t *testing.T) {
	_, err := NewResolver(nil).ResolveAndValidate("garbage", &models.User{ID: "jc"}, KindRegular)

	assert.EqualError(t, err, MsgTokenUserMismatch)
}

func TestAnonymous(t *testing.T) {
	r := NewResolver(nil)

	id, err := r.Anonymous()
	require.NoError(t, err)

	assert.True(t, id.IsAnonymous())
	assert.Equal(t, models.AnonymousUserID, id.User.ID)
	assert.True(t, jwt.IsDevToken(id.Token))
}

func TestGuest(t *testing.T) {
	token, err := jwt.GenerateToken("guest-1", "secret", 0)
	require.NoError(t, err)

	id, err := NewResolver(nil).Guest(models.GuestUser{User: models.User{ID: "guest-1"}, AccessToken: token})
	require.NoError(t, err)
	assert.Equal(t, KindGuest, id.Kind)
}

func TestCacheableTokenProvider(t *testing.T) {
	var loads atomic.Int32
	p := NewCacheableTokenProvider(TokenProviderFunc(func(context.Context) (string, error) {
		n := loads.Add(1)
		return "token-" + string(rune('0'+n)), nil
	}))

	first, err := p.LoadToken(context.Background())
	require.NoError(t, err)
	second, err := p.LoadToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", first)
	assert.Equal(t, first, second)

	p.Expire()
	third, err := p.LoadToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", third)
}

func TestTokenManager(t *testing.T) {
	m := NewTokenManager()

	_, err := m.Token(context.Background())
	assert.Equal(t, errs.ErrUndefinedToken, errs.CodeOf(err))

	m.SetProvider(ConstantTokenProvider("static"))
	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", token)
	assert.Equal(t, "static", m.CurrentToken())

	boom := errors.New("backend down")
	m.SetProvider(TokenProviderFunc(func(context.Context) (string, error) { return "", boom }))
	_, err = m.Token(context.Background())
	assert.ErrorIs(t, err, boom)

	m.Clear()
	assert.False(t, m.HasProvider())
}
