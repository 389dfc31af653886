package identity

import (
	"context"
	"sync"

	"chatsdk/pkg/errs"
)

// TokenProvider loads the token of the current user, e.g. from the application backend.
type TokenProvider interface {
	LoadToken(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a function to a TokenProvider.
type TokenProviderFunc func(ctx context.Context) (string, error)

func (f TokenProviderFunc) LoadToken(ctx context.Context) (string, error) { return f(ctx) }

// ConstantTokenProvider always returns the same token. Used for static and development tokens.
type ConstantTokenProvider string

func (p ConstantTokenProvider) LoadToken(context.Context) (string, error) { return string(p), nil }

// CacheableTokenProvider caches the last loaded token until Expire is called.
type CacheableTokenProvider struct {
	mu       sync.Mutex
	provider TokenProvider
	cached   string
}

// NewCacheableTokenProvider wraps provider.
func NewCacheableTokenProvider(provider TokenProvider) *CacheableTokenProvider {
	return &CacheableTokenProvider{provider: provider}
}

// LoadToken returns the cached token, loading it from the wrapped provider when needed.
func (p *CacheableTokenProvider) LoadToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	token, err := p.provider.LoadToken(ctx)
	if err != nil {
		return "", err
	}
	p.cached = token
	return token, nil
}

// Cached returns the cached token without loading.
func (p *CacheableTokenProvider) Cached() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cached
}

// Expire drops the cached token so the next LoadToken reloads it.
func (p *CacheableTokenProvider) Expire() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = ""
}

// TokenManager owns the token provider of the connected user. The HTTP collaborator uses it
// to authenticate requests and to refresh expired tokens.
type TokenManager struct {
	mu       sync.RWMutex
	provider *CacheableTokenProvider
}

// NewTokenManager creates a TokenManager with no provider.
func NewTokenManager() *TokenManager {
	return &TokenManager{}
}

// SetProvider installs the provider of a newly connected user.
func (m *TokenManager) SetProvider(provider TokenProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if provider == nil {
		m.provider = nil
		return
	}
	m.provider = NewCacheableTokenProvider(provider)
}

// HasProvider reports whether a provider is installed.
func (m *TokenManager) HasProvider() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provider != nil
}

// Token returns the current token, loading it if needed.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return "", errs.NewError(errs.ErrUndefinedToken)
	}

	token, err := provider.LoadToken(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errs.NewError(errs.ErrUndefinedToken)
	}
	return token, nil
}

// CurrentToken returns the cached token without loading, or "".
func (m *TokenManager) CurrentToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.provider == nil {
		return ""
	}
	return m.provider.Cached()
}

// Expire forces the next Token call to reload from the provider.
func (m *TokenManager) Expire() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.provider != nil {
		m.provider.Expire()
	}
}

// Clear removes the provider.
func (m *TokenManager) Clear() {
	m.SetProvider(nil)
}
