package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestKeyedLimiter(t *testing.T) {
	l := NewKeyedLimiter(rate.Every(3*time.Second), 1)
	defer l.Close()

	assert.True(t, l.Allow("messaging:general"))
	assert.False(t, l.Allow("messaging:general"))
	assert.True(t, l.Allow("messaging:random"))

	l.Forget("messaging:general")
	assert.True(t, l.Allow("messaging:general"))
}

func TestRemoveIdle(t *testing.T) {
	l := NewKeyedLimiter(rate.Every(time.Second), 1)
	defer l.Close()

	l.Allow("a")
	l.Get("b")

	removed := l.removeIdle(time.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())

	assert.Equal(t, 1, l.removeIdle(time.Now().Add(2*time.Second)))
	assert.Equal(t, 0, l.Len())
}

func TestMiddleware(t *testing.T) {
	l := NewKeyedLimiter(rate.Every(time.Hour), 1)
	defer l.Close()

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
