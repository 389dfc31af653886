package req

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type body struct {
	Name string `json:"name"`
}

func jsonRequest(payload, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(payload))
	r.Header.Set("Content-Type", contentType)
	return r
}

func TestBindJSON(t *testing.T) {
	var dst body
	err := BindJSON(httptest.NewRecorder(), jsonRequest(`{"name":"jc"}`, "application/json; charset=utf-8"), &dst)
	require.Nil(t, err)
	assert.Equal(t, "jc", dst.Name)
}

func TestBindJSONRejects(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		contentType string
	}{
		{name: "content type", payload: `{"name":"jc"}`, contentType: "text/plain"},
		{name: "unknown field", payload: `{"nick":"jc"}`, contentType: "application/json"},
		{name: "two documents", payload: `{"name":"a"}{"name":"b"}`, contentType: "application/json"},
		{name: "malformed", payload: `{"name":`, contentType: "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst body
			assert.NotNil(t, BindJSON(httptest.NewRecorder(), jsonRequest(tt.payload, tt.contentType), &dst))
		})
	}
}

func TestQueryJSON(t *testing.T) {
	var dst body
	r := httptest.NewRequest(http.MethodGet, "/users?payload="+url.QueryEscape(`{"name":"jc"}`), nil)
	require.Nil(t, QueryJSON(r, "payload", &dst))
	assert.Equal(t, "jc", dst.Name)

	dst = body{Name: "kept"}
	require.Nil(t, QueryJSON(httptest.NewRequest(http.MethodGet, "/users", nil), "payload", &dst))
	assert.Equal(t, "kept", dst.Name)

	r = httptest.NewRequest(http.MethodGet, "/users?payload=nope", nil)
	assert.NotNil(t, QueryJSON(r, "payload", &dst))
}
