package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/pkg/chat"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CHAT_ENVIRONMENT", "")
	t.Setenv("CHAT_BASE_URL", "")
	t.Setenv("CHAT_WS_URL", "")
	t.Setenv("CHAT_API_KEY", "")
	t.Setenv("CHAT_CREDENTIALS_BACKEND", "")
	t.Setenv("CHAT_S3_BUCKET_NAME", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "dev_api_key", cfg.APIKey)
	assert.Equal(t, "ws://localhost:8080/connect", cfg.WSURL)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, CredentialsMemory, cfg.CredentialsBackend)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.HasStorage())
}

func TestLoadConfigProductionRequiresAPIKey(t *testing.T) {
	t.Setenv("CHAT_ENVIRONMENT", "production")
	t.Setenv("CHAT_API_KEY", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "CHAT_API_KEY")
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "timeout", env: map[string]string{"CHAT_CONNECT_TIMEOUT_MS": "soon"}, want: "CHAT_CONNECT_TIMEOUT_MS"},
		{name: "ws scheme", env: map[string]string{"CHAT_WS_URL": "http://localhost/connect"}, want: "ws or wss"},
		{name: "backend", env: map[string]string{"CHAT_CREDENTIALS_BACKEND": "redis"}, want: "redis"},
		{name: "s3", env: map[string]string{"CHAT_S3_BUCKET_NAME": "attachments", "CHAT_S3_ENDPOINT": ""}, want: "CHAT_S3_ENDPOINT"},
		{name: "workers", env: map[string]string{"CHAT_WORKERS": "0"}, want: "CHAT_WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CHAT_ENVIRONMENT", "development")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfigFileBackend(t *testing.T) {
	t.Setenv("CHAT_ENVIRONMENT", "development")
	t.Setenv("CHAT_CREDENTIALS_BACKEND", CredentialsFile)
	t.Setenv("CHAT_CREDENTIALS_PATH", "/tmp/chatsdk/creds.json")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/chatsdk/creds.json", cfg.CredentialsPath)
}

func TestLoadConfigSessionSettings(t *testing.T) {
	t.Setenv("CHAT_ENVIRONMENT", "development")
	t.Setenv("CHAT_USER_ID", "")
	t.Setenv("CHAT_USER_TOKEN", "secret")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "CHAT_USER_ID")

	t.Setenv("CHAT_USER_ID", "alice")
	t.Setenv("CHAT_USER_NAME", "Alice")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.UserID)
	assert.Equal(t, "Alice", cfg.UserName)
	assert.Equal(t, "secret", cfg.UserToken)
}

func TestOptions(t *testing.T) {
	cfg := &AppConfig{BaseURL: "http://localhost:9000", WSURL: "ws://localhost:9000/connect", Workers: 2}
	assert.Len(t, cfg.Options(), 3)

	cfg.RequestRate = 5
	cfg.RequestBurst = 10
	assert.Len(t, cfg.Options(), 4)

	client, err := chat.New("key", cfg.Options()...)
	require.NoError(t, err)
	client.Close()
}
