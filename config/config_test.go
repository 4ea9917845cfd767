package config

import (
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRAINING_CENTER_NAME", "")
	t.Setenv("CERTIFICATE_VALIDITY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "WinterGreen Academia", cfg.App.TrainingCenterName)
	assert.Equal(t, "Кальянный мастер", cfg.App.Qualification)
	assert.Equal(t, 365*24*time.Hour, cfg.App.CertificateValidity)
	assert.Equal(t, 168*time.Hour, cfg.JWT.SessionExpiry)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxImportSize)
}

func TestLoad_TrimsPublicURLAndOrigins(t *testing.T) {
	t.Setenv("PUBLIC_APP_URL", "https://academy.example/")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://academy.example", cfg.App.PublicURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestEncryptionConfig_Key(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "base64", key: base64.StdEncoding.EncodeToString(raw)},
		{name: "hex", key: hex.EncodeToString(raw)},
		{name: "too short", key: "abc", wantErr: true},
		{name: "bad hex", key: "zz" + hex.EncodeToString(raw)[2:], wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := EncryptionConfig{IINKey: tt.key}.Key()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEncryptionKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, raw, key)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("production requires jwt secret", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Environment: "production"}}
		assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)
	})

	t.Run("development falls back", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Environment: "development"}}
		require.NoError(t, cfg.Validate())
		assert.NotEmpty(t, cfg.JWT.Secret)
	})

	t.Run("malformed encryption key", func(t *testing.T) {
		cfg := &Config{JWT: JWTConfig{Secret: "s"}, Encryption: EncryptionConfig{IINKey: "short"}}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidEncryptionKey)
	})
}
