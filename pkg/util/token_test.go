package util

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRegistrationToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := GenerateRegistrationToken()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9a-f]{48}$`, token)
		assert.False(t, seen[token], "token repeated")
		seen[token] = true
	}
}

func TestGenerateCertificateNumber(t *testing.T) {
	at := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^CERT-20250309-(\d{4})$`)

	for i := 0; i < 200; i++ {
		number, err := GenerateCertificateNumber(at)
		require.NoError(t, err)
		m := pattern.FindStringSubmatch(number)
		require.Len(t, m, 2, number)
		assert.GreaterOrEqual(t, m[1], "1000")
		assert.LessOrEqual(t, m[1], "9999")
	}
}
