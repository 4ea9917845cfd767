package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	r, err := NewRenderer(filepath.Join(t.TempDir(), "missing.png"), "")
	require.NoError(t, err)
	assert.False(t, r.HasUnicodeFont())

	out, err := r.Render(CertificateData{
		RecipientName:      "A. Ivanov",
		Qualification:      "Кальянный мастер",
		TrainingCenterName: "WinterGreen Academia",
		IssuedAt:           time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		CertificateNumber:  "CERT-20250501-4821",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}

func TestNewRenderer_UnreadableAsset(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "font.ttf"), 0o755))

	_, err := NewRenderer("", filepath.Join(dir, "font.ttf"))
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "certificate-CERT-20250501-4821.pdf", Filename("CERT-20250501-4821"))
}
