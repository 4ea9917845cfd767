package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// RegistrationTokenBytes is the entropy of a registration link token.
const RegistrationTokenBytes = 24

// GenerateRegistrationToken returns 48 hex characters of crypto randomness.
func GenerateRegistrationToken() (string, error) {
	buf := make([]byte, RegistrationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate registration token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateCertificateNumber formats CERT-YYYYMMDD-NNNN using the UTC date of at.
// Uniqueness is guaranteed by the store, not here.
func GenerateCertificateNumber(at time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("failed to generate certificate number: %w", err)
	}
	return fmt.Sprintf("CERT-%s-%04d", at.UTC().Format("20060102"), n.Int64()+1000), nil
}
