package util

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost 10 verifies in roughly 100ms on commodity hardware.
const bcryptCost = 10

// dummyHash is compared against when the account does not exist so that
// both login failure paths pay the same bcrypt cost.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("academia-placeholder"), bcryptCost)

// HashPassword hashes a plain text password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword checks if a plain text password matches a hashed password
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// BurnPasswordCheck performs a compare against a throwaway hash.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
