package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmployeeInactive       = errors.New("employee is inactive")
	ErrUserNotFound           = errors.New("user not found")
	ErrBootstrapNotConfigured = errors.New("admin bootstrap key is not configured")
	ErrInvalidBootstrapKey    = errors.New("invalid bootstrap key")
	ErrAdminAlreadyExists     = errors.New("admin already exists")

	ErrEstablishmentNotFound        = errors.New("establishment not found")
	ErrEstablishmentArchived        = errors.New("establishment is archived")
	ErrEstablishmentAlreadyArchived = errors.New("establishment already archived")
	ErrEstablishmentAlreadyActive   = errors.New("establishment already active")

	ErrEmployeeNotFound        = errors.New("employee not found")
	ErrEmployeeArchived        = errors.New("employee is archived")
	ErrEmployeeAlreadyActive   = errors.New("employee already active")
	ErrEmployeeAlreadyArchived = errors.New("employee already archived")
	ErrEmailAlreadyExists      = errors.New("employee email already exists")
	ErrDuplicateEmailInBatch   = errors.New("duplicate email in batch")
	ErrSameEstablishment       = errors.New("employee already in establishment")

	ErrRegistrationNotFound = errors.New("registration link not found")
	ErrUserExists           = errors.New("user already exists")

	ErrCertificateNotFound       = errors.New("certificate not found")
	ErrActiveCertificateExists   = errors.New("active certificate already exists")
	ErrCertificateAlreadyRevoked = errors.New("certificate already revoked")
	ErrCertificateNumberConflict = errors.New("certificate number collision, retry")

	ErrRequestNotFound = errors.New("request not found")
)

// ValidationError carries per-field problems; nothing was written.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid payload: " + strings.Join(parts, ", ")
}

func newValidationError(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

// ArchivedEstablishmentsError names the establishments that blocked a bulk create.
type ArchivedEstablishmentsError struct {
	Missing []string
}

func (e *ArchivedEstablishmentsError) Error() string {
	return fmt.Sprintf("establishment is archived: %s", strings.Join(e.Missing, ", "))
}

func (e *ArchivedEstablishmentsError) Unwrap() error {
	return ErrEstablishmentArchived
}
