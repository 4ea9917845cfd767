package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCertificateTest(t *testing.T) (CertificateRepository, *model.Employee) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	establishment := &model.Establishment{Name: "Acme"}
	require.NoError(t, NewEstablishmentRepository(testDB).Create(establishment))
	employee := newPendingEmployee(t, establishment.ID, "a@x.com")
	require.NoError(t, NewEmployeeRepository(testDB).Create(employee))

	return NewCertificateRepository(testDB), employee
}

func newCertificate(employee *model.Employee, number string, issuedAt time.Time) *model.Certificate {
	return &model.Certificate{
		EmployeeID:        employee.ID,
		EstablishmentID:   employee.EstablishmentID,
		CertificateNumber: number,
		Status:            model.CertificateActive,
		IssuedAt:          issuedAt,
		ValidUntil:        issuedAt.AddDate(1, 0, 0),
	}
}

func TestCertificateRepository_DuplicateNumber(t *testing.T) {
	repo, employee := setupCertificateTest(t)
	now := time.Now()

	require.NoError(t, repo.Create(newCertificate(employee, "CERT-20250101-1234", now)))
	err := repo.Create(newCertificate(employee, "CERT-20250101-1234", now))
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestCertificateRepository_ActiveAndRevoke(t *testing.T) {
	repo, employee := setupCertificateTest(t)
	now := time.Now()

	certificate := newCertificate(employee, "CERT-20250101-1234", now)
	require.NoError(t, repo.Create(certificate))

	active, err := repo.ListActiveByEmployeeForUpdate(employee.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, certificate.ID, active[0].ID)

	revokedAt := now.Add(time.Minute)
	certificate.Status = model.CertificateRevoked
	certificate.RevokedAt = &revokedAt
	certificate.RevokedReason = model.StringPtr("issued in error")
	require.NoError(t, repo.MarkRevoked(certificate))

	active, err = repo.ListActiveByEmployeeForUpdate(employee.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	found, err := repo.FindByID(certificate.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificateRevoked, found.Status)
	require.NotNil(t, found.Employee)
	assert.Equal(t, "A. Ivanov", found.Employee.FullName)
	require.NotNil(t, found.Establishment)
}

func TestCertificateRepository_ListActiveIncludesExpired(t *testing.T) {
	repo, employee := setupCertificateTest(t)
	now := time.Now()

	require.NoError(t, repo.Create(newCertificate(employee, "CERT-20230101-1111", now.AddDate(-2, 0, 0))))
	require.NoError(t, repo.Create(newCertificate(employee, "CERT-20250101-2222", now)))

	active, err := repo.ListActiveByEmployeeForUpdate(employee.ID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "CERT-20250101-2222", active[0].CertificateNumber, "newest first")
}

func TestCertificateRepository_ListActiveExpiringBetween(t *testing.T) {
	repo, employee := setupCertificateTest(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	inWindow := newCertificate(employee, "CERT-20240601-1000", now.AddDate(-1, 0, 0))
	inWindow.ValidUntil = now.Add(30*24*time.Hour + time.Hour)
	outside := newCertificate(employee, "CERT-20240601-2000", now.AddDate(-1, 0, 0))
	outside.ValidUntil = now.Add(40 * 24 * time.Hour)
	require.NoError(t, repo.Create(inWindow))
	require.NoError(t, repo.Create(outside))

	from := now.Add(30 * 24 * time.Hour)
	certificates, err := repo.ListActiveExpiringBetween(from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, certificates, 1)
	assert.Equal(t, inWindow.ID, certificates[0].ID)
	require.NotNil(t, certificates[0].Employee)
}

func TestCertificateRepository_List(t *testing.T) {
	repo, employee := setupCertificateTest(t)
	now := time.Now()

	require.NoError(t, repo.Create(newCertificate(employee, "CERT-20250101-1111", now)))

	tests := []struct {
		name   string
		filter CertificateFilter
		want   int
	}{
		{name: "all", filter: CertificateFilter{}, want: 1},
		{name: "by number", filter: CertificateFilter{Search: "1111"}, want: 1},
		{name: "by employee email", filter: CertificateFilter{Search: "a@x"}, want: 1},
		{name: "no match", filter: CertificateFilter{Search: "zzz"}, want: 0},
		{name: "revoked only", filter: CertificateFilter{Status: model.CertificateRevoked}, want: 0},
		{name: "by establishment", filter: CertificateFilter{EstablishmentID: employee.EstablishmentID}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certificates, err := repo.List(tt.filter)
			require.NoError(t, err)
			assert.Len(t, certificates, tt.want)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm duplicated key", err: gorm.ErrDuplicatedKey, want: true},
		{name: "postgres unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "postgres fk", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite text", err: errors.New("UNIQUE constraint failed: employees.email"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}
