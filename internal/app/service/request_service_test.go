package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/pkg/util"
)

func TestRequestService(t *testing.T) {
	env := setupServiceTest(t)

	_, err := env.requests.Create(CreateRequestInput{FullName: " A "})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))

	email := "Lead@Example.com"
	created, err := env.requests.Create(CreateRequestInput{FullName: "Lead Person", Email: &email})
	require.NoError(t, err)
	assert.Equal(t, model.RequestNew, created.Status)
	require.NotNil(t, created.Email)
	assert.Equal(t, "lead@example.com", *created.Email)

	updated, err := env.requests.UpdateStatus(testAdmin, created.ID, model.RequestInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.RequestInProgress, updated.Status)

	_, err = env.requests.UpdateStatus(testAdmin, created.ID, "lost")
	require.True(t, errors.As(err, &validationErr))

	_, err = env.requests.UpdateStatus(testAdmin, "00000000-0000-0000-0000-000000000000", model.RequestClosed)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	inProgress, err := env.requests.List(model.RequestInProgress)
	require.NoError(t, err)
	assert.Len(t, inProgress, 1)
	fresh, err := env.requests.List(model.RequestNew)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestDashboardService_Summary(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	archivedEstablishment := env.createEstablishment(t, "Closed")
	_, err := env.establishments.Archive(testAdmin, archivedEstablishment.ID)
	require.NoError(t, err)

	employee := env.registerEmployee(t, acme.ID, "a@x.com")
	_, err = env.certificates.Issue(testAdmin, employee.ID, nil)
	require.NoError(t, err)
	env.createEmployee(t, acme.ID, "b@x.com")

	summary, err := env.dashboard.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Establishments)
	assert.Equal(t, int64(2), summary.Employees)
	assert.Equal(t, int64(1), summary.ActiveCertificates)
	assert.Equal(t, int64(1), summary.EmployeeStatuses[string(model.StatusCertified)])
	assert.Equal(t, int64(1), summary.EmployeeStatuses[string(model.StatusPendingRegistration)])
}

func TestAuditService_ListLimits(t *testing.T) {
	env := setupServiceTest(t)
	for i := 0; i < 105; i++ {
		require.NoError(t, env.audit.Record(nil, AuditEntry{
			Actor:      testAdmin,
			Action:     "requests.update",
			EntityType: "request",
			EntityID:   fmt.Sprintf("r-%d", i),
		}))
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default", limit: 0, want: defaultAuditLimit},
		{name: "negative", limit: -5, want: defaultAuditLimit},
		{name: "explicit", limit: 10, want: 10},
		{name: "capped", limit: 10000, want: 105},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, err := env.audit.List(tt.limit)
			require.NoError(t, err)
			assert.Len(t, logs, tt.want)
		})
	}
}

func TestAuditService_RollsBackWithAction(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	created := env.createEmployee(t, acme.ID, "a@x.com")

	hash, err := util.HashPassword("password1")
	require.NoError(t, err)
	require.NoError(t, env.userRepo.Create(&model.User{Email: "a@x.com", PasswordHash: hash, Role: model.RoleAdmin}))

	_, err = env.registration.Complete(*created.RegistrationToken, validRegistration())
	require.ErrorIs(t, err, ErrUserExists)

	var registrations int64
	require.NoError(t, env.db.Model(&model.AuditLog{}).Where("action = ?", "employees.register").Count(&registrations).Error)
	assert.Zero(t, registrations)
}
