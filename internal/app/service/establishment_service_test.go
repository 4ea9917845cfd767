package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstablishmentService_Create(t *testing.T) {
	env := setupServiceTest(t)

	created, err := env.establishments.Create(testAdmin, CreateEstablishmentInput{Name: "  Acme  ", City: "Almaty"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Acme", created.Name)
	require.NotNil(t, created.City)
	assert.Equal(t, "Almaty", *created.City)

	_, err = env.establishments.Create(testAdmin, CreateEstablishmentInput{Name: "   "})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, "name")

	logs, err := env.audit.List(0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "establishments.create", logs[0].Action)
	assert.Equal(t, testAdmin.Name, logs[0].Actor)
}

func TestEstablishmentService_Update(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")

	address := "Abay 1"
	name := "Acme Lounge"
	updated, err := env.establishments.Update(testAdmin, acme.ID, UpdateEstablishmentInput{Name: &name, Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "Acme Lounge", updated.Name)
	require.NotNil(t, updated.Address)
	assert.Equal(t, "Abay 1", *updated.Address)
	require.NotNil(t, updated.City, "untouched fields survive")
	assert.Equal(t, "Almaty", *updated.City)

	_, err = env.establishments.Update(testAdmin, "00000000-0000-0000-0000-000000000000", UpdateEstablishmentInput{Name: &name})
	assert.ErrorIs(t, err, ErrEstablishmentNotFound)
}

func TestEstablishmentService_ArchiveRestore(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")

	tests := []struct {
		name    string
		op      func() error
		wantErr error
	}{
		{name: "restore active", op: func() error { _, err := env.establishments.Restore(testAdmin, acme.ID); return err }, wantErr: ErrEstablishmentAlreadyActive},
		{name: "archive", op: func() error { _, err := env.establishments.Archive(testAdmin, acme.ID); return err }},
		{name: "archive twice", op: func() error { _, err := env.establishments.Archive(testAdmin, acme.ID); return err }, wantErr: ErrEstablishmentAlreadyArchived},
		{name: "restore", op: func() error { _, err := env.establishments.Restore(testAdmin, acme.ID); return err }},
		{name: "archive missing", op: func() error {
			_, err := env.establishments.Archive(testAdmin, "00000000-0000-0000-0000-000000000000")
			return err
		}, wantErr: ErrEstablishmentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEstablishmentService_ArchivedBlocksEmployees(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	_, err := env.establishments.Archive(testAdmin, acme.ID)
	require.NoError(t, err)

	_, err = env.employees.Create(testAdmin, CreateEmployeeInput{EstablishmentID: acme.ID, FullName: "A. Ivanov", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrEstablishmentArchived)

	found, err := env.establishments.Get(acme.ID)
	require.NoError(t, err, "archived establishments stay readable")
	assert.True(t, found.IsArchived())
}

func TestEstablishmentService_ListCounts(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	other := env.createEstablishment(t, "Other")

	certified := env.registerEmployee(t, acme.ID, "a@x.com")
	_, err := env.certificates.Issue(testAdmin, certified.ID, nil)
	require.NoError(t, err)
	env.createEmployee(t, acme.ID, "b@x.com")
	gone := env.createEmployee(t, acme.ID, "c@x.com")
	_, err = env.employees.Archive(testAdmin, gone.ID)
	require.NoError(t, err)

	_, err = env.establishments.Archive(testAdmin, other.ID)
	require.NoError(t, err)

	active, err := env.establishments.List(false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, acme.ID, active[0].ID)
	assert.Equal(t, int64(2), active[0].EmployeesCount, "archived employees are not counted")
	assert.Equal(t, int64(1), active[0].CertificatesCount)

	all, err := env.establishments.List(true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
