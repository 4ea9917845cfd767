package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/pkg/util"
)

func TestRegistrationService_Lookup(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	created := env.createEmployee(t, acme.ID, "a@x.com")

	info, err := env.registration.Lookup(*created.RegistrationToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, info.EmployeeID)
	assert.Equal(t, "a@x.com", info.Email)
	assert.Equal(t, ModeRegistered, info.Mode)
	assert.Equal(t, "Acme", info.EstablishmentName)
	require.NotNil(t, info.EstablishmentCity)
	assert.Equal(t, "Almaty", *info.EstablishmentCity)

	_, err = env.registration.Lookup("deadbeef")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestRegistrationService_LookupHidesArchivedEstablishment(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	created := env.createEmployee(t, acme.ID, "a@x.com")
	_, err := env.establishments.Archive(testAdmin, acme.ID)
	require.NoError(t, err)

	_, err = env.registration.Lookup(*created.RegistrationToken)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	_, err = env.registration.Complete(*created.RegistrationToken, validRegistration())
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestRegistrationService_Complete(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	created := env.createEmployee(t, acme.ID, "a@x.com")
	token := *created.RegistrationToken

	outcome, err := env.registration.Complete(token, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, ModeRegistered, outcome.Mode)
	assert.Equal(t, created.ID, outcome.EmployeeID)

	employee := env.reloadEmployee(t, created.ID)
	assert.Equal(t, model.StatusRegistered, employee.Status)
	assert.Nil(t, employee.RegistrationToken)
	assert.NotNil(t, employee.RegisteredAt)
	assert.Equal(t, "Alexey Ivanov", employee.FullName)
	require.NotNil(t, employee.IINLast4)
	assert.Equal(t, "0123", *employee.IINLast4)
	require.NotNil(t, employee.IINEncrypted)
	assert.NotContains(t, *employee.IINEncrypted, "990101300123")

	user, err := env.userRepo.FindByEmail("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleEmployee, user.Role)
	require.NotNil(t, user.EmployeeID)
	assert.Equal(t, created.ID, *user.EmployeeID)
	assert.True(t, util.VerifyPassword(user.PasswordHash, "password1"))

	events := env.notifier.ofKind(notification.RegistrationCompleted)
	require.Len(t, events, 1)
	assert.Equal(t, "a@x.com", events[0].Email)

	_, err = env.registration.Complete(token, validRegistration())
	assert.ErrorIs(t, err, ErrRegistrationNotFound, "a consumed token is not found")
}

func TestRegistrationService_CompleteValidation(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	created := env.createEmployee(t, acme.ID, "a@x.com")

	tests := []struct {
		name   string
		mutate func(p *RegistrationPayload)
		field  string
	}{
		{name: "short name", mutate: func(p *RegistrationPayload) { p.FullName = "A" }, field: "full_name"},
		{name: "missing city", mutate: func(p *RegistrationPayload) { p.City = "  " }, field: "city"},
		{name: "short phone", mutate: func(p *RegistrationPayload) { p.Phone = "123" }, field: "phone"},
		{name: "short password", mutate: func(p *RegistrationPayload) { p.Password = "short" }, field: "password"},
		{name: "policy not accepted", mutate: func(p *RegistrationPayload) { p.AcceptPolicy = false }, field: "accept_policy"},
		{name: "age not confirmed", mutate: func(p *RegistrationPayload) { p.AcceptAge = false }, field: "accept_age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validRegistration()
			tt.mutate(&payload)

			_, err := env.registration.Complete(*created.RegistrationToken, payload)
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Contains(t, validationErr.Fields, tt.field)

			employee := env.reloadEmployee(t, created.ID)
			assert.Equal(t, model.StatusPendingRegistration, employee.Status)
			assert.NotNil(t, employee.RegistrationToken)
		})
	}
}

func TestRegistrationService_UserExists(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	created := env.createEmployee(t, acme.ID, "a@x.com")

	hash, err := util.HashPassword("password1")
	require.NoError(t, err)
	require.NoError(t, env.userRepo.Create(&model.User{Email: "a@x.com", PasswordHash: hash, Role: model.RoleAdmin}))

	_, err = env.registration.Complete(*created.RegistrationToken, validRegistration())
	assert.ErrorIs(t, err, ErrUserExists)

	employee := env.reloadEmployee(t, created.ID)
	assert.Equal(t, model.StatusPendingRegistration, employee.Status)
	assert.Equal(t, created.RegistrationToken, employee.RegistrationToken)
	assert.Equal(t, "A. Ivanov", employee.FullName)
}

func TestRegistrationService_PasswordResetLeavesProfileUntouched(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	registered := env.registerEmployee(t, acme.ID, "a@x.com")

	reset := model.StatusResetPassword
	updated, err := env.employees.Update(testAdmin, registered.ID, UpdateEmployeeInput{Status: &reset})
	require.NoError(t, err)
	require.NotNil(t, updated.RegistrationToken)
	token := *updated.RegistrationToken

	info, err := env.registration.Lookup(token)
	require.NoError(t, err)
	assert.Equal(t, ModePasswordReset, info.Mode)

	before := env.reloadEmployee(t, registered.ID)
	outcome, err := env.registration.Complete(token, RegistrationPayload{
		FullName:     "Someone Else",
		City:         "Astana",
		Password:     "new-password",
		AcceptPolicy: true,
		AcceptOffer:  true,
		AcceptAge:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, ModePasswordReset, outcome.Mode)

	after := env.reloadEmployee(t, registered.ID)
	assert.Equal(t, model.StatusRegistered, after.Status)
	assert.Nil(t, after.RegistrationToken)
	assert.Equal(t, before.FullName, after.FullName)
	assert.Equal(t, before.City, after.City)
	assert.Equal(t, before.Phone, after.Phone)
	assert.Equal(t, before.IINEncrypted, after.IINEncrypted)
	assert.Equal(t, before.IINLast4, after.IINLast4)

	user, err := env.userRepo.FindByEmail("a@x.com")
	require.NoError(t, err)
	assert.True(t, util.VerifyPassword(user.PasswordHash, "new-password"))
	assert.False(t, util.VerifyPassword(user.PasswordHash, "password1"))

	var users int64
	require.NoError(t, env.db.Model(&model.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
	assert.Len(t, env.notifier.ofKind(notification.RegistrationCompleted), 1, "reset sends no confirmation")
}

func TestRegistrationService_ResetWithoutCredentialRegisters(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	created := env.createEmployee(t, acme.ID, "a@x.com")

	reset := model.StatusResetPassword
	updated, err := env.employees.Update(testAdmin, created.ID, UpdateEmployeeInput{Status: &reset})
	require.NoError(t, err)

	_, err = env.registration.Complete(*updated.RegistrationToken, RegistrationPayload{
		Password:     "password1",
		AcceptPolicy: true,
		AcceptOffer:  true,
		AcceptAge:    true,
	})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "full payload is required without a credential")

	outcome, err := env.registration.Complete(*updated.RegistrationToken, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, ModeRegistered, outcome.Mode)

	_, err = env.userRepo.FindByEmail("a@x.com")
	assert.NoError(t, err)
}

func TestRegistrationService_ConcurrentCompletion(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	created := env.createEmployee(t, acme.ID, "a@x.com")
	token := *created.RegistrationToken

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.registration.Complete(token, validRegistration())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrRegistrationNotFound)
	}
	assert.Equal(t, 1, succeeded)

	var users int64
	require.NoError(t, env.db.Model(&model.User{}).Where("email = ?", "a@x.com").Count(&users).Error)
	assert.Equal(t, int64(1), users)
}
