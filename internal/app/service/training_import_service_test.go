package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/pkg/sheet"
)

type stubArchiver struct {
	err   error
	files []string
}

func (a *stubArchiver) Archive(_ context.Context, filename string, _ []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.files = append(a.files, filename)
	return "imports/" + filename, nil
}

func TestClassifyTrainingStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want model.TrainingStatus
	}{
		{raw: "сдал", want: model.TrainingPassed},
		{raw: "Сдал", want: model.TrainingPassed},
		{raw: "не сдал", want: model.TrainingFailed},
		{raw: "Не сдала", want: model.TrainingFailed},
		{raw: "maybe", want: model.TrainingPending},
		{raw: "", want: model.TrainingPending},
		{raw: "   ", want: model.TrainingPending},
		{raw: "Passed", want: model.TrainingPassed},
		{raw: "FAILED", want: model.TrainingFailed},
		{raw: "not passed", want: model.TrainingFailed},
		{raw: "Пройден", want: model.TrainingPassed},
		{raw: "не пройден", want: model.TrainingFailed},
		{raw: "зачёт", want: model.TrainingPassed},
		{raw: "незачет", want: model.TrainingFailed},
		{raw: "успех", want: model.TrainingPassed},
		{raw: "true", want: model.TrainingPassed},
		{raw: "false", want: model.TrainingFailed},
		{raw: "1", want: model.TrainingPassed},
		{raw: "0", want: model.TrainingFailed},
		{raw: "10", want: model.TrainingPending},
		{raw: "yes", want: model.TrainingPassed},
		{raw: "no", want: model.TrainingFailed},
		{raw: "nobody knows", want: model.TrainingPending},
		{raw: "ok", want: model.TrainingPassed},
		{raw: "да", want: model.TrainingPassed},
		{raw: "нет", want: model.TrainingFailed},
		{raw: "in progress", want: model.TrainingPending},
		{raw: "не зачет", want: model.TrainingFailed},
		{raw: "Не зачёт", want: model.TrainingFailed},
		{raw: "not pass", want: model.TrainingFailed},
		{raw: "did not pass", want: model.TrainingFailed},
		{raw: "не прошел", want: model.TrainingFailed},
		{raw: "не прошла тест", want: model.TrainingFailed},
		{raw: "не успешно", want: model.TrainingFailed},
		{raw: "not ok", want: model.TrainingFailed},
		{raw: "прошел", want: model.TrainingPassed},
		{raw: "незачтено", want: model.TrainingFailed},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTrainingStatus(tt.raw))
		})
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{raw: "87,5", want: floatPtr(87.5)},
		{raw: "92", want: floatPtr(92)},
		{raw: " 75.25 ", want: floatPtr(75.25)},
		{raw: "80%", want: floatPtr(80)},
		{raw: "", want: nil},
		{raw: "n/a", want: nil},
		{raw: "NaN", want: nil},
		{raw: "inf", want: nil},
		{raw: "-Infinity", want: nil},
		{raw: "+Inf%", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseScore(tt.raw))
		})
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestTrainingImportService_ImportRows(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	passer := env.registerEmployee(t, acme.ID, "pass@x.com")
	failer := env.registerEmployee(t, acme.ID, "fail@x.com")
	waiter := env.registerEmployee(t, acme.ID, "wait@x.com")
	archived := env.createEmployee(t, acme.ID, "gone@x.com")
	_, err := env.employees.Archive(testAdmin, archived.ID)
	require.NoError(t, err)

	rows := []sheet.Row{
		{"E-mail": "PASS@x.com", "Результат": "сдал", "Балл": "87,5"},
		{"Email": "fail@x.com", "Status": "не сдал"},
		{"Mail": "wait@x.com", "Итог": "maybe"},
		{"Email": "nobody@x.com", "Status": "сдал"},
		{"Email": "gone@x.com", "Status": "сдал"},
		{"Name": "No Email", "Status": "сдал"},
		{"Email": "   ", "Status": "сдал"},
	}

	report, err := env.imports.ImportRows(testAdmin, "results.xlsx", rows)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Processed)
	assert.Equal(t, 3, report.Matched)
	assert.Equal(t, 1, report.CertificatesCreated)
	require.Len(t, report.Unmatched, 2)
	assert.Equal(t, "nobody@x.com", report.Unmatched[0].Email)
	assert.Equal(t, "gone@x.com", report.Unmatched[1].Email, "archived employees never match")
	require.Len(t, report.Errors, 2)
	for _, issue := range report.Errors {
		assert.Equal(t, issueMissingEmail, issue.Error)
	}
	assert.Equal(t, 6, report.Errors[0].Row)

	assert.Equal(t, model.StatusCertified, env.reloadEmployee(t, passer.ID).Status)
	assert.Equal(t, model.StatusTrainingFailed, env.reloadEmployee(t, failer.ID).Status)
	assert.Equal(t, model.StatusTrainingPending, env.reloadEmployee(t, waiter.ID).Status)

	results, err := env.imports.ListResults(passer.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.TrainingPassed, results[0].Status)
	require.NotNil(t, results[0].Score)
	assert.Equal(t, 87.5, *results[0].Score)
	assert.Equal(t, "results.xlsx", *results[0].SourceFile)
	assert.Equal(t, "сдал", results[0].RawPayload["результат"])

	certificates, err := env.certificates.List(CertificateListFilter{EmployeeID: passer.ID})
	require.NoError(t, err)
	require.Len(t, certificates, 1)
	history, err := env.certificates.History(certificates[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.ReasonImportIssue, *history[0].Reason)

	events := env.notifier.ofKind(notification.CertificateIssued)
	require.Len(t, events, 1)
	assert.Equal(t, "pass@x.com", events[0].Email)

	logs, err := env.audit.List(10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "training.import", logs[0].Action)
	assert.EqualValues(t, 7, logs[0].Metadata["processed"])
	assert.EqualValues(t, 1, logs[0].Metadata["certificatesCreated"])
}

func TestTrainingImportService_SecondPassDoesNotDuplicate(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	employee := env.registerEmployee(t, acme.ID, "a@x.com")
	rows := []sheet.Row{{"email": "a@x.com", "status": "passed"}}

	first, err := env.imports.ImportRows(testAdmin, "week1.csv", rows)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CertificatesCreated)
	assert.Empty(t, first.Errors)

	second, err := env.imports.ImportRows(testAdmin, "week1.csv", rows)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CertificatesCreated)
	assert.Equal(t, 1, second.Matched)
	require.Len(t, second.Errors, 1)
	assert.Equal(t, issueAlreadyActive, second.Errors[0].Error)
	assert.Equal(t, "a@x.com", second.Errors[0].Email)

	certificates, err := env.certificates.List(CertificateListFilter{EmployeeID: employee.ID})
	require.NoError(t, err)
	assert.Len(t, certificates, 1)

	results, err := env.imports.ListResults(employee.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2, "each pass records a training result")

	_, err = env.imports.ListResults("00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestTrainingImportService_RenewsExpiredCertificate(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	employee := env.registerEmployee(t, acme.ID, "a@x.com")
	expired := env.seedExpiredCertificate(t, employee, "CERT-20240101-1000")

	report, err := env.imports.ImportRows(testAdmin, "renewal.xlsx", []sheet.Row{{"Email": "a@x.com", "Status": "сдал"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.CertificatesCreated)
	assert.Empty(t, report.Errors)
	assert.Equal(t, int64(1), env.storedActive(t, employee.ID))

	retired, err := env.certificates.Get(expired.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificateRevoked, retired.Status)

	again, err := env.imports.ImportRows(testAdmin, "renewal.xlsx", []sheet.Row{{"Email": "a@x.com", "Status": "сдал"}})
	require.NoError(t, err)
	assert.Equal(t, 0, again.CertificatesCreated)
	assert.Equal(t, int64(1), env.storedActive(t, employee.ID))
}

func TestTrainingImportService_StoreFailureRollsBack(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	first := env.registerEmployee(t, acme.ID, "one@x.com")
	env.registerEmployee(t, acme.ID, "two@x.com")

	calls := 0
	env.issuer.numbers = func(at time.Time) (string, error) {
		calls++
		if calls > 1 {
			return "", errors.New("entropy exhausted")
		}
		return "CERT-20250101-1234", nil
	}

	_, err := env.imports.ImportRows(testAdmin, "batch.csv", []sheet.Row{
		{"email": "one@x.com", "status": "passed"},
		{"email": "two@x.com", "status": "passed"},
	})
	require.Error(t, err)

	assert.Equal(t, model.StatusRegistered, env.reloadEmployee(t, first.ID).Status)
	certificates, err := env.certificates.List(CertificateListFilter{})
	require.NoError(t, err)
	assert.Empty(t, certificates)
	results, err := env.resultRepo.ListByEmployee(first.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, env.notifier.ofKind(notification.CertificateIssued))
}

func TestTrainingImportService_Import(t *testing.T) {
	env := setupServiceTest(t)
	acme := env.createEstablishment(t, "Acme")
	env.registerEmployee(t, acme.ID, "a@x.com")
	csv := []byte("Email;Результат;Балл\na@x.com;не сдал;40,5\n")

	t.Run("archives and imports", func(t *testing.T) {
		archiver := &stubArchiver{}
		imports := NewTrainingImportService(env.db, env.employeeRepo, env.resultRepo, env.issuer, env.audit,
			env.notifier, archiver, env.metrics)

		report, err := imports.Import(context.Background(), testAdmin, "results.csv", csv)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Matched)
		assert.Equal(t, "imports/results.csv", report.ArchiveKey)
		assert.Equal(t, []string{"results.csv"}, archiver.files)
	})

	t.Run("archive failure does not abort", func(t *testing.T) {
		imports := NewTrainingImportService(env.db, env.employeeRepo, env.resultRepo, env.issuer, env.audit,
			env.notifier, &stubArchiver{err: errors.New("bucket unavailable")}, env.metrics)

		report, err := imports.Import(context.Background(), testAdmin, "results.csv", csv)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Matched)
		assert.Empty(t, report.ArchiveKey)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := env.imports.Import(context.Background(), testAdmin, "results.pdf", csv)
		assert.ErrorIs(t, err, sheet.ErrUnsupportedFormat)
	})
}
