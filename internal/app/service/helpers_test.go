package service

import (
	"bytes"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/internal/db"
	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/pkg/crypto"
	"github.com/wintergreen/academia-backend/pkg/pdf"
	"gorm.io/gorm"
)

var certificateNumberPattern = regexp.MustCompile(`^CERT-\d{8}-\d{4}$`)

var testAdmin = Actor{Name: "admin@academia.test", Role: model.RoleAdmin}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Notify(event notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) ofKind(kind notification.Kind) []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.Event
	for _, e := range n.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeRenderer struct {
	last pdf.CertificateData
}

func (r *fakeRenderer) Render(data pdf.CertificateData) ([]byte, error) {
	r.last = data
	return []byte("%PDF-1.3 fake"), nil
}

type testEnv struct {
	db       *gorm.DB
	notifier *recordingNotifier
	renderer *fakeRenderer
	metrics  *metrics.Metrics
	app      config.AppConfig

	employeeRepo      repository.EmployeeRepository
	establishmentRepo repository.EstablishmentRepository
	transferRepo      repository.TransferRepository
	userRepo          repository.UserRepository
	certificateRepo   repository.CertificateRepository
	resultRepo        repository.TrainingResultRepository

	issuer         *CertificateIssuer
	audit          AuditService
	auth           AuthService
	establishments EstablishmentService
	employees      EmployeeService
	registration   RegistrationService
	certificates   CertificateService
	imports        TrainingImportService
	requests       RequestService
	dashboard      DashboardService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	encryptor, err := crypto.NewEncryptor(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	env := &testEnv{
		db:       testDB,
		notifier: &recordingNotifier{},
		renderer: &fakeRenderer{},
		metrics:  metrics.NewWithRegistry(prometheus.NewRegistry()),
		app: config.AppConfig{
			TrainingCenterName:  "WinterGreen Academia",
			Qualification:       "Кальянный мастер",
			CertificateValidity: 365 * 24 * time.Hour,
			TrainingURL:         "https://training.example/course",
			PublicURL:           "https://academia.example",
			BootstrapKey:        "bootstrap-secret",
			DefaultActor:        "system",
		},
		employeeRepo:      repository.NewEmployeeRepository(testDB),
		establishmentRepo: repository.NewEstablishmentRepository(testDB),
		transferRepo:      repository.NewTransferRepository(testDB),
		userRepo:          repository.NewUserRepository(testDB),
		certificateRepo:   repository.NewCertificateRepository(testDB),
		resultRepo:        repository.NewTrainingResultRepository(testDB),
	}

	env.audit = NewAuditService(repository.NewAuditRepository(testDB))
	env.issuer = NewCertificateIssuer(env.certificateRepo, env.employeeRepo, env.app.CertificateValidity)
	env.auth = NewAuthService(testDB, env.userRepo, env.employeeRepo, env.certificateRepo, env.audit,
		config.JWTConfig{Secret: "test-jwt-secret", SessionExpiry: 168 * time.Hour}, env.app.BootstrapKey)
	env.establishments = NewEstablishmentService(testDB, env.establishmentRepo, env.audit)
	env.employees = NewEmployeeService(testDB, env.employeeRepo, env.establishmentRepo, env.transferRepo,
		env.audit, env.notifier, env.app)
	env.registration = NewRegistrationService(testDB, env.employeeRepo, env.userRepo, env.audit, encryptor,
		env.notifier, env.metrics)
	env.certificates = NewCertificateService(testDB, env.certificateRepo, env.employeeRepo, env.issuer,
		env.audit, env.notifier, env.renderer, env.metrics, env.app)
	env.imports = NewTrainingImportService(testDB, env.employeeRepo, env.resultRepo, env.issuer, env.audit,
		env.notifier, nil, env.metrics)
	env.requests = NewRequestService(testDB, repository.NewRequestRepository(testDB), env.audit)
	env.dashboard = NewDashboardService(env.establishmentRepo, env.employeeRepo, env.certificateRepo)
	return env
}

func (e *testEnv) createEstablishment(t *testing.T, name string) *model.Establishment {
	t.Helper()
	establishment, err := e.establishments.Create(testAdmin, CreateEstablishmentInput{Name: name, City: "Almaty"})
	require.NoError(t, err)
	return establishment
}

func (e *testEnv) createEmployee(t *testing.T, establishmentID, email string) *EmployeeWithLink {
	t.Helper()
	employee, err := e.employees.Create(testAdmin, CreateEmployeeInput{
		EstablishmentID: establishmentID,
		FullName:        "A. Ivanov",
		Email:           email,
	})
	require.NoError(t, err)
	return employee
}

func validRegistration() RegistrationPayload {
	iin := "990101300123"
	return RegistrationPayload{
		FullName:     "Alexey Ivanov",
		City:         "Almaty",
		Phone:        "+77010000000",
		IIN:          &iin,
		Password:     "password1",
		AcceptPolicy: true,
		AcceptOffer:  true,
		AcceptAge:    true,
	}
}

// registerEmployee creates an employee and completes their registration.
func (e *testEnv) registerEmployee(t *testing.T, establishmentID, email string) *model.Employee {
	t.Helper()
	created := e.createEmployee(t, establishmentID, email)
	require.NotNil(t, created.RegistrationToken)
	_, err := e.registration.Complete(*created.RegistrationToken, validRegistration())
	require.NoError(t, err)

	employee, err := e.employeeRepo.FindByID(created.ID)
	require.NoError(t, err)
	return employee
}

func (e *testEnv) reloadEmployee(t *testing.T, id string) *model.Employee {
	t.Helper()
	employee, err := e.employeeRepo.FindByIDUnscoped(id)
	require.NoError(t, err)
	return employee
}

// requireTokenInvariant checks that a token exists exactly while the status needs one.
func requireTokenInvariant(t *testing.T, employee *model.Employee) {
	t.Helper()
	if employee.IsArchived() {
		require.Nil(t, employee.RegistrationToken, "archived employee holds a token")
		return
	}
	require.Equal(t, employee.Status.NeedsToken(), employee.RegistrationToken != nil,
		"status %s with token present=%v", employee.Status, employee.RegistrationToken != nil)
}

// storedActive counts certificates stored as active for the employee, expired ones included.
func (e *testEnv) storedActive(t *testing.T, employeeID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Certificate{}).
		Where("employee_id = ? AND status = ?", employeeID, model.CertificateActive).
		Count(&n).Error)
	return n
}

// seedExpiredCertificate stores an active certificate whose validity ended a day ago.
func (e *testEnv) seedExpiredCertificate(t *testing.T, employee *model.Employee, number string) *model.Certificate {
	t.Helper()
	issuedAt := time.Now().AddDate(-1, 0, -1)
	certificate := &model.Certificate{
		EmployeeID:        employee.ID,
		EstablishmentID:   employee.EstablishmentID,
		CertificateNumber: number,
		Status:            model.CertificateActive,
		IssuedAt:          issuedAt,
		ValidUntil:        issuedAt.AddDate(1, 0, 0),
	}
	require.NoError(t, e.certificateRepo.Create(certificate))
	return certificate
}
