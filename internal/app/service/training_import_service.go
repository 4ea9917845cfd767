package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/sheet"
	"gorm.io/gorm"
)

var (
	emailKeys  = []string{"email", "mail"}
	statusKeys = []string{"status", "result", "outcome", "passed", "результат", "итог", "статус", "пройден"}
	scoreKeys  = []string{"score", "resultscore", "scorepercent", "балл", "процент"}
)

const (
	issueMissingEmail  = "Missing email"
	issueAlreadyActive = "Active certificate already exists"
)

type matchMode int

const (
	matchContains matchMode = iota
	matchExact
)

type statusRule struct {
	pattern string
	mode    matchMode
	status  model.TrainingStatus
}

// negationPrefixes mark a failure whatever positive word follows them.
var negationPrefixes = []string{"не ", "не-", "not ", "did not ", "didn't ", "no "}

// trainingStatusRules is evaluated top to bottom; the first match wins.
// Negated phrases come before the positive words they contain.
var trainingStatusRules = []statusRule{
	{"не сдал", matchContains, model.TrainingFailed},
	{"не зачет", matchContains, model.TrainingFailed},
	{"не прош", matchContains, model.TrainingFailed},
	{"not pass", matchContains, model.TrainingFailed},
	{"незачт", matchContains, model.TrainingFailed},
	{"не пройден", matchContains, model.TrainingFailed},
	{"незачет", matchContains, model.TrainingFailed},
	{"not passed", matchContains, model.TrainingFailed},
	{"failed", matchContains, model.TrainingFailed},
	{"fail", matchContains, model.TrainingFailed},
	{"false", matchContains, model.TrainingFailed},
	{"ошибка", matchContains, model.TrainingFailed},

	{"passed", matchContains, model.TrainingPassed},
	{"pass", matchContains, model.TrainingPassed},
	{"true", matchContains, model.TrainingPassed},
	{"сдал", matchContains, model.TrainingPassed},
	{"успех", matchContains, model.TrainingPassed},
	{"пройден", matchContains, model.TrainingPassed},
	{"зачет", matchContains, model.TrainingPassed},
	{"прошел", matchContains, model.TrainingPassed},
	{"прошла", matchContains, model.TrainingPassed},

	{"1", matchExact, model.TrainingPassed},
	{"yes", matchExact, model.TrainingPassed},
	{"ok", matchExact, model.TrainingPassed},
	{"да", matchExact, model.TrainingPassed},
	{"0", matchExact, model.TrainingFailed},
	{"no", matchExact, model.TrainingFailed},
	{"нет", matchExact, model.TrainingFailed},
}

// ClassifyTrainingStatus maps free text from a results sheet to a training
// status. Anything unrecognised is pending.
func ClassifyTrainingStatus(raw string) model.TrainingStatus {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return model.TrainingPending
	}
	value = strings.ReplaceAll(value, "ё", "е")
	for _, prefix := range negationPrefixes {
		if strings.HasPrefix(value, prefix) {
			return model.TrainingFailed
		}
	}
	for _, rule := range trainingStatusRules {
		switch rule.mode {
		case matchExact:
			if value == rule.pattern {
				return rule.status
			}
		default:
			if strings.Contains(value, rule.pattern) {
				return rule.status
			}
		}
	}
	return model.TrainingPending
}

// parseScore accepts a comma as decimal separator and yields nil for non-numbers.
func parseScore(raw string) *float64 {
	value := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if value == "" {
		return nil
	}
	score, err := strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return nil
	}
	return &score
}

// FileArchiver keeps a copy of an uploaded import file.
type FileArchiver interface {
	Archive(ctx context.Context, filename string, data []byte) (string, error)
}

// ImportIssue describes a row that was skipped. Row is 1-based over data rows.
type ImportIssue struct {
	Row   int    `json:"row"`
	Email string `json:"email,omitempty"`
	Error string `json:"error,omitempty"`
}

type ImportReport struct {
	Processed           int           `json:"processed"`
	Matched             int           `json:"matched"`
	CertificatesCreated int           `json:"certificatesCreated"`
	Unmatched           []ImportIssue `json:"unmatched"`
	Errors              []ImportIssue `json:"errors"`
	ArchiveKey          string        `json:"archive_key,omitempty"`
}

type TrainingImportService interface {
	Import(ctx context.Context, actor Actor, filename string, data []byte) (*ImportReport, error)
	ImportRows(actor Actor, filename string, rows []sheet.Row) (*ImportReport, error)
	ListResults(employeeID string) ([]model.TrainingResult, error)
}

type trainingImportService struct {
	db           *gorm.DB
	employeeRepo repository.EmployeeRepository
	resultRepo   repository.TrainingResultRepository
	issuer       *CertificateIssuer
	audit        AuditService
	notifier     notification.Notifier
	archiver     FileArchiver
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewTrainingImportService(
	db *gorm.DB,
	employeeRepo repository.EmployeeRepository,
	resultRepo repository.TrainingResultRepository,
	issuer *CertificateIssuer,
	audit AuditService,
	notifier notification.Notifier,
	archiver FileArchiver,
	m *metrics.Metrics,
) TrainingImportService {
	return &trainingImportService{
		db:           db,
		employeeRepo: employeeRepo,
		resultRepo:   resultRepo,
		issuer:       issuer,
		audit:        audit,
		notifier:     notifier,
		archiver:     archiver,
		metrics:      m,
		now:          time.Now,
	}
}

// ListResults returns every imported result for the employee, newest first.
// Archived employees keep their history.
func (s *trainingImportService) ListResults(employeeID string) ([]model.TrainingResult, error) {
	if _, err := s.employeeRepo.FindByIDUnscoped(employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return s.resultRepo.ListByEmployee(employeeID)
}

// Import parses the file and reconciles it. An unsupported format rejects the
// whole file before anything is written.
func (s *trainingImportService) Import(ctx context.Context, actor Actor, filename string, data []byte) (*ImportReport, error) {
	rows, err := sheet.Parse(filename, data)
	if err != nil {
		logger.Warn("Training import file rejected", map[string]interface{}{
			"filename": filename,
			"error":    err.Error(),
		})
		return nil, err
	}

	var archiveKey string
	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, filename, data)
		if err != nil {
			logger.Warn("Failed to archive training import file", map[string]interface{}{
				"filename": filename,
				"error":    err.Error(),
			})
		}
		archiveKey = key
	}

	report, err := s.ImportRows(actor, filename, rows)
	if err != nil {
		return nil, err
	}
	report.ArchiveKey = archiveKey
	return report, nil
}

type issuedNotice struct {
	employee    *model.Employee
	certificate *model.Certificate
}

// ImportRows applies every row in one transaction. Data problems are reported
// per row; a store failure rolls back the whole batch.
func (s *trainingImportService) ImportRows(actor Actor, filename string, rows []sheet.Row) (*ImportReport, error) {
	report := &ImportReport{
		Processed: len(rows),
		Unmatched: []ImportIssue{},
		Errors:    []ImportIssue{},
	}
	var issued []issuedNotice

	err := s.db.Transaction(func(tx *gorm.DB) error {
		employeeRepo := s.employeeRepo.WithTx(tx)
		resultRepo := s.resultRepo.WithTx(tx)

		for i, raw := range rows {
			index := i + 1
			row := raw.Normalized()

			email, _ := row.Pick(emailKeys...)
			email = normalizeEmail(email)
			if email == "" {
				report.Errors = append(report.Errors, ImportIssue{Row: index, Error: issueMissingEmail})
				continue
			}

			employee, err := employeeRepo.FindActiveByEmailForUpdate(email)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					report.Unmatched = append(report.Unmatched, ImportIssue{Row: index, Email: email})
					continue
				}
				return err
			}

			statusRaw, _ := row.Pick(statusKeys...)
			status := ClassifyTrainingStatus(statusRaw)
			scoreRaw, _ := row.Pick(scoreKeys...)

			payload := make(model.JSONMap, len(row))
			for k, v := range row {
				payload[k] = v
			}
			if err := resultRepo.Create(&model.TrainingResult{
				EmployeeID: employee.ID,
				Status:     status,
				Score:      parseScore(scoreRaw),
				SourceFile: model.StringPtr(filename),
				RawPayload: payload,
			}); err != nil {
				return err
			}
			report.Matched++

			switch status {
			case model.TrainingPassed:
				issuedAt := s.now()
				active, err := s.issuer.claimActiveSlot(tx, employee.ID, actor, issuedAt)
				if err != nil {
					return err
				}
				if active {
					report.Errors = append(report.Errors, ImportIssue{Row: index, Email: email, Error: issueAlreadyActive})
					continue
				}
				certificate, err := s.issuer.IssueInTx(tx, employee, actor, issuedAt,
					s.issuer.DefaultValidUntil(issuedAt), model.ReasonImportIssue)
				if err != nil {
					return err
				}
				report.CertificatesCreated++
				issued = append(issued, issuedNotice{employee: employee, certificate: certificate})
			case model.TrainingFailed:
				if err := s.moveTo(employeeRepo, employee, model.StatusTrainingFailed); err != nil {
					return err
				}
			default:
				if err := s.moveTo(employeeRepo, employee, model.StatusTrainingPending); err != nil {
					return err
				}
			}
		}

		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "training.import",
			EntityType: "training",
			Metadata: map[string]interface{}{
				"processed":           report.Processed,
				"matched":             report.Matched,
				"certificatesCreated": report.CertificatesCreated,
				"source_file":         filename,
			},
		})
	})
	if err != nil {
		logger.Error("Training import rolled back", err, map[string]interface{}{
			"filename": filename,
			"rows":     len(rows),
		})
		return nil, fmt.Errorf("failed to import training results: %w", err)
	}

	s.metrics.ImportRows("matched", report.Matched)
	s.metrics.ImportRows("unmatched", len(report.Unmatched))
	s.metrics.ImportRows("error", len(report.Errors))
	for _, notice := range issued {
		s.metrics.CertificateIssued("import")
		s.notifier.Notify(notification.Event{
			Kind:              notification.CertificateIssued,
			Email:             notice.employee.Email,
			FullName:          notice.employee.FullName,
			CertificateNumber: notice.certificate.CertificateNumber,
			ValidUntil:        notice.certificate.ValidUntil,
		})
	}

	logger.Info("Training import completed", map[string]interface{}{
		"filename":             filename,
		"processed":            report.Processed,
		"matched":              report.Matched,
		"certificates_created": report.CertificatesCreated,
		"unmatched":            len(report.Unmatched),
		"errors":               len(report.Errors),
	})
	return report, nil
}

func (s *trainingImportService) moveTo(repo repository.EmployeeRepository, employee *model.Employee, status model.EmployeeStatus) error {
	if err := employee.ApplyStatus(status); err != nil {
		return err
	}
	return repo.Update(employee)
}
