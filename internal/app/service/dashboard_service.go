package service

import (
	"time"

	"github.com/wintergreen/academia-backend/internal/app/repository"
)

type Summary struct {
	Establishments     int64            `json:"establishments"`
	Employees          int64            `json:"employees"`
	ActiveCertificates int64            `json:"activeCertificates"`
	EmployeeStatuses   map[string]int64 `json:"employeeStatuses"`
}

type DashboardService interface {
	Summary() (*Summary, error)
}

type dashboardService struct {
	establishmentRepo repository.EstablishmentRepository
	employeeRepo      repository.EmployeeRepository
	certificateRepo   repository.CertificateRepository
}

func NewDashboardService(
	establishmentRepo repository.EstablishmentRepository,
	employeeRepo repository.EmployeeRepository,
	certificateRepo repository.CertificateRepository,
) DashboardService {
	return &dashboardService{
		establishmentRepo: establishmentRepo,
		employeeRepo:      employeeRepo,
		certificateRepo:   certificateRepo,
	}
}

// Summary counts archived rows out; certificates count only while unexpired.
func (s *dashboardService) Summary() (*Summary, error) {
	establishments, err := s.establishmentRepo.CountActive()
	if err != nil {
		return nil, err
	}
	employees, err := s.employeeRepo.CountActive()
	if err != nil {
		return nil, err
	}
	certificates, err := s.certificateRepo.CountActive(time.Now())
	if err != nil {
		return nil, err
	}
	counts, err := s.employeeRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]int64, len(counts))
	for _, c := range counts {
		statuses[string(c.Status)] = c.Count
	}
	return &Summary{
		Establishments:     establishments,
		Employees:          employees,
		ActiveCertificates: certificates,
		EmployeeStatuses:   statuses,
	}, nil
}
