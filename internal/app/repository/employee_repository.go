package repository

import (
	"strings"

	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmployeeFilter narrows employee listings. Empty fields match everything.
type EmployeeFilter struct {
	EstablishmentID string
	Status          model.EmployeeStatus
	Search          string
	IncludeArchived bool
}

// StatusCount is one bucket of the per-status breakdown.
type StatusCount struct {
	Status model.EmployeeStatus `json:"status"`
	Count  int64                `json:"count"`
}

type EmployeeRepository interface {
	WithTx(tx *gorm.DB) EmployeeRepository
	Create(employee *model.Employee) error
	FindByID(id string) (*model.Employee, error)
	FindByIDUnscoped(id string) (*model.Employee, error)
	FindByIDForUpdate(id string) (*model.Employee, error)
	FindActiveByEmailForUpdate(email string) (*model.Employee, error)
	FindByToken(token string) (*model.Employee, error)
	FindByTokenForUpdate(token string) (*model.Employee, error)
	Update(employee *model.Employee) error
	Archive(employee *model.Employee) error
	Restore(employee *model.Employee) error
	List(filter EmployeeFilter) ([]model.Employee, error)
	CountActive() (int64, error)
	CountByStatus() ([]StatusCount, error)
}

type employeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) WithTx(tx *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: tx}
}

// withEstablishment preloads the owning establishment even when it is archived.
func withEstablishment(db *gorm.DB) *gorm.DB {
	return db.Preload("Establishment", func(tx *gorm.DB) *gorm.DB {
		return tx.Unscoped()
	})
}

func (r *employeeRepository) Create(employee *model.Employee) error {
	logger.Debug("Creating employee in database", map[string]interface{}{
		"establishment_id": employee.EstablishmentID,
	})

	if err := r.db.Create(employee).Error; err != nil {
		logger.Error("Failed to create employee in database", err, map[string]interface{}{
			"establishment_id": employee.EstablishmentID,
		})
		return err
	}

	logger.Debug("Employee created in database", map[string]interface{}{
		"employee_id": employee.ID,
	})
	return nil
}

func (r *employeeRepository) FindByID(id string) (*model.Employee, error) {
	return r.findOne(withEstablishment(r.db).Where("employees.id = ?", id), "id")
}

func (r *employeeRepository) FindByIDUnscoped(id string) (*model.Employee, error) {
	return r.findOne(withEstablishment(r.db.Unscoped()).Where("employees.id = ?", id), "id")
}

// FindByIDForUpdate locks the row, archived or not, until the transaction ends.
func (r *employeeRepository) FindByIDForUpdate(id string) (*model.Employee, error) {
	query := r.db.Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("employees.id = ?", id)
	return r.findOne(query, "id")
}

func (r *employeeRepository) FindActiveByEmailForUpdate(email string) (*model.Employee, error) {
	query := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("LOWER(employees.email) = ?", strings.ToLower(strings.TrimSpace(email)))
	return r.findOne(query, "email")
}

// FindByToken only resolves employees whose establishment is also active.
func (r *employeeRepository) FindByToken(token string) (*model.Employee, error) {
	return r.findOne(r.tokenQuery(token), "token")
}

func (r *employeeRepository) FindByTokenForUpdate(token string) (*model.Employee, error) {
	query := r.tokenQuery(token).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "employees"},
	})
	return r.findOne(query, "token")
}

func (r *employeeRepository) tokenQuery(token string) *gorm.DB {
	return withEstablishment(r.db).
		Joins("JOIN establishments ON establishments.id = employees.establishment_id AND establishments.deleted_at IS NULL").
		Where("employees.registration_token = ?", token)
}

// findOne never logs the lookup value; tokens and emails stay out of the log.
func (r *employeeRepository) findOne(query *gorm.DB, by string) (*model.Employee, error) {
	var employee model.Employee
	if err := query.First(&employee).Error; err != nil {
		if !IsNotFound(err) {
			logger.Error("Failed to find employee in database", err, map[string]interface{}{
				"by": by,
			})
		}
		return nil, err
	}
	return &employee, nil
}

// Update writes every mutable column, including nil token and zero values.
func (r *employeeRepository) Update(employee *model.Employee) error {
	logger.Debug("Updating employee in database", map[string]interface{}{
		"employee_id": employee.ID,
		"status":      employee.Status,
	})

	err := r.db.Model(employee).
		Select("establishment_id", "full_name", "email", "city", "phone", "iin_encrypted",
			"iin_last4", "status", "registration_token", "registered_at").
		Updates(employee).Error
	if err != nil {
		logger.Error("Failed to update employee in database", err, map[string]interface{}{
			"employee_id": employee.ID,
		})
		return err
	}
	return nil
}

func (r *employeeRepository) Archive(employee *model.Employee) error {
	logger.Debug("Archiving employee in database", map[string]interface{}{
		"employee_id": employee.ID,
	})

	employee.MarkArchived()
	if err := r.db.Model(employee).Update("registration_token", nil).Error; err != nil {
		logger.Error("Failed to clear registration token", err, map[string]interface{}{
			"employee_id": employee.ID,
		})
		return err
	}
	if err := r.db.Delete(employee).Error; err != nil {
		logger.Error("Failed to archive employee in database", err, map[string]interface{}{
			"employee_id": employee.ID,
		})
		return err
	}
	return nil
}

func (r *employeeRepository) Restore(employee *model.Employee) error {
	logger.Debug("Restoring employee in database", map[string]interface{}{
		"employee_id":      employee.ID,
		"establishment_id": employee.EstablishmentID,
	})

	err := r.db.Unscoped().Model(employee).Updates(map[string]interface{}{
		"deleted_at":         nil,
		"establishment_id":   employee.EstablishmentID,
		"registration_token": employee.RegistrationToken,
	}).Error
	if err != nil {
		logger.Error("Failed to restore employee in database", err, map[string]interface{}{
			"employee_id": employee.ID,
		})
		return err
	}
	employee.DeletedAt = gorm.DeletedAt{}
	return nil
}

func (r *employeeRepository) List(filter EmployeeFilter) ([]model.Employee, error) {
	logger.Debug("Listing employees", map[string]interface{}{
		"establishment_id": filter.EstablishmentID,
		"status":           filter.Status,
		"include_archived": filter.IncludeArchived,
	})

	query := withEstablishment(r.db.Model(&model.Employee{}))
	if filter.IncludeArchived {
		query = query.Unscoped()
	}
	if filter.EstablishmentID != "" {
		query = query.Where("employees.establishment_id = ?", filter.EstablishmentID)
	}
	if filter.Status != "" {
		query = query.Where("employees.status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(employees.full_name) LIKE ? OR LOWER(employees.email) LIKE ?)", like, like)
	}

	var employees []model.Employee
	if err := query.Order("employees.created_at DESC").Find(&employees).Error; err != nil {
		logger.Error("Failed to list employees", err)
		return nil, err
	}
	return employees, nil
}

func (r *employeeRepository) CountActive() (int64, error) {
	var count int64
	if err := r.db.Model(&model.Employee{}).Count(&count).Error; err != nil {
		logger.Error("Failed to count employees", err)
		return 0, err
	}
	return count, nil
}

func (r *employeeRepository) CountByStatus() ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.Model(&model.Employee{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&counts).Error
	if err != nil {
		logger.Error("Failed to count employees by status", err)
		return nil, err
	}
	return counts, nil
}
