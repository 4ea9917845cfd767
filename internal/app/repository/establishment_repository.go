package repository

import (
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

type EstablishmentRepository interface {
	WithTx(tx *gorm.DB) EstablishmentRepository
	Create(establishment *model.Establishment) error
	FindByID(id string) (*model.Establishment, error)
	FindByIDUnscoped(id string) (*model.Establishment, error)
	Update(establishment *model.Establishment) error
	Archive(establishment *model.Establishment) error
	Restore(establishment *model.Establishment) error
	FindActiveIDs(ids []string) ([]string, error)
	ListWithCounts(includeArchived bool) ([]model.EstablishmentSummary, error)
	CountActive() (int64, error)
}

type establishmentRepository struct {
	db *gorm.DB
}

func NewEstablishmentRepository(db *gorm.DB) EstablishmentRepository {
	return &establishmentRepository{db: db}
}

func (r *establishmentRepository) WithTx(tx *gorm.DB) EstablishmentRepository {
	return &establishmentRepository{db: tx}
}

func (r *establishmentRepository) Create(establishment *model.Establishment) error {
	logger.Debug("Creating establishment in database", map[string]interface{}{
		"name": establishment.Name,
	})

	if err := r.db.Create(establishment).Error; err != nil {
		logger.Error("Failed to create establishment in database", err, map[string]interface{}{
			"name": establishment.Name,
		})
		return err
	}

	logger.Debug("Establishment created in database", map[string]interface{}{
		"establishment_id": establishment.ID,
	})
	return nil
}

// FindByID excludes archived establishments.
func (r *establishmentRepository) FindByID(id string) (*model.Establishment, error) {
	var establishment model.Establishment
	if err := r.db.Where("id = ?", id).First(&establishment).Error; err != nil {
		if !IsNotFound(err) {
			logger.Error("Failed to find establishment by ID in database", err, map[string]interface{}{
				"establishment_id": id,
			})
		}
		return nil, err
	}
	return &establishment, nil
}

func (r *establishmentRepository) FindByIDUnscoped(id string) (*model.Establishment, error) {
	var establishment model.Establishment
	if err := r.db.Unscoped().Where("id = ?", id).First(&establishment).Error; err != nil {
		if !IsNotFound(err) {
			logger.Error("Failed to find establishment by ID in database", err, map[string]interface{}{
				"establishment_id": id,
				"unscoped":         true,
			})
		}
		return nil, err
	}
	return &establishment, nil
}

func (r *establishmentRepository) Update(establishment *model.Establishment) error {
	logger.Debug("Updating establishment in database", map[string]interface{}{
		"establishment_id": establishment.ID,
	})

	err := r.db.Unscoped().Model(establishment).
		Select("name", "city", "representative", "representative_phone", "address").
		Updates(establishment).Error
	if err != nil {
		logger.Error("Failed to update establishment in database", err, map[string]interface{}{
			"establishment_id": establishment.ID,
		})
		return err
	}
	return nil
}

func (r *establishmentRepository) Archive(establishment *model.Establishment) error {
	logger.Debug("Archiving establishment in database", map[string]interface{}{
		"establishment_id": establishment.ID,
	})

	if err := r.db.Delete(establishment).Error; err != nil {
		logger.Error("Failed to archive establishment in database", err, map[string]interface{}{
			"establishment_id": establishment.ID,
		})
		return err
	}
	return r.db.Unscoped().Where("id = ?", establishment.ID).First(establishment).Error
}

func (r *establishmentRepository) Restore(establishment *model.Establishment) error {
	logger.Debug("Restoring establishment in database", map[string]interface{}{
		"establishment_id": establishment.ID,
	})

	err := r.db.Unscoped().Model(establishment).Update("deleted_at", nil).Error
	if err != nil {
		logger.Error("Failed to restore establishment in database", err, map[string]interface{}{
			"establishment_id": establishment.ID,
		})
		return err
	}
	establishment.DeletedAt = gorm.DeletedAt{}
	return nil
}

// FindActiveIDs returns the subset of ids that name non-archived establishments.
func (r *establishmentRepository) FindActiveIDs(ids []string) ([]string, error) {
	var found []string
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.Model(&model.Establishment{}).Where("id IN ?", ids).Pluck("id", &found).Error
	if err != nil {
		logger.Error("Failed to check establishments in database", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}
	return found, nil
}

func (r *establishmentRepository) ListWithCounts(includeArchived bool) ([]model.EstablishmentSummary, error) {
	logger.Debug("Listing establishments with counts", map[string]interface{}{
		"include_archived": includeArchived,
	})

	query := r.db.Model(&model.Establishment{})
	if includeArchived {
		query = query.Unscoped()
	}

	var rows []model.EstablishmentSummary
	err := query.Select(`establishments.*,
		(SELECT COUNT(*) FROM employees WHERE employees.establishment_id = establishments.id AND employees.deleted_at IS NULL) AS employees_count,
		(SELECT COUNT(*) FROM certificates WHERE certificates.establishment_id = establishments.id) AS certificates_count`).
		Order("establishments.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to list establishments", err)
		return nil, err
	}

	logger.Debug("Establishments listed", map[string]interface{}{
		"count": len(rows),
	})
	return rows, nil
}

func (r *establishmentRepository) CountActive() (int64, error) {
	var count int64
	if err := r.db.Model(&model.Establishment{}).Count(&count).Error; err != nil {
		logger.Error("Failed to count establishments", err)
		return 0, err
	}
	return count, nil
}
