package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/types"
)

type ModuleProgressRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ModuleProgress) ([]*types.ModuleProgress, error)
	GetByEnrollmentIDs(ctx context.Context, tx *gorm.DB, enrollmentIDs []uuid.UUID) ([]*types.ModuleProgress, error)
	Exists(ctx context.Context, tx *gorm.DB, enrollmentID, moduleID uuid.UUID) (bool, error)
	CountByEnrollmentID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
}

type moduleProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleProgressRepo(db *gorm.DB, baseLog *logger.Logger) ModuleProgressRepo {
	return &moduleProgressRepo{db: db, log: baseLog.With("repo", "ModuleProgressRepo")}
}

func (r *moduleProgressRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ModuleProgress) ([]*types.ModuleProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.ModuleProgress{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *moduleProgressRepo) GetByEnrollmentIDs(ctx context.Context, tx *gorm.DB, enrollmentIDs []uuid.UUID) ([]*types.ModuleProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ModuleProgress
	if len(enrollmentIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("enrollment_id IN ?", enrollmentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *moduleProgressRepo) Exists(ctx context.Context, tx *gorm.DB, enrollmentID, moduleID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ModuleProgress{}).
		Where("enrollment_id = ? AND module_id = ?", enrollmentID, moduleID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *moduleProgressRepo) CountByEnrollmentID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ModuleProgress{}).
		Where("enrollment_id = ?", enrollmentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
