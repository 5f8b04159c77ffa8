package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/types"
)

type KGEntityFilter struct {
	Query  string
	Type   string
	Limit  int
	Offset int
}

type KGEntityRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entities []*types.KGEntity) ([]*types.KGEntity, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.KGEntity, error)
	List(ctx context.Context, tx *gorm.DB, filter KGEntityFilter) ([]*types.KGEntity, error)
}

type kgEntityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKGEntityRepo(db *gorm.DB, baseLog *logger.Logger) KGEntityRepo {
	return &kgEntityRepo{db: db, log: baseLog.With("repo", "KGEntityRepo")}
}

func (r *kgEntityRepo) Create(ctx context.Context, tx *gorm.DB, entities []*types.KGEntity) ([]*types.KGEntity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entities) == 0 {
		return []*types.KGEntity{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *kgEntityRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.KGEntity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.KGEntity
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *kgEntityRepo) List(ctx context.Context, tx *gorm.DB, filter KGEntityFilter) ([]*types.KGEntity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.KGEntity{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description_en) LIKE ? OR LOWER(description_es) LIKE ?", pattern, pattern, pattern)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var results []*types.KGEntity
	if err := q.Order("name ASC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type KGRelationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, relations []*types.KGRelation) ([]*types.KGRelation, error)
	GetByEntityID(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*types.KGRelation, error)
}

type kgRelationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKGRelationRepo(db *gorm.DB, baseLog *logger.Logger) KGRelationRepo {
	return &kgRelationRepo{db: db, log: baseLog.With("repo", "KGRelationRepo")}
}

func (r *kgRelationRepo) Create(ctx context.Context, tx *gorm.DB, relations []*types.KGRelation) ([]*types.KGRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(relations) == 0 {
		return []*types.KGRelation{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&relations).Error; err != nil {
		return nil, err
	}
	return relations, nil
}

func (r *kgRelationRepo) GetByEntityID(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*types.KGRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.KGRelation
	if entityID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("from_id = ? OR to_id = ?", entityID, entityID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
