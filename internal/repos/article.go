package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/types"
)

type ArticleFilter struct {
	Category string
	Source   string
	Limit    int
	Offset   int
}

type ArticleRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Article, error)
	List(ctx context.Context, tx *gorm.DB, filter ArticleFilter) ([]*types.Article, error)
	Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Article, error)
	// UpsertByURL inserts new articles and skips urls already stored.
	UpsertByURL(ctx context.Context, tx *gorm.DB, articles []*types.Article) (int, error)
}

type articleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return &articleRepo{db: db, log: baseLog.With("repo", "ArticleRepo")}
}

func (r *articleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Article
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

func (r *articleRepo) List(ctx context.Context, tx *gorm.DB, filter ArticleFilter) ([]*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Article{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var results []*types.Article
	if err := q.Order("published_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *articleRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []*types.Article{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var results []*types.Article
	if err := transaction.WithContext(ctx).
		Where("LOWER(title_en) LIKE ? OR LOWER(title_es) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern, pattern).
		Order("published_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *articleRepo) UpsertByURL(ctx context.Context, tx *gorm.DB, articles []*types.Article) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(articles) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoNothing: true,
		}).
		Create(&articles)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
