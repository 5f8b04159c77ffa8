package repos

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// WeeklyXP is one aggregated bucket of awarded XP.
type WeeklyXP struct {
	WeekStart time.Time `json:"week_start"`
	Total     int       `json:"total"`
}

type XPLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, logs []*types.XPLog) ([]*types.XPLog, error)
	GetRecentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.XPLog, error)
	SumByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	WeeklyTotalsByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, weeks int) ([]WeeklyXP, error)
}

type xpLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewXPLogRepo(db *gorm.DB, baseLog *logger.Logger) XPLogRepo {
	return &xpLogRepo{db: db, log: baseLog.With("repo", "XPLogRepo")}
}

func (r *xpLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.XPLog) ([]*types.XPLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(logs) == 0 {
		return []*types.XPLog{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *xpLogRepo) GetRecentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.XPLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var results []*types.XPLog
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *xpLogRepo) SumByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.XPLog{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *xpLogRepo) WeeklyTotalsByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, weeks int) ([]WeeklyXP, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if weeks <= 0 || weeks > 52 {
		weeks = 8
	}
	since := time.Now().AddDate(0, 0, -7*weeks)

	// Bucketed in Go to keep the query free of date_trunc specifics.
	var rows []*types.XPLog
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	buckets := map[time.Time]int{}
	for _, row := range rows {
		if row == nil {
			continue
		}
		weekStart := startOfWeek(row.CreatedAt)
		buckets[weekStart] += row.Amount
	}
	out := make([]WeeklyXP, 0, len(buckets))
	for ws, total := range buckets {
		out = append(out, WeeklyXP{WeekStart: ws, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out, nil
}

func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
