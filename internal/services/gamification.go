package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/aiverso/aiverso-backend/internal/clients/redis"
	"github.com/aiverso/aiverso-backend/internal/events"
	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

type GamificationService interface {
	// AwardXP logs an XP grant, bumps the profile total, updates the redis
	// leaderboard and emits XPAwarded (and LevelUp when the level changed).
	AwardXP(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, action string, referenceID *uuid.UUID) error
	// TouchStreak handles the once-per-day streak bump and its bonus XP.
	TouchStreak(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	// CheckBadges evaluates all badge triggers and awards anything missing.
	CheckBadges(ctx context.Context, userID uuid.UUID) ([]*types.Badge, error)
	GetXPLog(ctx context.Context, userID uuid.UUID, limit int) ([]*types.XPLog, error)
	// GetLeaderboard returns the top entries plus the viewer's own rank
	// when a viewer is given, even outside the top slice.
	GetLeaderboard(ctx context.Context, viewer *uuid.UUID, limit int) ([]redisclient.LeaderboardEntry, *redisclient.LeaderboardEntry, error)
	SeedBadges(ctx context.Context) error
}

type gamificationService struct {
	db          *gorm.DB
	log         *logger.Logger
	hub         *events.Hub
	leaderboard redisclient.Leaderboard
	profileRepo repos.UserProfileRepo
	xpLogRepo   repos.XPLogRepo
	badgeRepo   repos.BadgeRepo
	userBadges  repos.UserBadgeRepo
	enrollments repos.EnrollmentRepo
	reviews     repos.ReviewRepo
}

func NewGamificationService(
	db *gorm.DB,
	log *logger.Logger,
	hub *events.Hub,
	leaderboard redisclient.Leaderboard,
	profileRepo repos.UserProfileRepo,
	xpLogRepo repos.XPLogRepo,
	badgeRepo repos.BadgeRepo,
	userBadges repos.UserBadgeRepo,
	enrollments repos.EnrollmentRepo,
	reviews repos.ReviewRepo,
) GamificationService {
	return &gamificationService{
		db:          db,
		log:         log.With("service", "GamificationService"),
		hub:         hub,
		leaderboard: leaderboard,
		profileRepo: profileRepo,
		xpLogRepo:   xpLogRepo,
		badgeRepo:   badgeRepo,
		userBadges:  userBadges,
		enrollments: enrollments,
		reviews:     reviews,
	}
}

func (gs *gamificationService) AwardXP(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, action string, referenceID *uuid.UUID) error {
	if userID == uuid.Nil || amount <= 0 {
		return nil
	}
	transaction := tx
	if transaction == nil {
		transaction = gs.db
	}

	profiles, err := gs.profileRepo.GetByUserIDs(ctx, transaction, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if len(profiles) == 0 || profiles[0] == nil {
		return fmt.Errorf("profile not found for user %s", userID)
	}
	before := profiles[0].TotalXP

	entry := &types.XPLog{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Action:      action,
		ReferenceID: referenceID,
	}
	if _, err := gs.xpLogRepo.Create(ctx, transaction, []*types.XPLog{entry}); err != nil {
		return fmt.Errorf("create xp log: %w", err)
	}
	if err := gs.profileRepo.IncrementXP(ctx, transaction, userID, amount); err != nil {
		return fmt.Errorf("increment profile xp: %w", err)
	}

	after := before + amount

	// Leaderboard and events are best-effort side work.
	if gs.leaderboard != nil {
		if lErr := gs.leaderboard.AddXP(ctx, userID.String(), amount); lErr != nil {
			gs.log.Warn("Leaderboard update failed", "error", lErr, "user_id", userID)
		}
	}
	if gs.hub != nil {
		gs.hub.BroadcastToUser(userID, events.EventXPAwarded, map[string]any{
			"amount":   amount,
			"action":   action,
			"total_xp": after,
			"level":    CalculateLevel(after),
		})
		if CalculateLevel(after) > CalculateLevel(before) {
			gs.hub.BroadcastToUser(userID, events.EventLevelUp, map[string]any{
				"level": CalculateLevel(after),
			})
		}
	}
	return nil
}

func (gs *gamificationService) TouchStreak(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = gs.db
	}
	profiles, err := gs.profileRepo.GetByUserIDs(ctx, transaction, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if len(profiles) == 0 || profiles[0] == nil {
		return fmt.Errorf("profile not found for user %s", userID)
	}
	profile := profiles[0]

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if profile.LastActivityDate != nil {
		last := profile.LastActivityDate.UTC().Truncate(24 * time.Hour)
		if last.Equal(today) {
			return nil
		}
		if last.Equal(today.AddDate(0, 0, -1)) {
			profile.StreakDays++
		} else {
			profile.StreakDays = 1
		}
	} else {
		profile.StreakDays = 1
	}

	now := time.Now()
	if err := gs.profileRepo.UpdateFields(ctx, transaction, userID, map[string]interface{}{
		"streak_days":        profile.StreakDays,
		"last_activity_date": now,
		"updated_at":         now,
	}); err != nil {
		return fmt.Errorf("update streak: %w", err)
	}

	if bonus := StreakBonus(profile.StreakDays); bonus > 0 {
		if err := gs.AwardXP(ctx, transaction, userID, bonus, XPActionDailyStreak, nil); err != nil {
			return err
		}
	}
	return nil
}

func (gs *gamificationService) CheckBadges(ctx context.Context, userID uuid.UUID) ([]*types.Badge, error) {
	badges, err := gs.badgeRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	owned, err := gs.userBadges.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user badges: %w", err)
	}
	ownedSet := map[uuid.UUID]bool{}
	for _, ub := range owned {
		if ub != nil {
			ownedSet[ub.BadgeID] = true
		}
	}

	profiles, err := gs.profileRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if len(profiles) == 0 || profiles[0] == nil {
		return nil, fmt.Errorf("profile not found for user %s", userID)
	}
	profile := profiles[0]

	completed, err := gs.enrollments.CountCompletedByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("count completed courses: %w", err)
	}
	reviewCount, err := gs.reviews.CountByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	stats := BadgeStats{
		TotalXP:          profile.TotalXP,
		CoursesCompleted: int(completed),
		StreakDays:       profile.StreakDays,
		ReviewsWritten:   int(reviewCount),
	}

	awarded := make([]*types.Badge, 0)
	now := time.Now()
	for _, badge := range badges {
		if badge == nil || ownedSet[badge.ID] {
			continue
		}
		if !BadgeEarned(badge, stats) {
			continue
		}
		row := &types.UserBadge{
			ID:        uuid.New(),
			UserID:    userID,
			BadgeID:   badge.ID,
			AwardedAt: now,
		}
		if _, cErr := gs.userBadges.Create(ctx, nil, []*types.UserBadge{row}); cErr != nil {
			gs.log.Warn("Award badge failed", "error", cErr, "badge", badge.Slug, "user_id", userID)
			continue
		}
		awarded = append(awarded, badge)
		if gs.hub != nil {
			gs.hub.BroadcastToUser(userID, events.EventBadgeUnlocked, map[string]any{
				"badge": badge,
			})
		}
	}
	return awarded, nil
}

func (gs *gamificationService) GetXPLog(ctx context.Context, userID uuid.UUID, limit int) ([]*types.XPLog, error) {
	return gs.xpLogRepo.GetRecentByUserID(ctx, nil, userID, limit)
}

func (gs *gamificationService) GetLeaderboard(ctx context.Context, viewer *uuid.UUID, limit int) ([]redisclient.LeaderboardEntry, *redisclient.LeaderboardEntry, error) {
	if gs.leaderboard == nil {
		return []redisclient.LeaderboardEntry{}, nil, nil
	}
	entries, err := gs.leaderboard.Top(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	var me *redisclient.LeaderboardEntry
	if viewer != nil && *viewer != uuid.Nil {
		me, err = gs.leaderboard.RankOf(ctx, viewer.String())
		if err != nil {
			gs.log.Warn("leaderboard rank lookup failed", "user_id", *viewer, "error", err)
			me = nil
		}
	}
	return entries, me, nil
}

func (gs *gamificationService) SeedBadges(ctx context.Context) error {
	return gs.badgeRepo.UpsertBySlug(ctx, nil, DefaultBadges())
}

// BadgeStats carries the per-user counters badge triggers compare against.
type BadgeStats struct {
	TotalXP          int
	CoursesCompleted int
	StreakDays       int
	ReviewsWritten   int
}

// BadgeEarned reports whether the user's stats satisfy the badge trigger.
func BadgeEarned(badge *types.Badge, stats BadgeStats) bool {
	if badge == nil {
		return false
	}
	switch badge.TriggerKind {
	case types.BadgeTriggerXPTotal:
		return stats.TotalXP >= badge.Threshold
	case types.BadgeTriggerCoursesCompleted:
		return stats.CoursesCompleted >= badge.Threshold
	case types.BadgeTriggerStreakDays:
		return stats.StreakDays >= badge.Threshold
	case types.BadgeTriggerReviewsWritten:
		return stats.ReviewsWritten >= badge.Threshold
	default:
		return false
	}
}

// DefaultBadges is the built-in badge catalog, seeded at startup.
func DefaultBadges() []*types.Badge {
	return []*types.Badge{
		{ID: uuid.New(), Slug: "first-steps", NameEn: "First Steps", NameEs: "Primeros Pasos", DescriptionEn: "Earn your first 100 XP", DescriptionEs: "Gana tus primeros 100 XP", TriggerKind: types.BadgeTriggerXPTotal, Threshold: 100},
		{ID: uuid.New(), Slug: "xp-collector", NameEn: "XP Collector", NameEs: "Coleccionista de XP", DescriptionEn: "Reach 1000 total XP", DescriptionEs: "Alcanza 1000 XP en total", TriggerKind: types.BadgeTriggerXPTotal, Threshold: 1000},
		{ID: uuid.New(), Slug: "course-finisher", NameEn: "Course Finisher", NameEs: "Finalista de Cursos", DescriptionEn: "Complete your first course", DescriptionEs: "Completa tu primer curso", TriggerKind: types.BadgeTriggerCoursesCompleted, Threshold: 1},
		{ID: uuid.New(), Slug: "scholar", NameEn: "Scholar", NameEs: "Erudito", DescriptionEn: "Complete five courses", DescriptionEs: "Completa cinco cursos", TriggerKind: types.BadgeTriggerCoursesCompleted, Threshold: 5},
		{ID: uuid.New(), Slug: "week-streak", NameEn: "Week Streak", NameEs: "Racha Semanal", DescriptionEn: "Keep a 7-day streak", DescriptionEs: "Mantén una racha de 7 días", TriggerKind: types.BadgeTriggerStreakDays, Threshold: 7},
		{ID: uuid.New(), Slug: "critic", NameEn: "Critic", NameEs: "Crítico", DescriptionEn: "Write three reviews", DescriptionEs: "Escribe tres reseñas", TriggerKind: types.BadgeTriggerReviewsWritten, Threshold: 3},
	}
}
