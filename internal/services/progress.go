package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/events"
	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/platform/apierr"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// ProgressResult reports what a module completion changed.
type ProgressResult struct {
	Enrollment      *types.Enrollment `json:"enrollment"`
	ModulesDone     int               `json:"modules_done"`
	ModulesTotal    int               `json:"modules_total"`
	CourseCompleted bool              `json:"course_completed"`
	AlreadyDone     bool              `json:"already_done"`
}

type ProgressService interface {
	// CompleteModule marks one module done, recomputes the enrollment
	// percentage and awards XP. Completing the last module also completes
	// the course. Repeating a module is a no-op without extra XP.
	CompleteModule(ctx context.Context, userID, courseID, moduleID uuid.UUID) (*ProgressResult, error)
}

type progressService struct {
	db  *gorm.DB
	log *logger.Logger

	hub *events.Hub

	moduleRepo     repos.CourseModuleRepo
	enrollmentRepo repos.EnrollmentRepo
	progressRepo   repos.ModuleProgressRepo
	profileRepo    repos.UserProfileRepo
	eventRepo      repos.UserEventRepo

	gamification GamificationService
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	hub *events.Hub,
	moduleRepo repos.CourseModuleRepo,
	enrollmentRepo repos.EnrollmentRepo,
	progressRepo repos.ModuleProgressRepo,
	profileRepo repos.UserProfileRepo,
	eventRepo repos.UserEventRepo,
	gamification GamificationService,
) ProgressService {
	return &progressService{
		db:             db,
		log:            baseLog.With("service", "ProgressService"),
		hub:            hub,
		moduleRepo:     moduleRepo,
		enrollmentRepo: enrollmentRepo,
		progressRepo:   progressRepo,
		profileRepo:    profileRepo,
		eventRepo:      eventRepo,
		gamification:   gamification,
	}
}

func (s *progressService) CompleteModule(ctx context.Context, userID, courseID, moduleID uuid.UUID) (*ProgressResult, error) {
	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, apierr.New(403, "not_enrolled", fmt.Errorf("not enrolled in this course"))
	}

	modules, err := s.moduleRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	var module *types.CourseModule
	for _, m := range modules {
		if m != nil && m.ID == moduleID {
			module = m
			break
		}
	}
	if module == nil {
		return nil, apierr.New(404, "module_not_found", fmt.Errorf("module does not belong to this course"))
	}

	done, err := s.progressRepo.Exists(ctx, nil, enrollment.ID, moduleID)
	if err != nil {
		return nil, err
	}
	if done {
		count, err := s.progressRepo.CountByEnrollmentID(ctx, nil, enrollment.ID)
		if err != nil {
			return nil, err
		}
		return &ProgressResult{
			Enrollment:   enrollment,
			ModulesDone:  int(count),
			ModulesTotal: len(modules),
			AlreadyDone:  true,
		}, nil
	}

	result := &ProgressResult{Enrollment: enrollment, ModulesTotal: len(modules)}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if _, err := s.progressRepo.Create(ctx, tx, []*types.ModuleProgress{{
			ID:           uuid.New(),
			EnrollmentID: enrollment.ID,
			ModuleID:     moduleID,
			CompletedAt:  now,
		}}); err != nil {
			return fmt.Errorf("create module progress: %w", err)
		}

		count, err := s.progressRepo.CountByEnrollmentID(ctx, tx, enrollment.ID)
		if err != nil {
			return fmt.Errorf("count progress: %w", err)
		}
		result.ModulesDone = int(count)

		pct := 0
		if len(modules) > 0 {
			pct = int(count) * 100 / len(modules)
		}
		updates := map[string]interface{}{
			"progress_percentage": pct,
			"updated_at":          now,
		}
		completed := len(modules) > 0 && int(count) >= len(modules) && enrollment.CompletedAt == nil
		if completed {
			updates["completed_at"] = now
		}
		if err := s.enrollmentRepo.UpdateFields(ctx, tx, enrollment.ID, updates); err != nil {
			return fmt.Errorf("update enrollment: %w", err)
		}
		enrollment.ProgressPercentage = pct
		if completed {
			enrollment.CompletedAt = &now
			result.CourseCompleted = true
		}

		cid := courseID
		rows := []*types.UserEvent{{
			ID:       uuid.New(),
			UserID:   userID,
			CourseID: &cid,
			Type:     types.UserEventModuleCompleted,
		}}
		if completed {
			rows = append(rows, &types.UserEvent{
				ID:       uuid.New(),
				UserID:   userID,
				CourseID: &cid,
				Type:     types.UserEventCourseCompleted,
			})
		}
		if _, err := s.eventRepo.Create(ctx, tx, rows); err != nil {
			return fmt.Errorf("record events: %w", err)
		}

		mid := moduleID
		if err := s.gamification.AwardXP(ctx, tx, userID, XPAmountModuleCompleted, XPActionModuleCompleted, &mid); err != nil {
			return fmt.Errorf("award module xp: %w", err)
		}
		if completed {
			if err := s.gamification.AwardXP(ctx, tx, userID, XPAmountCourseCompleted, XPActionCourseCompleted, &cid); err != nil {
				return fmt.Errorf("award course xp: %w", err)
			}
			if err := s.profileRepo.UpdateFields(ctx, tx, userID, map[string]interface{}{
				"courses_completed": gorm.Expr("courses_completed + 1"),
				"updated_at":        now,
			}); err != nil {
				return fmt.Errorf("bump courses_completed: %w", err)
			}
		}
		return s.gamification.TouchStreak(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToUser(userID, events.EventModuleCompleted, map[string]any{
		"course_id": courseID,
		"module_id": moduleID,
		"progress":  enrollment.ProgressPercentage,
	})
	if result.CourseCompleted {
		s.hub.BroadcastToUser(userID, events.EventCourseCompleted, map[string]any{
			"course_id": courseID,
		})
		if _, err := s.gamification.CheckBadges(ctx, userID); err != nil {
			s.log.Warn("badge check after course completion failed", "user_id", userID, "error", err)
		}
	}

	return result, nil
}
