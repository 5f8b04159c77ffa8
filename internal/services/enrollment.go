package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/events"
	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/platform/apierr"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

type EnrollmentService interface {
	// Enroll creates the enrollment and awards the enrollment XP. A second
	// enrollment in the same course is a conflict.
	Enroll(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
	Unenroll(ctx context.Context, userID, courseID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error)
}

type enrollmentService struct {
	db  *gorm.DB
	log *logger.Logger

	hub *events.Hub

	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	eventRepo      repos.UserEventRepo

	gamification GamificationService
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	hub *events.Hub,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	eventRepo repos.UserEventRepo,
	gamification GamificationService,
) EnrollmentService {
	return &enrollmentService{
		db:             db,
		log:            baseLog.With("service", "EnrollmentService"),
		hub:            hub,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		eventRepo:      eventRepo,
		gamification:   gamification,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 || courses[0] == nil {
		return nil, apierr.New(404, "course_not_found", fmt.Errorf("course not found"))
	}

	existing, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierr.New(409, "already_enrolled", fmt.Errorf("already enrolled in this course"))
	}

	var enrollment *types.Enrollment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment = &types.Enrollment{
			ID:       uuid.New(),
			UserID:   userID,
			CourseID: courseID,
		}
		if _, err := s.enrollmentRepo.Create(ctx, tx, []*types.Enrollment{enrollment}); err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}

		cid := courseID
		if _, err := s.eventRepo.Create(ctx, tx, []*types.UserEvent{{
			ID:       uuid.New(),
			UserID:   userID,
			CourseID: &cid,
			Type:     types.UserEventCourseEnrolled,
		}}); err != nil {
			return fmt.Errorf("record enroll event: %w", err)
		}

		if err := s.gamification.AwardXP(ctx, tx, userID, XPAmountCourseEnrolled, XPActionCourseEnrolled, &cid); err != nil {
			return fmt.Errorf("award enroll xp: %w", err)
		}
		return s.gamification.TouchStreak(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToUser(userID, events.EventCourseEnrolled, map[string]any{
		"course_id":     courseID,
		"enrollment_id": enrollment.ID,
	})
	return enrollment, nil
}

func (s *enrollmentService) Unenroll(ctx context.Context, userID, courseID uuid.UUID) error {
	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return err
	}
	if enrollment == nil {
		return apierr.New(404, "not_enrolled", fmt.Errorf("not enrolled in this course"))
	}
	if err := s.enrollmentRepo.Delete(ctx, nil, enrollment.ID); err != nil {
		return err
	}
	s.hub.BroadcastToUser(userID, events.EventCourseUnenrolled, map[string]any{
		"course_id": courseID,
	})
	return nil
}

func (s *enrollmentService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	return s.enrollmentRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
}
