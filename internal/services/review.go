package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/platform/apierr"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

type ReviewService interface {
	// CreateReview stores one review per user per course and awards the
	// review XP. Duplicates are a conflict.
	CreateReview(ctx context.Context, userID, courseID uuid.UUID, rating int, comment string) (*types.Review, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*types.Review, error)
}

type reviewService struct {
	db  *gorm.DB
	log *logger.Logger

	courseRepo     repos.CourseRepo
	reviewRepo     repos.ReviewRepo
	enrollmentRepo repos.EnrollmentRepo
	profileRepo    repos.UserProfileRepo

	gamification GamificationService
}

func NewReviewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	reviewRepo repos.ReviewRepo,
	enrollmentRepo repos.EnrollmentRepo,
	profileRepo repos.UserProfileRepo,
	gamification GamificationService,
) ReviewService {
	return &reviewService{
		db:             db,
		log:            baseLog.With("service", "ReviewService"),
		courseRepo:     courseRepo,
		reviewRepo:     reviewRepo,
		enrollmentRepo: enrollmentRepo,
		profileRepo:    profileRepo,
		gamification:   gamification,
	}
}

func (s *reviewService) CreateReview(ctx context.Context, userID, courseID uuid.UUID, rating int, comment string) (*types.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apierr.New(400, "invalid_rating", fmt.Errorf("rating must be between 1 and 5"))
	}
	comment = strings.TrimSpace(comment)

	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 || courses[0] == nil {
		return nil, apierr.New(404, "course_not_found", fmt.Errorf("course not found"))
	}

	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, apierr.New(403, "not_enrolled", fmt.Errorf("reviews require an enrollment"))
	}

	existing, err := s.reviewRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierr.New(409, "already_reviewed", fmt.Errorf("course already reviewed"))
	}

	var review *types.Review
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review = &types.Review{
			ID:       uuid.New(),
			UserID:   userID,
			CourseID: courseID,
			Rating:   rating,
			Comment:  comment,
		}
		if _, err := s.reviewRepo.Create(ctx, tx, []*types.Review{review}); err != nil {
			return fmt.Errorf("create review: %w", err)
		}

		if err := s.profileRepo.UpdateFields(ctx, tx, userID, map[string]interface{}{
			"reviews_written": gorm.Expr("reviews_written + 1"),
		}); err != nil {
			return fmt.Errorf("bump reviews_written: %w", err)
		}

		cid := courseID
		if err := s.gamification.AwardXP(ctx, tx, userID, XPAmountReviewWritten, XPActionReviewWritten, &cid); err != nil {
			return err
		}
		return s.gamification.TouchStreak(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.gamification.CheckBadges(ctx, userID); err != nil {
		s.log.Warn("badge check after review failed", "user_id", userID, "error", err)
	}
	return review, nil
}

func (s *reviewService) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*types.Review, error) {
	return s.reviewRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{courseID})
}
