package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/platform/apierr"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// CourseDetail is a course plus everything the detail page renders.
type CourseDetail struct {
	Course        *types.Course         `json:"course"`
	Modules       []*types.CourseModule `json:"modules"`
	Reviews       []*types.Review       `json:"reviews"`
	AverageRating float64               `json:"average_rating"`
	ReviewCount   int                   `json:"review_count"`
	Enrollment    *types.Enrollment     `json:"enrollment,omitempty"`

	// GenerationRun is the latest AI run for the course, so clients can
	// show in-progress or failed generations.
	GenerationRun *types.CourseGenerationRun `json:"generation_run,omitempty"`
}

type CourseService interface {
	List(ctx context.Context, filter repos.CourseFilter) ([]*types.Course, error)
	// Get loads the course with modules and review summary. When userID is
	// set the caller's enrollment is attached and a view event recorded.
	Get(ctx context.Context, courseID uuid.UUID, userID *uuid.UUID) (*CourseDetail, error)
}

type courseService struct {
	db  *gorm.DB
	log *logger.Logger

	courseRepo     repos.CourseRepo
	moduleRepo     repos.CourseModuleRepo
	reviewRepo     repos.ReviewRepo
	enrollmentRepo repos.EnrollmentRepo
	eventRepo      repos.UserEventRepo
	runRepo        repos.CourseGenerationRunRepo
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	moduleRepo repos.CourseModuleRepo,
	reviewRepo repos.ReviewRepo,
	enrollmentRepo repos.EnrollmentRepo,
	eventRepo repos.UserEventRepo,
	runRepo repos.CourseGenerationRunRepo,
) CourseService {
	return &courseService{
		db:             db,
		log:            baseLog.With("service", "CourseService"),
		courseRepo:     courseRepo,
		moduleRepo:     moduleRepo,
		reviewRepo:     reviewRepo,
		enrollmentRepo: enrollmentRepo,
		eventRepo:      eventRepo,
		runRepo:        runRepo,
	}
}

func (s *courseService) List(ctx context.Context, filter repos.CourseFilter) ([]*types.Course, error) {
	return s.courseRepo.List(ctx, nil, filter)
}

func (s *courseService) Get(ctx context.Context, courseID uuid.UUID, userID *uuid.UUID) (*CourseDetail, error) {
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 || courses[0] == nil {
		return nil, apierr.New(404, "course_not_found", fmt.Errorf("course not found"))
	}
	course := courses[0]

	modules, err := s.moduleRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	var ratingSum int
	for _, rv := range reviews {
		if rv != nil {
			ratingSum += rv.Rating
		}
	}
	detail := &CourseDetail{
		Course:      course,
		Modules:     modules,
		Reviews:     reviews,
		ReviewCount: len(reviews),
	}
	if len(reviews) > 0 {
		detail.AverageRating = float64(ratingSum) / float64(len(reviews))
	}

	run, err := s.runRepo.GetLatestByCourseID(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}
	detail.GenerationRun = run

	if userID != nil && *userID != uuid.Nil {
		enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, *userID, courseID)
		if err != nil {
			return nil, err
		}
		detail.Enrollment = enrollment

		// view events are best-effort
		uid := *userID
		cid := courseID
		if _, err := s.eventRepo.Create(ctx, nil, []*types.UserEvent{{
			ID:       uuid.New(),
			UserID:   uid,
			CourseID: &cid,
			Type:     types.UserEventCourseViewed,
		}}); err != nil {
			s.log.Warn("record course view failed", "course_id", courseID, "error", err)
		}
	}

	return detail, nil
}
