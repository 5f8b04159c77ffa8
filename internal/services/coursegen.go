package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/events"
	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/platform/apierr"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"

	DurationShort  = "short"
	DurationMedium = "medium"
	DurationLong   = "long"
)

// ModuleCountRange gives the acceptable module count for a duration and
// the target count the prompt asks for.
func ModuleCountRange(duration string) (min, max, target int, ok bool) {
	switch duration {
	case DurationShort:
		return 2, 3, 3, true
	case DurationMedium:
		return 4, 6, 5, true
	case DurationLong:
		return 7, 10, 8, true
	default:
		return 0, 0, 0, false
	}
}

func ValidDifficulty(d string) bool {
	return d == DifficultyBeginner || d == DifficultyIntermediate || d == DifficultyAdvanced
}

func ValidDuration(d string) bool {
	_, _, _, ok := ModuleCountRange(d)
	return ok
}

// GenerateCourseRequest is the user-facing input for both the synchronous
// and the queued generation paths.
type GenerateCourseRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Duration   string `json:"duration"`
	Locale     string `json:"locale"`
}

type CourseGenConfig struct {
	SyncTimeout  time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

func DefaultCourseGenConfig() CourseGenConfig {
	return CourseGenConfig{
		SyncTimeout:  45 * time.Second,
		PollInterval: 1 * time.Second,
		MaxAttempts:  5,
		RetryDelay:   30 * time.Second,
		StaleRunning: 2 * time.Minute,
	}
}

type CourseGenService interface {
	// GenerateSimple runs the whole pipeline inline and returns the saved
	// course, or a gateway-timeout error when generation exceeds the
	// configured deadline.
	GenerateSimple(ctx context.Context, userID uuid.UUID, req GenerateCourseRequest) (*types.Course, []*types.CourseModule, error)
	// EnqueueAdvanced creates a placeholder course plus a queued run that
	// the background worker picks up.
	EnqueueAdvanced(ctx context.Context, userID uuid.UUID, req GenerateCourseRequest) (*types.Course, *types.CourseGenerationRun, error)
	GetRun(ctx context.Context, userID uuid.UUID, runID uuid.UUID) (*types.CourseGenerationRun, error)
	StartWorker(ctx context.Context)
}

type courseGenService struct {
	db  *gorm.DB
	log *logger.Logger
	cfg CourseGenConfig

	hub *events.Hub

	courseRepo repos.CourseRepo
	moduleRepo repos.CourseModuleRepo
	runRepo    repos.CourseGenerationRunRepo

	ai TextGenerator
}

func NewCourseGenService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg CourseGenConfig,
	hub *events.Hub,
	courseRepo repos.CourseRepo,
	moduleRepo repos.CourseModuleRepo,
	runRepo repos.CourseGenerationRunRepo,
	ai TextGenerator,
) CourseGenService {
	return &courseGenService{
		db:         db,
		log:        baseLog.With("service", "CourseGenService"),
		cfg:        cfg,
		hub:        hub,
		courseRepo: courseRepo,
		moduleRepo: moduleRepo,
		runRepo:    runRepo,
		ai:         ai,
	}
}

func validateGenerateRequest(req *GenerateCourseRequest) error {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return apierr.New(400, "invalid_topic", fmt.Errorf("topic is required"))
	}
	if req.Difficulty == "" {
		req.Difficulty = DifficultyBeginner
	}
	if !ValidDifficulty(req.Difficulty) {
		return apierr.New(400, "invalid_difficulty", fmt.Errorf("difficulty must be beginner, intermediate or advanced"))
	}
	if req.Duration == "" {
		req.Duration = DurationMedium
	}
	if !ValidDuration(req.Duration) {
		return apierr.New(400, "invalid_duration", fmt.Errorf("duration must be short, medium or long"))
	}
	if req.Locale == "" {
		req.Locale = "en"
	}
	if req.Locale != "en" && req.Locale != "es" {
		return apierr.New(400, "invalid_locale", fmt.Errorf("locale must be en or es"))
	}
	return nil
}

type generatedModulePayload struct {
	TitleEn          string `json:"title_en"`
	TitleEs          string `json:"title_es"`
	BodyEn           string `json:"body_en"`
	BodyEs           string `json:"body_es"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

type generatedCoursePayload struct {
	TitleEn       string                   `json:"title_en"`
	TitleEs       string                   `json:"title_es"`
	DescriptionEn string                   `json:"description_en"`
	DescriptionEs string                   `json:"description_es"`
	Modules       []generatedModulePayload `json:"modules"`
}

func buildCoursePrompts(req GenerateCourseRequest) (system, user string) {
	minMods, maxMods, target, _ := ModuleCountRange(req.Duration)

	system = "You design complete bilingual (English and Spanish) mini-courses about artificial intelligence topics. " +
		"Always answer with a single JSON object and nothing else. " +
		"Both language variants must carry the same content, not literal word-for-word translations."

	user = fmt.Sprintf(
		`Create a %s-level course about "%s".

The course has %d modules (between %d and %d is acceptable). The learner's primary language is %q.

Return JSON with this shape:
{
  "title_en": "...", "title_es": "...",
  "description_en": "...", "description_es": "...",
  "modules": [
    {"title_en": "...", "title_es": "...", "body_en": "markdown lesson text", "body_es": "markdown lesson text", "estimated_minutes": 10}
  ]
}

Module bodies are markdown, roughly 300-500 words each, with concrete examples.`,
		req.Difficulty, req.Topic, target, minMods, maxMods, req.Locale,
	)
	return system, user
}

// generateCourseContent calls the model and validates the payload against
// the requested duration's module range.
func (s *courseGenService) generateCourseContent(ctx context.Context, userID uuid.UUID, req GenerateCourseRequest) (*generatedCoursePayload, error) {
	system, user := buildCoursePrompts(req)

	raw, err := s.ai.GenerateJSON(ctx, &userID, "course_generation", system, user)
	if err != nil {
		return nil, err
	}

	var payload generatedCoursePayload
	if err := SanitizeModelJSON(raw, &payload); err != nil {
		return nil, err
	}

	if strings.TrimSpace(payload.TitleEn) == "" {
		return nil, fmt.Errorf("%w: missing title_en", ErrMalformedModelJSON)
	}
	minMods, maxMods, _, _ := ModuleCountRange(req.Duration)
	if len(payload.Modules) < minMods || len(payload.Modules) > maxMods {
		return nil, fmt.Errorf("%w: got %d modules, want %d-%d", ErrMalformedModelJSON, len(payload.Modules), minMods, maxMods)
	}
	for i := range payload.Modules {
		if strings.TrimSpace(payload.Modules[i].TitleEn) == "" {
			return nil, fmt.Errorf("%w: module %d missing title_en", ErrMalformedModelJSON, i)
		}
		if payload.Modules[i].EstimatedMinutes <= 0 {
			payload.Modules[i].EstimatedMinutes = 10
		}
	}
	return &payload, nil
}

type generatedOutlinePayload struct {
	TitleEn       string `json:"title_en"`
	DescriptionEn string `json:"description_en"`
	Modules       []struct {
		TitleEn string `json:"title_en"`
	} `json:"modules"`
}

type generatedBodiesPayload struct {
	Modules []struct {
		BodyEn           string `json:"body_en"`
		EstimatedMinutes int    `json:"estimated_minutes"`
	} `json:"modules"`
}

type translatedCoursePayload struct {
	TitleEs       string `json:"title_es"`
	DescriptionEs string `json:"description_es"`
	Modules       []struct {
		TitleEs string `json:"title_es"`
		BodyEs  string `json:"body_es"`
	} `json:"modules"`
}

func buildOutlinePrompts(req GenerateCourseRequest) (system, user string) {
	minMods, maxMods, target, _ := ModuleCountRange(req.Duration)

	system = "You design outlines for mini-courses about artificial intelligence topics. " +
		"Always answer with a single JSON object and nothing else."

	user = fmt.Sprintf(
		`Plan a %s-level course about "%s" with %d modules (between %d and %d is acceptable).

Return JSON with this shape:
{
  "title_en": "...",
  "description_en": "...",
  "modules": [{"title_en": "..."}]
}`,
		req.Difficulty, req.Topic, target, minMods, maxMods,
	)
	return system, user
}

func buildBodiesPrompts(req GenerateCourseRequest, outline *generatedOutlinePayload) (system, user string) {
	system = "You write lesson content for online courses about artificial intelligence. " +
		"Always answer with a single JSON object and nothing else."

	var titles strings.Builder
	for i, m := range outline.Modules {
		fmt.Fprintf(&titles, "%d. %s\n", i+1, m.TitleEn)
	}
	user = fmt.Sprintf(
		`Write the lesson body for every module of the %s-level course %q about "%s".

Modules, in order:
%s
Return JSON with one entry per module, in the same order:
{
  "modules": [{"body_en": "markdown lesson text", "estimated_minutes": 10}]
}

Bodies are markdown, roughly 300-500 words each, with concrete examples.`,
		req.Difficulty, outline.TitleEn, req.Topic, titles.String(),
	)
	return system, user
}

func buildTranslationPrompts(payload *generatedCoursePayload) (system, user string) {
	system = "You translate course content from English to Spanish, keeping markdown " +
		"structure and technical terms intact. Always answer with a single JSON object and nothing else."

	src, _ := json.Marshal(payload)
	user = fmt.Sprintf(
		`Translate this course to Spanish. Return JSON with the same module order:
{
  "title_es": "...",
  "description_es": "...",
  "modules": [{"title_es": "...", "body_es": "..."}]
}

Course:
%s`,
		string(src),
	)
	return system, user
}

// generateCourseStaged builds the course in three model calls: outline
// first, then module bodies, then the Spanish variant. The returned stage
// names the step that failed.
func (s *courseGenService) generateCourseStaged(ctx context.Context, userID uuid.UUID, req GenerateCourseRequest, progress func(stage string, pct int, msg string)) (*generatedCoursePayload, string, error) {
	progress("outline", 15, "Planning the course outline")
	system, user := buildOutlinePrompts(req)
	raw, err := s.ai.GenerateJSON(ctx, &userID, "course_outline", system, user)
	if err != nil {
		return nil, "outline", err
	}
	var outline generatedOutlinePayload
	if err := SanitizeModelJSON(raw, &outline); err != nil {
		return nil, "outline", err
	}
	if strings.TrimSpace(outline.TitleEn) == "" {
		return nil, "outline", fmt.Errorf("%w: missing title_en", ErrMalformedModelJSON)
	}
	minMods, maxMods, _, _ := ModuleCountRange(req.Duration)
	if len(outline.Modules) < minMods || len(outline.Modules) > maxMods {
		return nil, "outline", fmt.Errorf("%w: got %d modules, want %d-%d", ErrMalformedModelJSON, len(outline.Modules), minMods, maxMods)
	}
	for i, m := range outline.Modules {
		if strings.TrimSpace(m.TitleEn) == "" {
			return nil, "outline", fmt.Errorf("%w: module %d missing title_en", ErrMalformedModelJSON, i)
		}
	}

	progress("modules", 40, "Writing module lessons")
	system, user = buildBodiesPrompts(req, &outline)
	raw, err = s.ai.GenerateJSON(ctx, &userID, "course_modules", system, user)
	if err != nil {
		return nil, "modules", err
	}
	var bodies generatedBodiesPayload
	if err := SanitizeModelJSON(raw, &bodies); err != nil {
		return nil, "modules", err
	}
	if len(bodies.Modules) != len(outline.Modules) {
		return nil, "modules", fmt.Errorf("%w: got %d bodies for %d modules", ErrMalformedModelJSON, len(bodies.Modules), len(outline.Modules))
	}

	payload := &generatedCoursePayload{
		TitleEn:       outline.TitleEn,
		DescriptionEn: outline.DescriptionEn,
	}
	for i := range outline.Modules {
		minutes := bodies.Modules[i].EstimatedMinutes
		if minutes <= 0 {
			minutes = 10
		}
		payload.Modules = append(payload.Modules, generatedModulePayload{
			TitleEn:          outline.Modules[i].TitleEn,
			BodyEn:           bodies.Modules[i].BodyEn,
			EstimatedMinutes: minutes,
		})
	}

	progress("translate", 65, "Translating to Spanish")
	system, user = buildTranslationPrompts(payload)
	raw, err = s.ai.GenerateJSON(ctx, &userID, "course_translation", system, user)
	if err != nil {
		return nil, "translate", err
	}
	var tr translatedCoursePayload
	if err := SanitizeModelJSON(raw, &tr); err != nil {
		return nil, "translate", err
	}
	if len(tr.Modules) != len(payload.Modules) {
		return nil, "translate", fmt.Errorf("%w: got %d translations for %d modules", ErrMalformedModelJSON, len(tr.Modules), len(payload.Modules))
	}
	payload.TitleEs = tr.TitleEs
	payload.DescriptionEs = tr.DescriptionEs
	for i := range payload.Modules {
		payload.Modules[i].TitleEs = tr.Modules[i].TitleEs
		payload.Modules[i].BodyEs = tr.Modules[i].BodyEs
	}
	return payload, "", nil
}

func (s *courseGenService) persistGenerated(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, ownerID uuid.UUID, req GenerateCourseRequest, payload *generatedCoursePayload) (*types.Course, []*types.CourseModule, error) {
	now := time.Now()
	course := &types.Course{
		ID:            courseID,
		OwnerID:       &ownerID,
		TitleEn:       payload.TitleEn,
		TitleEs:       payload.TitleEs,
		DescriptionEn: payload.DescriptionEn,
		DescriptionEs: payload.DescriptionEs,
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		Duration:      req.Duration,
		Generated:     true,
		Metadata:      datatypes.JSON([]byte(`{"status":"ready"}`)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	modules := make([]*types.CourseModule, 0, len(payload.Modules))
	for i, m := range payload.Modules {
		modules = append(modules, &types.CourseModule{
			ID:               uuid.New(),
			CourseID:         course.ID,
			Index:            i,
			TitleEn:          m.TitleEn,
			TitleEs:          m.TitleEs,
			BodyEn:           m.BodyEn,
			BodyEs:           m.BodyEs,
			EstimatedMinutes: m.EstimatedMinutes,
			Metadata:         datatypes.JSON([]byte(`{}`)),
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	err := tx.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if _, err := s.courseRepo.Create(ctx, txx, []*types.Course{course}); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		if _, err := s.moduleRepo.Create(ctx, txx, modules); err != nil {
			return fmt.Errorf("create modules: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return course, modules, nil
}

func (s *courseGenService) GenerateSimple(ctx context.Context, userID uuid.UUID, req GenerateCourseRequest) (*types.Course, []*types.CourseModule, error) {
	if err := validateGenerateRequest(&req); err != nil {
		return nil, nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.SyncTimeout)
	defer cancel()

	payload, err := s.generateCourseContent(genCtx, userID, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, apierr.New(504, "generation_timeout", fmt.Errorf("course generation exceeded %s", s.cfg.SyncTimeout))
		}
		if errors.Is(err, ErrMalformedModelJSON) {
			return nil, nil, apierr.New(500, "generation_malformed", err)
		}
		return nil, nil, apierr.New(500, "generation_failed", err)
	}

	course, modules, err := s.persistGenerated(ctx, s.db, uuid.New(), userID, req, payload)
	if err != nil {
		return nil, nil, err
	}

	s.startCoverImage(course.ID, req.Topic)
	return course, modules, nil
}

func (s *courseGenService) EnqueueAdvanced(ctx context.Context, userID uuid.UUID, req GenerateCourseRequest) (*types.Course, *types.CourseGenerationRun, error) {
	if err := validateGenerateRequest(&req); err != nil {
		return nil, nil, err
	}

	var course *types.Course
	var run *types.CourseGenerationRun

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		course = &types.Course{
			ID:            uuid.New(),
			OwnerID:       &userID,
			TitleEn:       "Generating course…",
			TitleEs:       "Generando curso…",
			DescriptionEn: "We are building your course.",
			DescriptionEs: "Estamos creando tu curso.",
			Topic:         req.Topic,
			Difficulty:    req.Difficulty,
			Duration:      req.Duration,
			Generated:     true,
			Metadata:      datatypes.JSON([]byte(`{"status":"generating"}`)),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err := s.courseRepo.Create(ctx, tx, []*types.Course{course}); err != nil {
			return fmt.Errorf("create placeholder course: %w", err)
		}

		run = &types.CourseGenerationRun{
			ID:         uuid.New(),
			UserID:     userID,
			CourseID:   course.ID,
			Topic:      req.Topic,
			Difficulty: req.Difficulty,
			Duration:   req.Duration,
			Locale:     req.Locale,
			Status:     "queued",
			Stage:      "prompt",
			Progress:   0,
			Attempts:   0,
			Metadata:   datatypes.JSON([]byte(`{}`)),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := s.runRepo.Create(ctx, tx, []*types.CourseGenerationRun{run}); err != nil {
			return fmt.Errorf("create generation run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return course, run, nil
}

func (s *courseGenService) GetRun(ctx context.Context, userID uuid.UUID, runID uuid.UUID) (*types.CourseGenerationRun, error) {
	runs, err := s.runRepo.GetByIDs(ctx, nil, []uuid.UUID{runID})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 || runs[0] == nil {
		return nil, apierr.New(404, "run_not_found", fmt.Errorf("generation run not found"))
	}
	run := runs[0]
	if run.UserID != userID {
		return nil, apierr.New(404, "run_not_found", fmt.Errorf("generation run not found"))
	}
	return run, nil
}

func (s *courseGenService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run, err := s.runRepo.ClaimNextRunnable(ctx, s.db, s.cfg.MaxAttempts, s.cfg.RetryDelay, s.cfg.StaleRunning)
				if err != nil {
					s.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if run == nil {
					continue
				}
				s.processRun(ctx, run)
			}
		}
	}()
}

// keepAlive heartbeats the run until the returned stop func is called.
// The interval stays well under the stale-claim threshold.
func (s *courseGenService) keepAlive(ctx context.Context, runID uuid.UUID) (stop func()) {
	interval := s.cfg.StaleRunning / 4
	if interval <= 0 {
		interval = 15 * time.Second
	}

	hbCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := s.runRepo.Heartbeat(hbCtx, nil, runID); err != nil {
					s.log.Warn("run heartbeat failed", "run_id", runID, "error", err)
				}
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (s *courseGenService) processRun(ctx context.Context, run *types.CourseGenerationRun) {
	userID := run.UserID
	runID := run.ID

	fail := func(stage string, err error) {
		now := time.Now()
		_ = s.runRepo.UpdateFields(ctx, nil, runID, map[string]interface{}{
			"status":        "failed",
			"stage":         stage,
			"error":         err.Error(),
			"last_error_at": now,
			"locked_at":     nil,
		})
		s.hub.BroadcastToUser(userID, events.EventGenerationFailed, map[string]any{
			"run_id": runID,
			"stage":  stage,
			"error":  err.Error(),
		})
	}

	progress := func(stage string, pct int, msg string) {
		now := time.Now()
		_ = s.runRepo.UpdateFields(ctx, nil, runID, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"heartbeat_at": now,
		})
		s.hub.BroadcastToUser(userID, events.EventGenerationStatus, map[string]any{
			"run_id":   runID,
			"stage":    stage,
			"progress": pct,
			"message":  msg,
		})
	}

	req := GenerateCourseRequest{
		Topic:      run.Topic,
		Difficulty: run.Difficulty,
		Duration:   run.Duration,
		Locale:     run.Locale,
	}

	// Keep the claim fresh while the model calls run, so other workers
	// don't treat the run as stale mid-generation.
	stopHeartbeat := s.keepAlive(ctx, runID)
	payload, stage, err := s.generateCourseStaged(ctx, userID, req, progress)
	stopHeartbeat()
	if err != nil {
		fail(stage, err)
		return
	}

	// Placeholder course already exists; fill it in and attach modules.
	progress("persist", 80, "Saving course and modules")
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"title_en":       payload.TitleEn,
			"title_es":       payload.TitleEs,
			"description_en": payload.DescriptionEn,
			"description_es": payload.DescriptionEs,
			"metadata":       datatypes.JSON([]byte(`{"status":"ready"}`)),
			"updated_at":     time.Now(),
		}
		if err := s.courseRepo.UpdateFields(ctx, tx, run.CourseID, updates); err != nil {
			return fmt.Errorf("update course: %w", err)
		}

		// Retries may have persisted modules already.
		count, err := s.moduleRepo.CountByCourseID(ctx, tx, run.CourseID)
		if err != nil {
			return fmt.Errorf("count modules: %w", err)
		}
		if count > 0 {
			return nil
		}

		now := time.Now()
		modules := make([]*types.CourseModule, 0, len(payload.Modules))
		for i, m := range payload.Modules {
			modules = append(modules, &types.CourseModule{
				ID:               uuid.New(),
				CourseID:         run.CourseID,
				Index:            i,
				TitleEn:          m.TitleEn,
				TitleEs:          m.TitleEs,
				BodyEn:           m.BodyEn,
				BodyEs:           m.BodyEs,
				EstimatedMinutes: m.EstimatedMinutes,
				Metadata:         datatypes.JSON([]byte(`{}`)),
				CreatedAt:        now,
				UpdatedAt:        now,
			})
		}
		if _, err := s.moduleRepo.Create(ctx, tx, modules); err != nil {
			return fmt.Errorf("create modules: %w", err)
		}
		return nil
	})
	if err != nil {
		fail("persist", err)
		return
	}

	progress("cover", 90, "Requesting cover image")
	s.startCoverImage(run.CourseID, run.Topic)

	now := time.Now()
	_ = s.runRepo.UpdateFields(ctx, nil, runID, map[string]interface{}{
		"status":       "succeeded",
		"stage":        "done",
		"progress":     100,
		"error":        "",
		"locked_at":    nil,
		"heartbeat_at": now,
	})
	s.hub.BroadcastToUser(userID, events.EventGenerationStatus, map[string]any{
		"run_id":    runID,
		"stage":     "done",
		"progress":  100,
		"course_id": run.CourseID,
	})
}

// startCoverImage requests a cover asynchronously; courses ship without a
// cover when the image provider fails.
func (s *courseGenService) startCoverImage(courseID uuid.UUID, topic string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		prompt := fmt.Sprintf("Abstract, modern illustration for an online course about %s. No text.", topic)
		url, err := s.ai.GenerateImage(ctx, prompt)
		if err != nil {
			s.log.Warn("cover image generation failed", "course_id", courseID, "error", err)
			return
		}
		if err := s.courseRepo.UpdateFields(ctx, nil, courseID, map[string]interface{}{
			"cover_image_url": url,
			"updated_at":      time.Now(),
		}); err != nil {
			s.log.Warn("cover image update failed", "course_id", courseID, "error", err)
		}
	}()
}
