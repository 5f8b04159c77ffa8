package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/platform/apierr"
	"github.com/aiverso/aiverso-backend/internal/repos"
)

func TestModuleCountRange(t *testing.T) {
	cases := []struct {
		duration         string
		min, max, target int
		ok               bool
	}{
		{"short", 2, 3, 3, true},
		{"medium", 4, 6, 5, true},
		{"long", 7, 10, 8, true},
		{"weekend", 0, 0, 0, false},
		{"", 0, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.duration, func(t *testing.T) {
			min, max, target, ok := ModuleCountRange(tc.duration)
			if min != tc.min || max != tc.max || target != tc.target || ok != tc.ok {
				t.Fatalf("ModuleCountRange(%q) = (%d,%d,%d,%v), want (%d,%d,%d,%v)",
					tc.duration, min, max, target, ok, tc.min, tc.max, tc.target, tc.ok)
			}
		})
	}
}

func TestValidateGenerateRequest(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		req := GenerateCourseRequest{Topic: "  transformers  "}
		if err := validateGenerateRequest(&req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Topic != "transformers" {
			t.Fatalf("topic = %q, want trimmed", req.Topic)
		}
		if req.Difficulty != DifficultyBeginner || req.Duration != DurationMedium || req.Locale != "en" {
			t.Fatalf("defaults not applied: %+v", req)
		}
	})

	errCases := []struct {
		name string
		req  GenerateCourseRequest
		code string
	}{
		{"empty topic", GenerateCourseRequest{Topic: "   "}, "invalid_topic"},
		{"bad difficulty", GenerateCourseRequest{Topic: "nlp", Difficulty: "expert"}, "invalid_difficulty"},
		{"bad duration", GenerateCourseRequest{Topic: "nlp", Duration: "forever"}, "invalid_duration"},
		{"bad locale", GenerateCourseRequest{Topic: "nlp", Locale: "fr"}, "invalid_locale"},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateGenerateRequest(&tc.req)
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *apierr.Error", err)
			}
			if apiErr.Status != 400 || apiErr.Code != tc.code {
				t.Fatalf("got (%d, %q), want (400, %q)", apiErr.Status, apiErr.Code, tc.code)
			}
		})
	}
}

// stubGenerator satisfies TextGenerator without any HTTP calls.
type stubGenerator struct {
	generateJSON func(ctx context.Context) (string, error)
}

func (s *stubGenerator) GenerateJSON(ctx context.Context, userID *uuid.UUID, purpose, system, user string) (string, error) {
	return s.generateJSON(ctx)
}

func (s *stubGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("no image provider in tests")
}

func stubCoursePayload(moduleCount int) string {
	payload := generatedCoursePayload{
		TitleEn:       "Intro to Transformers",
		TitleEs:       "Introducción a los Transformers",
		DescriptionEn: "Attention from scratch.",
		DescriptionEs: "Atención desde cero.",
	}
	for i := 0; i < moduleCount; i++ {
		payload.Modules = append(payload.Modules, generatedModulePayload{
			TitleEn: fmt.Sprintf("Module %d", i+1),
			TitleEs: fmt.Sprintf("Módulo %d", i+1),
			BodyEn:  "Lesson body.",
			BodyEs:  "Cuerpo de la lección.",
		})
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func newTestGenService(ai TextGenerator, cfg CourseGenConfig) *courseGenService {
	return &courseGenService{
		log: logger.NewNop().With("service", "CourseGenService"),
		cfg: cfg,
		ai:  ai,
	}
}

func TestGenerateCourseContent(t *testing.T) {
	t.Run("happy path fenced output", func(t *testing.T) {
		ai := &stubGenerator{generateJSON: func(ctx context.Context) (string, error) {
			return "```json\n" + stubCoursePayload(5) + "\n```", nil
		}}
		s := newTestGenService(ai, DefaultCourseGenConfig())

		payload, err := s.generateCourseContent(context.Background(), uuid.New(), GenerateCourseRequest{
			Topic: "transformers", Difficulty: DifficultyBeginner, Duration: DurationMedium, Locale: "en",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payload.TitleEn != "Intro to Transformers" {
			t.Fatalf("title_en = %q", payload.TitleEn)
		}
		if len(payload.Modules) != 5 {
			t.Fatalf("module count = %d, want 5", len(payload.Modules))
		}
		for i, m := range payload.Modules {
			if m.EstimatedMinutes != 10 {
				t.Fatalf("module %d estimated_minutes = %d, want default 10", i, m.EstimatedMinutes)
			}
		}
	})

	t.Run("module count outside range", func(t *testing.T) {
		ai := &stubGenerator{generateJSON: func(ctx context.Context) (string, error) {
			return stubCoursePayload(2), nil // medium wants 4-6
		}}
		s := newTestGenService(ai, DefaultCourseGenConfig())

		_, err := s.generateCourseContent(context.Background(), uuid.New(), GenerateCourseRequest{
			Topic: "transformers", Difficulty: DifficultyBeginner, Duration: DurationMedium, Locale: "en",
		})
		if !errors.Is(err, ErrMalformedModelJSON) {
			t.Fatalf("err = %v, want ErrMalformedModelJSON", err)
		}
	})

	t.Run("missing title", func(t *testing.T) {
		ai := &stubGenerator{generateJSON: func(ctx context.Context) (string, error) {
			return `{"title_en":"","modules":[]}`, nil
		}}
		s := newTestGenService(ai, DefaultCourseGenConfig())

		_, err := s.generateCourseContent(context.Background(), uuid.New(), GenerateCourseRequest{
			Topic: "nlp", Difficulty: DifficultyBeginner, Duration: DurationShort, Locale: "en",
		})
		if !errors.Is(err, ErrMalformedModelJSON) {
			t.Fatalf("err = %v, want ErrMalformedModelJSON", err)
		}
	})
}

func TestGenerateSimpleTimeout(t *testing.T) {
	ai := &stubGenerator{generateJSON: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	cfg := DefaultCourseGenConfig()
	cfg.SyncTimeout = 20 * time.Millisecond
	s := newTestGenService(ai, cfg)

	_, _, err := s.GenerateSimple(context.Background(), uuid.New(), GenerateCourseRequest{Topic: "agents"})
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *apierr.Error", err)
	}
	if apiErr.Status != 504 || apiErr.Code != "generation_timeout" {
		t.Fatalf("got (%d, %q), want (504, generation_timeout)", apiErr.Status, apiErr.Code)
	}
}

func TestGenerateSimpleMalformed(t *testing.T) {
	ai := &stubGenerator{generateJSON: func(ctx context.Context) (string, error) {
		return "I'm sorry, I can't produce that.", nil
	}}
	s := newTestGenService(ai, DefaultCourseGenConfig())

	_, _, err := s.GenerateSimple(context.Background(), uuid.New(), GenerateCourseRequest{Topic: "agents"})
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *apierr.Error", err)
	}
	if apiErr.Status != 500 || apiErr.Code != "generation_malformed" {
		t.Fatalf("got (%d, %q), want (500, generation_malformed)", apiErr.Status, apiErr.Code)
	}
}

// countingRunRepo counts Heartbeat calls; the rest is unused.
type countingRunRepo struct {
	repos.CourseGenerationRunRepo

	mu         sync.Mutex
	heartbeats int
}

func (r *countingRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heartbeats++
	return nil
}

func (r *countingRunRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heartbeats
}

func TestKeepAliveHeartbeats(t *testing.T) {
	repo := &countingRunRepo{}
	cfg := DefaultCourseGenConfig()
	cfg.StaleRunning = 40 * time.Millisecond // tick every 10ms
	s := newTestGenService(nil, cfg)
	s.runRepo = repo

	stop := s.keepAlive(context.Background(), uuid.New())
	deadline := time.Now().Add(time.Second)
	for repo.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	stop()

	got := repo.count()
	if got < 2 {
		t.Fatalf("heartbeats = %d, want at least 2", got)
	}
	// stop must halt the ticker.
	time.Sleep(50 * time.Millisecond)
	if after := repo.count(); after != got {
		t.Fatalf("heartbeats after stop = %d, want %d", after, got)
	}
}

// scriptedGenerator pops a queued response per call and records the
// purpose of each call.
type scriptedGenerator struct {
	responses []string
	purposes  []string
}

func (s *scriptedGenerator) GenerateJSON(ctx context.Context, userID *uuid.UUID, purpose, system, user string) (string, error) {
	s.purposes = append(s.purposes, purpose)
	if len(s.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("no image provider in tests")
}

func stubOutlinePayload(moduleCount int) string {
	payload := generatedOutlinePayload{
		TitleEn:       "Intro to Transformers",
		DescriptionEn: "Attention from scratch.",
	}
	for i := 0; i < moduleCount; i++ {
		payload.Modules = append(payload.Modules, struct {
			TitleEn string `json:"title_en"`
		}{TitleEn: fmt.Sprintf("Module %d", i+1)})
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func stubBodiesPayload(moduleCount int) string {
	var payload generatedBodiesPayload
	for i := 0; i < moduleCount; i++ {
		payload.Modules = append(payload.Modules, struct {
			BodyEn           string `json:"body_en"`
			EstimatedMinutes int    `json:"estimated_minutes"`
		}{BodyEn: "Lesson body.", EstimatedMinutes: 12})
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func stubTranslationPayload(moduleCount int) string {
	payload := translatedCoursePayload{
		TitleEs:       "Introducción a los Transformers",
		DescriptionEs: "Atención desde cero.",
	}
	for i := 0; i < moduleCount; i++ {
		payload.Modules = append(payload.Modules, struct {
			TitleEs string `json:"title_es"`
			BodyEs  string `json:"body_es"`
		}{TitleEs: fmt.Sprintf("Módulo %d", i+1), BodyEs: "Cuerpo de la lección."})
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestGenerateCourseStaged(t *testing.T) {
	noProgress := func(stage string, pct int, msg string) {}

	t.Run("assembles outline, bodies and translation", func(t *testing.T) {
		ai := &scriptedGenerator{responses: []string{
			stubOutlinePayload(5),
			stubBodiesPayload(5),
			stubTranslationPayload(5),
		}}
		s := newTestGenService(ai, DefaultCourseGenConfig())

		var stages []string
		payload, stage, err := s.generateCourseStaged(context.Background(), uuid.New(), GenerateCourseRequest{
			Topic: "transformers", Difficulty: DifficultyBeginner, Duration: DurationMedium, Locale: "en",
		}, func(stage string, pct int, msg string) { stages = append(stages, stage) })
		if err != nil {
			t.Fatalf("unexpected error (stage %q): %v", stage, err)
		}
		wantPurposes := []string{"course_outline", "course_modules", "course_translation"}
		if len(ai.purposes) != len(wantPurposes) {
			t.Fatalf("purposes = %v, want %v", ai.purposes, wantPurposes)
		}
		for i, p := range wantPurposes {
			if ai.purposes[i] != p {
				t.Fatalf("purposes = %v, want %v", ai.purposes, wantPurposes)
			}
		}
		wantStages := []string{"outline", "modules", "translate"}
		if len(stages) != len(wantStages) {
			t.Fatalf("stages = %v, want %v", stages, wantStages)
		}
		if payload.TitleEn != "Intro to Transformers" || payload.TitleEs != "Introducción a los Transformers" {
			t.Fatalf("titles = (%q, %q)", payload.TitleEn, payload.TitleEs)
		}
		if len(payload.Modules) != 5 {
			t.Fatalf("module count = %d, want 5", len(payload.Modules))
		}
		for i, m := range payload.Modules {
			if m.TitleEn == "" || m.TitleEs == "" || m.BodyEn == "" || m.BodyEs == "" {
				t.Fatalf("module %d incomplete: %+v", i, m)
			}
			if m.EstimatedMinutes != 12 {
				t.Fatalf("module %d estimated_minutes = %d, want 12", i, m.EstimatedMinutes)
			}
		}
	})

	t.Run("outline module count outside range", func(t *testing.T) {
		ai := &scriptedGenerator{responses: []string{stubOutlinePayload(2)}} // medium wants 4-6
		s := newTestGenService(ai, DefaultCourseGenConfig())

		_, stage, err := s.generateCourseStaged(context.Background(), uuid.New(), GenerateCourseRequest{
			Topic: "transformers", Difficulty: DifficultyBeginner, Duration: DurationMedium, Locale: "en",
		}, noProgress)
		if !errors.Is(err, ErrMalformedModelJSON) {
			t.Fatalf("err = %v, want ErrMalformedModelJSON", err)
		}
		if stage != "outline" {
			t.Fatalf("stage = %q, want outline", stage)
		}
	})

	t.Run("body count mismatch", func(t *testing.T) {
		ai := &scriptedGenerator{responses: []string{
			stubOutlinePayload(4),
			stubBodiesPayload(3),
		}}
		s := newTestGenService(ai, DefaultCourseGenConfig())

		_, stage, err := s.generateCourseStaged(context.Background(), uuid.New(), GenerateCourseRequest{
			Topic: "transformers", Difficulty: DifficultyBeginner, Duration: DurationMedium, Locale: "en",
		}, noProgress)
		if !errors.Is(err, ErrMalformedModelJSON) {
			t.Fatalf("err = %v, want ErrMalformedModelJSON", err)
		}
		if stage != "modules" {
			t.Fatalf("stage = %q, want modules", stage)
		}
	})

	t.Run("translation count mismatch", func(t *testing.T) {
		ai := &scriptedGenerator{responses: []string{
			stubOutlinePayload(4),
			stubBodiesPayload(4),
			stubTranslationPayload(2),
		}}
		s := newTestGenService(ai, DefaultCourseGenConfig())

		_, stage, err := s.generateCourseStaged(context.Background(), uuid.New(), GenerateCourseRequest{
			Topic: "transformers", Difficulty: DifficultyBeginner, Duration: DurationMedium, Locale: "en",
		}, noProgress)
		if !errors.Is(err, ErrMalformedModelJSON) {
			t.Fatalf("err = %v, want ErrMalformedModelJSON", err)
		}
		if stage != "translate" {
			t.Fatalf("stage = %q, want translate", stage)
		}
	})
}
