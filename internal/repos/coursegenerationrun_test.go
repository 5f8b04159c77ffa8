package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/repos/testutil"
	"github.com/aiverso/aiverso-backend/internal/types"
)

func seedRun(tb testing.TB, tx *gorm.DB, status string, attempts int, createdAt time.Time, mutate func(*types.CourseGenerationRun)) *types.CourseGenerationRun {
	tb.Helper()
	run := &types.CourseGenerationRun{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		CourseID:   uuid.New(),
		Topic:      "transformers",
		Difficulty: "beginner",
		Duration:   "short",
		Locale:     "en",
		Status:     status,
		Stage:      "prompt",
		Attempts:   attempts,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if mutate != nil {
		mutate(run)
	}
	if err := tx.Create(run).Error; err != nil {
		tb.Fatalf("seed run: %v", err)
	}
	return run
}

func TestClaimNextRunnable(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	const maxAttempts = 5
	retryDelay := 30 * time.Second
	staleRunning := 2 * time.Minute

	t.Run("claims queued run and marks it running", func(t *testing.T) {
		tx := testutil.Tx(t, db)
		repo := repos.NewCourseGenerationRunRepo(db, log)

		run := seedRun(t, tx, "queued", 0, time.Now(), nil)

		claimed, err := repo.ClaimNextRunnable(ctx, tx, maxAttempts, retryDelay, staleRunning)
		if err != nil {
			t.Fatalf("ClaimNextRunnable: %v", err)
		}
		if claimed == nil || claimed.ID != run.ID {
			t.Fatalf("claimed = %+v, want run %s", claimed, run.ID)
		}

		var after types.CourseGenerationRun
		if err := tx.First(&after, "id = ?", run.ID).Error; err != nil {
			t.Fatalf("reload run: %v", err)
		}
		if after.Status != "running" {
			t.Fatalf("status = %q, want running", after.Status)
		}
		if after.Attempts != 1 {
			t.Fatalf("attempts = %d, want 1", after.Attempts)
		}
		if after.HeartbeatAt == nil || after.LockedAt == nil {
			t.Fatal("heartbeat_at and locked_at must be set on claim")
		}
	})

	t.Run("prefers the oldest runnable", func(t *testing.T) {
		tx := testutil.Tx(t, db)
		repo := repos.NewCourseGenerationRunRepo(db, log)

		older := seedRun(t, tx, "queued", 0, time.Now().Add(-time.Hour), nil)
		seedRun(t, tx, "queued", 0, time.Now(), nil)

		claimed, err := repo.ClaimNextRunnable(ctx, tx, maxAttempts, retryDelay, staleRunning)
		if err != nil {
			t.Fatalf("ClaimNextRunnable: %v", err)
		}
		if claimed == nil || claimed.ID != older.ID {
			t.Fatalf("claimed %v, want older run %s", claimed, older.ID)
		}
	})

	t.Run("retries failed run only after the delay", func(t *testing.T) {
		tx := testutil.Tx(t, db)
		repo := repos.NewCourseGenerationRunRepo(db, log)

		recent := time.Now()
		seedRun(t, tx, "failed", 1, time.Now().Add(-time.Hour), func(r *types.CourseGenerationRun) {
			r.LastErrorAt = &recent
		})

		claimed, err := repo.ClaimNextRunnable(ctx, tx, maxAttempts, retryDelay, staleRunning)
		if err != nil {
			t.Fatalf("ClaimNextRunnable: %v", err)
		}
		if claimed != nil {
			t.Fatalf("claimed a freshly failed run %s before the retry delay", claimed.ID)
		}

		old := time.Now().Add(-time.Hour)
		retryable := seedRun(t, tx, "failed", 1, time.Now().Add(-2*time.Hour), func(r *types.CourseGenerationRun) {
			r.LastErrorAt = &old
		})

		claimed, err = repo.ClaimNextRunnable(ctx, tx, maxAttempts, retryDelay, staleRunning)
		if err != nil {
			t.Fatalf("ClaimNextRunnable: %v", err)
		}
		if claimed == nil || claimed.ID != retryable.ID {
			t.Fatalf("claimed %v, want retryable run %s", claimed, retryable.ID)
		}
	})

	t.Run("exhausted runs stay failed", func(t *testing.T) {
		tx := testutil.Tx(t, db)
		repo := repos.NewCourseGenerationRunRepo(db, log)

		old := time.Now().Add(-time.Hour)
		seedRun(t, tx, "failed", maxAttempts, time.Now().Add(-2*time.Hour), func(r *types.CourseGenerationRun) {
			r.LastErrorAt = &old
		})

		claimed, err := repo.ClaimNextRunnable(ctx, tx, maxAttempts, retryDelay, staleRunning)
		if err != nil {
			t.Fatalf("ClaimNextRunnable: %v", err)
		}
		if claimed != nil {
			t.Fatalf("claimed run %s past max attempts", claimed.ID)
		}
	})

	t.Run("reclaims running run with stale heartbeat", func(t *testing.T) {
		tx := testutil.Tx(t, db)
		repo := repos.NewCourseGenerationRunRepo(db, log)

		fresh := time.Now()
		seedRun(t, tx, "running", 1, time.Now().Add(-time.Hour), func(r *types.CourseGenerationRun) {
			r.HeartbeatAt = &fresh
		})

		claimed, err := repo.ClaimNextRunnable(ctx, tx, maxAttempts, retryDelay, staleRunning)
		if err != nil {
			t.Fatalf("ClaimNextRunnable: %v", err)
		}
		if claimed != nil {
			t.Fatalf("claimed run %s with a live heartbeat", claimed.ID)
		}

		stale := time.Now().Add(-time.Hour)
		crashed := seedRun(t, tx, "running", 1, time.Now().Add(-2*time.Hour), func(r *types.CourseGenerationRun) {
			r.HeartbeatAt = &stale
		})

		claimed, err = repo.ClaimNextRunnable(ctx, tx, maxAttempts, retryDelay, staleRunning)
		if err != nil {
			t.Fatalf("ClaimNextRunnable: %v", err)
		}
		if claimed == nil || claimed.ID != crashed.ID {
			t.Fatalf("claimed %v, want crashed run %s", claimed, crashed.ID)
		}
	})

	t.Run("heartbeat only touches running runs", func(t *testing.T) {
		tx := testutil.Tx(t, db)
		repo := repos.NewCourseGenerationRunRepo(db, log)

		run := seedRun(t, tx, "queued", 0, time.Now(), nil)
		if err := repo.Heartbeat(ctx, tx, run.ID); err != nil {
			t.Fatalf("Heartbeat: %v", err)
		}

		var after types.CourseGenerationRun
		if err := tx.First(&after, "id = ?", run.ID).Error; err != nil {
			t.Fatalf("reload run: %v", err)
		}
		if after.HeartbeatAt != nil {
			t.Fatal("heartbeat written to a non-running run")
		}
	})
}
