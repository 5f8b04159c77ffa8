package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	redisclient "github.com/aiverso/aiverso-backend/internal/clients/redis"
	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/types"
)

func TestBadgeEarned(t *testing.T) {
	cases := []struct {
		name  string
		badge types.Badge
		stats BadgeStats
		want  bool
	}{
		{
			name:  "xp threshold met",
			badge: types.Badge{TriggerKind: types.BadgeTriggerXPTotal, Threshold: 100},
			stats: BadgeStats{TotalXP: 100},
			want:  true,
		},
		{
			name:  "xp threshold not met",
			badge: types.Badge{TriggerKind: types.BadgeTriggerXPTotal, Threshold: 100},
			stats: BadgeStats{TotalXP: 99},
			want:  false,
		},
		{
			name:  "courses completed met",
			badge: types.Badge{TriggerKind: types.BadgeTriggerCoursesCompleted, Threshold: 1},
			stats: BadgeStats{CoursesCompleted: 2},
			want:  true,
		},
		{
			name:  "streak met exactly",
			badge: types.Badge{TriggerKind: types.BadgeTriggerStreakDays, Threshold: 7},
			stats: BadgeStats{StreakDays: 7},
			want:  true,
		},
		{
			name:  "reviews not met",
			badge: types.Badge{TriggerKind: types.BadgeTriggerReviewsWritten, Threshold: 3},
			stats: BadgeStats{ReviewsWritten: 2},
			want:  false,
		},
		{
			name:  "unknown trigger never earns",
			badge: types.Badge{TriggerKind: "mystery", Threshold: 0},
			stats: BadgeStats{TotalXP: 99999},
			want:  false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BadgeEarned(&tc.badge, tc.stats); got != tc.want {
				t.Fatalf("BadgeEarned = %v, want %v", got, tc.want)
			}
		})
	}

	if BadgeEarned(nil, BadgeStats{TotalXP: 1000}) {
		t.Fatal("nil badge should never be earned")
	}
}

func TestDefaultBadgesCatalog(t *testing.T) {
	badges := DefaultBadges()
	if len(badges) == 0 {
		t.Fatal("expected a non-empty badge catalog")
	}

	seen := make(map[string]bool, len(badges))
	for _, b := range badges {
		if b.Slug == "" {
			t.Fatal("badge with empty slug")
		}
		if seen[b.Slug] {
			t.Fatalf("duplicate badge slug %q", b.Slug)
		}
		seen[b.Slug] = true
		if b.NameEn == "" || b.NameEs == "" {
			t.Fatalf("badge %q missing a localized name", b.Slug)
		}
		if b.Threshold <= 0 {
			t.Fatalf("badge %q has non-positive threshold %d", b.Slug, b.Threshold)
		}
	}
}

// fakeLeaderboard serves canned rankings without redis.
type fakeLeaderboard struct {
	top   []redisclient.LeaderboardEntry
	ranks map[string]*redisclient.LeaderboardEntry
}

func (f *fakeLeaderboard) AddXP(ctx context.Context, userID string, amount int) error { return nil }

func (f *fakeLeaderboard) Top(ctx context.Context, limit int) ([]redisclient.LeaderboardEntry, error) {
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeLeaderboard) RankOf(ctx context.Context, userID string) (*redisclient.LeaderboardEntry, error) {
	return f.ranks[userID], nil
}

func (f *fakeLeaderboard) Close() error { return nil }

func TestGetLeaderboardViewerRank(t *testing.T) {
	first := uuid.New()
	outside := uuid.New()
	fake := &fakeLeaderboard{
		top: []redisclient.LeaderboardEntry{
			{UserID: first.String(), XP: 900, Rank: 1},
		},
		ranks: map[string]*redisclient.LeaderboardEntry{
			first.String():   {UserID: first.String(), XP: 900, Rank: 1},
			outside.String(): {UserID: outside.String(), XP: 40, Rank: 57},
		},
	}
	gs := &gamificationService{
		log:         logger.NewNop().With("service", "GamificationService"),
		leaderboard: fake,
	}

	t.Run("anonymous viewer", func(t *testing.T) {
		entries, me, err := gs.GetLeaderboard(context.Background(), nil, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 || me != nil {
			t.Fatalf("entries = %d, me = %v, want 1 and nil", len(entries), me)
		}
	})

	t.Run("viewer outside the top", func(t *testing.T) {
		_, me, err := gs.GetLeaderboard(context.Background(), &outside, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if me == nil || me.Rank != 57 || me.XP != 40 {
			t.Fatalf("me = %+v, want rank 57 with 40 xp", me)
		}
	})

	t.Run("unranked viewer", func(t *testing.T) {
		unknown := uuid.New()
		_, me, err := gs.GetLeaderboard(context.Background(), &unknown, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if me != nil {
			t.Fatalf("me = %+v, want nil for unranked viewer", me)
		}
	})

	t.Run("no leaderboard configured", func(t *testing.T) {
		none := &gamificationService{log: logger.NewNop()}
		entries, me, err := none.GetLeaderboard(context.Background(), &outside, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 0 || me != nil {
			t.Fatalf("entries = %d, me = %v, want empty and nil", len(entries), me)
		}
	})
}
