package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aiverso/aiverso-backend/internal/logger"
)

// LeaderboardEntry is one ranked row from the XP sorted set.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
	Rank   int    `json:"rank"`
}

type Leaderboard interface {
	AddXP(ctx context.Context, userID string, amount int) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	RankOf(ctx context.Context, userID string) (*LeaderboardEntry, error)
	Close() error
}

type leaderboard struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

func NewLeaderboard(log *logger.Logger) (Leaderboard, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("REDIS_LEADERBOARD_KEY"))
	if key == "" {
		key = "xp:leaderboard"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &leaderboard{
		log: log.With("service", "RedisLeaderboard"),
		rdb: rdb,
		key: key,
	}, nil
}

func (l *leaderboard) AddXP(ctx context.Context, userID string, amount int) error {
	if userID == "" || amount == 0 {
		return nil
	}
	return l.rdb.ZIncrBy(ctx, l.key, float64(amount), userID).Err()
}

func (l *leaderboard) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := l.rdb.ZRevRangeWithScores(ctx, l.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(rows))
	for i, z := range rows {
		member, _ := z.Member.(string)
		out = append(out, LeaderboardEntry{
			UserID: member,
			XP:     int(z.Score),
			Rank:   i + 1,
		})
	}
	return out, nil
}

func (l *leaderboard) RankOf(ctx context.Context, userID string) (*LeaderboardEntry, error) {
	if userID == "" {
		return nil, nil
	}
	rank, err := l.rdb.ZRevRank(ctx, l.key, userID).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	score, err := l.rdb.ZScore(ctx, l.key, userID).Result()
	if err != nil && err != goredis.Nil {
		return nil, err
	}
	return &LeaderboardEntry{
		UserID: userID,
		XP:     int(score),
		Rank:   int(rank) + 1,
	}, nil
}

func (l *leaderboard) Close() error {
	return l.rdb.Close()
}
