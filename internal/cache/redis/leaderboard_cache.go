package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

// leaderboardKey is the sorted set holding team portfolio values. Members are
// team IDs scored by total portfolio value.
const leaderboardKey = "leaderboard:portfolio"

// LeaderboardCache implements domain.LeaderboardCache using a Redis sorted
// set. Scores are float64, which is fine here: the leaderboard orders teams,
// it does not settle money.
type LeaderboardCache struct {
	rdb *redis.Client
}

// NewLeaderboardCache creates a LeaderboardCache backed by the given Client.
func NewLeaderboardCache(c *Client) *LeaderboardCache {
	return &LeaderboardCache{rdb: c.Underlying()}
}

// SetValue records a team's portfolio value.
func (lc *LeaderboardCache) SetValue(ctx context.Context, teamID string, value decimal.Decimal) error {
	score, _ := value.Float64()
	err := lc.rdb.ZAdd(ctx, leaderboardKey, redis.Z{Score: score, Member: teamID}).Err()
	if err != nil {
		return fmt.Errorf("redis: leaderboard set %s: %w", teamID, err)
	}
	return nil
}

// Top returns the IDs of the n highest-valued teams, best first.
func (lc *LeaderboardCache) Top(ctx context.Context, n int64) ([]string, error) {
	ids, err := lc.rdb.ZRevRange(ctx, leaderboardKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: leaderboard top: %w", err)
	}
	return ids, nil
}

// Clear drops the whole leaderboard. Ranking reads fall back to the stores
// until the next valuation pass repopulates it.
func (lc *LeaderboardCache) Clear(ctx context.Context) error {
	if err := lc.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		return fmt.Errorf("redis: leaderboard clear: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LeaderboardCache = (*LeaderboardCache)(nil)
