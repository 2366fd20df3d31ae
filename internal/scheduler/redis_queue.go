package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue keeps entries in a sorted set scored by unix milliseconds.
// Attempts live in a companion hash so retries survive restarts, and buried
// missions in a companion set.
type RedisQueue struct {
	client      redis.UniversalClient
	key         string
	attemptsKey string
	buriedKey   string
}

func NewRedisQueue(client redis.UniversalClient, key string) *RedisQueue {
	return &RedisQueue{
		client:      client,
		key:         key,
		attemptsKey: key + ":attempts",
		buriedKey:   key + ":buried",
	}
}

func member(missionID int64) string {
	return strconv.FormatInt(missionID, 10)
}

func (q *RedisQueue) Push(ctx context.Context, e Entry) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, q.key, redis.Z{Score: float64(e.FireAt.UnixMilli()), Member: member(e.MissionID)})
		if e.Attempt > 0 {
			pipe.HSet(ctx, q.attemptsKey, member(e.MissionID), e.Attempt)
		} else {
			pipe.HDel(ctx, q.attemptsKey, member(e.MissionID))
		}
		pipe.SRem(ctx, q.buriedKey, member(e.MissionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push mission %d: %w", e.MissionID, err)
	}
	return nil
}

func (q *RedisQueue) Remove(ctx context.Context, missionID int64) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.key, member(missionID))
		pipe.HDel(ctx, q.attemptsKey, member(missionID))
		pipe.SRem(ctx, q.buriedKey, member(missionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove mission %d: %w", missionID, err)
	}
	return nil
}

// PopDue reads candidates by score and claims each with ZREM; only the caller
// whose ZREM removed the member owns the entry.
func (q *RedisQueue) PopDue(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	candidates, err := q.client.ZRangeByScoreWithScores(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read due missions: %w", err)
	}

	due := make([]Entry, 0, len(candidates))
	for _, z := range candidates {
		m, ok := z.Member.(string)
		if !ok {
			continue
		}
		missionID, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid queue member %q: %w", m, err)
		}

		removed, err := q.client.ZRem(ctx, q.key, m).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to claim mission %d: %w", missionID, err)
		}
		if removed == 0 {
			continue
		}

		attempt, err := q.client.HGet(ctx, q.attemptsKey, m).Int()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to read attempts of mission %d: %w", missionID, err)
		}
		q.client.HDel(ctx, q.attemptsKey, m)

		due = append(due, Entry{
			MissionID: missionID,
			FireAt:    time.UnixMilli(int64(z.Score)).UTC(),
			Attempt:   attempt,
		})
	}
	return due, nil
}

func (q *RedisQueue) Contains(ctx context.Context, missionID int64) (bool, error) {
	_, err := q.client.ZScore(ctx, q.key, member(missionID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up mission %d: %w", missionID, err)
	}
	return true, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.ZCard(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count queued missions: %w", err)
	}
	return int(n), nil
}

func (q *RedisQueue) Bury(ctx context.Context, missionID int64) error {
	if err := q.client.SAdd(ctx, q.buriedKey, member(missionID)).Err(); err != nil {
		return fmt.Errorf("failed to bury mission %d: %w", missionID, err)
	}
	return nil
}

func (q *RedisQueue) Buried(ctx context.Context, missionID int64) (bool, error) {
	buried, err := q.client.SIsMember(ctx, q.buriedKey, member(missionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up buried mission %d: %w", missionID, err)
	}
	return buried, nil
}
