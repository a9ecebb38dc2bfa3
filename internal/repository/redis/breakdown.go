package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/babo/internal/domain"
)

const keyPrefix = "breakdown:"

const fieldAverageSum = "average_sum"

// BreakdownStore implements repository.BreakdownStore as one Redis hash per
// book. Add applies HINCRBY per field inside a MULTI so several agent
// processes can fold into the same book concurrently.
type BreakdownStore struct {
	client *redis.Client
}

// NewBreakdownStore creates a new Redis-backed breakdown store.
func NewBreakdownStore(client *redis.Client) *BreakdownStore {
	return &BreakdownStore{client: client}
}

func starField(stars int) string {
	return "stars:" + strconv.Itoa(stars)
}

func sumField(category string) string {
	return "sum:" + category
}

func countField(category string) string {
	return "count:" + category
}

// fields flattens a breakdown into hash fields, skipping zero counters.
func fields(b domain.Breakdown) map[string]int64 {
	out := make(map[string]int64)
	for i, c := range b.Stars {
		if c != 0 {
			out[starField(i+1)] = c
		}
	}
	for i, name := range domain.Categories {
		if b.CategorySum[i] != 0 {
			out[sumField(name)] = b.CategorySum[i]
		}
		if b.CategoryCount[i] != 0 {
			out[countField(name)] = b.CategoryCount[i]
		}
	}
	if b.AverageSum != 0 {
		out[fieldAverageSum] = b.AverageSum
	}
	return out
}

// Get reads the hash for isbn.
func (s *BreakdownStore) Get(ctx context.Context, isbn string) (domain.Breakdown, error) {
	var b domain.Breakdown

	raw, err := s.client.HGetAll(ctx, keyPrefix+isbn).Result()
	if err != nil {
		return b, fmt.Errorf("redis hgetall breakdown: %w", err)
	}

	parse := func(field string) (int64, error) {
		v, ok := raw[field]
		if !ok {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse breakdown field %s: %w", field, err)
		}
		return n, nil
	}

	for i := range b.Stars {
		if b.Stars[i], err = parse(starField(i + 1)); err != nil {
			return domain.Breakdown{}, err
		}
	}
	for i, name := range domain.Categories {
		if b.CategorySum[i], err = parse(sumField(name)); err != nil {
			return domain.Breakdown{}, err
		}
		if b.CategoryCount[i], err = parse(countField(name)); err != nil {
			return domain.Breakdown{}, err
		}
	}
	if b.AverageSum, err = parse(fieldAverageSum); err != nil {
		return domain.Breakdown{}, err
	}

	return b, nil
}

// Add increments the stored counters by delta atomically.
func (s *BreakdownStore) Add(ctx context.Context, isbn string, delta domain.Breakdown) error {
	incr := fields(delta)
	if len(incr) == 0 {
		return nil
	}

	key := keyPrefix + isbn
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for field, n := range incr {
			pipe.HIncrBy(ctx, key, field, n)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hincrby breakdown: %w", err)
	}

	return nil
}

// Replace swaps the stored hash for b in one transaction.
func (s *BreakdownStore) Replace(ctx context.Context, isbn string, b domain.Breakdown) error {
	key := keyPrefix + isbn
	values := fields(b)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			args := make(map[string]any, len(values))
			for field, n := range values {
				args[field] = n
			}
			pipe.HSet(ctx, key, args)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace breakdown: %w", err)
	}

	return nil
}
