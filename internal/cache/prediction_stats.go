package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	redisv9 "github.com/redis/go-redis/v9"

	"docsort/internal/label"
	"docsort/internal/model"
)

const defaultStatsPrefix = "docsort:stats"

// PredictionStats keeps per-label counters in redis. Only counts are stored,
// never uploads or individual results.
type PredictionStats struct {
	client redisv9.Cmdable
	prefix string
}

func NewPredictionStats(client redisv9.Cmdable, prefix string) *PredictionStats {
	if prefix == "" {
		prefix = defaultStatsPrefix
	}
	return &PredictionStats{client: client, prefix: prefix}
}

func (s *PredictionStats) Record(ctx context.Context, p model.Prediction) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.HIncrBy(ctx, s.labelsKey(), p.Label, 1)
		pipe.Incr(ctx, s.totalKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record prediction failed: %w", err)
	}
	return nil
}

func (s *PredictionStats) Snapshot(ctx context.Context) (*model.PredictionStats, error) {
	raw, err := s.client.HGetAll(ctx, s.labelsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get label counters failed: %w", err)
	}
	// Every known label is reported, even before its first prediction.
	stats := &model.PredictionStats{Labels: make(map[string]int64, label.Count+1)}
	for _, l := range label.All() {
		stats.Labels[l.Name()] = 0
	}
	for name, value := range raw {
		// Skip fields that are neither a label nor "unknown".
		if !label.FromName(name).Known() && name != label.Unknown.Name() {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse counter %s: %w", name, err)
		}
		stats.Labels[name] = n
	}

	total, err := s.client.Get(ctx, s.totalKey()).Int64()
	if err != nil && !errors.Is(err, redisv9.Nil) {
		return nil, fmt.Errorf("redis get total counter failed: %w", err)
	}
	stats.Total = total
	return stats, nil
}

func (s *PredictionStats) labelsKey() string {
	return s.prefix + ":label"
}

func (s *PredictionStats) totalKey() string {
	return s.prefix + ":total"
}
