package archive

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/faq-assistant-kernel/internal/jsonx"
)

const (
	historyKeyPrefix = "chat:history:"
	newQuestionsKey  = "chat:new_questions"
	// maxStoredTurns caps the persisted history per user.
	maxStoredTurns = 200
)

// RedisSink stores exchange records in Redis lists: one per-user
// history list, plus a shared list of low-confidence questions for
// admin review.
type RedisSink struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSink creates a Redis-backed sink.
func NewRedisSink(client *redis.Client, logger *zap.Logger) *RedisSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSink{client: client, logger: logger}
}

// Name returns the sink label.
func (s *RedisSink) Name() string {
	return "redis"
}

// Save appends the record to the user's history list and, when the
// exchange was flagged as a new question, to the admin review list.
func (s *RedisSink) Save(ctx context.Context, rec Record) error {
	data, err := jsonx.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := historyKeyPrefix + rec.UserID
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxStoredTurns, -1)
	if rec.IsNewQuestion {
		pipe.RPush(ctx, newQuestionsKey, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis write failed: %w", err)
	}
	return nil
}

// History returns the stored records for a user, oldest first. A user
// with no history gets an empty slice.
func (s *RedisSink) History(ctx context.Context, userID string) ([]Record, error) {
	items, err := s.client.LRange(ctx, historyKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read failed: %w", err)
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := jsonx.Unmarshal([]byte(item), &rec); err != nil {
			s.logger.Warn("Skipping unreadable archived record", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ClearHistory drops a user's stored history.
func (s *RedisSink) ClearHistory(ctx context.Context, userID string) error {
	return s.client.Del(ctx, historyKeyPrefix+userID).Err()
}

// NewQuestions returns up to limit flagged low-confidence records,
// oldest first.
func (s *RedisSink) NewQuestions(ctx context.Context, limit int64) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	items, err := s.client.LRange(ctx, newQuestionsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read failed: %w", err)
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := jsonx.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
