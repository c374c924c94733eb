package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-rehearsal-service/internal/domain"
)

// StateStore keeps selection history and session progress in Redis as JSON
// values keyed by (userID, topicID).
//
// Progress entries carry a TTL equal to the restoration freshness window,
// so an expired snapshot simply disappears instead of being filtered out
// on read. History has no TTL; it only steers repeat avoidance.
type StateStore struct {
	client      *redis.Client
	progressTTL time.Duration
}

func NewStateStore(client *redis.Client, progressTTL time.Duration) *StateStore {
	return &StateStore{client: client, progressTTL: progressTTL}
}

func (s *StateStore) GetHistory(ctx context.Context, userID, topicID string) (domain.SelectionHistory, bool, error) {
	var h domain.SelectionHistory
	ok, err := s.getJSON(ctx, historyKey(userID, topicID), &h)
	return h, ok, err
}

func (s *StateStore) PutHistory(ctx context.Context, userID, topicID string, h domain.SelectionHistory) error {
	return s.setJSON(ctx, historyKey(userID, topicID), h, 0)
}

func (s *StateStore) GetProgress(ctx context.Context, userID, topicID string) (domain.Progress, bool, error) {
	var p domain.Progress
	ok, err := s.getJSON(ctx, progressKey(userID, topicID), &p)
	return p, ok, err
}

func (s *StateStore) PutProgress(ctx context.Context, userID, topicID string, p domain.Progress) error {
	return s.setJSON(ctx, progressKey(userID, topicID), p, s.progressTTL)
}

func (s *StateStore) ClearProgress(ctx context.Context, userID, topicID string) error {
	if err := s.client.Del(ctx, progressKey(userID, topicID)).Err(); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

func (s *StateStore) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *StateStore) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func historyKey(userID, topicID string) string {
	return "interview:history:" + userID + ":" + topicID
}

func progressKey(userID, topicID string) string {
	return "interview:progress:" + userID + ":" + topicID
}
