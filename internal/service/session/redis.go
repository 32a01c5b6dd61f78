package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	model "github.com/zhouzirui/seance/backend/internal/model/session"
)

const (
	defaultRedisTTL          = 24 * time.Hour
	defaultMaxStoredMessages = 200
)

// redisStore keeps a session as a JSON string and its messages as a capped
// list. Every write refreshes the TTL of the keys it touches.
type redisStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxMessages int64
}

func newRedisStore(client *redis.Client, ttl time.Duration, maxMessages int) *redisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if maxMessages <= 0 {
		maxMessages = defaultMaxStoredMessages
	}
	return &redisStore{client: client, ttl: ttl, maxMessages: int64(maxMessages)}
}

func redisSessionKey(id string) string  { return "seance:session:" + id }
func redisMessagesKey(id string) string { return "seance:messages:" + id }

func (s *redisStore) CreateSession(ctx context.Context, session model.Session) error {
	if session.ID == "" {
		return ErrSessionIDMissing
	}
	value, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, redisSessionKey(session.ID), value, s.ttl).Err()
}

func (s *redisStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	key := redisSessionKey(id)
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	var session model.Session
	if err := json.Unmarshal(value, &session); err != nil {
		return model.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}

	// Refresh TTL on read
	_ = s.client.Expire(ctx, key, s.ttl).Err()
	return session, nil
}

func (s *redisStore) AppendMessages(ctx context.Context, sessionID string, msgs ...model.Message) error {
	if sessionID == "" {
		return ErrSessionIDMissing
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		msg.SessionID = sessionID
		value, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, value)
	}

	key := redisMessagesKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *redisStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	values, err := s.client.LRange(ctx, redisMessagesKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load messages of %s: %w", sessionID, err)
	}

	messages := make([]model.Message, 0, len(values))
	for _, value := range values {
		var msg model.Message
		if err := json.Unmarshal([]byte(value), &msg); err != nil {
			return nil, fmt.Errorf("decode message of %s: %w", sessionID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
