package session

import (
	"context"
	"errors"
	"sync"

	model "github.com/zhouzirui/seance/backend/internal/model/session"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionIDMissing = errors.New("session id is required")
	ErrInvalidStoreType = errors.New("invalid session store type")
	ErrInvalidConfig    = errors.New("invalid session store configuration")
)

// StoreType selects a Store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeBadger StoreType = "badger"
	StoreTypeRedis  StoreType = "redis"
)

// Store 持久化会话及其消息记录。
//
// Messages are keyed by session id only, so a session that was never created
// through CreateSession can still accumulate history.
type Store interface {
	CreateSession(ctx context.Context, s model.Session) error
	// GetSession returns ErrSessionNotFound for unknown ids.
	GetSession(ctx context.Context, id string) (model.Session, error)
	// AppendMessages stores msgs in order; all of them must share one session id.
	AppendMessages(ctx context.Context, sessionID string, msgs ...model.Message) error
	// RecentMessages returns at most limit of the newest messages, oldest first.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
	Close() error
}

// NewStore creates a Store of the given type. Badger needs WithBadgerDB,
// redis needs WithRedisClient. Every driver keeps at most
// WithMaxStoredMessages messages per session, 200 by default.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory, "":
		return newMemoryStore(cfg.maxStoredMessages), nil
	case StoreTypeBadger:
		if cfg.badgerDB == nil {
			return nil, ErrInvalidConfig
		}
		return openBadgerStore(cfg.badgerDB, cfg.maxStoredMessages), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return newRedisStore(cfg.redisClient, cfg.redisTTL, cfg.maxStoredMessages), nil
	default:
		return nil, ErrInvalidStoreType
	}
}

// memoryStore keeps everything in process, guarded by one RWMutex.
type memoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]model.Session
	messages    map[string][]model.Message
	maxMessages int
}

func newMemoryStore(maxMessages int) *memoryStore {
	if maxMessages <= 0 {
		maxMessages = defaultMaxStoredMessages
	}
	return &memoryStore{
		sessions:    make(map[string]model.Session),
		messages:    make(map[string][]model.Message),
		maxMessages: maxMessages,
	}
}

func (s *memoryStore) CreateSession(_ context.Context, session model.Session) error {
	if session.ID == "" {
		return ErrSessionIDMissing
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) GetSession(_ context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *memoryStore) AppendMessages(_ context.Context, sessionID string, msgs ...model.Message) error {
	if sessionID == "" {
		return ErrSessionIDMissing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	messages := append(s.messages[sessionID], msgs...)
	if overflow := len(messages) - s.maxMessages; overflow > 0 {
		messages = append([]model.Message(nil), messages[overflow:]...)
	}
	s.messages[sessionID] = messages
	return nil
}

func (s *memoryStore) RecentMessages(_ context.Context, sessionID string, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.messages[sessionID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	copied := make([]model.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]model.Session)
	s.messages = make(map[string][]model.Message)
	return nil
}
