package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	model "github.com/zhouzirui/seance/backend/internal/model/session"
)

// ErrInvalidSession wraps validator errors raised by CreateSession.
var ErrInvalidSession = errors.New("invalid session")

const (
	DefaultMaxUsers = 6
	spiritName      = "Spirit"
)

type createSessionInput struct {
	Name     string `validate:"required,min=1,max=100"`
	MaxUsers int    `validate:"min=2,max=12"`
}

// Service 负责会话的创建、查询以及问答记录。
type Service struct {
	store           Store
	validate        *validator.Validate
	defaultMaxUsers int
	log             *slog.Logger
}

// NewService creates a session service on top of store. A zero
// defaultMaxUsers falls back to DefaultMaxUsers.
func NewService(store Store, defaultMaxUsers int, log *slog.Logger) *Service {
	if defaultMaxUsers <= 0 {
		defaultMaxUsers = DefaultMaxUsers
	}
	return &Service{
		store:           store,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		defaultMaxUsers: defaultMaxUsers,
		log:             log,
	}
}

// CreateSession provisions an active session. maxUsers 0 selects the default.
func (s *Service) CreateSession(ctx context.Context, name string, maxUsers int) (model.Session, error) {
	input := createSessionInput{Name: strings.TrimSpace(name), MaxUsers: maxUsers}
	if input.MaxUsers == 0 {
		input.MaxUsers = s.defaultMaxUsers
	}
	if err := s.validate.Struct(input); err != nil {
		return model.Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	session := model.Session{
		ID:        uuid.NewString(),
		Name:      input.Name,
		MaxUsers:  input.MaxUsers,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("session.created", "session_id", session.ID, "name", session.Name, "max_users", session.MaxUsers)
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (model.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// RecordExchange stores a question and the spirit's answer as two consecutive messages.
func (s *Service) RecordExchange(ctx context.Context, sessionID, userName, question, answer string) error {
	now := time.Now().UTC()
	msgs := []model.Message{
		{ID: uuid.NewString(), SessionID: sessionID, UserName: userName, Text: question, CreatedAt: now},
		{ID: uuid.NewString(), SessionID: sessionID, UserName: spiritName, Text: answer, IsSpirit: true, CreatedAt: now.Add(time.Microsecond)},
	}
	if err := s.store.AppendMessages(ctx, sessionID, msgs...); err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// History returns the texts of the newest limit messages, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]string, error) {
	messages, err := s.store.RecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return lo.Map(messages, func(m model.Message, _ int) string { return m.Text }), nil
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}
