//go:generate go run go.uber.org/mock/mockgen -source=pipeline.go -destination=../../mocks/mock_pipeline.go -package=mocks

// Package seance 实现 WebSocket 会话的消息管线：握手、消息处理与断线清理。
package seance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zhouzirui/seance/backend/internal/metrics"
	"github.com/zhouzirui/seance/backend/internal/model/event"
	sessionmodel "github.com/zhouzirui/seance/backend/internal/model/session"
	spiritmodel "github.com/zhouzirui/seance/backend/internal/model/spirit"
	"github.com/zhouzirui/seance/backend/internal/realtime"
)

// ErrPeerClosed marks a frame source that ended normally.
var ErrPeerClosed = errors.New("peer closed connection")

const (
	MaxMessageLength = 500
	HistoryLimit     = 10

	defaultUserID   = "unknown"
	defaultUserName = "Anonymous"

	msgEmpty       = "Message cannot be empty"
	msgTooLong     = "Message exceeds maximum length of 500 characters"
	msgSpiritError = "The spirit could not respond. Try again."
	msgInternal    = "An unexpected error occurred"
	msgSessionFull = "Session is full"
)

// FrameReader yields raw inbound frames. A normal end of stream is reported
// with an error wrapping ErrPeerClosed.
type FrameReader interface {
	ReadFrame(ctx context.Context) ([]byte, error)
}

// Responder produces the spirit's answer to a question.
type Responder interface {
	Generate(ctx context.Context, req spiritmodel.Request) (*spiritmodel.Response, error)
}

// SessionStore is the persistence collaborator used for capacity and history.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (sessionmodel.Session, error)
	History(ctx context.Context, sessionID string, limit int) ([]string, error)
	RecordExchange(ctx context.Context, sessionID, userName, question, answer string) error
}

// Policy 控制可选的会话约束。
type Policy struct {
	// EnforceCapacity refuses joins beyond the stored session's MaxUsers.
	EnforceCapacity bool
}

// Pipeline drives one connection through CONNECTING, ACTIVE and CLOSED.
type Pipeline struct {
	broadcaster *realtime.Broadcaster
	registry    *realtime.Registry
	responder   Responder
	sessions    SessionStore
	policy      Policy
	log         *slog.Logger
}

// NewPipeline wires the pipeline. sessions may be nil, which disables history
// and capacity checks.
func NewPipeline(broadcaster *realtime.Broadcaster, responder Responder, sessions SessionStore, policy Policy, log *slog.Logger) *Pipeline {
	return &Pipeline{
		broadcaster: broadcaster,
		registry:    broadcaster.Registry(),
		responder:   responder,
		sessions:    sessions,
		policy:      policy,
		log:         log,
	}
}

// Serve runs the connection until the peer leaves, a fault occurs or ctx
// ends. It never panics and always closes conn.
func (p *Pipeline) Serve(ctx context.Context, sessionID string, conn realtime.Conn, frames FrameReader) {
	log := p.log.With("session_id", sessionID, "conn_id", conn.ID())
	registered := false

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline.panic", "panic", r, "stack", string(debug.Stack()))
			p.fault(conn)
		}
		if registered {
			p.leave(sessionID, conn, log)
		}
		_ = conn.Close()
	}()

	info, err := p.connect(ctx, sessionID, conn, frames, &registered)
	switch {
	case errors.Is(err, ErrPeerClosed), errors.Is(err, realtime.ErrSessionFull):
		log.Debug("pipeline.connect_aborted", "error", err)
		return
	case err != nil:
		log.Warn("pipeline.connect_failed", "error", err)
		p.fault(conn)
		return
	}
	log.Info("pipeline.user_joined", "user_id", info.ID, "user_name", info.Name)

	if err := p.loop(ctx, sessionID, conn, frames, log); err != nil {
		log.Warn("pipeline.read_failed", "error", err)
		p.fault(conn)
	}
}

// connect reads the identity frame, registers the connection and announces it.
// registered is set as soon as the registry holds conn, before the announce.
func (p *Pipeline) connect(ctx context.Context, sessionID string, conn realtime.Conn, frames FrameReader, registered *bool) (event.UserInfo, error) {
	frame, err := frames.ReadFrame(ctx)
	if err != nil {
		return event.UserInfo{}, err
	}

	var identity event.Identity
	if err := json.Unmarshal(frame, &identity); err != nil {
		return event.UserInfo{}, fmt.Errorf("decode identity: %w", err)
	}

	info := event.UserInfo{
		ID:       withDefault(identity.UserID, defaultUserID),
		Name:     withDefault(identity.Name, defaultUserName),
		JoinedAt: time.Now().UTC(),
	}

	if err := p.registry.RegisterWithin(sessionID, conn, info, p.capacity(ctx, sessionID)); err != nil {
		if errors.Is(err, realtime.ErrSessionFull) {
			p.broadcaster.SendDirect(conn, event.NewError(event.CodeSessionFull, msgSessionFull))
		}
		return event.UserInfo{}, err
	}
	*registered = true
	metrics.IncActiveConnections()

	p.broadcaster.Broadcast(sessionID, event.NewEnvelope(event.UserJoined, info), conn)
	return info, nil
}

func (p *Pipeline) capacity(ctx context.Context, sessionID string) int {
	if !p.policy.EnforceCapacity || p.sessions == nil {
		return 0
	}
	session, err := p.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return 0
	}
	return session.MaxUsers
}

func (p *Pipeline) loop(ctx context.Context, sessionID string, conn realtime.Conn, frames FrameReader, log *slog.Logger) error {
	for {
		frame, err := frames.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, ErrPeerClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.dispatch(ctx, sessionID, conn, frame, log)
	}
}

func (p *Pipeline) dispatch(ctx context.Context, sessionID string, conn realtime.Conn, frame []byte, log *slog.Logger) {
	var in event.Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		log.Warn("pipeline.malformed_event", "error", err)
		return
	}

	switch in.Event {
	case event.SendMessage:
		var data event.SendMessageData
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &data); err != nil {
				log.Warn("pipeline.malformed_event", "event", in.Event, "error", err)
				return
			}
		}
		p.handleMessage(ctx, sessionID, conn, data, log)
	default:
		log.Warn("pipeline.unknown_event", "event", in.Event)
	}
}

func (p *Pipeline) handleMessage(ctx context.Context, sessionID string, conn realtime.Conn, data event.SendMessageData, log *slog.Logger) {
	text := strings.TrimSpace(data.Message)
	userName := withDefault(data.UserName, defaultUserName)

	switch {
	case text == "":
		p.broadcaster.SendDirect(conn, event.NewError(event.CodeEmptyMessage, msgEmpty))
		return
	case utf8.RuneCountInString(text) > MaxMessageLength:
		p.broadcaster.SendDirect(conn, event.NewError(event.CodeMessageTooLong, msgTooLong))
		return
	}

	p.broadcaster.Broadcast(sessionID, event.NewEnvelope(event.MessageReceived, event.MessageReceivedData{
		UserName:  userName,
		Message:   text,
		Timestamp: event.Timestamp(time.Now()),
	}), nil)
	p.broadcaster.Broadcast(sessionID, event.NewEnvelope(event.SpiritThinking, nil), nil)

	resp, err := p.responder.Generate(ctx, spiritmodel.Request{
		SessionID:      sessionID,
		Question:       text,
		UserName:       userName,
		SessionHistory: p.history(ctx, sessionID, log),
	})
	if err != nil {
		log.Error("pipeline.spirit_failed", "user_name", userName, "error", err)
		p.broadcaster.Broadcast(sessionID, event.NewError(event.CodeSpiritError, msgSpiritError), nil)
		return
	}

	p.broadcaster.Broadcast(sessionID, event.NewEnvelope(event.SpiritResponse, event.SpiritResponseData{
		Message:       resp.Text,
		WordCount:     resp.WordCount,
		LetterTimings: resp.LetterTimings,
		AudioURL:      resp.AudioURL,
		Timestamp:     event.Timestamp(time.Now()),
	}), nil)

	if p.sessions != nil {
		if err := p.sessions.RecordExchange(ctx, sessionID, userName, text, resp.Text); err != nil {
			log.Warn("pipeline.record_failed", "error", err)
		}
	}
}

func (p *Pipeline) history(ctx context.Context, sessionID string, log *slog.Logger) []string {
	if p.sessions == nil {
		return nil
	}
	history, err := p.sessions.History(ctx, sessionID, HistoryLimit)
	if err != nil {
		log.Warn("pipeline.history_failed", "error", err)
		return nil
	}
	return history
}

// leave unregisters conn and announces the departure once.
func (p *Pipeline) leave(sessionID string, conn realtime.Conn, log *slog.Logger) {
	info, ok := p.registry.Unregister(conn, sessionID)
	if !ok {
		return
	}
	metrics.DecActiveConnections()
	log.Info("pipeline.user_left", "user_id", info.ID, "user_name", info.Name)
	p.broadcaster.Broadcast(sessionID, event.NewEnvelope(event.UserLeft, info), nil)
}

func (p *Pipeline) fault(conn realtime.Conn) {
	p.broadcaster.SendDirect(conn, event.NewError(event.CodeInternalError, msgInternal))
}

func withDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
