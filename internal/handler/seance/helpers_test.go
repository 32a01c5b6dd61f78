package seance_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/seance/backend/internal/handler/seance"
	"github.com/zhouzirui/seance/backend/internal/model/event"
	"github.com/zhouzirui/seance/backend/internal/realtime"
)

type recordingConn struct {
	id string

	mu       sync.Mutex
	received []event.Envelope
	closed   bool
}

func newRecordingConn() *recordingConn {
	return &recordingConn{id: uuid.NewString()}
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Send(env event.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.received = append(c.received, env)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) envelopes() []event.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Envelope(nil), c.received...)
}

func (c *recordingConn) events() []event.Type {
	var types []event.Type
	for _, env := range c.envelopes() {
		types = append(types, env.Event)
	}
	return types
}

func (c *recordingConn) errorCodes() []event.ErrorCode {
	var codes []event.ErrorCode
	for _, env := range c.envelopes() {
		if data, ok := env.Data.(event.ErrorData); ok {
			codes = append(codes, data.Code)
		}
	}
	return codes
}

// scriptedFrames replays frames, then returns end (ErrPeerClosed by default).
type scriptedFrames struct {
	frames [][]byte
	end    error
}

func frames(payloads ...string) *scriptedFrames {
	s := &scriptedFrames{end: fmt.Errorf("%w: test script exhausted", seance.ErrPeerClosed)}
	for _, p := range payloads {
		s.frames = append(s.frames, []byte(p))
	}
	return s
}

func (s *scriptedFrames) ReadFrame(context.Context) ([]byte, error) {
	if len(s.frames) == 0 {
		return nil, s.end
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

func identity(id, name string) string {
	return fmt.Sprintf(`{"user_id":%q,"name":%q}`, id, name)
}

func sendMessage(text, userName string) string {
	return fmt.Sprintf(`{"event":"send_message","data":{"message":%q,"user_name":%q}}`, text, userName)
}

type fixture struct {
	broadcaster *realtime.Broadcaster
	registry    *realtime.Registry
	log         *slog.Logger
}

func newFixture() fixture {
	registry := realtime.NewRegistry()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	return fixture{
		broadcaster: realtime.NewBroadcaster(registry, log),
		registry:    registry,
		log:         log,
	}
}

// observer joins the session directly so it sees every broadcast.
func (f fixture) observer(t *testing.T, sessionID string) *recordingConn {
	t.Helper()
	conn := newRecordingConn()
	require.NoError(t, f.registry.Register(sessionID, conn, event.UserInfo{ID: "obs", Name: "Observer", JoinedAt: time.Now()}))
	return conn
}
