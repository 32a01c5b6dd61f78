package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/seance/backend/internal/model/event"
)

var errBrokenPipe = errors.New("broken pipe")

type fakeConn struct {
	id string

	mu       sync.Mutex
	received []event.Envelope
	failSend bool
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func newBrokenConn() *fakeConn {
	c := newFakeConn()
	c.failSend = true
	return c
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(env event.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend || c.closed {
		return errBrokenPipe
	}
	c.received = append(c.received, env)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events() []event.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]event.Type, 0, len(c.received))
	for _, env := range c.received {
		types = append(types, env.Event)
	}
	return types
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
