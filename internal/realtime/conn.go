package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/seance/backend/internal/model/event"
)

// ErrConnClosed is returned by Send after the connection was closed.
var ErrConnClosed = errors.New("connection closed")

// WSConn adapts a gorilla websocket to Conn.
//
// gorilla allows one concurrent writer, while broadcasts from other
// sessions' tasks may target the same socket; writes are serialised here.
type WSConn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	once    sync.Once
	closed  chan struct{}
}

// NewWSConn wraps ws. A zero writeTimeout disables write deadlines.
func NewWSConn(ws *websocket.Conn, writeTimeout time.Duration) *WSConn {
	return &WSConn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// ID returns the connection identifier used in logs.
func (c *WSConn) ID() string { return c.id }

// Send writes env as a JSON text frame.
func (c *WSConn) Send(env event.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	if err := c.setWriteDeadline(); err != nil {
		return err
	}
	return c.ws.WriteJSON(env)
}

// Ping writes a ping control frame.
func (c *WSConn) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	if err := c.setWriteDeadline(); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

// Close closes the socket once; later calls are no-ops.
func (c *WSConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.ws.Close()
	})
	return err
}

// Done is closed once Close has been called.
func (c *WSConn) Done() <-chan struct{} { return c.closed }

func (c *WSConn) setWriteDeadline() error {
	if c.writeTimeout <= 0 {
		return nil
	}
	return c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
}
