package realtime

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/seance/backend/internal/model/event"
)

func newTestBroadcaster() *Broadcaster {
	return NewBroadcaster(NewRegistry(), logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestBroadcast_Delivers_To_All_Connections(t *testing.T) {
	req := require.New(t)
	b := newTestBroadcaster()
	conns := []*fakeConn{newFakeConn(), newFakeConn(), newFakeConn()}
	for i, c := range conns {
		req.NoError(b.Registry().Register("s1", c, userInfo(string(rune('a'+i)), "user")))
	}

	report := b.Broadcast("s1", event.NewEnvelope(event.SpiritThinking, nil), nil)

	req.Equal(3, report.Delivered)
	req.Empty(report.Failed)
	for _, c := range conns {
		req.Equal([]event.Type{event.SpiritThinking}, c.events())
	}
}

func TestBroadcast_Skips_Excluded_Connection(t *testing.T) {
	req := require.New(t)
	b := newTestBroadcaster()
	self, other := newFakeConn(), newFakeConn()
	req.NoError(b.Registry().Register("s1", self, userInfo("u1", "Ada")))
	req.NoError(b.Registry().Register("s1", other, userInfo("u2", "Bob")))

	report := b.Broadcast("s1", event.NewEnvelope(event.UserJoined, userInfo("u1", "Ada")), self)

	req.Equal(1, report.Delivered)
	req.Empty(self.events())
	req.Equal([]event.Type{event.UserJoined}, other.events())
}

func TestBroadcast_Prunes_Dead_Connections_Without_Aborting(t *testing.T) {
	req := require.New(t)
	b := newTestBroadcaster()
	first, broken, last := newFakeConn(), newBrokenConn(), newFakeConn()
	req.NoError(b.Registry().Register("s1", first, userInfo("u1", "Ada")))
	req.NoError(b.Registry().Register("s1", broken, userInfo("u2", "Bob")))
	req.NoError(b.Registry().Register("s1", last, userInfo("u3", "Cy")))

	// When one connection fails mid-broadcast
	report := b.Broadcast("s1", event.NewEnvelope(event.SpiritThinking, nil), nil)

	// Then the others still receive the message
	req.Equal(2, report.Delivered)
	req.Len(report.Failed, 1)
	req.Equal(broken, report.Failed[0].Conn)
	req.ErrorIs(report.Failed[0].Err, errBrokenPipe)
	req.Len(first.events(), 1)
	req.Len(last.events(), 1)

	// And the dead connection is pruned and closed
	req.True(broken.isClosed())
	req.Equal([]Conn{first, last}, b.Registry().Connections("s1"))
	_, ok := b.Registry().Unregister(broken, "s1")
	req.False(ok)
}

func TestBroadcast_Last_Dead_Connection_Removes_Session(t *testing.T) {
	req := require.New(t)
	b := newTestBroadcaster()
	broken := newBrokenConn()
	req.NoError(b.Registry().Register("s1", broken, userInfo("u1", "Ada")))

	report := b.Broadcast("s1", event.NewEnvelope(event.SpiritThinking, nil), nil)

	req.Zero(report.Delivered)
	req.Empty(b.Registry().Sessions())
}

func TestBroadcast_Unknown_Session(t *testing.T) {
	req := require.New(t)
	b := newTestBroadcaster()

	report := b.Broadcast("missing", event.NewEnvelope(event.SpiritThinking, nil), nil)

	req.Zero(report.Delivered)
	req.Empty(report.Failed)
}

func TestSendDirect_Reports_Failure_Without_Pruning(t *testing.T) {
	req := require.New(t)
	b := newTestBroadcaster()
	broken := newBrokenConn()
	req.NoError(b.Registry().Register("s1", broken, userInfo("u1", "Ada")))

	result := b.SendDirect(broken, event.NewError(event.CodeEmptyMessage, "Message cannot be empty"))

	req.False(result.Sent())
	req.Equal(1, b.Registry().Count("s1"))
}
