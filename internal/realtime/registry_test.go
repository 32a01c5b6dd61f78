package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/seance/backend/internal/model/event"
)

func userInfo(id, name string) event.UserInfo {
	return event.UserInfo{ID: id, Name: name, JoinedAt: time.Now().UTC()}
}

func TestRegistry_Register_Keeps_Join_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first, second, third := newFakeConn(), newFakeConn(), newFakeConn()

	// When three participants join the same session
	req.NoError(registry.Register("s1", first, userInfo("u1", "Ada")))
	req.NoError(registry.Register("s1", second, userInfo("u2", "Bob")))
	req.NoError(registry.Register("s1", third, userInfo("u3", "Cy")))

	// Then the snapshot follows join order
	users := registry.ListSessionUsers("s1")
	req.Len(users, 3)
	req.Equal([]string{"u1", "u2", "u3"}, []string{users[0].ID, users[1].ID, users[2].ID})
	req.Equal([]Conn{first, second, third}, registry.Connections("s1"))
	req.Equal(3, registry.Count("s1"))
}

func TestRegistry_Register_Same_Connection_Twice(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn()

	req.NoError(registry.Register("s1", conn, userInfo("u1", "Ada")))
	err := registry.Register("s1", conn, userInfo("u1", "Ada"))

	req.ErrorIs(err, ErrAlreadyRegistered)
	req.Equal(1, registry.Count("s1"))
}

func TestRegistry_Unregister_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn()
	other := newFakeConn()
	req.NoError(registry.Register("s1", conn, userInfo("u1", "Ada")))
	req.NoError(registry.Register("s1", other, userInfo("u2", "Bob")))

	// When the same connection unregisters twice
	info, ok := registry.Unregister(conn, "s1")
	req.True(ok)
	req.Equal("u1", info.ID)
	req.Equal("Ada", info.Name)

	_, ok = registry.Unregister(conn, "s1")

	// Then the second call is a no-op
	req.False(ok)
	users := registry.ListSessionUsers("s1")
	req.Len(users, 1)
	req.Equal("u2", users[0].ID)
}

func TestRegistry_Empty_Session_Is_Removed(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn()
	req.NoError(registry.Register("s1", conn, userInfo("u1", "Ada")))

	registry.Unregister(conn, "s1")

	req.NotContains(registry.Sessions(), "s1")
	req.Zero(registry.Count("s1"))
	req.Empty(registry.sessions)
	req.Empty(registry.users)
}

func TestRegistry_ListSessionUsers_Unknown_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	users := registry.ListSessionUsers("missing")

	req.NotNil(users)
	req.Empty(users)
}

func TestRegistry_Unregister_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, ok := registry.Unregister(newFakeConn(), "missing")

	req.False(ok)
	req.Empty(registry.sessions)
}

func TestRegistry_Concurrent_Register_And_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conns := make([]*fakeConn, 50)
	for i := range conns {
		conns[i] = newFakeConn()
	}

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			_ = registry.Register("s1", c, userInfo(c.ID(), "user"))
			_ = registry.ListSessionUsers("s1")
			registry.Unregister(c, "s1")
		}(conn)
	}
	wg.Wait()

	req.Zero(registry.Count("s1"))
	req.Empty(registry.Sessions())
}

func TestRegistry_RegisterWithin_Capacity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.NoError(registry.RegisterWithin("s1", newFakeConn(), userInfo("u1", "Ada"), 2))
	req.NoError(registry.RegisterWithin("s1", newFakeConn(), userInfo("u2", "Bob"), 2))
	err := registry.RegisterWithin("s1", newFakeConn(), userInfo("u3", "Cy"), 2)

	req.ErrorIs(err, ErrSessionFull)
	req.Equal(2, registry.Count("s1"))
	req.NoError(registry.RegisterWithin("s2", newFakeConn(), userInfo("u4", "Di"), 0))
}

func TestRegistry_Unregister_From_Other_Session_Keeps_Membership(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn()
	req.NoError(registry.Register("s1", conn, userInfo("u1", "Ada")))

	// When the connection is unregistered from a session it never joined
	info, ok := registry.Unregister(conn, "other")

	// Then nothing is returned and its real session is untouched
	req.False(ok)
	req.Equal(event.UserInfo{}, info)
	req.Equal(1, registry.Count("s1"))
	users := registry.ListSessionUsers("s1")
	req.Len(users, 1)
	req.Equal("Ada", users[0].Name)
}

func TestRegistry_Same_Connection_In_Two_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn()

	// Given one connection registered under two sessions with different users
	req.NoError(registry.Register("s1", conn, userInfo("u1", "Ada")))
	req.NoError(registry.Register("s2", conn, userInfo("u2", "Bob")))

	// Then each session keeps its own user info
	s1 := registry.ListSessionUsers("s1")
	req.Len(s1, 1)
	req.Equal("Ada", s1[0].Name)
	s2 := registry.ListSessionUsers("s2")
	req.Len(s2, 1)
	req.Equal("Bob", s2[0].Name)

	// When it leaves the second session
	info, ok := registry.Unregister(conn, "s2")

	// Then only that membership is removed
	req.True(ok)
	req.Equal("Bob", info.Name)
	s1 = registry.ListSessionUsers("s1")
	req.Len(s1, 1)
	req.Equal("Ada", s1[0].Name)
	req.Zero(registry.Count("s2"))
}
