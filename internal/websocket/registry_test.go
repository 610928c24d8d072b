package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AttachAndDetach(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1", "u1", "alice")

	prev, ok := reg.AttachToRoom("c1", "r1", true)
	require.True(t, ok)
	assert.Empty(t, prev)

	sess, ok := reg.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, "r1", sess.RoomID)
	assert.True(t, sess.Anonymous)
	assert.Equal(t, AnonymousName, sess.DisplayName())

	prev, ok = reg.AttachToRoom("c1", "r2", false)
	require.True(t, ok)
	assert.Equal(t, "r1", prev)

	roomID, ok := reg.Detach("c1")
	require.True(t, ok)
	assert.Equal(t, "r2", roomID)

	_, ok = reg.Detach("c1")
	assert.False(t, ok, "detaching twice finds no room")

	sess, _ = reg.Lookup("c1")
	assert.False(t, sess.InRoom())
	assert.Equal(t, "alice", sess.DisplayName())
}

func TestRegistry_AttachUnknownConnection(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.AttachToRoom("missing", "r1", false)

	assert.False(t, ok)
}

func TestRegistry_DetachFromOnlyMatchingRoom(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1", "u1", "alice")
	reg.AttachToRoom("c1", "r2", false)

	assert.False(t, reg.DetachFrom("c1", "r1"))
	assert.True(t, reg.DetachFrom("c1", "r2"))
}

func TestRegistry_MultipleConnectionsPerUser(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c2", "u1", "alice")
	reg.Register("c1", "u1", "alice")
	reg.Register("c3", "u2", "bob")

	assert.Equal(t, []string{"c1", "c2"}, reg.ConnectionsForUser("u1"))
	assert.Equal(t, 3, reg.Count())
	assert.Equal(t, 2, reg.Users())

	sess, ok := reg.Release("c1")
	require.True(t, ok)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, []string{"c2"}, reg.ConnectionsForUser("u1"))

	reg.Release("c2")
	assert.Nil(t, reg.ConnectionsForUser("u1"))
	assert.Equal(t, 1, reg.Users())

	_, ok = reg.Release("c2")
	assert.False(t, ok)
}

func TestRegistry_ConcurrentRegisterRelease(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", i)
			reg.Register(connID, "u1", "alice")
			reg.AttachToRoom(connID, "r1", false)
			if i%2 == 0 {
				reg.Release(connID)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, reg.Count())
	assert.Len(t, reg.ConnectionsForUser("u1"), 25)
}
