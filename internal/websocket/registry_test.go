package websocket

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dounie/opshub/internal/domain"
)

type fakeConn struct {
	role domain.Role

	mu     sync.Mutex
	frames [][]byte
	closed bool
	fail   bool
}

func newFakeConn(role domain.Role) *fakeConn { return &fakeConn{role: role} }

func (f *fakeConn) Role() domain.Role { return f.role }

func (f *fakeConn) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.closed {
		return errors.New("send failed")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistry_RegisterReplacesAndClosesPrevious(t *testing.T) {
	r := NewRegistry()
	first := newFakeConn(domain.RoleClient)
	second := newFakeConn(domain.RoleClient)

	assert.Nil(t, r.Register("alice", first))
	prev := r.Register("alice", second)

	assert.Same(t, first, prev)
	assert.True(t, first.isClosed())
	assert.Equal(t, 1, r.Count())

	got, ok := r.Get("alice")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistry_RemoveIgnoresReplacedConnection(t *testing.T) {
	r := NewRegistry()
	first := newFakeConn(domain.RoleClient)
	second := newFakeConn(domain.RoleClient)
	r.Register("alice", first)
	r.Register("alice", second)

	assert.False(t, r.Remove("alice", first))
	assert.Equal(t, 1, r.Count())

	assert.True(t, r.Remove("alice", second))
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Unregister("nobody"))

	r.Register("bob", newFakeConn(domain.RoleStaff))
	assert.True(t, r.Unregister("bob"))
	_, ok := r.Get("bob")
	assert.False(t, ok)
}

func TestRegistry_OnChangeReportsSize(t *testing.T) {
	r := NewRegistry()
	var sizes []int
	r.OnChange(func(size int) { sizes = append(sizes, size) })

	a := newFakeConn(domain.RoleClient)
	r.Register("a", a)
	r.Register("b", newFakeConn(domain.RoleClient))
	r.Remove("a", a)
	r.Unregister("missing")

	assert.Equal(t, []int{1, 2, 1}, sizes)
}

func TestRegistry_Broadcasts(t *testing.T) {
	r := NewRegistry()
	admin := newFakeConn(domain.RoleAdmin)
	manager := newFakeConn(domain.RoleManager)
	client := newFakeConn(domain.RoleClient)
	broken := newFakeConn(domain.RoleAdmin)
	broken.fail = true

	r.Register("admin", admin)
	r.Register("manager", manager)
	r.Register("client", client)
	r.Register("broken", broken)

	t.Run("broadcast skips failing connections", func(t *testing.T) {
		assert.Equal(t, 3, r.Broadcast([]byte("all")))
		assert.Equal(t, 1, admin.received())
		assert.Equal(t, 1, client.received())
	})

	t.Run("broadcast except excludes the sender", func(t *testing.T) {
		assert.Equal(t, 2, r.BroadcastExcept("client", []byte("others")))
		assert.Equal(t, 1, client.received())
		assert.Equal(t, 2, manager.received())
	})

	t.Run("role broadcast reaches only operators", func(t *testing.T) {
		assert.Equal(t, 2, r.BroadcastToRoles(domain.OperatorRoles(), []byte("ops")))
		assert.Equal(t, 3, admin.received())
		assert.Equal(t, 3, manager.received())
		assert.Equal(t, 1, client.received())
	})
}

type fakeDirectory map[string]domain.User

func (d fakeDirectory) Lookup(userID string) (domain.User, bool) {
	u, ok := d[userID]
	return u, ok
}

func TestRegistry_RoleBroadcastUsesDirectoryRole(t *testing.T) {
	r := NewRegistry()
	promoted := newFakeConn(domain.RoleClient)
	demoted := newFakeConn(domain.RoleAdmin)
	unknown := newFakeConn(domain.RoleManager)
	r.Register("promoted", promoted)
	r.Register("demoted", demoted)
	r.Register("unknown", unknown)

	r.UseDirectory(fakeDirectory{
		"promoted": {ID: "promoted", Role: domain.RoleAdmin},
		"demoted":  {ID: "demoted", Role: domain.RoleClient},
	})

	assert.Equal(t, 2, r.BroadcastToRoles(domain.OperatorRoles(), []byte("ops")))
	assert.Equal(t, 1, promoted.received())
	assert.Equal(t, 0, demoted.received())
	assert.Equal(t, 1, unknown.received(), "users missing from the directory keep their connection role")
}

func TestRegistry_UserIDs(t *testing.T) {
	r := NewRegistry()
	r.Register("a", newFakeConn(domain.RoleClient))
	r.Register("b", newFakeConn(domain.RoleClient))

	assert.ElementsMatch(t, []string{"a", "b"}, r.UserIDs())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%10))
			conn := newFakeConn(domain.RoleClient)
			r.Register(id, conn)
			r.Broadcast([]byte("x"))
			r.Remove(id, conn)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Count(), 10)
}
