package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dounie/opshub/internal/domain"
)

type staticDirectory map[string]domain.User

func (d staticDirectory) Lookup(id string) (domain.User, bool) {
	u, ok := d[id]
	return u, ok
}

// echoLifecycle registers clients and echoes every inbound payload back.
type echoLifecycle struct {
	registry *Registry

	mu           sync.Mutex
	connected    []domain.Identity
	disconnected []string
}

func (l *echoLifecycle) Connect(_ context.Context, c *Client) {
	l.mu.Lock()
	l.connected = append(l.connected, c.Identity())
	l.mu.Unlock()
	l.registry.Register(c.UserID(), c)
}

func (l *echoLifecycle) Inbound(_ context.Context, c *Client, payload []byte) {
	_ = c.Send(payload)
}

func (l *echoLifecycle) Disconnect(_ context.Context, c *Client) {
	l.registry.Remove(c.UserID(), c)
	l.mu.Lock()
	l.disconnected = append(l.disconnected, c.UserID())
	l.mu.Unlock()
}

func (l *echoLifecycle) disconnects() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.disconnected...)
}

func newTestServer(t *testing.T, dir Directory) (*httptest.Server, *echoLifecycle) {
	t.Helper()
	lc := &echoLifecycle{registry: NewRegistry()}
	h := NewHandler(NewIdentityResolver(dir), lc, HandlerOptions{})

	e := echo.New()
	e.GET("/ws", h.Serve)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, lc
}

func dial(t *testing.T, srv *httptest.Server, query string) *gorillaws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandler_EchoRoundTrip(t *testing.T) {
	dir := staticDirectory{"ops": {ID: "ops", Username: "Ops Lead", Role: domain.RoleAdmin}}
	srv, lc := newTestServer(t, dir)

	conn := dial(t, srv, "?userId=ops")
	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(`ping`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(payload))

	lc.mu.Lock()
	require.Len(t, lc.connected, 1)
	assert.Equal(t, domain.Identity{UserID: "ops", Username: "Ops Lead", Role: domain.RoleAdmin}, lc.connected[0])
	lc.mu.Unlock()
}

func TestHandler_UnknownUserDefaultsToClient(t *testing.T) {
	srv, lc := newTestServer(t, nil)
	dial(t, srv, "?userId=guest")

	assert.Eventually(t, func() bool { return lc.registry.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	conn, ok := lc.registry.Get("guest")
	require.True(t, ok)
	assert.Equal(t, domain.RoleClient, conn.Role())
}

func TestHandler_RejectsMissingIdentity(t *testing.T) {
	srv, lc := newTestServer(t, nil)
	conn := dial(t, srv, "")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, gorillaws.IsCloseError(err, gorillaws.ClosePolicyViolation), "unexpected error: %v", err)
	assert.Equal(t, 0, lc.registry.Count())
}

func TestHandler_DisconnectUnregisters(t *testing.T) {
	srv, lc := newTestServer(t, nil)
	conn := dial(t, srv, "?userId=bob")
	assert.Eventually(t, func() bool { return lc.registry.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteControl(gorillaws.CloseMessage,
		gorillaws.FormatCloseMessage(gorillaws.CloseNormalClosure, "bye"), time.Now().Add(time.Second)))

	assert.Eventually(t, func() bool { return lc.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"bob"}, lc.disconnects())
}

func TestIdentityResolver_PrefersContextUser(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?userId=spoofed", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("user", &domain.User{ID: "real", Role: domain.RoleManager})

	id, ok := NewIdentityResolver(nil).Resolve(c)
	require.True(t, ok)
	assert.Equal(t, "real", id.UserID)
	assert.Equal(t, "real", id.Username)
	assert.Equal(t, domain.RoleManager, id.Role)
}
