package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/metrics"
	"github.com/dounie/opshub/internal/notifications"
	"github.com/dounie/opshub/internal/websocket"
)

type scriptedSampler struct {
	mu      sync.Mutex
	samples []Sample
	err     error
	calls   int
}

func (s *scriptedSampler) Sample(context.Context) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return Sample{}, s.err
	}
	next := s.samples[0]
	if len(s.samples) > 1 {
		s.samples = s.samples[1:]
	}
	return next, nil
}

func (s *scriptedSampler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type roleConn struct {
	role domain.Role

	mu     sync.Mutex
	frames []string
}

func (c *roleConn) Role() domain.Role { return c.role }

func (c *roleConn) Send(frame []byte) error {
	var f struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &f); err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, f.Type)
	c.mu.Unlock()
	return nil
}

func (c *roleConn) Close() {}

func (c *roleConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

type fixture struct {
	monitor *Monitor
	sampler *scriptedSampler
	store   *notifications.Store
	admin   *roleConn
	manager *roleConn
	client  *roleConn
}

func newFixture(t *testing.T, samples ...Sample) *fixture {
	t.Helper()
	reg := websocket.NewRegistry()
	f := &fixture{
		sampler: &scriptedSampler{samples: samples},
		store:   notifications.NewStore(0),
		admin:   &roleConn{role: domain.RoleAdmin},
		manager: &roleConn{role: domain.RoleManager},
		client:  &roleConn{role: domain.RoleClient},
	}
	reg.Register("admin", f.admin)
	reg.Register("manager", f.manager)
	reg.Register("client", f.client)

	svc := notifications.NewService(f.store, reg, nil)
	f.monitor = New(f.sampler, svc, reg, metrics.New(), Options{Interval: 10 * time.Millisecond})
	return f
}

func TestMonitor_HighMemoryRaisesWarningEachTick(t *testing.T) {
	f := newFixture(t, Sample{MemoryPercent: 95, DiskPercent: 40, LoadAverage: 0.5})
	ctx := context.Background()

	_, err := f.monitor.Tick(ctx)
	require.NoError(t, err)
	_, err = f.monitor.Tick(ctx)
	require.NoError(t, err)

	list := f.store.List(10)
	require.Len(t, list, 2)
	for _, n := range list {
		assert.Equal(t, domain.NotificationWarning, n.Type)
		assert.Equal(t, "high memory usage: 95%", n.Message)
		assert.False(t, n.Resolved)
	}
	assert.False(t, list[0].Timestamp.Before(list[1].Timestamp))
}

func TestMonitor_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   map[domain.NotificationType]string
	}{
		{name: "healthy", sample: Sample{MemoryPercent: 90, DiskPercent: 85}, want: map[domain.NotificationType]string{}},
		{name: "disk only", sample: Sample{MemoryPercent: 20, DiskPercent: 91.6}, want: map[domain.NotificationType]string{
			domain.NotificationError: "critical disk usage: 92%",
		}},
		{name: "both", sample: Sample{MemoryPercent: 97.2, DiskPercent: 99}, want: map[domain.NotificationType]string{
			domain.NotificationWarning: "high memory usage: 97%",
			domain.NotificationError:   "critical disk usage: 99%",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.sample)
			_, err := f.monitor.Tick(context.Background())
			require.NoError(t, err)

			got := map[domain.NotificationType]string{}
			for _, n := range f.store.List(10) {
				got[n.Type] = n.Message
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonitor_StatusReachesOperatorsOnly(t *testing.T) {
	f := newFixture(t, Sample{MemoryPercent: 95.4, DiskPercent: 10, LoadAverage: 1.25})

	status, err := f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 95.0, status.MemoryUsage)
	assert.Equal(t, 10.0, status.DiskUsage)
	assert.Equal(t, 1.25, status.LoadAverage)
	assert.Equal(t, 3, status.ConnectedUsers)

	assert.Equal(t, []string{"system_notification", "system_status"}, f.admin.types())
	assert.Equal(t, []string{"system_notification", "system_status"}, f.manager.types())
	assert.Empty(t, f.client.types())
}

func TestMonitor_SamplingFailure(t *testing.T) {
	f := newFixture(t)
	f.sampler.err = errors.New("procfs unavailable")

	_, err := f.monitor.Tick(context.Background())
	require.Error(t, err)

	list := f.store.List(10)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationError, list[0].Type)
	assert.Equal(t, "monitoring failure", list[0].Message)
	assert.Equal(t, []string{"system_notification"}, f.admin.types())
	assert.Equal(t, StateIdle, f.monitor.State())
}

func TestMonitor_RunKeepsTickingAfterFailureAndStops(t *testing.T) {
	f := newFixture(t)
	f.sampler.err = errors.New("boom")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.monitor.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.sampler.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.GreaterOrEqual(t, f.store.Len(), 3)
}
