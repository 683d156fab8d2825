package app

import (
	"context"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dounie/opshub/internal/config"
	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/monitor"
)

type stubSampler struct{ sample monitor.Sample }

func (s stubSampler) Sample(context.Context) (monitor.Sample, error) { return s.sample, nil }

func TestApp_WiresServices(t *testing.T) {
	cfg := config.Defaults()
	cfg.RosterFile = "/roster.yaml"
	cfg.RosterWatch = false
	cfg.MonitorInterval = time.Hour

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/roster.yaml",
		[]byte("users:\n  - id: ops\n    username: Ops\n    role: admin\n"), 0o644))

	i := NewInjector(cfg)
	do.OverrideValue[afero.Fs](i, fs)
	do.OverrideValue[monitor.Sampler](i, stubSampler{sample: monitor.Sample{MemoryPercent: 99}})

	a, err := New(i)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	u, ok := a.Hub.Presence().Lookup("ops")
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = a.Hub.Monitor().Tick(ctx)
	require.NoError(t, err)
	list := a.Hub.Notifications().List(10)
	require.Len(t, list, 1)
	assert.Equal(t, "high memory usage: 99%", list[0].Message)
}

func TestApp_MissingRosterFails(t *testing.T) {
	cfg := config.Defaults()
	cfg.RosterFile = "/missing.yaml"

	i := NewInjector(cfg)
	do.OverrideValue[afero.Fs](i, afero.NewMemMapFs())

	a, err := New(i)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Error(t, a.Start(context.Background()))
}
