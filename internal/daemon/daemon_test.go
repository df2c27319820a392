package daemon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/quickstep/internal/config"
	"github.com/1broseidon/quickstep/internal/ipc"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Backend.Kind = config.BackendSim
	cfg.Backend.SimTasks = []string{"browser", "editor"}
	cfg.Animation.MinDuration = config.Duration(10 * time.Millisecond)
	cfg.Animation.MaxDuration = config.Duration(20 * time.Millisecond)
	cfg.Animation.Frame = config.Duration(5 * time.Millisecond)
	cfg.Animation.SettleDelay = config.Duration(5 * time.Millisecond)
	return cfg
}

func startDaemon(t *testing.T, cfg *config.Config) (*Daemon, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	d, err := New(Options{Config: cfg, ConfigPath: path})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		d.Close()
	})
	return d, path
}

func ctxTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDaemon_Status(t *testing.T) {
	d, _ := startDaemon(t, testConfig())

	st, err := d.Status(ctxTimeout(t))
	require.NoError(t, err)
	assert.Equal(t, "sim", st.Backend)
	assert.True(t, st.DaemonRunning)
	require.Len(t, st.Displays, 1)
	assert.Equal(t, 0, st.Displays[0].ID)
	assert.Zero(t, st.Displays[0].Gestures)
	assert.False(t, st.Displays[0].InFlight)
	assert.Equal(t, []int{0}, d.DisplayIDs())
}

func TestDaemon_SwipeWaitsForRelease(t *testing.T) {
	d, _ := startDaemon(t, testConfig())
	ctx := ctxTimeout(t)

	res, err := d.Swipe(ctx, ipc.SwipePayload{
		Steps:     []float64{-150, -400},
		VelocityY: -3,
		Wait:      true,
	})
	require.NoError(t, err)
	assert.True(t, res.Released)
	assert.Equal(t, "HOME", res.EndTarget)
	assert.Equal(t, "HOME", res.Decision)
	assert.Equal(t, "fling_up", res.Reason)

	st, err := d.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Displays[0].Gestures)
	assert.False(t, st.Displays[0].InFlight)
	assert.False(t, st.Displays[0].Animation.Running)
	assert.Zero(t, st.Violations)
}

func TestDaemon_HeldSwipeStaysInFlight(t *testing.T) {
	d, _ := startDaemon(t, testConfig())
	ctx := ctxTimeout(t)

	res, err := d.Swipe(ctx, ipc.SwipePayload{Steps: []float64{-100}, Hold: true, Wait: true})
	require.NoError(t, err)
	assert.False(t, res.Released)

	require.Eventually(t, func() bool {
		st, err := d.Status(ctx)
		return err == nil && st.Displays[0].InFlight && st.Displays[0].Animation.Running
	}, 2*time.Second, 10*time.Millisecond)

	next, err := d.Swipe(ctx, ipc.SwipePayload{Steps: []float64{-400}, VelocityY: -3, Wait: true})
	require.NoError(t, err)
	assert.True(t, next.Continued)
	assert.Equal(t, "HOME", next.EndTarget)
}

func TestDaemon_Overview(t *testing.T) {
	d, _ := startDaemon(t, testConfig())

	res, err := d.Overview(ctxTimeout(t), ipc.OverviewPayload{Wait: true})
	require.NoError(t, err)
	assert.Equal(t, "RECENTS", res.EndTarget)
	assert.Equal(t, "atomic", res.Reason)
}

func TestDaemon_UnknownDisplay(t *testing.T) {
	d, _ := startDaemon(t, testConfig())

	_, err := d.Swipe(ctxTimeout(t), ipc.SwipePayload{Display: 7})
	assert.ErrorIs(t, err, ErrUnknownDisplay)
	assert.ErrorIs(t, d.OpenOverview(7), ErrUnknownDisplay)
}

func TestDaemon_Reload(t *testing.T) {
	d, path := startDaemon(t, testConfig())
	ctx := ctxTimeout(t)
	assert.Equal(t, 1.0, d.Thresholds().FlingThreshold)

	yaml := strings.Join([]string{
		"backend:",
		"  kind: sim",
		"classifier:",
		"  fling_threshold: 2.5",
		"  fling_speed: 3",
		"watchdog:",
		"  stale_age: 30s",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	require.NoError(t, d.Reload(ctx))
	assert.Equal(t, 2.5, d.Thresholds().FlingThreshold)
	assert.Equal(t, 3.0, d.Thresholds().FlingSpeed)
	assert.Equal(t, 30*time.Second, d.Watchdog().StaleAge())

	require.NoError(t, os.WriteFile(path, []byte("classifier:\n  fling_threshold: -1\n"), 0o644))
	err := d.Reload(ctx)
	require.Error(t, err)
	assert.Equal(t, 2.5, d.Thresholds().FlingThreshold, "failed reload keeps the old tuning")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logging{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "display", 0)

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"display":0`)
}
