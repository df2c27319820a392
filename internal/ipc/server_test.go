package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/quickstep/internal/classifier"
)

type fakeBackend struct {
	swipes    []SwipePayload
	overviews []OverviewPayload
	reloads   int
	reloadErr error
	th        classifier.Thresholds
}

func (f *fakeBackend) Status(context.Context) (*StatusData, error) {
	return &StatusData{
		Backend:       "sim",
		DaemonRunning: true,
		Displays:      []DisplayStatus{{ID: 0, Name: "sim-0", Gestures: len(f.swipes)}},
	}, nil
}

func (f *fakeBackend) Swipe(_ context.Context, p SwipePayload) (*GestureResult, error) {
	f.swipes = append(f.swipes, p)
	if p.Display != 0 {
		return nil, errors.New("unknown display")
	}
	return &GestureResult{GestureID: int64(len(f.swipes)), Display: p.Display, EndTarget: "HOME", Released: p.Wait}, nil
}

func (f *fakeBackend) Overview(_ context.Context, p OverviewPayload) (*GestureResult, error) {
	f.overviews = append(f.overviews, p)
	return &GestureResult{Display: p.Display, EndTarget: "RECENTS", Reason: "atomic"}, nil
}

func (f *fakeBackend) Thresholds() classifier.Thresholds { return f.th }

func (f *fakeBackend) Reload(context.Context) error {
	f.reloads++
	return f.reloadErr
}

func startServer(t *testing.T, b Backend) *Client {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "q.sock")
	srv := NewServerAt(socket, b, nil, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return NewClientAt(socket)
}

func TestServerStatus(t *testing.T) {
	c := startServer(t, &fakeBackend{})

	st, err := c.GetStatus()
	require.NoError(t, err)
	assert.True(t, st.DaemonRunning)
	assert.Equal(t, "sim", st.Backend)
	require.Len(t, st.Displays, 1)
	assert.Equal(t, "sim-0", st.Displays[0].Name)
	assert.NoError(t, c.Ping())
}

func TestServerSwipe(t *testing.T) {
	b := &fakeBackend{}
	c := startServer(t, b)

	res, err := c.Swipe(SwipePayload{Steps: []float64{100, 300}, VelocityY: -2, Wait: true})
	require.NoError(t, err)
	assert.Equal(t, "HOME", res.EndTarget)
	assert.True(t, res.Released)
	require.Len(t, b.swipes, 1)
	assert.Equal(t, []float64{100, 300}, b.swipes[0].Steps)
	assert.Equal(t, -2.0, b.swipes[0].VelocityY)

	_, err = c.Swipe(SwipePayload{Display: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown display")

	_, err = c.Swipe(SwipePayload{Fingers: -1})
	assert.Error(t, err)
}

func TestServerOverview(t *testing.T) {
	b := &fakeBackend{}
	c := startServer(t, b)

	res, err := c.Overview(OverviewPayload{Display: 0, Wait: true})
	require.NoError(t, err)
	assert.Equal(t, "RECENTS", res.EndTarget)
	require.Len(t, b.overviews, 1)
	assert.True(t, b.overviews[0].Wait)
}

func TestServerClassify(t *testing.T) {
	b := &fakeBackend{th: classifier.DefaultThresholds()}
	c := startServer(t, b)

	tests := []struct {
		name    string
		payload ClassifyPayload
		want    string
	}{
		{
			name:    "atomic",
			payload: ClassifyPayload{Context: classifier.Context{IsAtomic: true}},
			want:    "RECENTS",
		},
		{
			name: "fling up",
			payload: ClassifyPayload{Release: classifier.Release{
				Velocity:     classifier.Velocity{Y: -3},
				EndVelocityY: -3,
				IsFling:      true,
			}},
			want: "HOME",
		},
		{
			name: "cancel",
			payload: ClassifyPayload{Release: classifier.Release{
				IsCancel: true,
			}},
			want: "LAST_TASK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Classify(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.EndTarget)
			assert.Equal(t, b.th, res.Thresholds)
		})
	}
}

func TestServerClassifyOverridesThresholds(t *testing.T) {
	c := startServer(t, &fakeBackend{th: classifier.DefaultThresholds()})

	th := classifier.Thresholds{FlingThreshold: 5, FlingSpeed: 6}
	res, err := c.Classify(ClassifyPayload{Thresholds: &th})
	require.NoError(t, err)
	assert.Equal(t, th, res.Thresholds)
}

func TestServerReload(t *testing.T) {
	b := &fakeBackend{}
	c := startServer(t, b)

	require.NoError(t, c.Reload())
	assert.Equal(t, 1, b.reloads)

	b.reloadErr = errors.New("bad yaml")
	err := c.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad yaml")
}

func TestServerUnknownCommand(t *testing.T) {
	c := startServer(t, &fakeBackend{})

	err := c.call(CommandType("NOPE"), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown command")
}

func TestClientWithoutDaemon(t *testing.T) {
	c := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	err := c.Ping()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is the daemon running?")
}

func TestClassifyPayloadAutoFling(t *testing.T) {
	tests := []struct {
		name    string
		payload ClassifyPayload
		want    string
	}{
		{
			name: "fast release is a fling",
			payload: ClassifyPayload{
				AutoFling: true,
				Release:   classifier.Release{Velocity: classifier.Velocity{Y: -3}, EndVelocityY: -3},
			},
			want: "HOME",
		},
		{
			name: "raised threshold makes it a slow release",
			payload: ClassifyPayload{
				AutoFling:  true,
				Release:    classifier.Release{Velocity: classifier.Velocity{Y: -3}, EndVelocityY: -3},
				Thresholds: &classifier.Thresholds{FlingThreshold: 5, FlingSpeed: 6},
			},
			want: "LAST_TASK",
		},
		{
			name: "paused motion is never a fling",
			payload: ClassifyPayload{
				AutoFling: true,
				Release:   classifier.Release{Velocity: classifier.Velocity{Y: -3}, EndVelocityY: -3},
				Context:   classifier.Context{MotionPaused: true},
			},
			want: "RECENTS",
		},
		{
			name: "without auto fling the flag is taken as given",
			payload: ClassifyPayload{
				Release: classifier.Release{Velocity: classifier.Velocity{Y: -3}, EndVelocityY: -3},
			},
			want: "LAST_TASK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := tt.payload.Describe(classifier.DefaultThresholds())
			assert.Equal(t, tt.want, d.Target.String())
		})
	}
}
