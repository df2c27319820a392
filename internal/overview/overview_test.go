package overview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/quickstep/internal/gesture"
	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/platform"
)

type fixture struct {
	sim    *platform.SimCompositor
	ui     *looper.Queue
	worker *looper.Queue
	panel  *Panel
	host   *Host
}

func newFixture(t *testing.T, liveTile bool, frame time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		sim:    platform.NewSimCompositor(),
		ui:     looper.NewQueue(),
		worker: looper.NewQueue(),
	}
	f.panel = NewPanel(PanelConfig{
		Compositor: f.sim,
		UI:         f.ui,
		Worker:     f.worker,
	})
	f.host = NewHost(HostConfig{
		Panel:    f.panel,
		UI:       f.ui,
		LiveTile: liveTile,
		Frame:    frame,
	})
	return f
}

func (f *fixture) drain() {
	for range 100 {
		f.ui.RunUntilIdle(time.Second)
		if f.worker.Drain() == 0 && f.ui.Pending() == 0 {
			return
		}
	}
}

func TestPanelPagesSkipHome(t *testing.T) {
	f := newFixture(t, false, 0)
	a := f.sim.AddTask(platform.Task{AppID: "editor"})
	b := f.sim.AddTask(platform.Task{AppID: "browser"})

	require.NoError(t, f.panel.Refresh())
	assert.Equal(t, []int{b.ID, a.ID}, f.panel.Status().Pages)
	assert.Equal(t, 1, f.panel.TaskIndexForID(a.ID))
	assert.Equal(t, -1, f.panel.TaskIndexForID(99))

	_, ok := f.panel.TaskAt(5)
	assert.False(t, ok)
}

func TestPanelGestureStartFindsRunningTask(t *testing.T) {
	tests := []struct {
		name        string
		running     func(f *fixture) gesture.TaskInfo
		wantRunning int
		wantPages   int
	}{
		{
			name: "running task in recents",
			running: func(f *fixture) gesture.TaskInfo {
				top, _ := f.sim.TopTask(0)
				return gesture.NewTaskInfo(0, top)
			},
			wantRunning: 0,
			wantPages:   2,
		},
		{
			name: "running task missing is prepended",
			running: func(*fixture) gesture.TaskInfo {
				return gesture.NewTaskInfo(0, platform.Task{ID: 42})
			},
			wantRunning: 0,
			wantPages:   3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false, 0)
			f.sim.AddTask(platform.Task{})
			f.sim.AddTask(platform.Task{})

			f.panel.OnGestureAnimationStart(tt.running(f))
			st := f.panel.Status()
			assert.True(t, st.Attached)
			assert.Equal(t, tt.wantRunning, f.panel.RunningTaskIndex())
			assert.Len(t, st.Pages, tt.wantPages)
			assert.Equal(t, f.panel.RunningTaskIndex(), f.panel.NextPage())
		})
	}
}

func TestPanelScrollSettlesBeforeCallback(t *testing.T) {
	f := newFixture(t, false, 0)
	f.sim.AddTask(platform.Task{})
	f.sim.AddTask(platform.Task{})
	top, _ := f.sim.TopTask(0)
	f.panel.OnGestureAnimationStart(gesture.NewTaskInfo(0, top))

	f.panel.ScrollBy(5)
	assert.Equal(t, 1, f.panel.NextPage())
	assert.Equal(t, 1, f.panel.DestinationPage())

	settled := 0
	f.panel.SetOnPageTransitionEndCallback(func() { settled++ })
	assert.Zero(t, settled)

	f.ui.Advance(DefaultSettleDelay)
	assert.Equal(t, 1, settled)
	assert.Equal(t, 1, f.panel.Status().Current)

	// Already settled: runs right away.
	f.panel.SetOnPageTransitionEndCallback(func() { settled++ })
	assert.Equal(t, 2, settled)
}

func TestPanelGestureEndDropsPendingCallback(t *testing.T) {
	f := newFixture(t, false, 0)
	f.sim.AddTask(platform.Task{})
	f.sim.AddTask(platform.Task{})
	f.panel.OnGestureAnimationStart(gesture.TaskInfo{})

	f.panel.ScrollBy(1)
	called := false
	f.panel.SetOnPageTransitionEndCallback(func() { called = true })
	f.panel.OnGestureAnimationEnd()
	f.ui.Advance(time.Second)

	assert.False(t, called)
	assert.False(t, f.panel.Status().Attached)
}

func TestPanelLaunchTask(t *testing.T) {
	f := newFixture(t, false, 0)
	a := f.sim.AddTask(platform.Task{})
	b := f.sim.AddTask(platform.Task{})
	f.sim.SetLaunchFailure(b.ID, true)

	var results []bool
	f.panel.LaunchTask(gesture.NewTaskInfo(0, a), func(ok bool) { results = append(results, ok) })
	f.panel.LaunchTask(gesture.NewTaskInfo(0, b), func(ok bool) { results = append(results, ok) })
	assert.Empty(t, results)

	f.drain()
	assert.Equal(t, []bool{true, false}, results)
	top, _ := f.sim.TopTask(0)
	assert.Equal(t, a.ID, top.ID)
	assert.Equal(t, b.ID, f.panel.Status().LastLaunch)
}

func TestPanelScreenshotThumbnails(t *testing.T) {
	f := newFixture(t, false, 0)
	done := false
	f.panel.SwitchToScreenshot(map[int]*platform.Snapshot{
		3: {TaskID: 3},
		4: nil,
	}, func() { done = true })
	assert.False(t, done)
	f.drain()
	assert.True(t, done)
	assert.Equal(t, 1, f.panel.Status().Thumbnails)
}

func TestHostSettlesOnEndTarget(t *testing.T) {
	tests := []struct {
		target      gesture.EndTarget
		wantState   gesture.ContainerState
		wantVisible bool
	}{
		{gesture.Home, gesture.ContainerHome, false},
		{gesture.Recents, gesture.ContainerOverview, true},
		{gesture.NewTask, gesture.ContainerQuickSwitch, false},
		{gesture.LastTask, gesture.ContainerBackground, false},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			f := newFixture(t, false, 0)
			f.panel.OnSwipeUpAnimationSuccess()

			wait := f.host.OnSettledOnEndTarget(tt.target)
			assert.Nil(t, wait)
			st := f.host.Status()
			assert.Equal(t, tt.wantState, st.State)
			assert.Equal(t, tt.wantVisible, st.Overview.Visible)
		})
	}
}

func TestHostLastTaskWaitsForFrame(t *testing.T) {
	f := newFixture(t, false, 16*time.Millisecond)
	wait := f.host.OnSettledOnEndTarget(gesture.LastTask)
	require.NotNil(t, wait)

	resumed := false
	wait(func() { resumed = true })
	f.ui.Advance(10 * time.Millisecond)
	assert.False(t, resumed)
	f.ui.Advance(10 * time.Millisecond)
	assert.True(t, resumed)
}

func TestHostTransitionCancelled(t *testing.T) {
	f := newFixture(t, false, 0)
	f.host.OnTransitionCancelled(true, gesture.Recents)
	assert.Equal(t, gesture.ContainerOverview, f.host.Status().State)

	f.host.OnTransitionCancelled(true, gesture.LastTask)
	assert.Equal(t, gesture.ContainerBackground, f.host.Status().State)

	f.host.OnTransitionCancelled(false, gesture.Home)
	assert.Equal(t, gesture.ContainerBackground, f.host.Status().State)
}

func TestHostLaunchFailureShowsOverview(t *testing.T) {
	f := newFixture(t, false, 0)
	f.host.OnLaunchTaskFailed()
	st := f.host.Status()
	assert.Equal(t, gesture.ContainerOverview, st.State)
	assert.Equal(t, 1, st.LaunchFailures)
	assert.True(t, st.Overview.Visible)
}

func TestHostHomeReveal(t *testing.T) {
	f := newFixture(t, false, 0)
	assert.Nil(t, f.host.StartParallelAnimation(gesture.Recents, time.Second, func() {}))

	done := false
	cancel := f.host.StartParallelAnimation(gesture.Home, 100*time.Millisecond, func() { done = true })
	require.NotNil(t, cancel)
	f.ui.Advance(200 * time.Millisecond)
	assert.True(t, done)
	assert.Equal(t, 1.0, f.host.Status().HomeReveal)

	done = false
	cancel = f.host.StartParallelAnimation(gesture.Home, time.Second, func() { done = true })
	cancel()
	assert.True(t, done)
	assert.Less(t, f.host.Status().HomeReveal, 1.0)
}

func TestTaskbarStashesForLauncherTargets(t *testing.T) {
	f := newFixture(t, true, 0)
	assert.True(t, f.host.IsInLiveTileMode())

	tb := f.host.TaskbarController()
	tb.OnEndTargetCalculated(gesture.Home)
	assert.True(t, f.host.Taskbar().Stashed())
	tb.OnEndTargetCalculated(gesture.LastTask)
	assert.False(t, f.host.Status().TaskbarStashed)
}
