package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	controller Controller
	targets    *Targets
	canceled   map[int]*Snapshot
	appeared   [][]Target
}

func (l *recordingListener) OnAnimationStart(c Controller, t *Targets) {
	l.controller = c
	l.targets = t
}

func (l *recordingListener) OnAnimationCanceled(s map[int]*Snapshot) { l.canceled = s }

func (l *recordingListener) OnTasksAppeared(t []Target) { l.appeared = append(l.appeared, t) }

func taskIDs(tasks []Task) []int {
	ids := make([]int, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestSimRecentTasksMostRecentFirst(t *testing.T) {
	c := NewSimCompositor()
	a := c.AddTask(Task{AppID: "editor"})
	b := c.AddTask(Task{AppID: "browser"})

	tasks, err := c.RecentTasks(0)
	require.NoError(t, err)
	assert.Equal(t, []int{b.ID, a.ID, 1}, taskIDs(tasks))
	assert.True(t, tasks[2].IsHome)
	assert.Equal(t, 1920, tasks[0].Bounds.Width)

	_, err = c.RecentTasks(7)
	assert.Error(t, err)
}

func TestSimStartBuildsClosingTarget(t *testing.T) {
	c := NewSimCompositor()
	app := c.AddTask(Task{AppID: "editor"})

	l := &recordingListener{}
	require.True(t, c.StartRecentsAnimation(StartRequest{RunningTaskID: app.ID}, l))
	require.NotNil(t, l.controller)
	require.True(t, l.targets.HasTargets())
	target, ok := l.targets.FindTask(app.ID)
	require.True(t, ok)
	assert.Equal(t, ModeClosing, target.Mode)
	assert.Same(t, c.Active(), l.controller)
}

func TestSimStartOverHomeHasNoTargets(t *testing.T) {
	c := NewSimCompositor()
	l := &recordingListener{}
	require.True(t, c.StartRecentsAnimation(StartRequest{RunningTaskID: 1}, l))
	assert.False(t, l.targets.HasTargets())
}

func TestSimRefuse(t *testing.T) {
	c := NewSimCompositor()
	c.SetRefuse(true)
	assert.False(t, c.StartRecentsAnimation(StartRequest{}, &recordingListener{}))
	assert.Zero(t, c.Started())
}

func TestSimSecondStartCancelsFirst(t *testing.T) {
	c := NewSimCompositor()
	app := c.AddTask(Task{})
	first := &recordingListener{}
	second := &recordingListener{}
	c.StartRecentsAnimation(StartRequest{RunningTaskID: app.ID}, first)
	c.StartRecentsAnimation(StartRequest{RunningTaskID: app.ID}, second)

	require.NotNil(t, first.canceled)
	assert.Contains(t, first.canceled, app.ID)
	assert.Nil(t, second.canceled)
	assert.Same(t, c.Active(), second.controller)
}

func TestSimFinish(t *testing.T) {
	tests := []struct {
		name      string
		toRecents bool
		wantTop   func(app Task) int
	}{
		{name: "to recents brings home forward", toRecents: true, wantTop: func(Task) int { return 1 }},
		{name: "to app keeps app in front", toRecents: false, wantTop: func(app Task) int { return app.ID }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSimCompositor()
			app := c.AddTask(Task{})
			l := &recordingListener{}
			c.StartRecentsAnimation(StartRequest{RunningTaskID: app.ID}, l)

			var results []bool
			l.controller.Finish(tt.toRecents, true, func(ok bool) { results = append(results, ok) })
			l.controller.Finish(tt.toRecents, true, func(ok bool) { results = append(results, ok) })

			assert.Equal(t, []bool{true, false}, results)
			top, ok := c.TopTask(0)
			require.True(t, ok)
			assert.Equal(t, tt.wantTop(app), top.ID)
			assert.Nil(t, c.Active())
			assert.Same(t, l.controller, c.Last(), "finished animation stays reachable")
			assert.True(t, l.controller.(*SimAnimation).Hints().UserLeaveHintSent)
		})
	}
}

func TestSimLaunchNotifiesActiveAnimation(t *testing.T) {
	c := NewSimCompositor()
	a := c.AddTask(Task{})
	b := c.AddTask(Task{})
	l := &recordingListener{}
	c.StartRecentsAnimation(StartRequest{RunningTaskID: b.ID}, l)

	require.NoError(t, c.LaunchTask(a.ID))
	require.Len(t, l.appeared, 1)
	assert.Equal(t, a.ID, l.appeared[0][0].TaskID)
	assert.Equal(t, ModeOpening, l.appeared[0][0].Mode)

	top, _ := c.TopTask(0)
	assert.Equal(t, a.ID, top.ID)
}

func TestSimLaunchErrors(t *testing.T) {
	c := NewSimCompositor()
	app := c.AddTask(Task{})
	c.SetLaunchFailure(app.ID, true)

	assert.Error(t, c.LaunchTask(app.ID))
	assert.True(t, errors.Is(c.LaunchTask(99), ErrUnknownTask))
}

func TestSimHintsAndScreenshot(t *testing.T) {
	c := NewSimCompositor()
	app := c.AddTask(Task{})
	l := &recordingListener{}
	c.StartRecentsAnimation(StartRequest{RunningTaskID: app.ID}, l)

	ctrl := l.controller
	ctrl.DetachNavigationBarFromApp(true)
	ctrl.SetWillFinishToHome(true)
	ctrl.SetUseLauncherSystemBarFlags(true)
	assert.Equal(t, SimHints{
		WillFinishToHome: true,
		NavBarDetached:   true,
		MoveHomeToTop:    true,
		LauncherBarFlags: true,
	}, ctrl.(*SimAnimation).Hints())

	snap, err := ctrl.ScreenshotTask(app.ID)
	require.NoError(t, err)
	assert.Equal(t, 1080, snap.Height)

	c.SetScreenshotError(errors.New("no buffer"))
	_, err = ctrl.ScreenshotTask(app.ID)
	assert.Error(t, err)
}

func TestSimCancelActive(t *testing.T) {
	c := NewSimCompositor()
	app := c.AddTask(Task{})
	assert.False(t, c.CancelActive())

	l := &recordingListener{}
	c.StartRecentsAnimation(StartRequest{RunningTaskID: app.ID}, l)
	assert.True(t, c.CancelActive())
	assert.True(t, l.controller.(*SimAnimation).WasCanceled())
	assert.NotNil(t, l.canceled)
	assert.False(t, c.CancelActive())
}
