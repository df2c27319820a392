package recents

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/platform"
)

type finishCall struct {
	toRecents bool
	leaveHint bool
	done      func(bool)
}

type fakeController struct {
	finishes         []finishCall
	willFinishToHome []bool
	detachNavBar     []bool
	systemBars       []bool
	shots            map[int]*platform.Snapshot
}

func (c *fakeController) Finish(toRecents, sendUserLeaveHint bool, done func(ok bool)) {
	c.finishes = append(c.finishes, finishCall{toRecents, sendUserLeaveHint, done})
}

func (c *fakeController) ScreenshotTask(taskID int) (*platform.Snapshot, error) {
	if s, ok := c.shots[taskID]; ok {
		return s, nil
	}
	return nil, errors.New("no such task")
}

func (c *fakeController) SetWillFinishToHome(v bool) {
	c.willFinishToHome = append(c.willFinishToHome, v)
}

func (c *fakeController) DetachNavigationBarFromApp(v bool) {
	c.detachNavBar = append(c.detachNavBar, v)
}

func (c *fakeController) SetUseLauncherSystemBarFlags(v bool) {
	c.systemBars = append(c.systemBars, v)
}

type fakeOwner struct {
	finishRequested int
	ended           int
}

func (o *fakeOwner) OnFinishRequested(*Session) { o.finishRequested++ }
func (o *fakeOwner) OnSessionEnded(*Session)    { o.ended++ }

type recordingListener struct {
	events []string
}

func (l *recordingListener) OnRecentsAnimationStart(*Session, *platform.Targets) {
	l.events = append(l.events, "start")
}

func (l *recordingListener) OnRecentsAnimationCanceled(map[int]*platform.Snapshot) {
	l.events = append(l.events, "canceled")
}

func (l *recordingListener) OnRecentsAnimationFinished(*Session) {
	l.events = append(l.events, "finished")
}

func (l *recordingListener) OnTasksAppeared([]platform.Target) {
	l.events = append(l.events, "appeared")
}

type harness struct {
	ui, worker *looper.Queue
	owner      *fakeOwner
	controller *fakeController
	listener   *recordingListener
	session    *Session
}

func newHarness() *harness {
	h := &harness{
		ui:         looper.NewQueue(),
		worker:     looper.NewQueue(),
		owner:      &fakeOwner{},
		controller: &fakeController{shots: map[int]*platform.Snapshot{}},
		listener:   &recordingListener{},
	}
	h.session = New(Config{DisplayID: 0, UI: h.ui, Worker: h.worker, Owner: h.owner})
	h.session.AddListener(h.listener)
	return h
}

func (h *harness) drain() {
	for h.ui.Drain()+h.worker.Drain() > 0 {
	}
}

func (h *harness) start() {
	h.session.OnAnimationStart(h.controller, &platform.Targets{Apps: []platform.Target{{TaskID: 7}}})
	h.drain()
}

func TestSession_FinishCoalesces(t *testing.T) {
	h := newHarness()
	h.start()

	var order []int
	for i := 1; i <= 3; i++ {
		h.session.Finish(true, func() { order = append(order, i) }, false)
	}
	h.drain()

	require.Len(t, h.controller.finishes, 1)
	assert.True(t, h.controller.finishes[0].toRecents)
	assert.Empty(t, order, "callbacks must wait for confirmation")
	assert.Equal(t, 1, h.owner.finishRequested)
	assert.True(t, h.session.FinishRequested())
	assert.True(t, h.session.FinishTargetIsLauncher())

	h.controller.finishes[0].done(true)
	h.drain()

	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, []string{"start", "finished"}, h.listener.events)
	assert.Equal(t, 1, h.owner.ended)
	assert.True(t, h.session.IsDiscarded())
	assert.False(t, h.session.IsRunning())
}

func TestSession_FinishBeforeStartIsDeferred(t *testing.T) {
	h := newHarness()

	done := false
	h.session.Finish(false, func() { done = true }, true)
	h.drain()
	assert.Equal(t, 1, h.owner.finishRequested)
	assert.Empty(t, h.controller.finishes)

	h.start()
	require.Len(t, h.controller.finishes, 1)
	assert.False(t, h.controller.finishes[0].toRecents)
	assert.True(t, h.controller.finishes[0].leaveHint)

	h.controller.finishes[0].done(true)
	h.drain()
	assert.True(t, done)
}

func TestSession_DiscardedSessionRunsCallbacksWithoutCompositor(t *testing.T) {
	h := newHarness()
	h.start()
	h.session.Finish(false, nil, false)
	h.drain()
	h.controller.finishes[0].done(true)
	h.drain()

	ran := 0
	h.session.Finish(true, func() { ran++ }, false)
	h.session.SetWillFinishToHome(true)
	h.drain()

	assert.Equal(t, 1, ran)
	assert.Len(t, h.controller.finishes, 1)
	assert.Empty(t, h.controller.willFinishToHome)
	assert.Equal(t, 1, h.owner.finishRequested)
}

func TestSession_TasksAppearedBufferedUntilStart(t *testing.T) {
	h := newHarness()

	h.session.OnTasksAppeared([]platform.Target{{TaskID: 9}})
	h.drain()
	assert.Empty(t, h.listener.events)

	h.start()
	assert.Equal(t, []string{"start", "appeared"}, h.listener.events)
}

func TestSession_CancelRunsPendingCallbacks(t *testing.T) {
	h := newHarness()
	h.start()

	ran := 0
	h.session.Finish(true, func() { ran++ }, false)
	h.session.OnAnimationCanceled(map[int]*platform.Snapshot{7: {TaskID: 7}})
	h.drain()

	assert.Equal(t, 1, ran)
	assert.True(t, h.session.WasCanceled())
	assert.Equal(t, []string{"start", "canceled"}, h.listener.events)

	// A late confirmation must not run anything twice.
	h.controller.finishes[0].done(true)
	h.drain()
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, h.owner.ended)
}

func TestSession_StartAfterDiscardFinishesToApp(t *testing.T) {
	h := newHarness()
	h.session.Cancel("refused")
	h.drain()
	require.Equal(t, []string{"canceled"}, h.listener.events)

	h.start()
	require.Len(t, h.controller.finishes, 1)
	assert.False(t, h.controller.finishes[0].toRecents)
	assert.Equal(t, []string{"canceled"}, h.listener.events)
	assert.Nil(t, h.session.Controller())
}

func TestSession_HintsAreDeduplicated(t *testing.T) {
	h := newHarness()

	h.session.SetWillFinishToHome(true)
	h.drain()
	assert.Empty(t, h.controller.willFinishToHome, "hints before start are dropped")

	h.start()
	h.session.SetWillFinishToHome(true)
	h.session.SetWillFinishToHome(true)
	h.session.SetWillFinishToHome(false)
	h.session.DetachNavigationBarFromApp(true)
	h.session.DetachNavigationBarFromApp(true)
	h.session.SetUseLauncherSystemBarFlags(false)
	h.drain()

	assert.Equal(t, []bool{true, false}, h.controller.willFinishToHome)
	assert.Equal(t, []bool{true}, h.controller.detachNavBar)
	assert.Equal(t, []bool{false}, h.controller.systemBars)
}

func TestSession_ScreenshotTask(t *testing.T) {
	h := newHarness()

	_, err := h.session.ScreenshotTask(7)
	assert.ErrorIs(t, err, ErrNotStarted)

	h.controller.shots[7] = &platform.Snapshot{TaskID: 7, Width: 4, Height: 2}
	h.start()
	snap, err := h.session.ScreenshotTask(7)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Width)
}

func TestSession_ListenerRemovedDuringDispatch(t *testing.T) {
	h := newHarness()
	second := &recordingListener{}
	remover := &removingListener{session: h.session, target: second}
	h.session.AddListener(remover)
	h.session.AddListener(second)

	h.start()
	assert.Equal(t, []string{"start"}, second.events, "snapshot dispatch still reaches removed listener")
	assert.False(t, h.session.HasListener(second))
}

type removingListener struct {
	NopListener
	session *Session
	target  Listener
}

func (l *removingListener) OnRecentsAnimationStart(*Session, *platform.Targets) {
	l.session.RemoveListener(l.target)
}
