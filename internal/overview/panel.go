// Package overview is a headless recents panel and the launcher host that
// owns it. The panel pages through the compositor's recent tasks; the host
// tracks launcher state, the split divider and the home reveal animation.
package overview

import (
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/quickstep/internal/gesture"
	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/platform"
	"github.com/1broseidon/quickstep/internal/recents"
)

// DefaultSettleDelay is how long a page scroll takes to settle.
const DefaultSettleDelay = 80 * time.Millisecond

// PanelConfig configures a Panel.
type PanelConfig struct {
	DisplayID  int
	Compositor platform.Compositor
	UI         looper.Executor
	Worker     looper.Executor
	// SettleDelay defaults to DefaultSettleDelay.
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// Panel is the recents panel of one display. Gesture-facing methods run on
// the UI looper; Status may be called from any goroutine.
type Panel struct {
	displayID   int
	compositor  platform.Compositor
	ui          looper.Executor
	worker      looper.Executor
	settleDelay time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	pages      []gesture.TaskInfo
	running    int
	current    int
	next       int
	scrolling  bool
	settle     looper.Cancel
	onSettled  func()
	visible    bool
	attached   bool
	session    *recents.Session
	targets    *platform.Targets
	thumbnails map[int]*platform.Snapshot
	lastLaunch int
}

// NewPanel creates an empty, hidden panel.
func NewPanel(cfg PanelConfig) *Panel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.SettleDelay
	if delay <= 0 {
		delay = DefaultSettleDelay
	}
	return &Panel{
		displayID:   cfg.DisplayID,
		compositor:  cfg.Compositor,
		ui:          cfg.UI,
		worker:      cfg.Worker,
		settleDelay: delay,
		logger:      logger.With("component", "overview", "display", cfg.DisplayID),
		running:     -1,
		thumbnails:  make(map[int]*platform.Snapshot),
		lastLaunch:  -1,
	}
}

// Refresh reloads the page list from the compositor. Home and other
// displays' tasks are skipped.
func (p *Panel) Refresh() error {
	tasks, err := p.compositor.RecentTasks(p.displayID)
	if err != nil {
		return err
	}
	pages := make([]gesture.TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		if t.IsHome || t.DisplayID != p.displayID {
			continue
		}
		pages = append(pages, gesture.NewTaskInfo(p.displayID, t))
	}

	p.mu.Lock()
	p.pages = pages
	p.mu.Unlock()
	return nil
}

// OnGestureAnimationStart attaches the panel to a gesture over running.
func (p *Panel) OnGestureAnimationStart(running gesture.TaskInfo) {
	if err := p.Refresh(); err != nil {
		p.logger.Warn("failed to load recent tasks", "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.attached = true
	p.running = -1
	for i, page := range p.pages {
		if page.Contains(running.TopID()) {
			p.running = i
			break
		}
	}
	if p.running < 0 && !running.IsEmpty() {
		// The running task is not in the recents list yet; put it first.
		p.pages = append([]gesture.TaskInfo{running}, p.pages...)
		p.running = 0
	}
	p.current = max(p.running, 0)
	p.next = p.current
}

// OnGestureAnimationEnd detaches the panel from the gesture.
func (p *Panel) OnGestureAnimationEnd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attached = false
	p.cancelSettleLocked()
	p.onSettled = nil
}

// SetRecentsAnimationTargets hands the live surfaces to the panel.
func (p *Panel) SetRecentsAnimationTargets(s *recents.Session, targets *platform.Targets) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = s
	p.targets = targets
}

// SwitchToScreenshot stores snapshots as thumbnails. onDone runs on the next
// UI turn, once the thumbnails would have been drawn.
func (p *Panel) SwitchToScreenshot(snapshots map[int]*platform.Snapshot, onDone func()) {
	p.mu.Lock()
	for id, snap := range snapshots {
		if snap != nil {
			p.thumbnails[id] = snap
		}
	}
	p.mu.Unlock()
	if onDone != nil {
		p.ui.Post(onDone)
	}
}

// RunningTaskIndex returns the page of the running task, or -1.
func (p *Panel) RunningTaskIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// NextPage returns the page the panel is scrolling to.
func (p *Panel) NextPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}

// DestinationPage returns the page a release would settle on.
func (p *Panel) DestinationPage() int {
	return p.NextPage()
}

// TaskIndexForID returns the page holding taskID, or -1.
func (p *Panel) TaskIndexForID(taskID int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, page := range p.pages {
		if page.Contains(taskID) {
			return i
		}
	}
	return -1
}

// TaskAt returns the task on page.
func (p *Panel) TaskAt(page int) (gesture.TaskInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page < 0 || page >= len(p.pages) {
		return gesture.TaskInfo{}, false
	}
	return p.pages[page], true
}

// ScrollBy moves the scroll target by delta pages, clamped to the page list.
// The scroll settles after the settle delay.
func (p *Panel) ScrollBy(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pages) == 0 || delta == 0 {
		return
	}
	p.next = min(max(p.next+delta, 0), len(p.pages)-1)
	p.scrolling = true
	p.cancelSettleLocked()
	p.settle = p.ui.PostDelayed(p.settleDelay, p.onScrollSettled)
}

func (p *Panel) onScrollSettled() {
	p.mu.Lock()
	p.settle = nil
	p.scrolling = false
	p.current = p.next
	fn := p.onSettled
	p.onSettled = nil
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *Panel) cancelSettleLocked() {
	if p.settle != nil {
		p.settle()
		p.settle = nil
	}
}

// SetOnPageTransitionEndCallback calls fn once scrolling settles, right away
// if it already has. nil clears a pending callback.
func (p *Panel) SetOnPageTransitionEndCallback(fn func()) {
	p.mu.Lock()
	if fn == nil || p.scrolling {
		p.onSettled = fn
		p.mu.Unlock()
		return
	}
	p.onSettled = nil
	p.mu.Unlock()
	fn()
}

// LaunchTask asks the compositor to bring task to the front. done runs on
// the UI looper.
func (p *Panel) LaunchTask(task gesture.TaskInfo, done func(ok bool)) {
	id := task.TopID()
	p.mu.Lock()
	p.lastLaunch = id
	p.mu.Unlock()

	compositor := p.compositor
	p.worker.Post(func() {
		err := compositor.LaunchTask(id)
		if err != nil {
			p.logger.Warn("launch failed", "task", id, "error", err)
		}
		p.ui.Post(func() { done(err == nil) })
	})
}

// OnSwipeUpAnimationSuccess shows the panel.
func (p *Panel) OnSwipeUpAnimationSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = true
}

// Hide hides the panel and drops its live surfaces.
func (p *Panel) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = false
	p.session = nil
	p.targets = nil
}

// PanelStatus is a point-in-time view of the panel.
type PanelStatus struct {
	Visible     bool   `json:"visible"`
	Attached    bool   `json:"attached"`
	Pages       []int  `json:"pages"`
	Running     int    `json:"running"`
	Current     int    `json:"current"`
	Next        int    `json:"next"`
	Thumbnails  int    `json:"thumbnails"`
	LiveTargets int    `json:"live_targets"`
	Session     string `json:"session,omitempty"`
	LastLaunch  int    `json:"last_launch"`
}

// Status snapshots the panel.
func (p *Panel) Status() PanelStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PanelStatus{
		Visible:    p.visible,
		Attached:   p.attached,
		Running:    p.running,
		Current:    p.current,
		Next:       p.next,
		Thumbnails: len(p.thumbnails),
		LastLaunch: p.lastLaunch,
	}
	for _, page := range p.pages {
		st.Pages = append(st.Pages, page.TopID())
	}
	if p.targets != nil {
		st.LiveTargets = len(p.targets.Apps)
	}
	if p.session != nil {
		st.Session = p.session.ID()
	}
	return st
}
