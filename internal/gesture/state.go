// Package gesture holds the evolving facts about one physical gesture: which
// task was running, the end target once decided, recents-animation lifecycle
// flags and the bookkeeping a chained gesture inherits from its predecessor.
package gesture

import (
	"sync/atomic"
	"time"

	"github.com/1broseidon/quickstep/internal/gate"
	"github.com/1broseidon/quickstep/internal/invariant"
	"github.com/1broseidon/quickstep/internal/platform"
	"github.com/1broseidon/quickstep/internal/recents"
)

var vocab = gate.NewVocabulary("gesture")

// Gesture-lifecycle flags. Bits are only ever added within one gesture.
var (
	StateEndTargetSet                = vocab.Define("END_TARGET_SET")
	StateEndTargetAnimationFinished  = vocab.Define("END_TARGET_ANIMATION_FINISHED")
	StateRecentsScrollingFinished    = vocab.Define("RECENTS_SCROLLING_FINISHED")
	StateRecentsAnimationInitialized = vocab.Define("RECENTS_ANIMATION_INITIALIZED")
	StateRecentsAnimationStarted     = vocab.Define("RECENTS_ANIMATION_STARTED")
	StateRecentsAnimationCanceled    = vocab.Define("RECENTS_ANIMATION_CANCELED")
	StateRecentsAnimationFinished    = vocab.Define("RECENTS_ANIMATION_FINISHED")
	StateRecentsAnimationEnded       = vocab.Define("RECENTS_ANIMATION_ENDED")
)

// Vocabulary returns the gesture flag names.
func Vocabulary() *gate.Vocabulary {
	return vocab
}

var gestureIDs atomic.Int64

// Options configures a new gesture.
type Options struct {
	DisplayID int
	Running   TaskInfo
	Trackpad  TrackpadGestureType
	// Atomic marks a button-triggered gesture that never drags.
	Atomic bool
	Report *invariant.Reporter
	Now    time.Time
}

// State is the per-gesture data holder with its own lifecycle gate.
type State struct {
	id        int64
	displayID int
	running   TaskInfo
	trackpad  TrackpadGestureType
	atomic    bool
	startedAt time.Time

	endTarget EndTarget
	gate      *gate.Gate
	report    *invariant.Reporter

	lastStartedTaskIDs  []int
	previouslyAppeared  map[int]struct{}
	lastAppearedTargets []platform.Target
}

var _ recents.Listener = (*State)(nil)

// New creates the state for a fresh gesture.
func New(opts Options) *State {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &State{
		id:                 gestureIDs.Add(1),
		displayID:          opts.DisplayID,
		running:            opts.Running,
		trackpad:           opts.Trackpad,
		atomic:             opts.Atomic,
		startedAt:          now,
		gate:               gate.New(vocab, opts.Report),
		report:             opts.Report,
		previouslyAppeared: make(map[int]struct{}),
	}
}

// NewContinuation creates the state for a gesture chained onto prev. The
// launch and appearance bookkeeping carries over so the new gesture can tell
// whether a task it expects has already appeared.
func NewContinuation(prev *State, opts Options) *State {
	s := New(opts)
	if prev == nil {
		return s
	}
	s.lastStartedTaskIDs = append([]int(nil), prev.lastStartedTaskIDs...)
	for id := range prev.previouslyAppeared {
		s.previouslyAppeared[id] = struct{}{}
	}
	s.lastAppearedTargets = append([]platform.Target(nil), prev.lastAppearedTargets...)
	return s
}

// Default returns the empty sentinel that replaces a gesture once its handler
// is invalidated.
func Default() *State {
	return &State{
		id:                 -1,
		gate:               gate.New(vocab, nil),
		previouslyAppeared: make(map[int]struct{}),
	}
}

// ID returns the gesture id, -1 for the sentinel.
func (s *State) ID() int64 { return s.id }

// IsDefault reports whether s is the empty sentinel.
func (s *State) IsDefault() bool { return s.id == -1 }

// DisplayID returns the display the gesture started on.
func (s *State) DisplayID() int { return s.displayID }

// RunningTask returns the task(s) visible when the gesture began.
func (s *State) RunningTask() TaskInfo { return s.running }

// RunningTaskID returns the primary running task id, -1 when none.
func (s *State) RunningTaskID() int { return s.running.TopID() }

// TrackpadGestureType returns the gesture origin.
func (s *State) TrackpadGestureType() TrackpadGestureType { return s.trackpad }

// IsHandlingAtomicEvent reports whether this is a button-triggered gesture.
func (s *State) IsHandlingAtomicEvent() bool { return s.atomic }

// StartedAt returns when the gesture began.
func (s *State) StartedAt() time.Time { return s.startedAt }

// EndTarget returns the decided end target, EndTargetNone until set.
func (s *State) EndTarget() EndTarget { return s.endTarget }

// SetEndTarget latches the end target. The end target is write-once: setting
// the same value again does nothing, a different value is a violation and is
// ignored. isAtomic also marks the end-target animation as finished, for
// callers that have no animation to run.
func (s *State) SetEndTarget(t EndTarget, isAtomic bool) {
	if t == EndTargetNone {
		s.report.Violation("end target cleared", "gesture", s.id)
		return
	}
	if s.endTarget != EndTargetNone && s.endTarget != t {
		s.report.Violation("end target rewritten",
			"gesture", s.id,
			"current", s.endTarget.String(),
			"requested", t.String())
		return
	}
	s.endTarget = t
	s.gate.SetState(StateEndTargetSet)
	if isAtomic {
		s.gate.SetState(StateEndTargetAnimationFinished)
	}
}

// CorrectEndTarget swaps a latched NEW_TASK for LAST_TASK or the reverse once
// the actual launch outcome is known. It is the only permitted second write.
func (s *State) CorrectEndTarget(t EndTarget) bool {
	switchable := func(e EndTarget) bool { return e == NewTask || e == LastTask }
	if !switchable(s.endTarget) || !switchable(t) {
		s.report.Violation("end target correction outside NEW_TASK/LAST_TASK",
			"gesture", s.id,
			"current", s.endTarget.String(),
			"requested", t.String())
		return false
	}
	s.endTarget = t
	return true
}

// SetState adds gesture-lifecycle flags.
func (s *State) SetState(bits gate.Set) { s.gate.SetState(bits) }

// HasState reports whether every flag in bits is set.
func (s *State) HasState(bits gate.Set) bool { return s.gate.HasStates(bits) }

// RunOnceAtState registers fn against gesture-lifecycle flags.
func (s *State) RunOnceAtState(bits gate.Set, name string, fn func()) {
	s.gate.RunOnceAtState(bits, name, fn)
}

// Describe renders the gesture flags for logs.
func (s *State) Describe() string { return s.gate.Describe() }

// IsRecentsAnimationRunning reports whether the recents animation has started
// and not yet ended.
func (s *State) IsRecentsAnimationRunning() bool {
	return s.gate.HasStates(StateRecentsAnimationStarted) && !s.gate.HasStates(StateRecentsAnimationEnded)
}

// UpdateLastStartedTaskIDs records the task(s) a NEW_TASK launch targeted.
func (s *State) UpdateLastStartedTaskIDs(ids ...int) {
	s.lastStartedTaskIDs = append([]int(nil), ids...)
}

// StartedTaskID returns the task this gesture chain last asked to start.
func (s *State) StartedTaskID() (int, bool) {
	if len(s.lastStartedTaskIDs) == 0 {
		return -1, false
	}
	return s.lastStartedTaskIDs[0], true
}

// HasStartedNewTask reports whether a task launch was requested in this chain.
func (s *State) HasStartedNewTask() bool {
	return len(s.lastStartedTaskIDs) > 0
}

// HasTaskPreviouslyAppeared reports whether id appeared earlier in this chain.
func (s *State) HasTaskPreviouslyAppeared(id int) bool {
	_, ok := s.previouslyAppeared[id]
	return ok
}

// LastAppearedTaskTargets returns the targets of the latest appearance.
func (s *State) LastAppearedTaskTargets() []platform.Target {
	return s.lastAppearedTargets
}

// LastAppearedTaskID returns the primary task of the latest appearance, or
// the running task when nothing has appeared.
func (s *State) LastAppearedTaskID() int {
	if len(s.lastAppearedTargets) > 0 {
		return s.lastAppearedTargets[0].TaskID
	}
	return s.RunningTaskID()
}

// OnRecentsAnimationStart marks the animation started.
func (s *State) OnRecentsAnimationStart(_ *recents.Session, _ *platform.Targets) {
	s.gate.SetState(StateRecentsAnimationInitialized | StateRecentsAnimationStarted)
}

// OnRecentsAnimationCanceled marks the animation ended by the compositor.
func (s *State) OnRecentsAnimationCanceled(_ map[int]*platform.Snapshot) {
	s.gate.SetState(StateRecentsAnimationCanceled | StateRecentsAnimationEnded)
}

// OnRecentsAnimationFinished marks the animation finished.
func (s *State) OnRecentsAnimationFinished(_ *recents.Session) {
	s.gate.SetState(StateRecentsAnimationFinished | StateRecentsAnimationEnded)
}

// OnTasksAppeared updates appearance bookkeeping.
func (s *State) OnTasksAppeared(targets []platform.Target) {
	if len(targets) == 0 {
		return
	}
	s.lastAppearedTargets = append([]platform.Target(nil), targets...)
	for _, t := range targets {
		s.previouslyAppeared[t.TaskID] = struct{}{}
	}
}
