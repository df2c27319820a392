package swipe

import (
	"github.com/1broseidon/quickstep/internal/gate"
	"github.com/1broseidon/quickstep/internal/gesture"
	"github.com/1broseidon/quickstep/internal/platform"
	"github.com/1broseidon/quickstep/internal/statslog"
)

// on registers fn to run once mask is satisfied, unless the handler has been
// invalidated by then.
func (h *Handler) on(mask gate.Set, name string, fn func()) {
	h.state.RunOnceAtState(mask, name, func() {
		if h.IsInvalidated() {
			return
		}
		fn()
	})
}

// always registers fn to run once mask is satisfied, invalidated or not.
func (h *Handler) always(mask gate.Set, name string, fn func()) {
	h.state.RunOnceAtState(mask, name, fn)
}

// initTransitions wires the lifecycle. Registration order is firing order
// within one drain, so the release step is registered last.
func (h *Handler) initTransitions() {
	h.on(StateLauncherPresent|StateGestureStarted, "launcherPresentAndGestureStarted",
		h.onLauncherPresentAndGestureStarted)
	h.always(StateLauncherPresent|StateLauncherStarted|StateGestureCancelled, "resetOnCancel",
		h.resetStateForAnimationCancel)
	h.on(StateResumeLastTask|StateAppControllerReceived, "resumeLastTask",
		h.resumeLastTask)
	h.on(StateStartNewTask|StateScreenshotCaptured, "startNewTask",
		h.startNewTask)
	h.on(StateLauncherPresent|StateAppControllerReceived|StateLauncherDrawn|StateCaptureScreenshot, "switchToScreenshot",
		h.switchToScreenshot)
	h.on(StateScreenshotCaptured|StateGestureCompleted|StateScaledControllerRecents, "finishToRecents",
		h.finishCurrentTransitionToRecents)
	h.on(StateScreenshotCaptured|StateGestureCompleted|StateScaledControllerHome, "finishToHome",
		h.finishCurrentTransitionToHome)
	h.on(StateScaledControllerHome|StateCurrentTaskFinished|StateParallelAnimFinished, "resetAfterHome",
		h.reset)
	h.on(StateLauncherPresent|StateLauncherStarted|StateScaledControllerRecents|StateCurrentTaskFinished|StateGestureCompleted,
		"setupLauncherUiAfterRecents", h.setupLauncherUIAfterSwipeUpToRecents)

	h.always(StateHandlerInvalidated, "invalidateHandler", h.invalidateHandler)
	h.always(StateLauncherPresent|StateHandlerInvalidated, "invalidateHandlerWithLauncher",
		h.invalidateHandlerWithLauncher)
	h.always(StateHandlerInvalidated|StateResumeLastTask, "resetOnResume",
		h.resetStateForAnimationCancel)
	h.always(StateHandlerInvalidated|StateFinishWithNoEnd, "resetOnNoEnd",
		h.resetStateForAnimationCancel)

	gs := h.gs
	gs.RunOnceAtState(gesture.StateEndTargetSet|gesture.StateRecentsAnimationStarted, "calculateEndTarget",
		h.guard(h.onCalculateEndTarget))
	gs.RunOnceAtState(gesture.StateEndTargetAnimationFinished|gesture.StateRecentsScrollingFinished, "settledOnEndTarget",
		h.guard(h.onSettledOnEndTarget))

	h.always(StateHandlerInvalidated, "release", h.release)
}

func (h *Handler) guard(fn func()) func() {
	return func() {
		if h.IsInvalidated() {
			return
		}
		fn()
	}
}

func (h *Handler) onLauncherPresentAndGestureStarted() {
	if h.overview != nil {
		h.overview.OnGestureAnimationStart(h.gs.RunningTask())
	}
	h.container.PrepareRecentsUI(h.launcherVisible)
}

func (h *Handler) resetStateForAnimationCancel() {
	if h.container == nil {
		return
	}
	wasVisible := h.launcherVisible || h.gestureStarted
	h.container.OnTransitionCancelled(wasVisible, h.EndTarget())
}

func (h *Handler) onCalculateEndTarget() {
	if h.session == nil {
		// The gesture state hears about the start before the handler does.
		h.hintsPending = true
		return
	}
	h.sendEndTargetHints(h.gs.EndTarget())
}

func (h *Handler) sendEndTargetHints(target gesture.EndTarget) {
	s := h.session
	if target == gesture.Home {
		s.DetachNavigationBarFromApp(true)
	}
	s.SetWillFinishToHome(target == gesture.Home)
	s.SetUseLauncherSystemBarFlags(target.IsLauncher())
	if tb := h.container.TaskbarController(); tb != nil {
		tb.OnEndTargetCalculated(target)
	}
}

func (h *Handler) onSettledOnEndTarget() {
	target := h.gs.EndTarget()
	h.logger.Debug("settled on end target", "end_target", target, "state", h.Describe())
	waitForFrame := h.container.OnSettledOnEndTarget(target)
	switch target {
	case gesture.Home:
		h.state.SetState(StateScaledControllerHome | StateCaptureScreenshot)
	case gesture.Recents:
		h.state.SetState(StateScaledControllerRecents | StateCaptureScreenshot | StateScreenshotViewShown)
	case gesture.NewTask:
		h.state.SetState(StateStartNewTask | StateCaptureScreenshot)
	case gesture.LastTask:
		h.container.SetDividerShown(true)
		if waitForFrame == nil {
			h.state.SetState(StateResumeLastTask)
			return
		}
		waitForFrame(func() { h.state.SetState(StateResumeLastTask) })
	}
}

func (h *Handler) resumeLastTask() {
	if h.session != nil {
		h.session.Finish(false, nil, false)
	}
	h.reset()
}

func (h *Handler) switchToScreenshot() {
	if !h.targets.HasTargets() || h.session == nil {
		h.state.SetState(StateScreenshotCaptured)
		return
	}
	target := h.gs.EndTarget()
	if cached := h.snapshotCache; cached != nil {
		h.snapshotCache = nil
		h.applyScreenshot(target, cached)
		return
	}

	s := h.session
	taskID := h.gs.RunningTaskID()
	h.worker.Post(func() {
		snap, err := s.ScreenshotTask(taskID)
		h.ui.Post(func() {
			if h.IsInvalidated() {
				return
			}
			if err != nil {
				h.logger.Warn("task screenshot failed", "task", taskID, "error", err)
				h.state.SetState(StateScreenshotCaptured)
				return
			}
			h.applyScreenshot(target, map[int]*platform.Snapshot{taskID: snap})
		})
	})
}

func (h *Handler) applyScreenshot(target gesture.EndTarget, snapshots map[int]*platform.Snapshot) {
	if target == gesture.Home || h.overview == nil {
		h.state.SetState(StateScreenshotCaptured)
		return
	}
	h.overview.SwitchToScreenshot(snapshots, func() {
		h.state.SetState(StateScreenshotCaptured)
	})
}

func (h *Handler) startNewTask() {
	gs := h.gs
	var (
		task gesture.TaskInfo
		ok   bool
	)
	if h.overview != nil {
		task, ok = h.overview.TaskAt(h.overview.NextPage())
	}
	if !ok {
		h.onLaunchTaskFailed("no task at next page")
		return
	}

	gs.UpdateLastStartedTaskIDs(task.IDs...)
	appearedBefore := gs.HasTaskPreviouslyAppeared(task.TopID())
	h.logger.Info("launching task", "task", task.TopID(), "appeared_before", appearedBefore)
	h.overview.LaunchTask(task, func(launched bool) {
		if h.IsInvalidated() {
			return
		}
		if !launched {
			h.onLaunchTaskFailed("launch refused")
			return
		}
		if appearedBefore && h.session != nil {
			h.session.Finish(false, nil, false)
			h.reset()
		}
	})
}

func (h *Handler) onLaunchTaskFailed(reason string) {
	h.logger.Warn("task launch failed, returning to overview", "reason", reason)
	h.record(statslog.EventLaunchFailed, reason)
	h.container.OnLaunchTaskFailed()
	if h.session != nil {
		h.session.Finish(true, nil, false)
	}
	h.reset()
}

func (h *Handler) finishCurrentTransitionToRecents() {
	if h.features.LiveTile && h.container.IsInLiveTileMode() {
		h.state.SetState(StateCurrentTaskFinished)
		return
	}
	if !h.targets.HasTargets() || h.session == nil {
		h.state.SetState(StateCurrentTaskFinished)
		return
	}
	h.session.Finish(true, func() { h.state.SetState(StateCurrentTaskFinished) }, false)
}

func (h *Handler) finishCurrentTransitionToHome() {
	if !h.targets.HasTargets() || h.session == nil {
		h.state.SetState(StateCurrentTaskFinished)
		return
	}
	h.session.Finish(true, func() { h.state.SetState(StateCurrentTaskFinished) }, true)
}

func (h *Handler) setupLauncherUIAfterSwipeUpToRecents() {
	if h.overview != nil {
		h.overview.OnSwipeUpAnimationSuccess()
	}
	if h.features.LiveTile && h.container.IsInLiveTileMode() && h.liveTile != nil {
		s := h.session
		overview := h.overview
		h.liveTile.SetLiveTileCleanUpHandler(func() {
			if overview != nil {
				overview.SetRecentsAnimationTargets(nil, nil)
			}
			if s != nil {
				s.Finish(true, nil, false)
			}
		})
		h.liveTile.EnableLiveTileRestartListener()
	}
	h.reset()
}

func (h *Handler) invalidateHandler() {
	keepLiveTile := h.features.LiveTile && h.container.IsInLiveTileMode() &&
		h.EndTarget() == gesture.Recents
	if h.liveTile != nil && !keepLiveTile {
		h.liveTile.SetLiveTileCleanUpHandler(nil)
	}

	h.windowAnim.End()
	h.windowAnim = nil
	if cancel := h.parallelCancel; cancel != nil {
		h.parallelCancel = nil
		cancel()
	}
	if h.session != nil {
		h.session.RemoveListener(h)
	}
	h.snapshotCache = nil

	cleanups := h.cleanups
	h.cleanups = nil
	for _, fn := range cleanups {
		fn()
	}
	if fn := h.onGestureEnd; fn != nil {
		h.onGestureEnd = nil
		fn()
	}
}

func (h *Handler) invalidateHandlerWithLauncher() {
	if h.overview == nil {
		return
	}
	h.overview.SetOnPageTransitionEndCallback(nil)
	h.overview.OnGestureAnimationEnd()
}

// release drops the gesture state. It runs after every other invalidation
// step.
func (h *Handler) release() {
	gs := h.gs
	h.final = gs.EndTarget()
	d := h.now().Sub(h.startedAt)

	h.metrics.RecordInvalidated(h.final.String(), d)
	if h.stats != nil {
		sessionID := ""
		if h.session != nil {
			sessionID = h.session.ID()
		}
		h.stats.Record(statslog.Entry{
			Event:     h.outcome,
			GestureID: gs.ID(),
			DisplayID: gs.DisplayID(),
			SessionID: sessionID,
			EndTarget: h.final.String(),
			Reason:    string(h.decision.Reason),
			Origin:    gs.TrackpadGestureType().String(),
			Duration:  d,
		})
	}
	h.logger.Info("gesture released", "end_target", h.final, "outcome", h.outcome, "duration", d)

	h.released = true
	h.gs = gesture.Default()
}
