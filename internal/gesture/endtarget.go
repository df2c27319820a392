package gesture

// EndTarget is the discrete outcome a gesture resolves to.
type EndTarget int

const (
	// EndTargetNone means the classifier has not decided yet.
	EndTargetNone EndTarget = iota
	// Home goes to the launcher home screen.
	Home
	// Recents goes to overview.
	Recents
	// NewTask switches to another app.
	NewTask
	// LastTask returns to the app that was running.
	LastTask
)

// ContainerState is the launcher state an end target settles into.
type ContainerState string

const (
	ContainerNone        ContainerState = ""
	ContainerHome        ContainerState = "home"
	ContainerOverview    ContainerState = "overview"
	ContainerQuickSwitch ContainerState = "quick_switch"
	ContainerBackground  ContainerState = "background"
)

// String returns the string representation of the end target
func (t EndTarget) String() string {
	switch t {
	case EndTargetNone:
		return "NONE"
	case Home:
		return "HOME"
	case Recents:
		return "RECENTS"
	case NewTask:
		return "NEW_TASK"
	case LastTask:
		return "LAST_TASK"
	default:
		return "UNKNOWN"
	}
}

// IsLauncher reports whether the target resolves to a launcher-owned state
// rather than an app.
func (t EndTarget) IsLauncher() bool {
	return t == Home || t == Recents
}

// RecentsAttachedToAppWindow reports whether the recents surface stays
// attached to the outgoing app window while animating toward t.
func (t EndTarget) RecentsAttachedToAppWindow() bool {
	switch t {
	case Recents, NewTask, LastTask:
		return true
	default:
		return false
	}
}

// ContainerState maps t to the launcher state used for curve selection.
func (t EndTarget) ContainerState() ContainerState {
	switch t {
	case Home:
		return ContainerHome
	case Recents:
		return ContainerOverview
	case NewTask:
		return ContainerQuickSwitch
	case LastTask:
		return ContainerBackground
	default:
		return ContainerNone
	}
}

// ParseEndTarget converts a name from String back to an EndTarget.
func ParseEndTarget(s string) (EndTarget, bool) {
	for _, t := range []EndTarget{EndTargetNone, Home, Recents, NewTask, LastTask} {
		if t.String() == s {
			return t, true
		}
	}
	return EndTargetNone, false
}
