package gesture

import (
	"slices"

	"github.com/1broseidon/quickstep/internal/platform"
)

// TaskKind describes what was on screen when the gesture began.
type TaskKind int

const (
	KindSingle TaskKind = iota
	KindSplit
	KindDesktop
)

func (k TaskKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindSplit:
		return "split"
	case KindDesktop:
		return "desktop"
	default:
		return "unknown"
	}
}

// TaskInfo identifies the running task or task group of a gesture.
type TaskInfo struct {
	IDs       []int
	Kind      TaskKind
	DisplayID int
}

// NewTaskInfo builds a TaskInfo from compositor tasks. More than one task is a
// split pair unless any of them is a desktop task.
func NewTaskInfo(displayID int, tasks ...platform.Task) TaskInfo {
	info := TaskInfo{DisplayID: displayID}
	for _, t := range tasks {
		info.IDs = append(info.IDs, t.ID)
		if t.IsDesktop {
			info.Kind = KindDesktop
		}
	}
	if info.Kind != KindDesktop && len(info.IDs) > 1 {
		info.Kind = KindSplit
	}
	return info
}

// TopID returns the primary task id, or -1 when there is none.
func (t TaskInfo) TopID() int {
	if len(t.IDs) == 0 {
		return -1
	}
	return t.IDs[0]
}

// Contains reports whether id is one of the running tasks.
func (t TaskInfo) Contains(id int) bool {
	return slices.Contains(t.IDs, id)
}

// IsEmpty reports whether no task was running.
func (t TaskInfo) IsEmpty() bool {
	return len(t.IDs) == 0
}

// TrackpadGestureType classifies where the gesture came from.
type TrackpadGestureType int

const (
	// Finger is a touchscreen gesture.
	Finger TrackpadGestureType = iota
	TrackpadTwoFinger
	TrackpadThreeFinger
	TrackpadFourFinger
)

func (t TrackpadGestureType) String() string {
	switch t {
	case Finger:
		return "finger"
	case TrackpadTwoFinger:
		return "trackpad-2"
	case TrackpadThreeFinger:
		return "trackpad-3"
	case TrackpadFourFinger:
		return "trackpad-4"
	default:
		return "unknown"
	}
}

// IsTrackpad reports whether the gesture came from a trackpad.
func (t TrackpadGestureType) IsTrackpad() bool {
	return t != Finger
}

// ParseTrackpadGestureType converts a finger count (0 for touch) to a type.
func ParseTrackpadGestureType(fingers int) TrackpadGestureType {
	switch fingers {
	case 2:
		return TrackpadTwoFinger
	case 3:
		return TrackpadThreeFinger
	case 4:
		return TrackpadFourFinger
	default:
		return Finger
	}
}
