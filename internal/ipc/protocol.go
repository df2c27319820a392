package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/quickstep/internal/classifier"
	"github.com/1broseidon/quickstep/internal/overview"
	"github.com/1broseidon/quickstep/internal/taskanim"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload    CommandType = "RELOAD"
	CommandGetStatus CommandType = "GET_STATUS"
	CommandSwipe     CommandType = "SWIPE"
	CommandOverview  CommandType = "OVERVIEW"
	CommandClassify  CommandType = "CLASSIFY"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Backend       string          `json:"backend"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	DaemonRunning bool            `json:"daemon_running"`
	Violations    int64           `json:"invariant_violations"`
	Displays      []DisplayStatus `json:"displays"`
}

// DisplayStatus is the gesture state of one display.
type DisplayStatus struct {
	ID        int                 `json:"id"`
	Name      string              `json:"name"`
	Gestures  int                 `json:"gestures"`
	InFlight  bool                `json:"in_flight"`
	Animation taskanim.Status     `json:"animation"`
	Launcher  overview.HostStatus `json:"launcher"`
}

// SwipePayload describes a synthetic gesture for SWIPE.
type SwipePayload struct {
	Display int `json:"display"`
	// Steps are finger displacements in px, negative upwards, applied in
	// order.
	Steps              []float64 `json:"steps,omitempty"`
	VelocityX          float64   `json:"velocity_x"`
	VelocityY          float64   `json:"velocity_y"`
	Cancel             bool      `json:"cancel,omitempty"`
	PauseMotion        bool      `json:"pause_motion,omitempty"`
	CanSlowSwipeGoHome bool      `json:"can_slow_swipe_go_home,omitempty"`
	HorizontalSlop     bool      `json:"horizontal_slop,omitempty"`
	Pages              int       `json:"pages,omitempty"`
	Fingers            int       `json:"fingers,omitempty"`
	LikelyNewTask      bool      `json:"likely_new_task,omitempty"`
	// Hold leaves the gesture in flight so the next one continues it.
	Hold bool `json:"hold,omitempty"`
	// Wait blocks until the gesture has released.
	Wait bool `json:"wait,omitempty"`
}

// OverviewPayload is the payload for OVERVIEW.
type OverviewPayload struct {
	Display int  `json:"display"`
	Wait    bool `json:"wait,omitempty"`
}

// GestureResult is the result of SWIPE and OVERVIEW.
type GestureResult struct {
	GestureID int64  `json:"gesture_id"`
	Display   int    `json:"display"`
	Continued bool   `json:"continued"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Filter    string `json:"filter,omitempty"`
	EndTarget string `json:"end_target,omitempty"`
	Released  bool   `json:"released"`
}

// ClassifyPayload is a dry-run classification request. Nil thresholds use
// the daemon's.
type ClassifyPayload struct {
	Release    classifier.Release     `json:"release"`
	Context    classifier.Context     `json:"context"`
	Thresholds *classifier.Thresholds `json:"thresholds,omitempty"`
	// AutoFling derives Release.IsFling from the end velocity and the
	// thresholds in effect, as the gesture handler does.
	AutoFling bool `json:"auto_fling,omitempty"`
}

// Describe classifies the payload. th is used unless the payload carries
// its own thresholds; the thresholds actually used are returned.
func (p ClassifyPayload) Describe(th classifier.Thresholds) (classifier.Decision, classifier.Thresholds) {
	if p.Thresholds != nil {
		th = *p.Thresholds
	}
	r := p.Release
	if p.AutoFling {
		r.IsFling = !p.Context.MotionPaused && classifier.IsFling(r.EndVelocityY, th.FlingThreshold)
	}
	return classifier.Describe(r, p.Context, th), th
}

// ClassifyResult is the data returned by CLASSIFY.
type ClassifyResult struct {
	EndTarget  string                `json:"end_target"`
	Reason     string                `json:"reason"`
	Filter     string                `json:"filter,omitempty"`
	Thresholds classifier.Thresholds `json:"thresholds"`
}

// NewClassifyResult renders a decision.
func NewClassifyResult(d classifier.Decision, th classifier.Thresholds) ClassifyResult {
	return ClassifyResult{
		EndTarget:  d.Target.String(),
		Reason:     string(d.Reason),
		Filter:     string(d.Filter),
		Thresholds: th,
	}
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
