package mcp

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// SwipeInput is the input for the swipe tool.
type SwipeInput struct {
	Display            int       `json:"display,omitempty" jsonschema:"Display id (default 0)"`
	Steps              []float64 `json:"steps,omitempty" jsonschema:"Finger displacements in px applied in order, negative upwards (e.g. [-100, -300])"`
	VelocityX          float64   `json:"velocity_x,omitempty" jsonschema:"Horizontal release velocity in px/ms"`
	VelocityY          float64   `json:"velocity_y,omitempty" jsonschema:"Vertical release velocity in px/ms, negative upwards"`
	Cancel             bool      `json:"cancel,omitempty" jsonschema:"Cancel the gesture instead of releasing it"`
	PauseMotion        bool      `json:"pause_motion,omitempty" jsonschema:"Pause the finger before release, which opens overview"`
	CanSlowSwipeGoHome bool      `json:"can_slow_swipe_go_home,omitempty" jsonschema:"Let a slow upward release go home"`
	Pages              int       `json:"pages,omitempty" jsonschema:"Scroll overview by this many pages before release"`
	Fingers            int       `json:"fingers,omitempty" jsonschema:"Trackpad finger count (2, 3 or 4); 0 is a touch swipe"`
	Hold               bool      `json:"hold,omitempty" jsonschema:"Leave the gesture in flight"`
}

// OpenOverviewInput is the input for the open_overview tool.
type OpenOverviewInput struct {
	Display int `json:"display,omitempty" jsonschema:"Display id (default 0)"`
}

// ClassifyInput is the input for the classify_gesture tool.
type ClassifyInput struct {
	VelocityX            float64 `json:"velocity_x,omitempty" jsonschema:"Horizontal release velocity in px/ms"`
	VelocityY            float64 `json:"velocity_y,omitempty" jsonschema:"Vertical release velocity in px/ms, negative upwards"`
	Cancel               bool    `json:"cancel,omitempty" jsonschema:"The gesture was cancelled"`
	HorizontalSlopPassed bool    `json:"horizontal_slop_passed,omitempty" jsonschema:"The finger moved past the horizontal slop"`
	Atomic               bool    `json:"atomic,omitempty" jsonschema:"Button-triggered gesture"`
	OverviewDisabled     bool    `json:"overview_disabled,omitempty" jsonschema:"Overview is disabled"`
	ScrollingToNewTask   bool    `json:"scrolling_to_new_task,omitempty" jsonschema:"Overview is scrolling away from the running task"`
	CenteredOnOtherTask  bool    `json:"centered_on_other_task,omitempty" jsonschema:"Overview is centered on a task other than the running one"`
	MotionPaused         bool    `json:"motion_paused,omitempty" jsonschema:"The finger paused before release"`
	CanSlowSwipeGoHome   bool    `json:"can_slow_swipe_go_home,omitempty" jsonschema:"A slow upward release may go home"`
	HorizontalSlop       bool    `json:"horizontal_slop,omitempty" jsonschema:"Horizontal slop is required for sideways flings"`
	DesktopWindowing     bool    `json:"desktop_windowing,omitempty" jsonschema:"Desktop windowing is enabled"`
	NextTaskIsDesktop    bool    `json:"next_task_is_desktop,omitempty" jsonschema:"The next overview task is a desktop"`
	RunningTaskIsDesktop bool    `json:"running_task_is_desktop,omitempty" jsonschema:"The running task is a desktop"`
	FlingThreshold       float64 `json:"fling_threshold,omitempty" jsonschema:"Override the vertical fling threshold in px/ms"`
	FlingSpeed           float64 `json:"fling_speed,omitempty" jsonschema:"Override the horizontal fling speed in px/ms"`
	Local                bool    `json:"local,omitempty" jsonschema:"Classify without contacting the daemon"`
}
