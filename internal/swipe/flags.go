package swipe

import "github.com/1broseidon/quickstep/internal/gate"

var vocab = gate.NewVocabulary("swipe")

// UI-lifecycle flags of one handler.
var (
	StateLauncherPresent         = vocab.Define("LAUNCHER_PRESENT")
	StateLauncherStarted         = vocab.Define("LAUNCHER_STARTED")
	StateLauncherDrawn           = vocab.Define("LAUNCHER_DRAWN")
	StateAppControllerReceived   = vocab.Define("APP_CONTROLLER_RECEIVED")
	StateScaledControllerHome    = vocab.Define("SCALED_CONTROLLER_HOME")
	StateScaledControllerRecents = vocab.Define("SCALED_CONTROLLER_RECENTS")
	StateHandlerInvalidated      = vocab.Define("HANDLER_INVALIDATED")
	StateGestureStarted          = vocab.Define("GESTURE_STARTED")
	StateGestureCancelled        = vocab.Define("GESTURE_CANCELLED")
	StateGestureCompleted        = vocab.Define("GESTURE_COMPLETED")
	StateCaptureScreenshot       = vocab.Define("CAPTURE_SCREENSHOT")
	StateScreenshotCaptured      = vocab.Define("SCREENSHOT_CAPTURED")
	StateScreenshotViewShown     = vocab.Define("SCREENSHOT_VIEW_SHOWN")
	StateResumeLastTask          = vocab.Define("RESUME_LAST_TASK")
	StateStartNewTask            = vocab.Define("START_NEW_TASK")
	StateCurrentTaskFinished     = vocab.Define("CURRENT_TASK_FINISHED")
	StateFinishWithNoEnd         = vocab.Define("FINISH_WITH_NO_END")
	StateParallelAnimFinished    = vocab.Define("PARALLEL_ANIM_FINISHED")
)

// Vocabulary returns the handler flag names.
func Vocabulary() *gate.Vocabulary {
	return vocab
}
