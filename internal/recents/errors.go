package recents

import "errors"

// ErrNotStarted is returned by controller passthroughs before the compositor
// has started the animation.
var ErrNotStarted = errors.New("recents animation not started")
