//go:build !linux

package platform

import (
	"errors"
	"log/slog"
)

// X11Compositor is only available on Linux.
type X11Compositor struct{}

// OpenX11Compositor always fails off Linux.
func OpenX11Compositor(string, *slog.Logger) (*X11Compositor, error) {
	return nil, errors.New("x11 compositor requires linux")
}

// Disconnect is a no-op.
func (c *X11Compositor) Disconnect() {}

// EventLoop is a no-op.
func (c *X11Compositor) EventLoop() {}

// Quit is a no-op.
func (c *X11Compositor) Quit() {}

func (c *X11Compositor) Displays() ([]Display, error) { return nil, errUnsupported }

func (c *X11Compositor) RecentTasks(int) ([]Task, error) { return nil, errUnsupported }

func (c *X11Compositor) StartRecentsAnimation(StartRequest, AnimationListener) bool { return false }

func (c *X11Compositor) LaunchTask(int) error { return errUnsupported }

var errUnsupported = errors.New("x11 compositor requires linux")
