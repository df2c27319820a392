package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// sourcePager marks client messages as direct user actions.
const sourcePager = 2

// GetCurrentDesktop returns the current virtual desktop number (0-indexed).
func (c *Connection) GetCurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// GetWindowDesktop returns the desktop a window is on, or -1 for sticky
// windows.
func (c *Connection) GetWindowDesktop(win xproto.Window) (int, error) {
	desktop, err := ewmh.WmDesktopGet(c.XUtil, win)
	if err != nil {
		return 0, fmt.Errorf("failed to get window desktop: %w", err)
	}
	if desktop == 0xFFFFFFFF {
		return -1, nil
	}
	return int(desktop), nil
}

// ActivateWindow raises and focuses win through _NET_ACTIVE_WINDOW. The
// message is built by hand; the xgbutil request helper panics on this
// library version.
func (c *Connection) ActivateWindow(win xproto.Window) error {
	if err := c.sendRootMessage(win, "_NET_ACTIVE_WINDOW", sourcePager); err != nil {
		return fmt.Errorf("failed to activate window 0x%x: %w", uint32(win), err)
	}
	return nil
}

// MinimizeWindow iconifies win via WM_CHANGE_STATE.
func (c *Connection) MinimizeWindow(win xproto.Window) error {
	const iconicState = 3
	if err := c.sendRootMessage(win, "WM_CHANGE_STATE", iconicState); err != nil {
		return fmt.Errorf("failed to minimize window 0x%x: %w", uint32(win), err)
	}
	return nil
}

// ShowDesktop toggles _NET_SHOWING_DESKTOP, revealing the desktop (home)
// when show is set.
func (c *Connection) ShowDesktop(show bool) error {
	return ewmh.ShowingDesktopReq(c.XUtil, show)
}
