package x11

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// Geometry is a window rectangle in root coordinates.
type Geometry struct {
	X, Y          int
	Width, Height int
}

// Center returns the geometry's center point.
func (g Geometry) Center() (int, int) {
	return g.X + g.Width/2, g.Y + g.Height/2
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	return len(types) == 0
}

// IsHidden reports whether the window is minimized.
func (c *Connection) IsHidden(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	return slices.Contains(states, "_NET_WM_STATE_HIDDEN")
}

// GetActiveWindow returns the focused client window.
func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// StackingOrder lists client windows topmost first.
func (c *Connection) StackingOrder() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListStackingGet(c.XUtil)
	if err != nil {
		// Not every window manager keeps the stacking list.
		clients, err = ewmh.ClientListGet(c.XUtil)
		if err != nil {
			return nil, fmt.Errorf("failed to list clients: %w", err)
		}
	}
	out := slices.Clone(clients)
	slices.Reverse(out)
	return out, nil
}

// WindowGeometry returns the window rectangle in root coordinates.
func (c *Connection) WindowGeometry(windowID xproto.Window) (Geometry, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to get geometry of 0x%x: %w", uint32(windowID), err)
	}
	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to translate 0x%x: %w", uint32(windowID), err)
	}
	return Geometry{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// WindowClass returns the WM_CLASS class of a window.
func (c *Connection) WindowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// WindowTitle returns the EWMH title, falling back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if title, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// Capture is the raw contents of a window.
type Capture struct {
	Width, Height int
	Depth         int
	Pix           []byte
}

// CaptureWindow grabs the window contents as a ZPixmap.
func (c *Connection) CaptureWindow(windowID xproto.Window) (*Capture, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get geometry of 0x%x: %w", uint32(windowID), err)
	}
	img, err := xproto.GetImage(c.XUtil.Conn(), xproto.ImageFormatZPixmap, xproto.Drawable(windowID),
		0, 0, geom.Width, geom.Height, 0xFFFFFFFF).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to capture 0x%x: %w", uint32(windowID), err)
	}
	return &Capture{
		Width:  int(geom.Width),
		Height: int(geom.Height),
		Depth:  int(img.Depth),
		Pix:    img.Data,
	}, nil
}
