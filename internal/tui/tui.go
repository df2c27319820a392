// Package tui is an interactive gesture console: it polls the daemon's
// status and plays preset gestures on the selected display.
package tui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/quickstep/internal/ipc"
)

// PollInterval is how often the console refreshes the daemon status.
const PollInterval = 250 * time.Millisecond

// Control is the daemon surface the console drives. *ipc.Client implements
// it.
type Control interface {
	GetStatus() (*ipc.StatusData, error)
	Swipe(p ipc.SwipePayload) (*ipc.GestureResult, error)
	Overview(p ipc.OverviewPayload) (*ipc.GestureResult, error)
}

var _ Control = (*ipc.Client)(nil)

// Run starts the console and blocks until the user quits.
func Run(control Control) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	_, err := tea.NewProgram(newModel(control), tea.WithAltScreen()).Run()
	return err
}

// preset is a canned gesture bound to a key.
type preset struct {
	key     string
	label   string
	payload ipc.SwipePayload
}

var presets = []preset{
	{key: "h", label: "fling home", payload: ipc.SwipePayload{Steps: []float64{-150, -300}, VelocityY: -3}},
	{key: "o", label: "pause to overview", payload: ipc.SwipePayload{Steps: []float64{-150, -250}, VelocityY: -0.2, PauseMotion: true}},
	{key: "s", label: "quick switch", payload: ipc.SwipePayload{Steps: []float64{-60}, VelocityX: 2, VelocityY: -0.1, Pages: 1}},
	{key: "c", label: "cancel", payload: ipc.SwipePayload{Steps: []float64{-150}, Cancel: true}},
}

func presetFor(key string) (preset, bool) {
	for _, p := range presets {
		if p.key == key {
			return p, true
		}
	}
	return preset{}, false
}
