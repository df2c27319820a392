package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/quickstep/internal/ipc"
)

type fakeControl struct {
	swipes    []ipc.SwipePayload
	overviews []ipc.OverviewPayload
}

func (f *fakeControl) GetStatus() (*ipc.StatusData, error) {
	return twoDisplays(), nil
}

func (f *fakeControl) Swipe(p ipc.SwipePayload) (*ipc.GestureResult, error) {
	f.swipes = append(f.swipes, p)
	return &ipc.GestureResult{GestureID: 7, Display: p.Display, EndTarget: "HOME", Released: true,
		Decision: "HOME", Reason: "fling_up"}, nil
}

func (f *fakeControl) Overview(p ipc.OverviewPayload) (*ipc.GestureResult, error) {
	f.overviews = append(f.overviews, p)
	return &ipc.GestureResult{GestureID: 8, Display: p.Display, EndTarget: "RECENTS", Released: true}, nil
}

func twoDisplays() *ipc.StatusData {
	return &ipc.StatusData{
		Backend:       "sim",
		DaemonRunning: true,
		Displays: []ipc.DisplayStatus{
			{ID: 0, Name: "primary"},
			{ID: 3, Name: "external"},
		},
	}
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func TestPresetPlaysOnSelectedDisplay(t *testing.T) {
	fc := &fakeControl{}
	m := newModel(fc)
	m, _ = update(t, m, statusMsg{status: twoDisplays()})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.displayID(); got != 3 {
		t.Fatalf("displayID() = %d, want 3", got)
	}

	m, cmd := update(t, m, runeKey('h'))
	if cmd == nil {
		t.Fatal("expected a command for preset key")
	}
	if !m.busy {
		t.Error("model should be busy while a gesture plays")
	}

	// A second key while busy is ignored.
	if _, again := update(t, m, runeKey('o')); again != nil {
		t.Error("expected no command while busy")
	}

	m, _ = update(t, m, cmd())
	if len(fc.swipes) != 1 {
		t.Fatalf("swipes = %d, want 1", len(fc.swipes))
	}
	p := fc.swipes[0]
	if p.Display != 3 || !p.Wait || p.VelocityY != -3 {
		t.Errorf("unexpected payload %+v", p)
	}
	if m.busy {
		t.Error("model should not be busy after the result")
	}
	if !strings.Contains(m.last, "settled on HOME") {
		t.Errorf("last = %q", m.last)
	}
}

func TestOverviewKey(t *testing.T) {
	fc := &fakeControl{}
	m := newModel(fc)
	m, _ = update(t, m, statusMsg{status: twoDisplays()})

	m, cmd := update(t, m, runeKey('r'))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = update(t, m, cmd())
	if len(fc.overviews) != 1 || fc.overviews[0] != (ipc.OverviewPayload{Display: 0, Wait: true}) {
		t.Errorf("overviews = %+v", fc.overviews)
	}
	if !strings.Contains(m.last, "RECENTS") {
		t.Errorf("last = %q", m.last)
	}
}

func TestSelectionWrapsAndClamps(t *testing.T) {
	m := newModel(&fakeControl{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.selected != 0 {
		t.Errorf("selection moved without displays: %d", m.selected)
	}

	m, _ = update(t, m, statusMsg{status: twoDisplays()})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.selected != 1 {
		t.Errorf("selected = %d, want 1 after wrapping", m.selected)
	}

	one := twoDisplays()
	one.Displays = one.Displays[:1]
	m, _ = update(t, m, statusMsg{status: one})
	if m.selected != 0 {
		t.Errorf("selected = %d, want clamp to 0", m.selected)
	}
}

func TestStatusErrorKeepsLastStatus(t *testing.T) {
	m := newModel(&fakeControl{})
	m, _ = update(t, m, statusMsg{status: twoDisplays()})
	m, _ = update(t, m, statusMsg{err: errors.New("connection refused")})
	if m.status == nil || m.err == nil {
		t.Fatalf("status=%v err=%v", m.status, m.err)
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	if view := m.View(); !strings.Contains(view, "daemon not running") {
		t.Errorf("view does not show the disconnected daemon:\n%s", view)
	}
}

func TestViewShowsDisplay(t *testing.T) {
	m := newModel(&fakeControl{})
	if m.View() != "" {
		t.Error("view before sizing should be empty")
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 24})
	if !strings.Contains(m.View(), "waiting for the daemon") {
		t.Error("expected placeholder before first status")
	}
	m, _ = update(t, m, statusMsg{status: twoDisplays()})
	view := m.View()
	for _, want := range []string{"daemon connected", "0:primary", "3:external", "fling home"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestQuit(t *testing.T) {
	m := newModel(&fakeControl{})
	_, cmd := update(t, m, runeKey('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
