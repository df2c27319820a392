package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/quickstep/internal/ipc"
)

type tickMsg time.Time

type statusMsg struct {
	status *ipc.StatusData
	err    error
}

type resultMsg struct {
	label string
	res   *ipc.GestureResult
	err   error
}

// model is the root bubbletea model for the console.
type model struct {
	control Control

	status   *ipc.StatusData
	err      error
	selected int
	last     string
	busy     bool

	width  int
	height int
}

func newModel(control Control) model {
	return model{control: control}
}

func tick() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) fetchStatus() tea.Cmd {
	c := m.control
	return func() tea.Msg {
		st, err := c.GetStatus()
		return statusMsg{status: st, err: err}
	}
}

// displayID returns the selected display, or 0 before the first status.
func (m model) displayID() int {
	if m.status == nil || len(m.status.Displays) == 0 {
		return 0
	}
	return m.status.Displays[m.selected].ID
}

func (m model) play(p preset) tea.Cmd {
	c := m.control
	payload := p.payload
	payload.Display = m.displayID()
	payload.Wait = true
	return func() tea.Msg {
		res, err := c.Swipe(payload)
		return resultMsg{label: p.label, res: res, err: err}
	}
}

func (m model) openOverview() tea.Cmd {
	c := m.control
	display := m.displayID()
	return func() tea.Msg {
		res, err := c.Overview(ipc.OverviewPayload{Display: display, Wait: true})
		return resultMsg{label: "overview button", res: res, err: err}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "left", "shift+tab":
			m.moveSelection(-1)
			return m, nil
		case "right", "tab":
			m.moveSelection(1)
			return m, nil
		case "r":
			if m.busy {
				return m, nil
			}
			m.busy = true
			return m, m.openOverview()
		}
		if p, ok := presetFor(key); ok && !m.busy {
			m.busy = true
			return m, m.play(p)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tick())

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			if n := len(m.status.Displays); m.selected >= n {
				m.selected = max(n-1, 0)
			}
		}

	case resultMsg:
		m.busy = false
		m.last = formatResult(msg)
	}
	return m, nil
}

func (m *model) moveSelection(delta int) {
	if m.status == nil || len(m.status.Displays) == 0 {
		return
	}
	n := len(m.status.Displays)
	m.selected = (m.selected + delta + n) % n
}

func formatResult(msg resultMsg) string {
	if msg.err != nil {
		return fmt.Sprintf("%s: %v", msg.label, msg.err)
	}
	res := msg.res
	s := fmt.Sprintf("%s: gesture %d", msg.label, res.GestureID)
	if res.Continued {
		s += " (continued)"
	}
	if res.Decision != "" {
		s += fmt.Sprintf(", decided %s (%s)", res.Decision, res.Reason)
	}
	if res.Released {
		s += ", settled on " + res.EndTarget
	} else {
		s += ", in flight"
	}
	return s
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.err, m.width)
	tabBar := renderDisplayTabs(m.status, m.selected, m.width)
	helpBar := renderHelpBar(m.width)

	contentHeight := max(m.height-lipgloss.Height(statusBar)-lipgloss.Height(tabBar)-lipgloss.Height(helpBar), 1)

	var content string
	if m.status != nil && len(m.status.Displays) > 0 {
		content = renderDisplay(m.status.Displays[m.selected], m.last, m.width, contentHeight)
	} else {
		content = renderPlaceholder("waiting for the daemon", m.width, contentHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		helpBar,
	)
}
