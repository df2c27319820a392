package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/quickstep/internal/ipc"
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	tabBarStyle = lipgloss.NewStyle().
			MarginBottom(1)

	tabGap = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		SetString(" ")

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	liveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func renderStatusBar(st *ipc.StatusData, err error, width int) string {
	var status string
	if err == nil && st != nil {
		dot := liveStyle.Render("●")
		parts := []string{
			dot + " daemon connected",
			"backend:" + st.Backend,
			fmt.Sprintf("uptime:%ds", st.UptimeSeconds),
		}
		if st.Violations > 0 {
			parts = append(parts, warnStyle.Render(fmt.Sprintf("violations:%d", st.Violations)))
		}
		status = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		status = dot + " daemon not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(status)
}

func renderDisplayTabs(st *ipc.StatusData, selected, width int) string {
	if st == nil || len(st.Displays) == 0 {
		return tabBarStyle.Width(width).Render("")
	}
	tabs := make([]string, 0, len(st.Displays))
	for i, ds := range st.Displays {
		label := fmt.Sprintf("%d:%s", ds.ID, ds.Name)
		if i == selected {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(tabs, tabGap.Render())...)
	return tabBarStyle.Width(width).Render(row)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func renderDisplay(ds ipc.DisplayStatus, last string, width, height int) string {
	inFlight := "no"
	if ds.InFlight {
		inFlight = warnStyle.Render("yes")
	}
	a := ds.Animation
	anim := "idle"
	if a.Running {
		anim = liveStyle.Render("running") + fmt.Sprintf("  session %s  age %s", a.SessionID, a.Age.Round(time.Millisecond))
		if a.EndTarget != "" {
			anim += "  target " + a.EndTarget
		}
		if a.FinishRequested {
			anim += "  finishing"
		}
	}
	l := ds.Launcher
	pages := make([]string, len(l.Overview.Pages))
	for i, id := range l.Overview.Pages {
		p := fmt.Sprint(id)
		if i == l.Overview.Current {
			p = "[" + p + "]"
		}
		pages[i] = p
	}

	lines := []string{
		row("gestures", fmt.Sprint(ds.Gestures)),
		row("in flight", inFlight),
		row("animation", anim),
		row("launcher", string(l.State)),
		row("overview", fmt.Sprintf("visible=%v  pages %s", l.Overview.Visible, strings.Join(pages, " "))),
		row("taskbar", fmt.Sprintf("stashed=%v", l.TaskbarStashed)),
		"",
		row("last", last),
	}
	return lipgloss.NewStyle().Width(width).Height(height).Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func renderPlaceholder(msg string, width, height int) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Foreground(lipgloss.Color("241")).
		Align(lipgloss.Center, lipgloss.Center)
	return style.Render(msg)
}

func renderHelpBar(width int) string {
	keys := make([]string, 0, len(presets)+3)
	for _, p := range presets {
		keys = append(keys, p.key+": "+p.label)
	}
	keys = append(keys, "r: overview button", "←/→: display", "q: quit")
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(strings.Join(keys, "  "))
}
