package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/1broseidon/quickstep/internal/classifier"
	"github.com/1broseidon/quickstep/internal/config"
	"github.com/1broseidon/quickstep/internal/daemon"
	"github.com/1broseidon/quickstep/internal/ipc"
)

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: quickstep status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output the full status as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(status)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
	label := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s %v\n", label("daemon_running:"), status.DaemonRunning)
	fmt.Printf("%s %s\n", label("backend:       "), status.Backend)
	fmt.Printf("%s %d\n", label("uptime_seconds:"), status.UptimeSeconds)
	violations := fmt.Sprint(status.Violations)
	if status.Violations > 0 {
		violations = color.New(color.FgRed).Sprint(violations)
	}
	fmt.Printf("%s %s\n", label("violations:    "), violations)

	for _, ds := range status.Displays {
		fmt.Println()
		fmt.Printf("display %d (%s)\n", ds.ID, ds.Name)
		fmt.Printf("  gestures:   %d\n", ds.Gestures)
		inFlight := "no"
		if ds.InFlight {
			inFlight = color.New(color.FgYellow).Sprint("yes")
		}
		fmt.Printf("  in_flight:  %s\n", inFlight)
		a := ds.Animation
		if a.Running {
			fmt.Printf("  animation:  %s session=%s age=%s target=%s\n",
				color.New(color.FgGreen).Sprint("running"), a.SessionID, a.Age, orDash(a.EndTarget))
		} else {
			fmt.Printf("  animation:  idle\n")
		}
		l := ds.Launcher
		fmt.Printf("  launcher:   %s\n", orDash(string(l.State)))
		fmt.Printf("  overview:   visible=%v pages=%v current=%d\n", l.Overview.Visible, l.Overview.Pages, l.Overview.Current)
	}
	return 0
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printGestureResult(res *ipc.GestureResult, jsonOut bool) int {
	if jsonOut {
		return printJSON(res)
	}
	fmt.Printf("gesture:    %d\n", res.GestureID)
	fmt.Printf("display:    %d\n", res.Display)
	if res.Continued {
		fmt.Println("continued:  true")
	}
	if res.Decision != "" {
		fmt.Printf("decision:   %s (%s)\n", res.Decision, res.Reason)
		if res.Filter != "" {
			fmt.Printf("filter:     %s\n", res.Filter)
		}
	}
	if res.Released {
		fmt.Printf("end_target: %s\n", res.EndTarget)
	} else {
		fmt.Println("end_target: in flight")
	}
	return 0
}

// parseSteps parses a comma separated list of displacements.
func parseSteps(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	steps := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid step %q: %w", p, err)
		}
		steps = append(steps, v)
	}
	return steps, nil
}

func runSwipe(args []string) int {
	fs := flag.NewFlagSet("swipe", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: quickstep swipe [flags]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Play a synthetic swipe-up gesture. Displacements are px and velocities")
		fmt.Fprintln(os.Stderr, "px/ms, negative upwards.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  quickstep swipe --vy=-3                  # fling up: home")
		fmt.Fprintln(os.Stderr, "  quickstep swipe --pause                  # hold still: overview")
		fmt.Fprintln(os.Stderr, "  quickstep swipe --pages 1 --vx 2         # quick switch")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	display := fs.Int("display", 0, "Display id")
	stepsFlag := fs.String("steps", "-150,-300", "Comma separated finger displacements in px")
	vx := fs.Float64("vx", 0, "Horizontal release velocity (px/ms)")
	vy := fs.Float64("vy", -0.2, "Vertical release velocity (px/ms)")
	cancel := fs.Bool("cancel", false, "Cancel instead of releasing")
	pause := fs.Bool("pause", false, "Pause motion before release")
	slowHome := fs.Bool("slow-home", false, "Let a slow upward release go home")
	slop := fs.Bool("slop", false, "Require horizontal slop for sideways flings")
	pages := fs.Int("pages", 0, "Scroll overview by N pages before release")
	fingers := fs.Int("fingers", 0, "Trackpad finger count (2, 3 or 4); 0 is touch")
	hold := fs.Bool("hold", false, "Leave the gesture in flight")
	noWait := fs.Bool("no-wait", false, "Return without waiting for release")
	jsonOut := fs.Bool("json", false, "Output the result as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "swipe takes no arguments")
		fs.Usage()
		return 2
	}
	steps, err := parseSteps(*stepsFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	res, err := ipc.NewClient().Swipe(ipc.SwipePayload{
		Display:            *display,
		Steps:              steps,
		VelocityX:          *vx,
		VelocityY:          *vy,
		Cancel:             *cancel,
		PauseMotion:        *pause,
		CanSlowSwipeGoHome: *slowHome,
		HorizontalSlop:     *slop,
		Pages:              *pages,
		Fingers:            *fingers,
		Hold:               *hold,
		Wait:               !*hold && !*noWait,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return printGestureResult(res, *jsonOut)
}

func runOverview(args []string) int {
	fs := flag.NewFlagSet("overview", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: quickstep overview [--display N] [--no-wait] [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open overview with an atomic gesture, as the recents button does.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	display := fs.Int("display", 0, "Display id")
	noWait := fs.Bool("no-wait", false, "Return without waiting for release")
	jsonOut := fs.Bool("json", false, "Output the result as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	res, err := ipc.NewClient().Overview(ipc.OverviewPayload{Display: *display, Wait: !*noWait})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return printGestureResult(res, *jsonOut)
}

func runClassify(args []string) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: quickstep classify [flags]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Classify a release without playing it. Uses the daemon's thresholds,")
		fmt.Fprintln(os.Stderr, "or the config file's with --local.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	vx := fs.Float64("vx", 0, "Horizontal release velocity (px/ms)")
	vy := fs.Float64("vy", 0, "Vertical release velocity (px/ms)")
	cancel := fs.Bool("cancel", false, "Gesture was cancelled")
	slopPassed := fs.Bool("slop-passed", false, "Finger passed the horizontal slop")
	atomic := fs.Bool("atomic", false, "Button-triggered gesture")
	overviewDisabled := fs.Bool("overview-disabled", false, "Overview is disabled")
	scrolling := fs.Bool("scrolling", false, "Overview is scrolling to a new task")
	centered := fs.Bool("centered-other", false, "Overview is centered on another task")
	paused := fs.Bool("paused", false, "Motion paused before release")
	slowHome := fs.Bool("slow-home", false, "A slow upward release may go home")
	slop := fs.Bool("slop", false, "Horizontal slop is enabled")
	desktop := fs.Bool("desktop", false, "Desktop windowing is enabled")
	nextDesktop := fs.Bool("next-desktop", false, "Next task is a desktop")
	runningDesktop := fs.Bool("running-desktop", false, "Running task is a desktop")
	local := fs.Bool("local", false, "Classify without the daemon")
	path := fs.String("path", "", "Config file for --local (default: ~/.config/quickstep/config.yaml)")
	jsonOut := fs.Bool("json", false, "Output the result as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	payload := ipc.ClassifyPayload{
		AutoFling: true,
		Release: classifier.Release{
			Velocity:             classifier.Velocity{X: *vx, Y: *vy},
			EndVelocityY:         *vy,
			IsCancel:             *cancel,
			HorizontalSlopPassed: *slopPassed,
		},
		Context: classifier.Context{
			IsAtomic:                   *atomic,
			OverviewDisabled:           *overviewDisabled,
			IsScrollingToNewTask:       *scrolling,
			IsCenteredOnNonRunningTask: *centered,
			MotionPaused:               *paused,
			CanSlowSwipeGoHome:         *slowHome,
			HorizontalSlopEnabled:      *slop,
			DesktopWindowingEnabled:    *desktop,
			NextTaskIsDesktop:          *nextDesktop,
			RunningTaskIsDesktop:       *runningDesktop,
		},
	}

	var res *ipc.ClassifyResult
	if *local {
		lr, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		th, _, _ := daemon.Tuning(lr.Config)
		d, used := payload.Describe(th)
		r := ipc.NewClassifyResult(d, used)
		res = &r
	} else {
		var err error
		res, err = ipc.NewClient().Classify(payload)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("end_target: %s\n", res.EndTarget)
	fmt.Printf("reason:     %s\n", res.Reason)
	if res.Filter != "" {
		fmt.Printf("filter:     %s\n", res.Filter)
	}
	fmt.Printf("thresholds: fling=%.2f speed=%.2f\n", res.Thresholds.FlingThreshold, res.Thresholds.FlingSpeed)
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}
