package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/quickstep/internal/config"
	"github.com/1broseidon/quickstep/internal/daemon"
	"github.com/1broseidon/quickstep/internal/hotkeys"
	"github.com/1broseidon/quickstep/internal/ipc"
	"github.com/1broseidon/quickstep/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "swipe":
		os.Exit(runSwipe(os.Args[2:]))
	case "overview":
		os.Exit(runOverview(os.Args[2:]))
	case "classify":
		os.Exit(runClassify(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: quickstep <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the gesture daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload the daemon's config")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  swipe               Play a synthetic swipe-up gesture")
	fmt.Fprintln(w, "  overview            Open overview (atomic gesture)")
	fmt.Fprintln(w, "  classify            Dry-run the end target classifier")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open the interactive gesture console")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'quickstep <command> --help' for command-specific options.")
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: quickstep daemon [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the gesture daemon in the foreground. SIGHUP reloads the config.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/quickstep/config.yaml)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	configPath := *path
	if configPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		configPath = p
	}
	res, err := config.LoadFromPath(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config

	logger := daemon.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "file", res.File, "backend", cfg.Backend.Kind)

	d, err := daemon.New(daemon.Options{Config: cfg, ConfigPath: configPath, Logger: logger})
	if err != nil {
		logger.Error("failed to start daemon", "error", err)
		return 1
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(d, d.Metrics(), logger)
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		return 1
	}
	defer ipcServer.Stop()

	if x := d.X11(); x != nil && cfg.Hotkeys.Overview != "" {
		registerHotkeys(d, cfg.Hotkeys.Overview, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig != syscall.SIGHUP {
				logger.Info("shutting down")
				cancel()
				if x := d.X11(); x != nil {
					x.Quit()
				}
				return
			}
			logger.Info("received SIGHUP, reloading config")
			if err := d.Reload(ctx); err != nil {
				logger.Warn("config reload failed", "error", err)
				continue
			}
			logger.Info("config reloaded")
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	logger.Info("quickstep daemon started", "displays", d.DisplayIDs())
	if x := d.X11(); x != nil {
		// Blocks until Quit.
		x.EventLoop()
		cancel()
	}

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon stopped", "error", err)
		return 1
	}
	return 0
}

func registerHotkeys(d *daemon.Daemon, overviewKeys string, logger *slog.Logger) {
	h, err := hotkeys.NewHandler(d.X11(), logger)
	if err != nil {
		logger.Warn("hotkeys unavailable", "error", err)
		return
	}
	ids := d.DisplayIDs()
	if len(ids) == 0 {
		return
	}
	display := ids[0]
	if err := h.RegisterOverview(overviewKeys, func() error {
		return d.OpenOverview(display)
	}); err != nil {
		logger.Warn("failed to register overview hotkey", "keys", overviewKeys, "error", err)
		return
	}
	logger.Info("overview hotkey registered", "keys", overviewKeys, "display", display)
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: quickstep reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the daemon to reload its config file.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("reloaded")
	return 0
}

func runTUI(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: quickstep tui")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive console showing each display's gesture state.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  h         Fling up (home)")
		fmt.Fprintln(os.Stderr, "  o         Pause then release (overview)")
		fmt.Fprintln(os.Stderr, "  s         Quick switch to the next task")
		fmt.Fprintln(os.Stderr, "  c         Cancel a swipe")
		fmt.Fprintln(os.Stderr, "  r         Overview button (atomic gesture)")
		fmt.Fprintln(os.Stderr, "  ←/→, Tab  Select display")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C Quit")
		return 0
	}
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "tui takes no arguments")
		return 2
	}
	if err := tui.Run(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
