// Package mcp exposes the gesture daemon as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/quickstep/internal/classifier"
	"github.com/1broseidon/quickstep/internal/ipc"
)

const (
	ServerName    = "quickstep"
	ServerVersion = "0.1.0"
)

// Control is the daemon control surface the tools call. *ipc.Client
// implements it.
type Control interface {
	GetStatus() (*ipc.StatusData, error)
	Swipe(p ipc.SwipePayload) (*ipc.GestureResult, error)
	Overview(p ipc.OverviewPayload) (*ipc.GestureResult, error)
	Classify(p ipc.ClassifyPayload) (*ipc.ClassifyResult, error)
}

var _ Control = (*ipc.Client)(nil)

// Server is the MCP server for quickstep.
type Server struct {
	mcpServer *mcpsdk.Server
	control   Control
	// thresholds are used for local classification.
	thresholds classifier.Thresholds
	logger     *slog.Logger
}

// NewServer creates an MCP server that drives the daemon through control.
// thresholds back classify_gesture when the daemon is not consulted.
func NewServer(control Control, thresholds classifier.Thresholds, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		control:    control,
		thresholds: thresholds,
		logger:     logger.With("component", "mcp"),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the daemon's displays: gestures played, whether one is in flight, the running recents animation and the launcher/overview state.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "swipe",
		Description: "Play a synthetic swipe-up gesture on a display and wait for it to settle. Displacements and velocities are in px and px/ms, negative upwards. Returns the classifier decision and the final end target (HOME, RECENTS, NEW_TASK or LAST_TASK). With hold set the gesture stays in flight and the next swipe continues it.",
	}, s.handleSwipe)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_overview",
		Description: "Open overview on a display as if the recents button was pressed, and wait for it to settle.",
	}, s.handleOpenOverview)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "classify_gesture",
		Description: "Dry-run the end target classifier for a release. No display is touched. Uses the daemon's thresholds unless local is set or thresholds are given.",
	}, s.handleClassify)
}
