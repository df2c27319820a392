package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/quickstep/internal/classifier"
	"github.com/1broseidon/quickstep/internal/monitoring"
	"github.com/1broseidon/quickstep/internal/runtimepath"
)

// RequestTimeout bounds how long one command may run. It stays below the
// client timeout so waiting commands answer before the client gives up.
const RequestTimeout = 4 * time.Second

// Backend is what the server drives. The daemon implements it.
type Backend interface {
	Status(ctx context.Context) (*StatusData, error)
	Swipe(ctx context.Context, p SwipePayload) (*GestureResult, error)
	Overview(ctx context.Context, p OverviewPayload) (*GestureResult, error)
	Thresholds() classifier.Thresholds
	Reload(ctx context.Context) error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	backend      Backend
	metrics      *monitoring.Metrics
	logger       *slog.Logger
	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a server on the default socket path.
func NewServer(backend Backend, metrics *monitoring.Metrics, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, backend, metrics, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, backend Backend, metrics *monitoring.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		backend:    backend,
		metrics:    metrics,
		logger:     logger.With("component", "ipc"),
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			stopping := s.shuttingDown
			s.shutdownMu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)
	s.metrics.RecordIPC(string(req.Command), resp.Status)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload(ctx)
	case CommandGetStatus:
		return s.handleGetStatus(ctx)
	case CommandSwipe:
		return s.handleSwipe(ctx, req.Payload)
	case CommandOverview:
		return s.handleOverview(ctx, req.Payload)
	case CommandClassify:
		return s.handleClassify(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload(ctx context.Context) *Response {
	s.logger.Info("reload requested")
	if err := s.backend.Reload(ctx); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	s.logger.Info("config reloaded")

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus(ctx context.Context) *Response {
	status, err := s.backend.Status(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
	}
	return okOrError(status)
}

func (s *Server) handleSwipe(ctx context.Context, payload json.RawMessage) *Response {
	var req SwipePayload
	if err := unmarshalPayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid swipe payload: %v", err))
	}
	if req.Fingers < 0 {
		return NewErrorResponse("fingers must be >= 0")
	}
	res, err := s.backend.Swipe(ctx, req)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Swipe failed: %v", err))
	}
	return okOrError(res)
}

func (s *Server) handleOverview(ctx context.Context, payload json.RawMessage) *Response {
	var req OverviewPayload
	if err := unmarshalPayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid overview payload: %v", err))
	}
	res, err := s.backend.Overview(ctx, req)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Overview failed: %v", err))
	}
	return okOrError(res)
}

func (s *Server) handleClassify(payload json.RawMessage) *Response {
	var req ClassifyPayload
	if err := unmarshalPayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid classify payload: %v", err))
	}
	d, th := req.Describe(s.backend.Thresholds())
	return okOrError(NewClassifyResult(d, th))
}

func unmarshalPayload(payload json.RawMessage, out any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func okOrError(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}
