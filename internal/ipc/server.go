package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// Handler performs the commands on the running instance.
type Handler interface {
	Status() StatusData
	Toggle() string
	ApplyPreset(name string) (LayoutData, error)
	PresetNames() []string
	SavePreset(name string) error
	DeletePreset(name string) error
	SetLayout(layout LayoutData) error
	ForceSync()
	Focus(surface string) error
	Screenshot() (string, error)
	Quit()
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	handler      Handler
	logger       *slog.Logger
	shuttingDown bool
	shutdownMu   sync.Mutex
	conns        sync.WaitGroup
}

// NewServer creates a server listening on socketPath.
func NewServer(socketPath string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove a stale socket left by a crashed instance.
	os.Remove(s.socketPath)

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

	go s.acceptLoop()
	return nil
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

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

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)

	switch req.Command {
	case CommandGetStatus:
		return ok(s.handler.Status())
	case CommandToggle:
		return ok(ToggleData{State: s.handler.Toggle()})
	case CommandApplyPreset:
		var p PresetPayload
		if resp := decodePayload(req.Payload, &p); resp != nil {
			return resp
		}
		layout, err := s.handler.ApplyPreset(p.Name)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to apply preset: %v", err))
		}
		return ok(layout)
	case CommandListPresets:
		return ok(PresetsData{Presets: s.handler.PresetNames()})
	case CommandSavePreset:
		var p PresetPayload
		if resp := decodePayload(req.Payload, &p); resp != nil {
			return resp
		}
		if err := s.handler.SavePreset(p.Name); err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to save preset: %v", err))
		}
		return ok(nil)
	case CommandDeletePreset:
		var p PresetPayload
		if resp := decodePayload(req.Payload, &p); resp != nil {
			return resp
		}
		if err := s.handler.DeletePreset(p.Name); err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to delete preset: %v", err))
		}
		return ok(nil)
	case CommandSetLayout:
		var l LayoutData
		if resp := decodePayload(req.Payload, &l); resp != nil {
			return resp
		}
		if err := s.handler.SetLayout(l); err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to set layout: %v", err))
		}
		return ok(nil)
	case CommandForceSync:
		s.handler.ForceSync()
		return ok(nil)
	case CommandFocus:
		var f FocusPayload
		if resp := decodePayload(req.Payload, &f); resp != nil {
			return resp
		}
		if err := s.handler.Focus(f.Surface); err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to focus: %v", err))
		}
		return ok(nil)
	case CommandScreenshot:
		path, err := s.handler.Screenshot()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to take screenshot: %v", err))
		}
		return ok(ScreenshotData{Path: path})
	case CommandQuit:
		// Reply before the handler tears down the process.
		go s.handler.Quit()
		return ok(nil)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func decodePayload(payload json.RawMessage, out any) *Response {
	if len(payload) == 0 {
		return NewErrorResponse("payload is required")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	return nil
}

func ok(data any) *Response {
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

func (s *Server) isShuttingDown() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Wait()
	os.Remove(s.socketPath)
	s.logger.Info("IPC server stopped")
}
