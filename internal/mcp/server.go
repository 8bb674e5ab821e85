// Package mcp exposes the running dock to MCP clients over stdio. Every tool
// forwards to the running instance through its IPC socket.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/mirrordock/internal/ipc"
)

const (
	ServerName    = "mirrordock"
	ServerVersion = "0.1.0"
)

// Controller is the running instance as seen through IPC.
type Controller interface {
	GetStatus() (*ipc.StatusData, error)
	Toggle() (string, error)
	ListPresets() ([]string, error)
	ApplyPreset(name string) (*ipc.LayoutData, error)
	SavePreset(name string) error
	SetLayout(layout ipc.LayoutData) error
	Focus(surface string) error
	Screenshot() (string, error)
}

var _ Controller = (*ipc.Client)(nil)

// Server is the MCP server for a running mirrordock instance.
type Server struct {
	mcpServer *mcpsdk.Server
	ctrl      Controller
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards to ctrl.
func NewServer(ctrl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{ctrl: ctrl, logger: logger}
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
		Name:        "dock_status",
		Description: "Report whether the two mirrored screens are docked, whether each window has been found, and the current layout and scale.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "dock_toggle",
		Description: "Switch between docked (both screens inside one container window) and undocked (two free windows that follow the container). Returns the new state.",
	}, s.handleToggle)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_presets",
		Description: "List saved layout presets in the order used by the 1-9 hotkeys.",
	}, s.handleListPresets)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "apply_preset",
		Description: "Apply a saved layout preset by name. Positions are rescaled when the preset was saved at a different scale.",
	}, s.handleApplyPreset)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "save_preset",
		Description: "Save the current layout as a named preset, overwriting any preset with the same name.",
	}, s.handleSavePreset)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_layout",
		Description: "Move both screens to explicit pixel offsets inside the container.",
	}, s.handleSetLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_surface",
		Description: "Bring one screen (or the container while docked) to the foreground.",
	}, s.handleFocus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "take_screenshot",
		Description: "Capture the docked container as a PNG file and copy its path to the clipboard. Fails while undocked.",
	}, s.handleScreenshot)
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.ctrl.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		State:           st.State,
		PrimaryFound:    st.PrimaryFound,
		SecondaryFound:  st.SecondaryFound,
		ContainerExists: st.ContainerExists,
		Running:         st.Running,
		Scale:           st.Scale,
		Layout:          layoutInfo(st.Layout),
		UptimeSeconds:   st.UptimeSeconds,
	}, nil
}

func (s *Server) handleToggle(_ context.Context, _ *mcpsdk.CallToolRequest, _ ToggleInput) (*mcpsdk.CallToolResult, ToggleOutput, error) {
	state, err := s.ctrl.Toggle()
	if err != nil {
		return nil, ToggleOutput{}, err
	}
	s.logger.Info("mcp toggle", "state", state)
	return nil, ToggleOutput{State: state}, nil
}

func (s *Server) handleListPresets(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListPresetsInput) (*mcpsdk.CallToolResult, ListPresetsOutput, error) {
	names, err := s.ctrl.ListPresets()
	if err != nil {
		return nil, ListPresetsOutput{}, err
	}
	if names == nil {
		names = []string{}
	}
	return nil, ListPresetsOutput{Presets: names}, nil
}

func (s *Server) handleApplyPreset(_ context.Context, _ *mcpsdk.CallToolRequest, args PresetInput) (*mcpsdk.CallToolResult, ApplyPresetOutput, error) {
	if args.Name == "" {
		return nil, ApplyPresetOutput{}, fmt.Errorf("name is required")
	}
	layout, err := s.ctrl.ApplyPreset(args.Name)
	if err != nil {
		return nil, ApplyPresetOutput{}, err
	}
	s.logger.Info("mcp preset applied", "name", args.Name)
	return nil, ApplyPresetOutput{Name: args.Name, Layout: layoutInfo(*layout)}, nil
}

func (s *Server) handleSavePreset(_ context.Context, _ *mcpsdk.CallToolRequest, args PresetInput) (*mcpsdk.CallToolResult, any, error) {
	if args.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}
	if err := s.ctrl.SavePreset(args.Name); err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("Saved preset %q", args.Name)), nil, nil
}

func (s *Server) handleSetLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args SetLayoutInput) (*mcpsdk.CallToolResult, any, error) {
	layout := ipc.LayoutData{
		PrimaryX:   args.PrimaryX,
		PrimaryY:   args.PrimaryY,
		SecondaryX: args.SecondaryX,
		SecondaryY: args.SecondaryY,
	}
	if err := s.ctrl.SetLayout(layout); err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("Layout set: primary (%d,%d), secondary (%d,%d)",
		args.PrimaryX, args.PrimaryY, args.SecondaryX, args.SecondaryY)), nil, nil
}

func (s *Server) handleFocus(_ context.Context, _ *mcpsdk.CallToolRequest, args FocusInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.ctrl.Focus(args.Surface); err != nil {
		return nil, nil, err
	}
	return textResult("Focused " + args.Surface), nil, nil
}

func (s *Server) handleScreenshot(_ context.Context, _ *mcpsdk.CallToolRequest, _ ScreenshotInput) (*mcpsdk.CallToolResult, ScreenshotOutput, error) {
	path, err := s.ctrl.Screenshot()
	if err != nil {
		return nil, ScreenshotOutput{}, err
	}
	s.logger.Info("mcp screenshot", "path", path)
	return nil, ScreenshotOutput{Path: path}, nil
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

func layoutInfo(l ipc.LayoutData) LayoutInfo {
	return LayoutInfo{
		PrimaryX:   l.PrimaryX,
		PrimaryY:   l.PrimaryY,
		SecondaryX: l.SecondaryX,
		SecondaryY: l.SecondaryY,
	}
}
