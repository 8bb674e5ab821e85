package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/mirrordock/internal/ipc"
)

type fakeController struct {
	state   string
	presets map[string]ipc.LayoutData
	layout  ipc.LayoutData
	focused string
	err     error
}

func newFakeController() *fakeController {
	return &fakeController{
		state:   "docked",
		presets: map[string]ipc.LayoutData{"wide": {SecondaryX: 300, SecondaryY: 648}},
	}
}

func (f *fakeController) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.StatusData{State: f.state, Running: true, Scale: 0.6, Layout: f.layout}, nil
}

func (f *fakeController) Toggle() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.state == "docked" {
		f.state = "undocked"
	} else {
		f.state = "docked"
	}
	return f.state, nil
}

func (f *fakeController) ListPresets() ([]string, error) {
	names := make([]string, 0, len(f.presets))
	for name := range f.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, f.err
}

func (f *fakeController) ApplyPreset(name string) (*ipc.LayoutData, error) {
	l, ok := f.presets[name]
	if !ok {
		return nil, errors.New("mirrordock error: preset not found")
	}
	f.layout = l
	return &l, nil
}

func (f *fakeController) SavePreset(name string) error {
	f.presets[name] = f.layout
	return nil
}

func (f *fakeController) SetLayout(l ipc.LayoutData) error {
	f.layout = l
	return nil
}

func (f *fakeController) Focus(surface string) error {
	f.focused = surface
	return nil
}

func (f *fakeController) Screenshot() (string, error) {
	if f.state != "docked" {
		return "", errors.New("mirrordock error: surfaces are not docked")
	}
	return "/shots/mirrordock.png", nil
}

func newTestServer(ctrl Controller) *Server {
	return NewServer(ctrl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleStatusAndToggle(t *testing.T) {
	ctrl := newFakeController()
	s := newTestServer(ctrl)
	ctx := context.Background()

	_, out, err := s.handleToggle(ctx, nil, ToggleInput{})
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if out.State != "undocked" {
		t.Fatalf("expected undocked, got %q", out.State)
	}

	_, status, err := s.handleStatus(ctx, nil, StatusInput{})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != "undocked" || !status.Running || status.Scale != 0.6 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestHandleStatus_NotRunning(t *testing.T) {
	ctrl := newFakeController()
	ctrl.err = errors.New("failed to connect to mirrordock")
	s := newTestServer(ctrl)

	if _, _, err := s.handleStatus(context.Background(), nil, StatusInput{}); err == nil {
		t.Fatalf("expected error when the instance is not running")
	}
}

func TestHandlePresets(t *testing.T) {
	ctrl := newFakeController()
	s := newTestServer(ctrl)
	ctx := context.Background()

	_, applied, err := s.handleApplyPreset(ctx, nil, PresetInput{Name: "wide"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.Layout.SecondaryX != 300 {
		t.Fatalf("expected applied layout, got %+v", applied)
	}

	if _, _, err := s.handleApplyPreset(ctx, nil, PresetInput{}); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, _, err := s.handleApplyPreset(ctx, nil, PresetInput{Name: "nope"}); err == nil {
		t.Fatalf("expected error for unknown preset")
	}

	res, _, err := s.handleSavePreset(ctx, nil, PresetInput{Name: "mine"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}

	_, list, err := s.handleListPresets(ctx, nil, ListPresetsInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(list.Presets, []string{"mine", "wide"}) {
		t.Fatalf("expected [mine wide], got %v", list.Presets)
	}
}

func TestHandleSetLayoutAndFocus(t *testing.T) {
	ctrl := newFakeController()
	s := newTestServer(ctrl)
	ctx := context.Background()

	if _, _, err := s.handleSetLayout(ctx, nil, SetLayoutInput{PrimaryX: 1, PrimaryY: 2, SecondaryX: 3, SecondaryY: 4}); err != nil {
		t.Fatalf("set layout: %v", err)
	}
	want := ipc.LayoutData{PrimaryX: 1, PrimaryY: 2, SecondaryX: 3, SecondaryY: 4}
	if ctrl.layout != want {
		t.Fatalf("expected %+v, got %+v", want, ctrl.layout)
	}

	if _, _, err := s.handleFocus(ctx, nil, FocusInput{Surface: "secondary"}); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if ctrl.focused != "secondary" {
		t.Fatalf("expected secondary focused, got %q", ctrl.focused)
	}
}

func TestHandleScreenshot(t *testing.T) {
	ctrl := newFakeController()
	s := newTestServer(ctrl)
	ctx := context.Background()

	_, out, err := s.handleScreenshot(ctx, nil, ScreenshotInput{})
	if err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if out.Path != "/shots/mirrordock.png" {
		t.Fatalf("unexpected path %q", out.Path)
	}

	ctrl.state = "undocked"
	if _, _, err := s.handleScreenshot(ctx, nil, ScreenshotInput{}); err == nil {
		t.Fatal("expected error while undocked")
	}
}

func TestServer_ListsTools(t *testing.T) {
	s := newTestServer(newFakeController())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	ss, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	res, err := cs.ListTools(ctx, &mcpsdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"apply_preset", "dock_status", "dock_toggle", "focus_surface", "list_presets", "save_preset", "set_layout", "take_screenshot"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected tools %v, got %v", want, names)
	}
}
