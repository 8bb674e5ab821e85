package ipc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeHandler struct {
	mu       sync.Mutex
	state    string
	layout   LayoutData
	presets  map[string]LayoutData
	synced   int
	focused  []string
	quit     chan struct{}
	quitOnce sync.Once
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		state:   "docked",
		presets: map[string]LayoutData{"wide": {SecondaryX: 300}},
		quit:    make(chan struct{}),
	}
}

func (h *fakeHandler) Status() StatusData {
	h.mu.Lock()
	defer h.mu.Unlock()
	return StatusData{State: h.state, Running: true, Scale: 0.6, Layout: h.layout}
}

func (h *fakeHandler) Toggle() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == "docked" {
		h.state = "undocked"
	} else {
		h.state = "docked"
	}
	return h.state
}

func (h *fakeHandler) ApplyPreset(name string) (LayoutData, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.presets[name]
	if !ok {
		return LayoutData{}, errors.New("preset not found")
	}
	h.layout = l
	return l, nil
}

func (h *fakeHandler) PresetNames() []string { return []string{"wide"} }

func (h *fakeHandler) SavePreset(name string) error {
	if name == "" {
		return errors.New("invalid preset name")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presets[name] = h.layout
	return nil
}

func (h *fakeHandler) DeletePreset(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.presets, name)
	return nil
}

func (h *fakeHandler) SetLayout(l LayoutData) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layout = l
	return nil
}

func (h *fakeHandler) ForceSync() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.synced++
}

func (h *fakeHandler) Focus(surface string) error {
	if surface != "primary" && surface != "secondary" {
		return errors.New("unknown surface")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.focused = append(h.focused, surface)
	return nil
}

func (h *fakeHandler) Screenshot() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != "docked" {
		return "", errors.New("surfaces are not docked")
	}
	return "/tmp/shot.png", nil
}

func (h *fakeHandler) Quit() {
	h.quitOnce.Do(func() { close(h.quit) })
}

func startTestServer(t *testing.T) (*Client, *fakeHandler, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "md")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "s.sock")

	h := newFakeHandler()
	srv := NewServer(socket, h, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(socket); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not create socket")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return NewClientAt(socket), h, socket
}

func TestClientServer_Commands(t *testing.T) {
	c, h, _ := startTestServer(t)

	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != "docked" || !status.Running {
		t.Fatalf("unexpected status %+v", status)
	}

	state, err := c.Toggle()
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if state != "undocked" {
		t.Fatalf("expected undocked, got %q", state)
	}

	layout, err := c.ApplyPreset("wide")
	if err != nil {
		t.Fatalf("apply preset: %v", err)
	}
	if layout.SecondaryX != 300 {
		t.Fatalf("expected applied layout, got %+v", layout)
	}

	names, err := c.ListPresets()
	if err != nil {
		t.Fatalf("list presets: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"wide"}) {
		t.Fatalf("expected [wide], got %v", names)
	}

	want := LayoutData{PrimaryX: 1, PrimaryY: 2, SecondaryX: 3, SecondaryY: 4}
	if err := c.SetLayout(want); err != nil {
		t.Fatalf("set layout: %v", err)
	}
	if status, _ := c.GetStatus(); status.Layout != want {
		t.Fatalf("expected layout %+v, got %+v", want, status.Layout)
	}

	if err := c.SavePreset("mine"); err != nil {
		t.Fatalf("save preset: %v", err)
	}
	if err := c.DeletePreset("mine"); err != nil {
		t.Fatalf("delete preset: %v", err)
	}
	if err := c.ForceSync(); err != nil {
		t.Fatalf("force sync: %v", err)
	}
	if err := c.Focus("secondary"); err != nil {
		t.Fatalf("focus: %v", err)
	}

	h.mu.Lock()
	synced, focused := h.synced, append([]string(nil), h.focused...)
	h.mu.Unlock()
	if synced != 1 {
		t.Fatalf("expected one forced sync, got %d", synced)
	}
	if !reflect.DeepEqual(focused, []string{"secondary"}) {
		t.Fatalf("expected focus on secondary, got %v", focused)
	}
}

func TestClientServer_HandlerErrorsAreReported(t *testing.T) {
	c, _, _ := startTestServer(t)

	if _, err := c.ApplyPreset("missing"); err == nil || !strings.Contains(err.Error(), "preset not found") {
		t.Fatalf("expected preset not found error, got %v", err)
	}
	if err := c.Focus("third"); err == nil || !strings.Contains(err.Error(), "unknown surface") {
		t.Fatalf("expected unknown surface error, got %v", err)
	}
}

func TestClientServer_Screenshot(t *testing.T) {
	c, _, _ := startTestServer(t)

	path, err := c.Screenshot()
	if err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if path != "/tmp/shot.png" {
		t.Fatalf("expected /tmp/shot.png, got %q", path)
	}

	if _, err := c.Toggle(); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := c.Screenshot(); err == nil || !strings.Contains(err.Error(), "not docked") {
		t.Fatalf("expected not docked error, got %v", err)
	}
}

func TestServer_RejectsBadRequests(t *testing.T) {
	_, _, socket := startTestServer(t)

	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "invalid json", line: "{not json}\n", want: "Invalid request"},
		{name: "unknown command", line: `{"command":"NOPE"}` + "\n", want: "Unknown command"},
		{name: "missing payload", line: `{"command":"APPLY_PRESET"}` + "\n", want: "payload is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := net.Dial("unix", socket)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()
			if _, err := conn.Write([]byte(tt.line)); err != nil {
				t.Fatalf("write: %v", err)
			}
			line, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !strings.Contains(line, `"status":"ERROR"`) || !strings.Contains(line, tt.want) {
				t.Fatalf("expected error containing %q, got %s", tt.want, line)
			}
		})
	}
}

func TestClientServer_QuitRepliesThenCallsHandler(t *testing.T) {
	c, h, _ := startTestServer(t)

	if err := c.Quit(); err != nil {
		t.Fatalf("quit: %v", err)
	}
	select {
	case <-h.quit:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected handler Quit to be called")
	}
}

func TestServer_StopRemovesSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "md")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "s.sock")

	// A stale socket file from a crashed run must not block startup.
	if err := os.WriteFile(socket, nil, 0600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	srv := NewServer(socket, newFakeHandler(), nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv.Stop()
	srv.Stop()

	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("expected socket to be removed, got %v", err)
	}
	if err := NewClientAt(socket).Ping(); err == nil {
		t.Fatalf("expected ping to fail after stop")
	}
}
