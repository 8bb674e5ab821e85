package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/mirrordock/internal/runtimepath"
)

// Client handles IPC communication with the running instance
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mirrordock: %w (is it running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("mirrordock error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) call(cmd CommandType, payload any, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// GetStatus retrieves the dock status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Toggle switches between docked and undocked and returns the new state.
func (c *Client) Toggle() (string, error) {
	var data ToggleData
	if err := c.call(CommandToggle, nil, &data); err != nil {
		return "", err
	}
	return data.State, nil
}

// ApplyPreset applies a saved layout and returns it as applied.
func (c *Client) ApplyPreset(name string) (*LayoutData, error) {
	var layout LayoutData
	if err := c.call(CommandApplyPreset, PresetPayload{Name: name}, &layout); err != nil {
		return nil, err
	}
	return &layout, nil
}

func (c *Client) ListPresets() ([]string, error) {
	var data PresetsData
	if err := c.call(CommandListPresets, nil, &data); err != nil {
		return nil, err
	}
	return data.Presets, nil
}

// SavePreset stores the current layout under name.
func (c *Client) SavePreset(name string) error {
	return c.call(CommandSavePreset, PresetPayload{Name: name}, nil)
}

func (c *Client) DeletePreset(name string) error {
	return c.call(CommandDeletePreset, PresetPayload{Name: name}, nil)
}

func (c *Client) SetLayout(layout LayoutData) error {
	return c.call(CommandSetLayout, layout, nil)
}

// ForceSync makes the next frame reposition both surfaces.
func (c *Client) ForceSync() error {
	return c.call(CommandForceSync, nil, nil)
}

// Focus brings "primary" or "secondary" to the foreground.
func (c *Client) Focus(surface string) error {
	return c.call(CommandFocus, FocusPayload{Surface: surface}, nil)
}

// Screenshot captures the docked container and returns the saved PNG path.
func (c *Client) Screenshot() (string, error) {
	var data ScreenshotData
	if err := c.call(CommandScreenshot, nil, &data); err != nil {
		return "", err
	}
	return data.Path, nil
}

// Quit shuts the running instance down.
func (c *Client) Quit() error {
	return c.call(CommandQuit, nil, nil)
}

// Ping checks if the running instance is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
