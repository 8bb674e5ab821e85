package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus    CommandType = "GET_STATUS"
	CommandToggle       CommandType = "TOGGLE"
	CommandApplyPreset  CommandType = "APPLY_PRESET"
	CommandListPresets  CommandType = "LIST_PRESETS"
	CommandSavePreset   CommandType = "SAVE_PRESET"
	CommandDeletePreset CommandType = "DELETE_PRESET"
	CommandSetLayout    CommandType = "SET_LAYOUT"
	CommandForceSync    CommandType = "FORCE_SYNC"
	CommandFocus        CommandType = "FOCUS"
	CommandScreenshot   CommandType = "SCREENSHOT"
	CommandQuit         CommandType = "QUIT"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// LayoutData is the placement of both surfaces inside the container.
type LayoutData struct {
	PrimaryX   int `json:"primary_x"`
	PrimaryY   int `json:"primary_y"`
	SecondaryX int `json:"secondary_x"`
	SecondaryY int `json:"secondary_y"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	State           string     `json:"state"`
	PrimaryFound    bool       `json:"primary_found"`
	SecondaryFound  bool       `json:"secondary_found"`
	ContainerExists bool       `json:"container_exists"`
	Running         bool       `json:"running"`
	Scale           float64    `json:"scale"`
	Layout          LayoutData `json:"layout"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
}

// ToggleData is returned by TOGGLE.
type ToggleData struct {
	State string `json:"state"`
}

type PresetPayload struct {
	Name string `json:"name"`
}

type PresetsData struct {
	Presets []string `json:"presets"`
}

type FocusPayload struct {
	// Surface is "primary" or "secondary".
	Surface string `json:"surface"`
}

// ScreenshotData is returned by SCREENSHOT.
type ScreenshotData struct {
	Path string `json:"path"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
