package mcp

// StatusInput is the input for the dock_status tool.
type StatusInput struct{}

// LayoutInfo is a surface layout in container client coordinates.
type LayoutInfo struct {
	PrimaryX   int `json:"primary_x"`
	PrimaryY   int `json:"primary_y"`
	SecondaryX int `json:"secondary_x"`
	SecondaryY int `json:"secondary_y"`
}

// StatusOutput is the output for the dock_status tool.
type StatusOutput struct {
	State           string     `json:"state"`
	PrimaryFound    bool       `json:"primary_found"`
	SecondaryFound  bool       `json:"secondary_found"`
	ContainerExists bool       `json:"container_exists"`
	Running         bool       `json:"running"`
	Scale           float64    `json:"scale"`
	Layout          LayoutInfo `json:"layout"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
}

// ToggleInput is the input for the dock_toggle tool.
type ToggleInput struct{}

// ToggleOutput is the output for the dock_toggle tool.
type ToggleOutput struct {
	State string `json:"state"`
}

// ListPresetsInput is the input for the list_presets tool.
type ListPresetsInput struct{}

// ListPresetsOutput is the output for the list_presets tool.
type ListPresetsOutput struct {
	Presets []string `json:"presets"`
}

// PresetInput names a preset for apply_preset and save_preset.
type PresetInput struct {
	Name string `json:"name" jsonschema:"Preset name"`
}

// ApplyPresetOutput is the output for the apply_preset tool.
type ApplyPresetOutput struct {
	Name   string     `json:"name"`
	Layout LayoutInfo `json:"layout"`
}

// SetLayoutInput is the input for the set_layout tool.
type SetLayoutInput struct {
	PrimaryX   int `json:"primary_x" jsonschema:"Primary surface x offset in pixels (-500 to 1500)"`
	PrimaryY   int `json:"primary_y" jsonschema:"Primary surface y offset in pixels (-500 to 1500)"`
	SecondaryX int `json:"secondary_x" jsonschema:"Secondary surface x offset in pixels (-500 to 1500)"`
	SecondaryY int `json:"secondary_y" jsonschema:"Secondary surface y offset in pixels (-500 to 1500)"`
}

// FocusInput is the input for the focus_surface tool.
type FocusInput struct {
	Surface string `json:"surface" jsonschema:"primary or secondary"`
}

// ScreenshotInput is the input for the take_screenshot tool.
type ScreenshotInput struct{}

// ScreenshotOutput is the output for the take_screenshot tool.
type ScreenshotOutput struct {
	Path string `json:"path"`
}
