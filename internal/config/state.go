package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// State is what is remembered between runs: the last scale and layout.
type State struct {
	Scale  float64 `yaml:"scale"`
	Layout Layout  `yaml:"layout"`
}

// DefaultStatePath returns ~/.local/share/mirrordock/state.yaml.
func DefaultStatePath() string {
	return filepath.Join(dataDir(), "state.yaml")
}

// LoadState reads the state file. A missing file returns ok=false and no error.
func LoadState(path string) (State, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("%s: failed to read: %w", path, err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
	}
	return st, true, nil
}

// SaveState writes st to path atomically.
func SaveState(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := yaml.Marshal(&st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// ApplyState fills scale and layout from st where the config files left them
// unset. Out-of-range state values are ignored. The applied paths are recorded
// in res.Sources.
func ApplyState(res *LoadResult, st State, statePath string) {
	if res == nil || res.Config == nil {
		return
	}
	if res.Sources == nil {
		res.Sources = map[string]Source{}
	}
	src := Source{Kind: SourceState, Name: statePath}

	if _, set := res.Sources["scale"]; !set && st.Scale >= MinScale && st.Scale <= MaxScale {
		res.Config.Scale = st.Scale
		res.Sources["scale"] = src
	}
	if hasSourceUnder(res.Sources, "layout") || st.Layout.IsZero() {
		return
	}
	if ValidateLayout(st.Layout) != nil {
		return
	}
	res.Config.Layout = st.Layout
	for _, key := range []string{"layout", "layout.primary_x", "layout.primary_y", "layout.secondary_x", "layout.secondary_y"} {
		res.Sources[key] = src
	}
}

func hasSourceUnder(sources map[string]Source, prefix string) bool {
	for key := range sources {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	return false
}
