// Package presets stores named surface layouts in a YAML file.
package presets

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/mirrordock/internal/config"
)

const maxNameLength = 50

var (
	ErrInvalidName = errors.New("invalid preset name")
	ErrNotFound    = errors.New("preset not found")
)

// scaleEpsilon is the smallest scale difference that triggers rescaling.
const scaleEpsilon = 0.01

// Preset is a saved layout and the scale it was recorded at.
type Preset struct {
	PrimaryX   int     `yaml:"primary_x"`
	PrimaryY   int     `yaml:"primary_y"`
	SecondaryX int     `yaml:"secondary_x"`
	SecondaryY int     `yaml:"secondary_y"`
	Scale      float64 `yaml:"scale,omitempty"`
}

// FromLayout records l at scale.
func FromLayout(l config.Layout, scale float64) Preset {
	return Preset{
		PrimaryX:   l.PrimaryX,
		PrimaryY:   l.PrimaryY,
		SecondaryX: l.SecondaryX,
		SecondaryY: l.SecondaryY,
		Scale:      scale,
	}
}

func (p Preset) Layout() config.Layout {
	return config.Layout{
		PrimaryX:   p.PrimaryX,
		PrimaryY:   p.PrimaryY,
		SecondaryX: p.SecondaryX,
		SecondaryY: p.SecondaryY,
	}
}

// ScaledTo returns p with its positions rescaled to scale. Presets without a
// recorded scale, or recorded at (nearly) the same scale, are returned as is.
func (p Preset) ScaledTo(scale float64) Preset {
	if p.Scale <= 0 || scale <= 0 {
		return p
	}
	diff := p.Scale - scale
	if diff < 0 {
		diff = -diff
	}
	if diff <= scaleEpsilon {
		return p
	}
	factor := scale / p.Scale
	return Preset{
		PrimaryX:   int(float64(p.PrimaryX) * factor),
		PrimaryY:   int(float64(p.PrimaryY) * factor),
		SecondaryX: int(float64(p.SecondaryX) * factor),
		SecondaryY: int(float64(p.SecondaryY) * factor),
		Scale:      scale,
	}
}

// ValidateName rejects names that are empty, too long, or unsafe as a
// file name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len([]rune(name)) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidName, maxNameLength)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"/\|?*`, r) {
			return fmt.Errorf("%w: name contains invalid characters", ErrInvalidName)
		}
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid name format", ErrInvalidName)
	}
	return nil
}

// Store reads and writes the presets file. Every call goes to disk so
// external edits are always visible.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	// written is the last content this store wrote, used by Watch to ignore
	// its own writes.
	written []byte
}

func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the presets file path.
func (s *Store) Path() string { return s.path }

// All returns every preset. A missing, unreadable, or corrupt file reads as
// empty.
func (s *Store) All() map[string]Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Names returns the preset names in sorted order.
func (s *Store) Names() []string {
	all := s.All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Get(name string) (Preset, error) {
	p, ok := s.All()[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// Save adds or replaces the preset called name.
func (s *Store) Save(name string, p Preset) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadLocked()
	if _, exists := all[name]; exists {
		s.logger.Info("overwriting preset", "name", name)
	}
	all[name] = p
	if err := s.writeLocked(all); err != nil {
		return err
	}
	s.logger.Info("preset saved", "name", name, "layout", p.Layout(), "scale", p.Scale)
	return nil
}

// Delete removes the preset called name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadLocked()
	if _, ok := all[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(all, name)
	if err := s.writeLocked(all); err != nil {
		return err
	}
	s.logger.Info("preset deleted", "name", name)
	return nil
}

func (s *Store) loadLocked() map[string]Preset {
	out := map[string]Preset{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read presets", "path", s.path, "error", err)
		}
		return out
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		s.logger.Error("failed to parse presets", "path", s.path, "error", err)
		return map[string]Preset{}
	}
	if out == nil {
		out = map[string]Preset{}
	}
	return out
}

func (s *Store) writeLocked(all map[string]Preset) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create presets directory: %w", err)
	}
	data, err := yaml.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace presets: %w", err)
	}
	s.written = data
	return nil
}

// isOwnWrite reports whether the file still holds what this store last wrote.
func (s *Store) isOwnWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written == nil {
		return false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	return bytes.Equal(data, s.written)
}
