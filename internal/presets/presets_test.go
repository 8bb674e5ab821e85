package presets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets", "presets.yaml")
	return NewStore(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "Gaming"},
		{name: "spaces and digits", input: "Layout 2"},
		{name: "exactly fifty", input: strings.Repeat("a", 50)},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 51), wantErr: true},
		{name: "slash", input: "a/b", wantErr: true},
		{name: "backslash", input: `a\b`, wantErr: true},
		{name: "colon", input: "a:b", wantErr: true},
		{name: "question mark", input: "what?", wantErr: true},
		{name: "control char", input: "a\x01b", wantErr: true},
		{name: "traversal", input: "a..b", wantErr: true},
		{name: "leading dot", input: ".hidden", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Fatalf("expected ErrInvalidName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected %q to be valid, got %v", tt.input, err)
			}
		})
	}
}

func TestStore_SaveGetNamesDelete(t *testing.T) {
	s := newTestStore(t)

	if names := s.Names(); len(names) != 0 {
		t.Fatalf("expected no presets in a missing file, got %v", names)
	}

	tall := Preset{SecondaryX: 10, SecondaryY: 648, Scale: 0.6}
	wide := Preset{PrimaryX: 5, SecondaryX: 700, Scale: 0.6}
	if err := s.Save("tall", tall); err != nil {
		t.Fatalf("save tall: %v", err)
	}
	if err := s.Save("wide", wide); err != nil {
		t.Fatalf("save wide: %v", err)
	}
	if err := s.Save("bad/name", wide); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	if got := s.Names(); !reflect.DeepEqual(got, []string{"tall", "wide"}) {
		t.Fatalf("expected sorted names [tall wide], got %v", got)
	}
	got, err := s.Get("wide")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != wide {
		t.Fatalf("expected %+v, got %+v", wide, got)
	}

	// Overwrite.
	wide.PrimaryY = 3
	if err := s.Save("wide", wide); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := s.Get("wide"); got.PrimaryY != 3 {
		t.Fatalf("expected overwritten preset, got %+v", got)
	}

	if err := s.Delete("tall"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("tall"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete("tall"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}

	// A second store on the same file sees the same data.
	other := NewStore(s.Path(), nil)
	if got := other.Names(); !reflect.DeepEqual(got, []string{"wide"}) {
		t.Fatalf("expected [wide] from a fresh store, got %v", got)
	}
}

func TestStore_CorruptFileReadsAsEmpty(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not: [valid"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if all := s.All(); len(all) != 0 {
		t.Fatalf("expected empty presets, got %v", all)
	}
	// Saving replaces the corrupt file.
	if err := s.Save("fresh", Preset{Scale: 0.6}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Fatalf("expected [fresh], got %v", got)
	}
}

func TestPreset_ScaledTo(t *testing.T) {
	tests := []struct {
		name   string
		preset Preset
		scale  float64
		want   Preset
	}{
		{
			name:   "same scale unchanged",
			preset: Preset{SecondaryX: 100, SecondaryY: 648, Scale: 0.6},
			scale:  0.6,
			want:   Preset{SecondaryX: 100, SecondaryY: 648, Scale: 0.6},
		},
		{
			name:   "within epsilon unchanged",
			preset: Preset{SecondaryX: 100, Scale: 0.6},
			scale:  0.605,
			want:   Preset{SecondaryX: 100, Scale: 0.6},
		},
		{
			name:   "doubles",
			preset: Preset{PrimaryX: 5, SecondaryX: 100, SecondaryY: 300, Scale: 0.4},
			scale:  0.8,
			want:   Preset{PrimaryX: 10, SecondaryX: 200, SecondaryY: 600, Scale: 0.8},
		},
		{
			name:   "truncates",
			preset: Preset{SecondaryX: 101, Scale: 1.0},
			scale:  0.5,
			want:   Preset{SecondaryX: 50, Scale: 0.5},
		},
		{
			name:   "no recorded scale",
			preset: Preset{SecondaryX: 100},
			scale:  0.8,
			want:   Preset{SecondaryX: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.preset.ScaledTo(tt.scale); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestStore_WatchIgnoresOwnWritesAndReportsExternal(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save("mine", Preset{Scale: 0.6}); err != nil {
		t.Fatalf("save: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, 20*time.Millisecond, func() { changed <- struct{}{} })
	}()
	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := s.Save("mine2", Preset{Scale: 0.6}); err != nil {
		t.Fatalf("save: %v", err)
	}
	select {
	case <-changed:
		t.Fatalf("expected own write to be ignored")
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(s.Path(), []byte("external:\n  secondary_x: 1\n"), 0644); err != nil {
		t.Fatalf("external write: %v", err)
	}
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected change notification for an external write")
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"external"}) {
		t.Fatalf("expected [external], got %v", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not stop after cancel")
	}
}
