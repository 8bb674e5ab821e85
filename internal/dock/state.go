package dock

import "github.com/1broseidon/mirrordock/internal/platform"

// State is the dock state of both surfaces.
type State int32

const (
	// Docked surfaces are children of the container.
	Docked State = iota
	// Undocked surfaces are free top-level windows anchored to the hidden
	// container's position.
	Undocked
)

func (s State) String() string {
	switch s {
	case Docked:
		return "docked"
	case Undocked:
		return "undocked"
	default:
		return "unknown"
	}
}

// SurfaceIndex selects one of the two docked surfaces.
type SurfaceIndex int

const (
	Primary SurfaceIndex = iota
	Secondary
)

func (i SurfaceIndex) String() string {
	if i == Primary {
		return "primary"
	}
	return "secondary"
}

// Surface is the dock's view of a mirrored window. The title is used to find
// the window; the nominal size becomes known once the mirroring process has
// started.
type Surface interface {
	Title() string
	NominalSize() (width, height int, ok bool)
}

// Layout is the desired placement of both surfaces. Positions are relative
// to the container's client area.
type Layout struct {
	Primary   platform.Rect
	Secondary platform.Rect
}

// DefaultLayout stacks the secondary surface below the primary one, centred
// horizontally.
func DefaultLayout(w1, h1, w2, h2 int) Layout {
	return Layout{
		Primary:   platform.Rect{X: 0, Y: 0, Width: w1, Height: h1},
		Secondary: platform.Rect{X: w1/2 - w2/2, Y: h1, Width: w2, Height: h2},
	}
}

// ContainerSize returns the client size needed to hold both surfaces stacked
// vertically.
func ContainerSize(w1, h1, w2, h2 int) (width, height int) {
	return max(w1, w2), h1 + h2
}
