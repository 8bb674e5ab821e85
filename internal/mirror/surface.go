package mirror

import (
	"math"
	"sync/atomic"
)

const (
	primaryBaseWidth  = 1920
	primaryBaseHeight = 1080

	// Ratios between the two panels of the target handheld.
	secondaryPixelDivisor = 5.23
	secondaryWidthFactor  = 2.95
	secondaryHeightFactor = 2.57
)

// SurfaceSpec describes one mirrored display.
type SurfaceSpec struct {
	Label     string
	Title     string
	DisplayID int
	// Bitrate floor and scale, in Mbit/s.
	MinBitrate    int
	BitrateFactor float64
	Audio         bool
}

// Surface is one mirrored display window. Its nominal size is published
// only once the mirroring process for it is up.
type Surface struct {
	spec   SurfaceSpec
	width  int
	height int

	ready atomic.Bool
}

func newSurface(spec SurfaceSpec, width, height int) *Surface {
	return &Surface{spec: spec, width: width, height: height}
}

// Title is the window title the mirroring process is started with.
func (s *Surface) Title() string { return s.spec.Title }

// Label is a short name used in logs and file names.
func (s *Surface) Label() string { return s.spec.Label }

// NominalSize returns the window size requested from the mirroring process.
// ok is false until the process has started.
func (s *Surface) NominalSize() (width, height int, ok bool) {
	if !s.ready.Load() {
		return 0, 0, false
	}
	return s.width, s.height, true
}

// Size returns the requested size whether or not the process is up.
func (s *Surface) Size() (width, height int) {
	return s.width, s.height
}

func (s *Surface) markReady(ready bool) { s.ready.Store(ready) }

// NominalSizes returns the window sizes of both surfaces at the given scale.
func NominalSizes(scale float64) (w1, h1, w2, h2 int) {
	w1 = int(primaryBaseWidth * scale)
	h1 = int(primaryBaseHeight * scale)
	px := primaryBaseWidth * scale / secondaryPixelDivisor
	w2 = int(secondaryWidthFactor * px)
	h2 = int(secondaryHeightFactor * px)
	return w1, h1, w2, h2
}

// Bitrate returns the video bitrate in Mbit/s for a surface at scale.
func Bitrate(scale float64, minimum int, factor float64) int {
	return max(minimum, int(factor*math.Pow(scale, 1.5)))
}
