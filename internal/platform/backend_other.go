//go:build !windows && !linux

package platform

// NewNative reports ErrUnsupported; there is no window system integration
// for this OS.
func NewNative() (Native, error) {
	return nil, ErrUnsupported
}
