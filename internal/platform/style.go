package platform

// Style is a GWL_STYLE window style bitmask.
type Style uint32

const (
	StyleChild        Style = 0x40000000
	StyleVisible      Style = 0x10000000
	StyleClipSiblings Style = 0x04000000
	StyleClipChildren Style = 0x02000000
	StyleCaption      Style = 0x00C00000 // includes StyleBorder
	StyleBorder       Style = 0x00800000
	StyleSysMenu      Style = 0x00080000
	StyleThickFrame   Style = 0x00040000
	StyleMinimizeBox  Style = 0x00020000
	StyleMaximizeBox  Style = 0x00010000

	// StyleOverlappedWindow is the canonical decorated top-level window.
	StyleOverlappedWindow Style = 0x00CF0000

	decorations = StyleBorder | StyleCaption | StyleThickFrame |
		StyleMinimizeBox | StyleMaximizeBox | StyleSysMenu
	embedded = StyleChild | StyleVisible | StyleClipChildren | StyleClipSiblings
)

// ToEmbeddedStyle strips the frame decorations from s and marks it as a
// clipped, visible child window.
func ToEmbeddedStyle(s Style) Style {
	return s&^decorations | embedded
}

// ToFreeStyle clears the child bit and restores the overlapped-window
// decorations.
func ToFreeStyle(s Style) Style {
	return s&^StyleChild | StyleOverlappedWindow
}

// IsEmbedded reports whether s carries the child bit and no frame decorations.
func (s Style) IsEmbedded() bool {
	return s&StyleChild != 0 && s&decorations == 0
}

// IsFree reports whether s is a top-level overlapped window.
func (s Style) IsFree() bool {
	return s&StyleChild == 0 && s&StyleOverlappedWindow == StyleOverlappedWindow
}
