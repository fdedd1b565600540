package core

const (
	// PopupWidth and PopupHeight are the fixed login popup dimensions
	PopupWidth  = 480
	PopupHeight = 565

	// PopupName is the window target name used for the login popup
	PopupName = "xerialAuthPopup"

	// WindowMessageTopic carries cross-window messages posted by the login page
	WindowMessageTopic = "xerial.window.message"

	// MetadataSource is the message metadata key identifying the posting window
	MetadataSource = "source"
)

// Geometry is the popup placement on screen
type Geometry struct {
	Width  int
	Height int
	Left   int
	Top    int
}

// Screen is the size of the area the popup is centered on
type Screen struct {
	Width  int
	Height int
}

// CenteredGeometry places a fixed-size popup in the middle of the screen
func CenteredGeometry(s Screen) Geometry {
	return Geometry{
		Width:  PopupWidth,
		Height: PopupHeight,
		Left:   (s.Width - PopupWidth) / 2,
		Top:    (s.Height - PopupHeight) / 2,
	}
}
