package ports

import (
	"context"

	"github.com/layer-3/xerial/core"
)

// Window opens login popups
type Window interface {
	Open(ctx context.Context, url string, geometry core.Geometry) (Popup, error)
}

// Popup is a handle on an opened login popup. Source identifies the popup on
// messages it posts back.
type Popup interface {
	Source() string
	Close() error
}
