package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/layer-3/xerial/core"
	"github.com/layer-3/xerial/ports"
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
)

// SourceRegistry tracks which popup sources may post messages back
type SourceRegistry interface {
	Allow(source string)
	Revoke(source string)
}

// Window opens the login page in the system browser. The page receives a
// callback URL unique to the popup, and posts its message there.
type Window struct {
	callbackBase string
	registry     SourceRegistry
	openURL      func(string) error
	logger       logrus.FieldLogger
}

// Option configures a Window
type Option func(*Window)

// WithOpener replaces the function used to launch the browser
func WithOpener(open func(string) error) Option {
	return func(w *Window) {
		w.openURL = open
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(w *Window) {
		w.logger = logger
	}
}

// NewWindow creates a window whose popups post to callbackBase/{source}
func NewWindow(callbackBase string, registry SourceRegistry, opts ...Option) *Window {
	w := &Window{
		callbackBase: strings.TrimRight(callbackBase, "/"),
		registry:     registry,
		openURL:      browser.OpenURL,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open launches the login page and returns a handle on the popup
func (w *Window) Open(ctx context.Context, loginURL string, geometry core.Geometry) (ports.Popup, error) {
	source := uuid.NewString()

	target, err := withCallback(loginURL, w.callbackBase+"/"+source)
	if err != nil {
		return nil, err
	}

	if w.registry != nil {
		w.registry.Allow(source)
	}

	w.logger.WithFields(logrus.Fields{
		"source": source,
		"name":   core.PopupName,
		"width":  geometry.Width,
		"height": geometry.Height,
		"left":   geometry.Left,
		"top":    geometry.Top,
	}).Info("opening login popup")

	if err := w.openURL(target); err != nil {
		if w.registry != nil {
			w.registry.Revoke(source)
		}
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}

	return &popup{source: source, registry: w.registry}, nil
}

func withCallback(loginURL, callback string) (string, error) {
	u, err := url.Parse(loginURL)
	if err != nil {
		return "", fmt.Errorf("invalid login url: %w", err)
	}
	q := u.Query()
	q.Set("callback", callback)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type popup struct {
	source   string
	registry SourceRegistry
	once     sync.Once
}

// Source is the handle the bridge tags this popup's messages with
func (p *popup) Source() string {
	return p.source
}

// Close stops the bridge from accepting further messages from this popup.
// The browser tab itself belongs to the user.
func (p *popup) Close() error {
	p.once.Do(func() {
		if p.registry != nil {
			p.registry.Revoke(p.source)
		}
	})
	return nil
}

var _ ports.Window = (*Window)(nil)
