package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/xerial/core"
	"github.com/layer-3/xerial/ports"
	"github.com/sirupsen/logrus"
)

const (
	// refreshPath is resolved against the auth host, giving .../auth/auth/refresh-tokens
	refreshPath = "/auth/refresh-tokens"
	logoutPath  = "/auth/logout"
)

// Handshake runs the login flow: a refresh exchange when a valid refresh
// token is stored, otherwise a popup whose posted message carries the tokens.
// At most one attempt is in flight; starting another supersedes it.
type Handshake struct {
	cfg      core.Config
	api      *API
	creds    *CredentialStore
	session  *Session
	window   ports.Window
	messages message.Subscriber
	events   ports.EventPublisher
	screen   core.Screen
	logger   logrus.FieldLogger

	mu       sync.Mutex
	inflight *attempt
}

// HandshakeOption configures a Handshake
type HandshakeOption func(*Handshake)

// WithWindow sets the popup opener and the subscriber its messages arrive on
func WithWindow(window ports.Window, messages message.Subscriber) HandshakeOption {
	return func(h *Handshake) {
		h.window = window
		h.messages = messages
	}
}

// WithEvents publishes login and logout events
func WithEvents(events ports.EventPublisher) HandshakeOption {
	return func(h *Handshake) {
		h.events = events
	}
}

// WithScreen sets the screen the popup is centered on
func WithScreen(screen core.Screen) HandshakeOption {
	return func(h *Handshake) {
		h.screen = screen
	}
}

// NewHandshake creates the authentication flow
func NewHandshake(
	cfg core.Config,
	api *API,
	creds *CredentialStore,
	session *Session,
	logger logrus.FieldLogger,
	opts ...HandshakeOption,
) *Handshake {
	h := &Handshake{
		cfg:     cfg,
		api:     api,
		creds:   creds,
		session: session,
		screen:  core.Screen{Width: 1280, Height: 800},
		logger:  logger.WithField("component", "handshake"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// attempt is one authentication in flight and the resources it owns
type attempt struct {
	pending     *Pending
	ctx         context.Context
	cancel      context.CancelFunc
	popup       ports.Popup
	unsubscribe context.CancelFunc
	release     sync.Once
	logger      logrus.FieldLogger
}

// releaseListener closes the popup and drops the message subscription, once
func (a *attempt) releaseListener() {
	a.release.Do(func() {
		if a.popup != nil {
			if err := a.popup.Close(); err != nil {
				a.logger.WithError(err).Warn("failed to close login popup")
			}
		}
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
	})
}

// finish settles the gate and frees everything the attempt holds
func (a *attempt) finish(account *core.Account, err error) bool {
	settled := a.pending.settle(account, err)
	a.releaseListener()
	a.cancel()
	return settled
}

// Authenticate logs in and blocks until the user is resolved. If ctx ends
// first the attempt is cancelled, closing the popup.
func (h *Handshake) Authenticate(ctx context.Context) (*core.Account, error) {
	pending, err := h.Begin(ctx)
	if err != nil {
		return nil, err
	}

	account, err := pending.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		pending.Cancel()
		if account, ok, err := pending.Result(); ok && err == nil {
			return account, nil
		}
	}
	return account, err
}

// Begin starts an authentication and returns its gate without waiting.
// ctx bounds only the setup; the attempt itself runs until it settles or is
// cancelled.
func (h *Handshake) Begin(ctx context.Context) (*Pending, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev := h.inflight; prev != nil {
		h.logger.Info("superseding authentication in flight")
		prev.finish(nil, core.NewError(core.KindAuthFailed, "superseded by a newer authentication", nil))
		h.inflight = nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &attempt{
		pending: newPending(),
		ctx:     runCtx,
		cancel:  cancel,
		logger:  h.logger,
	}
	a.pending.abort = func(err error) {
		a.finish(nil, err)
		h.forget(a)
	}

	if refreshToken, ok := h.creds.RefreshToken(ctx); ok {
		h.logger.Debug("refresh token present, skipping popup")
		h.inflight = a
		go h.refresh(a, refreshToken)
		return a.pending, nil
	}

	if h.window == nil || h.messages == nil {
		cancel()
		return nil, core.NewError(core.KindAuthFailed, "no login window configured", nil)
	}

	// listen before opening so a fast popup cannot post into the void
	subCtx, unsubscribe := context.WithCancel(runCtx)
	messages, err := h.messages.Subscribe(subCtx, core.WindowMessageTopic)
	if err != nil {
		unsubscribe()
		cancel()
		return nil, core.NewError(core.KindAuthFailed, "failed to listen for login messages", err)
	}
	a.unsubscribe = unsubscribe

	popup, err := h.window.Open(ctx, h.cfg.LoginURL(), core.CenteredGeometry(h.screen))
	if err != nil {
		a.releaseListener()
		cancel()
		return nil, core.NewError(core.KindAuthFailed, "failed to open login popup", err)
	}
	a.popup = popup

	h.inflight = a
	go h.listen(a, messages)

	return a.pending, nil
}

// forget clears the in-flight slot if a still holds it
func (h *Handshake) forget(a *attempt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inflight == a {
		h.inflight = nil
	}
}

// listen waits for the popup's message until one is accepted or the subscription closes
func (h *Handshake) listen(a *attempt, messages <-chan *message.Message) {
	source := a.popup.Source()

	for msg := range messages {
		tokens, ok := h.accept(msg, source)
		msg.Ack()
		if !ok {
			continue
		}
		h.complete(a, tokens)
		return
	}

	// the subscription closed without a matching message
	a.finish(nil, core.NewError(core.KindAuthFailed, "login message listener closed", nil))
	h.forget(a)
}

// accept reports whether msg was posted by the tracked popup and carries an
// access credential. Anything else is ignored and never touches the store.
func (h *Handshake) accept(msg *message.Message, source string) (core.TokenPair, bool) {
	if got := msg.Metadata.Get(core.MetadataSource); got != source {
		h.logger.WithField("source", got).Debug("ignoring message from unknown source")
		return core.TokenPair{}, false
	}

	var tokens core.TokenPair
	if err := json.Unmarshal(msg.Payload, &tokens); err != nil {
		h.logger.WithError(err).Debug("ignoring malformed login message")
		return core.TokenPair{}, false
	}
	if !tokens.HasAccess() {
		h.logger.Debug("ignoring login message without access token")
		return core.TokenPair{}, false
	}
	return tokens, true
}

// complete stores tokens from an accepted popup message and resolves the user
func (h *Handshake) complete(a *attempt, tokens core.TokenPair) {
	defer h.forget(a)

	saved, err := h.persist(a, tokens)
	if err != nil {
		a.finish(nil, core.NewError(core.KindAuthFailed, "failed to store credentials", err))
		return
	}
	if !saved {
		h.logger.Debug("dropping tokens from superseded login")
		return
	}
	a.releaseListener()

	h.establish(a)
}

// refresh runs the refresh exchange in place of a popup
func (h *Handshake) refresh(a *attempt, refreshToken string) {
	defer h.forget(a)

	tokens, err := h.exchange(a.ctx, refreshToken)
	if err != nil {
		h.logger.WithError(err).Warn("token refresh failed")
		a.finish(nil, core.NewError(core.KindAuthFailed, "Auth Failed", err))
		return
	}

	saved, err := h.persist(a, tokens)
	if err != nil {
		a.finish(nil, core.NewError(core.KindAuthFailed, "failed to store credentials", err))
		return
	}
	if !saved {
		h.logger.Debug("dropping tokens from superseded refresh")
		return
	}

	h.establish(a)
}

// persist saves tokens only while a is still the attempt in flight. The check
// and the write happen under the same lock Begin takes to supersede.
func (h *Handshake) persist(a *attempt, tokens core.TokenPair) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inflight != a || a.ctx.Err() != nil {
		return false, nil
	}
	if err := h.creds.Save(a.ctx, tokens); err != nil {
		return false, err
	}
	return true, nil
}

// establish resolves the user behind freshly stored tokens and settles the attempt
func (h *Handshake) establish(a *attempt) {
	h.session.Reset()

	account, err := h.session.ResolveUser(a.ctx)
	if err != nil {
		a.finish(nil, core.NewError(core.KindAuthFailed, "Auth Failed", err))
		return
	}

	if h.events != nil {
		if err := h.events.PublishLogin(a.ctx, account.Identifier, account.Address); err != nil {
			h.logger.WithError(err).Warn("failed to publish login event")
		}
	}

	if a.finish(account, nil) {
		h.logger.WithField("identifier", account.Identifier).Info("authenticated")
	}
}

// exchange trades a refresh token for a new pair. A 401 means the refresh
// token itself is dead, so the stored credentials are dropped.
func (h *Handshake) exchange(ctx context.Context, refreshToken string) (core.TokenPair, error) {
	resp, err := h.api.Do(ctx, http.MethodPost, h.cfg.Hosts().Auth+refreshPath, true, map[string]string{
		"refreshToken": refreshToken,
	})
	if err != nil {
		return core.TokenPair{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if err := h.creds.Clear(ctx); err != nil {
			h.logger.WithError(err).Warn("failed to clear rejected credentials")
		}
		return core.TokenPair{}, core.StatusError(core.KindNotAuthenticated, resp.StatusCode, "refresh token rejected")
	}
	if err := CheckStatus(resp); err != nil {
		return core.TokenPair{}, err
	}

	var tokens core.TokenPair
	if err := DecodeJSON(resp, &tokens); err != nil {
		return core.TokenPair{}, err
	}
	if !tokens.HasAccess() {
		return core.TokenPair{}, core.NewError(core.KindDecode, "refresh response has no access token", nil)
	}
	return tokens, nil
}

// Logout ends the session on the server and then drops local credentials.
// Credentials are kept when the server could not be reached, since nothing
// guarantees the session was terminated.
func (h *Handshake) Logout(ctx context.Context) error {
	pair, ok := h.creds.Load(ctx)
	if !ok {
		return nil
	}

	var identifier string
	if account, ok := h.session.Cached(); ok {
		identifier = account.Identifier
	}

	if pair.Refresh.Token != "" {
		resp, err := h.api.Do(ctx, http.MethodPost, h.cfg.Hosts().API+logoutPath, false, map[string]string{
			"refreshToken": pair.Refresh.Token,
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		// 401 means the server no longer knows the session either
		if resp.StatusCode != http.StatusUnauthorized {
			if err := CheckStatus(resp); err != nil {
				return err
			}
		}
	}

	if err := h.creds.Clear(ctx); err != nil {
		return err
	}
	h.session.Reset()

	if h.events != nil {
		if err := h.events.PublishLogout(ctx, identifier); err != nil {
			h.logger.WithError(err).Warn("failed to publish logout event")
		}
	}

	h.logger.WithField("identifier", identifier).Info("logged out")
	return nil
}
