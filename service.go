package xerial

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/xerial/adapters/store"
	"github.com/layer-3/xerial/core"
	"github.com/layer-3/xerial/ports"
	"github.com/layer-3/xerial/service"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Pending is an authentication started with Begin
type Pending = service.Pending

// SDK is the wallet client. Create one per application with New.
type SDK struct {
	cfg        core.Config
	creds      *service.CredentialStore
	session    *service.Session
	handshake  *service.Handshake
	resources  *service.Resources
	dispatcher *service.Dispatcher
}

type options struct {
	store      ports.KeyValueStore
	httpClient *http.Client
	window     ports.Window
	messages   message.Subscriber
	provider   ports.WalletProvider
	events     ports.EventPublisher
	logger     logrus.FieldLogger
	screen     *core.Screen
	now        func() time.Time
}

// Option configures an SDK
type Option func(*options)

// WithStore sets where credentials are persisted. Defaults to memory.
func WithStore(s ports.KeyValueStore) Option {
	return func(o *options) { o.store = s }
}

// WithHTTPClient sets the client used for the wallet service
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithWindow sets the popup opener used for interactive login
func WithWindow(w ports.Window) Option {
	return func(o *options) { o.window = w }
}

// WithMessageSubscriber sets the subscriber login pages post their messages to
func WithMessageSubscriber(s message.Subscriber) Option {
	return func(o *options) { o.messages = s }
}

// WithWalletProvider sets the external wallet used by non-custodial users
func WithWalletProvider(p ports.WalletProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithEventPublisher publishes login and logout events
func WithEventPublisher(p ports.EventPublisher) Option {
	return func(o *options) { o.events = p }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithScreen sets the screen size the login popup is centered on
func WithScreen(width, height int) Option {
	return func(o *options) { o.screen = &core.Screen{Width: width, Height: height} }
}

// WithClock replaces the time source used for token expiry
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New validates cfg and wires the SDK components
func New(cfg Config, opts ...Option) (*SDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logrus.StandardLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = store.NewMemoryStore()
	}

	logger := o.logger.WithFields(logrus.Fields{
		"project": cfg.ProjectID,
		"chain":   cfg.Chain,
	})

	creds := service.NewCredentialStore(o.store, o.now, logger)
	api := service.NewAPI(cfg, o.httpClient, creds, logger)
	session := service.NewSession(cfg, api, logger)

	handshakeOpts := []service.HandshakeOption{}
	if o.window != nil && o.messages != nil {
		handshakeOpts = append(handshakeOpts, service.WithWindow(o.window, o.messages))
	}
	if o.events != nil {
		handshakeOpts = append(handshakeOpts, service.WithEvents(o.events))
	}
	if o.screen != nil {
		handshakeOpts = append(handshakeOpts, service.WithScreen(*o.screen))
	}

	return &SDK{
		cfg:        cfg,
		creds:      creds,
		session:    session,
		handshake:  service.NewHandshake(cfg, api, creds, session, logger, handshakeOpts...),
		resources:  service.NewResources(cfg, api, session),
		dispatcher: service.NewDispatcher(api, session, o.provider, logger),
	}, nil
}

// Config returns the configuration the SDK was built with
func (s *SDK) Config() Config {
	return s.cfg
}

// Authenticate logs in, refreshing silently when a refresh token is stored
func (s *SDK) Authenticate(ctx context.Context) (*Account, error) {
	return s.handshake.Authenticate(ctx)
}

// Begin starts an authentication without waiting for it
func (s *SDK) Begin(ctx context.Context) (*Pending, error) {
	return s.handshake.Begin(ctx)
}

// IsAuthenticated reports whether a non-expired access token is stored
func (s *SDK) IsAuthenticated(ctx context.Context) bool {
	return s.creds.IsAuthenticated(ctx)
}

// Logout ends the session on the server and drops stored credentials
func (s *SDK) Logout(ctx context.Context) error {
	return s.handshake.Logout(ctx)
}

// User returns the session account, resolving it on first use
func (s *SDK) User(ctx context.Context) (*Account, error) {
	return s.session.ResolveUser(ctx)
}

// Profile returns the full user record, including every wallet
func (s *SDK) Profile(ctx context.Context) (*User, error) {
	return s.session.User(ctx)
}

// Tokens returns the token balances of the active address
func (s *SDK) Tokens(ctx context.Context) (json.RawMessage, error) {
	return s.resources.Tokens(ctx)
}

// TokensAt returns the token balances of an arbitrary address
func (s *SDK) TokensAt(ctx context.Context, address string) (json.RawMessage, error) {
	return s.resources.TokensAt(ctx, address)
}

// NativeBalance returns the native coin balance of the active address
func (s *SDK) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.resources.NativeBalance(ctx)
}

// NativeBalanceAt returns the native coin balance of an arbitrary address
func (s *SDK) NativeBalanceAt(ctx context.Context, address string) (decimal.Decimal, error) {
	return s.resources.NativeBalanceAt(ctx, address)
}

// Inventory returns the global inventory of the active address
func (s *SDK) Inventory(ctx context.Context) (json.RawMessage, error) {
	return s.resources.Inventory(ctx)
}

// InventoryAt returns the global inventory of an arbitrary address
func (s *SDK) InventoryAt(ctx context.Context, address string) (json.RawMessage, error) {
	return s.resources.InventoryAt(ctx, address)
}

// SendTransaction submits a pre-built transaction and returns its hash
func (s *SDK) SendTransaction(ctx context.Context, tx UnsignedTransaction, from string) (string, error) {
	return s.dispatcher.SendTransaction(ctx, tx, from)
}

var _ Client = (*SDK)(nil)
