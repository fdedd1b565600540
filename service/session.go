package service

import (
	"context"
	"sync"

	"github.com/layer-3/xerial/core"
	"github.com/sirupsen/logrus"
)

// Session resolves and caches the authenticated user and its active address.
// The cache lives for the lifetime of the SDK instance and is dropped only by
// a fresh login or a logout.
type Session struct {
	api    *API
	chain  core.Chain
	logger logrus.FieldLogger

	// sem admits one resolution at a time so concurrent first callers share
	// a single request
	sem chan struct{}

	mu         sync.Mutex
	user       *core.User
	account    *core.Account
	generation uint64
}

// NewSession creates an empty session cache
func NewSession(cfg core.Config, api *API, logger logrus.FieldLogger) *Session {
	return &Session{
		api:    api,
		chain:  cfg.Chain,
		logger: logger.WithField("component", "session"),
		sem:    make(chan struct{}, 1),
	}
}

// ResolveUser returns the cached account, fetching GET /user on first use.
// A 401 surfaces as NotAuthenticated; refreshing is the handshake's job.
func (s *Session) ResolveUser(ctx context.Context) (*core.Account, error) {
	if account, ok := s.cached(); ok {
		return account, nil
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	if account, ok := s.cached(); ok {
		return account, nil
	}

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	var user core.User
	if err := s.api.GetJSON(ctx, s.api.hosts.API+"/user", &user); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, core.NewError(core.KindDecode, "invalid user payload", err)
	}

	account := core.ResolveAccount(user, s.chain)

	s.mu.Lock()
	if s.generation == generation {
		s.user = &user
		s.account = &account
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"identifier": account.Identifier,
		"address":    account.Address,
		"custodial":  account.Custodial,
	}).Info("session resolved")

	out := account
	return &out, nil
}

// User returns the full user record behind the session
func (s *Session) User(ctx context.Context) (*core.User, error) {
	if _, err := s.ResolveUser(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, core.NewError(core.KindNotAuthenticated, "session was reset", nil)
	}
	user := *s.user
	user.Wallets = append([]core.Wallet(nil), s.user.Wallets...)
	return &user, nil
}

// Cached returns the account without any I/O
func (s *Session) Cached() (*core.Account, bool) {
	return s.cached()
}

// Reset drops the cached identity. A resolution already in flight will not
// repopulate the cache.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.account = nil
	s.generation++
}

func (s *Session) cached() (*core.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.account == nil {
		return nil, false
	}
	out := *s.account
	return &out, true
}
