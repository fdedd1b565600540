package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/xerial/core"
	"github.com/layer-3/xerial/ports"
	"github.com/sirupsen/logrus"
)

// StorageKey is the key the token pair is persisted under
const StorageKey = "xerial"

// CredentialStore owns the persisted token pair. It performs no network I/O.
type CredentialStore struct {
	store  ports.KeyValueStore
	now    func() time.Time
	logger logrus.FieldLogger
}

// NewCredentialStore creates a credential store on top of durable storage
func NewCredentialStore(store ports.KeyValueStore, now func() time.Time, logger logrus.FieldLogger) *CredentialStore {
	if now == nil {
		now = time.Now
	}
	return &CredentialStore{
		store:  store,
		now:    now,
		logger: logger.WithField("component", "credentials"),
	}
}

// Load returns the persisted pair. A value that is not JSON is read as a bare
// access token, the format older SDK versions stored.
func (c *CredentialStore) Load(ctx context.Context) (core.TokenPair, bool) {
	raw, err := c.store.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			c.logger.WithError(err).Warn("failed to read credentials")
		}
		return core.TokenPair{}, false
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.TokenPair{}, false
	}

	if !strings.HasPrefix(raw, "{") {
		pair, err := core.TokenPairFromAccessToken(raw)
		if err != nil {
			c.logger.WithError(err).Warn("ignoring unreadable stored access token")
			return core.TokenPair{}, false
		}
		return pair, true
	}

	var pair core.TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		c.logger.WithError(err).Warn("ignoring unreadable stored credentials")
		return core.TokenPair{}, false
	}
	return pair, pair.HasAccess()
}

// IsAuthenticated reports whether an access token exists and has not expired
func (c *CredentialStore) IsAuthenticated(ctx context.Context) bool {
	pair, ok := c.Load(ctx)
	return ok && pair.Access.ValidAt(c.now())
}

// Save overwrites the persisted pair in a single write
func (c *CredentialStore) Save(ctx context.Context, pair core.TokenPair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := c.store.Set(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Clear removes the persisted pair
func (c *CredentialStore) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// CurrentAccessToken returns the stored access token, expired or not
func (c *CredentialStore) CurrentAccessToken(ctx context.Context) (string, bool) {
	pair, ok := c.Load(ctx)
	if !ok {
		return "", false
	}
	return pair.Access.Token, true
}

// RefreshToken returns the stored refresh token while it is still valid
func (c *CredentialStore) RefreshToken(ctx context.Context) (string, bool) {
	pair, ok := c.Load(ctx)
	if !ok || !pair.Refresh.ValidAt(c.now()) {
		return "", false
	}
	return pair.Refresh.Token, true
}
