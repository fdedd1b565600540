package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/layer-3/xerial/adapters/store"
	"github.com/layer-3/xerial/core"
	"github.com/layer-3/xerial/ports"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

const stagingHost = "https://wallet.staging.xerial.io"

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

// harness wires every service component against in-memory collaborators
type harness struct {
	cfg        core.Config
	kv         ports.KeyValueStore
	creds      *CredentialStore
	api        *API
	session    *Session
	resources  *Resources
	dispatcher *Dispatcher
	handshake  *Handshake
	window     *fakeWindow
	bus        *countingSubscriber
	pubSub     *gochannel.GoChannel
	events     *recordingEvents
	provider   *fakeProvider
}

func newHarness(t *testing.T, chain core.Chain) *harness {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	client := &http.Client{}
	gock.InterceptClient(client)
	t.Cleanup(func() {
		gock.RestoreClient(client)
		gock.Off()
		gock.CleanUnmatchedRequest()
	})

	cfg := core.Config{ProjectID: "project-1", Chain: chain}
	h := &harness{
		cfg:      cfg,
		kv:       store.NewMemoryStore(),
		window:   &fakeWindow{},
		events:   &recordingEvents{},
		provider: &fakeProvider{account: common.HexToAddress(eoaAddress)},
	}
	h.pubSub = gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { h.pubSub.Close() })
	h.bus = &countingSubscriber{Subscriber: h.pubSub}

	h.creds = NewCredentialStore(h.kv, func() time.Time { return testNow }, logger)
	h.api = NewAPI(cfg, client, h.creds, logger)
	h.session = NewSession(cfg, h.api, logger)
	h.resources = NewResources(cfg, h.api, h.session)
	h.dispatcher = NewDispatcher(h.api, h.session, h.provider, logger)
	h.handshake = NewHandshake(cfg, h.api, h.creds, h.session, logger,
		WithWindow(h.window, h.bus),
		WithEvents(h.events),
		WithScreen(core.Screen{Width: 1920, Height: 1080}),
	)
	return h
}

func validPair(access string) core.TokenPair {
	return core.TokenPair{
		Access:  core.Token{Token: access, Expires: testNow.Add(time.Hour)},
		Refresh: core.Token{Token: "refresh-" + access, Expires: testNow.Add(24 * time.Hour)},
	}
}

func (h *harness) login(t *testing.T, pair core.TokenPair) {
	t.Helper()
	require.NoError(t, h.creds.Save(context.Background(), pair))
}

// post publishes a window message as the bridge would
func (h *harness) post(t *testing.T, source string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), raw)
	msg.Metadata.Set(core.MetadataSource, source)
	require.NoError(t, h.pubSub.Publish(core.WindowMessageTopic, msg))
}

const (
	smartAccount = "0x5A00000000000000000000000000000000000001"
	custodialKey = "0xC000000000000000000000000000000000000002"
	eoaAddress   = "0xE0A0000000000000000000000000000000000003"
)

func custodialUser() map[string]any {
	return map[string]any{
		"identifier": "user-1",
		"name":       "Ada",
		"wallets": []map[string]any{
			{"address": custodialKey, "smartAccount": smartAccount, "custodial": true},
		},
	}
}

func externalUser() map[string]any {
	return map[string]any{
		"identifier": "user-2",
		"wallets": []map[string]any{
			{"address": eoaAddress, "custodial": false},
		},
	}
}

func mockUser(token string, user map[string]any) *gock.Response {
	return gock.New(stagingHost).
		Get("/api/user").
		MatchHeader("Authorization", "^Bearer "+token+"$").
		Reply(http.StatusOK).
		JSON(user)
}

type fakePopup struct {
	source string
	closed atomic.Int32
}

func (p *fakePopup) Source() string {
	return p.source
}

func (p *fakePopup) Close() error {
	p.closed.Add(1)
	return nil
}

type fakeWindow struct {
	mu       sync.Mutex
	popups   []*fakePopup
	urls     []string
	geometry core.Geometry
	err      error
}

func (w *fakeWindow) Open(ctx context.Context, url string, geometry core.Geometry) (ports.Popup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return nil, w.err
	}
	p := &fakePopup{source: fmt.Sprintf("popup-%d", len(w.popups)+1)}
	w.popups = append(w.popups, p)
	w.urls = append(w.urls, url)
	w.geometry = geometry
	return p, nil
}

func (w *fakeWindow) opened() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.popups)
}

func (w *fakeWindow) popup(i int) *fakePopup {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.popups[i]
}

// countingSubscriber tracks live subscriptions, the Go analogue of
// registered message listeners
type countingSubscriber struct {
	message.Subscriber
	active atomic.Int32
	total  atomic.Int32
}

func (s *countingSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	messages, err := s.Subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	s.active.Add(1)
	s.total.Add(1)
	go func() {
		<-ctx.Done()
		s.active.Add(-1)
	}()
	return messages, nil
}

type recordingEvents struct {
	mu      sync.Mutex
	logins  []string
	logouts []string
}

func (e *recordingEvents) PublishLogin(ctx context.Context, identifier, address string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logins = append(e.logins, identifier+"@"+address)
	return nil
}

func (e *recordingEvents) PublishLogout(ctx context.Context, identifier string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logouts = append(e.logouts, identifier)
	return nil
}

func (e *recordingEvents) snapshot() ([]string, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.logins...), append([]string(nil), e.logouts...)
}

type fakeProvider struct {
	account  common.Address
	accounts []common.Address
	hash     common.Hash
	sent     []core.UnsignedTransaction
	calls    atomic.Int32
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.calls.Add(1)
	if p.accounts != nil {
		return p.accounts, nil
	}
	return []common.Address{p.account}, nil
}

func (p *fakeProvider) SendTransaction(ctx context.Context, tx core.UnsignedTransaction) (common.Hash, error) {
	p.calls.Add(1)
	p.sent = append(p.sent, tx)
	return p.hash, nil
}

func (p *fakeProvider) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	p.calls.Add(1)
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash}, nil
}
