package xerial_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/xerial"
	"github.com/layer-3/xerial/adapters/browser"
	"github.com/layer-3/xerial/adapters/events"
	"github.com/layer-3/xerial/adapters/store"
	xhttp "github.com/layer-3/xerial/transport/http"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

const stagingHost = "https://wallet.staging.xerial.io"

var clock = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := xerial.New(xerial.Config{Chain: xerial.ChainPolygon})
	assert.True(t, errors.Is(err, xerial.ErrInvalidConfig))

	_, err = xerial.New(xerial.Config{ProjectID: "p", Chain: "bitcoin"})
	assert.True(t, errors.Is(err, xerial.ErrInvalidConfig))
}

func TestSDK_WithoutWindowCannotLogInInteractively(t *testing.T) {
	sdk, err := xerial.New(xerial.Config{ProjectID: "p", Chain: xerial.ChainTelos})
	require.NoError(t, err)

	assert.False(t, sdk.IsAuthenticated(context.Background()))
	_, err = sdk.Authenticate(context.Background())
	assert.True(t, errors.Is(err, xerial.ErrAuthFailed))

	_, err = sdk.Inventory(context.Background())
	assert.True(t, errors.Is(err, xerial.ErrUnsupportedChain))
}

// TestSDK_LoginThroughBridge drives a full login: the popup opener posts the
// tokens to the loopback bridge, which forwards them over the bus.
func TestSDK_LoginThroughBridge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := logrus.New()
	bus := events.NewInProcessBus(events.NewLogrusAdapter(logger))
	defer bus.Close()

	bridge := xhttp.NewBridge(bus.Publisher, logger)
	server, err := xhttp.Listen("127.0.0.1:0", xhttp.SetupRouter(bridge, []string{stagingHost}), logger)
	require.NoError(t, err)
	defer server.Shutdown(context.Background())

	sessionEvents, err := bus.Subscriber.Subscribe(ctx, events.SessionTopic)
	require.NoError(t, err)

	client := &http.Client{}
	gock.InterceptClient(client)
	defer gock.RestoreClient(client)
	defer gock.Off()

	tokens := fmt.Sprintf(`{"access":{"token":"abc","expires":%q},"refresh":{"token":"r1","expires":%q}}`,
		clock.Add(time.Hour).Format(time.RFC3339), clock.Add(24*time.Hour).Format(time.RFC3339))

	posted := make(chan error, 1)
	loginPage := func(target string) error {
		u, err := url.Parse(target)
		if err != nil {
			return err
		}
		if u.Query().Get("projectId") != "game-42" {
			return fmt.Errorf("unexpected login url %s", target)
		}
		callback := u.Query().Get("callback")

		// a separate client, so the post reaches the real listener
		poster := &http.Client{Transport: &http.Transport{}}
		go func() {
			resp, err := poster.Post(callback, "application/json", strings.NewReader(tokens))
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode != http.StatusAccepted {
					err = fmt.Errorf("bridge answered %d", resp.StatusCode)
				}
			}
			posted <- err
		}()
		return nil
	}

	window := browser.NewWindow(server.MessageURL(), bridge,
		browser.WithOpener(loginPage),
		browser.WithLogger(logger),
	)

	sdk, err := xerial.New(
		xerial.Config{ProjectID: "game-42", Chain: xerial.ChainPolygon},
		xerial.WithStore(store.NewMemoryStore()),
		xerial.WithHTTPClient(client),
		xerial.WithWindow(window),
		xerial.WithMessageSubscriber(bus.Subscriber),
		xerial.WithEventPublisher(events.NewWatermillPublisher(bus.Publisher)),
		xerial.WithLogger(logger),
		xerial.WithClock(func() time.Time { return clock }),
		xerial.WithScreen(1920, 1080),
	)
	require.NoError(t, err)

	gock.New(stagingHost).
		Get("/api/user").
		MatchHeader("Authorization", "^Bearer abc$").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"identifier": "user-1",
			"wallets": []map[string]any{
				{"address": "0xC0FFEE", "smartAccount": "0x5A", "custodial": true},
			},
		})
	gock.New(stagingHost).
		Get("/api/wallet/0x5A/polygon/tokens").
		Reply(http.StatusOK).
		JSON(map[string]any{"balances": []any{}})

	account, err := sdk.Authenticate(ctx)
	require.NoError(t, err)
	require.NoError(t, <-posted)
	assert.Equal(t, "0x5A", account.Address)
	assert.True(t, sdk.IsAuthenticated(ctx))

	select {
	case msg := <-sessionEvents:
		msg.Ack()
		var event events.SessionEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, events.EventLogin, event.Type)
		assert.Equal(t, "user-1", event.Identifier)
	case <-ctx.Done():
		t.Fatal("no login event published")
	}

	// cached: no second /user request
	user, err := sdk.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, account, user)

	balances, err := sdk.Tokens(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(balances))
	assert.True(t, gock.IsDone())

	gock.New(stagingHost).Post("/api/auth/logout").Reply(http.StatusOK)
	require.NoError(t, sdk.Logout(ctx))
	assert.False(t, sdk.IsAuthenticated(ctx))
}
