package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/xerial"
	"github.com/layer-3/xerial/adapters/browser"
	"github.com/layer-3/xerial/adapters/events"
	"github.com/layer-3/xerial/adapters/store"
	"github.com/layer-3/xerial/adapters/wallet"
	"github.com/layer-3/xerial/internal/conf"
	"github.com/layer-3/xerial/ports"
	xhttp "github.com/layer-3/xerial/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// app is a fully wired SDK plus the resources it holds open
type app struct {
	sdk     *xerial.SDK
	closers []func()
}

func newApp(ctx context.Context, config *conf.Configuration) (_ *app, err error) {
	logger := logrus.New()
	logger.SetLevel(config.Level())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var redisClient *redis.Client
	if config.Store == conf.StoreRedis || config.Bus == conf.BusRedis {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		a.onClose(func() { redisClient.Close() })
	}

	kv, err := newStore(config, redisClient)
	if err != nil {
		return nil, err
	}

	watermillLogger := events.NewLogrusAdapter(logger)
	var bus *events.Bus
	if config.Bus == conf.BusRedis {
		bus, err = events.NewRedisBus(redisClient, watermillLogger)
		if err != nil {
			return nil, err
		}
	} else {
		bus = events.NewInProcessBus(watermillLogger)
	}
	a.onClose(func() { bus.Close() })

	gin.SetMode(gin.ReleaseMode)
	bridge := xhttp.NewBridge(bus.Publisher, logger)
	server, err := xhttp.Listen(config.CallbackAddr, xhttp.SetupRouter(bridge, config.Origins()), logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	})

	opts := []xerial.Option{
		xerial.WithStore(kv),
		xerial.WithWindow(browser.NewWindow(server.MessageURL(), bridge, browser.WithLogger(logger))),
		xerial.WithMessageSubscriber(bus.Subscriber),
		xerial.WithEventPublisher(events.NewWatermillPublisher(bus.Publisher)),
		xerial.WithLogger(logger),
		xerial.WithScreen(config.ScreenWidth, config.ScreenHeight),
	}

	if config.WalletRPCURL != "" {
		provider, err := wallet.Dial(ctx, config.WalletRPCURL)
		if err != nil {
			return nil, err
		}
		a.onClose(provider.Close)
		opts = append(opts, xerial.WithWalletProvider(provider))
	}

	a.sdk, err = xerial.New(config.Core(), opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newStore(config *conf.Configuration, redisClient *redis.Client) (ports.KeyValueStore, error) {
	switch config.Store {
	case conf.StoreMemory:
		return store.NewMemoryStore(), nil
	case conf.StoreRedis:
		return store.NewRedisStore(redisClient), nil
	}

	path := config.CredentialsPath
	if path == "" {
		var err error
		path, err = store.DefaultCredentialsPath()
		if err != nil {
			return nil, err
		}
	}
	return store.NewFileStore(path), nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
