package conf

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/layer-3/xerial/core"
	"github.com/sirupsen/logrus"
)

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"

	BusInProcess = "gochannel"
	BusRedis     = "redis"
)

// Configuration holds everything the CLI needs, read from XERIAL_* variables
type Configuration struct {
	ProjectID  string `split_words:"true" required:"true"`
	Chain      string `default:"polygon"`
	Production bool

	// Store selects where credentials live: file, redis or memory
	Store           string `default:"file"`
	CredentialsPath string `split_words:"true"`
	RedisURL        string `envconfig:"REDIS_URL"`

	// WalletRPCURL is the JSON-RPC endpoint of an external wallet; empty
	// means non-custodial users cannot send transactions
	WalletRPCURL string `envconfig:"WALLET_RPC_URL"`

	CallbackAddr   string   `split_words:"true" default:"127.0.0.1:0"`
	AllowedOrigins []string `split_words:"true"`
	Bus            string   `default:"gochannel"`

	LogLevel     string `split_words:"true" default:"info"`
	ScreenWidth  int    `split_words:"true" default:"1280"`
	ScreenHeight int    `split_words:"true" default:"800"`
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Overload(filename)
	} else {
		err = godotenv.Load()
		// a missing .env file is fine
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

// LoadConfig loads the .env file (if any) and the environment
func LoadConfig(filename string) (*Configuration, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, err
	}

	config := new(Configuration)
	if err := envconfig.Process("xerial", config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the values envconfig cannot
func (c *Configuration) Validate() error {
	if err := c.Core().Validate(); err != nil {
		return err
	}

	switch c.Store {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("XERIAL_REDIS_URL is required when XERIAL_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	switch c.Bus {
	case BusInProcess:
	case BusRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("XERIAL_REDIS_URL is required when XERIAL_BUS=redis")
		}
	default:
		return fmt.Errorf("unknown bus %q", c.Bus)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		return fmt.Errorf("screen size must be positive, got %dx%d", c.ScreenWidth, c.ScreenHeight)
	}
	return nil
}

// Core returns the SDK configuration
func (c *Configuration) Core() core.Config {
	return core.Config{
		ProjectID:  c.ProjectID,
		Chain:      core.Chain(strings.ToLower(c.Chain)),
		Production: c.Production,
	}
}

// Level is the parsed log level; Validate has already rejected bad values
func (c *Configuration) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Origins lists the origins allowed to post to the callback bridge. The
// login page origin is always included.
func (c *Configuration) Origins() []string {
	origins := append([]string(nil), c.AllowedOrigins...)

	if u, err := url.Parse(c.Core().Hosts().Auth); err == nil {
		origins = append(origins, u.Scheme+"://"+u.Host)
	}
	return origins
}
