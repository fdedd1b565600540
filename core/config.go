package core

import (
	"fmt"
	"net/url"
)

// Chain identifies the network the SDK operates on
type Chain string

const (
	ChainPolygon Chain = "polygon"
	ChainTelos   Chain = "telos"
)

const (
	productionAuthHost = "https://wallet.xerial.io/auth"
	productionAPIHost  = "https://wallet.xerial.io/api"
	stagingAuthHost    = "https://wallet.staging.xerial.io/auth"
	stagingAPIHost     = "https://wallet.staging.xerial.io/api"
)

// Config is fixed at construction
type Config struct {
	ProjectID  string
	Chain      Chain
	Production bool
}

// Hosts is the auth/api host pair selected by Config.Production
type Hosts struct {
	Auth string
	API  string
}

// Validate checks the config before any component is built
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return NewError(KindInvalidConfig, "project id is required", nil)
	}
	switch c.Chain {
	case ChainPolygon, ChainTelos:
	default:
		return NewError(KindInvalidConfig, fmt.Sprintf("unknown chain %q", c.Chain), nil)
	}
	return nil
}

// Hosts returns the production or staging host pair
func (c Config) Hosts() Hosts {
	if c.Production {
		return Hosts{Auth: productionAuthHost, API: productionAPIHost}
	}
	return Hosts{Auth: stagingAuthHost, API: stagingAPIHost}
}

// LoginURL is the page the popup navigates to
func (c Config) LoginURL() string {
	return c.Hosts().Auth + "?projectId=" + url.QueryEscape(c.ProjectID)
}
