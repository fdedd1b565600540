package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Hosts(t *testing.T) {
	staging := Config{ProjectID: "p", Chain: ChainPolygon}
	assert.Equal(t, "https://wallet.staging.xerial.io/auth", staging.Hosts().Auth)
	assert.Equal(t, "https://wallet.staging.xerial.io/api", staging.Hosts().API)

	production := Config{ProjectID: "p", Chain: ChainPolygon, Production: true}
	assert.Equal(t, "https://wallet.xerial.io/auth", production.Hosts().Auth)
	assert.Equal(t, "https://wallet.xerial.io/api", production.Hosts().API)
}

func TestConfig_LoginURL(t *testing.T) {
	cfg := Config{ProjectID: "my project&x", Chain: ChainTelos}
	assert.Equal(t, "https://wallet.staging.xerial.io/auth?projectId=my+project%26x", cfg.LoginURL())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{ProjectID: "p", Chain: ChainTelos}.Validate())

	err := Config{Chain: ChainPolygon}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	err = Config{ProjectID: "p", Chain: "solana"}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestCenteredGeometry(t *testing.T) {
	g := CenteredGeometry(Screen{Width: 1280, Height: 800})
	assert.Equal(t, Geometry{Width: 480, Height: 565, Left: 400, Top: 117}, g)

	// a screen smaller than the popup pushes it off the top-left edge
	g = CenteredGeometry(Screen{Width: 400, Height: 500})
	assert.Equal(t, -40, g.Left)
	assert.Equal(t, -32, g.Top)
}
