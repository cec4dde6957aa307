// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "corfex", cfg.Logger.ServiceName)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
	assert.Equal(t, 1080, cfg.Browser.WindowHeight)

	assert.Equal(t, DefaultLoginURL, cfg.Auth.URL)
	assert.Equal(t, 20*time.Second, cfg.Auth.WaitTimeout)
	assert.Equal(t, 15*time.Second, cfg.Auth.PostLoginSettle)

	assert.Equal(t, "div.panel-body", cfg.Extract.PanelSelector)
	assert.Equal(t, 30*time.Second, cfg.Extract.WaitTimeout)
	assert.Equal(t, 20*time.Second, cfg.Extract.InitialSettle)
	assert.Equal(t, time.Second, cfg.Extract.PanelSettle)
	assert.Equal(t, 5*time.Second, cfg.Extract.ExpandTimeout)
	assert.Equal(t, "formulario.json", cfg.Extract.Output)
	assert.False(t, cfg.Extract.AutoClose)
}

func TestOverridesBeatDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("auth.wait_timeout", "45s")
	v.Set("extract.output", "salida.json")

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, 45*time.Second, cfg.Auth.WaitTimeout)
	assert.Equal(t, "salida.json", cfg.Extract.Output)
}
