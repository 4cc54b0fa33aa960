package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arenaclash.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerConfigMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "does-not-exist.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	require.Len(t, cfg.Arenas, 1)
	assert.Equal(t, "main", cfg.Arenas[0].Name)
	assert.NoError(t, cfg.Validate())
}

func TestLoadServerConfigParsesArenas(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server {
  address       = "0.0.0.0"
  port          = 9090
  database_path = "prod.db"
}

arena "bronze" {
  max_rounds = 5
  fee_bps    = 100
  min_stake  = 10
  max_stake  = 1000
}

arena "gold" {
  fee_bps   = 500
  min_stake = 1000
  max_stake = 100000
  treasury  = "gold-treasury"
}
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddress())
	assert.Equal(t, "prod.db", cfg.Server.DatabasePath)
	require.Len(t, cfg.Arenas, 2)

	bronze := cfg.GetArenaByName("bronze")
	require.NotNil(t, bronze)
	assert.Equal(t, 5, bronze.MaxRounds)
	assert.Equal(t, 100, bronze.FeeBPS)
	assert.Equal(t, "treasury", bronze.Treasury, "treasury defaults when omitted")

	gold := cfg.GetArenaByName("gold")
	require.NotNil(t, gold)
	assert.Equal(t, 10, gold.MaxRounds, "max rounds defaults when omitted")
	assert.Equal(t, "gold-treasury", gold.Treasury)

	assert.Nil(t, cfg.GetArenaByName("platinum"))
}

func TestServerConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"bad port", func(c *ServerConfig) { c.Server.Port = 0 }},
		{"no arenas", func(c *ServerConfig) { c.Arenas = nil }},
		{"zero rounds", func(c *ServerConfig) { c.Arenas[0].MaxRounds = 0 }},
		{"fee above 100%", func(c *ServerConfig) { c.Arenas[0].FeeBPS = 10001 }},
		{"inverted stakes", func(c *ServerConfig) { c.Arenas[0].MinStake = 2_000_000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultServerConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
