package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Arenas []ArenaConfig  `hcl:"arena,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address       string `hcl:"address,optional"`
	Port          int    `hcl:"port,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	LogFile       string `hcl:"log_file,optional"`
	DatabasePath  string `hcl:"database_path,optional"`
	BattleLogDir  string `hcl:"battle_log_dir,optional"`
	FlushInterval int    `hcl:"flush_interval_seconds,optional"`
}

// ArenaConfig defines one matchmaking arena: players queueing with the same
// arena name are matched together under its rules.
type ArenaConfig struct {
	Name      string `hcl:"name,label"`
	MaxRounds int    `hcl:"max_rounds,optional"`
	FeeBPS    int    `hcl:"fee_bps,optional"`
	Treasury  string `hcl:"treasury,optional"`
	MinStake  int    `hcl:"min_stake,optional"`
	MaxStake  int    `hcl:"max_stake,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:       "localhost",
			Port:          8080,
			LogLevel:      "info",
			LogFile:       "arenaclash-server.log",
			DatabasePath:  "arenaclash.db",
			BattleLogDir:  "battles",
			FlushInterval: 10,
		},
		Arenas: []ArenaConfig{
			{
				Name:      "main",
				MaxRounds: 10,
				FeeBPS:    250,
				Treasury:  "treasury",
				MinStake:  100,
				MaxStake:  1_000_000,
			},
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.LogFile == "" {
		config.Server.LogFile = "arenaclash-server.log"
	}
	if config.Server.DatabasePath == "" {
		config.Server.DatabasePath = "arenaclash.db"
	}
	if config.Server.BattleLogDir == "" {
		config.Server.BattleLogDir = "battles"
	}
	if config.Server.FlushInterval == 0 {
		config.Server.FlushInterval = 10
	}

	// Apply defaults to arenas
	for i := range config.Arenas {
		if config.Arenas[i].MaxRounds == 0 {
			config.Arenas[i].MaxRounds = 10
		}
		if config.Arenas[i].Treasury == "" {
			config.Arenas[i].Treasury = "treasury"
		}
		if config.Arenas[i].MaxStake == 0 {
			config.Arenas[i].MaxStake = 1_000_000
		}
	}
	if len(config.Arenas) == 0 {
		config.Arenas = DefaultServerConfig().Arenas
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if len(c.Arenas) == 0 {
		return fmt.Errorf("at least one arena must be configured")
	}

	for _, arena := range c.Arenas {
		if arena.MaxRounds < 1 {
			return fmt.Errorf("arena %s: max rounds must be positive", arena.Name)
		}
		if arena.FeeBPS < 0 || arena.FeeBPS > 10000 {
			return fmt.Errorf("arena %s: fee must be between 0 and 10000 basis points", arena.Name)
		}
		if arena.MinStake < 0 {
			return fmt.Errorf("arena %s: minimum stake cannot be negative", arena.Name)
		}
		if arena.MinStake >= arena.MaxStake {
			return fmt.Errorf("arena %s: minimum stake must be less than maximum", arena.Name)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GetArenaByName returns an arena configuration by name
func (c *ServerConfig) GetArenaByName(name string) *ArenaConfig {
	for _, arena := range c.Arenas {
		if arena.Name == name {
			return &arena
		}
	}
	return nil
}
