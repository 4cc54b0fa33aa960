package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/arenaclash/arenaclash/cmd/arenaclash/shared"
	"github.com/arenaclash/arenaclash/internal/battlelog"
	"github.com/arenaclash/arenaclash/internal/server"
	"github.com/arenaclash/arenaclash/internal/store"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config string `kong:"default='arenaclash.hcl',help='Path to HCL config file'"`
	Addr   string `kong:"help='Server address, overrides config'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ServerCmd) Run() error {
	// Configure logging
	logger := shared.SetupLogger(c.Debug)

	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	st, err := store.Open(cfg.Server.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	logs, err := battlelog.NewManager(cfg.Server.BattleLogDir,
		time.Duration(cfg.Server.FlushInterval)*time.Second, nil, logger)
	if err != nil {
		return err
	}
	defer logs.Shutdown()

	sessions := server.NewSessionManager(st, logs, nil, logger)
	coordinator := server.NewCoordinator(sessions, st, cfg.Arenas, logger)

	s := server.NewServer(addr, logger)
	s.SetCoordinator(coordinator)
	coordinator.SetServer(s)

	// Resume battles that were in flight when the last process stopped.
	resumed, err := sessions.Resume(context.Background())
	if err != nil {
		return err
	}
	if resumed > 0 {
		logger.Info("Resumed active sessions", "count", resumed)
	}

	logger.Info("Starting ArenaClash server",
		"address", addr,
		"arenas", len(cfg.Arenas),
		"database", cfg.Server.DatabasePath,
		"battle_logs", cfg.Server.BattleLogDir)

	// Setup graceful shutdown
	ctx := shared.SetupSignalHandlerWithLogger(logger)

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown or error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		return s.Stop()
	case err := <-serverErr:
		return err
	}
}
