package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/katro-game/katro/cmd/katro/shared"
	"github.com/katro-game/katro/internal/config"
	"github.com/katro-game/katro/internal/relay"
)

// ServerCmd runs the relay server.
type ServerCmd struct {
	Addr   string `kong:"default=':8080',help='Listen address'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Config string `kong:"default='katro.hcl',help='Path to the configuration file'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !c.Debug {
		logger = shared.SetupLoggerWithLevel(cfg.Server.LogLevel)
	}

	s := relay.NewServer(logger)
	logger.Info("starting katro relay", "addr", c.Addr)

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := s.Start(c.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down relay...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
