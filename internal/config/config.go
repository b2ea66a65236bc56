// Package config loads the katro configuration file. The file is HCL;
// a missing file yields the defaults.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete katro configuration.
type Config struct {
	Game   GameSettings
	Server ServerSettings
	Player PlayerSettings
}

// fileConfig is the decode target; every block is optional in the file.
type fileConfig struct {
	Game   *GameSettings   `hcl:"game,block"`
	Server *ServerSettings `hcl:"server,block"`
	Player *PlayerSettings `hcl:"player,block"`
}

// GameSettings selects the rule variant.
type GameSettings struct {
	SeedsPerPit   int    `hcl:"seeds_per_pit,optional"`
	DirectionMode string `hcl:"direction_mode,optional"`
}

// ServerSettings points the client at a relay, and sets the listen
// address when running one.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// PlayerSettings is the identity shown to the peer and the lobby.
type PlayerSettings struct {
	Name   string `hcl:"name,optional"`
	Avatar string `hcl:"avatar,optional"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Game: GameSettings{
			SeedsPerPit:   3,
			DirectionMode: "fixed",
		},
		Server: ServerSettings{
			Address:  "localhost:8080",
			LogLevel: "info",
		},
		Player: PlayerSettings{
			Name: "Player",
		},
	}
}

// Load reads the configuration from an HCL file. A missing file is not
// an error: the defaults are returned.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	if raw.Game != nil {
		cfg.Game = *raw.Game
	}
	if raw.Server != nil {
		cfg.Server = *raw.Server
	}
	if raw.Player != nil {
		cfg.Player = *raw.Player
	}

	// Apply defaults for values omitted inside a present block
	if cfg.Game.SeedsPerPit == 0 {
		cfg.Game.SeedsPerPit = 3
	}
	if cfg.Game.DirectionMode == "" {
		cfg.Game.DirectionMode = "fixed"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = "localhost:8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Player.Name == "" {
		cfg.Player.Name = "Player"
	}

	return cfg, nil
}

// Validate checks the configuration for values the rest of the program
// cannot work with.
func (c *Config) Validate() error {
	if c.Game.SeedsPerPit != 2 && c.Game.SeedsPerPit != 3 {
		return fmt.Errorf("seeds_per_pit must be 2 or 3, got %d", c.Game.SeedsPerPit)
	}
	if c.Game.DirectionMode != "fixed" && c.Game.DirectionMode != "free" {
		return fmt.Errorf("direction_mode must be \"fixed\" or \"free\", got %q", c.Game.DirectionMode)
	}
	if c.Server.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	return nil
}
