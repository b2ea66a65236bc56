package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/katro-game/katro/cmd/katro/shared"
	"github.com/katro-game/katro/internal/config"
	"github.com/katro-game/katro/internal/display"
	"github.com/katro-game/katro/internal/session"
)

// PlayCmd plays an offline match: two players at one terminal, or one
// player against the machine.
type PlayCmd struct {
	VsAI   bool   `kong:"name='vs-ai',help='Play against the machine'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed for the machine opponent'"`
	Seeds  int    `kong:"help='Seeds per pit (2 or 3), overrides the config file'"`
	Mode   string `kong:"help='Direction mode (fixed or free), overrides the config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Config string `kong:"default='katro.hcl',help='Path to the configuration file'"`
}

func (c *PlayCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Seeds != 0 {
		cfg.Game.SeedsPerPit = c.Seeds
	}
	if c.Mode != "" {
		cfg.Game.DirectionMode = c.Mode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, err := session.ParseDirectionMode(cfg.Game.DirectionMode)
	if err != nil {
		return err
	}

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	fmt.Println(display.TitleStyle.Render("Katro"))

	ui := newGameUI(cfg.Game.SeedsPerPit, mode, logger)
	if c.VsAI {
		ui.setNames(cfg.Player.Name, "Computer")
	}
	return ui.runLocal(c.VsAI, rng)
}
