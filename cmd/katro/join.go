package main

import (
	"fmt"
	"strings"

	"github.com/katro-game/katro/cmd/katro/shared"
	"github.com/katro-game/katro/internal/client"
	"github.com/katro-game/katro/internal/config"
	"github.com/katro-game/katro/internal/display"
	"github.com/katro-game/katro/internal/protocol"
	"github.com/katro-game/katro/internal/session"
)

// JoinCmd joins an online room by code and plays seat B.
type JoinCmd struct {
	Code   string `arg:"" help:"Room code from the host"`
	Server string `kong:"help='Relay server URL, overrides the config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Config string `kong:"default='katro.hcl',help='Path to the configuration file'"`
}

func (c *JoinCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Server != "" {
		cfg.Server.Address = c.Server
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, err := session.ParseDirectionMode(cfg.Game.DirectionMode)
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	ui := newGameUI(cfg.Game.SeedsPerPit, mode, logger)
	wc := client.New(serverURL(cfg.Server.Address), logger)
	game := client.NewGame(wc, ui.ctrl, protocol.SeatB, logger)

	joined := make(chan protocol.RoomJoinedData, 1)
	started := make(chan protocol.StartData, 1)
	failed := make(chan protocol.ErrorData, 1)
	wc.On(protocol.TypeRoomJoined, decodeTo(joined, logger))
	wc.On(protocol.TypeStart, decodeTo(started, logger))
	wc.On(protocol.TypeError, decodeTo(failed, logger))

	if err := wc.Connect(); err != nil {
		return err
	}
	defer func() { _ = wc.Disconnect() }()

	if err := wc.JoinRoom(strings.ToUpper(c.Code), cfg.Player.Name); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case data := <-failed:
		return fmt.Errorf("could not join room %s: %s", strings.ToUpper(c.Code), data.Reason)
	case <-joined:
		fmt.Println(display.TitleStyle.Render("Katro"))
	case <-wc.Done():
		return fmt.Errorf("connection to relay lost")
	}

	select {
	case <-ctx.Done():
		return nil
	case data := <-started:
		ui.setNames(data.Names.A, data.Names.B)
		return ui.runOnline(ctx, wc, game, protocol.SeatB)
	case <-wc.Done():
		return fmt.Errorf("connection to relay lost")
	}
}
