package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/katro-game/katro/cmd/katro/shared"
	"github.com/katro-game/katro/internal/client"
	"github.com/katro-game/katro/internal/config"
	"github.com/katro-game/katro/internal/display"
	"github.com/katro-game/katro/internal/protocol"
	"github.com/katro-game/katro/internal/session"
)

// HostCmd creates an online room and plays seat A once an opponent
// joins.
type HostCmd struct {
	Server string `kong:"help='Relay server URL, overrides the config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Config string `kong:"default='katro.hcl',help='Path to the configuration file'"`
}

func (c *HostCmd) Run() error {
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
	game := client.NewGame(wc, ui.ctrl, protocol.SeatA, logger)

	created := make(chan protocol.RoomCreatedData, 1)
	started := make(chan protocol.StartData, 1)
	wc.On(protocol.TypeRoomCreated, decodeTo(created, logger))
	wc.On(protocol.TypeStart, decodeTo(started, logger))

	if err := wc.Connect(); err != nil {
		return err
	}
	defer func() { _ = wc.Disconnect() }()

	if err := wc.CreateRoom(cfg.Player.Name); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case data := <-created:
		fmt.Println(display.TitleStyle.Render("Katro"))
		fmt.Println(display.PromptStyle.Render(fmt.Sprintf("room code: %s — share it with your opponent", data.Code)))
	case <-wc.Done():
		return fmt.Errorf("connection to relay lost")
	}

	select {
	case <-ctx.Done():
		return nil
	case data := <-started:
		ui.setNames(data.Names.A, data.Names.B)
		fmt.Println(display.InfoStyle.Render(fmt.Sprintf("%s joined", data.Names.B)))
		return ui.runOnline(ctx, wc, game, protocol.SeatA)
	case <-wc.Done():
		return fmt.Errorf("connection to relay lost")
	}
}

// serverURL leaves scheme handling to the client; a bare host:port from
// the config gets the ws scheme.
func serverURL(addr string) string {
	if addr == "" {
		return addr
	}
	for _, prefix := range []string{"ws://", "wss://", "http://", "https://"} {
		if len(addr) >= len(prefix) && addr[:len(prefix)] == prefix {
			return addr
		}
	}
	return "ws://" + addr
}

// decodeTo returns a handler that unmarshals the frame payload into T
// and delivers it on ch. Malformed frames are logged and dropped.
func decodeTo[T any](ch chan T, logger *log.Logger) client.Handler {
	return func(msg *protocol.Message) {
		var data T
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Warn("discarding malformed frame", "type", msg.Type, "error", err)
			return
		}
		select {
		case ch <- data:
		default:
		}
	}
}
