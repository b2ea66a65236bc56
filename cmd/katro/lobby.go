package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/katro-game/katro/cmd/katro/shared"
	"github.com/katro-game/katro/internal/client"
	"github.com/katro-game/katro/internal/config"
	"github.com/katro-game/katro/internal/display"
	"github.com/katro-game/katro/internal/protocol"
	"github.com/katro-game/katro/internal/session"
)

// LobbyCmd enters the presence lobby: see who is online, invite
// someone, or accept an invitation, then play the match that results.
type LobbyCmd struct {
	Server string `kong:"help='Relay server URL, overrides the config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Config string `kong:"default='katro.hcl',help='Path to the configuration file'"`
}

// roster is the lobby user list as last told by the server.
type roster struct {
	mu    sync.Mutex
	users []protocol.LobbyUser
}

func (r *roster) replace(users []protocol.LobbyUser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = users
}

func (r *roster) apply(delta protocol.PresenceDeltaData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, removed := range delta.Removed {
		for i, u := range r.users {
			if u.ID == removed.ID {
				r.users = append(r.users[:i], r.users[i+1:]...)
				break
			}
		}
	}
	for _, updated := range delta.Updated {
		for i, u := range r.users {
			if u.ID == updated.ID {
				r.users[i] = updated
				break
			}
		}
	}
	r.users = append(r.users, delta.Added...)
}

func (r *roster) snapshot() []protocol.LobbyUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.LobbyUser, len(r.users))
	copy(out, r.users)
	return out
}

func (c *LobbyCmd) Run() error {
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

	wc := client.New(serverURL(cfg.Server.Address), logger)

	var (
		users      roster
		inviteMu   sync.Mutex
		lastInvite string
	)
	matchCh := make(chan protocol.MatchStartData, 1)
	declinedCh := make(chan protocol.InviteDeclinedData, 1)

	lobby := client.NewLobby(wc, client.LobbyEvents{
		Snapshot: func(data protocol.PresenceSnapshotData) {
			users.replace(data.Users)
		},
		Delta: func(data protocol.PresenceDeltaData) {
			users.apply(data)
			for _, u := range data.Added {
				fmt.Println(display.InfoStyle.Render(fmt.Sprintf("%s entered the lobby", u.Name)))
			}
			for _, u := range data.Removed {
				fmt.Println(display.InfoStyle.Render(fmt.Sprintf("%s left the lobby", u.Name)))
			}
		},
		Invited: func(data protocol.InviteIncomingData) {
			inviteMu.Lock()
			lastInvite = data.From
			inviteMu.Unlock()
			fmt.Println(display.PromptStyle.Render(fmt.Sprintf("%s invites you to play — yes / no?", data.FromName)))
		},
		Declined: func(data protocol.InviteDeclinedData) {
			select {
			case declinedCh <- data:
			default:
			}
		},
		MatchStart: func(data protocol.MatchStartData) {
			select {
			case matchCh <- data:
			default:
			}
		},
	}, logger)

	if err := wc.Connect(); err != nil {
		return err
	}
	defer func() { _ = wc.Disconnect() }()

	if err := lobby.Hello(cfg.Player.Name, cfg.Player.Avatar); err != nil {
		return err
	}

	fmt.Println(display.TitleStyle.Render("Katro lobby"))
	fmt.Println(display.InfoStyle.Render("commands: list, invite <n>, yes, no, quit"))

	in := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return lobby.Goodbye()
		case data := <-matchCh:
			return c.playMatch(ctx, wc, cfg, mode, data, logger)
		case <-wc.Done():
			return fmt.Errorf("connection to relay lost")
		default:
		}

		fmt.Print(display.PromptStyle.Render("> "))
		if !in.Scan() {
			return lobby.Goodbye()
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "q", "exit":
			return lobby.Goodbye()

		case "list", "ls":
			listed := users.snapshot()
			if len(listed) == 0 {
				fmt.Println(display.InfoStyle.Render("nobody else is here"))
			}
			for i, u := range listed {
				fmt.Printf("  %d. %s (%s)\n", i+1, u.Name, u.Status)
			}

		case "invite":
			if len(fields) != 2 {
				fmt.Println(display.ErrorStyle.Render("usage: invite <n> (a number from list)"))
				continue
			}
			n, err := strconv.Atoi(fields[1])
			listed := users.snapshot()
			if err != nil || n < 1 || n > len(listed) {
				fmt.Println(display.ErrorStyle.Render("no such lobby user, try list first"))
				continue
			}
			target := listed[n-1]
			if err := lobby.Invite(target.ID); err != nil {
				return err
			}
			fmt.Println(display.InfoStyle.Render(fmt.Sprintf("waiting for %s to answer...", target.Name)))
			select {
			case <-ctx.Done():
				return lobby.Goodbye()
			case data := <-matchCh:
				return c.playMatch(ctx, wc, cfg, mode, data, logger)
			case data := <-declinedCh:
				fmt.Println(display.ErrorStyle.Render(fmt.Sprintf("%s declined", data.ByName)))
			case <-wc.Done():
				return fmt.Errorf("connection to relay lost")
			}

		case "yes", "y", "no", "n":
			inviteMu.Lock()
			from := lastInvite
			lastInvite = ""
			inviteMu.Unlock()
			if from == "" {
				fmt.Println(display.ErrorStyle.Render("no invitation pending"))
				continue
			}
			accepted := fields[0] == "yes" || fields[0] == "y"
			if err := lobby.Reply(from, accepted); err != nil {
				return err
			}
			if accepted {
				select {
				case <-ctx.Done():
					return lobby.Goodbye()
				case data := <-matchCh:
					return c.playMatch(ctx, wc, cfg, mode, data, logger)
				case <-wc.Done():
					return fmt.Errorf("connection to relay lost")
				}
			}

		default:
			fmt.Println(display.InfoStyle.Render("commands: list, invite <n>, yes, no, quit"))
		}
	}
}

// playMatch runs the match created from an invitation, on whichever
// seat the relay assigned.
func (c *LobbyCmd) playMatch(ctx context.Context, wc *client.Client, cfg *config.Config, mode session.DirectionMode, data protocol.MatchStartData, logger *log.Logger) error {
	if !data.Seat.Valid() {
		return fmt.Errorf("relay assigned unknown seat %q", data.Seat)
	}

	ui := newGameUI(cfg.Game.SeedsPerPit, mode, logger)
	ui.setNames(data.Names.A, data.Names.B)
	game := client.NewGame(wc, ui.ctrl, data.Seat, logger)

	me := ui.names[data.Seat.Player()]
	them := ui.names[data.Seat.Other().Player()]
	fmt.Println(display.InfoStyle.Render(fmt.Sprintf("match started, you play as %s against %s", me, them)))
	return ui.runOnline(ctx, wc, game, data.Seat)
}
