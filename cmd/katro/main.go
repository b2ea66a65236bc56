package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the relay server"`
	Play     PlayCmd          `cmd:"" help:"Play a local match on this terminal"`
	Host     HostCmd          `cmd:"" help:"Create an online room and wait for an opponent"`
	Join     JoinCmd          `cmd:"" help:"Join an online room by code"`
	Lobby    LobbyCmd         `cmd:"" help:"Enter the lobby and play by invitation"`
	Simulate SimulateCmd      `cmd:"" help:"Play random self-play games and report outcomes"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("katro"),
		kong.Description("Katro, the Malagasy mancala game, over a WebSocket relay"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
