package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the battle server"`
	Simulate SimulateCmd      `cmd:"" help:"Simulate battles locally and print a report"`
	Replay   ReplayCmd        `cmd:"" help:"Replay a battle log and verify determinism"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("arenaclash"),
		kong.Description("Deterministic two-player battle server with staked matchmaking"),
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
