// Command fediscus is an ActivityPub relay that collects the fediverse
// discussion of blog posts.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type Context struct {
	Debug  bool
	DSN    string
	Logger *slog.Logger
}

var cli struct {
	Debug  bool            `help:"Enable debug mode." env:"FEDISCUS_DEBUG"`
	DSN    string          `help:"data source name" default:"sqlite://fediscus.db" env:"FEDISCUS_DSN"`
	Config kong.ConfigFlag `help:"Load flags from a JSON file."`

	AutoMigrate        AutoMigrateCmd        `cmd:"" help:"Create or update the database schema."`
	CreateLocalAccount CreateLocalAccountCmd `cmd:"" help:"Create the relay's own account."`
	Serve              ServeCmd              `cmd:"" help:"Serve the relay."`
	Follow             FollowCmd             `cmd:"" help:"Follow a remote actor."`
	Unfollow           UnfollowCmd           `cmd:"" help:"Stop following a remote actor."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("fediscus"),
		kong.Description("Collects fediverse comments on blog posts."),
		kong.Configuration(kong.JSON, "/etc/fediscus.json", "~/.fediscus.json"),
		kong.UsageOnError(),
	)
	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	err := ctx.Run(&Context{
		Debug:  cli.Debug,
		DSN:    cli.DSN,
		Logger: logger,
	})
	ctx.FatalIfErrorf(err)
}
