package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "hubdecomunidades",
		Usage: "Calendar feed service for the Hub de Comunidades platform",
		Description: `Serves the approved community events as an iCalendar
		feed that calendar clients can subscribe to, plus a small read-only
		JSON API over the same data.

		Events, organizer communities, ingestion sources and per-user
		calendar preferences live in an SQLite database managed with the
		migrate command.

		Flags can generally be set via environment variables, e.g.:

		--database => HUB_DATABASE=events.db
		--port => HUB_PORT=3000
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			seedCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
