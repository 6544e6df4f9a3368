package cmd

import (
	"fmt"

	"hubdecomunidades/db"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing events that are long past.

		Remove events whose date is more than a year in the past. The feed
		never serves past events, so this only keeps the database size down.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "events.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"HUB_DATABASE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			database := ctx.String("database")
			fmt.Println("Database configured: ", database)
			return db.Tidy(database)
		},
	}
}
