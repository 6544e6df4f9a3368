package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"hubdecomunidades/config"
	"hubdecomunidades/db"
	"hubdecomunidades/feeds"
	"hubdecomunidades/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the calendar feed",
		Description: `Starts the HTTP server that serves the iCalendar feed on
		/calendar.ics and the read-only JSON API on /events and /sources.

		Runs pending database migrations before accepting requests.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "events.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"HUB_DATABASE"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"HUB_PORT"},
			},
			&cli.StringFlag{
				Name:    "hostname",
				Usage:   "Public hostname of the service",
				EnvVars: []string{"HUB_HOSTNAME"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file with calendar settings",
				EnvVars: []string{"HUB_CONFIG"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg := config.DefaultConfig()
			if path := ctx.String("config"); path != "" {
				loaded, err := config.LoadConfig(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}
			if ctx.IsSet("hostname") {
				cfg.Server.Hostname = ctx.String("hostname")
			}

			database := ctx.String("database")
			if err := db.Migrate(database); err != nil {
				return fmt.Errorf("migration error: %w", err)
			}

			reader, err := db.NewReader(database)
			if err != nil {
				return err
			}
			defer reader.Close()

			builder := feeds.NewBuilder(reader, feeds.CalendarOptions{
				Name:            cfg.Calendar.Name,
				Domain:          cfg.Calendar.Domain,
				ProdId:          cfg.Calendar.ProdId,
				Timezone:        cfg.Calendar.Timezone,
				DefaultDuration: time.Duration(cfg.Calendar.DefaultDurationHours) * time.Hour,
			})

			app := server.Server(&server.ServerConfig{
				Hostname: cfg.Server.Hostname,
				Store:    reader,
				Builder:  builder,
			})

			// Graceful shutdown
			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)

			go func() {
				<-interrupt
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Error("Error shutting down server", err)
				}
			}()

			log.WithFields(log.Fields{
				"port":     cfg.Server.Port,
				"database": database,
			}).Info("Starting server")

			return app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
		},
	}
}
