package cmd

import (
	"fmt"
	"time"

	"hubdecomunidades/db"
	"hubdecomunidades/models"

	"github.com/urfave/cli/v2"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Insert development fixture data",
		Description: `Fills the database with a few communities, sources and
		approved events so the feed has something to serve locally.

		Intended for development databases only; rows are inserted as-is and
		running seed twice will fail on duplicate ids.`,
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
			if err := db.Migrate(database); err != nil {
				return err
			}

			writer, err := db.NewWriter(database)
			if err != nil {
				return err
			}
			defer writer.Close()

			if err := writer.CreateCommunity("golang-mx", "Golang México"); err != nil {
				return err
			}
			if err := writer.CreateCommunity("pydata-cdmx", "PyData CDMX"); err != nil {
				return err
			}

			if _, err := writer.CreateSource(models.EventSource{Id: "meetup", Name: "Meetup"}); err != nil {
				return err
			}
			if _, err := writer.CreateSource(models.EventSource{Id: "luma", Name: "Luma"}); err != nil {
				return err
			}

			today := time.Now().Format("2006-01-02")
			nextWeek := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

			events := []models.Event{
				{
					Title:          "Go Meetup CDMX",
					Description:    "Charlas y networking de Go",
					EventDate:      today,
					EventTime:      "19:00:00",
					Location:       "Roma Norte, CDMX",
					EventType:      models.EventTypePresencial,
					Category:       "meetup",
					OrganizerId:    "golang-mx",
					SourceId:       "meetup",
					ApprovalStatus: models.ApprovalStatusApproved,
				},
				{
					Title:          "Taller de análisis de datos",
					EventDate:      nextWeek,
					EventTime:      "18:30:00",
					EventType:      models.EventTypeVirtual,
					Category:       "taller",
					OrganizerId:    "pydata-cdmx",
					ApprovalStatus: models.ApprovalStatusApproved,
				},
				{
					Title:          "Hackathon de fin de semana",
					EventDate:      nextWeek,
					EventType:      models.EventTypeHibrido,
					Category:       "hackathon",
					OrganizerId:    "golang-mx",
					SourceId:       "luma",
					ApprovalStatus: models.ApprovalStatusApproved,
				},
			}

			for _, event := range events {
				id, err := writer.CreateEvent(event)
				if err != nil {
					return err
				}
				fmt.Println("Created event", id)
			}

			return nil
		},
	}
}
