package db

import (
	"database/sql"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// How far in the past an event date may lie before tidy removes the row.
const tidyRetention = 365 * 24 * time.Hour

// Tidy removes events whose date is more than a year in the past. The
// feed never serves them, so they only grow the database.
func Tidy(database string) error {
	db, err := connection(database)
	if err != nil {
		return err
	}
	defer db.Close()

	return tidy(db)
}

func tidy(db *sql.DB) error {
	cutoff := time.Now().Add(-tidyRetention).Format("2006-01-02")

	deleteEvents := sb.NewDeleteBuilder()
	sql, args := deleteEvents.DeleteFrom("events").
		Where(deleteEvents.LessThan("event_date", cutoff)).
		BuildWithFlavor(sb.SQLite)

	log.WithFields(log.Fields{
		"sql":  sql,
		"args": args,
	}).Info("Tidying database")

	result, err := db.Exec(sql, args...)
	if err != nil {
		return err
	}

	if removed, err := result.RowsAffected(); err == nil {
		log.WithFields(log.Fields{
			"removed": removed,
		}).Info("Removed past events")
	}

	return nil
}
