package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hubdecomunidades/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

// Writer performs the few write operations the service needs: seeding,
// preference upserts and maintenance deletes. The feed itself never
// writes.
type Writer struct {
	db *sql.DB
}

func NewWriter(database string) (*Writer, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return &Writer{db: db}, nil
}

func (writer *Writer) Close() error {
	return writer.db.Close()
}

// CreateEvent inserts an event and returns its id. A missing id gets a
// generated UUID; missing timestamps default to now.
func (writer *Writer) CreateEvent(event models.Event) (string, error) {
	if event.Id == "" {
		event.Id = uuid.New().String()
	}
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = now
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("events")
	ib.Cols(
		"id", "title", "description", "event_date", "event_time",
		"location", "event_type", "category", "organizer_id",
		"source_id", "registration_url", "approval_status",
		"created_at", "updated_at",
	)
	ib.Values(
		event.Id,
		event.Title,
		nullable(event.Description),
		event.EventDate,
		nullable(event.EventTime),
		nullable(event.Location),
		event.EventType,
		nullable(event.Category),
		nullable(event.OrganizerId),
		nullable(event.SourceId),
		nullable(event.RegistrationUrl),
		event.ApprovalStatus,
		event.CreatedAt.Unix(),
		event.UpdatedAt.Unix(),
	)

	sql, args := ib.BuildWithFlavor(sqlbuilder.SQLite)
	if _, err := writer.db.Exec(sql, args...); err != nil {
		return "", fmt.Errorf("insert error: %w", err)
	}

	return event.Id, nil
}

// CreateCommunity registers an organizer community.
func (writer *Writer) CreateCommunity(id string, name string) error {
	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("communities").Cols("id", "name").Values(id, name)

	sql, args := ib.BuildWithFlavor(sqlbuilder.SQLite)
	if _, err := writer.db.Exec(sql, args...); err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

// CreateSource registers an event ingestion source and returns its id.
func (writer *Writer) CreateSource(source models.EventSource) (string, error) {
	if source.Id == "" {
		source.Id = uuid.New().String()
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("event_sources").Cols("id", "name").Values(source.Id, source.Name)

	sql, args := ib.BuildWithFlavor(sqlbuilder.SQLite)
	if _, err := writer.db.Exec(sql, args...); err != nil {
		return "", fmt.Errorf("insert error: %w", err)
	}

	return source.Id, nil
}

// SetCalendarPreference stores or replaces a user's source selection.
func (writer *Writer) SetCalendarPreference(preference models.CalendarPreference) error {
	selected, err := json.Marshal(preference.SelectedSources)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	includeAll := 0
	if preference.IncludeAllSources {
		includeAll = 1
	}

	_, err = writer.db.Exec(`
		INSERT INTO user_calendar_preferences (user_id, include_all_sources, selected_sources)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			include_all_sources = excluded.include_all_sources,
			selected_sources = excluded.selected_sources`,
		preference.UserId,
		includeAll,
		string(selected),
	)
	if err != nil {
		return fmt.Errorf("upsert error: %w", err)
	}
	return nil
}

// DeleteEvent removes one event by id.
func (writer *Writer) DeleteEvent(id string) error {
	del := sqlbuilder.NewDeleteBuilder()
	del.DeleteFrom("events").Where(del.Equal("id", id))

	sql, args := del.BuildWithFlavor(sqlbuilder.SQLite)
	if _, err := writer.db.Exec(sql, args...); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// nullable maps empty strings to NULL so optional columns stay NULL in
// the database instead of holding empty text.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
