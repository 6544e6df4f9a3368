package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hubdecomunidades/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

type Reader struct {
	db *sql.DB
}

func NewReader(database string) (*Reader, error) {
	// Open in read-only mode with optimized settings
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?mode=ro&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", database))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// Allow multiple concurrent feed requests to read in parallel
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -32000; -- 32MB cache
		PRAGMA temp_store = MEMORY;
	`); err != nil {
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &Reader{db: db}, nil
}

func (reader *Reader) Close() error {
	return reader.db.Close()
}

// eventColumns lists the selected columns for event queries, with the
// organizer community and the ingestion source joined in by name.
var eventColumns = []string{
	"events.id",
	"events.title",
	"COALESCE(events.description, '')",
	"events.event_date",
	"COALESCE(events.event_time, '')",
	"COALESCE(events.location, '')",
	"events.event_type",
	"COALESCE(events.category, '')",
	"COALESCE(events.organizer_id, '')",
	"COALESCE(communities.name, '')",
	"COALESCE(events.source_id, '')",
	"COALESCE(event_sources.name, '')",
	"COALESCE(events.registration_url, '')",
	"events.approval_status",
	"events.created_at",
	"events.updated_at",
}

// GetUpcomingEvents returns approved events on or after filters.FromDate
// in ascending date order, narrowed by the optional organizer, category
// and source filters.
func (reader *Reader) GetUpcomingEvents(filters models.EventFilters) ([]models.Event, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(eventColumns...).From("events")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "communities", "events.organizer_id = communities.id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "event_sources", "events.source_id = event_sources.id")

	sb.Where(sb.Equal("events.approval_status", models.ApprovalStatusApproved))
	sb.Where(sb.GreaterEqualThan("events.event_date", filters.FromDate))

	if filters.OrganizerId != "" {
		sb.Where(sb.Equal("events.organizer_id", filters.OrganizerId))
	}
	if filters.Category != "" {
		sb.Where(sb.Equal("events.category", filters.Category))
	}
	if len(filters.SourceIds) > 0 {
		in := sb.In("events.source_id", sqlbuilder.Flatten(filters.SourceIds)...)
		if filters.IncludeInternal {
			sb.Where(sb.Or(in, sb.IsNull("events.source_id")))
		} else {
			sb.Where(in)
		}
	}

	sb.OrderBy("events.event_date").Asc()

	sql, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.Query(sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		var createdAt, updatedAt int64
		if err := rows.Scan(
			&event.Id,
			&event.Title,
			&event.Description,
			&event.EventDate,
			&event.EventTime,
			&event.Location,
			&event.EventType,
			&event.Category,
			&event.OrganizerId,
			&event.OrganizerName,
			&event.SourceId,
			&event.SourceName,
			&event.RegistrationUrl,
			&event.ApprovalStatus,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		event.CreatedAt = time.Unix(createdAt, 0).UTC()
		event.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return events, nil
}

// GetSourceNames resolves source ids to display names, preserving the
// order of the input list. Unknown ids are skipped.
func (reader *Reader) GetSourceNames(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "name").From("event_sources")
	sb.Where(sb.In("id", sqlbuilder.Flatten(ids)...))

	sql, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.Query(sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	names := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lo.FilterMap(ids, func(id string, _ int) (string, bool) {
		name, ok := names[id]
		return name, ok
	}), nil
}

// GetCalendarPreference loads a user's calendar source selection. A
// missing row is not an error; it returns nil.
func (reader *Reader) GetCalendarPreference(userId string) (*models.CalendarPreference, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("user_id", "include_all_sources", "COALESCE(selected_sources, '[]')")
	sb.From("user_calendar_preferences")
	sb.Where(sb.Equal("user_id", userId))

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var preference models.CalendarPreference
	var includeAll int
	var selected string
	err := reader.db.QueryRow(query, args...).Scan(&preference.UserId, &includeAll, &selected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	preference.IncludeAllSources = includeAll != 0
	if err := json.Unmarshal([]byte(selected), &preference.SelectedSources); err != nil {
		return nil, fmt.Errorf("invalid selected_sources for user %s: %w", userId, err)
	}

	return &preference, nil
}

// ListSources returns all registered event sources ordered by name.
func (reader *Reader) ListSources() ([]models.EventSource, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "name").From("event_sources")
	sb.OrderBy("name").Asc()

	sql, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.Query(sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var sources []models.EventSource
	for rows.Next() {
		var source models.EventSource
		if err := rows.Scan(&source.Id, &source.Name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sources, nil
}
