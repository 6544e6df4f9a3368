package feeds

import (
	"fmt"
	"strings"
	"time"

	"hubdecomunidades/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// EventStore is the read-only slice of the database the feed needs.
// Implemented by db.Reader.
type EventStore interface {
	GetUpcomingEvents(filters models.EventFilters) ([]models.Event, error)
	GetSourceNames(ids []string) ([]string, error)
	GetCalendarPreference(userId string) (*models.CalendarPreference, error)
}

// FeedParams are the per-request filters, all optional.
type FeedParams struct {
	// Restrict to one organizer community id.
	Community string

	// Restrict to one category value.
	Category string

	// Explicit source id list. Takes precedence over the user's stored
	// preferences.
	Sources []string

	// User whose calendar preferences supply a source list when Sources
	// is empty.
	User string

	// Whether sourceless (internally authored) events are included when
	// a source list is in effect. Defaults to true at the HTTP layer.
	IncludeInternal bool
}

// CalendarOptions carry the feed-wide settings from the configuration.
type CalendarOptions struct {
	Name            string
	Domain          string
	ProdId          string
	Timezone        string
	DefaultDuration time.Duration
}

// Names a source list may grow to before the calendar name falls back to
// the configured default.
const maxNamedSources = 4

const fallbackOrganizer = "Hub de Comunidades"

// Builder produces iCalendar documents for feed requests. It holds no
// mutable state; concurrent Build calls are independent.
type Builder struct {
	store   EventStore
	options CalendarOptions

	// Overridable for deterministic tests.
	now func() time.Time
}

func NewBuilder(store EventStore, options CalendarOptions) *Builder {
	return &Builder{
		store:   store,
		options: options,
		now:     time.Now,
	}
}

// WithClock replaces the builder's clock. Used by tests to pin "today".
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// UpcomingEvents resolves the effective source list and queries the
// approved events on or after today in the reference timezone. It also
// returns the resolved source ids for calendar naming.
func (b *Builder) UpcomingEvents(params FeedParams) ([]models.Event, []string, error) {
	sourceIds, err := b.resolveSources(params)
	if err != nil {
		return nil, nil, err
	}

	loc, err := time.LoadLocation(b.options.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("timezone error: %w", err)
	}
	today := b.now().In(loc).Format(storedDateLayout)

	events, err := b.store.GetUpcomingEvents(models.EventFilters{
		FromDate:        today,
		OrganizerId:     params.Community,
		Category:        params.Category,
		SourceIds:       sourceIds,
		IncludeInternal: params.IncludeInternal,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("query error: %w", err)
	}

	return events, sourceIds, nil
}

// Build runs the whole feed pipeline: resolve the effective source list,
// query upcoming approved events, derive the calendar name and serialize
// the document. Any failure aborts the request before a single byte is
// produced.
func (b *Builder) Build(params FeedParams) ([]byte, error) {
	events, sourceIds, err := b.UpcomingEvents(params)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(b.options.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone error: %w", err)
	}
	now := b.now().In(loc)

	name, err := b.calendarName(sourceIds)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"sources":  sourceIds,
		"events":   len(events),
		"calendar": name,
	}).Info("Building calendar feed")

	lines := b.headerLines(name, now)
	for _, event := range events {
		eventLines, err := b.eventLines(event)
		if err != nil {
			return nil, err
		}
		lines = append(lines, eventLines...)
	}
	lines = append(lines, "END:VCALENDAR")

	return []byte(joinLines(lines)), nil
}

// resolveSources returns the effective source id list: the explicit
// sources parameter verbatim, else the user's stored selection when the
// user has one that does not ask for all sources, else nothing.
func (b *Builder) resolveSources(params FeedParams) ([]string, error) {
	if len(params.Sources) > 0 {
		return params.Sources, nil
	}
	if params.User == "" {
		return nil, nil
	}

	preference, err := b.store.GetCalendarPreference(params.User)
	if err != nil {
		return nil, fmt.Errorf("preference error: %w", err)
	}
	if preference == nil || preference.IncludeAllSources {
		return nil, nil
	}
	return preference.SelectedSources, nil
}

// calendarName resolves the display names of up to maxNamedSources
// filtered sources into the calendar name; anything else keeps the
// configured default.
func (b *Builder) calendarName(sourceIds []string) (string, error) {
	if len(sourceIds) == 0 || len(sourceIds) > maxNamedSources {
		return b.options.Name, nil
	}

	names, err := b.store.GetSourceNames(sourceIds)
	if err != nil {
		return "", fmt.Errorf("source lookup error: %w", err)
	}
	names = lo.Filter(names, func(name string, _ int) bool {
		return name != ""
	})
	if len(names) == 0 {
		return b.options.Name, nil
	}
	return strings.Join(names, " + "), nil
}

func (b *Builder) headerLines(name string, now time.Time) []string {
	zoneName, zoneOffset := now.Zone()
	offset := icsUTCOffset(zoneOffset)

	return []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + b.options.ProdId,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:" + escapeText(name),
		"X-WR-TIMEZONE:" + b.options.Timezone,
		// The reference timezone does not observe daylight saving, so a
		// single STANDARD block with a fixed offset describes it fully.
		"BEGIN:VTIMEZONE",
		"TZID:" + b.options.Timezone,
		"BEGIN:STANDARD",
		"DTSTART:19700101T000000",
		"TZOFFSETFROM:" + offset,
		"TZOFFSETTO:" + offset,
		"TZNAME:" + zoneName,
		"END:STANDARD",
		"END:VTIMEZONE",
	}
}

// eventLines renders one VEVENT block. Optional properties contribute an
// empty string, which joinLines drops.
func (b *Builder) eventLines(event models.Event) ([]string, error) {
	start, end, err := b.eventSpan(event)
	if err != nil {
		return nil, err
	}

	summary := event.Title
	if event.SourceName != "" {
		summary = fmt.Sprintf("%s [%s]", event.Title, event.SourceName)
	}

	location := event.Location
	if strings.TrimSpace(location) == "" && event.EventType == models.EventTypeVirtual {
		location = "Evento Virtual"
	}

	organizer := event.OrganizerName
	if organizer == "" {
		organizer = fallbackOrganizer
	}

	url := ""
	if event.RegistrationUrl != "" {
		url = "URL:" + event.RegistrationUrl
	}

	return []string{
		"BEGIN:VEVENT",
		"UID:" + event.Id + "@" + b.options.Domain,
		"DTSTAMP:" + icsUTCStamp(event.CreatedAt),
		start,
		end,
		"CREATED:" + icsUTCStamp(event.CreatedAt),
		"LAST-MODIFIED:" + icsUTCStamp(event.UpdatedAt),
		"SUMMARY:" + escapeText(summary),
		"DESCRIPTION:" + escapeText(event.Description),
		"LOCATION:" + escapeText(location),
		"ORGANIZER;CN=" + escapeText(organizer) + ":mailto:eventos@" + b.options.Domain,
		url,
		"STATUS:CONFIRMED",
		"END:VEVENT",
	}, nil
}

// eventSpan derives the DTSTART and DTEND lines. Timed events run for
// the configured default duration, rolling over midnight when needed;
// all-day events span exactly one day.
func (b *Builder) eventSpan(event models.Event) (string, string, error) {
	if event.AllDay() {
		startDate, err := icsDate(event.EventDate, 0)
		if err != nil {
			return "", "", err
		}
		endDate, err := icsDate(event.EventDate, 1)
		if err != nil {
			return "", "", err
		}
		return "DTSTART;VALUE=DATE:" + startDate, "DTEND;VALUE=DATE:" + endDate, nil
	}

	start, err := localDateTime(event.EventDate, event.EventTime)
	if err != nil {
		return "", "", err
	}
	end := start.Add(b.options.DefaultDuration)

	tzid := ";TZID=" + b.options.Timezone + ":"
	return "DTSTART" + tzid + icsLocalStamp(start), "DTEND" + tzid + icsLocalStamp(end), nil
}
