package feeds_test

import (
	"strings"
	"testing"
	"time"

	"hubdecomunidades/feeds"
	"hubdecomunidades/models"

	"github.com/stretchr/testify/assert"
)

// fakeStore implements feeds.EventStore in memory and records the
// filters it was queried with.
type fakeStore struct {
	events      []models.Event
	sourceNames map[string]string
	preference  *models.CalendarPreference
	err         error

	lastFilters     models.EventFilters
	preferenceCalls []string
}

func (f *fakeStore) GetUpcomingEvents(filters models.EventFilters) ([]models.Event, error) {
	f.lastFilters = filters
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeStore) GetSourceNames(ids []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var names []string
	for _, id := range ids {
		if name, ok := f.sourceNames[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakeStore) GetCalendarPreference(userId string) (*models.CalendarPreference, error) {
	f.preferenceCalls = append(f.preferenceCalls, userId)
	if f.err != nil {
		return nil, f.err
	}
	return f.preference, nil
}

func testOptions() feeds.CalendarOptions {
	return feeds.CalendarOptions{
		Name:            "Hub de Comunidades - Eventos",
		Domain:          "hubdecomunidades.mx",
		ProdId:          "-//Hub de Comunidades//Eventos//ES",
		Timezone:        "America/Mexico_City",
		DefaultDuration: 2 * time.Hour,
	}
}

// Noon UTC so "today" is the same date on both sides of the Atlantic.
func fixedNow() time.Time {
	return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
}

func testBuilder(store *fakeStore) *feeds.Builder {
	return feeds.NewBuilder(store, testOptions()).WithClock(fixedNow)
}

func approvedEvent(id string, date string, timeOfDay string) models.Event {
	return models.Event{
		Id:             id,
		Title:          "Evento " + id,
		EventDate:      date,
		EventTime:      timeOfDay,
		EventType:      models.EventTypePresencial,
		ApprovalStatus: models.ApprovalStatusApproved,
		CreatedAt:      time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
	}
}

func build(t *testing.T, store *fakeStore, params feeds.FeedParams) string {
	t.Helper()
	document, err := testBuilder(store).Build(params)
	assert.NoError(t, err)
	return string(document)
}

func TestBuildEmptyResultKeepsEnvelope(t *testing.T) {
	doc := build(t, &fakeStore{}, feeds.FeedParams{IncludeInternal: true})

	assert.True(t, strings.HasPrefix(doc, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(doc, "\r\nEND:VCALENDAR"))
	assert.Contains(t, doc, "X-WR-CALNAME:Hub de Comunidades - Eventos")
	assert.Contains(t, doc, "X-WR-TIMEZONE:America/Mexico_City")
	assert.Contains(t, doc, "BEGIN:VTIMEZONE")
	assert.NotContains(t, doc, "BEGIN:VEVENT")
}

func TestBuildEmitsEventsOnceInOrder(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "2026-08-29", "10:00:00"),
		approvedEvent("evt-2", "2026-08-30", ""),
		approvedEvent("evt-3", "2026-09-02", "18:00:00"),
	}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})

	assert.Equal(t, 3, strings.Count(doc, "BEGIN:VEVENT"))
	assert.Equal(t, 3, strings.Count(doc, "END:VEVENT"))

	first := strings.Index(doc, "UID:evt-1@hubdecomunidades.mx")
	second := strings.Index(doc, "UID:evt-2@hubdecomunidades.mx")
	third := strings.Index(doc, "UID:evt-3@hubdecomunidades.mx")
	assert.True(t, first >= 0 && first < second && second < third)
}

func TestBuildIsIdempotent(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "2026-08-29", "10:00:00"),
	}}
	builder := testBuilder(store)

	one, err := builder.Build(feeds.FeedParams{IncludeInternal: true})
	assert.NoError(t, err)
	two, err := builder.Build(feeds.FeedParams{IncludeInternal: true})
	assert.NoError(t, err)

	assert.Equal(t, one, two)
}

func TestTodayComputedInReferenceTimezone(t *testing.T) {
	store := &fakeStore{}
	builder := feeds.NewBuilder(store, testOptions()).WithClock(func() time.Time {
		// 03:00 UTC is still the previous day in Mexico City (UTC-6)
		return time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
	})

	_, err := builder.Build(feeds.FeedParams{IncludeInternal: true})
	assert.NoError(t, err)
	assert.Equal(t, "2026-08-27", store.lastFilters.FromDate)
}

func TestAllDayEventSpansExactlyOneDay(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "2026-09-01", ""),
	}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})

	assert.Contains(t, doc, "DTSTART;VALUE=DATE:20260901")
	assert.Contains(t, doc, "DTEND;VALUE=DATE:20260902")
}

func TestTimedEventRollsOverMidnight(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "2026-09-01", "23:30:00"),
	}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})

	assert.Contains(t, doc, "DTSTART;TZID=America/Mexico_City:20260901T233000")
	assert.Contains(t, doc, "DTEND;TZID=America/Mexico_City:20260902T013000")
}

func TestTimedEventUsesConfiguredDuration(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "2026-09-01", "10:00:00"),
	}}
	options := testOptions()
	options.DefaultDuration = 45 * time.Minute
	builder := feeds.NewBuilder(store, options).WithClock(fixedNow)

	document, err := builder.Build(feeds.FeedParams{IncludeInternal: true})
	assert.NoError(t, err)

	assert.Contains(t, string(document), "DTEND;TZID=America/Mexico_City:20260901T104500")
}

func TestSummaryEscapingAndSourceSuffix(t *testing.T) {
	event := approvedEvent("evt-1", "2026-09-01", "10:00:00")
	event.Title = "Q&A; demos, C:\\dev\nfin"
	event.SourceName = "Meetup"
	store := &fakeStore{events: []models.Event{event}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})

	assert.Contains(t, doc, `SUMMARY:Q&A\; demos\, C:\\dev\nfin [Meetup]`)
}

func TestSummaryWithoutSourceHasNoSuffix(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "2026-09-01", "10:00:00"),
	}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})

	assert.Contains(t, doc, "SUMMARY:Evento evt-1\r\n")
	assert.NotContains(t, doc, "[")
}

func TestTimestampsAreCompactUTCWithoutZ(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "2026-09-01", "10:00:00"),
	}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})

	assert.Contains(t, doc, "DTSTAMP:20260801T100000\r\n")
	assert.Contains(t, doc, "CREATED:20260801T100000\r\n")
	assert.Contains(t, doc, "LAST-MODIFIED:20260815T093000\r\n")
	assert.NotContains(t, doc, "DTSTAMP:20260801T100000Z")
}

func TestVirtualEventLocationFallback(t *testing.T) {
	event := approvedEvent("evt-1", "2026-09-01", "10:00:00")
	event.EventType = models.EventTypeVirtual
	event.Location = "  "
	store := &fakeStore{events: []models.Event{event}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})

	assert.Contains(t, doc, "LOCATION:Evento Virtual")
}

func TestOrganizerFallback(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "2026-09-01", "10:00:00"),
	}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})

	assert.Contains(t, doc, "ORGANIZER;CN=Hub de Comunidades:mailto:eventos@hubdecomunidades.mx")
}

func TestRegistrationUrlIsOptional(t *testing.T) {
	withUrl := approvedEvent("evt-1", "2026-09-01", "10:00:00")
	withUrl.RegistrationUrl = "https://example.com/registro"
	store := &fakeStore{events: []models.Event{withUrl}}

	doc := build(t, store, feeds.FeedParams{IncludeInternal: true})
	assert.Contains(t, doc, "URL:https://example.com/registro\r\n")

	store = &fakeStore{events: []models.Event{
		approvedEvent("evt-2", "2026-09-01", "10:00:00"),
	}}
	doc = build(t, store, feeds.FeedParams{IncludeInternal: true})
	assert.NotContains(t, doc, "\r\nURL:")
}

func TestExplicitSourcesTakePrecedenceOverPreferences(t *testing.T) {
	store := &fakeStore{
		preference: &models.CalendarPreference{
			UserId:          "user-1",
			SelectedSources: []string{"other"},
		},
	}

	build(t, store, feeds.FeedParams{
		Sources:         []string{"a", "b"},
		User:            "user-1",
		IncludeInternal: true,
	})

	assert.Equal(t, []string{"a", "b"}, store.lastFilters.SourceIds)
	assert.Empty(t, store.preferenceCalls)
}

func TestUserPreferenceSuppliesSources(t *testing.T) {
	store := &fakeStore{
		preference: &models.CalendarPreference{
			UserId:          "user-1",
			SelectedSources: []string{"a"},
		},
	}

	build(t, store, feeds.FeedParams{User: "user-1", IncludeInternal: true})

	assert.Equal(t, []string{"user-1"}, store.preferenceCalls)
	assert.Equal(t, []string{"a"}, store.lastFilters.SourceIds)
}

func TestIncludeAllSourcesPreferenceMeansNoRestriction(t *testing.T) {
	store := &fakeStore{
		preference: &models.CalendarPreference{
			UserId:            "user-1",
			IncludeAllSources: true,
			SelectedSources:   []string{"a"},
		},
	}

	build(t, store, feeds.FeedParams{User: "user-1", IncludeInternal: true})

	assert.Empty(t, store.lastFilters.SourceIds)
}

func TestMissingPreferenceIsNotAnError(t *testing.T) {
	store := &fakeStore{}

	doc := build(t, store, feeds.FeedParams{User: "nobody", IncludeInternal: true})

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Empty(t, store.lastFilters.SourceIds)
}

func TestInternalFlagReachesQuery(t *testing.T) {
	store := &fakeStore{}

	build(t, store, feeds.FeedParams{Sources: []string{"a"}, IncludeInternal: false})

	assert.False(t, store.lastFilters.IncludeInternal)
}

func TestCalendarNameFromFewSources(t *testing.T) {
	store := &fakeStore{sourceNames: map[string]string{
		"a": "Meetup",
		"b": "Luma",
	}}

	doc := build(t, store, feeds.FeedParams{Sources: []string{"a", "b"}, IncludeInternal: true})

	assert.Contains(t, doc, "X-WR-CALNAME:Meetup + Luma")
}

func TestCalendarNameDefaultsForManySources(t *testing.T) {
	store := &fakeStore{sourceNames: map[string]string{
		"a": "A", "b": "B", "c": "C", "d": "D", "e": "E",
	}}

	doc := build(t, store, feeds.FeedParams{
		Sources:         []string{"a", "b", "c", "d", "e"},
		IncludeInternal: true,
	})

	assert.Contains(t, doc, "X-WR-CALNAME:Hub de Comunidades - Eventos")
}

func TestCalendarNameDefaultsForUnknownSources(t *testing.T) {
	store := &fakeStore{sourceNames: map[string]string{}}

	doc := build(t, store, feeds.FeedParams{Sources: []string{"ghost"}, IncludeInternal: true})

	assert.Contains(t, doc, "X-WR-CALNAME:Hub de Comunidades - Eventos")
}

func TestVTimezoneDeclaresFixedOffset(t *testing.T) {
	doc := build(t, &fakeStore{}, feeds.FeedParams{IncludeInternal: true})

	assert.Contains(t, doc, "BEGIN:VTIMEZONE\r\nTZID:America/Mexico_City")
	assert.Contains(t, doc, "TZOFFSETFROM:-0600")
	assert.Contains(t, doc, "TZOFFSETTO:-0600")
	assert.Contains(t, doc, "END:VTIMEZONE")
}

func TestStoreErrorAbortsBuild(t *testing.T) {
	store := &fakeStore{err: assert.AnError}

	document, err := testBuilder(store).Build(feeds.FeedParams{IncludeInternal: true})

	assert.Error(t, err)
	assert.Nil(t, document)
}

func TestMalformedEventDateAbortsBuild(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		approvedEvent("evt-1", "not-a-date", ""),
	}}

	document, err := testBuilder(store).Build(feeds.FeedParams{IncludeInternal: true})

	assert.Error(t, err)
	assert.Nil(t, document)
}
