package models

import "time"

// Event is one row from the events table joined with the organizer
// community and the ingestion source. Events are read-only as far as the
// feed is concerned; only the seed and tidy commands write.
type Event struct {
	Id              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	EventDate       string    `json:"eventDate"`           // YYYY-MM-DD
	EventTime       string    `json:"eventTime,omitempty"` // HH:MM:SS, empty means all-day
	Location        string    `json:"location,omitempty"`
	EventType       string    `json:"eventType"`
	Category        string    `json:"category,omitempty"`
	OrganizerId     string    `json:"organizerId,omitempty"`
	OrganizerName   string    `json:"organizerName,omitempty"`
	SourceId        string    `json:"sourceId,omitempty"` // empty means internally authored
	SourceName      string    `json:"sourceName,omitempty"`
	RegistrationUrl string    `json:"registrationUrl,omitempty"`
	ApprovalStatus  string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AllDay reports whether the event has no time of day.
func (e Event) AllDay() bool {
	return e.EventTime == ""
}

// Event type values as stored in the events table.
const (
	EventTypeVirtual    = "virtual"
	EventTypePresencial = "presencial"
	EventTypeHibrido    = "hibrido"
	EventTypeOther      = "other"
)

// Only approved events are ever served.
const ApprovalStatusApproved = "approved"

// EventSource is an external ingestion origin for events, e.g. a partner
// community feed.
type EventSource struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// CalendarPreference stores a user's calendar source selection. It is
// consulted only when a feed request names a user but no explicit
// sources.
type CalendarPreference struct {
	UserId            string   `json:"userId"`
	IncludeAllSources bool     `json:"includeAllSources"`
	SelectedSources   []string `json:"selectedSources"`
}

// EventFilters narrows the upcoming-events query. Zero values mean "no
// restriction" except FromDate, which is always set by the caller.
type EventFilters struct {
	FromDate        string   // inclusive lower bound on event_date, YYYY-MM-DD
	OrganizerId     string   // equality filter on events.organizer_id
	Category        string   // equality filter on events.category
	SourceIds       []string // restrict to these sources when non-empty
	IncludeInternal bool     // also match events with no source when SourceIds is set
}

// EventsResponse is the JSON shape of the /events endpoint.
type EventsResponse struct {
	Events []Event `json:"events"`
	Count  int     `json:"count"`
}
