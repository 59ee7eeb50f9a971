package persistence

import "time"

// EventStatus enumerates the lifecycle states stored for an event.
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusNoShow    EventStatus = "no-show"
)

// Event is the persisted scheduling unit.
type Event struct {
	ID          string
	Title       string
	Description string
	Type        string
	Start       time.Time
	End         time.Time
	TrainerID   string
	ClientID    *string
	Status      EventStatus
	Location    string
	Notes       string
	Price       int64
	Recurring   *RecurrencePattern
	CreatedAt   time.Time
	CreatedBy   string
	UpdatedAt   time.Time

	// Version is the optimistic-concurrency token. Every successful write
	// increments it; conditional updates must present the current value.
	Version int64
}

// RecurrencePattern describes a recurring cadence attached to an event. The
// pattern is stored and returned verbatim; expansion into occurrences is not a
// persistence concern.
type RecurrencePattern struct {
	Cadence    string     `json:"cadence"`
	Interval   int        `json:"interval"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	DaysOfWeek []int      `json:"days_of_week,omitempty"`
}

// Trainer is a member of staff that events are booked against.
type Trainer struct {
	ID        string
	Name      string
	Slug      string
	Email     string
	Specialty string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Client is a club member that events may reference.
type Client struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Membership string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Product is a catalog entry tracked by the client synchronization layer.
type Product struct {
	ID        string
	Name      string
	Price     int64
	Stock     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
