package application

import "time"

// Principal represents the authenticated caller invoking a service method.
// Identity resolution itself is handled upstream.
type Principal struct {
	UserID string
	Role   string
}

// EventType classifies a scheduled event.
type EventType string

const (
	EventTypeTraining     EventType = "training"
	EventTypeConsultation EventType = "consultation"
	EventTypeGroup        EventType = "group"
	EventTypeMeeting      EventType = "meeting"
	EventTypeBreak        EventType = "break"
	EventTypeOther        EventType = "other"
)

// EventStatus enumerates the lifecycle states of an event.
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusNoShow    EventStatus = "no-show"
)

// IsTerminal reports whether no further transition is permitted from the status.
func (s EventStatus) IsTerminal() bool {
	switch s {
	case EventStatusCompleted, EventStatusCancelled, EventStatusNoShow:
		return true
	}
	return false
}

// RecurrencePattern describes a recurring cadence attached to an event.
// It is descriptive only; expansion into occurrences is out of scope.
type RecurrencePattern struct {
	Cadence    string
	Interval   int
	EndDate    *time.Time
	DaysOfWeek []int
}

// Event represents a persisted time-boxed occurrence tied to a trainer.
type Event struct {
	ID          string
	Title       string
	Description string
	Type        EventType
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
	Version     int64
}

// EventInput captures caller provided fields for event creation.
type EventInput struct {
	Title       string
	Description string
	Type        EventType
	Start       time.Time
	End         time.Time
	TrainerID   string
	ClientID    *string
	Location    string
	Notes       string
	Price       int64
	Recurring   *RecurrencePattern
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// EventPatch carries a partial update; nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Type        *EventType
	Start       *time.Time
	End         *time.Time
	TrainerID   *string
	ClientID    *string
	Location    *string
	Notes       *string
	Price       *int64
	Recurring   *RecurrencePattern
}

// UpdateEventParams wraps the data required to patch an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Patch     EventPatch
}

// EventFilter narrows event listings. Absent fields impose no restriction.
type EventFilter struct {
	From      *time.Time
	To        *time.Time
	TrainerID string
	Status    EventStatus
}

// EnrichedEvent is an event decorated with denormalized display names.
type EnrichedEvent struct {
	Event
	TrainerName string
	ClientName  string
}

// Trainer represents a staff member that events are booked against.
type Trainer struct {
	ID        string
	Name      string
	Slug      string
	Email     string
	Specialty string
	Active    bool
}

// Client represents a club member.
type Client struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Membership string
}

// Product is a sellable catalog entry surfaced alongside the schedule.
type Product struct {
	ID     string
	Name   string
	Price  int64
	Stock  int
	Active bool
}

// StatsPeriod optionally bounds a statistics computation.
type StatsPeriod struct {
	From time.Time
	To   time.Time
}

// ScheduleStats aggregates the event set for dashboards.
type ScheduleStats struct {
	Total     int
	Today     int
	Upcoming  int
	Completed int
	Cancelled int
	Pending   int
	// Overdue counts confirmed events whose end has passed without reaching a
	// terminal status. Derived on every query, never stored.
	Overdue int

	ByTrainer map[string]int
	ByType    map[string]int
	ByStatus  map[string]int

	// UtilizationRate is booked slots over theoretical capacity, as a
	// percentage clamped to [0, 100].
	UtilizationRate float64
	// BusyHours buckets event starts by hour of day (0-23).
	BusyHours map[int]int
	// AverageDurationMinutes is the mean event length across all events.
	AverageDurationMinutes float64
}

// BookingRequest captures a create-booking call from an authenticated caller.
type BookingRequest struct {
	Principal  Principal
	TrainerRef string
	Date       string // YYYY-MM-DD
	Time       string // HH:MM
	Duration   time.Duration
	Type       EventType
	Price      string
	Notes      string
	ClientID   *string
}

// Booking is the display projection returned for a created booking.
type Booking struct {
	EventID     string
	TrainerID   string
	TrainerName string
	Start       time.Time
	End         time.Time
	Status      EventStatus
	Price       int64
}
