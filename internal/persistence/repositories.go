package persistence

import (
	"context"
	"time"
)

// EventFilter narrows event queries. Nil or zero fields impose no restriction.
type EventFilter struct {
	From      *time.Time
	To        *time.Time
	TrainerID string
	Status    EventStatus
}

// EventRepository stores events and enforces the write-side consistency
// guards the service layer relies on.
type EventRepository interface {
	// CreateEvent inserts the event. Inside the same transaction it re-checks
	// the trainer's non-cancelled events for overlap and fails with
	// ErrConflict when the interval is no longer free.
	CreateEvent(ctx context.Context, event Event) error

	// UpdateEvent replaces the stored record conditioned on expectedVersion.
	// It re-runs the overlap guard (excluding the event itself) when the
	// interval or trainer differ from the stored row. A stale version or a
	// detected overlap fails with ErrConflict.
	UpdateEvent(ctx context.Context, event Event, expectedVersion int64) error

	// UpdateEventStatus stamps a new status and updatedAt without touching
	// other fields.
	UpdateEventStatus(ctx context.Context, id string, status EventStatus, updatedAt time.Time) error

	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)

	// ListTrainerEvents returns the trainer's events with status != cancelled,
	// the working set of the conflict checker.
	ListTrainerEvents(ctx context.Context, trainerID string) ([]Event, error)

	// DeleteEvent removes the record unconditionally.
	DeleteEvent(ctx context.Context, id string) error
}

// TrainerRepository stores trainer records.
type TrainerRepository interface {
	CreateTrainer(ctx context.Context, trainer Trainer) error
	GetTrainer(ctx context.Context, id string) (Trainer, error)
	GetTrainerBySlug(ctx context.Context, slug string) (Trainer, error)
	ListTrainers(ctx context.Context) ([]Trainer, error)
}

// ClientRepository stores club member records.
type ClientRepository interface {
	CreateClient(ctx context.Context, client Client) error
	GetClient(ctx context.Context, id string) (Client, error)
	ListClients(ctx context.Context) ([]Client, error)
}

// ProductRepository stores catalog entries consumed by the sync layer.
type ProductRepository interface {
	CreateProduct(ctx context.Context, product Product) error
	ListProducts(ctx context.Context) ([]Product, error)
}
