package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/example/fitclub-scheduler/internal/persistence"
)

// EventRepository implements persistence.EventRepository on SQLite.
//
// The overlap guard runs inside the same transaction as the write, so the
// check-then-insert sequence the service layer performs is re-validated
// immediately before commit.
type EventRepository struct {
	store *Store
}

// NewEventRepository binds the repository to a store.
func NewEventRepository(store *Store) *EventRepository {
	return &EventRepository{store: store}
}

const insertEventSQL = `
	INSERT INTO events (id, title, description, type, start_time, end_time,
		trainer_id, client_id, status, location, notes, price, recurring,
		created_at, created_by, updated_at, version)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// CreateEvent inserts the event after re-checking the trainer's timeline for
// overlap within the transaction.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		occupied, err := r.intervalOccupied(ctx, tx, event.TrainerID, event.Start, event.End, "")
		if err != nil {
			return err
		}
		if occupied {
			return persistence.ErrConflict
		}

		recurring, err := marshalRecurrence(event.Recurring)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, insertEventSQL,
			event.ID,
			event.Title,
			event.Description,
			event.Type,
			formatTime(event.Start),
			formatTime(event.End),
			event.TrainerID,
			nullableString(event.ClientID),
			string(event.Status),
			event.Location,
			event.Notes,
			event.Price,
			recurring,
			formatTime(event.CreatedAt),
			event.CreatedBy,
			formatTime(event.UpdatedAt),
			event.Version,
		)
		return mapError(err)
	})
}

// UpdateEvent replaces the stored record conditioned on expectedVersion. The
// overlap guard is re-run when the interval or trainer changed.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event, expectedVersion int64) error {
	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		current, err := r.getEventTx(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return persistence.ErrConflict
		}

		timelineChanged := !current.Start.Equal(event.Start) ||
			!current.End.Equal(event.End) ||
			current.TrainerID != event.TrainerID
		if timelineChanged && event.Status != persistence.EventStatusCancelled {
			occupied, err := r.intervalOccupied(ctx, tx, event.TrainerID, event.Start, event.End, event.ID)
			if err != nil {
				return err
			}
			if occupied {
				return persistence.ErrConflict
			}
		}

		recurring, err := marshalRecurrence(event.Recurring)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE events SET title = ?, description = ?, type = ?, start_time = ?,
				end_time = ?, trainer_id = ?, client_id = ?, status = ?, location = ?,
				notes = ?, price = ?, recurring = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?`,
			event.Title,
			event.Description,
			event.Type,
			formatTime(event.Start),
			formatTime(event.End),
			event.TrainerID,
			nullableString(event.ClientID),
			string(event.Status),
			event.Location,
			event.Notes,
			event.Price,
			recurring,
			formatTime(event.UpdatedAt),
			event.ID,
			expectedVersion,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrConflict
		}
		return nil
	})
}

// UpdateEventStatus stamps a new status without touching other fields.
func (r *EventRepository) UpdateEventStatus(ctx context.Context, id string, status persistence.EventStatus, updatedAt time.Time) error {
	result, err := r.store.db.ExecContext(ctx, `
		UPDATE events SET status = ?, updated_at = ?, version = version + 1
		WHERE id = ?`,
		string(status), formatTime(updatedAt), id,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetEvent retrieves a single event by id.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	query, args, err := r.store.builder.From("events").
		Select(eventColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: build event query: %w", err)
	}

	row := r.store.db.QueryRowContext(ctx, query, args...)
	event, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, err
}

// ListEvents returns events matching the filter in insertion order.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	dataset := r.store.builder.From("events").
		Select(eventColumns...).
		Order(goqu.C("rowid").Asc())

	if filter.From != nil {
		dataset = dataset.Where(goqu.C("end_time").Gt(formatTime(*filter.From)))
	}
	if filter.To != nil {
		dataset = dataset.Where(goqu.C("start_time").Lt(formatTime(*filter.To)))
	}
	if filter.TrainerID != "" {
		dataset = dataset.Where(goqu.C("trainer_id").Eq(filter.TrainerID))
	}
	if filter.Status != "" {
		dataset = dataset.Where(goqu.C("status").Eq(string(filter.Status)))
	}

	query, args, err := dataset.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list query: %w", err)
	}
	return r.queryEvents(ctx, query, args...)
}

// ListTrainerEvents returns the trainer's non-cancelled events ordered by start.
func (r *EventRepository) ListTrainerEvents(ctx context.Context, trainerID string) ([]persistence.Event, error) {
	query, args, err := r.store.builder.From("events").
		Select(eventColumns...).
		Where(
			goqu.C("trainer_id").Eq(trainerID),
			goqu.C("status").Neq(string(persistence.EventStatusCancelled)),
		).
		Order(goqu.C("start_time").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build trainer events query: %w", err)
	}
	return r.queryEvents(ctx, query, args...)
}

// DeleteEvent removes the record unconditionally.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// intervalOccupied reports whether [start, end) collides with any
// non-cancelled event of the trainer, excluding excludeID when non-empty.
func (r *EventRepository) intervalOccupied(ctx context.Context, tx *sql.Tx, trainerID string, start, end time.Time, excludeID string) (bool, error) {
	conditions := []goqu.Expression{
		goqu.C("trainer_id").Eq(trainerID),
		goqu.C("status").Neq(string(persistence.EventStatusCancelled)),
		goqu.C("start_time").Lt(formatTime(end)),
		goqu.C("end_time").Gt(formatTime(start)),
	}
	if excludeID != "" {
		conditions = append(conditions, goqu.C("id").Neq(excludeID))
	}

	query, args, err := r.store.builder.From("events").
		Select(goqu.COUNT(goqu.Star())).
		Where(conditions...).
		Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("sqlite: build overlap query: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *EventRepository) getEventTx(ctx context.Context, tx *sql.Tx, id string) (persistence.Event, error) {
	query, args, err := r.store.builder.From("events").
		Select(eventColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: build event query: %w", err)
	}

	row := tx.QueryRowContext(ctx, query, args...)
	event, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, err
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]persistence.Event, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

var eventColumns = []any{
	"id", "title", "description", "type", "start_time", "end_time",
	"trainer_id", "client_id", "status", "location", "notes", "price",
	"recurring", "created_at", "created_by", "updated_at", "version",
}

func scanEvent(scan func(dest ...any) error) (persistence.Event, error) {
	var (
		event                                    persistence.Event
		startRaw, endRaw, createdRaw, updatedRaw string
		clientID, recurring                      sql.NullString
		status                                   string
	)

	err := scan(
		&event.ID, &event.Title, &event.Description, &event.Type,
		&startRaw, &endRaw, &event.TrainerID, &clientID, &status,
		&event.Location, &event.Notes, &event.Price, &recurring,
		&createdRaw, &event.CreatedBy, &updatedRaw, &event.Version,
	)
	if err != nil {
		return persistence.Event{}, err
	}

	event.Status = persistence.EventStatus(status)
	if clientID.Valid {
		event.ClientID = &clientID.String
	}
	if recurring.Valid && recurring.String != "" {
		var pattern persistence.RecurrencePattern
		if err := json.Unmarshal([]byte(recurring.String), &pattern); err != nil {
			return persistence.Event{}, fmt.Errorf("sqlite: decode recurrence: %w", err)
		}
		event.Recurring = &pattern
	}

	if event.Start, err = parseTime(startRaw); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTime(endRaw); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime(createdRaw); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return persistence.Event{}, err
	}

	return event, nil
}

func marshalRecurrence(pattern *persistence.RecurrencePattern) (sql.NullString, error) {
	if pattern == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(pattern)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("sqlite: encode recurrence: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
