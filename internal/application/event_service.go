package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/fitclub-scheduler/internal/persistence"
	"github.com/example/fitclub-scheduler/internal/schedule"
)

// EventRepository captures the persistence interactions needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event, expectedVersion int64) (Event, error)
	UpdateEventStatus(ctx context.Context, id string, status EventStatus, updatedAt time.Time) error
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	ListTrainerEvents(ctx context.Context, trainerID string) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// TrainerDirectory exposes trainer lookup operations.
type TrainerDirectory interface {
	GetTrainer(ctx context.Context, id string) (Trainer, error)
	GetTrainerBySlug(ctx context.Context, slug string) (Trainer, error)
	ListTrainers(ctx context.Context) ([]Trainer, error)
}

// ClientDirectory exposes club member lookup operations.
type ClientDirectory interface {
	GetClient(ctx context.Context, id string) (Client, error)
	ListClients(ctx context.Context) ([]Client, error)
}

// ProductCatalog exposes the sellable catalog.
type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]Product, error)
}

// statusTransitions is the event state machine. Missing keys are terminal.
var statusTransitions = map[EventStatus][]EventStatus{
	EventStatusScheduled: {EventStatusConfirmed, EventStatusCancelled},
	EventStatusConfirmed: {EventStatusCompleted, EventStatusCancelled, EventStatusNoShow},
}

// transitionAllowed reports whether the state machine permits from -> to.
func transitionAllowed(from, to EventStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EventService owns event records: it validates input, enforces the status
// state machine, and guards the per-trainer no-overlap invariant.
type EventService struct {
	events      EventRepository
	trainers    TrainerDirectory
	clients     ClientDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event lifecycle operations.
func NewEventService(events EventRepository, trainers TrainerDirectory, clients ClientDirectory, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, trainers, clients, idGenerator, now, nil)
}

// NewEventServiceWithLogger is NewEventService with an explicit logger.
func NewEventServiceWithLogger(events EventRepository, trainers TrainerDirectory, clients ClientDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		trainers:    trainers,
		clients:     clients,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateEvent validates the request, checks the trainer's timeline for
// overlap, and persists the event with status scheduled.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "create", "trainer_id", params.Input.TrainerID)

	input := params.Input
	vErr := &ValidationError{}
	validateEventCore(input.Type, input.Start, input.End, input.TrainerID, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	if err := s.ensureReferencesExist(ctx, input.TrainerID, input.ClientID); err != nil {
		return Event{}, err
	}

	if err := s.ensureIntervalFree(ctx, input.TrainerID, input.Start, input.End, ""); err != nil {
		logger.InfoContext(ctx, "booking rejected", "reason", ErrorKind(err))
		return Event{}, err
	}

	createdAt := s.now()
	event := Event{
		ID:          s.idGenerator(),
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Start:       input.Start,
		End:         input.End,
		TrainerID:   input.TrainerID,
		ClientID:    input.ClientID,
		Status:      EventStatusScheduled,
		Location:    input.Location,
		Notes:       input.Notes,
		Price:       input.Price,
		Recurring:   input.Recurring,
		CreatedAt:   createdAt,
		CreatedBy:   params.Principal.UserID,
		UpdatedAt:   createdAt,
		Version:     1,
	}

	persisted, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	logger.InfoContext(ctx, "event created", "event_id", persisted.ID)
	return persisted, nil
}

// UpdateEvent applies a partial update. When the interval or trainer changes,
// the conflict check is re-run excluding the event itself. The write is
// conditioned on the stored version; a stale read is refreshed and retried
// once before surfacing ErrConflict.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "update", "event_id", params.EventID)

	for attempt := 0; ; attempt++ {
		existing, err := s.events.GetEvent(ctx, params.EventID)
		if err != nil {
			return Event{}, mapEventRepoError(err)
		}

		updated := applyPatch(existing, params.Patch)

		vErr := &ValidationError{}
		validateEventCore(updated.Type, updated.Start, updated.End, updated.TrainerID, vErr)
		if vErr.HasErrors() {
			return Event{}, vErr
		}

		if params.Patch.TrainerID != nil || params.Patch.ClientID != nil {
			if err := s.ensureReferencesExist(ctx, updated.TrainerID, updated.ClientID); err != nil {
				return Event{}, err
			}
		}

		timelineChanged := !existing.Start.Equal(updated.Start) ||
			!existing.End.Equal(updated.End) ||
			existing.TrainerID != updated.TrainerID
		if timelineChanged {
			if err := s.ensureIntervalFree(ctx, updated.TrainerID, updated.Start, updated.End, updated.ID); err != nil {
				return Event{}, err
			}
		}

		updated.UpdatedAt = s.now()

		persisted, err := s.events.UpdateEvent(ctx, updated, existing.Version)
		if err == nil {
			logger.InfoContext(ctx, "event updated", "version", persisted.Version)
			return persisted, nil
		}
		if (errors.Is(err, persistence.ErrConflict) || errors.Is(err, ErrConflict)) && attempt == 0 {
			// Lost a concurrent write; re-read and retry once.
			logger.InfoContext(ctx, "stale version, retrying update")
			continue
		}
		return Event{}, mapEventRepoError(err)
	}
}

// TransitionStatus moves the event through the state machine, rejecting pairs
// the transition table does not permit.
func (s *EventService) TransitionStatus(ctx context.Context, id string, next EventStatus) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "transition", "event_id", id)

	if !validStatus(next) {
		vErr := &ValidationError{}
		vErr.add("status", "unknown status")
		return Event{}, vErr
	}

	existing, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	if !transitionAllowed(existing.Status, next) {
		logger.InfoContext(ctx, "transition rejected", "from", existing.Status, "to", next)
		return Event{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, next)
	}

	updatedAt := s.now()
	if err := s.events.UpdateEventStatus(ctx, id, next, updatedAt); err != nil {
		return Event{}, mapEventRepoError(err)
	}

	logger.InfoContext(ctx, "status changed", "from", existing.Status, "to", next)
	existing.Status = next
	existing.UpdatedAt = updatedAt
	return existing, nil
}

// DeleteEvent removes the record unconditionally. Administrative operation;
// bypasses the state machine.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if s == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return mapEventRepoError(err)
	}
	serviceLogger(ctx, s.logger, "event", "delete", "event_id", id).InfoContext(ctx, "event deleted")
	return nil
}

func (s *EventService) ensureReferencesExist(ctx context.Context, trainerID string, clientID *string) error {
	if s.trainers != nil {
		if _, err := s.trainers.GetTrainer(ctx, trainerID); err != nil {
			return mapEventRepoError(err)
		}
	}
	if clientID != nil && s.clients != nil {
		if _, err := s.clients.GetClient(ctx, *clientID); err != nil {
			return mapEventRepoError(err)
		}
	}
	return nil
}

// ensureIntervalFree runs the in-process conflict pre-check. The repository
// re-validates inside the write transaction; this early check exists so most
// conflicts are caught before any write is attempted.
func (s *EventService) ensureIntervalFree(ctx context.Context, trainerID string, start, end time.Time, excludeID string) error {
	existing, err := s.events.ListTrainerEvents(ctx, trainerID)
	if err != nil {
		return mapEventRepoError(err)
	}

	timeline := make([]schedule.Event, 0, len(existing))
	for _, event := range existing {
		timeline = append(timeline, schedule.Event{
			ID:        event.ID,
			TrainerID: event.TrainerID,
			Start:     event.Start,
			End:       event.End,
			Cancelled: event.Status == EventStatusCancelled,
		})
	}

	if schedule.HasConflict(timeline, trainerID, start, end, excludeID) {
		return ErrConflict
	}
	return nil
}

func applyPatch(event Event, patch EventPatch) Event {
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Type != nil {
		event.Type = *patch.Type
	}
	if patch.Start != nil {
		event.Start = *patch.Start
	}
	if patch.End != nil {
		event.End = *patch.End
	}
	if patch.TrainerID != nil {
		event.TrainerID = *patch.TrainerID
	}
	if patch.ClientID != nil {
		event.ClientID = patch.ClientID
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Notes != nil {
		event.Notes = *patch.Notes
	}
	if patch.Price != nil {
		event.Price = *patch.Price
	}
	if patch.Recurring != nil {
		event.Recurring = patch.Recurring
	}
	return event
}

func validateEventCore(eventType EventType, start, end time.Time, trainerID string, vErr *ValidationError) {
	switch eventType {
	case EventTypeTraining, EventTypeConsultation, EventTypeGroup, EventTypeMeeting, EventTypeBreak, EventTypeOther:
	case "":
		vErr.add("type", "type is required")
	default:
		vErr.add("type", "unknown event type")
	}

	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		vErr.add("time", "end must be after start")
	}

	if trainerID == "" {
		vErr.add("trainer_id", "trainer is required")
	}
}

func validStatus(status EventStatus) bool {
	switch status {
	case EventStatusScheduled, EventStatusConfirmed, EventStatusCompleted, EventStatusCancelled, EventStatusNoShow:
		return true
	}
	return false
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, persistence.ErrConflict) {
		return ErrConflict
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "end must be after start")
		return vErr
	}
	return err
}
