package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

// DefaultBookingDuration applies when a booking request does not override it.
const DefaultBookingDuration = 60 * time.Minute

// BookingService resolves trainer references and creates bookings through the
// event lifecycle store. A thin adapter; the scheduling invariants live in
// EventService.
type BookingService struct {
	events   *EventService
	trainers TrainerDirectory
	logger   *slog.Logger
}

// NewBookingService wires dependencies for booking creation.
func NewBookingService(events *EventService, trainers TrainerDirectory) *BookingService {
	return NewBookingServiceWithLogger(events, trainers, nil)
}

// NewBookingServiceWithLogger is NewBookingService with an explicit logger.
func NewBookingServiceWithLogger(events *EventService, trainers TrainerDirectory, logger *slog.Logger) *BookingService {
	return &BookingService{events: events, trainers: trainers, logger: defaultLogger(logger)}
}

// ResolveTrainer resolves a caller-supplied reference through an ordered
// fallback chain: lookup by id, lookup by slug, then a full scan matching on
// id, name-derived slug, email, and exact name. The first match wins; an
// exhausted chain fails with a TrainerResolutionError naming every strategy
// that was attempted.
func (s *BookingService) ResolveTrainer(ctx context.Context, ref string) (Trainer, error) {
	if s == nil || s.trainers == nil {
		return Trainer{}, fmt.Errorf("trainer directory not configured")
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		vErr := &ValidationError{}
		vErr.add("trainer", "trainer reference is required")
		return Trainer{}, vErr
	}

	attempted := []string{"id"}
	trainer, err := s.trainers.GetTrainer(ctx, ref)
	if err == nil {
		return trainer, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Trainer{}, err
	}

	attempted = append(attempted, "slug")
	trainer, err = s.trainers.GetTrainerBySlug(ctx, Slugify(ref))
	if err == nil {
		return trainer, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Trainer{}, err
	}

	attempted = append(attempted, "scan")
	trainers, err := s.trainers.ListTrainers(ctx)
	if err != nil {
		return Trainer{}, err
	}
	refSlug := Slugify(ref)
	refLower := strings.ToLower(ref)
	for _, candidate := range trainers {
		switch {
		case candidate.ID == ref,
			Slugify(candidate.Name) == refSlug,
			strings.EqualFold(candidate.Email, ref),
			strings.ToLower(candidate.Name) == refLower:
			return candidate, nil
		}
	}

	return Trainer{}, &TrainerResolutionError{Reference: ref, Attempted: attempted}
}

// CreateBooking resolves the trainer, derives the interval, and delegates to
// the event lifecycle store. Conflict and validation failures propagate as-is.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	if s == nil || s.events == nil {
		return Booking{}, fmt.Errorf("event service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "booking", "create", "trainer_ref", req.TrainerRef)

	trainer, err := s.ResolveTrainer(ctx, req.TrainerRef)
	if err != nil {
		logger.InfoContext(ctx, "trainer resolution failed", "error", err)
		return Booking{}, err
	}

	start, err := parseBookingStart(req.Date, req.Time)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("date", err.Error())
		return Booking{}, vErr
	}

	duration := req.Duration
	if duration <= 0 {
		duration = DefaultBookingDuration
	}

	eventType := req.Type
	if eventType == "" {
		eventType = EventTypeTraining
	}

	event, err := s.events.CreateEvent(ctx, CreateEventParams{
		Principal: req.Principal,
		Input: EventInput{
			Title:     fmt.Sprintf("Session with %s", trainer.Name),
			Type:      eventType,
			Start:     start,
			End:       start.Add(duration),
			TrainerID: trainer.ID,
			ClientID:  req.ClientID,
			Notes:     req.Notes,
			Price:     ParsePrice(req.Price),
		},
	})
	if err != nil {
		return Booking{}, err
	}

	logger.InfoContext(ctx, "booking created", "event_id", event.ID, "trainer_id", trainer.ID)
	return Booking{
		EventID:     event.ID,
		TrainerID:   trainer.ID,
		TrainerName: trainer.Name,
		Start:       event.Start,
		End:         event.End,
		Status:      event.Status,
		Price:       event.Price,
	}, nil
}

// ParsePrice maps a display price string to a numeric value by keeping only
// digit runes. An unparsable price yields 0; price formatting never fails a
// booking.
func ParsePrice(display string) int64 {
	var digits strings.Builder
	for _, r := range display {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}

	var value int64
	for _, r := range digits.String() {
		value = value*10 + int64(r-'0')
		if value < 0 {
			// Overflowed; treat as unparsable.
			return 0
		}
	}
	return value
}

// Slugify lowers a reference and collapses non-alphanumeric runs into single
// hyphens, matching how trainer aliases are derived from names.
func Slugify(value string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func parseBookingStart(date, clock string) (time.Time, error) {
	start, err := time.Parse("2006-01-02 15:04", strings.TrimSpace(date)+" "+strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time: expected YYYY-MM-DD and HH:MM")
	}
	return start.UTC(), nil
}
