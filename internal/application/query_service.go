package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// FallbackTrainerName labels events whose trainer reference no longer resolves.
	FallbackTrainerName = "Unknown trainer"
	// FallbackClientName labels events whose client reference no longer resolves.
	FallbackClientName = "Unknown client"
)

// CapacityPolicy parameterizes the utilization-rate denominator. The formula
// (trainers x working hours x days) is an approximation carried over from the
// original deployment, kept configurable rather than hard-coded.
type CapacityPolicy struct {
	WorkingHoursPerDay int
	DaysPerWeek        int
}

// DefaultCapacityPolicy mirrors the original assumed capacity.
func DefaultCapacityPolicy() CapacityPolicy {
	return CapacityPolicy{WorkingHoursPerDay: 12, DaysPerWeek: 7}
}

// QueryService is the read side of the scheduling core: filtered listings
// enriched with display names, and aggregate statistics.
type QueryService struct {
	events   EventRepository
	trainers TrainerDirectory
	clients  ClientDirectory
	capacity CapacityPolicy
	now      func() time.Time
	logger   *slog.Logger
}

// NewQueryService wires dependencies for schedule queries.
func NewQueryService(events EventRepository, trainers TrainerDirectory, clients ClientDirectory, capacity CapacityPolicy, now func() time.Time) *QueryService {
	return NewQueryServiceWithLogger(events, trainers, clients, capacity, now, nil)
}

// NewQueryServiceWithLogger is NewQueryService with an explicit logger.
func NewQueryServiceWithLogger(events EventRepository, trainers TrainerDirectory, clients ClientDirectory, capacity CapacityPolicy, now func() time.Time, logger *slog.Logger) *QueryService {
	if capacity.WorkingHoursPerDay <= 0 {
		capacity.WorkingHoursPerDay = 12
	}
	if capacity.DaysPerWeek <= 0 {
		capacity.DaysPerWeek = 7
	}
	if now == nil {
		now = time.Now
	}
	return &QueryService{
		events:   events,
		trainers: trainers,
		clients:  clients,
		capacity: capacity,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// ListEvents returns events matching the filter in insertion order, each
// enriched with trainer and client display names. A reference that no longer
// resolves yields a fallback label, never a failure.
func (s *QueryService) ListEvents(ctx context.Context, filter EventFilter) ([]EnrichedEvent, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	trainerNames, clientNames := s.displayNames(ctx)

	enriched := make([]EnrichedEvent, 0, len(events))
	for _, event := range events {
		entry := EnrichedEvent{Event: event, TrainerName: FallbackTrainerName}
		if name, ok := trainerNames[event.TrainerID]; ok {
			entry.TrainerName = name
		}
		if event.ClientID != nil {
			entry.ClientName = FallbackClientName
			if name, ok := clientNames[*event.ClientID]; ok {
				entry.ClientName = name
			}
		}
		enriched = append(enriched, entry)
	}
	return enriched, nil
}

// GetStats aggregates the event set, optionally bounded to a period. The
// computation is pure over the current store contents: calling it twice with
// no intervening mutation yields identical results.
func (s *QueryService) GetStats(ctx context.Context, period *StatsPeriod) (ScheduleStats, error) {
	if s == nil || s.events == nil {
		return ScheduleStats{}, fmt.Errorf("event repository not configured")
	}

	filter := EventFilter{}
	if period != nil {
		if !period.From.IsZero() {
			from := period.From
			filter.From = &from
		}
		if !period.To.IsZero() {
			to := period.To
			filter.To = &to
		}
	}

	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return ScheduleStats{}, mapEventRepoError(err)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	stats := ScheduleStats{
		ByTrainer: make(map[string]int),
		ByType:    make(map[string]int),
		ByStatus:  make(map[string]int),
		BusyHours: make(map[int]int),
	}

	var totalMinutes float64
	bookedSlots := 0
	for _, event := range events {
		stats.Total++
		stats.ByTrainer[event.TrainerID]++
		stats.ByType[string(event.Type)]++
		stats.ByStatus[string(event.Status)]++

		if !event.Start.Before(today) && event.Start.Before(tomorrow) {
			stats.Today++
		}
		if event.Start.After(now) && !event.Status.IsTerminal() {
			stats.Upcoming++
		}

		switch event.Status {
		case EventStatusCompleted:
			stats.Completed++
		case EventStatusCancelled:
			stats.Cancelled++
		case EventStatusScheduled:
			stats.Pending++
		case EventStatusConfirmed:
			if event.End.Before(now) {
				stats.Overdue++
			}
		}

		if event.Status != EventStatusCancelled {
			bookedSlots++
			stats.BusyHours[event.Start.Hour()]++
		}
		totalMinutes += event.End.Sub(event.Start).Minutes()
	}

	if stats.Total > 0 {
		stats.AverageDurationMinutes = totalMinutes / float64(stats.Total)
	}
	stats.UtilizationRate = s.utilizationRate(ctx, bookedSlots)

	return stats, nil
}

// utilizationRate relates booked slots to the theoretical capacity of the
// trainer roster, clamped to [0, 100].
func (s *QueryService) utilizationRate(ctx context.Context, bookedSlots int) float64 {
	if s.trainers == nil {
		return 0
	}
	trainers, err := s.trainers.ListTrainers(ctx)
	if err != nil || len(trainers) == 0 {
		return 0
	}

	capacity := len(trainers) * s.capacity.WorkingHoursPerDay * s.capacity.DaysPerWeek
	if capacity == 0 {
		return 0
	}

	rate := float64(bookedSlots) / float64(capacity) * 100
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}

// displayNames loads the reference collections once per listing. Lookup
// failures degrade to fallback labels on the affected events.
func (s *QueryService) displayNames(ctx context.Context) (map[string]string, map[string]string) {
	trainerNames := make(map[string]string)
	clientNames := make(map[string]string)

	if s.trainers != nil {
		trainers, err := s.trainers.ListTrainers(ctx)
		if err != nil {
			serviceLogger(ctx, s.logger, "query", "list").WarnContext(ctx, "trainer lookup failed", "error", err)
		}
		for _, trainer := range trainers {
			trainerNames[trainer.ID] = trainer.Name
		}
	}
	if s.clients != nil {
		clients, err := s.clients.ListClients(ctx)
		if err != nil {
			serviceLogger(ctx, s.logger, "query", "list").WarnContext(ctx, "client lookup failed", "error", err)
		}
		for _, client := range clients {
			clientNames[client.ID] = client.Name
		}
	}
	return trainerNames, clientNames
}
