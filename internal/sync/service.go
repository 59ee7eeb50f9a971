// Package sync keeps a local read cache of the scheduling server's
// collections fresh under unreliable connectivity. It owns the cache
// exclusively: UI surfaces read snapshots and mutate only through the
// optimistic entry points.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/fitclub-scheduler/internal/application"
)

// ErrOffline is returned when a sync is requested while connectivity is down.
var ErrOffline = errors.New("sync: offline")

const (
	// DefaultInterval is the periodic background sync cadence.
	DefaultInterval = 5 * time.Minute
	// DefaultMaxAttempts bounds per-fetch retries inside one sync cycle.
	DefaultMaxAttempts = 3
	// DefaultMaxAutoRetries bounds whole-cycle retries after failed syncs.
	// Once reached, the aggregated error is surfaced instead of retrying.
	DefaultMaxAutoRetries = 5
	// DefaultRetryBase seeds the exponential delay between whole-cycle retries.
	DefaultRetryBase = 5 * time.Second
)

// Options configures a Service. Zero fields fall back to defaults.
type Options struct {
	Interval       time.Duration
	MaxAttempts    int
	MaxAutoRetries int
	RetryBase      time.Duration
	Logger         *slog.Logger

	// Now, Sleep, and After are injection points for tests. Sleep must honor
	// ctx; After must behave like time.AfterFunc.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	After func(d time.Duration, fn func()) *time.Timer
}

// Service is the client synchronization layer. Construct with NewService and
// drive through Start/Stop; all methods are safe for concurrent use.
type Service struct {
	transport Transport
	opts      Options
	logger    *slog.Logger

	mu       stdsync.Mutex
	syncing  bool
	online   bool
	loading  bool
	lastSync time.Time
	errMsg   string
	retries  int

	events   []application.EnrichedEvent
	trainers []application.Trainer
	clients  []application.Client
	products []Product
	stats    application.ScheduleStats

	pendingEvents   map[string]pendingEvent
	pendingTrainers map[string]pendingTrainer

	cron       *cron.Cron
	cronID     cron.EntryID
	retryTimer *time.Timer
	baseCtx    context.Context
	cancel     context.CancelFunc
}

// NewService builds a synchronization service over the given transport.
func NewService(transport Transport, opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MaxAutoRetries <= 0 {
		opts.MaxAutoRetries = DefaultMaxAutoRetries
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.After == nil {
		opts.After = time.AfterFunc
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		transport:       transport,
		opts:            opts,
		logger:          logger.With("component", "sync"),
		online:          true,
		pendingEvents:   make(map[string]pendingEvent),
		pendingTrainers: make(map[string]pendingTrainer),
	}
}

// Start runs an immediate sync and begins the periodic background schedule.
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.transport == nil {
		return fmt.Errorf("sync: transport not configured")
	}

	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return fmt.Errorf("sync: already started")
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()
	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.opts.Interval), s.periodicSync)
	if err != nil {
		s.cron = nil
		s.cancel()
		s.mu.Unlock()
		return fmt.Errorf("sync: schedule periodic sync: %w", err)
	}
	s.cronID = entryID
	s.cron.Start()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "sync started", "interval", s.opts.Interval)
	_ = s.SyncAll(ctx)
	return nil
}

// Stop halts the periodic schedule and cancels any pending retry.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	s.cancelRetryLocked()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.logger.Info("sync stopped")
}

// SyncAll fans out one fetch per tracked collection, settles them all, and
// merges the results. One collection's failure never aborts the others: its
// last-good state is retained and the failure lands in the aggregated error.
// Concurrent calls coalesce; while offline the call is a no-op.
func (s *Service) SyncAll(ctx context.Context) error {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return nil
	}
	if !s.online {
		s.mu.Unlock()
		return ErrOffline
	}
	s.syncing = true
	s.loading = true
	s.mu.Unlock()

	type outcome struct {
		name string
		err  error
	}

	var fetched struct {
		events   []application.EnrichedEvent
		trainers []application.Trainer
		clients  []application.Client
		products []Product
		stats    application.ScheduleStats
	}
	var (
		wg        stdsync.WaitGroup
		outcomeMu stdsync.Mutex
		outcomes  []outcome
	)

	run := func(name string, op func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.fetchWithRetry(ctx, name, op, s.opts.MaxAttempts)
			outcomeMu.Lock()
			outcomes = append(outcomes, outcome{name: name, err: err})
			outcomeMu.Unlock()
		}()
	}

	run("events", func(ctx context.Context) error {
		events, err := s.transport.FetchEvents(ctx)
		if err == nil {
			fetched.events = events
		}
		return err
	})
	run("trainers", func(ctx context.Context) error {
		trainers, err := s.transport.FetchTrainers(ctx)
		if err == nil {
			fetched.trainers = trainers
		}
		return err
	})
	run("clients", func(ctx context.Context) error {
		clients, err := s.transport.FetchClients(ctx)
		if err == nil {
			fetched.clients = clients
		}
		return err
	})
	run("products", func(ctx context.Context) error {
		products, err := s.transport.FetchProducts(ctx)
		if err == nil {
			fetched.products = products
		}
		return err
	})
	run("stats", func(ctx context.Context) error {
		stats, err := s.transport.FetchStats(ctx)
		if err == nil {
			fetched.stats = stats
		}
		return err
	})

	wg.Wait()

	failed := make([]string, 0)
	var firstErr error
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].name < outcomes[j].name })
	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, o.name)
			if firstErr == nil {
				firstErr = o.err
			}
		}
	}

	s.mu.Lock()
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		switch o.name {
		case "events":
			s.events, s.pendingEvents = mergeEvents(fetched.events, s.pendingEvents)
		case "trainers":
			s.trainers, s.pendingTrainers = mergeTrainers(fetched.trainers, s.pendingTrainers)
		case "clients":
			s.clients = fetched.clients
		case "products":
			s.products = fetched.products
		case "stats":
			s.stats = fetched.stats
		}
	}

	s.lastSync = s.opts.Now()
	s.loading = false
	s.syncing = false

	var aggregated error
	if len(failed) == 0 {
		s.errMsg = ""
		s.retries = 0
		s.cancelRetryLocked()
	} else {
		s.errMsg = fmt.Sprintf("failed to sync %s: %v", strings.Join(failed, ", "), firstErr)
		s.retries++
		aggregated = errors.New(s.errMsg)
		s.scheduleRetryLocked()
	}
	retries := s.retries
	s.mu.Unlock()

	if aggregated != nil {
		s.logger.WarnContext(ctx, "sync cycle incomplete", "failed", failed, "retry_count", retries)
	} else {
		s.logger.DebugContext(ctx, "sync cycle complete")
	}
	return aggregated
}

// SyncEvents refreshes only the events collection.
func (s *Service) SyncEvents(ctx context.Context) error {
	return s.syncOne(ctx, "events", func(ctx context.Context) error {
		events, err := s.transport.FetchEvents(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.events, s.pendingEvents = mergeEvents(events, s.pendingEvents)
		s.mu.Unlock()
		return nil
	})
}

// SyncTrainers refreshes only the trainer collection.
func (s *Service) SyncTrainers(ctx context.Context) error {
	return s.syncOne(ctx, "trainers", func(ctx context.Context) error {
		trainers, err := s.transport.FetchTrainers(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.trainers, s.pendingTrainers = mergeTrainers(trainers, s.pendingTrainers)
		s.mu.Unlock()
		return nil
	})
}

// SyncClients refreshes only the client collection.
func (s *Service) SyncClients(ctx context.Context) error {
	return s.syncOne(ctx, "clients", func(ctx context.Context) error {
		clients, err := s.transport.FetchClients(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.clients = clients
		s.mu.Unlock()
		return nil
	})
}

// SyncProducts refreshes only the product catalog.
func (s *Service) SyncProducts(ctx context.Context) error {
	return s.syncOne(ctx, "products", func(ctx context.Context) error {
		products, err := s.transport.FetchProducts(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.products = products
		s.mu.Unlock()
		return nil
	})
}

// SyncStats refreshes only the aggregate statistics.
func (s *Service) SyncStats(ctx context.Context) error {
	return s.syncOne(ctx, "stats", func(ctx context.Context) error {
		stats, err := s.transport.FetchStats(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.stats = stats
		s.mu.Unlock()
		return nil
	})
}

func (s *Service) syncOne(ctx context.Context, name string, op func(context.Context) error) error {
	s.mu.Lock()
	online := s.online
	s.mu.Unlock()
	if !online {
		return ErrOffline
	}
	return s.fetchWithRetry(ctx, name, op, s.opts.MaxAttempts)
}

// fetchWithRetry runs op up to maxAttempts times, sleeping 2^attempt seconds
// between attempts. The last error is returned after exhaustion.
func (s *Service) fetchWithRetry(ctx context.Context, name string, op func(context.Context) error, maxAttempts int) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		delay := time.Duration(1<<uint(attempt)) * time.Second
		s.logger.DebugContext(ctx, "fetch failed, backing off",
			"collection", name, "attempt", attempt, "delay", delay, "error", lastErr)
		if err := s.opts.Sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("sync: %s: %w", name, lastErr)
}

// SetOnline records a connectivity transition. Going online resets the retry
// counter and triggers an immediate sync; going offline suspends scheduled
// retries until connectivity returns.
func (s *Service) SetOnline(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	ctx := s.baseCtx
	if online {
		s.retries = 0
		s.errMsg = ""
	} else {
		s.cancelRetryLocked()
	}
	s.mu.Unlock()

	s.logger.Info("connectivity changed", "online", online)
	if online {
		if ctx == nil {
			ctx = context.Background()
		}
		go func() { _ = s.SyncAll(ctx) }()
	}
}

// periodicSync is the cron callback; it skips silently while offline.
func (s *Service) periodicSync() {
	s.mu.Lock()
	ctx := s.baseCtx
	online := s.online
	s.mu.Unlock()
	if !online || ctx == nil {
		return
	}
	_ = s.SyncAll(ctx)
}

// scheduleRetryLocked arms a cancellable timer for the next whole-cycle retry
// while the retry budget lasts. Callers hold s.mu.
func (s *Service) scheduleRetryLocked() {
	if !s.online || s.retries <= 0 || s.retries >= s.opts.MaxAutoRetries {
		return
	}
	s.cancelRetryLocked()

	delay := s.opts.RetryBase * time.Duration(1<<uint(s.retries-1))
	ctx := s.baseCtx
	s.retryTimer = s.opts.After(delay, func() {
		if ctx == nil {
			return
		}
		_ = s.SyncAll(ctx)
	})
	s.logger.Info("retry scheduled", "delay", delay, "retry_count", s.retries)
}

func (s *Service) cancelRetryLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// AddEvent applies an optimistic local insert without waiting for the server.
func (s *Service) AddEvent(event application.EnrichedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.pendingEvents[event.ID] = pendingEvent{op: pendingAdd, event: event, appliedAt: s.opts.Now()}
}

// UpdateEvent applies an optimistic local edit to a cached event.
func (s *Service) UpdateEvent(event application.EnrichedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == event.ID {
			s.events[i] = event
			s.pendingEvents[event.ID] = pendingEvent{op: pendingUpdate, event: event, appliedAt: s.opts.Now()}
			return
		}
	}
}

// RemoveEvent applies an optimistic local removal of a cached event.
func (s *Service) RemoveEvent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			break
		}
	}
	s.pendingEvents[id] = pendingEvent{op: pendingRemove, appliedAt: s.opts.Now()}
}

// AddTrainer applies an optimistic local insert to the trainer roster.
func (s *Service) AddTrainer(trainer application.Trainer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trainers = append(s.trainers, trainer)
	s.pendingTrainers[trainer.ID] = pendingTrainer{op: pendingAdd, trainer: trainer, appliedAt: s.opts.Now()}
}

// UpdateTrainer applies an optimistic local edit to a cached trainer.
func (s *Service) UpdateTrainer(trainer application.Trainer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.trainers {
		if s.trainers[i].ID == trainer.ID {
			s.trainers[i] = trainer
			s.pendingTrainers[trainer.ID] = pendingTrainer{op: pendingUpdate, trainer: trainer, appliedAt: s.opts.Now()}
			return
		}
	}
}

// RemoveTrainer applies an optimistic local removal of a cached trainer.
func (s *Service) RemoveTrainer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.trainers {
		if s.trainers[i].ID == id {
			s.trainers = append(s.trainers[:i], s.trainers[i+1:]...)
			break
		}
	}
	s.pendingTrainers[id] = pendingTrainer{op: pendingRemove, appliedAt: s.opts.Now()}
}

// Events returns a snapshot of the cached event listing.
func (s *Service) Events() []application.EnrichedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]application.EnrichedEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Trainers returns a snapshot of the cached trainer roster.
func (s *Service) Trainers() []application.Trainer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]application.Trainer, len(s.trainers))
	copy(out, s.trainers)
	return out
}

// Clients returns a snapshot of the cached client roster.
func (s *Service) Clients() []application.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]application.Client, len(s.clients))
	copy(out, s.clients)
	return out
}

// Products returns a snapshot of the cached catalog.
func (s *Service) Products() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Stats returns the cached aggregate statistics.
func (s *Service) Stats() application.ScheduleStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LastSync reports when the last sync cycle settled.
func (s *Service) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// Loading reports whether a sync cycle is in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the aggregated error message of the last cycle, empty on success.
func (s *Service) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// IsOnline reports the current connectivity assumption.
func (s *Service) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// RetryCount reports consecutive failed sync cycles.
func (s *Service) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
