package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/fitclub-scheduler/internal/application"
	"github.com/example/fitclub-scheduler/internal/config"
	httptransport "github.com/example/fitclub-scheduler/internal/http"
	"github.com/example/fitclub-scheduler/internal/persistence"
	"github.com/example/fitclub-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	eventRepo := newEventRepositoryAdapter(sqlite.NewEventRepository(storage))
	trainerDirectory := newTrainerDirectoryAdapter(sqlite.NewTrainerRepository(storage))
	clientDirectory := newClientDirectoryAdapter(sqlite.NewClientRepository(storage))
	productCatalog := newProductCatalogAdapter(sqlite.NewProductRepository(storage))

	capacity := application.CapacityPolicy{
		WorkingHoursPerDay: cfg.WorkingHoursPerDay,
		DaysPerWeek:        cfg.DaysPerWeek,
	}

	eventService := application.NewEventServiceWithLogger(eventRepo, trainerDirectory, clientDirectory, idGenerator, now, logger)
	queryService := application.NewQueryServiceWithLogger(eventRepo, trainerDirectory, clientDirectory, capacity, now, logger)
	bookingService := application.NewBookingServiceWithLogger(eventService, trainerDirectory, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Events:    httptransport.NewEventHandler(eventService, queryService, logger),
		Bookings:  httptransport.NewBookingHandler(bookingService, logger),
		Directory: httptransport.NewDirectoryHandler(trainerDirectory, clientDirectory, productCatalog, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Identity(),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("fitclub API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event, expectedVersion int64) (application.Event, error) {
	if err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event), expectedVersion); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEventStatus(ctx context.Context, id string, status application.EventStatus, updatedAt time.Time) error {
	return a.repo.UpdateEventStatus(ctx, id, persistence.EventStatus(status), updatedAt)
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, filter application.EventFilter) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx, persistence.EventFilter{
		From:      filter.From,
		To:        filter.To,
		TrainerID: filter.TrainerID,
		Status:    persistence.EventStatus(filter.Status),
	})
	if err != nil {
		return nil, err
	}
	return toApplicationEvents(models), nil
}

func (a *eventRepositoryAdapter) ListTrainerEvents(ctx context.Context, trainerID string) ([]application.Event, error) {
	models, err := a.repo.ListTrainerEvents(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	return toApplicationEvents(models), nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

type trainerDirectoryAdapter struct {
	repo persistence.TrainerRepository
}

func newTrainerDirectoryAdapter(repo persistence.TrainerRepository) *trainerDirectoryAdapter {
	return &trainerDirectoryAdapter{repo: repo}
}

func (a *trainerDirectoryAdapter) GetTrainer(ctx context.Context, id string) (application.Trainer, error) {
	stored, err := a.repo.GetTrainer(ctx, id)
	if err != nil {
		return application.Trainer{}, mapLookupError(err)
	}
	return toApplicationTrainer(stored), nil
}

func (a *trainerDirectoryAdapter) GetTrainerBySlug(ctx context.Context, slug string) (application.Trainer, error) {
	stored, err := a.repo.GetTrainerBySlug(ctx, slug)
	if err != nil {
		return application.Trainer{}, mapLookupError(err)
	}
	return toApplicationTrainer(stored), nil
}

func (a *trainerDirectoryAdapter) ListTrainers(ctx context.Context) ([]application.Trainer, error) {
	models, err := a.repo.ListTrainers(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	trainers := make([]application.Trainer, 0, len(models))
	for _, model := range models {
		trainers = append(trainers, toApplicationTrainer(model))
	}
	return trainers, nil
}

type clientDirectoryAdapter struct {
	repo persistence.ClientRepository
}

func newClientDirectoryAdapter(repo persistence.ClientRepository) *clientDirectoryAdapter {
	return &clientDirectoryAdapter{repo: repo}
}

func (a *clientDirectoryAdapter) GetClient(ctx context.Context, id string) (application.Client, error) {
	stored, err := a.repo.GetClient(ctx, id)
	if err != nil {
		return application.Client{}, mapLookupError(err)
	}
	return toApplicationClient(stored), nil
}

func (a *clientDirectoryAdapter) ListClients(ctx context.Context) ([]application.Client, error) {
	models, err := a.repo.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	clients := make([]application.Client, 0, len(models))
	for _, model := range models {
		clients = append(clients, toApplicationClient(model))
	}
	return clients, nil
}

type productCatalogAdapter struct {
	repo persistence.ProductRepository
}

func newProductCatalogAdapter(repo persistence.ProductRepository) *productCatalogAdapter {
	return &productCatalogAdapter{repo: repo}
}

func (a *productCatalogAdapter) ListProducts(ctx context.Context) ([]application.Product, error) {
	models, err := a.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	products := make([]application.Product, 0, len(models))
	for _, model := range models {
		products = append(products, application.Product{
			ID:     model.ID,
			Name:   model.Name,
			Price:  model.Price,
			Stock:  model.Stock,
			Active: model.Active,
		})
	}
	return products, nil
}

// mapLookupError keeps directory lookups speaking the application's sentinel
// vocabulary so callers can rely on errors.Is(err, application.ErrNotFound).
func mapLookupError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return application.ErrNotFound
	}
	return err
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Type:        application.EventType(model.Type),
		Start:       model.Start,
		End:         model.End,
		TrainerID:   model.TrainerID,
		ClientID:    cloneString(model.ClientID),
		Status:      application.EventStatus(model.Status),
		Location:    model.Location,
		Notes:       model.Notes,
		Price:       model.Price,
		Recurring:   toApplicationRecurrence(model.Recurring),
		CreatedAt:   model.CreatedAt,
		CreatedBy:   model.CreatedBy,
		UpdatedAt:   model.UpdatedAt,
		Version:     model.Version,
	}
}

func toApplicationEvents(models []persistence.Event) []application.Event {
	if len(models) == 0 {
		return nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Type:        string(event.Type),
		Start:       event.Start,
		End:         event.End,
		TrainerID:   event.TrainerID,
		ClientID:    cloneString(event.ClientID),
		Status:      persistence.EventStatus(event.Status),
		Location:    event.Location,
		Notes:       event.Notes,
		Price:       event.Price,
		Recurring:   toPersistenceRecurrence(event.Recurring),
		CreatedAt:   event.CreatedAt,
		CreatedBy:   event.CreatedBy,
		UpdatedAt:   event.UpdatedAt,
		Version:     event.Version,
	}
}

func toApplicationRecurrence(pattern *persistence.RecurrencePattern) *application.RecurrencePattern {
	if pattern == nil {
		return nil
	}
	return &application.RecurrencePattern{
		Cadence:    pattern.Cadence,
		Interval:   pattern.Interval,
		EndDate:    cloneTime(pattern.EndDate),
		DaysOfWeek: append([]int(nil), pattern.DaysOfWeek...),
	}
}

func toPersistenceRecurrence(pattern *application.RecurrencePattern) *persistence.RecurrencePattern {
	if pattern == nil {
		return nil
	}
	return &persistence.RecurrencePattern{
		Cadence:    pattern.Cadence,
		Interval:   pattern.Interval,
		EndDate:    cloneTime(pattern.EndDate),
		DaysOfWeek: append([]int(nil), pattern.DaysOfWeek...),
	}
}

func toApplicationTrainer(model persistence.Trainer) application.Trainer {
	return application.Trainer{
		ID:        model.ID,
		Name:      model.Name,
		Slug:      model.Slug,
		Email:     model.Email,
		Specialty: model.Specialty,
		Active:    model.Active,
	}
}

func toApplicationClient(model persistence.Client) application.Client {
	return application.Client{
		ID:         model.ID,
		Name:       model.Name,
		Email:      model.Email,
		Phone:      model.Phone,
		Membership: model.Membership,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
