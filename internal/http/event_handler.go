package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/fitclub-scheduler/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	TransitionStatus(ctx context.Context, id string, next application.EventStatus) (application.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

type queryService interface {
	ListEvents(ctx context.Context, filter application.EventFilter) ([]application.EnrichedEvent, error)
	GetStats(ctx context.Context, period *application.StatsPeriod) (application.ScheduleStats, error)
}

type EventHandler struct {
	service   eventService
	queries   queryService
	responder responder
}

func NewEventHandler(service eventService, queries queryService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, queries: queries, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Patch:     req.toPatch(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.TransitionStatus(r.Context(), eventID, application.EventStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	if err := h.service.DeleteEvent(r.Context(), eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	events, err := h.queries.ListEvents(r.Context(), buildEventFilter(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEnrichedEventDTOs(events)})
}

func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	stats, err := h.queries.GetStats(r.Context(), buildStatsPeriod(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.responder.logger, "events", "stats").DebugContext(r.Context(), "stats computed", "total", stats.Total)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toStatsDTO(stats))
}

type eventRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	TrainerID   string         `json:"trainer_id"`
	ClientID    *string        `json:"client_id"`
	Location    string         `json:"location"`
	Notes       string         `json:"notes"`
	Price       int64          `json:"price"`
	Recurring   *recurrenceDTO `json:"recurring"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Type:        application.EventType(strings.TrimSpace(r.Type)),
		Start:       parseTime(r.Start),
		End:         parseTime(r.End),
		TrainerID:   strings.TrimSpace(r.TrainerID),
		ClientID:    r.ClientID,
		Location:    strings.TrimSpace(r.Location),
		Notes:       r.Notes,
		Price:       r.Price,
		Recurring:   r.Recurring.toPattern(),
	}
}

type eventPatchRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Type        *string        `json:"type"`
	Start       *string        `json:"start"`
	End         *string        `json:"end"`
	TrainerID   *string        `json:"trainer_id"`
	ClientID    *string        `json:"client_id"`
	Location    *string        `json:"location"`
	Notes       *string        `json:"notes"`
	Price       *int64         `json:"price"`
	Recurring   *recurrenceDTO `json:"recurring"`
}

func (r eventPatchRequest) toPatch() application.EventPatch {
	patch := application.EventPatch{
		Title:       r.Title,
		Description: r.Description,
		TrainerID:   r.TrainerID,
		ClientID:    r.ClientID,
		Location:    r.Location,
		Notes:       r.Notes,
		Price:       r.Price,
		Recurring:   r.Recurring.toPattern(),
	}
	if r.Type != nil {
		eventType := application.EventType(strings.TrimSpace(*r.Type))
		patch.Type = &eventType
	}
	if r.Start != nil {
		start := parseTime(*r.Start)
		patch.Start = &start
	}
	if r.End != nil {
		end := parseTime(*r.End)
		patch.End = &end
	}
	return patch
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	TrainerID   string         `json:"trainer_id"`
	TrainerName string         `json:"trainer_name,omitempty"`
	ClientID    *string        `json:"client_id,omitempty"`
	ClientName  string         `json:"client_name,omitempty"`
	Status      string         `json:"status"`
	Location    string         `json:"location,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Price       int64          `json:"price"`
	Recurring   *recurrenceDTO `json:"recurring,omitempty"`
	CreatedAt   string         `json:"created_at"`
	CreatedBy   string         `json:"created_by,omitempty"`
	UpdatedAt   string         `json:"updated_at"`
	Version     int64          `json:"version"`
}

type recurrenceDTO struct {
	Cadence    string `json:"cadence"`
	Interval   int    `json:"interval"`
	EndDate    string `json:"end_date,omitempty"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
}

func (r *recurrenceDTO) toPattern() *application.RecurrencePattern {
	if r == nil {
		return nil
	}
	pattern := &application.RecurrencePattern{
		Cadence:    strings.TrimSpace(r.Cadence),
		Interval:   r.Interval,
		DaysOfWeek: append([]int(nil), r.DaysOfWeek...),
	}
	if end := parseTime(r.EndDate); !end.IsZero() {
		pattern.EndDate = &end
	}
	return pattern
}

func toRecurrenceDTO(pattern *application.RecurrencePattern) *recurrenceDTO {
	if pattern == nil {
		return nil
	}
	dto := &recurrenceDTO{
		Cadence:    pattern.Cadence,
		Interval:   pattern.Interval,
		DaysOfWeek: append([]int(nil), pattern.DaysOfWeek...),
	}
	if pattern.EndDate != nil {
		dto.EndDate = pattern.EndDate.UTC().Format(time.RFC3339)
	}
	return dto
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Type:        string(event.Type),
		Start:       event.Start.UTC().Format(time.RFC3339),
		End:         event.End.UTC().Format(time.RFC3339),
		TrainerID:   event.TrainerID,
		ClientID:    event.ClientID,
		Status:      string(event.Status),
		Location:    event.Location,
		Notes:       event.Notes,
		Price:       event.Price,
		Recurring:   toRecurrenceDTO(event.Recurring),
		CreatedAt:   event.CreatedAt.UTC().Format(time.RFC3339),
		CreatedBy:   event.CreatedBy,
		UpdatedAt:   event.UpdatedAt.UTC().Format(time.RFC3339),
		Version:     event.Version,
	}
}

func toEnrichedEventDTOs(events []application.EnrichedEvent) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		dto := toEventDTO(event.Event)
		dto.TrainerName = event.TrainerName
		dto.ClientName = event.ClientName
		out = append(out, dto)
	}
	return out
}

type statsDTO struct {
	Total                  int            `json:"total"`
	Today                  int            `json:"today"`
	Upcoming               int            `json:"upcoming"`
	Completed              int            `json:"completed"`
	Cancelled              int            `json:"cancelled"`
	Pending                int            `json:"pending"`
	Overdue                int            `json:"overdue"`
	ByTrainer              map[string]int `json:"by_trainer"`
	ByType                 map[string]int `json:"by_type"`
	ByStatus               map[string]int `json:"by_status"`
	UtilizationRate        float64        `json:"utilization_rate"`
	BusyHours              map[int]int    `json:"busy_hours"`
	AverageDurationMinutes float64        `json:"average_duration_minutes"`
}

func toStatsDTO(stats application.ScheduleStats) statsDTO {
	return statsDTO{
		Total:                  stats.Total,
		Today:                  stats.Today,
		Upcoming:               stats.Upcoming,
		Completed:              stats.Completed,
		Cancelled:              stats.Cancelled,
		Pending:                stats.Pending,
		Overdue:                stats.Overdue,
		ByTrainer:              stats.ByTrainer,
		ByType:                 stats.ByType,
		ByStatus:               stats.ByStatus,
		UtilizationRate:        stats.UtilizationRate,
		BusyHours:              stats.BusyHours,
		AverageDurationMinutes: stats.AverageDurationMinutes,
	}
}

func buildEventFilter(values url.Values) application.EventFilter {
	filter := application.EventFilter{
		TrainerID: strings.TrimSpace(values.Get("trainer_id")),
		Status:    application.EventStatus(strings.TrimSpace(values.Get("status"))),
	}
	if from := parseTime(values.Get("from")); !from.IsZero() {
		filter.From = &from
	}
	if to := parseTime(values.Get("to")); !to.IsZero() {
		filter.To = &to
	}
	return filter
}

func buildStatsPeriod(values url.Values) *application.StatsPeriod {
	from := parseTime(values.Get("from"))
	to := parseTime(values.Get("to"))
	if from.IsZero() && to.IsZero() {
		return nil
	}
	return &application.StatsPeriod{From: from, To: to}
}
