package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/fitclub-scheduler/internal/application"
)

type stubEventService struct {
	createResult application.Event
	createErr    error
	createParams *application.CreateEventParams

	updateResult application.Event
	updateErr    error

	transitionResult application.Event
	transitionErr    error
	transitionStatus application.EventStatus

	deleteErr error
}

func (s *stubEventService) CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error) {
	s.createParams = &params
	return s.createResult, s.createErr
}

func (s *stubEventService) UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error) {
	return s.updateResult, s.updateErr
}

func (s *stubEventService) TransitionStatus(ctx context.Context, id string, next application.EventStatus) (application.Event, error) {
	s.transitionStatus = next
	return s.transitionResult, s.transitionErr
}

func (s *stubEventService) DeleteEvent(ctx context.Context, id string) error {
	return s.deleteErr
}

type stubQueryService struct {
	listResult []application.EnrichedEvent
	listErr    error
	listFilter application.EventFilter

	statsResult application.ScheduleStats
	statsErr    error
}

func (s *stubQueryService) ListEvents(ctx context.Context, filter application.EventFilter) ([]application.EnrichedEvent, error) {
	s.listFilter = filter
	return s.listResult, s.listErr
}

func (s *stubQueryService) GetStats(ctx context.Context, period *application.StatsPeriod) (application.ScheduleStats, error) {
	return s.statsResult, s.statsErr
}

type stubBookingService struct {
	result  application.Booking
	err     error
	request *application.BookingRequest
}

func (s *stubBookingService) CreateBooking(ctx context.Context, req application.BookingRequest) (application.Booking, error) {
	s.request = &req
	return s.result, s.err
}

func newTestRouter(events *stubEventService, queries *stubQueryService, bookings *stubBookingService) http.Handler {
	cfg := RouterConfig{
		Middleware: []func(http.Handler) http.Handler{Identity()},
	}
	if events != nil || queries != nil {
		cfg.Events = NewEventHandler(events, queries, nil)
	}
	if bookings != nil {
		cfg.Bookings = NewBookingHandler(bookings, nil)
	}
	return NewRouter(cfg)
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestEventHandlers(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	t.Run("create returns 201 with the persisted event", func(t *testing.T) {
		t.Parallel()

		events := &stubEventService{createResult: application.Event{
			ID:        "evt-1",
			Title:     "Morning session",
			Type:      application.EventTypeTraining,
			Start:     start,
			End:       start.Add(time.Hour),
			TrainerID: "t1",
			Status:    application.EventStatusScheduled,
			Version:   1,
		}}
		router := newTestRouter(events, &stubQueryService{}, nil)

		body := `{"title":"Morning session","type":"training","start":"2024-03-04T09:00:00Z","end":"2024-03-04T10:00:00Z","trainer_id":"t1"}`
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
		req.Header.Set(HeaderUserID, "user-9")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var payload struct {
			Event struct {
				ID      string `json:"id"`
				Status  string `json:"status"`
				Version int64  `json:"version"`
			} `json:"event"`
		}
		decodeBody(t, recorder, &payload)
		if payload.Event.ID != "evt-1" || payload.Event.Status != "scheduled" || payload.Event.Version != 1 {
			t.Fatalf("unexpected payload: %+v", payload)
		}

		if events.createParams == nil {
			t.Fatal("service not invoked")
		}
		if events.createParams.Principal.UserID != "user-9" {
			t.Fatalf("expected identity header to reach service, got %q", events.createParams.Principal.UserID)
		}
		if !events.createParams.Input.Start.Equal(start) {
			t.Fatalf("unexpected start: %v", events.createParams.Input.Start)
		}
	})

	t.Run("validation failures map to 422 with field detail", func(t *testing.T) {
		t.Parallel()

		vErr := &application.ValidationError{FieldErrors: map[string]string{"time": "end must be after start"}}
		router := newTestRouter(&stubEventService{createErr: vErr}, &stubQueryService{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", recorder.Code)
		}

		var payload struct {
			Errors map[string]string `json:"errors"`
		}
		decodeBody(t, recorder, &payload)
		if payload.Errors["time"] != "end must be after start" {
			t.Fatalf("unexpected errors: %v", payload.Errors)
		}
	})

	t.Run("schedule conflicts map to 409", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&stubEventService{createErr: application.ErrConflict}, &stubQueryService{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", recorder.Code)
		}

		var payload struct {
			ErrorCode string `json:"error_code"`
		}
		decodeBody(t, recorder, &payload)
		if payload.ErrorCode != "SCHEDULE_CONFLICT" {
			t.Fatalf("unexpected error code %q", payload.ErrorCode)
		}
	})

	t.Run("rejected transitions map to 409 with detail", func(t *testing.T) {
		t.Parallel()

		events := &stubEventService{transitionErr: fmt.Errorf("%w: completed -> scheduled", application.ErrInvalidTransition)}
		router := newTestRouter(events, &stubQueryService{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/events/evt-1/status", strings.NewReader(`{"status":"scheduled"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", recorder.Code)
		}

		var payload struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		}
		decodeBody(t, recorder, &payload)
		if payload.ErrorCode != "INVALID_TRANSITION" {
			t.Fatalf("unexpected error code %q", payload.ErrorCode)
		}
		if !strings.Contains(payload.Message, "completed -> scheduled") {
			t.Fatalf("expected transition pair in message, got %q", payload.Message)
		}
	})

	t.Run("status endpoint forwards the requested state", func(t *testing.T) {
		t.Parallel()

		events := &stubEventService{transitionResult: application.Event{ID: "evt-1", Status: application.EventStatusConfirmed}}
		router := newTestRouter(events, &stubQueryService{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/events/evt-1/status", strings.NewReader(`{"status":"confirmed"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if events.transitionStatus != application.EventStatusConfirmed {
			t.Fatalf("unexpected status forwarded: %q", events.transitionStatus)
		}
	})

	t.Run("missing events map to 404", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&stubEventService{updateErr: application.ErrNotFound}, &stubQueryService{}, nil)

		req := httptest.NewRequest(http.MethodPut, "/events/missing", strings.NewReader(`{}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
	})

	t.Run("delete returns 204", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&stubEventService{}, &stubQueryService{}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/events/evt-1", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
	})

	t.Run("list maps query parameters to the filter", func(t *testing.T) {
		t.Parallel()

		queries := &stubQueryService{listResult: []application.EnrichedEvent{{
			Event: application.Event{
				ID:        "evt-1",
				Title:     "Morning session",
				Type:      application.EventTypeTraining,
				Start:     start,
				End:       start.Add(time.Hour),
				TrainerID: "t1",
				Status:    application.EventStatusScheduled,
			},
			TrainerName: "Anna",
		}}}
		router := newTestRouter(&stubEventService{}, queries, nil)

		req := httptest.NewRequest(http.MethodGet, "/events?from=2024-03-01T00:00:00Z&to=2024-03-31T00:00:00Z&trainer_id=t1&status=scheduled", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if queries.listFilter.TrainerID != "t1" || queries.listFilter.Status != application.EventStatusScheduled {
			t.Fatalf("unexpected filter: %+v", queries.listFilter)
		}
		if queries.listFilter.From == nil || queries.listFilter.To == nil {
			t.Fatal("expected both time bounds to be set")
		}

		var payload struct {
			Events []struct {
				ID          string `json:"id"`
				TrainerName string `json:"trainer_name"`
			} `json:"events"`
		}
		decodeBody(t, recorder, &payload)
		if len(payload.Events) != 1 || payload.Events[0].TrainerName != "Anna" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	})

	t.Run("stats serializes busy hours with string keys", func(t *testing.T) {
		t.Parallel()

		queries := &stubQueryService{statsResult: application.ScheduleStats{
			Total:           3,
			UtilizationRate: 42.5,
			BusyHours:       map[int]int{9: 2, 17: 1},
		}}
		router := newTestRouter(&stubEventService{}, queries, nil)

		req := httptest.NewRequest(http.MethodGet, "/events/stats", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}

		var payload struct {
			Total           int            `json:"total"`
			UtilizationRate float64        `json:"utilization_rate"`
			BusyHours       map[string]int `json:"busy_hours"`
		}
		decodeBody(t, recorder, &payload)
		if payload.Total != 3 || payload.UtilizationRate != 42.5 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
		if payload.BusyHours["9"] != 2 || payload.BusyHours["17"] != 1 {
			t.Fatalf("unexpected busy hours: %v", payload.BusyHours)
		}
	})

	t.Run("unsupported methods return 405 with Allow header", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&stubEventService{}, &stubQueryService{}, nil)

		req := httptest.NewRequest(http.MethodPatch, "/events", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", recorder.Code)
		}
		if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
			t.Fatalf("unexpected Allow header %q", allow)
		}
	})
}

func TestBookingHandler(t *testing.T) {
	t.Parallel()

	t.Run("create returns 201 with the booking projection", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
		bookings := &stubBookingService{result: application.Booking{
			EventID:     "evt-1",
			TrainerID:   "t1",
			TrainerName: "Anna",
			Start:       start,
			End:         start.Add(time.Hour),
			Status:      application.EventStatusScheduled,
			Price:       4500,
		}}
		router := newTestRouter(nil, nil, bookings)

		body := `{"trainer":"anna","date":"2024-03-04","time":"09:00","duration_minutes":60,"price":"45.00"}`
		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
		req.Header.Set(HeaderUserID, "user-9")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var payload struct {
			Booking struct {
				EventID     string `json:"event_id"`
				TrainerName string `json:"trainer_name"`
				Price       int64  `json:"price"`
			} `json:"booking"`
		}
		decodeBody(t, recorder, &payload)
		if payload.Booking.EventID != "evt-1" || payload.Booking.TrainerName != "Anna" || payload.Booking.Price != 4500 {
			t.Fatalf("unexpected payload: %+v", payload)
		}

		if bookings.request == nil {
			t.Fatal("service not invoked")
		}
		if bookings.request.TrainerRef != "anna" || bookings.request.Duration != time.Hour {
			t.Fatalf("unexpected request: %+v", bookings.request)
		}
		if bookings.request.Principal.UserID != "user-9" {
			t.Fatalf("expected identity header to reach service, got %q", bookings.request.Principal.UserID)
		}
	})

	t.Run("unresolved trainers map to 404 naming the attempts", func(t *testing.T) {
		t.Parallel()

		bookings := &stubBookingService{err: &application.TrainerResolutionError{
			Reference: "ghost",
			Attempted: []string{"id", "slug", "scan"},
		}}
		router := newTestRouter(nil, nil, bookings)

		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"trainer":"ghost","date":"2024-03-04","time":"09:00"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}

		var payload struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		}
		decodeBody(t, recorder, &payload)
		if payload.ErrorCode != "TRAINER_NOT_FOUND" {
			t.Fatalf("unexpected error code %q", payload.ErrorCode)
		}
		if !strings.Contains(payload.Message, "ghost") || !strings.Contains(payload.Message, "scan") {
			t.Fatalf("expected reference and attempts in message, got %q", payload.Message)
		}
	})

	t.Run("malformed bodies map to 400", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(nil, nil, &stubBookingService{})

		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})
}
