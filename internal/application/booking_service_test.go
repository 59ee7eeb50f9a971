package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newBookingEnv() (*eventServiceEnv, *BookingService) {
	env := newEventServiceEnv()
	return env, NewBookingService(env.service, env.trainers)
}

func TestBookingService_ResolveTrainer(t *testing.T) {
	ctx := context.Background()
	_, bookings := newBookingEnv()

	t.Run("resolves by id", func(t *testing.T) {
		trainer, err := bookings.ResolveTrainer(ctx, "trainer-1")
		if err != nil {
			t.Fatalf("ResolveTrainer returned error: %v", err)
		}
		if trainer.ID != "trainer-1" {
			t.Fatalf("unexpected trainer %q", trainer.ID)
		}
	})

	t.Run("falls back to slug lookup", func(t *testing.T) {
		trainer, err := bookings.ResolveTrainer(ctx, "Anna Kowalska")
		if err != nil {
			t.Fatalf("ResolveTrainer returned error: %v", err)
		}
		if trainer.ID != "trainer-1" {
			t.Fatalf("unexpected trainer %q", trainer.ID)
		}
	})

	t.Run("falls back to a full scan on email", func(t *testing.T) {
		trainer, err := bookings.ResolveTrainer(ctx, "PIOTR@fitclub.example")
		if err != nil {
			t.Fatalf("ResolveTrainer returned error: %v", err)
		}
		if trainer.ID != "trainer-2" {
			t.Fatalf("unexpected trainer %q", trainer.ID)
		}
	})

	t.Run("scan matches a name when the stored slug diverges", func(t *testing.T) {
		env, bookings := newBookingEnv()
		env.trainers.trainers = append(env.trainers.trainers, Trainer{
			ID:   "trainer-3",
			Name: "Ewa Zielinska",
			Slug: "coach-ewa",
		})

		trainer, err := bookings.ResolveTrainer(ctx, "ewa zielinska")
		if err != nil {
			t.Fatalf("ResolveTrainer returned error: %v", err)
		}
		if trainer.ID != "trainer-3" {
			t.Fatalf("unexpected trainer %q", trainer.ID)
		}
	})

	t.Run("exhausted chain names every attempted strategy", func(t *testing.T) {
		_, err := bookings.ResolveTrainer(ctx, "ghost")
		var resErr *TrainerResolutionError
		if !errors.As(err, &resErr) {
			t.Fatalf("expected TrainerResolutionError, got %v", err)
		}
		if resErr.Reference != "ghost" {
			t.Fatalf("unexpected reference %q", resErr.Reference)
		}
		want := []string{"id", "slug", "scan"}
		if len(resErr.Attempted) != len(want) {
			t.Fatalf("unexpected attempts: %v", resErr.Attempted)
		}
		for i, strategy := range want {
			if resErr.Attempted[i] != strategy {
				t.Fatalf("expected attempt %d to be %q, got %v", i, strategy, resErr.Attempted)
			}
		}
		if !errors.Is(err, ErrNotFound) {
			t.Fatal("resolution failure should unwrap to ErrNotFound")
		}
	})

	t.Run("blank reference is a validation error", func(t *testing.T) {
		_, err := bookings.ResolveTrainer(ctx, "   ")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestBookingService_CreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an event with defaults applied", func(t *testing.T) {
		env, bookings := newBookingEnv()

		booking, err := bookings.CreateBooking(ctx, BookingRequest{
			Principal:  Principal{UserID: "user-1"},
			TrainerRef: "anna-kowalska",
			Date:       "2026-03-02",
			Time:       "10:00",
			Price:      "4 500 zł",
		})
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}

		if booking.TrainerID != "trainer-1" || booking.TrainerName != "Anna Kowalska" {
			t.Fatalf("unexpected trainer: %+v", booking)
		}
		wantStart := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
		if !booking.Start.Equal(wantStart) {
			t.Fatalf("unexpected start %v", booking.Start)
		}
		if !booking.End.Equal(wantStart.Add(DefaultBookingDuration)) {
			t.Fatalf("expected default 60m duration, got end %v", booking.End)
		}
		if booking.Status != EventStatusScheduled {
			t.Fatalf("expected status scheduled, got %q", booking.Status)
		}
		if booking.Price != 4500 {
			t.Fatalf("expected price 4500, got %d", booking.Price)
		}

		if len(env.repo.events) != 1 {
			t.Fatalf("expected 1 stored event, got %d", len(env.repo.events))
		}
		stored := env.repo.events[0]
		if stored.Type != EventTypeTraining {
			t.Fatalf("expected default type training, got %q", stored.Type)
		}
		if stored.Title != "Session with Anna Kowalska" {
			t.Fatalf("unexpected title %q", stored.Title)
		}
		if stored.CreatedBy != "user-1" {
			t.Fatalf("expected created_by user-1, got %q", stored.CreatedBy)
		}
	})

	t.Run("honors an explicit duration and type", func(t *testing.T) {
		env, bookings := newBookingEnv()

		booking, err := bookings.CreateBooking(ctx, BookingRequest{
			TrainerRef: "trainer-2",
			Date:       "2026-03-02",
			Time:       "08:30",
			Duration:   90 * time.Minute,
			Type:       EventTypeConsultation,
		})
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}
		if booking.End.Sub(booking.Start) != 90*time.Minute {
			t.Fatalf("expected 90m duration, got %v", booking.End.Sub(booking.Start))
		}
		if env.repo.events[0].Type != EventTypeConsultation {
			t.Fatalf("unexpected type %q", env.repo.events[0].Type)
		}
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		_, bookings := newBookingEnv()

		_, err := bookings.CreateBooking(ctx, BookingRequest{
			TrainerRef: "trainer-1",
			Date:       "03/02/2026",
			Time:       "10:00",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["date"]; !ok {
			t.Fatalf("expected date field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("propagates trainer resolution failure", func(t *testing.T) {
		_, bookings := newBookingEnv()

		_, err := bookings.CreateBooking(ctx, BookingRequest{
			TrainerRef: "ghost",
			Date:       "2026-03-02",
			Time:       "10:00",
		})
		var resErr *TrainerResolutionError
		if !errors.As(err, &resErr) {
			t.Fatalf("expected TrainerResolutionError, got %v", err)
		}
	})

	t.Run("propagates schedule conflicts", func(t *testing.T) {
		_, bookings := newBookingEnv()

		request := BookingRequest{
			TrainerRef: "trainer-1",
			Date:       "2026-03-02",
			Time:       "10:00",
		}
		if _, err := bookings.CreateBooking(ctx, request); err != nil {
			t.Fatalf("seed booking: %v", err)
		}
		request.Time = "10:30"
		if _, err := bookings.CreateBooking(ctx, request); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		display string
		want    int64
	}{
		{"4500", 4500},
		{"4 500 zł", 4500},
		{"$49.99", 4999},
		{"free", 0},
		{"", 0},
		{"0", 0},
		{"price: 120 PLN", 120},
		// Overflowing values are treated as unparsable.
		{"99999999999999999999", 0},
	}

	for _, tc := range cases {
		if got := ParsePrice(tc.display); got != tc.want {
			t.Fatalf("ParsePrice(%q) = %d, want %d", tc.display, got, tc.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"Anna Kowalska", "anna-kowalska"},
		{"  Piotr   Nowak  ", "piotr-nowak"},
		{"Coach #1 (HIIT)", "coach-1-hiit"},
		{"Łukasz", "łukasz"},
		{"already-a-slug", "already-a-slug"},
		{"---", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Slugify(tc.value); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
