package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/fitclub-scheduler/internal/persistence"
)

var (
	trainerCounter uint64
	clientCounter  uint64
	eventCounter   uint64
	productCounter uint64
)

var referenceTime = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// TrainerFixture builds a deterministic trainer record. Overrides mutate the
// returned value before use.
func TrainerFixture(overrides ...func(*persistence.Trainer)) persistence.Trainer {
	n := atomic.AddUint64(&trainerCounter, 1)
	trainer := persistence.Trainer{
		ID:        fmt.Sprintf("trainer-%d", n),
		Name:      fmt.Sprintf("Trainer %d", n),
		Slug:      fmt.Sprintf("trainer-%d", n),
		Email:     fmt.Sprintf("trainer%d@fitclub.test", n),
		Specialty: "strength",
		Active:    true,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, override := range overrides {
		override(&trainer)
	}
	return trainer
}

// ClientFixture builds a deterministic club member record.
func ClientFixture(overrides ...func(*persistence.Client)) persistence.Client {
	n := atomic.AddUint64(&clientCounter, 1)
	client := persistence.Client{
		ID:         fmt.Sprintf("client-%d", n),
		Name:       fmt.Sprintf("Client %d", n),
		Email:      fmt.Sprintf("client%d@fitclub.test", n),
		Membership: "monthly",
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, override := range overrides {
		override(&client)
	}
	return client
}

// EventFixture builds a deterministic event owned by the given trainer. Each
// call shifts the interval forward by two hours so fixtures never collide with
// each other unless a test overrides the window on purpose.
func EventFixture(trainerID string, overrides ...func(*persistence.Event)) persistence.Event {
	n := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(time.Duration(n) * 2 * time.Hour)
	event := persistence.Event{
		ID:        fmt.Sprintf("event-%d", n),
		Title:     fmt.Sprintf("Session %d", n),
		Type:      "training",
		Start:     start,
		End:       start.Add(time.Hour),
		TrainerID: trainerID,
		Status:    persistence.EventStatusScheduled,
		Price:     4500,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
		Version:   1,
	}
	for _, override := range overrides {
		override(&event)
	}
	return event
}

// ProductFixture builds a deterministic catalog entry.
func ProductFixture(overrides ...func(*persistence.Product)) persistence.Product {
	n := atomic.AddUint64(&productCounter, 1)
	product := persistence.Product{
		ID:        fmt.Sprintf("product-%d", n),
		Name:      fmt.Sprintf("Product %d", n),
		Price:     1500,
		Stock:     10,
		Active:    true,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, override := range overrides {
		override(&product)
	}
	return product
}
