package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fitclub-scheduler/internal/application"
	"github.com/example/fitclub-scheduler/internal/testfixtures"
)

type fakeTransport struct {
	events   []application.EnrichedEvent
	trainers []application.Trainer
	clients  []application.Client
	products []Product
	stats    application.ScheduleStats

	eventsErr   error
	trainersErr error
	clientsErr  error
	productsErr error
	statsErr    error

	eventCalls atomic.Int64
	statsCalls atomic.Int64
	synced     chan struct{}
}

func (f *fakeTransport) FetchEvents(ctx context.Context) ([]application.EnrichedEvent, error) {
	f.eventCalls.Add(1)
	if f.synced != nil {
		select {
		case f.synced <- struct{}{}:
		default:
		}
	}
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func (f *fakeTransport) FetchTrainers(ctx context.Context) ([]application.Trainer, error) {
	if f.trainersErr != nil {
		return nil, f.trainersErr
	}
	return f.trainers, nil
}

func (f *fakeTransport) FetchClients(ctx context.Context) ([]application.Client, error) {
	if f.clientsErr != nil {
		return nil, f.clientsErr
	}
	return f.clients, nil
}

func (f *fakeTransport) FetchProducts(ctx context.Context) ([]Product, error) {
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return f.products, nil
}

func (f *fakeTransport) FetchStats(ctx context.Context) (application.ScheduleStats, error) {
	f.statsCalls.Add(1)
	if f.statsErr != nil {
		return application.ScheduleStats{}, f.statsErr
	}
	return f.stats, nil
}

func newTestService(t *testing.T, transport Transport) (*Service, *[]time.Duration) {
	t.Helper()
	var delays []time.Duration
	svc := NewService(transport, Options{
		Now: testfixtures.NewClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)).NowFunc(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	})
	return svc, &delays
}

func TestSyncAllRefreshesAllCollections(t *testing.T) {
	transport := &fakeTransport{
		events:   []application.EnrichedEvent{{Event: application.Event{ID: "e1"}, TrainerName: "Anna"}},
		trainers: []application.Trainer{{ID: "t1", Name: "Anna"}},
		clients:  []application.Client{{ID: "c1", Name: "Bo"}},
		products: []Product{{ID: "p1", Name: "Pass"}},
		stats:    application.ScheduleStats{Total: 1},
	}
	svc, _ := newTestService(t, transport)

	require.NoError(t, svc.SyncAll(context.Background()))

	assert.Len(t, svc.Events(), 1)
	assert.Len(t, svc.Trainers(), 1)
	assert.Len(t, svc.Clients(), 1)
	assert.Len(t, svc.Products(), 1)
	assert.Equal(t, 1, svc.Stats().Total)
	assert.Empty(t, svc.Err())
	assert.False(t, svc.Loading())
	assert.False(t, svc.LastSync().IsZero())
	assert.Equal(t, 0, svc.RetryCount())
}

func TestSyncAllPartialFailureKeepsLastGoodState(t *testing.T) {
	transport := &fakeTransport{
		events:   []application.EnrichedEvent{{Event: application.Event{ID: "e1"}}},
		trainers: []application.Trainer{{ID: "t1"}},
		stats:    application.ScheduleStats{Total: 7},
	}
	svc, _ := newTestService(t, transport)
	require.NoError(t, svc.SyncAll(context.Background()))
	require.Equal(t, 7, svc.Stats().Total)

	transport.statsErr = errors.New("boom")
	transport.events = []application.EnrichedEvent{
		{Event: application.Event{ID: "e1"}},
		{Event: application.Event{ID: "e2"}},
	}

	err := svc.SyncAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stats")

	// Fresh collections landed even though one fetch failed.
	assert.Len(t, svc.Events(), 2)
	// The failed collection keeps its last-good value.
	assert.Equal(t, 7, svc.Stats().Total)
	assert.NotEmpty(t, svc.Err())
	assert.Equal(t, 1, svc.RetryCount())
	assert.False(t, svc.LastSync().IsZero())
}

func TestFetchWithRetryBacksOffExponentially(t *testing.T) {
	transport := &fakeTransport{}
	svc, delays := newTestService(t, transport)

	calls := 0
	err := svc.fetchWithRetry(context.Background(), "events", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, *delays, 2)
	assert.Equal(t, 2*time.Second, (*delays)[0])
	assert.Equal(t, 4*time.Second, (*delays)[1])
}

func TestFetchWithRetryExhaustsAttempts(t *testing.T) {
	transport := &fakeTransport{}
	svc, delays := newTestService(t, transport)

	err := svc.fetchWithRetry(context.Background(), "events", func(ctx context.Context) error {
		return errors.New("down")
	}, 3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "events")
	assert.Contains(t, err.Error(), "down")
	assert.Len(t, *delays, 2)
}

func TestSyncAllWhileOffline(t *testing.T) {
	transport := &fakeTransport{}
	svc, _ := newTestService(t, transport)
	svc.SetOnline(false)

	err := svc.SyncAll(context.Background())
	require.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, int64(0), transport.eventCalls.Load())
	assert.False(t, svc.IsOnline())
}

func TestSetOnlineTriggersImmediateSync(t *testing.T) {
	transport := &fakeTransport{synced: make(chan struct{}, 1)}
	svc, _ := newTestService(t, transport)

	svc.SetOnline(false)
	require.ErrorIs(t, svc.SyncAll(context.Background()), ErrOffline)

	svc.mu.Lock()
	svc.retries = 3
	svc.mu.Unlock()

	svc.SetOnline(true)
	select {
	case <-transport.synced:
	case <-time.After(2 * time.Second):
		t.Fatal("no sync after reconnect")
	}
	assert.Equal(t, 0, svc.RetryCount())
}

func TestFailedCyclesArmCappedAutoRetry(t *testing.T) {
	transport := &fakeTransport{eventsErr: errors.New("down")}

	var armed []time.Duration
	svc := NewService(transport, Options{
		MaxAttempts: 1,
		Now:         testfixtures.NewClock(time.Time{}).NowFunc(),
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
		After: func(d time.Duration, fn func()) *time.Timer {
			armed = append(armed, d)
			// Dormant timer; the test drives cycles directly.
			return time.NewTimer(time.Hour)
		},
	})

	// Each failed cycle arms the next retry with a doubled delay.
	for i := 1; i <= 4; i++ {
		require.Error(t, svc.SyncAll(context.Background()))
		require.Equal(t, i, svc.RetryCount())
		require.Len(t, armed, i)
		assert.Equal(t, DefaultRetryBase*time.Duration(1<<uint(i-1)), armed[i-1])
	}

	// The fifth consecutive failure exhausts the budget; nothing is armed.
	require.Error(t, svc.SyncAll(context.Background()))
	assert.Equal(t, 5, svc.RetryCount())
	assert.Len(t, armed, 4)

	// A successful cycle clears the counter and the schedule.
	transport.eventsErr = nil
	require.NoError(t, svc.SyncAll(context.Background()))
	assert.Equal(t, 0, svc.RetryCount())
	assert.Len(t, armed, 4)
}

func TestOptimisticEventSurvivesSlowSync(t *testing.T) {
	transport := &fakeTransport{
		events: []application.EnrichedEvent{{Event: application.Event{ID: "e1"}}},
	}
	svc, _ := newTestService(t, transport)
	require.NoError(t, svc.SyncAll(context.Background()))

	local := application.EnrichedEvent{Event: application.Event{ID: "local-1"}, TrainerName: "Anna"}
	svc.AddEvent(local)
	require.Len(t, svc.Events(), 2)

	// Server has not observed the add yet; the optimistic copy is retained.
	require.NoError(t, svc.SyncAll(context.Background()))
	events := svc.Events()
	require.Len(t, events, 2)

	// Once the server returns the record, the pending entry retires.
	transport.events = []application.EnrichedEvent{
		{Event: application.Event{ID: "e1"}},
		{Event: application.Event{ID: "local-1"}, TrainerName: "Anna"},
	}
	require.NoError(t, svc.SyncAll(context.Background()))
	require.Len(t, svc.Events(), 2)

	svc.mu.Lock()
	_, stillPending := svc.pendingEvents["local-1"]
	svc.mu.Unlock()
	assert.False(t, stillPending)
}

func TestOptimisticRemoveMasksServerCopy(t *testing.T) {
	transport := &fakeTransport{
		events: []application.EnrichedEvent{
			{Event: application.Event{ID: "e1"}},
			{Event: application.Event{ID: "e2"}},
		},
	}
	svc, _ := newTestService(t, transport)
	require.NoError(t, svc.SyncAll(context.Background()))

	svc.RemoveEvent("e1")
	require.Len(t, svc.Events(), 1)

	// A sync that still carries the removed record keeps it hidden.
	require.NoError(t, svc.SyncAll(context.Background()))
	events := svc.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "e2", events[0].ID)

	// Once the server drops it, the ledger entry retires.
	transport.events = []application.EnrichedEvent{{Event: application.Event{ID: "e2"}}}
	require.NoError(t, svc.SyncAll(context.Background()))
	svc.mu.Lock()
	_, stillPending := svc.pendingEvents["e1"]
	svc.mu.Unlock()
	assert.False(t, stillPending)
}

func TestSyncSingleCollection(t *testing.T) {
	transport := &fakeTransport{
		trainers: []application.Trainer{{ID: "t1", Name: "Anna"}},
	}
	svc, _ := newTestService(t, transport)

	require.NoError(t, svc.SyncTrainers(context.Background()))
	assert.Len(t, svc.Trainers(), 1)
	assert.Empty(t, svc.Events())
	assert.Equal(t, int64(0), transport.eventCalls.Load())
}

func TestConcurrentSyncCoalesces(t *testing.T) {
	release := make(chan struct{})
	transport := &blockingTransport{release: release, started: make(chan struct{})}
	svc, _ := newTestService(t, transport)

	done := make(chan error, 2)
	go func() { done <- svc.SyncAll(context.Background()) }()

	// Wait for the first cycle to start fetching.
	<-transport.started

	go func() { done <- svc.SyncAll(context.Background()) }()
	// The second call must return immediately as a no-op.
	require.NoError(t, <-done)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), transport.statsCalls.Load())
}

type blockingTransport struct {
	fakeTransport
	release chan struct{}
	started chan struct{}
	once    atomic.Bool
}

func (b *blockingTransport) FetchStats(ctx context.Context) (application.ScheduleStats, error) {
	if b.once.CompareAndSwap(false, true) {
		close(b.started)
	}
	<-b.release
	return b.fakeTransport.FetchStats(ctx)
}
