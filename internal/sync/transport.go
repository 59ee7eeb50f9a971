package sync

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/example/fitclub-scheduler/internal/application"
)

// Product is the catalog entry shape tracked by the local cache.
type Product struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Stock  int    `json:"stock"`
	Active bool   `json:"active"`
}

// Transport fetches the authoritative collections. Implementations must be
// safe for concurrent use; the sync fan-out calls them in parallel.
type Transport interface {
	FetchEvents(ctx context.Context) ([]application.EnrichedEvent, error)
	FetchTrainers(ctx context.Context) ([]application.Trainer, error)
	FetchClients(ctx context.Context) ([]application.Client, error)
	FetchProducts(ctx context.Context) ([]Product, error)
	FetchStats(ctx context.Context) (application.ScheduleStats, error)
}

var json = jsoniter.ConfigFastest

// HTTPTransport consumes the scheduling server's read endpoints.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport builds a transport against baseURL. When client is nil a
// default with a per-request timeout is used; timeouts are per collection,
// never global across a fan-out.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPTransport{baseURL: baseURL, client: client}
}

type wireEvent struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	TrainerID   string     `json:"trainer_id"`
	TrainerName string     `json:"trainer_name"`
	ClientID    *string    `json:"client_id,omitempty"`
	ClientName  string     `json:"client_name,omitempty"`
	Status      string     `json:"status"`
	Location    string     `json:"location,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Price       int64      `json:"price"`
	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   string     `json:"created_by,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int64      `json:"version"`
}

type wireTrainer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Email     string `json:"email,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	Active    bool   `json:"active"`
}

type wireClient struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Membership string `json:"membership,omitempty"`
}

type wireStats struct {
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
	BusyHours              map[string]int `json:"busy_hours"`
	AverageDurationMinutes float64        `json:"average_duration_minutes"`
}

// FetchEvents retrieves the enriched event listing.
func (t *HTTPTransport) FetchEvents(ctx context.Context) ([]application.EnrichedEvent, error) {
	var payload struct {
		Events []wireEvent `json:"events"`
	}
	if err := t.get(ctx, "/events", &payload); err != nil {
		return nil, err
	}

	events := make([]application.EnrichedEvent, 0, len(payload.Events))
	for _, w := range payload.Events {
		events = append(events, application.EnrichedEvent{
			Event: application.Event{
				ID:          w.ID,
				Title:       w.Title,
				Description: w.Description,
				Type:        application.EventType(w.Type),
				Start:       w.Start,
				End:         w.End,
				TrainerID:   w.TrainerID,
				ClientID:    w.ClientID,
				Status:      application.EventStatus(w.Status),
				Location:    w.Location,
				Notes:       w.Notes,
				Price:       w.Price,
				CreatedAt:   w.CreatedAt,
				CreatedBy:   w.CreatedBy,
				UpdatedAt:   w.UpdatedAt,
				Version:     w.Version,
			},
			TrainerName: w.TrainerName,
			ClientName:  w.ClientName,
		})
	}
	return events, nil
}

// FetchTrainers retrieves the trainer roster.
func (t *HTTPTransport) FetchTrainers(ctx context.Context) ([]application.Trainer, error) {
	var payload struct {
		Trainers []wireTrainer `json:"trainers"`
	}
	if err := t.get(ctx, "/trainers", &payload); err != nil {
		return nil, err
	}

	trainers := make([]application.Trainer, 0, len(payload.Trainers))
	for _, w := range payload.Trainers {
		trainers = append(trainers, application.Trainer{
			ID:        w.ID,
			Name:      w.Name,
			Slug:      w.Slug,
			Email:     w.Email,
			Specialty: w.Specialty,
			Active:    w.Active,
		})
	}
	return trainers, nil
}

// FetchClients retrieves the club member roster.
func (t *HTTPTransport) FetchClients(ctx context.Context) ([]application.Client, error) {
	var payload struct {
		Clients []wireClient `json:"clients"`
	}
	if err := t.get(ctx, "/clients", &payload); err != nil {
		return nil, err
	}

	clients := make([]application.Client, 0, len(payload.Clients))
	for _, w := range payload.Clients {
		clients = append(clients, application.Client{
			ID:         w.ID,
			Name:       w.Name,
			Email:      w.Email,
			Phone:      w.Phone,
			Membership: w.Membership,
		})
	}
	return clients, nil
}

// FetchProducts retrieves the catalog.
func (t *HTTPTransport) FetchProducts(ctx context.Context) ([]Product, error) {
	var payload struct {
		Products []Product `json:"products"`
	}
	if err := t.get(ctx, "/products", &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

// FetchStats retrieves the aggregate schedule statistics.
func (t *HTTPTransport) FetchStats(ctx context.Context) (application.ScheduleStats, error) {
	var w wireStats
	if err := t.get(ctx, "/events/stats", &w); err != nil {
		return application.ScheduleStats{}, err
	}

	busyHours := make(map[int]int, len(w.BusyHours))
	for key, count := range w.BusyHours {
		hour, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		busyHours[hour] = count
	}

	return application.ScheduleStats{
		Total:                  w.Total,
		Today:                  w.Today,
		Upcoming:               w.Upcoming,
		Completed:              w.Completed,
		Cancelled:              w.Cancelled,
		Pending:                w.Pending,
		Overdue:                w.Overdue,
		ByTrainer:              w.ByTrainer,
		ByType:                 w.ByType,
		ByStatus:               w.ByStatus,
		UtilizationRate:        w.UtilizationRate,
		BusyHours:              busyHours,
		AverageDurationMinutes: w.AverageDurationMinutes,
	}, nil
}

func (t *HTTPTransport) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("sync: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sync: fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sync: fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sync: decode %s: %w", path, err)
	}
	return nil
}
