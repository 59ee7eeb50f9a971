package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/example/fitclub-scheduler/internal/persistence"
)

// ClientRepository implements persistence.ClientRepository on SQLite.
type ClientRepository struct {
	store *Store
}

// NewClientRepository binds the repository to a store.
func NewClientRepository(store *Store) *ClientRepository {
	return &ClientRepository{store: store}
}

// CreateClient stores a new club member.
func (r *ClientRepository) CreateClient(ctx context.Context, client persistence.Client) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, phone, membership, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.Email,
		client.Phone,
		client.Membership,
		formatTime(client.CreatedAt),
		formatTime(client.UpdatedAt),
	)
	return mapError(err)
}

// GetClient retrieves a club member by id.
func (r *ClientRepository) GetClient(ctx context.Context, id string) (persistence.Client, error) {
	query, args, err := r.store.builder.From("clients").
		Select(clientColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return persistence.Client{}, fmt.Errorf("sqlite: build client query: %w", err)
	}

	row := r.store.db.QueryRowContext(ctx, query, args...)
	client, err := scanClient(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Client{}, persistence.ErrNotFound
	}
	return client, err
}

// ListClients returns all club members in insertion order.
func (r *ClientRepository) ListClients(ctx context.Context) ([]persistence.Client, error) {
	query, args, err := r.store.builder.From("clients").
		Select(clientColumns...).
		Order(goqu.C("rowid").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build clients query: %w", err)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []persistence.Client
	for rows.Next() {
		client, err := scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

var clientColumns = []any{"id", "name", "email", "phone", "membership", "created_at", "updated_at"}

func scanClient(scan func(dest ...any) error) (persistence.Client, error) {
	var (
		client                 persistence.Client
		createdRaw, updatedRaw string
	)
	err := scan(&client.ID, &client.Name, &client.Email, &client.Phone,
		&client.Membership, &createdRaw, &updatedRaw)
	if err != nil {
		return persistence.Client{}, err
	}
	if client.CreatedAt, err = parseTime(createdRaw); err != nil {
		return persistence.Client{}, err
	}
	if client.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return persistence.Client{}, err
	}
	return client, nil
}
