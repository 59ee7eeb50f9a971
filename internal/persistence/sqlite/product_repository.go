package sqlite

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/example/fitclub-scheduler/internal/persistence"
)

// ProductRepository implements persistence.ProductRepository on SQLite.
type ProductRepository struct {
	store *Store
}

// NewProductRepository binds the repository to a store.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

// CreateProduct stores a new catalog entry.
func (r *ProductRepository) CreateProduct(ctx context.Context, product persistence.Product) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, stock, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.Price,
		product.Stock,
		boolToInt(product.Active),
		formatTime(product.CreatedAt),
		formatTime(product.UpdatedAt),
	)
	return mapError(err)
}

// ListProducts returns all catalog entries in insertion order.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]persistence.Product, error) {
	query, args, err := r.store.builder.From("products").
		Select("id", "name", "price", "stock", "active", "created_at", "updated_at").
		Order(goqu.C("rowid").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build products query: %w", err)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []persistence.Product
	for rows.Next() {
		var (
			product                persistence.Product
			active                 int
			createdRaw, updatedRaw string
		)
		err := rows.Scan(&product.ID, &product.Name, &product.Price, &product.Stock,
			&active, &createdRaw, &updatedRaw)
		if err != nil {
			return nil, err
		}
		product.Active = active != 0
		if product.CreatedAt, err = parseTime(createdRaw); err != nil {
			return nil, err
		}
		if product.UpdatedAt, err = parseTime(updatedRaw); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}
