package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/example/fitclub-scheduler/internal/persistence"
)

// TrainerRepository implements persistence.TrainerRepository on SQLite.
type TrainerRepository struct {
	store *Store
}

// NewTrainerRepository binds the repository to a store.
func NewTrainerRepository(store *Store) *TrainerRepository {
	return &TrainerRepository{store: store}
}

// CreateTrainer stores a new trainer.
func (r *TrainerRepository) CreateTrainer(ctx context.Context, trainer persistence.Trainer) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO trainers (id, name, slug, email, specialty, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trainer.ID,
		trainer.Name,
		trainer.Slug,
		trainer.Email,
		trainer.Specialty,
		boolToInt(trainer.Active),
		formatTime(trainer.CreatedAt),
		formatTime(trainer.UpdatedAt),
	)
	return mapError(err)
}

// GetTrainer retrieves a trainer by id.
func (r *TrainerRepository) GetTrainer(ctx context.Context, id string) (persistence.Trainer, error) {
	return r.getTrainerWhere(ctx, goqu.C("id").Eq(id))
}

// GetTrainerBySlug retrieves a trainer by its URL-safe alias.
func (r *TrainerRepository) GetTrainerBySlug(ctx context.Context, slug string) (persistence.Trainer, error) {
	return r.getTrainerWhere(ctx, goqu.C("slug").Eq(slug))
}

// ListTrainers returns all trainers in insertion order.
func (r *TrainerRepository) ListTrainers(ctx context.Context) ([]persistence.Trainer, error) {
	query, args, err := r.store.builder.From("trainers").
		Select(trainerColumns...).
		Order(goqu.C("rowid").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build trainers query: %w", err)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trainers []persistence.Trainer
	for rows.Next() {
		trainer, err := scanTrainer(rows.Scan)
		if err != nil {
			return nil, err
		}
		trainers = append(trainers, trainer)
	}
	return trainers, rows.Err()
}

func (r *TrainerRepository) getTrainerWhere(ctx context.Context, condition goqu.Expression) (persistence.Trainer, error) {
	query, args, err := r.store.builder.From("trainers").
		Select(trainerColumns...).
		Where(condition).
		Prepared(true).ToSQL()
	if err != nil {
		return persistence.Trainer{}, fmt.Errorf("sqlite: build trainer query: %w", err)
	}

	row := r.store.db.QueryRowContext(ctx, query, args...)
	trainer, err := scanTrainer(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Trainer{}, persistence.ErrNotFound
	}
	return trainer, err
}

var trainerColumns = []any{"id", "name", "slug", "email", "specialty", "active", "created_at", "updated_at"}

func scanTrainer(scan func(dest ...any) error) (persistence.Trainer, error) {
	var (
		trainer                persistence.Trainer
		active                 int
		createdRaw, updatedRaw string
	)
	err := scan(&trainer.ID, &trainer.Name, &trainer.Slug, &trainer.Email,
		&trainer.Specialty, &active, &createdRaw, &updatedRaw)
	if err != nil {
		return persistence.Trainer{}, err
	}
	trainer.Active = active != 0
	if trainer.CreatedAt, err = parseTime(createdRaw); err != nil {
		return persistence.Trainer{}, err
	}
	if trainer.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return persistence.Trainer{}, err
	}
	return trainer, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
