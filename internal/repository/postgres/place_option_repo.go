package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"meetspot/internal/domain"
)

type placeOptionRepository struct {
	DB *sql.DB
}

func NewPlaceOptionRepository(db *sql.DB) domain.PlaceOptionRepository {
	return &placeOptionRepository{
		DB: db,
	}
}

const optionColumns = `id, event_id, place_ref, name, address, origin, score, reasoning, pros, cons,
		price_level, rating, lat, lng, created_at`

func scanOption(row interface{ Scan(...interface{}) error }) (*domain.EventPlaceOption, error) {
	o := &domain.EventPlaceOption{}
	err := row.Scan(
		&o.ID, &o.EventID, &o.PlaceRef, &o.Name, &o.Address, &o.Origin, &o.Score, &o.Reasoning,
		pq.Array(&o.Pros), pq.Array(&o.Cons), &o.PriceLevel, &o.Rating, &o.Lat, &o.Lng, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if o.Pros == nil {
		o.Pros = []string{}
	}
	if o.Cons == nil {
		o.Cons = []string{}
	}
	return o, nil
}

func (r *placeOptionRepository) Create(ctx context.Context, o *domain.EventPlaceOption) error {
	query := `
		INSERT INTO event_place_options (event_id, place_ref, name, address, origin, score, reasoning,
			pros, cons, price_level, rating, lat, lng, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		o.EventID, o.PlaceRef, o.Name, o.Address, o.Origin, o.Score, o.Reasoning,
		pq.Array(o.Pros), pq.Array(o.Cons), o.PriceLevel, o.Rating, o.Lat, o.Lng, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateOption
		}
		return err
	}
	return nil
}

func (r *placeOptionRepository) GetByEventAndID(ctx context.Context, eventID, id string) (*domain.EventPlaceOption, error) {
	query := `SELECT ` + optionColumns + ` FROM event_place_options WHERE event_id = $1 AND id = $2`
	o, err := scanOption(r.DB.QueryRowContext(ctx, query, eventID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *placeOptionRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.EventPlaceOption, error) {
	query := `SELECT ` + optionColumns + ` FROM event_place_options WHERE event_id = $1 ORDER BY score DESC, created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	options := make([]*domain.EventPlaceOption, 0)
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}
