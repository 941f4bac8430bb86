package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"meetspot/internal/domain"
)

type preferenceRepository struct {
	DB *sql.DB
}

func NewPreferenceRepository(db *sql.DB) domain.PreferenceRepository {
	return &preferenceRepository{
		DB: db,
	}
}

func (r *preferenceRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]*domain.UserPreferences, error) {
	query := `
		SELECT user_id, categories, budget_min, budget_max, constraints, home_lat, home_lng
		FROM user_preferences
		WHERE user_id = ANY($1)
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	prefs := make([]*domain.UserPreferences, 0)
	for rows.Next() {
		p := &domain.UserPreferences{}
		var latNull, lngNull sql.NullFloat64
		if err := rows.Scan(&p.UserID, pq.Array(&p.Categories), &p.BudgetMin, &p.BudgetMax,
			pq.Array(&p.Constraints), &latNull, &lngNull); err != nil {
			return nil, err
		}
		if latNull.Valid {
			p.HomeLat = &latNull.Float64
		}
		if lngNull.Valid {
			p.HomeLng = &lngNull.Float64
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}
