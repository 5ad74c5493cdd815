package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snakepill/internal/model"
)

// SkinRepository reads the skin catalog.
type SkinRepository struct {
	pool *pgxpool.Pool
}

// NewSkinRepository creates a new SkinRepository instance.
func NewSkinRepository(pool *pgxpool.Pool) *SkinRepository {
	return &SkinRepository{pool: pool}
}

// List returns the catalog, cheapest first.
func (r *SkinRepository) List(ctx context.Context) ([]*model.Skin, error) {
	const query = `
		SELECT id, name, cost_points, description, color_primary, color_secondary, is_animated
		FROM skins
		ORDER BY cost_points, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get skins: %w", err)
	}
	defer rows.Close()

	skins := []*model.Skin{}
	for rows.Next() {
		var s model.Skin
		if err := rows.Scan(&s.ID, &s.Name, &s.CostPoints, &s.Description, &s.ColorPrimary, &s.ColorSecondary, &s.IsAnimated); err != nil {
			return nil, fmt.Errorf("failed to scan skin: %w", err)
		}
		skins = append(skins, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skins: %w", err)
	}
	return skins, nil
}

// GetByID retrieves a skin. Returns ErrSkinNotFound if it does not exist.
func (r *SkinRepository) GetByID(ctx context.Context, id string) (*model.Skin, error) {
	const query = `
		SELECT id, name, cost_points, description, color_primary, color_secondary, is_animated
		FROM skins
		WHERE id = $1
	`

	var s model.Skin
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.CostPoints, &s.Description, &s.ColorPrimary, &s.ColorSecondary, &s.IsAnimated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSkinNotFound
		}
		return nil, fmt.Errorf("failed to get skin: %w", err)
	}
	return &s, nil
}
