package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/asset-tokenizer/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRecordNotFound indicates the requested row does not exist.
var ErrRecordNotFound = errors.New("record not found")

// AssetRepository persists asset records in Postgres.
type AssetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *PostgresDB) *AssetRepository {
	return &AssetRepository{pool: db.Pool()}
}

// Upsert inserts or updates an asset record keyed by its registry id.
func (r *AssetRepository) Upsert(ctx context.Context, a *models.AssetRecord) error {
	query := `
		INSERT INTO assets (
			id, owner, name, value_usd, cap, annualized_roi, projected_value_usd,
			timeframe_months, price_per_unit, token_id, funded, filled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			value_usd = EXCLUDED.value_usd,
			cap = EXCLUDED.cap,
			annualized_roi = EXCLUDED.annualized_roi,
			projected_value_usd = EXCLUDED.projected_value_usd,
			timeframe_months = EXCLUDED.timeframe_months,
			price_per_unit = EXCLUDED.price_per_unit,
			token_id = EXCLUDED.token_id,
			funded = EXCLUDED.funded,
			filled = EXCLUDED.filled,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Owner, a.Name, a.ValueUSD, a.Cap, a.AnnualizedROI,
		a.ProjectedValueUSD, a.TimeframeMonths, a.PricePerUnit,
		a.TokenID, a.Funded, a.Filled, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %d: %w", a.ID, err)
	}

	return nil
}

// GetByID retrieves an asset record by registry id.
func (r *AssetRepository) GetByID(ctx context.Context, id int) (*models.AssetRecord, error) {
	query := `
		SELECT id, owner, name, value_usd, cap, annualized_roi, projected_value_usd,
		       timeframe_months, price_per_unit, token_id, funded, filled, created_at, updated_at
		FROM assets
		WHERE id = $1
	`

	var a models.AssetRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Owner, &a.Name, &a.ValueUSD, &a.Cap, &a.AnnualizedROI,
		&a.ProjectedValueUSD, &a.TimeframeMonths, &a.PricePerUnit,
		&a.TokenID, &a.Funded, &a.Filled, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get asset %d: %w", id, err)
	}

	return &a, nil
}

// List returns all asset records ordered by registry id.
func (r *AssetRepository) List(ctx context.Context) ([]*models.AssetRecord, error) {
	query := `
		SELECT id, owner, name, value_usd, cap, annualized_roi, projected_value_usd,
		       timeframe_months, price_per_unit, token_id, funded, filled, created_at, updated_at
		FROM assets
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var records []*models.AssetRecord
	for rows.Next() {
		var a models.AssetRecord
		if err := rows.Scan(
			&a.ID, &a.Owner, &a.Name, &a.ValueUSD, &a.Cap, &a.AnnualizedROI,
			&a.ProjectedValueUSD, &a.TimeframeMonths, &a.PricePerUnit,
			&a.TokenID, &a.Funded, &a.Filled, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset row: %w", err)
		}
		records = append(records, &a)
	}

	return records, rows.Err()
}
