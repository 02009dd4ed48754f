package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/asset-tokenizer/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvestmentRepository persists investment records in Postgres.
type InvestmentRepository struct {
	pool *pgxpool.Pool
}

// NewInvestmentRepository creates a new investment repository
func NewInvestmentRepository(db *PostgresDB) *InvestmentRepository {
	return &InvestmentRepository{pool: db.Pool()}
}

// Insert stores a new investment record.
func (r *InvestmentRepository) Insert(ctx context.Context, inv *models.InvestmentRecord) error {
	query := `
		INSERT INTO investments (id, owner, token_id, amount_invested, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		inv.ID, inv.Owner, inv.TokenID, inv.AmountInvested, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert investment %d: %w", inv.ID, err)
	}

	return nil
}

// GetByID retrieves an investment record by id.
func (r *InvestmentRepository) GetByID(ctx context.Context, id int) (*models.InvestmentRecord, error) {
	query := `
		SELECT id, owner, token_id, amount_invested, created_at
		FROM investments
		WHERE id = $1
	`

	var inv models.InvestmentRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.Owner, &inv.TokenID, &inv.AmountInvested, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get investment %d: %w", id, err)
	}

	return &inv, nil
}

// ListByOwner returns all investment records for an account ordered by id.
func (r *InvestmentRepository) ListByOwner(ctx context.Context, owner string) ([]*models.InvestmentRecord, error) {
	query := `
		SELECT id, owner, token_id, amount_invested, created_at
		FROM investments
		WHERE owner = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments for %s: %w", owner, err)
	}
	defer rows.Close()

	var records []*models.InvestmentRecord
	for rows.Next() {
		var inv models.InvestmentRecord
		if err := rows.Scan(&inv.ID, &inv.Owner, &inv.TokenID, &inv.AmountInvested, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan investment row: %w", err)
		}
		records = append(records, &inv)
	}

	return records, rows.Err()
}
