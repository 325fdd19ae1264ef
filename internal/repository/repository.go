package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/deposit-service/internal/models"
)

// CalculationRepository stores deposit calculations
type CalculationRepository interface {
	SaveCalculation(ctx context.Context, calc *models.Calculation) error
	ListCalculations(ctx context.Context, owner string, limit int) ([]models.Calculation, error)
}

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveCalculation stores a calculation and fills in its ID and creation time
func (r *Repository) SaveCalculation(ctx context.Context, calc *models.Calculation) error {
	query := `
		INSERT INTO deposit.calculations (owner, principal, tenure_years, annual_rate_percent,
			compounding_frequency, maturity_amount, total_interest, explanation, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		calc.Owner,
		calc.Params.Principal,
		calc.Params.TenureYears,
		calc.Params.AnnualRatePercent,
		calc.Params.CompoundingFrequency.String(),
		calc.Result.MaturityAmount,
		calc.Result.TotalInterest,
		calc.Explanation,
		calc.Signature,
	).Scan(&calc.ID, &calc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save calculation: %w", err)
	}
	return nil
}

// ListCalculations returns the owner's most recent calculations, newest first
func (r *Repository) ListCalculations(ctx context.Context, owner string, limit int) ([]models.Calculation, error) {
	query := `
		SELECT id, owner, principal, tenure_years, annual_rate_percent, compounding_frequency,
			maturity_amount, total_interest, explanation, signature, created_at
		FROM deposit.calculations
		WHERE owner = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	defer rows.Close()

	calcs := []models.Calculation{}
	for rows.Next() {
		var (
			calc      models.Calculation
			frequency string
		)
		if err := rows.Scan(
			&calc.ID,
			&calc.Owner,
			&calc.Params.Principal,
			&calc.Params.TenureYears,
			&calc.Params.AnnualRatePercent,
			&frequency,
			&calc.Result.MaturityAmount,
			&calc.Result.TotalInterest,
			&calc.Explanation,
			&calc.Signature,
			&calc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan calculation: %w", err)
		}
		calc.Params.CompoundingFrequency, err = models.ParseFrequency(frequency)
		if err != nil {
			return nil, fmt.Errorf("calculation %d: %w", calc.ID, err)
		}
		calcs = append(calcs, calc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	return calcs, nil
}
