package repositories

import (
	"context"
	"database/sql"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/tier"
)

type TierRepository struct {
	DB *sql.DB
}

func (r *TierRepository) GetAll(ctx context.Context) ([]models.CommissionTier, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT min_revenue, rate_bps FROM commission_tiers ORDER BY min_revenue`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []models.CommissionTier
	for rows.Next() {
		var t models.CommissionTier
		if err := rows.Scan(&t.MinRevenue, &t.RateBps); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// Replace swaps the whole tier table atomically. The new table is validated
// before anything is touched.
func (r *TierRepository) Replace(ctx context.Context, tiers []models.CommissionTier) error {
	if err := tier.Validate(tiers); err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM commission_tiers`); err != nil {
		return err
	}
	for _, t := range tiers {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO commission_tiers (min_revenue, rate_bps) VALUES ($1, $2)`,
			t.MinRevenue, t.RateBps); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
