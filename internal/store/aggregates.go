package store

import (
	"context"
	"fmt"
	"time"
)

// SalesTotalBetween sums the totals of non-canceled sales whose sold_at
// falls in [from, to). Sale documents carry sold_at as an RFC 3339 UTC
// string, which compares correctly as text.
func (s *Store) SalesTotalBetween(ctx context.Context, tenant string, from, to time.Time) (float64, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(json_extract(fields, '$.total')), 0.0)
		 FROM records
		 WHERE tenant = ? AND kind = 'sale' AND active = 1
		   AND COALESCE(json_extract(fields, '$.canceled'), 0) = 0
		   AND json_extract(fields, '$.sold_at') >= ?
		   AND json_extract(fields, '$.sold_at') < ?`,
		tenant, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("summing sales: %w", err)
	}
	return total, nil
}

// InventoryValuation returns the stock value at cost and at sale price
// over active products.
func (s *Store) InventoryValuation(ctx context.Context, tenant string) (cost, potential float64, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(json_extract(fields, '$.cost_price') * json_extract(fields, '$.stock')), 0.0),
		   COALESCE(SUM(json_extract(fields, '$.sale_price') * json_extract(fields, '$.stock')), 0.0)
		 FROM records
		 WHERE tenant = ? AND kind = 'product' AND active = 1`,
		tenant)

	if err := row.Scan(&cost, &potential); err != nil {
		return 0, 0, fmt.Errorf("valuing inventory: %w", err)
	}
	return cost, potential, nil
}
