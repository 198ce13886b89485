package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/balcaopos/balcao/internal/codec"
)

// The metrics endpoints answer from the cache-aside layer and never
// surface a backend failure: a stale or zero figure with stale=true is
// always preferable to a 5xx on a dashboard poll.

func (s *Server) handleSalesDay(w http.ResponseWriter, r *http.Request) {
	ten := tenant(r)

	// Date in the terminal's timezone, defaulting to the server's today.
	day := s.now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("date"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			day = parsed
		}
	}

	total, stale := s.totals.Get(r.Context(), "sales-day:"+ten+":"+day.Format("2006-01-02"), s.metricsTTL,
		func(ctx context.Context) (float64, error) {
			return s.aggregates.SalesTotalBetween(ctx, ten, day, day.AddDate(0, 0, 1))
		})

	writeBody(w, codec.JSON{}, http.StatusOK, map[string]any{
		"date":  day.Format("2006-01-02"),
		"total": total,
		"stale": stale,
	})
}

func (s *Server) handleSalesMonth(w http.ResponseWriter, r *http.Request) {
	ten := tenant(r)

	now := s.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if raw := r.URL.Query().Get("month"); raw != "" {
		if parsed, err := time.Parse("2006-01", raw); err == nil {
			first = parsed
		}
	}
	next := first.AddDate(0, 1, 0)

	total, stale := s.totals.Get(r.Context(), "sales-month:"+ten+":"+first.Format("2006-01"), s.metricsTTL,
		func(ctx context.Context) (float64, error) {
			return s.aggregates.SalesTotalBetween(ctx, ten, first, next)
		})

	writeBody(w, codec.JSON{}, http.StatusOK, map[string]any{
		"month": first.Format("2006-01"),
		"total": total,
		"stale": stale,
	})
}

func (s *Server) handleStockValue(w http.ResponseWriter, r *http.Request) {
	ten := tenant(r)

	v, stale := s.valuations.Get(r.Context(), "stock-value:"+ten, s.metricsTTL,
		func(ctx context.Context) (valuation, error) {
			cost, potential, err := s.aggregates.InventoryValuation(ctx, ten)
			return valuation{Cost: cost, Potential: potential}, err
		})

	writeBody(w, codec.JSON{}, http.StatusOK, map[string]any{
		"stock_value":     v.Cost,
		"potential_value": v.Potential,
		"stale":           stale,
	})
}
