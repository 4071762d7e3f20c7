package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
)

// Summary aggregates the infraction register for the dashboard.
type Summary struct {
	Total       int64            `json:"total"`
	Validated   int64            `json:"validated"`
	Notified    int64            `json:"notified"`
	Today       int64            `json:"today"`
	LastWeek    int64            `json:"last_week"`
	ByStatus    map[string]int64 `json:"by_status"`
	BySeries    map[string]int64 `json:"by_series"`
	AvgSpeed    float64          `json:"avg_speed"`
	MaxSpeed    float64          `json:"max_speed"`
	MinSpeed    float64          `json:"min_speed"`
	OverLimit   int64            `json:"over_limit"`
	GeneratedAt time.Time        `json:"generated_at"`
}

type StatsRepository interface {
	Summary(ctx context.Context, now time.Time) (*Summary, error)
}

type statsRepository struct {
	db *DB
}

func NewStatsRepository(db *DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) count(ctx context.Context, ps ...*entsql.Predicate) (int64, error) {
	b := r.db.builder()
	sel := b.Select(entsql.Count("*")).From(b.Table(tableInfractions))
	if len(ps) > 0 {
		sel.Where(entsql.And(ps...))
	}
	query, args := sel.Query()
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count infractions: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func (r *statsRepository) groupCount(ctx context.Context, col string) (map[string]int64, error) {
	b := r.db.builder()
	query, args := b.Select(col, entsql.Count("*")).
		From(b.Table(tableInfractions)).
		GroupBy(col).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: group infractions by %s: %v", common.ErrDatabase, col, err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var (
			k string
			n int64
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("%w: scan group: %v", common.ErrDatabase, err)
		}
		out[k] = n
	}
	return out, rows.Err()
}

// Summary computes the dashboard counters. Day boundaries are UTC, matching
// how issued timestamps are stored.
func (r *statsRepository) Summary(ctx context.Context, now time.Time) (*Summary, error) {
	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := startOfDay.AddDate(0, 0, -6)

	s := &Summary{GeneratedAt: now}
	var err error
	if s.Total, err = r.count(ctx); err != nil {
		return nil, err
	}
	if s.Validated, err = r.count(ctx, entsql.EQ("estado", string(constants.StatusValidated))); err != nil {
		return nil, err
	}
	if s.Notified, err = r.count(ctx, entsql.EQ("notificado", true)); err != nil {
		return nil, err
	}
	if s.Today, err = r.count(ctx, entsql.GTE("fecha_labrado", startOfDay)); err != nil {
		return nil, err
	}
	if s.LastWeek, err = r.count(ctx, entsql.GTE("fecha_labrado", weekAgo)); err != nil {
		return nil, err
	}
	if s.OverLimit, err = r.count(ctx, entsql.ColumnsGT("velocidad_medida", "velocidad_autorizada")); err != nil {
		return nil, err
	}
	if s.ByStatus, err = r.groupCount(ctx, "estado"); err != nil {
		return nil, err
	}
	if s.BySeries, err = r.groupCount(ctx, "serie"); err != nil {
		return nil, err
	}

	b := r.db.builder()
	query, args := b.Select(
		entsql.Avg("velocidad_medida"),
		entsql.Max("velocidad_medida"),
		entsql.Min("velocidad_medida"),
	).From(b.Table(tableInfractions)).Query()
	var avg, max, min sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&avg, &max, &min); err != nil {
		return nil, fmt.Errorf("%w: speed stats: %v", common.ErrDatabase, err)
	}
	s.AvgSpeed, s.MaxSpeed, s.MinSpeed = avg.Float64, max.Float64, min.Float64
	return s, nil
}
