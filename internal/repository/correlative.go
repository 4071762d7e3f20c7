package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/seguridadvial/internal/common"
)

// CorrelativeAllocator hands out per-series act numbers. Next must run in
// the transaction of the insert that consumes the number so that both
// commit or roll back together.
type CorrelativeAllocator interface {
	Next(ctx context.Context, tx *sql.Tx, series string) (int64, error)
	Current(ctx context.Context, series string) (int64, error)
	List(ctx context.Context) (map[string]int64, error)
}

type correlativeAllocator struct {
	db *DB
}

func NewCorrelativeAllocator(db *DB) CorrelativeAllocator {
	return &correlativeAllocator{db: db}
}

// Next increments the series counter and returns the new value. The UPDATE
// takes the row lock, so concurrent callers for the same series queue up
// until the holding transaction finishes.
func (a *correlativeAllocator) Next(ctx context.Context, tx *sql.Tx, series string) (int64, error) {
	if series == "" {
		return 0, fmt.Errorf("%w: empty series", common.ErrInvalidInput)
	}
	b := a.db.builder()

	ensure := b.Insert(tableCounters).
		Columns("serie", "ultimo").
		Values(series, 0).
		OnConflict(entsql.ConflictColumns("serie"), entsql.DoNothing())
	if _, err := exec(ctx, tx, ensure); err != nil {
		return 0, fmt.Errorf("ensure counter %q: %w", series, err)
	}

	bump := b.Update(tableCounters).
		Add("ultimo", 1).
		Where(entsql.EQ("serie", series))
	if _, err := exec(ctx, tx, bump); err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", series, err)
	}

	query, args := b.Select("ultimo").
		From(b.Table(tableCounters)).
		Where(entsql.EQ("serie", series)).
		Query()
	var n int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: read counter %q: %v", common.ErrDatabase, series, err)
	}
	return n, nil
}

// Current returns the last number handed out for a series, 0 when unused.
func (a *correlativeAllocator) Current(ctx context.Context, series string) (int64, error) {
	b := a.db.builder()
	query, args := b.Select("ultimo").
		From(b.Table(tableCounters)).
		Where(entsql.EQ("serie", series)).
		Query()
	var n int64
	err := a.db.QueryRowContext(ctx, query, args...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read counter %q: %v", common.ErrDatabase, series, err)
	}
	return n, nil
}

// List returns every series counter.
func (a *correlativeAllocator) List(ctx context.Context) (map[string]int64, error) {
	b := a.db.builder()
	query, args := b.Select("serie", "ultimo").
		From(b.Table(tableCounters)).
		OrderBy("serie").
		Query()
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list counters: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			series string
			n      int64
		)
		if err := rows.Scan(&series, &n); err != nil {
			return nil, fmt.Errorf("%w: scan counter: %v", common.ErrDatabase, err)
		}
		out[series] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list counters: %v", common.ErrDatabase, err)
	}
	return out, nil
}
