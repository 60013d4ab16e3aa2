package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewBaseRepository creates a new base repository. m may be nil.
func NewBaseRepository(db *sqlx.DB, m *metrics.Metrics) BaseRepository {
	return BaseRepository{db: db, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// done classifies err and records the call.
func (r *BaseRepository) done(table, operation, entity string, start time.Time, err error) error {
	err = classify(entity, err)
	r.metrics.ObserveDB(table, operation, start, err)
	return err
}

// sortColumns maps an accepted OrderBy column to its SQL column.
type sortColumns map[string]string

// orderClause renders ORDER BY for order, falling back to def when order is empty.
func (s sortColumns) orderClause(order, def repository.OrderBy) (string, error) {
	if order.Column == "" {
		order = def
	}
	col, ok := s[order.Column]
	if !ok {
		return "", errors.BadRequest(fmt.Sprintf("cannot sort by %q", order.Column), nil)
	}
	dir := "ASC"
	if order.Descending {
		dir = "DESC"
	}
	// id breaks ties so the order is stable between calls
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir), nil
}

// requireRow turns an update that touched nothing into sql.ErrNoRows.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
