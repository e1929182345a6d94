// Package source reads projected rows from the relational warehouse tables
package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	fernerrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Query projects one table to an ordered column list
type Query struct {
	Table   string
	Columns []string
	// OrderBy is optional; rows arrive in no particular order without it
	OrderBy []string
}

// Cursor yields successive batches of rows. Next returns an empty slice once exhausted.
type Cursor interface {
	Next(ctx context.Context, n int) ([]models.SourceRow, error)
	Close(ctx context.Context) error
}

// Reader reads tables from one schema of the source database
type Reader struct {
	db     database.DB
	schema string
	flavor sqlbuilder.Flavor
	logger ectologger.Logger
}

// NewReader creates a new source reader
func NewReader(db database.DB, schema string, logger ectologger.Logger) *Reader {
	return &Reader{
		db:     db,
		schema: schema,
		flavor: database.FlavorFor(db.DriverName()),
		logger: logger,
	}
}

// Count returns the number of rows in table
func (r *Reader) Count(ctx context.Context, table string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Reader.Count")
	defer span.End()

	qualified, err := database.QualifiedTable(r.schema, table)
	if err != nil {
		return 0, fernerrors.Wrap(fernerrors.KindConfig, err)
	}

	query, args := database.CountQuery(r.flavor, qualified)
	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("table", qualified).Error("Failed to count source rows")
		return 0, Classify(err, qualified)
	}
	return n, nil
}

// CountDistinct returns the number of distinct non-null values of column
func (r *Reader) CountDistinct(ctx context.Context, table, column string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Reader.CountDistinct")
	defer span.End()

	qualified, err := r.qualifiedColumn(table, column)
	if err != nil {
		return 0, err
	}

	query, args := database.CountDistinctQuery(r.flavor, qualified, column)
	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, Classify(err, qualified+"."+column)
	}
	return n, nil
}

// Sample returns up to n distinct non-null values of column, sorted
func (r *Reader) Sample(ctx context.Context, table, column string, n int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Reader.Sample")
	defer span.End()

	qualified, err := r.qualifiedColumn(table, column)
	if err != nil {
		return nil, err
	}

	sb := database.NewSelectBuilder(r.flavor)
	sb.Select(column).Distinct().From(qualified)
	sb.Where(sb.IsNotNull(column))
	sb.OrderBy(column)
	sb.Limit(n)
	query, args := sb.Build()

	values := []string{}
	if err := r.db.SelectContext(ctx, &values, query, args...); err != nil {
		return nil, Classify(err, qualified+"."+column)
	}
	return values, nil
}

// Open starts streaming q. Postgres reads through a server-side cursor inside a read-only
// transaction; other drivers stream a single result set.
func (r *Reader) Open(ctx context.Context, q Query) (Cursor, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Reader.Open")
	defer span.End()

	query, err := r.SelectQuery(q)
	if err != nil {
		return nil, err
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"table":   q.Table,
		"columns": q.Columns,
	})

	if r.db.DriverName() != database.DriverPostgres {
		rows, err := r.db.QueryxContext(ctx, query)
		if err != nil {
			log.WithError(err).Error("Failed to query source table")
			return nil, Classify(err, q.Table)
		}
		return &rowsCursor{rows: rows, object: q.Table}, nil
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		log.WithError(err).Error("Failed to begin read transaction")
		return nil, Classify(err, q.Table)
	}

	name := "fern_" + q.Table + "_cursor"
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DECLARE %s NO SCROLL CURSOR FOR %s", name, query)); err != nil {
		_ = tx.Rollback()
		log.WithError(err).Error("Failed to declare source cursor")
		return nil, Classify(err, q.Table)
	}

	log.WithField("cursor", name).Debug("Declared source cursor")
	return &pgCursor{tx: tx, name: name, object: q.Table}, nil
}

// SelectQuery renders the projection of q
func (r *Reader) SelectQuery(q Query) (string, error) {
	qualified, err := database.QualifiedTable(r.schema, q.Table)
	if err != nil {
		return "", fernerrors.Wrap(fernerrors.KindConfig, err)
	}
	if len(q.Columns) == 0 {
		return "", fernerrors.NewLoadErrorf(fernerrors.KindConfig, "no columns projected from %s", q.Table)
	}
	for _, cols := range [][]string{q.Columns, q.OrderBy} {
		for _, c := range cols {
			if !database.ValidIdentifier(c) {
				return "", fernerrors.NewLoadErrorf(fernerrors.KindConfig, "invalid column name %q", c)
			}
		}
	}

	sb := database.NewSelectBuilder(r.flavor)
	sb.Select(q.Columns...).From(qualified)
	if len(q.OrderBy) > 0 {
		sb.OrderBy(q.OrderBy...).Asc()
	}
	query, _ := sb.Build()
	return query, nil
}

func (r *Reader) qualifiedColumn(table, column string) (string, error) {
	qualified, err := database.QualifiedTable(r.schema, table)
	if err != nil {
		return "", fernerrors.Wrap(fernerrors.KindConfig, err)
	}
	if !database.ValidIdentifier(column) {
		return "", fernerrors.NewLoadErrorf(fernerrors.KindConfig, "invalid column name %q", column)
	}
	return qualified, nil
}
