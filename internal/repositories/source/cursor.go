package source

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/fern/pkg/models"
)

// pgCursor fetches from a DECLAREd cursor; the transaction is rolled back on Close
type pgCursor struct {
	tx     *sqlx.Tx
	name   string
	object string
	done   bool
}

func (c *pgCursor) Next(ctx context.Context, n int) ([]models.SourceRow, error) {
	if c.done || n <= 0 {
		return nil, nil
	}

	rows, err := c.tx.QueryxContext(ctx, fmt.Sprintf("FETCH FORWARD %d FROM %s", n, c.name))
	if err != nil {
		return nil, Classify(err, c.object)
	}
	defer rows.Close()

	out, err := scanRows(rows, n)
	if err != nil {
		return nil, Classify(err, c.object)
	}
	if len(out) < n {
		c.done = true
	}
	return out, nil
}

func (c *pgCursor) Close(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	_, closeErr := c.tx.ExecContext(ctx, "CLOSE "+c.name)
	err := c.tx.Rollback()
	c.tx = nil
	if closeErr != nil {
		return closeErr
	}
	return err
}

// rowsCursor streams one open result set
type rowsCursor struct {
	rows   *sqlx.Rows
	object string
	done   bool
}

func (c *rowsCursor) Next(ctx context.Context, n int) ([]models.SourceRow, error) {
	if c.done || n <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, Classify(err, c.object)
	}

	out, err := scanRows(c.rows, n)
	if err != nil {
		return nil, Classify(err, c.object)
	}
	if len(out) < n {
		c.done = true
	}
	return out, nil
}

func (c *rowsCursor) Close(_ context.Context) error {
	return c.rows.Close()
}

func scanRows(rows *sqlx.Rows, limit int) ([]models.SourceRow, error) {
	out := make([]models.SourceRow, 0, limit)
	for len(out) < limit && rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, models.SourceRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
