package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/baharkarakas/loyalty-admin/internal/models"
	repo "github.com/baharkarakas/loyalty-admin/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type recordsRepo struct{ pool *pgxpool.Pool }

// likeEscaper makes search text match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const recordCols = `id, ledger, name, code, balance, eligible, updated_at`

func scanRecord(row pgx.Row) (models.Record, error) {
	var r models.Record
	err := row.Scan(&r.ID, &r.Ledger, &r.Name, &r.Code, &r.Balance, &r.Eligible, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Record{}, repo.ErrNotFound
	}
	return r, err
}

func (r *recordsRepo) Page(ctx context.Context, ledger models.Ledger, search string, limit, offset int) ([]models.Record, int, error) {
	var pattern *string
	if search != "" {
		p := "%" + likeEscaper.Replace(search) + "%"
		pattern = &p
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*)
		   FROM ledger_records
		  WHERE ledger = $1
		    AND ($2::text IS NULL OR name ILIKE $2 ESCAPE '\' OR code ILIKE $2 ESCAPE '\')`,
		ledger, pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+recordCols+`
		   FROM ledger_records
		  WHERE ledger = $1
		    AND ($2::text IS NULL OR name ILIKE $2 ESCAPE '\' OR code ILIKE $2 ESCAPE '\')
		  ORDER BY id
		  LIMIT $3 OFFSET $4`,
		ledger, pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *recordsRepo) Get(ctx context.Context, ledger models.Ledger, id int64) (models.Record, error) {
	return scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordCols+` FROM ledger_records WHERE ledger = $1 AND id = $2`,
		ledger, id,
	))
}

func (r *recordsRepo) SetBalance(ctx context.Context, ledger models.Ledger, id, value int64) (models.Record, error) {
	return scanRecord(r.pool.QueryRow(ctx,
		`UPDATE ledger_records
		    SET balance = $3,
		        updated_at = now()
		  WHERE ledger = $1 AND id = $2
		  RETURNING `+recordCols,
		ledger, id, value,
	))
}

// ApplyDelta floors every balance at zero.
func (r *recordsRepo) ApplyDelta(ctx context.Context, ledger models.Ledger, delta int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ledger_records
		    SET balance = GREATEST(balance + $2, 0),
		        updated_at = now()
		  WHERE ledger = $1 AND eligible`,
		ledger, delta,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *recordsRepo) ResetAll(ctx context.Context, ledger models.Ledger) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ledger_records
		    SET balance = 0,
		        updated_at = now()
		  WHERE ledger = $1 AND eligible`,
		ledger,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
