package storage

import (
	"context"
	"fmt"

	"stockroom/internal/core"
	"stockroom/internal/ports"
)

func (r *SQLiteRepository) scanRecord(row scanner) (core.Record, error) {
	var (
		rec              core.Record
		created, updated string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Quantity, &created, &updated); err != nil {
		return core.Record{}, err
	}
	rec.CreatedAt = r.parseTime(created)
	rec.UpdatedAt = r.parseTime(updated)
	return rec, nil
}

func (r *SQLiteRepository) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO records (name, quantity, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		rec.Name, rec.Quantity, formatTime(now), formatTime(now))
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", mapError(err))
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return core.Record{}, fmt.Errorf("record id: %w", err)
	}
	rec.CreatedAt, rec.UpdatedAt = now.In(r.loc), now.In(r.loc)
	return rec, nil
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id int64) (core.Record, error) {
	rec, err := r.scanRecord(r.db.QueryRowContext(ctx,
		`SELECT id, name, quantity, created_at, updated_at FROM records WHERE id = ?`, id))
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %d: %w", id, mapError(err))
	}
	return rec, nil
}

func (r *SQLiteRepository) ListRecords(ctx context.Context, q ports.RecordQuery) ([]core.Record, int, error) {
	q = q.Normalize()
	where := ""
	var args []any
	if q.Search != "" {
		where = ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(q.Search))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, quantity, created_at, updated_at FROM records`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *SQLiteRepository) UpdateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET name = ?, quantity = ?, updated_at = ? WHERE id = ?`,
		rec.Name, rec.Quantity, r.stamp(), rec.ID)
	if err != nil {
		return core.Record{}, fmt.Errorf("update record %d: %w", rec.ID, mapError(err))
	}
	if err := rowsAffected(res, "update record", rec.ID); err != nil {
		return core.Record{}, err
	}
	return r.GetRecord(ctx, rec.ID)
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, mapError(err))
	}
	return rowsAffected(res, "delete record", id)
}
