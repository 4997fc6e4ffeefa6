package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/core"
	"stockroom/internal/ports"
)

const transactionColumns = `id, transaction_type, status, total_products, total_price, description, note,
	product_id, user_id, supplier_id, created_at, updated_at`

func (r *SQLiteRepository) scanTransaction(row scanner) (core.Transaction, error) {
	var (
		tx               core.Transaction
		typ, status      string
		price            string
		userID, supplier sql.NullInt64
		created, updated string
	)
	if err := row.Scan(&tx.ID, &typ, &status, &tx.TotalProducts, &price, &tx.Description, &tx.Note,
		&tx.ProductID, &userID, &supplier, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.Status = core.TransactionStatus(status)
	d, err := decimal.NewFromString(price)
	if err != nil {
		slog.Warn("Unparseable transaction price in database", "id", tx.ID, "price", price)
		d = decimal.Zero
	}
	tx.TotalPrice = d
	tx.UserID = userID.Int64
	tx.SupplierID = supplier.Int64
	tx.CreatedAt = r.parseTime(created)
	tx.UpdatedAt = r.parseTime(updated)
	return tx, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecordMovement(ctx context.Context, t core.Transaction, stockDelta int) (core.Transaction, error) {
	now := r.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin movement: %w", err)
	}
	defer dbtx.Rollback()

	var stock int
	err = dbtx.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = ?`, t.ProductID).Scan(&stock)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("product %d: %w", t.ProductID, mapError(err))
	}
	if stock+stockDelta < 0 {
		return core.Transaction{}, fmt.Errorf("product %d has %d, needs %d: %w",
			t.ProductID, stock, -stockDelta, core.ErrInsufficientStock)
	}

	if _, err := dbtx.ExecContext(ctx,
		`UPDATE products SET stock_quantity = ? WHERE id = ?`, stock+stockDelta, t.ProductID); err != nil {
		return core.Transaction{}, fmt.Errorf("update stock: %w", mapError(err))
	}

	res, err := dbtx.ExecContext(ctx,
		`INSERT INTO transactions (transaction_type, status, total_products, total_price, description, note,
		 product_id, user_id, supplier_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Type), string(t.Status), t.TotalProducts, t.TotalPrice.String(), t.Description, t.Note,
		t.ProductID, nullInt(t.UserID), nullInt(t.SupplierID), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", mapError(err))
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit movement: %w", err)
	}
	t.CreatedAt = t.CreatedAt.In(r.loc)
	t.UpdatedAt = t.UpdatedAt.In(r.loc)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := r.scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, mapError(err))
	}
	return tx, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, q ports.TransactionQuery) ([]core.Transaction, int, error) {
	q = q.Normalize()
	where := ""
	var args []any
	if q.Filter != "" {
		where = ` WHERE description LIKE ? ESCAPE '\' OR note LIKE ? ESCAPE '\'`
		p := likePattern(q.Filter)
		args = append(args, p, p)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	items, err := r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, q.Size, q.Page*q.Size)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListTransactionsByMonth returns the month's transactions, with month
// boundaries taken in the repository location.
func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, year int, month int) ([]core.Transaction, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, r.loc)
	end := start.AddDate(0, 1, 0)
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`,
		formatTime(start), formatTime(end))
}

func (r *SQLiteRepository) ListTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY id DESC`, userID)
}

func (r *SQLiteRepository) UpdateTransactionStatus(ctx context.Context, id int64, status core.TransactionStatus) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ?, updated_at = ? WHERE id = ?`, string(status), r.stamp(), id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, mapError(err))
	}
	if err := rowsAffected(res, "update transaction", id); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, id)
}

// ListPendingExports returns the oldest transactions not yet written to
// the spreadsheet, failed ones included.
func (r *SQLiteRepository) ListPendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = ports.DefaultPageSize
	}
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE export_status IN ('pending', 'error') ORDER BY id LIMIT ?`,
		limit)
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_status = 'exported', export_ref = ? WHERE id = ?`, ref, id)
	if err != nil {
		return fmt.Errorf("mark exported %d: %w", id, err)
	}
	return rowsAffected(res, "mark exported", id)
}

// IsExported reports whether the transaction already reached the spreadsheet.
func (r *SQLiteRepository) IsExported(ctx context.Context, id int64) (bool, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT export_status FROM transactions WHERE id = ?`, id).Scan(&status)
	if err != nil {
		return false, fmt.Errorf("export status %d: %w", id, mapError(err))
	}
	return status == "exported", nil
}

func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_status = 'error' WHERE id = ? AND export_status != 'exported'`, id)
	if err != nil {
		return fmt.Errorf("mark export failed %d: %w", id, err)
	}
	return rowsAffected(res, "mark export failed", id)
}
