package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"stockroom/internal/core"
)

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapError(err))
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, mapError(err))
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, c.Name, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, mapError(err))
	}
	if err := rowsAffected(res, "update category", c.ID); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, mapError(err))
	}
	return rowsAffected(res, "delete category", id)
}

func (r *SQLiteRepository) CreateSupplier(ctx context.Context, s core.Supplier) (core.Supplier, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO suppliers (name, contact_info, address) VALUES (?, ?, ?)`,
		s.Name, s.ContactInfo, s.Address)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("create supplier: %w", mapError(err))
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.Supplier{}, fmt.Errorf("supplier id: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) GetSupplier(ctx context.Context, id int64) (core.Supplier, error) {
	var s core.Supplier
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, contact_info, address FROM suppliers WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.ContactInfo, &s.Address)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("get supplier %d: %w", id, mapError(err))
	}
	return s, nil
}

func (r *SQLiteRepository) ListSuppliers(ctx context.Context, filter string) ([]core.Supplier, error) {
	query := `SELECT id, name, contact_info, address FROM suppliers`
	var args []any
	if filter != "" {
		query += ` WHERE name LIKE ? ESCAPE '\' OR contact_info LIKE ? ESCAPE '\'`
		p := likePattern(filter)
		args = append(args, p, p)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []core.Supplier
	for rows.Next() {
		var s core.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactInfo, &s.Address); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateSupplier(ctx context.Context, s core.Supplier) (core.Supplier, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE suppliers SET name = ?, contact_info = ?, address = ? WHERE id = ?`,
		s.Name, s.ContactInfo, s.Address, s.ID)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("update supplier %d: %w", s.ID, mapError(err))
	}
	if err := rowsAffected(res, "update supplier", s.ID); err != nil {
		return core.Supplier{}, err
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteSupplier(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete supplier %d: %w", id, mapError(err))
	}
	return rowsAffected(res, "delete supplier", id)
}

const productColumns = `id, name, sku, price, stock_quantity, description, expiry_date, image_url, category_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanProduct(row scanner) (core.Product, error) {
	var (
		p       core.Product
		price   string
		expiry  sql.NullString
		created string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &price, &p.StockQuantity, &p.Description,
		&expiry, &p.ImageURL, &p.CategoryID, &created); err != nil {
		return core.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		slog.Warn("Unparseable product price in database", "id", p.ID, "price", price)
		d = decimal.Zero
	}
	p.Price = d
	if expiry.Valid {
		t := r.parseTime(expiry.String)
		p.ExpiryDate = &t
	}
	p.CreatedAt = r.parseTime(created)
	return p, nil
}

func (r *SQLiteRepository) CreateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, sku, price, stock_quantity, description, expiry_date, image_url, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.SKU, p.Price.String(), p.StockQuantity, p.Description, nullTime(p.ExpiryDate),
		p.ImageURL, p.CategoryID, formatTime(p.CreatedAt))
	if err != nil {
		return core.Product{}, fmt.Errorf("create product: %w", mapError(err))
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return core.Product{}, fmt.Errorf("product id: %w", err)
	}
	p.CreatedAt = p.CreatedAt.In(r.loc)
	return p, nil
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, id int64) (core.Product, error) {
	p, err := r.scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		return core.Product{}, fmt.Errorf("get product %d: %w", id, mapError(err))
	}
	return p, nil
}

func (r *SQLiteRepository) listProducts(ctx context.Context, where string, args ...any) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products `+where+` ORDER BY id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]core.Product, error) {
	return r.listProducts(ctx, "")
}

func (r *SQLiteRepository) SearchProducts(ctx context.Context, input string) ([]core.Product, error) {
	p := likePattern(input)
	return r.listProducts(ctx,
		`WHERE name LIKE ? ESCAPE '\' OR sku LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'`, p, p, p)
}

func (r *SQLiteRepository) UpdateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, sku = ?, price = ?, stock_quantity = ?, description = ?,
		 expiry_date = ?, image_url = ?, category_id = ? WHERE id = ?`,
		p.Name, p.SKU, p.Price.String(), p.StockQuantity, p.Description, nullTime(p.ExpiryDate),
		p.ImageURL, p.CategoryID, p.ID)
	if err != nil {
		return core.Product{}, fmt.Errorf("update product %d: %w", p.ID, mapError(err))
	}
	if err := rowsAffected(res, "update product", p.ID); err != nil {
		return core.Product{}, err
	}
	return r.GetProduct(ctx, p.ID)
}

func (r *SQLiteRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, mapError(err))
	}
	return rowsAffected(res, "delete product", id)
}

