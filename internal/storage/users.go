package storage

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/core"
)

const userColumns = `id, name, email, password_hash, phone_number, role, created_at`

func (r *SQLiteRepository) scanUser(row scanner) (core.User, error) {
	var (
		u       core.User
		role    string
		created string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber, &role, &created); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	u.CreatedAt = r.parseTime(created)
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, phone_number, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.PhoneNumber, string(u.Role), formatTime(u.CreatedAt))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", mapError(err))
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}
	u.CreatedAt = u.CreatedAt.In(r.loc)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, mapError(err))
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", mapError(err))
	}
	return u, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, phone_number = ?, role = ? WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.PhoneNumber, string(u.Role), u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", u.ID, mapError(err))
	}
	if err := rowsAffected(res, "update user", u.ID); err != nil {
		return core.User{}, err
	}
	return r.GetUser(ctx, u.ID)
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, mapError(err))
	}
	return rowsAffected(res, "delete user", id)
}
