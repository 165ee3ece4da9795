package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jobdesk.org/internal/auth"
)

var _ auth.UserStore = (*Store)(nil)

const userColumns = `id, email, name, role, is_active, password_hash, failed_logins, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.PasswordHash, &u.FailedLogins, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) Find(ctx context.Context, id string) (*auth.User, error) {
	row := s.q.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.q.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where lower(email) = lower($1)
	`, email)
	return scanUser(row)
}

var userSortColumns = map[string]string{
	"created_at": "created_at",
	"email":      "email",
	"name":       "name",
	"role":       "role",
}

func (s *Store) List(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	var (
		where []string
		args  []any
		idx   = 1
	)
	if filter.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", idx))
		args = append(args, filter.Role)
		idx++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(email ilike $%d or name ilike $%d)", idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	clause := ""
	if len(where) > 0 {
		clause = "where " + strings.Join(where, " and ")
	}

	sortBy, ok := userSortColumns[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	order := "desc"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "asc"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`
		select %s, count(*) over() as total
		from users
		%s
		order by %s %s
		limit $%d offset $%d
	`, userColumns, clause, sortBy, order, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		users []auth.User
		total int
	)
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.PasswordHash, &u.FailedLogins, &u.CreatedAt, &u.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) UpdateRole(ctx context.Context, id, role string) (*auth.User, error) {
	row := s.q.QueryRowContext(ctx, `
		update users
		set role = $2, updated_at = now()
		where id = $1
		returning `+userColumns+`
	`, id, role)
	return scanUser(row)
}

func (s *Store) UpdateStatus(ctx context.Context, id string, active bool) (*auth.User, error) {
	row := s.q.QueryRowContext(ctx, `
		update users
		set is_active = $2, updated_at = now()
		where id = $1
		returning `+userColumns+`
	`, id, active)
	return scanUser(row)
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.q.ExecContext(ctx, `
		update users
		set password_hash = $2, updated_at = now()
		where id = $1
	`, id, passwordHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) RecordLoginFailure(ctx context.Context, id string) (int, error) {
	var failures int
	err := s.q.QueryRowContext(ctx, `
		update users
		set failed_logins = failed_logins + 1, updated_at = now()
		where id = $1
		returning failed_logins
	`, id).Scan(&failures)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, auth.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return failures, nil
}

func (s *Store) ResetLoginFailures(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `
		update users
		set failed_logins = 0, updated_at = now()
		where id = $1
	`, id)
	return err
}
