package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, phone_number, role, is_active, is_email_verified, created_at, updated_at, version`

func userDst(user *domain.User) []any {
	return []any{
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.PhoneNumber,
		&user.Role,
		&user.IsActive,
		&user.IsEmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	}
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	user := &domain.User{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(userDst(user)...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	user := &domain.User{}
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(userDst(user)...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, first_name, last_name, phone_number, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, is_email_verified, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.PhoneNumber, user.Role}
	dst := []any{&user.ID, &user.IsActive, &user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

// UpdateUser writes the mutable columns guarded by the version column. A stale version
// yields sql.ErrNoRows.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET
			password_hash = $1,
			first_name = $2,
			last_name = $3,
			role = $4,
			is_active = $5,
			is_email_verified = $6,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{user.PasswordHash, user.FirstName, user.LastName, user.Role, user.IsActive, user.IsEmailVerified, user.ID, user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.UpdatedAt, &user.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CheckEmailIfExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	isExists := false
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}

var userOrdering = map[string]string{
	"id":        "id",
	"username":  "username",
	"email":     "email",
	"createdAt": "created_at",
}

func (r *Repository) ListUsers(ctx context.Context, p ListParams) (*Page[*domain.User], error) {
	w := &whereBuilder{}
	w.addSearch(p.Search, "username", "email", "first_name", "last_name")
	w.addFilters(p, nil, map[string]string{"role": "role"})

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	page := &Page[*domain.User]{Page: p.Page, PageSize: p.PageSize, Results: []*domain.User{}}
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+w.sql(), w.args...).Scan(&page.Count); err != nil {
		return nil, err
	}

	limit, args := w.limitOffset(p)
	query := `SELECT ` + userColumns + ` FROM users` + w.sql() + orderBy(p.Ordering, userOrdering, "id ASC") + limit

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(userDst(user)...); err != nil {
			return nil, err
		}
		page.Results = append(page.Results, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}
