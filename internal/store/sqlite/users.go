package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, username, email, quota_limit, quota_consumed`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var createdAt, updatedAt string

	err := scanner.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&u.Username,
		&u.Email,
		&u.QuotaLimit,
		&u.QuotaConsumed,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// CreateUser inserts a new user into the database.
// Returns store.ErrAlreadyExists if the user ID or username already exists.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	usernameLower := strings.ToLower(strings.TrimSpace(user.Username))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, created_at, updated_at, username, username_lower,
			email, quota_limit, quota_consumed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Username,
		usernameLower,
		user.Email,
		user.QuotaLimit,
		user.QuotaConsumed,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByUsername retrieves a user by case-insensitive username match.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	lower := strings.ToLower(strings.TrimSpace(username))
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username_lower = ?`, lower)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser performs a full row update on an existing user. Note that
// quota_consumed is deliberately excluded: it is mutated only through
// CommitIngestion, DeletePhoto and CorrectUserConsumed.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	usernameLower := strings.ToLower(strings.TrimSpace(user.Username))

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			updated_at = ?,
			username = ?,
			username_lower = ?,
			email = ?,
			quota_limit = ?
		WHERE id = ?`,
		formatTime(user.UpdatedAt),
		user.Username,
		usernameLower,
		user.Email,
		user.QuotaLimit,
		user.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CorrectUserConsumed conditionally overwrites the consumed quota
// counter: the write applies only while the stored value still equals
// expected, so a charge committed by a concurrent ingestion or deletion
// is never clobbered. Reports whether the update was applied. Only the
// reconciliation sweeper should need this; normal mutation happens
// inside ingestion and deletion transactions.
func (s *Store) CorrectUserConsumed(ctx context.Context, userID string, expected, actual int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET quota_consumed = ? WHERE id = ? AND quota_consumed = ?`,
		actual, userID, expected)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
