package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/model"
)

// CreateUser inserts a new user.
//
// UNIQUENESS:
// There is deliberately no "SELECT ... WHERE email = ?" before the INSERT.
// Two concurrent registrations could both pass such a check. The UNIQUE
// constraints on username and email decide instead: the losing INSERT fails
// with SQLITE_CONSTRAINT_UNIQUE, which becomes apperror.Duplicate.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	id := xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		user.Username,
		user.Email,
		user.PasswordHash,
		toNanos(now),
		toNanos(now),
	)
	if err != nil {
		if column, ok := uniqueViolation(err, "users"); ok {
			if column == "" {
				column = "username or email"
			}
			return apperror.Duplicate("user", column)
		}
		return apperror.Store("sqlite: inserting user", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, apperror.Store("sqlite: getting user by id", err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by exact email. Callers normalize case.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, apperror.Store("sqlite: getting user by email", err)
	}
	return u, nil
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	var (
		u                model.User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt = fromNanos(created)
	u.UpdatedAt = fromNanos(updated)
	return &u, nil
}
