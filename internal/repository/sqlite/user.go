package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/hypeshelf/internal/apperror"
	"github.com/sakif/hypeshelf/internal/model"
	"github.com/sakif/hypeshelf/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, external_subject, display_name, image_url, role, created_at, updated_at`

// CreateUser inserts a brand-new user.
//
// The UNIQUE constraint on external_subject is the arbiter for concurrent
// first logins: the loser of the race gets apperror.ErrConflict and is
// expected to re-read by subject.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := db.now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Subject,
		user.DisplayName,
		user.ImageURL,
		string(user.Role),
		toNanos(user.CreatedAt),
		toNanos(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "subject "+user.Subject)
		}
		return fmt.Errorf("sqlite: inserting user (subject=%s): %w", user.Subject, err)
	}

	return nil
}

// UpsertBySubject inserts a user or overwrites display name, avatar and role
// of the existing row with the same subject.
//
// INSERT ... ON CONFLICT DO UPDATE runs as a single atomic statement, so two
// concurrent sync events for the same subject can never produce two rows.
// The internal id and created_at of an existing user are preserved. The row
// is read back so the caller gets the canonical record.
func (db *DB) UpsertBySubject(ctx context.Context, user *model.User) error {
	now := db.now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_subject) DO UPDATE SET
			display_name = excluded.display_name,
			image_url    = excluded.image_url,
			role         = excluded.role,
			updated_at   = excluded.updated_at`,
		xid.New().String(),
		user.Subject,
		user.DisplayName,
		user.ImageURL,
		string(user.Role),
		toNanos(now),
		toNanos(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (subject=%s): %w", user.Subject, err)
	}

	stored, err := db.GetUserBySubject(ctx, user.Subject)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserBySubject retrieves a user by external identity subject.
// Returns apperror.ErrNotFound if no user is mapped to that subject.
func (db *DB) GetUserBySubject(ctx context.Context, subject string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_subject = ?`, subject)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", subject)
		}
		return nil, fmt.Errorf("sqlite: getting user by subject %s: %w", subject, err)
	}
	return u, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                    model.User
		role                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&u.ID,
		&u.Subject,
		&u.DisplayName,
		&u.ImageURL,
		&role,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.CreatedAt = fromNanos(createdAt)
	u.UpdatedAt = fromNanos(updatedAt)
	return &u, nil
}
