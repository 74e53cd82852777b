package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/hypeshelf/internal/apperror"
	"github.com/sakif/hypeshelf/internal/model"
	"github.com/sakif/hypeshelf/internal/repository"
)

var _ repository.RecommendationRepository = (*DB)(nil)

const recommendationColumns = `r.id, r.owner_id, r.title, r.genre, r.link, r.blurb, r.is_staff_pick, r.created_at`

// CreateRecommendation inserts rec, assigning its ID and CreatedAt.
// IsStaffPick is always stored as false: a new row never competes for the
// staff pick.
func (db *DB) CreateRecommendation(ctx context.Context, rec *model.Recommendation) error {
	rec.ID = xid.New().String()
	rec.CreatedAt = db.now()
	rec.IsStaffPick = false

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO recommendations (id, owner_id, title, genre, link, blurb, is_staff_pick, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		rec.ID,
		rec.OwnerID,
		rec.Title,
		string(rec.Genre),
		nullString(rec.Link),
		rec.Blurb,
		toNanos(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating recommendation: %w", err)
	}

	return nil
}

// GetRecommendation retrieves a single recommendation by ID.
func (db *DB) GetRecommendation(ctx context.Context, id string) (*model.Recommendation, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations r WHERE r.id = ?`, id)

	rec, err := scanRecommendation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recommendation", id)
		}
		return nil, fmt.Errorf("sqlite: getting recommendation %s: %w", id, err)
	}
	return rec, nil
}

// ListRecommendations returns recommendations with their owner's display
// name and avatar, newest first.
//
// The LEFT JOIN tolerates a missing owner: COALESCE substitutes "Unknown"
// and an empty avatar instead of dropping the row. Ties on created_at are
// broken by id DESC; xids sort by creation time, so repeated reads of
// unchanged data return the same order.
func (db *DB) ListRecommendations(ctx context.Context, opts repository.ListOptions) ([]model.RecommendationWithUser, error) {
	var (
		where []string
		args  []any
	)
	if opts.OwnerID != "" {
		where = append(where, "r.owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Genre != "" {
		where = append(where, "r.genre = ?")
		args = append(args, string(opts.Genre))
	}

	query := `SELECT ` + recommendationColumns + `,
			COALESCE(u.display_name, ?), COALESCE(u.image_url, '')
		FROM recommendations r
		LEFT JOIN users u ON u.id = r.owner_id`
	args = append([]any{model.UnknownDisplayName}, args...)

	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recommendations: %w", err)
	}
	defer rows.Close()

	capacity := opts.Limit
	if capacity <= 0 {
		capacity = 16
	}
	out := make([]model.RecommendationWithUser, 0, capacity)

	for rows.Next() {
		var (
			item        model.RecommendationWithUser
			link        sql.NullString
			staffPick   int
			createdAt   int64
			displayName string
			imageURL    string
		)
		if err := rows.Scan(
			&item.ID, &item.OwnerID, &item.Title, &item.Genre, &link,
			&item.Blurb, &staffPick, &createdAt,
			&displayName, &imageURL,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning recommendation row: %w", err)
		}
		item.Link = link.String
		item.IsStaffPick = staffPick != 0
		item.CreatedAt = fromNanos(createdAt)
		item.DisplayName = displayName
		item.ImageURL = imageURL
		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recommendations: %w", err)
	}

	return out, nil
}

// DeleteRecommendation removes a recommendation by ID.
// Clearing a row can never break the single-staff-pick rule, so nothing else
// needs repair.
func (db *DB) DeleteRecommendation(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM recommendations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting recommendation %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("recommendation", id)
	}

	return nil
}

// SetStaffPick makes id the one and only staff pick.
//
// Inside a single transaction:
//  1. confirm id exists (NotFound otherwise, nothing changed)
//  2. clear the flag on any other row
//  3. set the flag on id
//
// Clearing before setting keeps the partial unique index satisfied at every
// statement. Calling it again on the current pick leaves it picked.
func (db *DB) SetStaffPick(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM recommendations WHERE id = ?`, id,
		).Scan(&exists)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("recommendation", id)
			}
			return fmt.Errorf("sqlite: checking recommendation %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE recommendations SET is_staff_pick = 0 WHERE is_staff_pick = 1 AND id != ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: clearing previous staff pick: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE recommendations SET is_staff_pick = 1 WHERE id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: setting staff pick %s: %w", id, err)
		}

		return nil
	})
}

func scanRecommendation(row rowScanner) (*model.Recommendation, error) {
	var (
		rec       model.Recommendation
		link      sql.NullString
		staffPick int
		createdAt int64
	)
	if err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.Title, &rec.Genre, &link,
		&rec.Blurb, &staffPick, &createdAt,
	); err != nil {
		return nil, err
	}
	rec.Link = link.String
	rec.IsStaffPick = staffPick != 0
	rec.CreatedAt = fromNanos(createdAt)
	return &rec, nil
}

// nullString stores "" as NULL so an absent link stays absent.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
