package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/hypeshelf/internal/model"
	"github.com/sakif/hypeshelf/internal/repository"
)

var _ repository.Seeder = (*DB)(nil)

// SeedIfAbsent inserts the seed data set in one transaction.
//
// If a user with sentinelSubject already exists the function returns a zero
// result without touching anything, so running it twice is harmless.
//
// Seed users whose subject is already taken (for example created earlier by a
// sync event) are kept as they are and only counted when actually inserted;
// their recommendations are attached to the existing row. A flagged seed
// recommendation takes over the staff pick: any current pick is cleared first
// so the single-pick index holds.
func (db *DB) SeedIfAbsent(
	ctx context.Context,
	sentinelSubject string,
	users []repository.SeedUser,
	recs []repository.SeedRecommendation,
) (model.SeedResult, error) {
	var result model.SeedResult

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE external_subject = ?`, sentinelSubject,
		).Scan(&existing)
		switch {
		case err == nil:
			return nil // already seeded
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("sqlite: checking seed sentinel: %w", err)
		}

		now := db.now()
		idsBySubject := make(map[string]string, len(users))

		for _, u := range users {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(external_subject) DO NOTHING`,
				xid.New().String(), u.Subject, u.DisplayName, u.ImageURL, string(u.Role),
				toNanos(now), toNanos(now),
			)
			if err != nil {
				return fmt.Errorf("sqlite: seeding user %s: %w", u.Subject, err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				result.UsersInserted++
			}

			var id string
			if err := tx.QueryRowContext(ctx,
				`SELECT id FROM users WHERE external_subject = ?`, u.Subject,
			).Scan(&id); err != nil {
				return fmt.Errorf("sqlite: reading seed user %s: %w", u.Subject, err)
			}
			idsBySubject[u.Subject] = id
		}

		for _, r := range recs {
			if r.IsStaffPick {
				if _, err := tx.ExecContext(ctx,
					`UPDATE recommendations SET is_staff_pick = 0 WHERE is_staff_pick = 1`,
				); err != nil {
					return fmt.Errorf("sqlite: clearing staff pick before seeding: %w", err)
				}
				break
			}
		}

		for _, r := range recs {
			ownerID, ok := idsBySubject[r.OwnerSubject]
			if !ok {
				return fmt.Errorf("sqlite: seed recommendation %q references unknown owner %s", r.Title, r.OwnerSubject)
			}
			staffPick := 0
			if r.IsStaffPick {
				staffPick = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO recommendations (id, owner_id, title, genre, link, blurb, is_staff_pick, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				xid.New().String(), ownerID, r.Title, string(r.Genre), nullString(r.Link),
				r.Blurb, staffPick, toNanos(now.Add(-r.Age)),
			); err != nil {
				return fmt.Errorf("sqlite: seeding recommendation %q: %w", r.Title, err)
			}
			result.RecommendationsInserted++
		}

		return nil
	})
	if err != nil {
		return model.SeedResult{}, err
	}

	return result, nil
}
