package model

import "time"

// Genre is one of a fixed, closed set of categories.
type Genre string

const (
	GenreHorror      Genre = "horror"
	GenreAction      Genre = "action"
	GenreComedy      Genre = "comedy"
	GenreDrama       Genre = "drama"
	GenreSciFi       Genre = "sci-fi"
	GenreThriller    Genre = "thriller"
	GenreDocumentary Genre = "documentary"
	GenreAnimation   Genre = "animation"
	GenreOther       Genre = "other"
)

// Genres lists every valid genre in display order.
var Genres = []Genre{
	GenreHorror,
	GenreAction,
	GenreComedy,
	GenreDrama,
	GenreSciFi,
	GenreThriller,
	GenreDocumentary,
	GenreAnimation,
	GenreOther,
}

// Valid reports whether g is in the closed genre set.
func (g Genre) Valid() bool {
	for _, known := range Genres {
		if g == known {
			return true
		}
	}
	return false
}

// Recommendation is a single media pick posted by a user.
//
// Everything except IsStaffPick is immutable after creation. Link is empty
// when the author did not supply one; it is stored as NULL and omitted from
// JSON.
type Recommendation struct {
	ID          string    `json:"id"          db:"id"`
	OwnerID     string    `json:"ownerId"     db:"owner_id"`
	Title       string    `json:"title"       db:"title"`
	Genre       Genre     `json:"genre"       db:"genre"`
	Link        string    `json:"link,omitempty" db:"link"`
	Blurb       string    `json:"blurb"       db:"blurb"`
	IsStaffPick bool      `json:"isStaffPick" db:"is_staff_pick"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// RecommendationWithUser is the read model: a recommendation joined with its
// owner's display name and avatar at query time. The join is never persisted.
type RecommendationWithUser struct {
	Recommendation
	DisplayName string `json:"displayName"`
	ImageURL    string `json:"imageUrl"`
}

// UnknownDisplayName is shown when a recommendation's owner cannot be found.
const UnknownDisplayName = "Unknown"

// SeedResult reports how many records a seeding run inserted.
type SeedResult struct {
	UsersInserted           int `json:"usersInserted"`
	RecommendationsInserted int `json:"recommendationsInserted"`
}
