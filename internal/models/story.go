package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoryLifetime is the visibility window of a story after creation.
const StoryLifetime = 24 * time.Hour

// Story represents an ephemeral media item that expires StoryLifetime
// after creation. Expired stories stay in the collection for audit but
// must be excluded from every read path.
type Story struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID primitive.ObjectID `bson:"author_id" json:"authorId"`
	Media    MediaItem          `bson:"media" json:"media"`

	Views      []Reaction `bson:"views" json:"-"`
	ViewsCount int64      `bson:"views_count" json:"viewsCount"`

	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
	IsActive  bool      `bson:"is_active" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// ActiveFlag reports the soft-delete state.
func (s *Story) ActiveFlag() bool { return s.IsActive }

// Expiry reports the story's natural expiry time.
func (s *Story) Expiry() (time.Time, bool) { return s.ExpiresAt, true }

// ViewedBy reports whether id is present in the views set.
func (s *Story) ViewedBy(id primitive.ObjectID) bool {
	return reactionBy(s.Views, id)
}
