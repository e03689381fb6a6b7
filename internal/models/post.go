package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Reaction records one account acting on an entity (a like or a view)
// together with when it happened.
type Reaction struct {
	User primitive.ObjectID `bson:"user" json:"user"`
	At   time.Time          `bson:"at" json:"at"`
}

// MediaItem is an opaque reference to an uploaded file.
type MediaItem struct {
	URL  string `bson:"url" json:"url"`
	Type string `bson:"type" json:"type"` // "image" or "video"
}

// Post represents a feed post.
//
// Likes is the authoritative reaction set; LikesCount is its cached
// aggregate. CommentsCount aggregates active comments referencing this
// post and is maintained by the counter ledger on comment create/delete.
type Post struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID primitive.ObjectID `bson:"author_id" json:"authorId"`
	Content  string             `bson:"content" json:"content"`
	Media    []MediaItem        `bson:"media" json:"media"`

	Likes         []Reaction `bson:"likes" json:"-"`
	LikesCount    int64      `bson:"likes_count" json:"likesCount"`
	CommentsCount int64      `bson:"comments_count" json:"commentsCount"`
	SharesCount   int64      `bson:"shares_count" json:"sharesCount"`

	Visibility string    `bson:"visibility" json:"visibility"`
	IsActive   bool      `bson:"is_active" json:"-"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// ActiveFlag reports the soft-delete state.
func (p *Post) ActiveFlag() bool { return p.IsActive }

// Expiry reports no natural expiry for posts.
func (p *Post) Expiry() (time.Time, bool) { return time.Time{}, false }

// LikedBy reports whether id is present in the likes set.
func (p *Post) LikedBy(id primitive.ObjectID) bool {
	return reactionBy(p.Likes, id)
}

func reactionBy(set []Reaction, id primitive.ObjectID) bool {
	for _, r := range set {
		if r.User == id {
			return true
		}
	}
	return false
}
