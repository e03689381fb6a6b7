package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a comment on a post, or a reply to another comment.
//
// Threads are flattened to two levels at creation time: TopLevelID always
// points at a genuine top-level comment (nil for top-level comments
// themselves), and ParentID is the immediate parent a reply was written
// under. A reply to a reply keeps the original top-level comment as its
// TopLevelID, so reads never recurse.
type Comment struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PostID   primitive.ObjectID  `bson:"post_id" json:"postId"`
	AuthorID primitive.ObjectID  `bson:"author_id" json:"authorId"`
	ParentID *primitive.ObjectID `bson:"parent_id,omitempty" json:"parentId,omitempty"`
	// TopLevelID is the comment replies are counted against.
	TopLevelID *primitive.ObjectID `bson:"top_level_id,omitempty" json:"topLevelId,omitempty"`
	Content    string              `bson:"content" json:"content"`

	Likes        []Reaction `bson:"likes" json:"-"`
	LikesCount   int64      `bson:"likes_count" json:"likesCount"`
	RepliesCount int64      `bson:"replies_count" json:"repliesCount"`

	IsActive  bool      `bson:"is_active" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// ActiveFlag reports the soft-delete state.
func (c *Comment) ActiveFlag() bool { return c.IsActive }

// Expiry reports no natural expiry for comments.
func (c *Comment) Expiry() (time.Time, bool) { return time.Time{}, false }

// IsReply reports whether the comment was created under a parent comment.
func (c *Comment) IsReply() bool { return c.TopLevelID != nil }

// LikedBy reports whether id is present in the likes set.
func (c *Comment) LikedBy(id primitive.ObjectID) bool {
	return reactionBy(c.Likes, id)
}
