package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account represents a registered user.
//
// Followers and Following are the authoritative relationship sets; the
// *_count fields are denormalized aggregates maintained by the counter
// ledger and must equal the set sizes after every completed operation.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Handle       string             `bson:"handle" json:"handle"`
	Phone        string             `bson:"phone" json:"-"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	// Profile fields
	DisplayName string `bson:"display_name" json:"displayName"`
	Bio         string `bson:"bio" json:"bio"`
	AvatarURL   string `bson:"avatar_url" json:"avatarUrl"`

	// Relationship sets and their cached aggregates
	Followers      []primitive.ObjectID `bson:"followers" json:"-"`
	Following      []primitive.ObjectID `bson:"following" json:"-"`
	FollowersCount int64                `bson:"followers_count" json:"followersCount"`
	FollowingCount int64                `bson:"following_count" json:"followingCount"`
	PostsCount     int64                `bson:"posts_count" json:"postsCount"`

	IsActive  bool      `bson:"is_active" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ActiveFlag reports the soft-delete state.
func (a *Account) ActiveFlag() bool { return a.IsActive }

// Expiry reports no natural expiry for accounts.
func (a *Account) Expiry() (time.Time, bool) { return time.Time{}, false }

// IsFollowing reports whether id is present in the following set.
func (a *Account) IsFollowing(id primitive.ObjectID) bool {
	for _, f := range a.Following {
		if f == id {
			return true
		}
	}
	return false
}
