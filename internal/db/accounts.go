package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleapp/circle/internal/models"
)

// AccountRepository provides account-related database operations
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(repo *Repository) *AccountRepository {
	return &AccountRepository{Repository: repo}
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	now := r.now()
	account.ID = primitive.NewObjectID()
	account.IsActive = true
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.Followers == nil {
		account.Followers = []primitive.ObjectID{}
	}
	if account.Following == nil {
		account.Following = []primitive.ObjectID{}
	}
	_, err := r.db.Collection(models.FamilyAccount).InsertOne(ctx, account)
	return err
}

// Account retrieves a visible account by ID, nil when absent
func (r *AccountRepository) Account(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var account models.Account
	err := r.db.Collection(models.FamilyAccount).
		FindOne(ctx, r.visibleByID(models.FamilyAccount, id)).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByHandle retrieves a visible account by handle, nil when absent
func (r *AccountRepository) GetByHandle(ctx context.Context, handle string) (*models.Account, error) {
	filter := r.visibleFilter(models.FamilyAccount)
	filter["handle"] = handle

	var account models.Account
	err := r.db.Collection(models.FamilyAccount).FindOne(ctx, filter).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByPhone retrieves a visible account by phone, nil when absent
func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	filter := r.visibleFilter(models.FamilyAccount)
	filter["phone"] = phone

	var account models.Account
	err := r.db.Collection(models.FamilyAccount).FindOne(ctx, filter).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateProfile updates the mutable profile fields
func (r *AccountRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, displayName, bio, avatarURL string) error {
	_, err := r.db.Collection(models.FamilyAccount).UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"display_name": displayName,
			"bio":          bio,
			"avatar_url":   avatarURL,
			"updated_at":   r.now(),
		},
	})
	return err
}

// AddFollowing puts target into actor's following set and bumps the
// count in the same document update. The filter guarantees the pair
// lands only when the edge was absent, so replays report changed=false.
func (r *AccountRepository) AddFollowing(ctx context.Context, actor, target primitive.ObjectID) (bool, error) {
	res, err := r.db.Collection(models.FamilyAccount).UpdateOne(ctx,
		bson.M{"_id": actor, "following": bson.M{"$ne": target}},
		bson.M{
			"$addToSet": bson.M{"following": target},
			"$inc":      bson.M{"following_count": 1},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveFollowing is the inverse of AddFollowing.
func (r *AccountRepository) RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) (bool, error) {
	res, err := r.db.Collection(models.FamilyAccount).UpdateOne(ctx,
		bson.M{"_id": actor, "following": target},
		bson.M{
			"$pull": bson.M{"following": target},
			"$inc":  bson.M{"following_count": -1},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// AddFollower puts actor into target's followers set and bumps the count.
func (r *AccountRepository) AddFollower(ctx context.Context, target, actor primitive.ObjectID) (bool, error) {
	res, err := r.db.Collection(models.FamilyAccount).UpdateOne(ctx,
		bson.M{"_id": target, "followers": bson.M{"$ne": actor}},
		bson.M{
			"$addToSet": bson.M{"followers": actor},
			"$inc":      bson.M{"followers_count": 1},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveFollower is the inverse of AddFollower.
func (r *AccountRepository) RemoveFollower(ctx context.Context, target, actor primitive.ObjectID) (bool, error) {
	res, err := r.db.Collection(models.FamilyAccount).UpdateOne(ctx,
		bson.M{"_id": target, "followers": actor},
		bson.M{
			"$pull": bson.M{"followers": actor},
			"$inc":  bson.M{"followers_count": -1},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ListByIDs retrieves the visible accounts among ids, preserving no
// particular order.
func (r *AccountRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]*models.Account, error) {
	if len(ids) == 0 {
		return []*models.Account{}, nil
	}
	filter := r.visibleFilter(models.FamilyAccount)
	filter["_id"] = bson.M{"$in": ids}

	cursor, err := r.db.Collection(models.FamilyAccount).Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	accounts := []*models.Account{}
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}
