package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/models"
)

// EngagementRepository implements the reaction-set mutations shared by
// posts, comments and stories. Each mutation is one conditional update:
// the membership filter makes the set change and its counter delta an
// atomic check-and-mutate on a single document.
type EngagementRepository struct {
	*Repository
}

// NewEngagementRepository creates a new engagement repository
func NewEngagementRepository(repo *Repository) *EngagementRepository {
	return &EngagementRepository{Repository: repo}
}

// LikeState reads the durable like membership of actor on the entity.
func (r *EngagementRepository) LikeState(ctx context.Context, family models.Family, id, actor primitive.ObjectID) (*core.LikeState, error) {
	switch family {
	case models.FamilyPost:
		var post models.Post
		err := r.db.Collection(family).FindOne(ctx, r.visibleByID(family, id)).Decode(&post)
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: post %s", core.ErrNotFound, id.Hex())
		}
		if err != nil {
			return nil, err
		}
		return &core.LikeState{
			Liked:   post.LikedBy(actor),
			Count:   post.LikesCount,
			OwnerID: post.AuthorID,
		}, nil
	case models.FamilyComment:
		var comment models.Comment
		err := r.db.Collection(family).FindOne(ctx, r.visibleByID(family, id)).Decode(&comment)
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: comment %s", core.ErrNotFound, id.Hex())
		}
		if err != nil {
			return nil, err
		}
		return &core.LikeState{
			Liked:   comment.LikedBy(actor),
			Count:   comment.LikesCount,
			OwnerID: comment.AuthorID,
			PostID:  comment.PostID,
		}, nil
	}
	return nil, fmt.Errorf("%w: family %q has no likes", core.ErrInvalid, family)
}

// AddLike pushes the reaction and bumps the counter when actor was not
// in the set; changed=false otherwise. The returned count reflects the
// document after the update.
func (r *EngagementRepository) AddLike(ctx context.Context, family models.Family, id, actor primitive.ObjectID, at time.Time) (int64, bool, error) {
	filter := r.visibleByID(family, id)
	filter["likes.user"] = bson.M{"$ne": actor}

	update := bson.M{
		"$push": bson.M{"likes": models.Reaction{User: actor, At: at}},
		"$inc":  bson.M{"likes_count": 1},
	}
	return r.mutateLikes(ctx, family, id, actor, filter, update)
}

// RemoveLike pulls the reaction and decrements the counter when actor
// was in the set; changed=false otherwise.
func (r *EngagementRepository) RemoveLike(ctx context.Context, family models.Family, id, actor primitive.ObjectID) (int64, bool, error) {
	filter := r.visibleByID(family, id)
	filter["likes.user"] = actor

	update := bson.M{
		"$pull": bson.M{"likes": bson.M{"user": actor}},
		"$inc":  bson.M{"likes_count": -1},
	}
	return r.mutateLikes(ctx, family, id, actor, filter, update)
}

func (r *EngagementRepository) mutateLikes(ctx context.Context, family models.Family, id, actor primitive.ObjectID, filter, update bson.M) (int64, bool, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes_count": 1})

	var doc struct {
		LikesCount int64 `bson:"likes_count"`
	}
	err := r.db.Collection(family).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.LikesCount, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return 0, false, err
	}

	// Membership was already in the requested state, or the entity is
	// gone; a re-read distinguishes the two.
	state, err := r.LikeState(ctx, family, id, actor)
	if err != nil {
		return 0, false, err
	}
	return state.Count, false, nil
}

// ViewState reads the durable view membership of actor on a story.
func (r *EngagementRepository) ViewState(ctx context.Context, family models.Family, id, actor primitive.ObjectID) (*core.ViewState, error) {
	if family != models.FamilyStory {
		return nil, fmt.Errorf("%w: family %q has no views", core.ErrInvalid, family)
	}

	var story models.Story
	err := r.db.Collection(family).FindOne(ctx, r.visibleByID(family, id)).Decode(&story)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: story %s", core.ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &core.ViewState{
		Viewed:  story.ViewedBy(actor),
		Count:   story.ViewsCount,
		OwnerID: story.AuthorID,
	}, nil
}

// AddView records a first view; replays report changed=false.
func (r *EngagementRepository) AddView(ctx context.Context, family models.Family, id, actor primitive.ObjectID, at time.Time) (int64, bool, error) {
	if family != models.FamilyStory {
		return 0, false, fmt.Errorf("%w: family %q has no views", core.ErrInvalid, family)
	}

	filter := r.visibleByID(family, id)
	filter["views.user"] = bson.M{"$ne": actor}

	update := bson.M{
		"$push": bson.M{"views": models.Reaction{User: actor, At: at}},
		"$inc":  bson.M{"views_count": 1},
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"views_count": 1})

	var doc struct {
		ViewsCount int64 `bson:"views_count"`
	}
	err := r.db.Collection(family).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.ViewsCount, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return 0, false, err
	}

	state, err := r.ViewState(ctx, family, id, actor)
	if err != nil {
		return 0, false, err
	}
	return state.Count, false, nil
}
