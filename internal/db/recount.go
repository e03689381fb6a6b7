package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/circleapp/circle/internal/models"
	"github.com/circleapp/circle/pkg/logging"
)

// Recounter rebuilds every denormalized counter from its source of
// truth. Intended for offline runs; concurrent writes during a pass can
// leave counters one step stale until the next pass.
type Recounter struct {
	db     *DB
	logger *zap.Logger
}

// NewRecounter creates a recounter over db.
func NewRecounter(db *DB) *Recounter {
	return &Recounter{
		db:     db,
		logger: logging.WithComponent("recount"),
	}
}

// Run executes every recount pass in dependency order: embedded-set
// counters first, then the cross-collection ones.
func (r *Recounter) Run(ctx context.Context) error {
	passes := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"set counters", r.recountSetCounters},
		{"relationship counters", r.recountRelationships},
		{"comment counters", r.recountComments},
		{"reply counters", r.recountReplies},
		{"post counters", r.recountPosts},
	}

	for _, pass := range passes {
		if err := pass.fn(ctx); err != nil {
			return fmt.Errorf("recount %s: %w", pass.name, err)
		}
		r.logger.Info("Recount pass complete", zap.String("pass", pass.name))
	}
	return nil
}

// recountSetCounters resets every counter whose source set lives in the
// same document, via a pipeline update.
func (r *Recounter) recountSetCounters(ctx context.Context) error {
	targets := []struct {
		family models.Family
		fields bson.M
	}{
		{models.FamilyPost, bson.M{"likes_count": bson.M{"$size": "$likes"}}},
		{models.FamilyComment, bson.M{"likes_count": bson.M{"$size": "$likes"}}},
		{models.FamilyStory, bson.M{"views_count": bson.M{"$size": "$views"}}},
		{models.FamilyService, bson.M{
			"rating.count": bson.M{"$size": "$rating.reviews"},
			"rating.sum":   bson.M{"$sum": "$rating.reviews.rating"},
		}},
	}

	for _, t := range targets {
		pipeline := mongo.Pipeline{{{Key: "$set", Value: t.fields}}}
		result, err := r.db.Collection(t.family).UpdateMany(ctx, bson.M{}, pipeline)
		if err != nil {
			return fmt.Errorf("%s: %w", t.family, err)
		}
		r.logger.Debug("Set counters rebuilt",
			zap.String("family", string(t.family)),
			zap.Int64("modified", result.ModifiedCount))
	}
	return nil
}

// recountRelationships resets followers_count and following_count from
// the embedded id sets.
func (r *Recounter) recountRelationships(ctx context.Context) error {
	pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"followers_count": bson.M{"$size": "$followers"},
		"following_count": bson.M{"$size": "$following"},
	}}}}
	_, err := r.db.Collection(models.FamilyAccount).UpdateMany(ctx, bson.M{}, pipeline)
	return err
}

// recountComments rebuilds comments_count on posts from the live
// comments referencing them. Posts with no live comments are zeroed
// first so deleted threads do not leave stale counts behind.
func (r *Recounter) recountComments(ctx context.Context) error {
	return r.recountGrouped(ctx,
		models.FamilyComment, "$post_id",
		models.FamilyPost, "comments_count")
}

// recountReplies rebuilds replies_count on top-level comments from the
// live replies beneath them.
func (r *Recounter) recountReplies(ctx context.Context) error {
	return r.recountGrouped(ctx,
		models.FamilyComment, "$top_level_id",
		models.FamilyComment, "replies_count")
}

// recountPosts rebuilds posts_count on accounts from their live posts.
func (r *Recounter) recountPosts(ctx context.Context) error {
	return r.recountGrouped(ctx,
		models.FamilyPost, "$author_id",
		models.FamilyAccount, "posts_count")
}

// recountGrouped groups live documents of source by groupKey and writes
// each group's size into field on the referenced target document.
func (r *Recounter) recountGrouped(ctx context.Context, source models.Family, groupKey string, target models.Family, field string) error {
	if _, err := r.db.Collection(target).UpdateMany(ctx, bson.M{},
		bson.M{"$set": bson.M{field: 0}}); err != nil {
		return fmt.Errorf("zero %s.%s: %w", target, field, err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"is_active": true,
			groupKey[1:]: bson.M{"$ne": nil},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   groupKey,
			"total": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.db.Collection(source).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", source, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var group struct {
			ID    interface{} `bson:"_id"`
			Total int64       `bson:"total"`
		}
		if err := cursor.Decode(&group); err != nil {
			return fmt.Errorf("decode group: %w", err)
		}
		if _, err := r.db.Collection(target).UpdateByID(ctx, group.ID,
			bson.M{"$set": bson.M{field: group.Total}}); err != nil {
			return fmt.Errorf("write %s.%s: %w", target, field, err)
		}
	}
	return cursor.Err()
}
