package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleapp/circle/internal/models"
)

// ownerFields maps each family to the document field naming its owner.
var ownerFields = map[models.Family]string{
	models.FamilyAccount:       "_id",
	models.FamilyPost:          "author_id",
	models.FamilyComment:       "author_id",
	models.FamilyStory:         "author_id",
	models.FamilyService:       "provider_id",
	models.FamilyAdvertisement: "advertiser_id",
}

// Repository provides database access methods. It implements the
// lifecycle and counter-ledger store contracts shared by every family;
// the per-family repositories embed it.
type Repository struct {
	db *DB

	// now is swappable for tests
	now func() time.Time
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// visibleFilter is the single exclusion predicate applied at this
// boundary: soft-deleted documents are out, and time-bounded families
// additionally require an open expiry window.
func (r *Repository) visibleFilter(family models.Family) bson.M {
	filter := bson.M{"is_active": true}
	if family == models.FamilyStory {
		filter["expires_at"] = bson.M{"$gt": r.now()}
	}
	return filter
}

func (r *Repository) visibleByID(family models.Family, id primitive.ObjectID) bson.M {
	filter := r.visibleFilter(family)
	filter["_id"] = id
	return filter
}

// IncField applies an atomic increment to one aggregate field. This is
// the durable store's guarantee that concurrent deltas all land.
func (r *Repository) IncField(ctx context.Context, family models.Family, id primitive.ObjectID, field string, delta int64) error {
	res, err := r.db.Collection(family).UpdateByID(ctx, id, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s not found", family, id.Hex())
	}
	return nil
}

// Owner resolves the owning account of a visible entity.
func (r *Repository) Owner(ctx context.Context, family models.Family, id primitive.ObjectID) (primitive.ObjectID, bool, error) {
	field := ownerFields[family]
	if field == "" {
		return primitive.NilObjectID, false, fmt.Errorf("unknown family %q", family)
	}

	var doc bson.M
	opts := optionsFindOneProjection(bson.M{field: 1})
	err := r.db.Collection(family).FindOne(ctx, r.visibleByID(family, id), opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, false, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, err
	}

	owner, ok := doc[field].(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, false, fmt.Errorf("%s %s has no %s", family, id.Hex(), field)
	}
	return owner, true, nil
}

// Deactivate flips the soft-delete flag. Idempotent: re-deactivating is
// a matched no-op.
func (r *Repository) Deactivate(ctx context.Context, family models.Family, id primitive.ObjectID) error {
	res, err := r.db.Collection(family).UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": r.now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s not found", family, id.Hex())
	}
	return nil
}

func optionsFindOneProjection(projection bson.M) *options.FindOneOptions {
	return options.FindOne().SetProjection(projection)
}
