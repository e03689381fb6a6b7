package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/circleapp/circle/internal/models"
	"github.com/circleapp/circle/pkg/config"
	"github.com/circleapp/circle/pkg/logging"
)

// Collection names, one per entity family.
var collections = map[models.Family]string{
	models.FamilyAccount:       "accounts",
	models.FamilyPost:          "posts",
	models.FamilyComment:       "comments",
	models.FamilyStory:         "stories",
	models.FamilyService:       "services",
	models.FamilyAdvertisement: "advertisements",
}

// DB wraps the MongoDB connection
type DB struct {
	client   *mongo.Client
	database *mongo.Database
}

// New creates a new database connection and prepares indexes
func New(cfg *config.DatabaseConfig) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	d := &DB{
		client:   client,
		database: client.Database(cfg.Name),
	}

	if err := d.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logging.GetLogger().Info("MongoDB connection established")

	return d, nil
}

// Collection returns the collection backing an entity family
func (d *DB) Collection(family models.Family) *mongo.Collection {
	return d.database.Collection(collections[family])
}

// ensureIndexes creates the unique and TTL indexes the data model needs.
// The stories TTL index is the external purge sweep: MongoDB removes
// expired documents on its own schedule, while reads filter on
// expires_at regardless.
func (d *DB) ensureIndexes(ctx context.Context) error {
	_, err := d.Collection(models.FamilyAccount).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "handle", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = d.Collection(models.FamilyPost).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = d.Collection(models.FamilyComment).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "top_level_id", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = d.Collection(models.FamilyStory).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
		{
			// Physical purge 24h after the visibility window closes;
			// audit reads before then still see the document
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(86400),
		},
	})
	if err != nil {
		return err
	}

	_, err = d.Collection(models.FamilyAdvertisement).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "schedule.start_date", Value: 1}},
	})
	return err
}

// Close closes the database connection
func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// Health checks database health
func (d *DB) Health(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}
