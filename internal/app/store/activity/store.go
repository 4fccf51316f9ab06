// internal/app/store/activity/store.go
package activity

import (
	"context"
	"time"

	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit caps resource history reads.
const DefaultLimit = 100

// Store manages activity log entries.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activity_logs")}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// History of one resource
		{
			Keys:    bson.D{{Key: "resource_id", Value: 1}, {Key: "resource_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_activity_resource"),
		},
		// What a user has done
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_activity_user"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Record stores one entry. Details must match their kind.
func (s *Store) Record(ctx context.Context, entry models.ActivityLog) error {
	if err := entry.Details.Validate(); err != nil {
		return err
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, entry)
	return err
}

// ByResource returns the newest entries for one resource.
func (s *Store) ByResource(ctx context.Context, resourceID primitive.ObjectID, limit int64) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"resource_id": resourceID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ActivityLog{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByResources removes the history of the given resources.
func (s *Store) DeleteByResources(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"resource_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
