// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// VerifyExpiry is how long an email verification link is valid.
	VerifyExpiry = time.Hour
	// ResetExpiry is how long a password reset link is valid.
	ResetExpiry = 15 * time.Minute
)

// ErrNotFound is returned when no verification record matches.
var ErrNotFound = errors.New("verification not found")

// Store manages email verification and password reset records.
// There is at most one record per (user, purpose).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("verifications")}
}

// EnsureIndexes creates necessary indexes including TTL index for auto-cleanup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_verify_expires_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("idx_verify_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "purpose", Value: 1}},
			Options: options.Index().SetName("uniq_verify_user_purpose").SetUnique(true),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Put stores v, replacing any previous record for the same user and purpose.
func (s *Store) Put(ctx context.Context, v models.Verification) (models.Verification, error) {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.ReplaceOne(ctx,
		bson.M{"user_id": v.UserID, "purpose": v.Purpose},
		v,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return models.Verification{}, err
	}
	return v, nil
}

// FindForUser returns the record for (userID, purpose), expired or not.
func (s *Store) FindForUser(ctx context.Context, userID primitive.ObjectID, purpose string) (models.Verification, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "purpose": purpose})
}

// FindByToken returns the record holding token for (userID, purpose).
func (s *Store) FindByToken(ctx context.Context, userID primitive.ObjectID, purpose, token string) (models.Verification, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "purpose": purpose, "token": token})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Verification, error) {
	var v models.Verification
	if err := s.c.FindOne(ctx, filter).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Verification{}, ErrNotFound
		}
		return models.Verification{}, err
	}
	return v, nil
}

// Delete removes a record by id.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteExpired removes records whose expiry is at or before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
