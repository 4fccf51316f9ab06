// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/flowbase/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("invitation not found")
	// ErrDuplicate is returned when the (user, workspace) pair already has a record.
	ErrDuplicate = errors.New("an invitation for this user already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workspace_invitations")}
}

// EnsureIndexes creates the one-record-per-pair index and a TTL backstop.
// The TTL index lags; callers still check ExpiresAt themselves.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "workspace_id", Value: 1}},
			Options: options.Index().SetName("uniq_invite_user_workspace").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}},
			Options: options.Index().SetName("idx_invite_workspace"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_invite_expires_ttl").SetExpireAfterSeconds(0),
		},
	})
	return err
}

// Create inserts inv.
func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Invitation{}, ErrDuplicate
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// Find returns the invitation for the (user, workspace) pair, expired or not.
func (s *Store) Find(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Invitation, error) {
	return s.findOne(ctx, bson.M{"user": userID, "workspace_id": workspaceID})
}

// FindByToken returns the invitation holding token for the given pair.
func (s *Store) FindByToken(ctx context.Context, userID, workspaceID primitive.ObjectID, token string) (models.Invitation, error) {
	return s.findOne(ctx, bson.M{"user": userID, "workspace_id": workspaceID, "token": token})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Invitation, error) {
	var inv models.Invitation
	if err := s.c.FindOne(ctx, filter).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Invitation{}, ErrNotFound
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// Delete removes one invitation by id.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteByWorkspace removes every invitation for a workspace.
func (s *Store) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes invitations whose expiry is at or before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByWorkspace returns the number of stored invitations for a workspace.
func (s *Store) CountByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"workspace_id": workspaceID})
}
