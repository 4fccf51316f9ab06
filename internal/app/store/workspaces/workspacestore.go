// internal/app/store/workspaces/workspacestore.go
package workspacestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound = errors.New("workspace not found")
	// ErrStale is returned by ReplaceMembership when the workspace changed
	// after it was read.
	ErrStale = errors.New("workspace was modified concurrently")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workspaces")}
}

// EnsureIndexes creates the membership lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "members.user", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_ws_members_user_created"),
		},
		{
			Keys:    bson.D{{Key: "owner", Value: 1}},
			Options: options.Index().SetName("idx_ws_owner"),
		},
	})
	return err
}

// Create inserts ws as built by models.NewWorkspace.
func (s *Store) Create(ctx context.Context, ws models.Workspace) (models.Workspace, error) {
	if ws.ID.IsZero() {
		ws.ID = primitive.NewObjectID()
	}
	ws.NameCI = text.Fold(ws.Name)
	if ws.Projects == nil {
		ws.Projects = []primitive.ObjectID{}
	}
	ws.Revision = 1
	if _, err := s.c.InsertOne(ctx, ws); err != nil {
		return models.Workspace{}, err
	}
	return ws, nil
}

// GetByID retrieves a workspace by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error) {
	var ws models.Workspace
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ws); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// ListForUser returns workspaces where userID has a membership entry,
// newest first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Workspace, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"members.user": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Workspace{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDetails sets name and description. color is left unchanged when
// empty.
func (s *Store) UpdateDetails(ctx context.Context, id primitive.ObjectID, name, description, color string) (models.Workspace, error) {
	set := bson.M{
		"name":        name,
		"name_ci":     text.Fold(name),
		"description": description,
		"updated_at":  time.Now().UTC(),
	}
	if color != "" {
		set["color"] = color
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ws models.Workspace
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&ws)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// AddMember appends a membership entry unless userID already has one.
// It reports whether the entry was added.
func (s *Store) AddMember(ctx context.Context, id primitive.ObjectID, m models.Member) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "members.user": bson.M{"$ne": m.User}},
		bson.M{
			"$push": bson.M{"members": m},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
			"$inc":  bson.M{"revision": 1},
		},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	// Distinguish a missing workspace from an existing member.
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// ReplaceMembership writes ws.Members and ws.Owner in one update, provided
// the stored revision still equals ws.Revision.
func (s *Store) ReplaceMembership(ctx context.Context, ws models.Workspace) (models.Workspace, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": ws.ID, "revision": ws.Revision},
		bson.M{
			"$set": bson.M{"members": ws.Members, "owner": ws.Owner, "updated_at": now},
			"$inc": bson.M{"revision": 1},
		},
	)
	if err != nil {
		return models.Workspace{}, err
	}
	if res.MatchedCount == 0 {
		return models.Workspace{}, ErrStale
	}
	ws.Revision++
	ws.UpdatedAt = now
	return ws, nil
}

// AddProject records projectID on the workspace.
func (s *Store) AddProject(ctx context.Context, id, projectID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"projects": projectID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveProject drops projectID from the workspace.
func (s *Store) RemoveProject(ctx context.Context, id, projectID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$pull": bson.M{"projects": projectID}})
	return err
}

// Delete removes a workspace by ID.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindInconsistentOwnership returns workspaces whose owner field does not
// match exactly one owner entry.
func (s *Store) FindInconsistentOwnership(ctx context.Context) ([]models.Workspace, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var bad []models.Workspace
	for cur.Next(ctx) {
		var ws models.Workspace
		if err := cur.Decode(&ws); err != nil {
			return nil, err
		}
		if !ws.OwnershipConsistent() {
			bad = append(bad, ws)
		}
	}
	return bad, cur.Err()
}
