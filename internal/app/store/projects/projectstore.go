// internal/app/store/projects/projectstore.go
package projectstore

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

var ErrNotFound = errors.New("project not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workspace", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_project_workspace_created"),
		},
		{
			Keys:    bson.D{{Key: "members.user", Value: 1}},
			Options: options.Index().SetName("idx_project_members_user"),
		},
	})
	return err
}

// Create inserts p with timestamps and empty task list.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	if p.Tasks == nil {
		p.Tasks = []primitive.ObjectID{}
	}
	if p.Members == nil {
		p.Members = []models.ProjectMember{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// ListByWorkspace returns the workspace's projects, newest first.
// Archived projects are included only when includeArchived is set.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID, includeArchived bool) ([]models.Project, error) {
	filter := bson.M{"workspace": workspaceID}
	if !includeArchived {
		filter["is_archived"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IDsByWorkspace returns the ids of every project in the workspace.
func (s *Store) IDsByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"workspace": workspaceID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// ProjectUpdate holds the editable project fields. Nil fields are left alone.
type ProjectUpdate struct {
	Title       *string
	Description *string
	Status      *string
	StartDate   *time.Time
	DueDate     *time.Time
	Progress    *int
	Tags        []string
}

// Update applies upd and returns the stored project.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd ProjectUpdate) (models.Project, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.StartDate != nil {
		set["start_date"] = upd.StartDate.UTC()
	}
	if upd.DueDate != nil {
		set["due_date"] = upd.DueDate.UTC()
	}
	if upd.Progress != nil {
		set["progress"] = *upd.Progress
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}
	return s.findAndSet(ctx, id, set)
}

// SetArchived sets the archive flag.
func (s *Store) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) (models.Project, error) {
	return s.findAndSet(ctx, id, bson.M{"is_archived": archived, "updated_at": time.Now().UTC()})
}

func (s *Store) findAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Project
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// AddTask records taskID on the project.
func (s *Store) AddTask(ctx context.Context, id, taskID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"tasks": taskID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveTask drops taskID from the project.
func (s *Store) RemoveTask(ctx context.Context, id, taskID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$pull": bson.M{"tasks": taskID}})
	return err
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteByWorkspace removes every project of a workspace.
func (s *Store) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
