// internal/app/store/tasks/taskstore.go
package taskstore

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

var (
	ErrNotFound        = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_task_project_created"),
		},
		{
			Keys:    bson.D{{Key: "assignees", Value: 1}, {Key: "is_archived", Value: 1}},
			Options: options.Index().SetName("idx_task_assignees"),
		},
		{
			Keys:    bson.D{{Key: "project", Value: 1}, {Key: "is_archived", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_task_project_archived_updated"),
		},
	})
	return err
}

// Create inserts t with defaults for status, priority and slices.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Status == "" {
		t.Status = models.TaskToDo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Assignees == nil {
		t.Assignees = []primitive.ObjectID{}
	}
	if t.Watchers == nil {
		t.Watchers = []primitive.ObjectID{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []models.Subtask{}
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	return t, nil
}

// ListByProjects returns tasks of the given projects, newest first.
func (s *Store) ListByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{"project": bson.M{"$in": projectIDs}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// ListArchived returns archived tasks of the given projects, most recently
// updated first.
func (s *Store) ListArchived(ctx context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{"project": bson.M{"$in": projectIDs}, "is_archived": true},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
}

// ListAssignedTo returns non-archived tasks assigned to userID.
func (s *Store) ListAssignedTo(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{"assignees": userID, "is_archived": false},
		options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "created_at", Value: -1}}))
}

// IDsByProjects returns ids of every task in the given projects.
func (s *Store) IDsByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	tasks, err := s.find(ctx, bson.M{"project": bson.M{"$in": projectIDs}}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Task, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Set writes the given fields and returns the updated task.
// Only the handful of keys the task handlers use are accepted.
func (s *Store) Set(ctx context.Context, id primitive.ObjectID, fields TaskFields) (models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if fields.Title != nil {
		set["title"] = *fields.Title
	}
	if fields.Description != nil {
		set["description"] = *fields.Description
	}
	if fields.Status != nil {
		set["status"] = *fields.Status
		if *fields.Status == models.TaskDone {
			set["completed_at"] = time.Now().UTC()
		} else {
			unset["completed_at"] = ""
		}
	}
	if fields.Priority != nil {
		set["priority"] = *fields.Priority
	}
	if fields.Assignees != nil {
		set["assignees"] = fields.Assignees
	}
	if fields.Watchers != nil {
		set["watchers"] = fields.Watchers
	}
	if fields.Archived != nil {
		set["is_archived"] = *fields.Archived
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return s.findAndUpdate(ctx, bson.M{"_id": id}, update, ErrNotFound)
}

// TaskFields lists the task fields Set may change. Nil means unchanged.
type TaskFields struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Assignees   []primitive.ObjectID
	Watchers    []primitive.ObjectID
	Archived    *bool
}

// AddSubtask appends st to the task.
func (s *Store) AddSubtask(ctx context.Context, id primitive.ObjectID, st models.Subtask) (models.Task, error) {
	return s.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"subtasks": st},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}, ErrNotFound)
}

// SetSubtaskCompleted flips one subtask's completion flag.
func (s *Store) SetSubtaskCompleted(ctx context.Context, id, subtaskID primitive.ObjectID, completed bool) (models.Task, error) {
	return s.findAndUpdate(ctx, bson.M{"_id": id, "subtasks._id": subtaskID}, bson.M{
		"$set": bson.M{"subtasks.$.completed": completed, "updated_at": time.Now().UTC()},
	}, ErrSubtaskNotFound)
}

func (s *Store) findAndUpdate(ctx context.Context, filter, update bson.M, notFound error) (models.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t models.Task
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Task{}, notFound
		}
		return models.Task{}, err
	}
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteByProjects removes every task of the given projects.
func (s *Store) DeleteByProjects(ctx context.Context, projectIDs []primitive.ObjectID) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"project": bson.M{"$in": projectIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
