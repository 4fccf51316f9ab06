// Package memstore provides in-memory stand-ins for the Mongo stores so
// service and handler tests run without a database. Each type returns the
// same sentinel errors as the store it replaces.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/flowbase/internal/app/store/emailverify"
	invitationstore "github.com/dalemusser/flowbase/internal/app/store/invitations"
	projectstore "github.com/dalemusser/flowbase/internal/app/store/projects"
	taskstore "github.com/dalemusser/flowbase/internal/app/store/tasks"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB bundles one of every store over shared state.
type DB struct {
	Users         *Users
	Workspaces    *Workspaces
	Invitations   *Invitations
	Projects      *Projects
	Tasks         *Tasks
	Comments      *Comments
	Activity      *Activity
	Verifications *Verifications
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		Users:         &Users{m: map[primitive.ObjectID]models.User{}},
		Workspaces:    &Workspaces{m: map[primitive.ObjectID]models.Workspace{}},
		Invitations:   &Invitations{m: map[primitive.ObjectID]models.Invitation{}},
		Projects:      &Projects{m: map[primitive.ObjectID]models.Project{}},
		Tasks:         &Tasks{m: map[primitive.ObjectID]models.Task{}},
		Comments:      &Comments{m: map[primitive.ObjectID]models.Comment{}},
		Activity:      &Activity{},
		Verifications: &Verifications{m: map[primitive.ObjectID]models.Verification{}},
	}
}

// Tx runs fn directly. Stores here have no partial-failure modes to roll back.
type Tx struct{}

func (Tx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

/* ---------- users ---------- */

type Users struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]models.User
}

func (s *Users) Create(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range s.m {
		if x.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Role == "" {
		u.Role = models.UserRoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.m[u.ID] = u
	return u, nil
}

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[id]
	if !ok {
		return models.User{}, userstore.ErrNotFound
	}
	return u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.m {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, userstore.ErrNotFound
}

func (s *Users) Summaries(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := s.m[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

func (s *Users) update(id primitive.ObjectID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[id]
	if !ok {
		return userstore.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.m[id] = u
	return nil
}

func (s *Users) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	return s.update(id, func(u *models.User) { u.IsEmailVerified = true })
}

func (s *Users) SetLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.update(id, func(u *models.User) { t := at.UTC(); u.LastLogin = &t })
}

func (s *Users) SetPasswordHash(_ context.Context, id primitive.ObjectID, hash string) error {
	return s.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (s *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, fullName, picture string) error {
	return s.update(id, func(u *models.User) {
		u.FullName = fullName
		if picture != "" {
			u.ProfilePicture = picture
		}
	})
}

/* ---------- workspaces ---------- */

type Workspaces struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]models.Workspace

	// BeforeReplace, when set, runs before each ReplaceMembership check.
	// Tests use it to simulate a concurrent writer.
	BeforeReplace func()
}

func cloneWorkspace(ws models.Workspace) models.Workspace {
	ws.Members = append([]models.Member(nil), ws.Members...)
	ws.Projects = append([]primitive.ObjectID(nil), ws.Projects...)
	return ws
}

func (s *Workspaces) Create(_ context.Context, ws models.Workspace) (models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws.ID.IsZero() {
		ws.ID = primitive.NewObjectID()
	}
	ws.Revision = 1
	s.m[ws.ID] = cloneWorkspace(ws)
	return ws, nil
}

func (s *Workspaces) GetByID(_ context.Context, id primitive.ObjectID) (models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.m[id]
	if !ok {
		return models.Workspace{}, workspacestore.ErrNotFound
	}
	return cloneWorkspace(ws), nil
}

func (s *Workspaces) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Workspace{}
	for _, ws := range s.m {
		if ws.IsMember(userID) {
			out = append(out, cloneWorkspace(ws))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Workspaces) UpdateDetails(_ context.Context, id primitive.ObjectID, name, description, color string) (models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.m[id]
	if !ok {
		return models.Workspace{}, workspacestore.ErrNotFound
	}
	ws.Name = name
	ws.Description = description
	if color != "" {
		ws.Color = color
	}
	ws.UpdatedAt = time.Now().UTC()
	s.m[id] = ws
	return cloneWorkspace(ws), nil
}

func (s *Workspaces) AddMember(_ context.Context, id primitive.ObjectID, m models.Member) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.m[id]
	if !ok {
		return false, workspacestore.ErrNotFound
	}
	if ws.IsMember(m.User) {
		return false, nil
	}
	ws = cloneWorkspace(ws)
	ws.Members = append(ws.Members, m)
	ws.Revision++
	s.m[id] = ws
	return true, nil
}

func (s *Workspaces) ReplaceMembership(_ context.Context, ws models.Workspace) (models.Workspace, error) {
	if s.BeforeReplace != nil {
		s.BeforeReplace()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[ws.ID]
	if !ok || cur.Revision != ws.Revision {
		return models.Workspace{}, workspacestore.ErrStale
	}
	cur = cloneWorkspace(cur)
	cur.Members = append([]models.Member(nil), ws.Members...)
	cur.Owner = ws.Owner
	cur.Revision++
	cur.UpdatedAt = time.Now().UTC()
	s.m[ws.ID] = cur
	return cloneWorkspace(cur), nil
}

func (s *Workspaces) AddProject(_ context.Context, id, projectID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.m[id]
	if !ok {
		return nil
	}
	ws = cloneWorkspace(ws)
	ws.Projects = append(ws.Projects, projectID)
	s.m[id] = ws
	return nil
}

func (s *Workspaces) RemoveProject(_ context.Context, id, projectID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.m[id]
	if !ok {
		return nil
	}
	ws = cloneWorkspace(ws)
	ws.Projects = without(ws.Projects, projectID)
	s.m[id] = ws
	return nil
}

func (s *Workspaces) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[id]; !ok {
		return 0, nil
	}
	delete(s.m, id)
	return 1, nil
}

// Mutate applies fn to the stored workspace and bumps its revision.
func (s *Workspaces) Mutate(id primitive.ObjectID, fn func(*models.Workspace)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := cloneWorkspace(s.m[id])
	fn(&ws)
	ws.Revision++
	s.m[id] = ws
}

/* ---------- invitations ---------- */

type Invitations struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]models.Invitation
}

func (s *Invitations) Create(_ context.Context, inv models.Invitation) (models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.m {
		if x.User == inv.User && x.WorkspaceID == inv.WorkspaceID {
			return models.Invitation{}, invitationstore.ErrDuplicate
		}
	}
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	s.m[inv.ID] = inv
	return inv, nil
}

func (s *Invitations) Find(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Invitation, error) {
	return s.find(func(i models.Invitation) bool { return i.User == userID && i.WorkspaceID == workspaceID })
}

func (s *Invitations) FindByToken(ctx context.Context, userID, workspaceID primitive.ObjectID, token string) (models.Invitation, error) {
	return s.find(func(i models.Invitation) bool {
		return i.User == userID && i.WorkspaceID == workspaceID && i.Token == token
	})
}

func (s *Invitations) find(match func(models.Invitation) bool) (models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.m {
		if match(i) {
			return i, nil
		}
	}
	return models.Invitation{}, invitationstore.ErrNotFound
}

func (s *Invitations) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *Invitations) DeleteByWorkspace(_ context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.deleteWhere(func(i models.Invitation) bool { return i.WorkspaceID == workspaceID }), nil
}

func (s *Invitations) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return s.deleteWhere(func(i models.Invitation) bool { return i.Expired(now) }), nil
}

func (s *Invitations) deleteWhere(match func(models.Invitation) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, i := range s.m {
		if match(i) {
			delete(s.m, id)
			n++
		}
	}
	return n
}

func (s *Invitations) CountByWorkspace(_ context.Context, workspaceID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, i := range s.m {
		if i.WorkspaceID == workspaceID {
			n++
		}
	}
	return n, nil
}

// Put stores inv as is, for tests that need a specific expiry.
func (s *Invitations) Put(inv models.Invitation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[inv.ID] = inv
}

/* ---------- projects ---------- */

type Projects struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]models.Project
}

func (s *Projects) Create(_ context.Context, p models.Project) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	s.m[p.ID] = p
	return p, nil
}

func (s *Projects) GetByID(_ context.Context, id primitive.ObjectID) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[id]
	if !ok {
		return models.Project{}, projectstore.ErrNotFound
	}
	return p, nil
}

func (s *Projects) ListByWorkspace(_ context.Context, workspaceID primitive.ObjectID, includeArchived bool) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Project{}
	for _, p := range s.m {
		if p.Workspace == workspaceID && (includeArchived || !p.IsArchived) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Projects) IDsByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]primitive.ObjectID, error) {
	list, _ := s.ListByWorkspace(ctx, workspaceID, true)
	ids := make([]primitive.ObjectID, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *Projects) Update(_ context.Context, id primitive.ObjectID, upd projectstore.ProjectUpdate) (models.Project, error) {
	return s.update(id, func(p *models.Project) {
		if upd.Title != nil {
			p.Title = *upd.Title
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.Status != nil {
			p.Status = *upd.Status
		}
		if upd.StartDate != nil {
			p.StartDate = upd.StartDate
		}
		if upd.DueDate != nil {
			p.DueDate = upd.DueDate
		}
		if upd.Progress != nil {
			p.Progress = *upd.Progress
		}
		if upd.Tags != nil {
			p.Tags = upd.Tags
		}
	})
}

func (s *Projects) SetArchived(_ context.Context, id primitive.ObjectID, archived bool) (models.Project, error) {
	return s.update(id, func(p *models.Project) { p.IsArchived = archived })
}

func (s *Projects) update(id primitive.ObjectID, fn func(*models.Project)) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[id]
	if !ok {
		return models.Project{}, projectstore.ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	s.m[id] = p
	return p, nil
}

func (s *Projects) AddTask(_ context.Context, id, taskID primitive.ObjectID) error {
	_, err := s.update(id, func(p *models.Project) {
		p.Tasks = append(append([]primitive.ObjectID(nil), p.Tasks...), taskID)
	})
	if err == projectstore.ErrNotFound {
		return nil
	}
	return err
}

func (s *Projects) RemoveTask(_ context.Context, id, taskID primitive.ObjectID) error {
	_, err := s.update(id, func(p *models.Project) { p.Tasks = without(p.Tasks, taskID) })
	if err == projectstore.ErrNotFound {
		return nil
	}
	return err
}

func (s *Projects) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *Projects) DeleteByWorkspace(_ context.Context, workspaceID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.m {
		if p.Workspace == workspaceID {
			delete(s.m, id)
			n++
		}
	}
	return n, nil
}

/* ---------- tasks ---------- */

type Tasks struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]models.Task
}

func (s *Tasks) Create(_ context.Context, t models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	s.m[t.ID] = t
	return t, nil
}

func (s *Tasks) GetByID(_ context.Context, id primitive.ObjectID) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.m[id]
	if !ok {
		return models.Task{}, taskstore.ErrNotFound
	}
	return t, nil
}

func (s *Tasks) list(match func(models.Task) bool, less func(a, b models.Task) bool) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Task{}
	for _, t := range s.m {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func newestFirst(a, b models.Task) bool { return a.CreatedAt.After(b.CreatedAt) }

func (s *Tasks) ListByProjects(_ context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error) {
	return s.list(func(t models.Task) bool { return contains(projectIDs, t.Project) }, newestFirst), nil
}

func (s *Tasks) ListArchived(_ context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error) {
	return s.list(func(t models.Task) bool { return t.IsArchived && contains(projectIDs, t.Project) },
		func(a, b models.Task) bool { return a.UpdatedAt.After(b.UpdatedAt) }), nil
}

func (s *Tasks) ListAssignedTo(_ context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	return s.list(func(t models.Task) bool { return !t.IsArchived && contains(t.Assignees, userID) }, newestFirst), nil
}

func (s *Tasks) IDsByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	list, _ := s.ListByProjects(ctx, projectIDs)
	ids := make([]primitive.ObjectID, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (s *Tasks) update(id primitive.ObjectID, fn func(*models.Task) error) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.m[id]
	if !ok {
		return models.Task{}, taskstore.ErrNotFound
	}
	t.Subtasks = append([]models.Subtask(nil), t.Subtasks...)
	if err := fn(&t); err != nil {
		return models.Task{}, err
	}
	t.UpdatedAt = time.Now().UTC()
	s.m[id] = t
	return t, nil
}

func (s *Tasks) Set(_ context.Context, id primitive.ObjectID, f taskstore.TaskFields) (models.Task, error) {
	return s.update(id, func(t *models.Task) error {
		if f.Title != nil {
			t.Title = *f.Title
		}
		if f.Description != nil {
			t.Description = *f.Description
		}
		if f.Status != nil {
			t.Status = *f.Status
			if t.Status == models.TaskDone {
				now := time.Now().UTC()
				t.CompletedAt = &now
			} else {
				t.CompletedAt = nil
			}
		}
		if f.Priority != nil {
			t.Priority = *f.Priority
		}
		if f.Assignees != nil {
			t.Assignees = f.Assignees
		}
		if f.Watchers != nil {
			t.Watchers = f.Watchers
		}
		if f.Archived != nil {
			t.IsArchived = *f.Archived
		}
		return nil
	})
}

func (s *Tasks) AddSubtask(_ context.Context, id primitive.ObjectID, st models.Subtask) (models.Task, error) {
	return s.update(id, func(t *models.Task) error {
		t.Subtasks = append(t.Subtasks, st)
		return nil
	})
}

func (s *Tasks) SetSubtaskCompleted(_ context.Context, id, subtaskID primitive.ObjectID, completed bool) (models.Task, error) {
	t, err := s.update(id, func(t *models.Task) error {
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks[i].Completed = completed
				return nil
			}
		}
		return taskstore.ErrSubtaskNotFound
	})
	if err == taskstore.ErrNotFound {
		return models.Task{}, taskstore.ErrSubtaskNotFound
	}
	return t, err
}

func (s *Tasks) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *Tasks) DeleteByProjects(_ context.Context, projectIDs []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.m {
		if contains(projectIDs, t.Project) {
			delete(s.m, id)
			n++
		}
	}
	return n, nil
}

// Put stores t as is, for tests that need specific timestamps.
func (s *Tasks) Put(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[t.ID] = t
}

/* ---------- comments ---------- */

type Comments struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]models.Comment
}

func (s *Comments) Create(_ context.Context, c models.Comment) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.m[c.ID] = c
	return c, nil
}

func (s *Comments) ListByTask(_ context.Context, taskID primitive.ObjectID) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Comment{}
	for _, c := range s.m {
		if c.Task == taskID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Comments) DeleteByTasks(_ context.Context, taskIDs []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.m {
		if contains(taskIDs, c.Task) {
			delete(s.m, id)
			n++
		}
	}
	return n, nil
}

/* ---------- activity ---------- */

type Activity struct {
	mu      sync.Mutex
	entries []models.ActivityLog

	// Err, when set, is returned by Record.
	Err error
}

func (s *Activity) Record(_ context.Context, e models.ActivityLog) error {
	if s.Err != nil {
		return s.Err
	}
	if err := e.Details.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *Activity) ByResource(_ context.Context, resourceID primitive.ObjectID, limit int64) ([]models.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ActivityLog{}
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ResourceID == resourceID {
			out = append(out, s.entries[i])
		}
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s *Activity) DeleteByResources(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var n int64
	for _, e := range s.entries {
		if contains(ids, e.ResourceID) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return n, nil
}

// All returns every entry in insertion order.
func (s *Activity) All() []models.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityLog(nil), s.entries...)
}

/* ---------- verifications ---------- */

type Verifications struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]models.Verification
}

func (s *Verifications) Put(_ context.Context, v models.Verification) (models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, x := range s.m {
		if x.UserID == v.UserID && x.Purpose == v.Purpose {
			delete(s.m, id)
		}
	}
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	s.m[v.ID] = v
	return v, nil
}

func (s *Verifications) FindForUser(_ context.Context, userID primitive.ObjectID, purpose string) (models.Verification, error) {
	return s.find(func(v models.Verification) bool { return v.UserID == userID && v.Purpose == purpose })
}

func (s *Verifications) FindByToken(_ context.Context, userID primitive.ObjectID, purpose, token string) (models.Verification, error) {
	return s.find(func(v models.Verification) bool {
		return v.UserID == userID && v.Purpose == purpose && v.Token == token
	})
}

func (s *Verifications) find(match func(models.Verification) bool) (models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.m {
		if match(v) {
			return v, nil
		}
	}
	return models.Verification{}, emailverify.ErrNotFound
}

func (s *Verifications) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *Verifications) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, v := range s.m {
		if v.Expired(now) {
			delete(s.m, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records.
func (s *Verifications) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

/* ---------- helpers ---------- */

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
