// Package invitesvc creates workspace invitations and turns them into
// memberships.
package invitesvc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/flowbase/internal/app/policy/workspacepolicy"
	invitationstore "github.com/dalemusser/flowbase/internal/app/store/invitations"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/mailer"
	"github.com/dalemusser/flowbase/internal/app/system/normalize"
	"github.com/dalemusser/flowbase/internal/app/system/tokens"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CleanupTimeout bounds the work done after an invitation is accepted.
const CleanupTimeout = 10 * time.Second

type Workspaces interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error)
	AddMember(ctx context.Context, id primitive.ObjectID, m models.Member) (bool, error)
}

type Users interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type Invitations interface {
	Create(ctx context.Context, inv models.Invitation) (models.Invitation, error)
	Find(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Invitation, error)
	FindByToken(ctx context.Context, userID, workspaceID primitive.ObjectID, token string) (models.Invitation, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Activity interface {
	Record(ctx context.Context, entry models.ActivityLog) error
}

// Deps wires the service.
//
// OpenJoin enables AcceptGeneral, letting any signed-in user join a
// workspace knowing only its id.
type Deps struct {
	Workspaces  Workspaces
	Users       Users
	Invitations Invitations
	Activity    Activity
	Tokens      *tokens.Issuer
	Mail        mailer.Sender
	FrontendURL string
	OpenJoin    bool
	Log         *zap.Logger
	Now         func() time.Time
}

type Service struct {
	d Deps
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	d.FrontendURL = strings.TrimRight(d.FrontendURL, "/")
	return &Service{d: d}
}

// CreateInput is an invitation request.
type CreateInput struct {
	Email string
	Role  string
}

// Create invites the account with in.Email to the workspace and mails it
// an accept link.
//
// When the email cannot be delivered the stored invitation is kept and an
// EmailDeliveryFailed error is returned; the pair stays blocked until the
// invitation expires.
func (s *Service) Create(ctx context.Context, actor, workspaceID primitive.ObjectID, in CreateInput) (models.Invitation, error) {
	role := normalize.Role(in.Role)
	if role == "" {
		role = models.RoleMember
	}
	if !models.IsInvitableRole(role) {
		return models.Invitation{}, apperr.BadRequest("Role must be admin, member or viewer")
	}

	ws, err := s.loadWorkspace(ctx, workspaceID)
	if err != nil {
		return models.Invitation{}, err
	}
	if err := workspacepolicy.Check(ws, actor, workspacepolicy.Invite); err != nil {
		return models.Invitation{}, err
	}

	invitee, err := s.d.Users.GetByEmail(ctx, normalize.Email(in.Email))
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.Invitation{}, apperr.NotFound("User not found")
		}
		return models.Invitation{}, apperr.Internal(fmt.Errorf("find invitee: %w", err))
	}
	if ws.IsMember(invitee.ID) {
		return models.Invitation{}, apperr.Conflict("User already a member of this workspace")
	}

	now := s.d.Now().UTC()
	existing, err := s.d.Invitations.Find(ctx, invitee.ID, ws.ID)
	switch {
	case err == nil && !existing.Expired(now):
		return models.Invitation{}, apperr.Conflict("User already invited to this workspace")
	case err == nil:
		if err := s.d.Invitations.Delete(ctx, existing.ID); err != nil {
			return models.Invitation{}, apperr.Internal(fmt.Errorf("supersede expired invitation: %w", err))
		}
	case !errors.Is(err, invitationstore.ErrNotFound):
		return models.Invitation{}, apperr.Internal(fmt.Errorf("find invitation: %w", err))
	}

	token, exp, err := s.d.Tokens.Issue(tokens.PurposeWorkspaceInvite, invitee.ID, models.InviteWindow,
		tokens.Extra{WorkspaceID: ws.ID, Role: role})
	if err != nil {
		return models.Invitation{}, apperr.Internal(fmt.Errorf("issue invite token: %w", err))
	}
	inv, err := s.d.Invitations.Create(ctx, models.Invitation{
		User:        invitee.ID,
		WorkspaceID: ws.ID,
		Token:       token,
		Role:        role,
		InvitedBy:   actor,
		ExpiresAt:   exp,
		CreatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, invitationstore.ErrDuplicate) {
			return models.Invitation{}, apperr.Conflict("User already invited to this workspace")
		}
		return models.Invitation{}, apperr.Internal(fmt.Errorf("store invitation: %w", err))
	}

	link := s.InviteLink(ws.ID, token)
	if err := s.d.Mail.Send(ctx, mailer.BuildInviteEmail(invitee.Email, ws.Name, link)); err != nil {
		return inv, apperr.EmailDeliveryFailed("Failed to send invitation email", err)
	}
	return inv, nil
}

// InviteLink is the frontend URL that accepts token.
func (s *Service) InviteLink(workspaceID primitive.ObjectID, token string) string {
	return s.d.FrontendURL + "/workspace-invite/" + workspaceID.Hex() + "?tk=" + url.QueryEscape(token)
}

// Accepted is the outcome of AcceptToken.
type Accepted struct {
	Workspace models.Workspace
	Role      string

	// Cleanup deletes the consumed invitation and records the join. Callers
	// run it after responding; it uses its own context and only logs errors.
	Cleanup func()
}

// AcceptToken adds the caller to the workspace named in an invite token.
//
// The invitation record is looked up before membership is checked, so a
// second accept of the same token fails with NotFound once cleanup ran.
func (s *Service) AcceptToken(ctx context.Context, actor primitive.ObjectID, raw string) (Accepted, error) {
	claims, err := s.d.Tokens.Verify(strings.TrimSpace(raw), tokens.PurposeWorkspaceInvite)
	if err != nil {
		return Accepted{}, apperr.Unauthorized("Invalid or expired invitation token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return Accepted{}, apperr.Unauthorized("Invalid or expired invitation token")
	}
	wsID, err := claims.Workspace()
	if err != nil {
		return Accepted{}, apperr.Unauthorized("Invalid or expired invitation token")
	}
	if userID != actor {
		return Accepted{}, apperr.Forbidden("This invitation was issued to another account")
	}

	ws, err := s.loadWorkspace(ctx, wsID)
	if err != nil {
		return Accepted{}, err
	}
	inv, err := s.d.Invitations.FindByToken(ctx, userID, wsID, raw)
	if err != nil {
		if errors.Is(err, invitationstore.ErrNotFound) {
			return Accepted{}, apperr.NotFound("Invitation not found")
		}
		return Accepted{}, apperr.Internal(fmt.Errorf("find invitation: %w", err))
	}
	now := s.d.Now().UTC()
	if inv.Expired(now) {
		return Accepted{}, apperr.Expired("Invitation has expired")
	}
	if ws.IsMember(userID) {
		return Accepted{}, apperr.Conflict("User already a member of this workspace")
	}

	role := inv.Role
	if claims.Role != "" {
		role = claims.Role
	}
	if err := s.join(ctx, ws.ID, userID, role, now); err != nil {
		return Accepted{}, err
	}
	ws.Members = append(ws.Members, models.Member{User: userID, Role: role, JoinedAt: now})

	name := ws.Name
	return Accepted{
		Workspace: ws,
		Role:      role,
		Cleanup: func() {
			ctx, cancel := context.WithTimeout(context.Background(), CleanupTimeout)
			defer cancel()
			if err := s.d.Invitations.Delete(ctx, inv.ID); err != nil {
				s.d.Log.Warn("failed to delete accepted invitation",
					zap.String("invitation_id", inv.ID.Hex()), zap.Error(err))
			}
			s.recordJoin(ctx, userID, wsID, role, name)
		},
	}, nil
}

// AcceptGeneral adds the caller to the workspace as a member without an
// invitation. It is refused unless open join is enabled.
func (s *Service) AcceptGeneral(ctx context.Context, actor, workspaceID primitive.ObjectID) (models.Workspace, error) {
	if !s.d.OpenJoin {
		return models.Workspace{}, apperr.Forbidden("Joining this workspace requires an invitation")
	}
	ws, err := s.loadWorkspace(ctx, workspaceID)
	if err != nil {
		return models.Workspace{}, err
	}
	if ws.IsMember(actor) {
		return models.Workspace{}, apperr.Conflict("User already a member of this workspace")
	}
	now := s.d.Now().UTC()
	if err := s.join(ctx, ws.ID, actor, models.RoleMember, now); err != nil {
		return models.Workspace{}, err
	}
	ws.Members = append(ws.Members, models.Member{User: actor, Role: models.RoleMember, JoinedAt: now})
	s.recordJoin(ctx, actor, ws.ID, models.RoleMember, ws.Name)
	return ws, nil
}

func (s *Service) join(ctx context.Context, wsID, userID primitive.ObjectID, role string, now time.Time) error {
	added, err := s.d.Workspaces.AddMember(ctx, wsID, models.Member{User: userID, Role: role, JoinedAt: now})
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return apperr.NotFound("Workspace not found")
		}
		return apperr.Internal(fmt.Errorf("add member: %w", err))
	}
	if !added {
		return apperr.Conflict("User already a member of this workspace")
	}
	return nil
}

func (s *Service) loadWorkspace(ctx context.Context, id primitive.ObjectID) (models.Workspace, error) {
	ws, err := s.d.Workspaces.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return models.Workspace{}, apperr.NotFound("Workspace not found")
		}
		return models.Workspace{}, apperr.Internal(fmt.Errorf("load workspace: %w", err))
	}
	return ws, nil
}

func (s *Service) recordJoin(ctx context.Context, userID, wsID primitive.ObjectID, role, name string) {
	err := s.d.Activity.Record(ctx, models.ActivityLog{
		User:         userID,
		Action:       models.ActionJoinedWorkspace,
		ResourceType: models.ResourceWorkspace,
		ResourceID:   wsID,
		Details:      models.DetailsMember(userID, role, "Joined "+name+" workspace"),
		Timestamp:    s.d.Now().UTC(),
	})
	if err != nil {
		s.d.Log.Warn("failed to record workspace join",
			zap.String("workspace_id", wsID.Hex()), zap.Error(err))
	}
}
