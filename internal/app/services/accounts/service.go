// Package accounts implements registration, login, email verification,
// password reset and profile maintenance.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/flowbase/internal/app/store/emailverify"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/mailer"
	"github.com/dalemusser/flowbase/internal/app/system/normalize"
	"github.com/dalemusser/flowbase/internal/app/system/tokens"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Token lifetimes.
const (
	VerifyTTL = time.Hour
	ResetTTL  = 15 * time.Minute
	LoginTTL  = 7 * 24 * time.Hour
)

// Login failure reasons carried by LoginFailure.
const (
	ReasonUnknownEmail  = "user_not_found"
	ReasonWrongPassword = "wrong_password"
	ReasonUnverified    = "email_not_verified"
)

// LoginFailure is wrapped in the error returned by Login so callers can
// audit the attempt.
type LoginFailure struct {
	Reason string
	UserID primitive.ObjectID
	Email  string
	Resent bool
}

func (f *LoginFailure) Error() string { return "login failed: " + f.Reason }

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, fullName, picture string) error
}

type Verifications interface {
	Put(ctx context.Context, v models.Verification) (models.Verification, error)
	FindForUser(ctx context.Context, userID primitive.ObjectID, purpose string) (models.Verification, error)
	FindByToken(ctx context.Context, userID primitive.ObjectID, purpose, token string) (models.Verification, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Deps wires the service. BcryptCost defaults to bcrypt.DefaultCost and
// LoginTTL to seven days.
type Deps struct {
	Users         Users
	Verifications Verifications
	Tokens        *tokens.Issuer
	Mail          mailer.Sender
	FrontendURL   string
	LoginTTL      time.Duration
	BcryptCost    int
	Log           *zap.Logger
	Now           func() time.Time
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
	if d.LoginTTL <= 0 {
		d.LoginTTL = LoginTTL
	}
	if d.BcryptCost == 0 {
		d.BcryptCost = bcrypt.DefaultCost
	}
	d.FrontendURL = strings.TrimRight(d.FrontendURL, "/")
	return &Service{d: d}
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an unverified account and mails a verification link.
// The account is kept when the email cannot be sent.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	email := normalize.Email(in.Email)
	if _, err := s.d.Users.GetByEmail(ctx, email); err == nil {
		return models.User{}, apperr.Conflict("User already exists")
	} else if !errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, apperr.Internal(fmt.Errorf("lookup email: %w", err))
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.d.Users.Create(ctx, models.User{
		FullName:     normalize.Name(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.UserRoleUser,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return models.User{}, apperr.Conflict("User already exists")
		}
		return models.User{}, apperr.Internal(fmt.Errorf("create user: %w", err))
	}
	if err := s.sendVerification(ctx, u); err != nil {
		return u, err
	}
	return u, nil
}

// Session is a successful login.
type Session struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

// Login checks credentials and issues a login token.
//
// An unverified account is refused. When its verification link has lapsed
// a new one is mailed first.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalize.Email(email)
	u, err := s.d.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return Session{}, loginError(apperr.KindUnauthorized, "Invalid credentials",
				&LoginFailure{Reason: ReasonUnknownEmail, Email: email})
		}
		return Session{}, apperr.Internal(fmt.Errorf("lookup email: %w", err))
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, loginError(apperr.KindUnauthorized, "Invalid credentials",
			&LoginFailure{Reason: ReasonWrongPassword, UserID: u.ID, Email: email})
	}

	if !u.IsEmailVerified {
		v, err := s.d.Verifications.FindForUser(ctx, u.ID, models.PurposeEmailVerification)
		if err == nil && !v.Expired(s.d.Now()) {
			return Session{}, loginError(apperr.KindForbidden,
				"Email not verified. Please check your email for verification link.",
				&LoginFailure{Reason: ReasonUnverified, UserID: u.ID, Email: email})
		}
		if err != nil && !errors.Is(err, emailverify.ErrNotFound) {
			return Session{}, apperr.Internal(fmt.Errorf("find verification: %w", err))
		}
		if err := s.sendVerification(ctx, u); err != nil {
			return Session{}, err
		}
		return Session{}, loginError(apperr.KindForbidden,
			"Please check your email for verification link.",
			&LoginFailure{Reason: ReasonUnverified, UserID: u.ID, Email: email, Resent: true})
	}

	token, exp, err := s.d.Tokens.Issue(tokens.PurposeLogin, u.ID, s.d.LoginTTL, tokens.Extra{})
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("issue login token: %w", err))
	}
	now := s.d.Now().UTC()
	if err := s.d.Users.SetLastLogin(ctx, u.ID, now); err != nil {
		s.d.Log.Warn("failed to record last login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	} else {
		u.LastLogin = &now
	}
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}

func loginError(kind apperr.Kind, msg string, f *LoginFailure) error {
	return &apperr.Error{Kind: kind, Message: msg, Err: f}
}

// VerifyEmail consumes an email verification token.
func (s *Service) VerifyEmail(ctx context.Context, raw string) (models.User, error) {
	v, u, err := s.consume(ctx, raw, tokens.PurposeEmailVerification, models.PurposeEmailVerification,
		"Invalid or expired verification token", "Verification token has expired")
	if err != nil {
		return models.User{}, err
	}
	if u.IsEmailVerified {
		return models.User{}, apperr.BadRequest("Email is already verified")
	}
	if err := s.d.Users.MarkVerified(ctx, u.ID); err != nil {
		return models.User{}, apperr.Internal(fmt.Errorf("mark verified: %w", err))
	}
	u.IsEmailVerified = true
	s.deleteVerification(ctx, v)
	return u, nil
}

// RequestReset mails a password reset link to a verified account.
func (s *Service) RequestReset(ctx context.Context, email string) (models.User, error) {
	u, err := s.d.Users.GetByEmail(ctx, normalize.Email(email))
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.User{}, apperr.NotFound("User not found")
		}
		return models.User{}, apperr.Internal(fmt.Errorf("lookup email: %w", err))
	}
	if !u.IsEmailVerified {
		return models.User{}, apperr.Forbidden("Please verify your email")
	}
	v, err := s.d.Verifications.FindForUser(ctx, u.ID, models.PurposeResetPassword)
	switch {
	case err == nil && !v.Expired(s.d.Now()):
		return models.User{}, apperr.Conflict("Password reset request already exists. Please check your email.")
	case err != nil && !errors.Is(err, emailverify.ErrNotFound):
		return models.User{}, apperr.Internal(fmt.Errorf("find reset: %w", err))
	}

	token, err := s.issueVerification(ctx, u, tokens.PurposeResetPassword, models.PurposeResetPassword, ResetTTL)
	if err != nil {
		return models.User{}, err
	}
	link := s.d.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.d.Mail.Send(ctx, mailer.BuildResetEmail(u.Email, link)); err != nil {
		return u, apperr.EmailDeliveryFailed("Failed to send password reset email", err)
	}
	return u, nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, raw, newPassword, confirm string) (models.User, error) {
	if newPassword != confirm {
		return models.User{}, apperr.BadRequest("Passwords do not match")
	}
	v, u, err := s.consume(ctx, raw, tokens.PurposeResetPassword, models.PurposeResetPassword,
		"Invalid or expired reset password token", "Reset password token has expired")
	if err != nil {
		return models.User{}, err
	}
	if err := s.setPassword(ctx, u.ID, newPassword); err != nil {
		return models.User{}, err
	}
	s.deleteVerification(ctx, v)
	return u, nil
}

// Profile returns the account of id.
func (s *Service) Profile(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.d.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.User{}, apperr.NotFound("User not found")
		}
		return models.User{}, apperr.Internal(fmt.Errorf("load user: %w", err))
	}
	return u, nil
}

// UpdateProfile changes the display name and, when non-empty, the picture.
func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, picture string) (models.User, error) {
	if err := s.d.Users.UpdateProfile(ctx, id, normalize.Name(name), strings.TrimSpace(picture)); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.User{}, apperr.NotFound("User not found")
		}
		return models.User{}, apperr.Internal(fmt.Errorf("update profile: %w", err))
	}
	return s.Profile(ctx, id)
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next, confirm string) error {
	if next != confirm {
		return apperr.BadRequest("Passwords do not match")
	}
	u, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return apperr.Forbidden("Invalid old password")
	}
	return s.setPassword(ctx, id, next)
}

// hash rejects passwords bcrypt cannot take as a bad request.
func (s *Service) hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.d.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperr.BadRequest("Password must be at most 72 bytes")
		}
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	return hash, nil
}

func (s *Service) setPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.d.Users.SetPasswordHash(ctx, id, string(hash)); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return apperr.NotFound("User not found")
		}
		return apperr.Internal(fmt.Errorf("store password: %w", err))
	}
	return nil
}

// consume verifies raw and its stored record and loads the user.
func (s *Service) consume(ctx context.Context, raw, tokenPurpose, recordPurpose, invalidMsg, expiredMsg string) (models.Verification, models.User, error) {
	raw = strings.TrimSpace(raw)
	claims, err := s.d.Tokens.Verify(raw, tokenPurpose)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return models.Verification{}, models.User{}, apperr.Expired(expiredMsg)
		}
		return models.Verification{}, models.User{}, apperr.Unauthorized("Unauthorized")
	}
	userID, err := claims.UserID()
	if err != nil {
		return models.Verification{}, models.User{}, apperr.Unauthorized("Unauthorized")
	}
	v, err := s.d.Verifications.FindByToken(ctx, userID, recordPurpose, raw)
	if err != nil {
		if errors.Is(err, emailverify.ErrNotFound) {
			return models.Verification{}, models.User{}, apperr.Unauthorized(invalidMsg)
		}
		return models.Verification{}, models.User{}, apperr.Internal(fmt.Errorf("find verification: %w", err))
	}
	if v.Expired(s.d.Now()) {
		return models.Verification{}, models.User{}, apperr.Expired(expiredMsg)
	}
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return models.Verification{}, models.User{}, err
	}
	return v, u, nil
}

func (s *Service) sendVerification(ctx context.Context, u models.User) error {
	token, err := s.issueVerification(ctx, u, tokens.PurposeEmailVerification, models.PurposeEmailVerification, VerifyTTL)
	if err != nil {
		return err
	}
	link := s.d.FrontendURL + "/verify-email?token=" + url.QueryEscape(token)
	if err := s.d.Mail.Send(ctx, mailer.BuildVerificationEmail(u.Email, link)); err != nil {
		return apperr.EmailDeliveryFailed("Failed to send verification email", err)
	}
	return nil
}

// issueVerification signs a token and stores its record, replacing any
// earlier record for the same user and purpose.
func (s *Service) issueVerification(ctx context.Context, u models.User, tokenPurpose, recordPurpose string, ttl time.Duration) (string, error) {
	token, exp, err := s.d.Tokens.Issue(tokenPurpose, u.ID, ttl, tokens.Extra{})
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("issue %s token: %w", tokenPurpose, err))
	}
	_, err = s.d.Verifications.Put(ctx, models.Verification{
		UserID:    u.ID,
		Purpose:   recordPurpose,
		Token:     token,
		ExpiresAt: exp,
		CreatedAt: s.d.Now().UTC(),
	})
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("store %s record: %w", recordPurpose, err))
	}
	return token, nil
}

func (s *Service) deleteVerification(ctx context.Context, v models.Verification) {
	if err := s.d.Verifications.Delete(ctx, v.ID); err != nil {
		s.d.Log.Warn("failed to delete used verification",
			zap.String("verification_id", v.ID.Hex()), zap.Error(err))
	}
}
