// Package tokens issues and verifies the signed, time-limited tokens used
// for login, email verification, password reset and workspace invites.
//
// Every token carries a purpose tag; a token minted for one purpose never
// verifies for another.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Purpose tags.
const (
	PurposeLogin             = "login"
	PurposeEmailVerification = "email-verification"
	PurposeResetPassword     = "reset-password"
	PurposeWorkspaceInvite   = "workspace-invite"
)

// MinSecretLength is the shortest HMAC secret NewIssuer accepts.
const MinSecretLength = 32

var (
	ErrInvalid      = errors.New("token is invalid")
	ErrExpired      = errors.New("token has expired")
	ErrWrongPurpose = errors.New("token was issued for a different purpose")
	ErrShortSecret  = fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
)

// Claims is the token payload.
type Claims struct {
	Purpose     string `json:"purpose"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject as an ObjectID.
func (c *Claims) UserID() (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Subject)
	if err != nil {
		return primitive.NilObjectID, ErrInvalid
	}
	return id, nil
}

// Workspace parses the workspace claim as an ObjectID.
func (c *Claims) Workspace() (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.WorkspaceID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalid
	}
	return id, nil
}

// Extra carries optional claims for invite tokens.
type Extra struct {
	WorkspaceID primitive.ObjectID
	Role        string
}

// Issuer signs and verifies tokens with one HMAC secret.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer returns an Issuer using secret for HS256 signatures.
func NewIssuer(secret, issuer string, opts ...Option) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrShortSecret
	}
	i := &Issuer{secret: []byte(secret), issuer: issuer, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue signs a token for subject valid for ttl.
func (i *Issuer) Issue(purpose string, subject primitive.ObjectID, ttl time.Duration, extra Extra) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Purpose: purpose,
		Role:    extra.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   subject.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if !extra.WorkspaceID.IsZero() {
		claims.WorkspaceID = extra.WorkspaceID.Hex()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the signature, expiry, issuer and purpose of raw.
func (i *Issuer) Verify(raw, purpose string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
