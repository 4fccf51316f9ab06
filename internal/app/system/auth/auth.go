package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/tokens"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	tokenKey  = "token"
	userIDKey = "user_id"
)

// SessionUser is the authenticated caller injected into r.Context().
type SessionUser struct {
	ID       primitive.ObjectID
	Name     string
	Email    string
	Role     string
	Verified bool
}

// UserLookup resolves the subject of a login token.
type UserLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser puts u on the request context, bypassing token checks.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// SessionManager authenticates requests from a bearer login token or,
// for browser clients, from the same token held in a signed session cookie.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	issuer *tokens.Issuer
	users  UserLookup
	log    *zap.Logger
}

// NewSessionManager builds the cookie store and binds the token issuer.
//
// An empty sessionKey is only allowed when secure is false; a random key
// is generated so sessions survive until restart.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, issuer *tokens.Issuer, users UserLookup, logger *zap.Logger) (*SessionManager, error) {
	key := []byte(sessionKey)
	switch {
	case sessionKey == "" && secure:
		return nil, errors.New("session key is empty; provide ≥32 random chars")
	case sessionKey == "":
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("session key not set; using a random key for this process")
	case len(sessionKey) < 32:
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}
	if key == nil {
		return nil, fmt.Errorf("generate session key: entropy unavailable")
	}
	if issuer == nil {
		return nil, errors.New("token issuer is required")
	}

	store := sessions.NewCookieStore(key)
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	// Cross-site frontends need SameSite=None, which browsers only accept with Secure.
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{
		store:  store,
		name:   name,
		issuer: issuer,
		users:  users,
		log:    logger,
	}, nil
}

// Issuer exposes the token issuer for services that mint other purposes.
func (sm *SessionManager) Issuer() *tokens.Issuer { return sm.issuer }

// Remember stores a login token in the session cookie so browser clients
// stay signed in without sending a bearer header.
func (sm *SessionManager) Remember(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, token string) {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[tokenKey] = token
	sess.Values[userIDKey] = userID.Hex()
	if err := sess.Save(r, w); err != nil {
		sm.log.Warn("failed to save session cookie", zap.Error(err))
	}
}

// Clear expires the session cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter, r *http.Request) {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		sm.log.Warn("failed to clear session cookie", zap.Error(err))
	}
}

// LoadUser injects the caller into context when a valid login token is
// presented. Invalid tokens are ignored here; RequireSignedIn rejects.
func (sm *SessionManager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			if sess, err := sm.store.Get(r, sm.name); err == nil {
				raw, _ = sess.Values[tokenKey].(string)
			}
		}
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := sm.issuer.Verify(raw, tokens.PurposeLogin)
		if err != nil {
			sm.log.Debug("rejected login token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		uid, err := claims.UserID()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		user, err := sm.users.GetByID(r.Context(), uid)
		if err != nil {
			sm.log.Debug("login token subject not found", zap.String("user_id", uid.Hex()), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withUser(r, &SessionUser{
			ID:       user.ID,
			Name:     user.FullName,
			Email:    user.Email,
			Role:     user.Role,
			Verified: user.IsEmailVerified,
		}))
	})
}

// RequireSignedIn rejects requests without a user in context.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			httpjson.Message(w, http.StatusUnauthorized, "Unauthorized: no valid token provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the signed-in user has one of the account roles.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				httpjson.Message(w, http.StatusUnauthorized, "Unauthorized: no valid token provided")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				httpjson.Message(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
