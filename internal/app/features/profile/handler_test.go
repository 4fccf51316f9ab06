package profile_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/flowbase/internal/app/features/profile"
	"github.com/dalemusser/flowbase/internal/testutil"
	"github.com/dalemusser/flowbase/internal/testutil/apptest"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setup(t *testing.T) (*apptest.Env, http.Handler, testutil.TestUser) {
	t.Helper()
	env := apptest.New(t)
	user := env.User(t, "me@example.com")
	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	if err := env.DB.Users.SetPasswordHash(env.Ctx, user.ID, string(hash)); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
	return env, profile.Routes(profile.NewHandler(env.Accounts, nil, zap.NewNop())), user
}

func TestRoutes_RequireSignIn(t *testing.T) {
	_, router, _ := setup(t)
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest("GET", "/profile"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestProfile_GetAndUpdate(t *testing.T) {
	_, router, user := setup(t)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/profile", nil, user))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"email":"me@example.com"`)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("PUT", "/profile",
		map[string]string{"name": "  Grace   Hopper ", "profilePicture": "https://cdn.example.com/g.png"}, user))
	rec.AssertStatus(t, http.StatusOK)
	u, _ := rec.JSON(t)["user"].(map[string]any)
	if u["full_name"] != "Grace Hopper" || u["profile_picture"] != "https://cdn.example.com/g.png" {
		t.Errorf("user = %v", u)
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("PUT", "/profile", map[string]string{"name": "Al"}, user))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestChangePassword(t *testing.T) {
	env, router, user := setup(t)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"mismatch", map[string]string{"currentPassword": "old-password", "newPassword": "new-password", "confirmPassword": "nope-nope"}, http.StatusBadRequest},
		{"wrong current", map[string]string{"currentPassword": "guess-guess", "newPassword": "new-password", "confirmPassword": "new-password"}, http.StatusForbidden},
		{"too short", map[string]string{"currentPassword": "old-password", "newPassword": "short", "confirmPassword": "short"}, http.StatusBadRequest},
		{"ok", map[string]string{"currentPassword": "old-password", "newPassword": "new-password", "confirmPassword": "new-password"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("PUT", "/change-password", tt.body, user))
			rec.AssertStatus(t, tt.status)
		})
	}

	u, _ := env.DB.Users.GetByID(env.Ctx, user.ID)
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("new-password")) != nil {
		t.Error("password was not replaced")
	}
}
