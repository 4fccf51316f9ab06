package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/dalemusser/flowbase/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	role, name, id, ok := authz.UserCtx(req)
	if ok || role != "visitor" || name != "" || !id.IsZero() {
		t.Errorf("got %q %q %v %v", role, name, id, ok)
	}
}

func TestUserCtx_ZeroIDFailsClosed(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), &auth.SessionUser{Role: "admin"})

	if _, ok := authz.UserID(req); ok {
		t.Error("a user without an ID must not be treated as signed in")
	}
	if authz.IsAdmin(req) {
		t.Error("IsAdmin must be false without a valid ID")
	}
}

func TestRoles(t *testing.T) {
	id := primitive.NewObjectID()
	tests := []struct {
		name      string
		role      string
		wantAdmin bool
		anyOf     []string
		wantAny   bool
	}{
		{"admin", "admin", true, []string{"admin"}, true},
		{"mixed case admin", "Admin", true, []string{" ADMIN "}, true},
		{"user", "user", false, []string{"admin"}, false},
		{"user in list", "user", false, []string{"admin", "user"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), &auth.SessionUser{ID: id, Role: tt.role})

			if got := authz.IsAdmin(req); got != tt.wantAdmin {
				t.Errorf("IsAdmin = %v, want %v", got, tt.wantAdmin)
			}
			if got := authz.HasAnyRole(req, tt.anyOf...); got != tt.wantAny {
				t.Errorf("HasAnyRole = %v, want %v", got, tt.wantAny)
			}
			if got, _ := authz.UserID(req); got != id {
				t.Errorf("UserID = %v", got)
			}
		})
	}
}

func TestIsVerified(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	if authz.IsVerified(req) {
		t.Error("anonymous caller is not verified")
	}
	req = auth.WithTestUser(req, &auth.SessionUser{ID: primitive.NewObjectID(), Verified: true})
	if !authz.IsVerified(req) {
		t.Error("expected verified")
	}
}
