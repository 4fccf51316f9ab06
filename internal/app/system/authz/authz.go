// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's account role (lowercased), name, ObjectID and
// a found flag. With no user it returns "visitor", "", NilObjectID, false.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID.IsZero() {
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, user.ID, true
}

// UserID returns the caller's ID and whether a user is present.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	_, _, id, ok := UserCtx(r)
	return id, ok
}

// IsAdmin reports whether the caller holds the site-wide admin role.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.UserRoleAdmin
}

// IsVerified reports whether the caller has confirmed their email.
func IsVerified(r *http.Request) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.Verified
}
