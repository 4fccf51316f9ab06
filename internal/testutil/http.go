package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID       primitive.ObjectID
	Name     string
	Email    string
	Role     string
	Verified bool
}

// RegularUser returns a verified TestUser with the user account role.
func RegularUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID(),
		Name:     "Test User",
		Email:    "user@test.com",
		Role:     "user",
		Verified: true,
	}
}

// AdminUser returns a TestUser with the site admin role.
func AdminUser() TestUser {
	u := RegularUser()
	u.Name = "Test Admin"
	u.Email = "admin@test.com"
	u.Role = "admin"
	return u
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses token verification and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		Verified: user.Verified,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is body encoded as JSON.
func NewJSONRequest(method, target string, body any) *http.Request {
	b, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, body any, user TestUser) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = NewJSONRequest(method, target, body)
	}
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}

// JSON decodes the body into a generic map.
func (r *ResponseRecorder) JSON(t interface {
	Fatalf(string, ...any)
}) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(r.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, r.Body.String())
	}
	return m
}

// Message returns the "message" field of a JSON body.
func (r *ResponseRecorder) Message(t interface {
	Fatalf(string, ...any)
}) string {
	msg, _ := r.JSON(t)["message"].(string)
	return msg
}
