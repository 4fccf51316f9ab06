package login_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/flowbase/internal/app/features/login"
	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/dalemusser/flowbase/internal/app/system/ratelimit"
	"github.com/dalemusser/flowbase/internal/testutil"
	"github.com/dalemusser/flowbase/internal/testutil/apptest"
	"go.uber.org/zap"
)

type fixture struct {
	env    *apptest.Env
	router http.Handler
}

func newFixture(t *testing.T, loginBurst int) *fixture {
	t.Helper()
	env := apptest.New(t)
	limiter := ratelimit.NewLoginLimiter(loginBurst, loginBurst)
	perIP := ratelimit.New(100, time.Minute)
	t.Cleanup(func() {
		limiter.Stop()
		perIP.Stop()
	})
	h := login.NewHandler(env.Accounts, env.Sessions, limiter, nil, env.Metrics, zap.NewNop())
	return &fixture{env: env, router: env.Sessions.LoadUser(login.Routes(h, perIP))}
}

func (f *fixture) post(path string, body any) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewJSONRequest("POST", path, body))
	return rec
}

func (f *fixture) tokenFromLastMail(t *testing.T) string {
	t.Helper()
	for _, line := range strings.Split(f.env.Mail.Last().TextBody, "\n") {
		if strings.HasPrefix(line, apptest.FrontendURL) {
			u, err := url.Parse(line)
			if err != nil {
				t.Fatalf("parse link: %v", err)
			}
			return u.Query().Get("token")
		}
	}
	t.Fatal("no link in last mail")
	return ""
}

var newUser = map[string]string{"name": "Ada Lovelace", "email": "ada@example.com", "password": "analytical"}

func TestRegister(t *testing.T) {
	f := newFixture(t, 10)

	rec := f.post("/register", newUser)
	rec.AssertStatus(t, http.StatusCreated)
	if len(f.env.Mail.Sent()) != 1 {
		t.Fatalf("sent %d mails, want 1", len(f.env.Mail.Sent()))
	}

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"duplicate", newUser, http.StatusConflict},
		{"short password", map[string]string{"name": "Bob", "email": "bob@example.com", "password": "short"}, http.StatusBadRequest},
		{"password over 72 bytes", map[string]string{"name": "Bob", "email": "bob@example.com", "password": strings.Repeat("p", 80)}, http.StatusBadRequest},
		{"bad email", map[string]string{"name": "Bob", "email": "bob", "password": "longenough"}, http.StatusBadRequest},
		{"short name", map[string]string{"name": "Bo", "email": "bob@example.com", "password": "longenough"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.post("/register", tt.body).AssertStatus(t, tt.status)
		})
	}
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t, 10)
	f.post("/register", newUser).AssertStatus(t, http.StatusCreated)
	creds := map[string]string{"email": "ada@example.com", "password": "analytical"}

	rec := f.post("/login", creds)
	rec.AssertStatus(t, http.StatusForbidden)

	f.post("/verify-email", map[string]string{"token": f.tokenFromLastMail(t)}).AssertStatus(t, http.StatusOK)

	rec = f.post("/login", creds)
	rec.AssertStatus(t, http.StatusOK)
	body := rec.JSON(t)
	if body["message"] != "Login successful" || body["token"] == "" {
		t.Fatalf("body = %v", body)
	}
	user, _ := body["user"].(map[string]any)
	if _, leaked := user["password_hash"]; leaked || user["email"] != "ada@example.com" {
		t.Errorf("user = %v", user)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login did not set a session cookie")
	}
	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	var signedIn bool
	f.env.Sessions.LoadUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signedIn = auth.CurrentUser(r)
	})).ServeHTTP(httptest.NewRecorder(), req)
	if !signedIn {
		t.Error("session cookie did not authenticate")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, 10)
	f.env.User(t, "known@example.com")

	for _, body := range []map[string]string{
		{"email": "nobody@example.com", "password": "whatever1"},
		{"email": "known@example.com", "password": "wrong-password"},
	} {
		rec := f.post("/login", body)
		rec.AssertStatus(t, http.StatusUnauthorized)
		if msg := rec.Message(t); msg != "Invalid credentials" {
			t.Errorf("message = %q", msg)
		}
	}
}

func TestLogin_RateLimited(t *testing.T) {
	f := newFixture(t, 1)
	body := map[string]string{"email": "nobody@example.com", "password": "whatever1"}

	f.post("/login", body).AssertStatus(t, http.StatusUnauthorized)
	f.post("/login", body).AssertStatus(t, http.StatusTooManyRequests)
}

func TestLogout_ExpiresCookie(t *testing.T) {
	f := newFixture(t, 10)

	rec := f.post("/logout", nil)
	rec.AssertStatus(t, http.StatusOK)
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "flowbase-test" {
			found = true
			if c.MaxAge != -1 {
				t.Errorf("cookie MaxAge = %d, want -1", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected the session cookie to be expired")
	}
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t, 10)
	f.env.User(t, "reset@example.com")

	f.post("/reset-password-request", map[string]string{"email": "reset@example.com"}).AssertStatus(t, http.StatusOK)
	f.post("/reset-password-request", map[string]string{"email": "reset@example.com"}).AssertStatus(t, http.StatusConflict)
	f.post("/reset-password-request", map[string]string{"email": "missing@example.com"}).AssertStatus(t, http.StatusNotFound)

	token := f.tokenFromLastMail(t)
	rec := f.post("/reset-password", map[string]string{"token": token, "newPassword": "brand-new-pw", "confirmPassword": "different-pw"})
	rec.AssertStatus(t, http.StatusBadRequest)
	if msg := rec.Message(t); msg != "Passwords do not match" {
		t.Errorf("message = %q", msg)
	}

	f.post("/reset-password", map[string]string{"token": token, "newPassword": "brand-new-pw", "confirmPassword": "brand-new-pw"}).AssertStatus(t, http.StatusOK)
	f.post("/login", map[string]string{"email": "reset@example.com", "password": "brand-new-pw"}).AssertStatus(t, http.StatusOK)
}
