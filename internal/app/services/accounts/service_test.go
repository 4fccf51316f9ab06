package accounts_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/flowbase/internal/app/services/accounts"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/tokens"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/flowbase/internal/testutil/memstore"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	ctx  context.Context
	db   *memstore.DB
	mail *memstore.Mailer
	now  time.Time
	svc  *accounts.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:  context.Background(),
		db:   memstore.New(),
		mail: &memstore.Mailer{},
		now:  time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	iss, err := tokens.NewIssuer(strings.Repeat("s", tokens.MinSecretLength), "flowbase-test", tokens.WithClock(clock))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	h.svc = accounts.New(accounts.Deps{
		Users:         h.db.Users,
		Verifications: h.db.Verifications,
		Tokens:        iss,
		Mail:          h.mail,
		FrontendURL:   "https://app.example.com",
		BcryptCost:    bcrypt.MinCost,
		Now:           clock,
	})
	return h
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want %v", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("kind = %v (%v), want %v", got, err, want)
	}
}

// tokenFromLastMail extracts the token query parameter from the last link sent.
func (h *harness) tokenFromLastMail(t *testing.T) string {
	t.Helper()
	body := h.mail.Last().TextBody
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "https://") {
			u, err := url.Parse(line)
			if err != nil {
				t.Fatalf("parse link: %v", err)
			}
			return u.Query().Get("token")
		}
	}
	t.Fatalf("no link in mail:\n%s", body)
	return ""
}

func (h *harness) register(t *testing.T) models.User {
	t.Helper()
	u, err := h.svc.Register(h.ctx, accounts.RegisterInput{Name: "Ada  Lovelace", Email: "Ada@Example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	u := h.register(t)

	if u.Email != "ada@example.com" || u.FullName != "Ada Lovelace" || u.IsEmailVerified {
		t.Errorf("user = %+v", u)
	}
	if u.PasswordHash == "correct-horse" || u.PasswordHash == "" {
		t.Error("password not hashed")
	}
	if got := h.mail.Last().Subject; got != "Email Verification for Flowbase" {
		t.Errorf("subject = %q", got)
	}
	if !strings.Contains(h.mail.Last().TextBody, "https://app.example.com/verify-email?token=") {
		t.Errorf("missing verify link:\n%s", h.mail.Last().TextBody)
	}

	_, err := h.svc.Register(h.ctx, accounts.RegisterInput{Name: "Other", Email: "ada@example.com", Password: "whatever1"})
	assertKind(t, err, apperr.KindConflict)
}

func TestRegister_MailFailure(t *testing.T) {
	h := newHarness(t)
	h.mail.Err = errors.New("relay down")
	_, err := h.svc.Register(h.ctx, accounts.RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "correct-horse"})
	assertKind(t, err, apperr.KindEmailDeliveryFailed)
}

func TestPasswordOver72BytesIsBadRequest(t *testing.T) {
	h := newHarness(t)
	long := strings.Repeat("p", 80)

	_, err := h.svc.Register(h.ctx, accounts.RegisterInput{Name: "Ada", Email: "ada@example.com", Password: long})
	assertKind(t, err, apperr.KindBadRequest)
	if _, err := h.db.Users.GetByEmail(h.ctx, "ada@example.com"); err == nil {
		t.Error("user created despite rejected password")
	}
	if n := len(h.mail.Sent()); n != 0 {
		t.Errorf("emails = %d, want 0", n)
	}

	u := h.register(t)
	err = h.svc.ChangePassword(h.ctx, u.ID, "correct-horse", long, long)
	assertKind(t, err, apperr.KindBadRequest)
	stored, _ := h.db.Users.GetByID(h.ctx, u.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")) != nil {
		t.Error("password changed despite rejection")
	}
}

func TestLogin_Flow(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	verifyToken := h.tokenFromLastMail(t)

	// Unverified with a live link: refused without another email.
	_, err := h.svc.Login(h.ctx, "ada@example.com", "correct-horse")
	assertKind(t, err, apperr.KindForbidden)
	if n := len(h.mail.Sent()); n != 1 {
		t.Errorf("emails = %d, want 1", n)
	}
	var lf *accounts.LoginFailure
	if !errors.As(err, &lf) || lf.Reason != accounts.ReasonUnverified || lf.Resent {
		t.Errorf("failure = %+v", lf)
	}

	// Verify, then log in.
	if _, err := h.svc.VerifyEmail(h.ctx, verifyToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if h.db.Verifications.Len() != 0 {
		t.Error("verification record not deleted")
	}
	sess, err := h.svc.Login(h.ctx, " ADA@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token == "" || sess.User.LastLogin == nil || !sess.ExpiresAt.Equal(h.now.Add(accounts.LoginTTL)) {
		t.Errorf("session = %+v", sess)
	}

	_, err = h.svc.VerifyEmail(h.ctx, verifyToken)
	assertKind(t, err, apperr.KindUnauthorized)
}

func TestLogin_ResendsLapsedVerification(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.now = h.now.Add(2 * time.Hour)

	_, err := h.svc.Login(h.ctx, "ada@example.com", "correct-horse")
	assertKind(t, err, apperr.KindForbidden)
	if n := len(h.mail.Sent()); n != 2 {
		t.Fatalf("emails = %d, want a second verification mail", n)
	}
	var lf *accounts.LoginFailure
	if !errors.As(err, &lf) || !lf.Resent {
		t.Errorf("failure = %+v, want Resent", lf)
	}

	if _, err := h.svc.VerifyEmail(h.ctx, h.tokenFromLastMail(t)); err != nil {
		t.Fatalf("VerifyEmail with new token: %v", err)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	tests := []struct {
		name, email, password, reason string
	}{
		{"unknown email", "nobody@example.com", "correct-horse", accounts.ReasonUnknownEmail},
		{"wrong password", "ada@example.com", "wrong-horse", accounts.ReasonWrongPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Login(h.ctx, tt.email, tt.password)
			assertKind(t, err, apperr.KindUnauthorized)
			if got := apperr.PublicMessage(err); got != "Invalid credentials" {
				t.Errorf("message = %q", got)
			}
			var lf *accounts.LoginFailure
			if !errors.As(err, &lf) || lf.Reason != tt.reason {
				t.Errorf("failure = %+v, want %s", lf, tt.reason)
			}
		})
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	tok := h.tokenFromLastMail(t)
	h.now = h.now.Add(accounts.VerifyTTL + time.Minute)

	_, err := h.svc.VerifyEmail(h.ctx, tok)
	assertKind(t, err, apperr.KindExpired)
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)
	u := h.register(t)

	_, err := h.svc.RequestReset(h.ctx, u.Email)
	assertKind(t, err, apperr.KindForbidden)

	if _, err := h.svc.VerifyEmail(h.ctx, h.tokenFromLastMail(t)); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	_, err = h.svc.RequestReset(h.ctx, "nobody@example.com")
	assertKind(t, err, apperr.KindNotFound)

	if _, err := h.svc.RequestReset(h.ctx, u.Email); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	if got := h.mail.Last().Subject; got != "Password Reset Request for Flowbase" {
		t.Errorf("subject = %q", got)
	}
	tok := h.tokenFromLastMail(t)

	_, err = h.svc.RequestReset(h.ctx, u.Email)
	assertKind(t, err, apperr.KindConflict)

	_, err = h.svc.ResetPassword(h.ctx, tok, "new-password", "other-password")
	assertKind(t, err, apperr.KindBadRequest)

	if _, err := h.svc.ResetPassword(h.ctx, tok, "new-password", "new-password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := h.svc.Login(h.ctx, u.Email, "new-password"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
	_, err = h.svc.ResetPassword(h.ctx, tok, "again-password", "again-password")
	assertKind(t, err, apperr.KindUnauthorized)
}

func TestResetPassword_ExpiredRequestIsReplaced(t *testing.T) {
	h := newHarness(t)
	u := h.register(t)
	_, _ = h.svc.VerifyEmail(h.ctx, h.tokenFromLastMail(t))
	if _, err := h.svc.RequestReset(h.ctx, u.Email); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	h.now = h.now.Add(accounts.ResetTTL + time.Minute)
	if _, err := h.svc.RequestReset(h.ctx, u.Email); err != nil {
		t.Fatalf("RequestReset after expiry: %v", err)
	}
}

func TestProfileAndChangePassword(t *testing.T) {
	h := newHarness(t)
	u := h.register(t)

	got, err := h.svc.UpdateProfile(h.ctx, u.ID, "  Ada King ", "https://img.example.com/a.png")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.FullName != "Ada King" || got.ProfilePicture != "https://img.example.com/a.png" {
		t.Errorf("profile = %+v", got)
	}

	err = h.svc.ChangePassword(h.ctx, u.ID, "wrong", "next-password", "next-password")
	assertKind(t, err, apperr.KindForbidden)
	err = h.svc.ChangePassword(h.ctx, u.ID, "correct-horse", "next-password", "mismatch")
	assertKind(t, err, apperr.KindBadRequest)
	if err := h.svc.ChangePassword(h.ctx, u.ID, "correct-horse", "next-password", "next-password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	stored, _ := h.db.Users.GetByID(h.ctx, u.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("next-password")) != nil {
		t.Error("password not changed")
	}
}
