package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/flowbase/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{FullName: "  Ada   Lovelace ", Email: " Ada@Example.COM "})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Errorf("Email = %q, want normalized", u.Email)
	}
	if u.FullNameCI == "" {
		t.Error("expected FullNameCI to be set")
	}
	if u.Role != models.UserRoleUser {
		t.Errorf("Role = %q, want default user", u.Role)
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	if _, err := store.Create(ctx, models.User{FullName: "Other", Email: "ADA@example.com"}); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
	if _, err := store.Create(ctx, models.User{FullName: "Bad", Email: "bad@example.com", Role: "root"}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestStore_Lookups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.Create(ctx, models.User{FullName: "Grace", Email: "grace@example.com"})

	byEmail, err := store.GetByEmail(ctx, "GRACE@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Errorf("GetByEmail = %v, %v", byEmail.ID, err)
	}
	byID, err := store.GetByID(ctx, u.ID)
	if err != nil || byID.Email != u.Email {
		t.Errorf("GetByID = %v, %v", byID.Email, err)
	}
	if _, err := store.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Summaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, _ := store.Create(ctx, models.User{FullName: "A", Email: "a@example.com", PasswordHash: "secret"})
	b, _ := store.Create(ctx, models.User{FullName: "B", Email: "b@example.com"})

	got, err := store.Summaries(ctx, []primitive.ObjectID{a.ID, b.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[a.ID].Email != "a@example.com" || got[b.ID].FullName != "B" {
		t.Errorf("unexpected summaries: %+v", got)
	}

	empty, err := store.Summaries(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Summaries(nil) = %v, %v", empty, err)
	}
}

func TestStore_Setters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.Create(ctx, models.User{FullName: "Old Name", Email: "set@example.com"})
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	if err := store.MarkVerified(ctx, u.ID); err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}
	if err := store.SetLastLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("SetLastLogin: %v", err)
	}
	if err := store.SetPasswordHash(ctx, u.ID, "hash"); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
	if err := store.UpdateProfile(ctx, u.ID, "New Name", "https://img.example.com/a.png"); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if err := store.UpdateProfile(ctx, u.ID, "New Name", ""); err != nil {
		t.Fatalf("UpdateProfile without picture: %v", err)
	}

	got, _ := store.GetByID(ctx, u.ID)
	if !got.IsEmailVerified {
		t.Error("expected verified")
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, at)
	}
	if got.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q", got.PasswordHash)
	}
	if got.FullName != "New Name" {
		t.Errorf("FullName = %q", got.FullName)
	}
	if got.ProfilePicture != "https://img.example.com/a.png" {
		t.Errorf("empty picture should keep the old one, got %q", got.ProfilePicture)
	}

	if err := store.MarkVerified(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
