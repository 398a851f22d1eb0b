package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/store"
)

func makeTestUser(id, email string) *domain.User {
	return &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: "$argon2id$fake",
		Role:         domain.RoleEditor,
		DisplayName:  "Test User",
	}
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := makeTestUser("user-1", "Editor@Example.com")
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "Editor@Example.com" || got.Role != domain.RoleEditor || got.PasswordHash != "$argon2id$fake" {
		t.Errorf("unexpected user: %+v", got)
	}
	if !got.LastLoginAt.IsZero() {
		t.Errorf("last login should be zero, got %v", got.LastLoginAt)
	}

	byEmail, err := s.GetUserByEmail(ctx, "  editor@example.COM ")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != "user-1" {
		t.Errorf("GetUserByEmail id = %q", byEmail.ID)
	}

	n, err := s.CountUsers(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountUsers = (%d, %v), want 1", n, err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "a@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := s.CreateUser(ctx, makeTestUser("user-2", "A@example.com"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for duplicate email, got %v", err)
	}
}

func TestCreateUser_InvalidRole(t *testing.T) {
	s := newTestStore(t)
	u := makeTestUser("user-1", "a@example.com")
	u.Role = "owner"
	if err := s.CreateUser(context.Background(), u); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetUser(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByEmail(context.Background(), "nope@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTouchLastLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "a@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.TouchLastLogin(ctx, "user-1"); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.LastLoginAt.IsZero() {
		t.Error("last login not recorded")
	}

	if err := s.TouchLastLogin(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
