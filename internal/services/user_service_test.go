package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/auth"
	"stockroom/internal/core"
)

func newUserService(t *testing.T) (*UserService, *auth.SessionStore) {
	t.Helper()
	sessions := auth.NewSessionStore(time.Hour, 100)
	svc := NewUserService(newStore(), sessions, nil)
	svc.cost = bcrypt.MinCost
	return svc, sessions
}

func register(t *testing.T, svc *UserService, email string, role core.Role) core.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Test User", Email: email, Password: "secret1", PhoneNumber: "555-0100", Role: role,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return u
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc, sessions := newUserService(t)
	ctx := context.Background()

	u := register(t, svc, " Ann@Example.com ", "")
	if u.Role != core.RoleManager || u.Email != "ann@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "secret1" || u.PasswordHash == "" {
		t.Fatal("password stored in clear")
	}

	_, err := svc.Register(ctx, RegisterRequest{Name: "X", Email: "ann@example.com", Password: "secret1", PhoneNumber: "1"})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate email: %v", err)
	}
	_, err = svc.Register(ctx, RegisterRequest{Name: "X", Email: "x@example.com", Password: "123", PhoneNumber: "1"})
	if !errors.Is(err, core.ErrWeakPassword) {
		t.Fatalf("weak password: %v", err)
	}

	if _, _, err := svc.Login(ctx, "ann@example.com", "wrong!"); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("unknown email: %v", err)
	}

	sess, got, err := svc.Login(ctx, "ANN@example.com", "secret1")
	if err != nil || got.ID != u.ID || sess.UserID != u.ID {
		t.Fatalf("Login = %+v %+v %v", sess, got, err)
	}
	if _, err := sessions.Lookup(sess.Token); err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	svc.Logout(sess.Token)
	if _, err := sessions.Lookup(sess.Token); err == nil {
		t.Fatal("session survived logout")
	}
}

func TestUserService_UpdatePermissions(t *testing.T) {
	svc, sessions := newUserService(t)
	ctx := context.Background()
	ann := register(t, svc, "ann@example.com", "")
	bob := register(t, svc, "bob@example.com", "")
	admin := register(t, svc, "root@example.com", core.RoleAdmin)

	annSess, _, _ := svc.Login(ctx, "ann@example.com", "secret1")

	if _, err := svc.Update(ctx, annSess, bob.ID, UserPatch{Name: "Robert"}); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("editing another user: %v", err)
	}
	if _, err := svc.Update(ctx, annSess, ann.ID, UserPatch{Role: "ADMIN"}); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("self promotion: %v", err)
	}

	updated, err := svc.Update(ctx, annSess, ann.ID, UserPatch{Name: "Annie", Password: "newpass"})
	if err != nil || updated.Name != "Annie" || updated.Email != "ann@example.com" {
		t.Fatalf("self update = %+v, %v", updated, err)
	}
	if _, _, err := svc.Login(ctx, "ann@example.com", "newpass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	adminSess := auth.Session{UserID: admin.ID, Role: core.RoleAdmin}
	promoted, err := svc.Update(ctx, adminSess, ann.ID, UserPatch{Role: "admin"})
	if err != nil || promoted.Role != core.RoleAdmin {
		t.Fatalf("promotion = %+v, %v", promoted, err)
	}
	if s, err := sessions.Lookup(annSess.Token); err != nil || s.Role != core.RoleAdmin {
		t.Fatalf("live session role = %+v, %v", s, err)
	}
	if _, err := svc.Update(ctx, adminSess, bob.ID, UserPatch{Email: "not-an-email"}); !errors.Is(err, core.ErrInvalidEmail) {
		t.Fatalf("bad email: %v", err)
	}
}

func TestUserService_PasswordChangeEndsOtherSessions(t *testing.T) {
	svc, sessions := newUserService(t)
	ctx := context.Background()
	ann := register(t, svc, "ann@example.com", "")
	admin := register(t, svc, "root@example.com", core.RoleAdmin)

	laptop, _, _ := svc.Login(ctx, "ann@example.com", "secret1")
	phone, _, _ := svc.Login(ctx, "ann@example.com", "secret1")

	if _, err := svc.Update(ctx, laptop, ann.ID, UserPatch{Password: "newpass"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := sessions.Lookup(laptop.Token); err != nil {
		t.Fatalf("session that changed the password was revoked: %v", err)
	}
	if _, err := sessions.Lookup(phone.Token); err == nil {
		t.Fatal("old session survived the password change")
	}

	adminSess := sessions.Create(admin)
	if _, err := svc.Update(ctx, adminSess, ann.ID, UserPatch{Password: "resetpw"}); err != nil {
		t.Fatalf("admin reset: %v", err)
	}
	if _, err := sessions.Lookup(laptop.Token); err == nil {
		t.Fatal("admin reset left the user signed in")
	}
	if _, err := sessions.Lookup(adminSess.Token); err != nil {
		t.Fatalf("admin session revoked: %v", err)
	}

	fresh, _, _ := svc.Login(ctx, "ann@example.com", "resetpw")
	if _, err := svc.Update(ctx, fresh, ann.ID, UserPatch{Name: "Annie"}); err != nil {
		t.Fatalf("Update name: %v", err)
	}
	if _, err := sessions.Lookup(fresh.Token); err != nil {
		t.Fatalf("session revoked without a password change: %v", err)
	}
}

func TestUserService_DeleteAndTransactions(t *testing.T) {
	store := newStore()
	sessions := auth.NewSessionStore(time.Hour, 10)
	svc := NewUserService(store, sessions, nil)
	svc.cost = bcrypt.MinCost
	ctx := context.Background()

	u := register(t, svc, "ann@example.com", "")
	_, p := seedCatalog(t, store)
	inv := NewInventoryService(store, nil, nil, nil)
	if _, err := inv.Sell(ctx, MovementRequest{ProductID: p.ID, Quantity: 1, UserID: u.ID}); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	txs, err := svc.Transactions(ctx, u.ID)
	if err != nil || len(txs) != 1 {
		t.Fatalf("Transactions = %v, %v", txs, err)
	}

	sess, _, _ := svc.Login(ctx, "ann@example.com", "secret1")
	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := sessions.Lookup(sess.Token); err == nil {
		t.Fatal("session survived account deletion")
	}
	if _, err := svc.Transactions(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("transactions of deleted user: %v", err)
	}
}

func TestUserService_EnsureAdmin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin@example.com", "bootstrap")
	if err != nil || !created {
		t.Fatalf("first EnsureAdmin = %v, %v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, "admin@example.com", "bootstrap")
	if err != nil || created {
		t.Fatalf("second EnsureAdmin = %v, %v", created, err)
	}
	_, u, err := svc.Login(ctx, "admin@example.com", "bootstrap")
	if err != nil || u.Role != core.RoleAdmin {
		t.Fatalf("admin login = %+v, %v", u, err)
	}
	if created, err := svc.EnsureAdmin(ctx, "", ""); err != nil || created {
		t.Fatalf("empty email = %v, %v", created, err)
	}
}
