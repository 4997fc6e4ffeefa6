package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/auth"
	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/ports"
)

// UserAccountStore is the storage UserService works against.
type UserAccountStore interface {
	ports.UserStore
	ListTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error)
}

// RegisterRequest is a new account. An empty Role means MANAGER.
type RegisterRequest struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	Role        core.Role
}

// UserPatch lists the account fields an update may change. Empty strings
// keep the stored value.
type UserPatch struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	Role        string
}

// UserService manages accounts and sessions.
type UserService struct {
	store    UserAccountStore
	sessions *auth.SessionStore
	cost     int
	logger   *applog.Logger
}

func NewUserService(store UserAccountStore, sessions *auth.SessionStore, logger *applog.Logger) *UserService {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &UserService{
		store:    store,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
		logger:   logger.WithComponent(applog.ComponentUsers),
	}
}

func (s *UserService) hash(password string) (string, error) {
	if err := core.ValidatePassword(password); err != nil {
		return "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Register creates an account. A taken email fails with core.ErrConflict.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (core.User, error) {
	role := req.Role
	if role == "" {
		role = core.RoleManager
	}
	u := core.User{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Role:        role,
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("register user: %w", err)
	}
	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, created.ID, "role", string(created.Role))
	return created, nil
}

// Login checks credentials and opens a session. Unknown emails and wrong
// passwords fail the same way.
func (s *UserService) Login(ctx context.Context, email, password string) (auth.Session, core.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.WarnContext(ctx, "Login failed", applog.FieldOperation, applog.OpLogin, "reason", "unknown email")
			return auth.Session{}, core.User{}, fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
		}
		return auth.Session{}, core.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login failed", applog.FieldOperation, applog.OpLogin, applog.FieldUserID, u.ID, "reason", "wrong password")
		return auth.Session{}, core.User{}, fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
	}
	sess := s.sessions.Create(u)
	s.logger.InfoContext(ctx, "User logged in", applog.FieldUserID, u.ID, applog.FieldOperation, applog.OpLogin)
	return sess, u, nil
}

func (s *UserService) Logout(token string) {
	s.sessions.Revoke(token)
}

func (s *UserService) Get(ctx context.Context, id int64) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	us, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return us, nil
}

// Update applies patch on behalf of actor. Users may edit themselves; only
// admins may edit others or change roles.
func (s *UserService) Update(ctx context.Context, actor auth.Session, id int64, patch UserPatch) (core.User, error) {
	if !actor.CanActOn(id) {
		return core.User{}, fmt.Errorf("update user %d: %w", id, core.ErrForbidden)
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}

	if v := strings.TrimSpace(patch.Name); v != "" {
		u.Name = v
	}
	if v := strings.TrimSpace(patch.Email); v != "" {
		u.Email = strings.ToLower(v)
	}
	if v := strings.TrimSpace(patch.PhoneNumber); v != "" {
		u.PhoneNumber = v
	}
	roleChanged := false
	if patch.Role != "" {
		role, err := core.ParseRole(patch.Role)
		if err != nil {
			return core.User{}, err
		}
		if role != u.Role {
			if !actor.IsAdmin() {
				return core.User{}, fmt.Errorf("change role of user %d: %w", id, core.ErrForbidden)
			}
			u.Role = role
			roleChanged = true
		}
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	passwordChanged := false
	if patch.Password != "" {
		hash, err := s.hash(patch.Password)
		if err != nil {
			return core.User{}, err
		}
		u.PasswordHash = hash
		passwordChanged = true
	}

	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	if passwordChanged {
		// The session that made the change stays signed in.
		keep := ""
		if actor.UserID == id {
			keep = actor.Token
		}
		n := s.sessions.RevokeUserExcept(id, keep)
		s.logger.InfoContext(ctx, "Password changed", applog.FieldUserID, id, "sessions_revoked", n)
	}
	if roleChanged {
		s.sessions.UpdateRole(id, updated.Role)
	}
	s.logger.InfoContext(ctx, "User updated", applog.FieldUserID, id, "by", actor.UserID)
	return updated, nil
}

// Delete removes the account and ends its sessions. Its transactions stay in
// the history without an owner.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	n := s.sessions.RevokeUser(id)
	s.logger.InfoContext(ctx, "User deleted", applog.FieldUserID, id, "sessions_revoked", n)
	return nil
}

// Transactions lists the movements recorded by a user.
func (s *UserService) Transactions(ctx context.Context, id int64) ([]core.Transaction, error) {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	txs, err := s.store.ListTransactionsByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transactions of user %d: %w", id, err)
	}
	return txs, nil
}

// EnsureAdmin creates the bootstrap administrator unless the email is
// already registered. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" {
		return false, nil
	}
	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return false, fmt.Errorf("lookup bootstrap admin: %w", err)
	}
	_, err = s.Register(ctx, RegisterRequest{
		Name:        "Administrator",
		Email:       email,
		Password:    password,
		PhoneNumber: "n/a",
		Role:        core.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	return true, nil
}
