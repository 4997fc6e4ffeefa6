package http

import (
	"fmt"
	"net/http"
	"time"

	"stockroom/internal/auth"
	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/services"
)

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
}

// handleRegister creates an account. Registration is public, but only a
// caller holding an ADMIN session may choose the ADMIN role.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	var role core.Role
	if req.Role != "" {
		parsed, err := core.ParseRole(req.Role)
		if err != nil {
			writeError(w, r, applog.OpCreate, err)
			return
		}
		if parsed == core.RoleAdmin {
			sess, err := s.sessions.Lookup(auth.BearerToken(r))
			if err != nil || !sess.IsAdmin() {
				writeError(w, r, applog.OpCreate, fmt.Errorf("only administrators may grant the ADMIN role: %w", core.ErrForbidden))
				return
			}
		}
		role = parsed
	}

	u, err := s.users.Register(r.Context(), services.RegisterRequest{
		Name:        sanitizeInput(req.Name),
		Email:       sanitizeInput(req.Email),
		Password:    req.Password,
		PhoneNumber: sanitizeInput(req.PhoneNumber),
		Role:        role,
	})
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Message("user registered successfully").With("user", toUserView(u)).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}
	sess, _, err := s.users.Login(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}
	NewResponse().
		Message("user logged in successfully").
		With("token", sess.Token).
		With("role", sess.Role).
		With("expirationTime", sess.ExpiresAt.UTC().Format(time.RFC3339)).
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	s.users.Logout(sess.Token)
	NewResponse().Message("logged out").Write(w)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	u, err := s.users.Get(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().With("user", toUserView(u)).Write(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().With("users", mapViews(users, toUserView)).Write(w)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().With("user", toUserView(u)).Write(w)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req updateUserRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	sess, _ := auth.FromContext(r.Context())
	u, err := s.users.Update(r.Context(), sess, id, services.UserPatch{
		Name:        sanitizeInput(req.Name),
		Email:       sanitizeInput(req.Email),
		Password:    req.Password,
		PhoneNumber: sanitizeInput(req.PhoneNumber),
		Role:        req.Role,
	})
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().Message("user updated successfully").With("user", toUserView(u)).Write(w)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewResponse().Message("user deleted successfully").Write(w)
}

func (s *Server) handleUserTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.users.Transactions(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().With("transactions", mapViews(txs, toTransactionView)).Write(w)
}
