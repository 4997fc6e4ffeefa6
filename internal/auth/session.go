// Package auth issues bearer sessions and gates routes by role.
package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"stockroom/internal/cache"
	"stockroom/internal/core"
)

// Session is the authenticated identity attached to a request.
type Session struct {
	Token     string
	UserID    int64
	Role      core.Role
	ExpiresAt time.Time
}

func (s Session) IsAdmin() bool { return s.Role == core.RoleAdmin }

// CanActOn reports whether the session may modify the given user's account.
func (s Session) CanActOn(userID int64) bool {
	return s.IsAdmin() || s.UserID == userID
}

// SessionStore keeps live sessions in a TTL-bounded LRU cache. Sessions
// evicted by size simply require a new login.
type SessionStore struct {
	sessions *cache.LRUCache[Session]
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration, maxSessions int) *SessionStore {
	return &SessionStore{
		sessions: cache.NewLRUCache[Session](maxSessions, ttl),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a fresh session for the user.
func (s *SessionStore) Create(user core.User) Session {
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.sessions.SetWithTTL(sess.Token, sess, s.ttl)
	return sess
}

// Lookup resolves a token. Unknown and expired tokens fail with
// core.ErrUnauthorized.
func (s *SessionStore) Lookup(token string) (Session, error) {
	if token == "" {
		return Session{}, fmt.Errorf("missing session token: %w", core.ErrUnauthorized)
	}
	sess, ok := s.sessions.Get(token)
	if !ok || !s.now().Before(sess.ExpiresAt) {
		return Session{}, fmt.Errorf("unknown or expired session: %w", core.ErrUnauthorized)
	}
	return sess, nil
}

func (s *SessionStore) Revoke(token string) {
	s.sessions.Delete(token)
}

// RevokeUser ends every session of the user and returns how many there were.
func (s *SessionStore) RevokeUser(userID int64) int {
	return s.sessions.DeleteFunc(func(_ string, sess Session) bool { return sess.UserID == userID })
}

// RevokeUserExcept ends the user's sessions other than keep.
func (s *SessionStore) RevokeUserExcept(userID int64, keep string) int {
	return s.sessions.DeleteFunc(func(token string, sess Session) bool {
		return sess.UserID == userID && token != keep
	})
}

// UpdateRole rewrites the role of the user's live sessions after an account
// change.
func (s *SessionStore) UpdateRole(userID int64, role core.Role) {
	var live []Session
	s.sessions.DeleteFunc(func(_ string, sess Session) bool {
		if sess.UserID == userID {
			live = append(live, sess)
			return true
		}
		return false
	})
	now := s.now()
	for _, sess := range live {
		if ttl := sess.ExpiresAt.Sub(now); ttl > 0 {
			sess.Role = role
			s.sessions.SetWithTTL(sess.Token, sess, ttl)
		}
	}
}

func (s *SessionStore) CleanExpired() int { return s.sessions.CleanExpired() }

func (s *SessionStore) Size() int { return s.sessions.Size() }

func (s *SessionStore) Stats() cache.Stats { return s.sessions.Stats() }
