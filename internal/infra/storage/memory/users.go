package memory

import (
	"context"
	"strings"
	"sync"

	domainauth "shortlet/internal/domain/auth"
	domainuser "shortlet/internal/domain/user"
)

// UserRepository keeps accounts outside the transactional store: blocking and
// registration are single writes that never join a booking unit of work.
type UserRepository struct {
	mu      sync.RWMutex
	users   map[domainuser.ID]domainuser.User
	byEmail map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[domainuser.ID]domainuser.User),
		byEmail: make(map[string]domainuser.ID),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) ByID(_ context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *UserRepository) ByEmail(_ context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return r.lookup(id)
}

func (r *UserRepository) lookup(id domainuser.ID) (*domainuser.User, error) {
	stored, ok := r.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return &stored, nil
}

// Save inserts or replaces a user. An email already owned by another account
// is rejected; changing a user's email releases the old address.
func (r *UserRepository) Save(_ context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	key := emailKey(user.Email)
	if key == "" {
		return domainuser.ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.byEmail[key]; taken && owner != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if previous, ok := r.users[user.ID]; ok {
		if old := emailKey(previous.Email); old != key {
			delete(r.byEmail, old)
		}
	}
	stored := *user
	stored.Roles = append([]domainuser.Role(nil), user.Roles...)
	r.users[user.ID] = stored
	r.byEmail[key] = user.ID
	return nil
}

// SessionStore holds bearer sessions. Expiry is decided by the auth service
// with its own clock, so stale sessions are returned as stored.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domainauth.Token]domainauth.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[domainauth.Token]domainauth.Session)}
}

func (s *SessionStore) Save(_ context.Context, session *domainauth.Session) error {
	if session == nil || session.Token == "" {
		return domainauth.ErrTokenRequired
	}
	stored := *session
	s.mu.Lock()
	s.sessions[session.Token] = stored
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Get(_ context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	stored, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	return &stored, nil
}

func (s *SessionStore) Delete(_ context.Context, token domainauth.Token) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// DeleteByUser revokes every session of a user, used when an admin blocks them.
func (s *SessionStore) DeleteByUser(_ context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
var _ domainauth.SessionStore = (*SessionStore)(nil)
