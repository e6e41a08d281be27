// Package memory provides an in-process Store used by tests and by the
// memory storage driver for local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps every collection in maps guarded by a single mutex.
type Store struct {
	mu        sync.RWMutex
	users     map[string]models.User
	sessions  map[string]models.Session // keyed by username
	tokens    map[string]string         // token -> username
	profiles  map[string]models.Profile
	order     []string
	visitors  map[string]models.Visitor
	dailyByTS map[int64]models.DailyVisit
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:     make(map[string]models.User),
		sessions:  make(map[string]models.Session),
		tokens:    make(map[string]string),
		profiles:  make(map[string]models.Profile),
		visitors:  make(map[string]models.Visitor),
		dailyByTS: make(map[int64]models.DailyVisit),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return models.User{}, storage.ErrAlreadyExists
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Permissions = clonePerms(user.Permissions)
	s.users[user.Username] = user
	return user, nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	user.Permissions = clonePerms(user.Permissions)
	return user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		u.Permissions = clonePerms(u.Permissions)
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, username string, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[username]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if user.Username != username {
		if _, taken := s.users[user.Username]; taken {
			return models.User{}, storage.ErrAlreadyExists
		}
		delete(s.users, username)
	}
	user.CreatedAt = existing.CreatedAt
	user.Permissions = clonePerms(user.Permissions)
	s.users[user.Username] = user
	return user, nil
}

func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, username)
	return nil
}

func (s *Store) UpsertSession(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.tokens[session.Token]; ok && owner != session.Username {
		return storage.ErrAlreadyExists
	}
	if prev, ok := s.sessions[session.Username]; ok {
		delete(s.tokens, prev.Token)
	}
	session.Permissions = clonePerms(session.Permissions)
	s.sessions[session.Username] = session
	s.tokens[session.Token] = session.Username
	return nil
}

func (s *Store) FindSessionByToken(_ context.Context, token string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	username, ok := s.tokens[token]
	if !ok {
		return models.Session{}, storage.ErrNotFound
	}
	session := s.sessions[username]
	session.Permissions = clonePerms(session.Permissions)
	return session, nil
}

func (s *Store) DeleteSessionByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.tokens[token]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.tokens, token)
	delete(s.sessions, username)
	return nil
}

func (s *Store) DeleteSessionByUsername(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[username]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.tokens, session.Token)
	delete(s.sessions, username)
	return nil
}

func (s *Store) ListProfiles(_ context.Context) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Profile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.profiles[id])
	}
	return out, nil
}

func (s *Store) FindProfile(_ context.Context, id string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateProfile(_ context.Context, profile models.Profile) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; ok {
		return models.Profile{}, storage.ErrAlreadyExists
	}
	s.profiles[profile.ID] = profile
	s.order = append(s.order, profile.ID)
	return profile, nil
}

func (s *Store) UpdateProfile(_ context.Context, profile models.Profile) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	s.profiles[profile.ID] = profile
	return profile, nil
}

func (s *Store) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.profiles, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) FindVisitor(_ context.Context, visitorID string) (models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visitors[visitorID]
	if !ok {
		return models.Visitor{}, storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) CreateVisitor(_ context.Context, visitor models.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visitors[visitor.VisitorID]; ok {
		return storage.ErrAlreadyExists
	}
	s.visitors[visitor.VisitorID] = visitor
	return nil
}

func (s *Store) UpdateVisitor(_ context.Context, visitor models.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visitors[visitor.VisitorID]; !ok {
		return storage.ErrNotFound
	}
	s.visitors[visitor.VisitorID] = visitor
	return nil
}

func (s *Store) IncrementDaily(_ context.Context, day time.Time, visitors, uniqueVisitors int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day.Unix()
	d, ok := s.dailyByTS[key]
	if !ok {
		d = models.DailyVisit{Date: day}
	}
	d.Visitors += visitors
	d.UniqueVisitors += uniqueVisitors
	s.dailyByTS[key] = d
	return nil
}

func (s *Store) DailyVisitsSince(_ context.Context, since time.Time) ([]models.DailyVisit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DailyVisit
	for _, d := range s.dailyByTS {
		if !d.Date.Before(since) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) VisitorTotals(_ context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, v := range s.visitors {
		total += v.Visits
	}
	return int64(len(s.visitors)), total, nil
}

func clonePerms(perms []models.Permission) []models.Permission {
	if perms == nil {
		return nil
	}
	out := make([]models.Permission, len(perms))
	copy(out, perms)
	return out
}
