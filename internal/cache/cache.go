// Package cache holds the in-process copies of the directory population.
// The engine writes through to it after every successful directory
// mutation; reads other than the explicit no-cache variants are served
// from here.
package cache

import (
	"maps"
	"sync"

	"github.com/orvan-io/dirsync/internal/model"
)

// Store is a keyed store for users, groups and companies. Maps are
// guarded by a single RWMutex; Refresh swaps them wholesale, so readers
// never observe a half-populated scan.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	groups    map[string]*model.Group
	companies map[string]*model.Company
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]*model.User),
		groups:    make(map[string]*model.Group),
		companies: make(map[string]*model.Company),
	}
}

// Refresh atomically replaces the cached population with the result of a
// fresh directory scan.
func (s *Store) Refresh(users map[string]*model.User, groups map[string]*model.Group, companies map[string]*model.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if users != nil {
		s.users = users
	}
	if groups != nil {
		s.groups = groups
	}
	if companies != nil {
		s.companies = companies
	}
}

// Users returns a snapshot of the user map keyed by login.
func (s *Store) Users() map[string]*model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.users)
}

// Groups returns a snapshot of the group map keyed by group id.
func (s *Store) Groups() map[string]*model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.groups)
}

// Companies returns a snapshot of the company map keyed by company id.
func (s *Store) Companies() map[string]*model.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.companies)
}

// User returns the cached user, or nil when absent.
func (s *Store) User(id string) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

// Group returns the cached group, or nil when absent.
func (s *Store) Group(id string) *model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups[id]
}

// Company returns the cached company, or nil when absent.
func (s *Store) Company(id string) *model.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.companies[id]
}

// CreateUser inserts a user into the cache.
func (s *Store) CreateUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// UpdateUser stores the current state of a user. Inserting an unknown
// user is allowed; the cache is not authoritative.
func (s *Store) UpdateUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// DeleteUser removes a user from the cache.
func (s *Store) DeleteUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, user.ID)
}

// CreateGroup inserts a group into the cache.
func (s *Store) CreateGroup(group *model.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = group
}

// UpdateGroup stores the current state of a group.
func (s *Store) UpdateGroup(group *model.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = group
}

// DeleteGroup removes a group from the cache.
func (s *Store) DeleteGroup(group *model.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, group.ID)
}
