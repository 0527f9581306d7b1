// Package user holds the in-memory user directory.
package user

import "sync"

// User is a conversation participant identified by their Instagram-scoped id.
// DisplayName and ProfilePictureURL stay blank until a profile fetch succeeds.
type User struct {
	ID                string
	DisplayName       string
	ProfilePictureURL string
	HasProfile        bool
}

// Profile is the public profile data applied to a User.
type Profile struct {
	Name       string
	PictureURL string
}

// Directory stores users for the lifetime of the process.
type Directory interface {
	Get(id string) (User, bool)
	Create(id string) User
	SetProfile(id string, p Profile)
	Len() int
}

// MemoryDirectory is a Directory backed by a mutex-guarded map.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]User)}
}

// Get returns a copy of the user with id, if known.
func (d *MemoryDirectory) Get(id string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}

// Create stores a blank user for id. An existing user is returned unchanged.
func (d *MemoryDirectory) Create(id string) User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[id]; ok {
		return u
	}
	u := User{ID: id}
	d.users[id] = u
	return u
}

// SetProfile applies p to the user with id, creating the user if needed.
func (d *MemoryDirectory) SetProfile(id string, p Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = User{
		ID:                id,
		DisplayName:       p.Name,
		ProfilePictureURL: p.PictureURL,
		HasProfile:        true,
	}
}

// Len returns the number of known users.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}
