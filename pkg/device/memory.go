package device

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryDirectory is an in-process Directory. It is used when no database is
// configured and by tests. Devices are indexed by id, so global lookups do not
// scan per user.
type MemoryDirectory struct {
	mu      sync.RWMutex
	users   map[string]*User
	devices map[string]*Descriptor
	now     func() time.Time
}

// NewMemoryDirectory creates an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:   make(map[string]*User),
		devices: make(map[string]*Descriptor),
		now:     time.Now,
	}
}

// PutUser inserts or replaces a user.
func (m *MemoryDirectory) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = &u
}

// PutDevice inserts or replaces a device. Device ids are unique across all users.
func (m *MemoryDirectory) PutDevice(d Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = m.now()
	}
	m.devices[d.DeviceID] = &d
}

func (m *MemoryDirectory) ListDevicesForUser(ctx context.Context, userID string) ([]Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Descriptor{}
	for _, d := range m.devices {
		if d.OwnerUserID == userID {
			out = append(out, copyDescriptor(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (m *MemoryDirectory) GetDeviceForUser(ctx context.Context, userID, deviceID string) (*Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[deviceID]
	if !ok || d.OwnerUserID != userID {
		return nil, ErrNotFound
	}
	c := copyDescriptor(d)
	return &c, nil
}

func (m *MemoryDirectory) FindDeviceGlobally(ctx context.Context, deviceID string) (*Descriptor, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[deviceID]
	if !ok {
		return nil, "", ErrNotFound
	}
	c := copyDescriptor(d)
	return &c, d.OwnerUserID, nil
}

func (m *MemoryDirectory) UpdateDeviceState(ctx context.Context, userID, deviceID string, update StateUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[deviceID]
	if !ok || d.OwnerUserID != userID {
		return ErrNotFound
	}
	update.Apply(d)
	d.Revision++
	d.UpdatedAt = m.now()
	return nil
}

func (m *MemoryDirectory) AccessTokenForUser(ctx context.Context, userID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok || u.AccessToken == nil || *u.AccessToken == "" {
		return "", false, nil
	}
	if u.TokenExpiresAt != nil && !m.now().Before(*u.TokenExpiresAt) {
		return "", false, nil
	}
	return *u.AccessToken, true, nil
}

func (m *MemoryDirectory) UserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryDirectory) SetAccessToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.AccessToken = &token
	u.TokenExpiresAt = nil
	if !expiresAt.IsZero() {
		u.TokenExpiresAt = &expiresAt
	}
	return nil
}

func copyDescriptor(d *Descriptor) Descriptor {
	c := *d
	if d.ColorHex != nil {
		hex := *d.ColorHex
		c.ColorHex = &hex
	}
	return c
}
