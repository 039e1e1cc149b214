package directory

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Role is the permission tier of an authorized sender
type Role string

const (
	RoleTeacher      Role = "teacher"
	RoleAdmin        Role = "admin"
	RoleDeveloper    Role = "developer"
	RoleUnauthorized Role = "unauthorized"
)

// ParseRole maps a role name from the directory file to a Role
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleTeacher:
		return RoleTeacher, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleDeveloper:
		return RoleDeveloper, true
	}
	return "", false
}

// Normalize puts a sender address into canonical form: leading + then digits.
// WhatsApp delivers numbers without the plus.
func Normalize(n string) string {
	if n == "" || strings.HasPrefix(n, "+") {
		return n
	}
	return "+" + n
}

// Directory owns the identity-to-role mapping, persisted as one
// "+NUMBER:role" line per sender.
type Directory struct {
	mu           sync.RWMutex
	path         string
	allowUnknown bool
	entries      map[string]Role
	logger       *slog.Logger
}

// Load reads the directory file. A missing file yields an empty directory.
func Load(path string, allowUnknown bool, logger *slog.Logger) (*Directory, error) {
	d := &Directory{
		path:         path,
		allowUnknown: allowUnknown,
		entries:      make(map[string]Role),
		logger:       logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		num, roleName, found := strings.Cut(line, ":")
		identity := Normalize(strings.TrimSpace(num))
		if !found {
			d.entries[identity] = RoleTeacher
			continue
		}
		role, ok := ParseRole(roleName)
		if !ok {
			logger.Warn("Skipping directory entry with unknown role", "identity", identity, "role", roleName)
			continue
		}
		d.entries[identity] = role
	}
	return d, nil
}

// ResolveRole is total: every identity maps to a role or the
// unauthorized sentinel, never to an error.
func (d *Directory) ResolveRole(identity string) Role {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if role, ok := d.entries[identity]; ok {
		return role
	}
	if d.allowUnknown {
		return RoleTeacher
	}
	return RoleUnauthorized
}

// IsKnown reports whether the identity has an explicit entry
func (d *Directory) IsKnown(identity string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[identity]
	return ok
}

// Upsert adds or replaces an entry and persists the whole file. On a
// failed write the in-memory state is rolled back to match the last
// durable write.
func (d *Directory) Upsert(identity string, role Role) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, existed := d.entries[identity]
	d.entries[identity] = role
	if err := d.persistLocked(); err != nil {
		if existed {
			d.entries[identity] = prev
		} else {
			delete(d.entries, identity)
		}
		return fmt.Errorf("failed to persist directory: %w", err)
	}
	return nil
}

// Remove deletes an entry and persists, rolling back on failure
func (d *Directory) Remove(identity string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, existed := d.entries[identity]
	if !existed {
		return nil
	}
	delete(d.entries, identity)
	if err := d.persistLocked(); err != nil {
		d.entries[identity] = prev
		return fmt.Errorf("failed to persist directory: %w", err)
	}
	return nil
}

// Count returns the number of explicit entries
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

func (d *Directory) persistLocked() error {
	lines := make([]string, 0, len(d.entries))
	for identity, role := range d.entries {
		lines = append(lines, identity+":"+string(role))
	}
	return os.WriteFile(d.path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
}
