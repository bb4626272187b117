package rbac

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoleInfo is the read-only view of a role and its grants.
type RoleInfo struct {
	Name        Role     `json:"name"`
	DisplayName string   `json:"display_name"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`
}

// Catalog exposes the static registry to the HTTP layer.
type Catalog struct{}

// NewCatalog constructs a Catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// ListRoles returns all roles ordered by level.
func (c *Catalog) ListRoles() []RoleInfo {
	roles := Roles()
	out := make([]RoleInfo, 0, len(roles))
	for _, r := range roles {
		out = append(out, c.describe(r))
	}
	return out
}

// GetRole resolves a role by name.
func (c *Catalog) GetRole(name string) (RoleInfo, error) {
	role, err := ParseRole(name)
	if err != nil {
		return RoleInfo{}, err
	}
	return c.describe(role), nil
}

// ListPermissions returns all permissions ordered by name.
func (c *Catalog) ListPermissions() []Permission {
	return AllPermissions()
}

func (c *Catalog) describe(r Role) RoleInfo {
	return RoleInfo{
		Name: r,
		// Casers keep state, so one is built per call.
		DisplayName: cases.Title(language.English).String(string(r)),
		Level:       r.Level(),
		Permissions: PermissionsFor(r),
	}
}
