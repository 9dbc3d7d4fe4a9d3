package auth

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Permissions maps role -> []permission
type Permissions map[string][]string

type permissionsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPermissions loads a permissions.yml file and returns a role->permissions map.
func LoadPermissions(path string) (Permissions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf permissionsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, err
	}
	return Permissions(pf.Roles), nil
}

// Allows reports whether role holds permission. Role lookup is case-insensitive
// so identities ("patient") match the file's keys ("PATIENT").
func (p Permissions) Allows(role Role, permission string) bool {
	pList, ok := p[string(role)]
	if !ok {
		pList, ok = p[strings.ToUpper(string(role))]
	}
	if !ok {
		return false
	}
	for _, perm := range pList {
		if perm == permission {
			return true
		}
	}
	return false
}

// RolesWith returns the known roles that hold permission.
func (p Permissions) RolesWith(permission string) []Role {
	var roles []Role
	for _, r := range AllRoles {
		if p.Allows(r, permission) {
			roles = append(roles, r)
		}
	}
	return roles
}
