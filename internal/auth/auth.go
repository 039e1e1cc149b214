package auth

import "github.com/jothihub/jothi-gateway/internal/directory"

// table maps command names to the set of roles that may invoke them.
// The unauthorized sentinel appears in no entry, so it is denied
// everything.
var table = map[string]map[directory.Role]bool{
	"help":         allRoles(),
	"about":        allRoles(),
	"bellmode":     {directory.RoleTeacher: true, directory.RoleDeveloper: true},
	"assembly":     {directory.RoleTeacher: true, directory.RoleDeveloper: true},
	"announce":     {directory.RoleAdmin: true, directory.RoleDeveloper: true},
	"announcement": {directory.RoleAdmin: true, directory.RoleDeveloper: true},
	"schedule":     {directory.RoleDeveloper: true},
	"settings":     {directory.RoleDeveloper: true},
}

func allRoles() map[directory.Role]bool {
	return map[directory.Role]bool{
		directory.RoleTeacher:   true,
		directory.RoleAdmin:     true,
		directory.RoleDeveloper: true,
	}
}

// Known reports whether the command name exists at all
func Known(commandName string) bool {
	_, ok := table[commandName]
	return ok
}

// IsAllowed reports whether the role may invoke the command
func IsAllowed(role directory.Role, commandName string) bool {
	roles, ok := table[commandName]
	if !ok {
		return false
	}
	return roles[role]
}
