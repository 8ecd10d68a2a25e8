// Package access holds the role based permission table: which modules a role can read or write,
// which records it can see, and the navigation built from it.
package access

import (
	"strings"

	"github.com/trezcool/pathway/core/user"
)

type Permission int

const (
	None Permission = iota
	Read
	Write
)

func (p Permission) String() string {
	switch p {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "none"
	}
}

type Module string

const (
	ModuleDashboard     Module = "dashboard"
	ModuleLeads         Module = "leads"
	ModuleStudents      Module = "students"
	ModuleApplications  Module = "applications"
	ModuleAdmissions    Module = "admissions"
	ModuleEvents        Module = "events"
	ModuleRegistrations Module = "registrations"
	ModuleUsers         Module = "users"
	ModuleSettings      Module = "settings"
)

// rolePermissions is keyed by role prefix (see user.Role*).
var rolePermissions = map[string]map[Module]Permission{
	user.RoleAdmin: {
		ModuleDashboard:     Write,
		ModuleLeads:         Write,
		ModuleStudents:      Write,
		ModuleApplications:  Write,
		ModuleAdmissions:    Write,
		ModuleEvents:        Write,
		ModuleRegistrations: Write,
		ModuleUsers:         Write,
		ModuleSettings:      Write,
	},
	user.RoleManager: {
		ModuleDashboard:     Write,
		ModuleLeads:         Write,
		ModuleStudents:      Write,
		ModuleApplications:  Write,
		ModuleAdmissions:    Write,
		ModuleEvents:        Write,
		ModuleRegistrations: Write,
		ModuleUsers:         Read,
		ModuleSettings:      Write,
	},
	user.RoleCounsellor: {
		ModuleDashboard:     Read,
		ModuleLeads:         Write,
		ModuleStudents:      Write,
		ModuleApplications:  Write,
		ModuleAdmissions:    Write,
		ModuleEvents:        Read,
		ModuleRegistrations: Read,
	},
	user.RoleFrontDesk: {
		ModuleDashboard:     Read,
		ModuleLeads:         Write,
		ModuleEvents:        Write,
		ModuleRegistrations: Write,
	},
}

// viewAllPrefixes are the roles that see every record regardless of assignment.
var viewAllPrefixes = []string{user.RoleAdmin, user.RoleManager}

// Actor is the user performing an operation.
type Actor struct {
	ID    string
	Name  string
	Roles []string
}

// System is used for operations not triggered by a user (admin CLI, imports).
var System = Actor{Name: "System", Roles: []string{user.RoleAdmin}}

func ActorFromUser(usr user.User) Actor {
	return Actor{ID: usr.ID, Name: usr.DisplayName(), Roles: usr.Roles}
}

// Permission returns the highest permission any of the actor's roles grants on m.
func (a Actor) Permission(m Module) Permission {
	perm := None
	for _, role := range a.Roles {
		for prefix, perms := range rolePermissions {
			if strings.HasPrefix(role, prefix) && perms[m] > perm {
				perm = perms[m]
			}
		}
	}
	return perm
}

func (a Actor) Can(m Module, p Permission) bool {
	return a.Permission(m) >= p
}

// SeesAll reports whether the actor sees records assigned to other users.
func (a Actor) SeesAll() bool {
	for _, prefix := range viewAllPrefixes {
		if user.HasRolePrefix(a.Roles, prefix) {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return user.HasRolePrefix(a.Roles, user.RoleAdmin)
}

// CanSeeAssigned reports whether the actor may see a record assigned to assignedTo (and optionally created by createdBy).
func (a Actor) CanSeeAssigned(assignedTo string, createdBy ...string) bool {
	if a.SeesAll() {
		return true
	}
	if a.ID == "" {
		return false
	}
	if assignedTo == a.ID {
		return true
	}
	return len(createdBy) > 0 && createdBy[0] == a.ID
}
