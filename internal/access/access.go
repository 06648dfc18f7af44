// Package access maps user roles to the capabilities they grant.
//
// The client uses it only to decide what to display; the server uses the
// same table in middleware to actually refuse requests.
package access

import "github.com/atinyakov/realtivo/internal/models"

// Capability names an action on leads.
type Capability string

const (
	// ViewLeads allows listing and reading leads, notes and tags.
	ViewLeads Capability = "leads:view"
	// ManageLeads allows creating, editing and deleting leads.
	ManageLeads Capability = "leads:manage"
	// AnnotateLeads allows adding and removing notes and tags.
	AnnotateLeads Capability = "leads:annotate"
)

var grants = map[models.Role][]Capability{
	models.RoleAdmin: {ViewLeads, ManageLeads, AnnotateLeads},
	models.RoleAgent: {ViewLeads, AnnotateLeads},
}

// Can reports whether role grants c. Unknown roles grant nothing.
func Can(role models.Role, c Capability) bool {
	for _, g := range grants[role] {
		if g == c {
			return true
		}
	}
	return false
}

// CanUser is Can for a possibly nil user.
func CanUser(u *models.User, c Capability) bool {
	if u == nil {
		return false
	}
	return Can(u.Role, c)
}
