// Package access decides which tickets a user may enumerate.
package access

import "github.com/spec-kit/request-desk/internal/domain"

// Policy is the visibility rule of a single role.
type Policy interface {
	CanView(viewer *domain.User, ticket *domain.Ticket) bool
}

type adminPolicy struct{}

func (adminPolicy) CanView(*domain.User, *domain.Ticket) bool { return true }

// analystPolicy exposes the unassigned pool plus the analyst's own assignments.
type analystPolicy struct{}

func (analystPolicy) CanView(viewer *domain.User, ticket *domain.Ticket) bool {
	return ticket.Unassigned() || ticket.IsAssignedTo(viewer.ID)
}

type requesterPolicy struct{}

func (requesterPolicy) CanView(viewer *domain.User, ticket *domain.Ticket) bool {
	return ticket.RequesterID == viewer.ID
}

type denyAll struct{}

func (denyAll) CanView(*domain.User, *domain.Ticket) bool { return false }

var policies = map[domain.Role]Policy{
	domain.RoleAdmin:     adminPolicy{},
	domain.RoleAnalyst:   analystPolicy{},
	domain.RoleRequester: requesterPolicy{},
}

// PolicyFor resolves the policy of role. Unknown roles see nothing.
func PolicyFor(role domain.Role) Policy {
	if p, ok := policies[role]; ok {
		return p
	}
	return denyAll{}
}

// CanView resolves the viewer's policy and applies it. A nil viewer sees nothing.
func CanView(viewer *domain.User, ticket *domain.Ticket) bool {
	if viewer == nil || ticket == nil {
		return false
	}
	return PolicyFor(viewer.Role).CanView(viewer, ticket)
}
