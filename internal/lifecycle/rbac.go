package lifecycle

import "github.com/spec-kit/complaint-service/internal/domain"

// Actor is the resolved caller of a lifecycle operation.
type Actor struct {
	ID   string
	Role domain.Role
}

// MayClose reports whether role may move a ticket into closed.
func MayClose(role domain.Role) bool {
	return role.Elevated()
}

// MayAssign reports whether an actor may set the assigned porter to targetID.
// Elevated actors may assign anyone; everyone else only themselves.
func MayAssign(role domain.Role, actorID, targetID string) bool {
	if role.Elevated() {
		return true
	}
	if role != domain.RolePorter {
		return false
	}
	return actorID != "" && actorID == targetID
}
