package policy

import (
	"github.com/isdelr/quickreply-be/internal/apperr"
)

type Role string
type Action string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const (
	ActionReadCatalog       Action = "read_catalog"
	ActionWriteCatalog      Action = "write_catalog"
	ActionImportCatalog     Action = "import_catalog"
	ActionManageOwnNotes    Action = "manage_own_notes"
	ActionChangeOwnPassword Action = "change_own_password"
	ActionManageUsers       Action = "manage_users"
	ActionMaintainLogs      Action = "maintain_logs"
	ActionLogin             Action = "login"
	ActionRegister          Action = "register"
	ActionReadMessages      Action = "read_messages"
	ActionManageMessages    Action = "manage_messages"
	ActionSubmitFeedback    Action = "submit_feedback"
	ActionReviewFeedback    Action = "review_feedback"
	ActionManageFeedback    Action = "manage_feedback"
)

// Reasons returned to the user when a user-management rule is violated.
const (
	ReasonSelfDelete       = "You cannot delete your own account"
	ReasonDeleteLastAdmin  = "Cannot delete the last admin"
	ReasonRemoveLastAdmin  = "Cannot remove the last admin"
	ReasonUnknownRoleInput = "Invalid role"
)

// Actor is a resolved identity. Role always comes from the user store.
type Actor struct {
	ID       string
	Username string
	Role     Role
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleEditor, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

func Can(role Role, action Action) bool {
	switch action {
	case ActionLogin, ActionRegister:
		return true
	}
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionReadCatalog || action == ActionWriteCatalog ||
			action == ActionManageOwnNotes || action == ActionChangeOwnPassword ||
			action == ActionReadMessages || action == ActionSubmitFeedback ||
			action == ActionReviewFeedback
	case RoleUser:
		return action == ActionReadCatalog || action == ActionManageOwnNotes ||
			action == ActionChangeOwnPassword || action == ActionReadMessages ||
			action == ActionSubmitFeedback
	default:
		return false
	}
}

// Authorize checks action against the actor's role. A nil actor is unauthenticated.
func Authorize(actor *Actor, action Action) error {
	if actor == nil {
		if action == ActionLogin || action == ActionRegister {
			return nil
		}
		return apperr.Unauthenticated("authentication required")
	}
	if !Can(actor.Role, action) {
		return apperr.Forbidden("you do not have permission to perform this action")
	}
	return nil
}

// CheckUserDeletion enforces the self-delete and last-admin rules.
// otherAdmins is the number of admins excluding target.
func CheckUserDeletion(actorID string, target Actor, otherAdmins int) error {
	if actorID == target.ID {
		return apperr.InvalidOperation(ReasonSelfDelete)
	}
	if target.Role == RoleAdmin && otherAdmins < 1 {
		return apperr.InvalidOperation(ReasonDeleteLastAdmin)
	}
	return nil
}

// CheckRoleChange rejects demoting the last admin. otherAdmins excludes target.
func CheckRoleChange(target Actor, newRole Role, otherAdmins int) error {
	if _, ok := ParseRole(string(newRole)); !ok {
		return apperr.Validation(ReasonUnknownRoleInput)
	}
	if target.Role == RoleAdmin && newRole != RoleAdmin && otherAdmins < 1 {
		return apperr.InvalidOperation(ReasonRemoveLastAdmin)
	}
	return nil
}
