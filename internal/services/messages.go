package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
)

// Announcements.

const (
	KindCreateMessage   Kind = "create-message"
	KindUpdateMessage   Kind = "update-message"
	KindDeleteMessage   Kind = "delete-message"
	KindMarkMessageRead Kind = "mark-message-read"

	// kindExpireMessages labels scheduled and admin-triggered expiry. It is not a wire kind.
	kindExpireMessages Kind = "expire-messages"
)

const (
	msgMessageNotFound = "Message not found"
	msgEndDateInPast   = "End date must be in the future"
)

type CreateMessage struct {
	Title       string    `json:"title" validate:"notblank,max=200"`
	Content     string    `json:"content" validate:"notblank,max=2000"`
	TargetUsers []string  `json:"targetUsers" validate:"max=500"`
	TargetRoles []string  `json:"targetRoles" validate:"dive,oneof=user editor admin all"`
	Priority    string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Type        string    `json:"type" validate:"omitempty,oneof=announcement maintenance update warning info"`
	EndDate     time.Time `json:"endDate" validate:"required"`
}

func (*CreateMessage) Kind() Kind            { return KindCreateMessage }
func (*CreateMessage) Action() policy.Action { return policy.ActionManageMessages }

func (m *CreateMessage) apply(ctx context.Context, env *mutationEnv) (change, error) {
	if !m.EndDate.After(time.Now()) {
		return change{}, apperr.Validation(msgEndDateInPast)
	}
	msg := models.Message{
		ID:          uuid.NewString(),
		Title:       m.Title,
		Content:     m.Content,
		AuthorID:    env.actor.ID,
		AuthorName:  env.actor.Username,
		TargetUsers: m.TargetUsers,
		TargetRoles: m.TargetRoles,
		Priority:    models.PriorityMedium,
		Type:        models.MessageInfo,
		IsActive:    true,
		EndDate:     m.EndDate,
	}
	// A message with no audience goes to everyone.
	if len(msg.TargetUsers) == 0 && len(msg.TargetRoles) == 0 {
		msg.TargetRoles = []string{models.TargetAll}
	}
	if m.Priority != "" {
		msg.Priority = models.MessagePriority(m.Priority)
	}
	if m.Type != "" {
		msg.Type = models.MessageType(m.Type)
	}
	created, err := env.repo.CreateMessage(ctx, msg)
	if err != nil {
		return change{}, storeErr(err, msgMessageNotFound, "")
	}
	return change{action: "CREATE", resource: "Message", resourceID: created.ID, newData: created, reply: created}, nil
}

// MessagePatch lists the fields an admin may change. Nil fields are left as they are;
// an empty target list clears it.
type MessagePatch struct {
	Title       string     `json:"title" validate:"omitempty,notblank,max=200"`
	Content     string     `json:"content" validate:"omitempty,notblank,max=2000"`
	TargetUsers []string   `json:"targetUsers" validate:"max=500"`
	TargetRoles []string   `json:"targetRoles" validate:"dive,oneof=user editor admin all"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Type        string     `json:"type" validate:"omitempty,oneof=announcement maintenance update warning info"`
	IsActive    *bool      `json:"isActive"`
	EndDate     *time.Time `json:"endDate"`
}

func (p MessagePatch) empty() bool {
	return p.Title == "" && p.Content == "" && p.TargetUsers == nil && p.TargetRoles == nil &&
		p.Priority == "" && p.Type == "" && p.IsActive == nil && p.EndDate == nil
}

type UpdateMessage struct {
	MessageID string       `json:"messageId" validate:"required"`
	Updates   MessagePatch `json:"updates"`
}

func (*UpdateMessage) Kind() Kind            { return KindUpdateMessage }
func (*UpdateMessage) Action() policy.Action { return policy.ActionManageMessages }

func (m *UpdateMessage) apply(ctx context.Context, env *mutationEnv) (change, error) {
	if m.Updates.empty() {
		return change{}, apperr.Validation("no updates provided")
	}
	old, err := env.repo.GetMessage(ctx, m.MessageID)
	if err != nil {
		return change{}, storeErr(err, msgMessageNotFound, "")
	}

	next := old
	u := m.Updates
	if u.Title != "" {
		next.Title = u.Title
	}
	if u.Content != "" {
		next.Content = u.Content
	}
	if u.TargetUsers != nil {
		next.TargetUsers = u.TargetUsers
	}
	if u.TargetRoles != nil {
		next.TargetRoles = u.TargetRoles
	}
	if u.Priority != "" {
		next.Priority = models.MessagePriority(u.Priority)
	}
	if u.Type != "" {
		next.Type = models.MessageType(u.Type)
	}
	if u.IsActive != nil {
		next.IsActive = *u.IsActive
	}
	if u.EndDate != nil {
		next.EndDate = *u.EndDate
	}

	if err := env.repo.UpdateMessage(ctx, next); err != nil {
		return change{}, storeErr(err, msgMessageNotFound, "")
	}
	updated, err := env.repo.GetMessage(ctx, m.MessageID)
	if err != nil {
		return change{}, storeErr(err, msgMessageNotFound, "")
	}
	return change{action: "UPDATE", resource: "Message", resourceID: old.ID, oldData: old, newData: updated, reply: updated}, nil
}

type DeleteMessage struct {
	MessageID string `json:"messageId" validate:"required"`
}

func (*DeleteMessage) Kind() Kind            { return KindDeleteMessage }
func (*DeleteMessage) Action() policy.Action { return policy.ActionManageMessages }

func (m *DeleteMessage) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetMessage(ctx, m.MessageID)
	if err != nil {
		return change{}, storeErr(err, msgMessageNotFound, "")
	}
	if err := env.repo.DeleteMessage(ctx, m.MessageID); err != nil {
		return change{}, storeErr(err, msgMessageNotFound, "")
	}
	return change{action: "DELETE", resource: "Message", resourceID: old.ID, oldData: old}, nil
}

// MarkMessageRead dismisses a message for the caller. Messages the caller cannot
// currently see are reported as missing.
type MarkMessageRead struct {
	MessageID string `json:"messageId" validate:"required"`
}

func (*MarkMessageRead) Kind() Kind            { return KindMarkMessageRead }
func (*MarkMessageRead) Action() policy.Action { return policy.ActionReadMessages }

func (m *MarkMessageRead) apply(ctx context.Context, env *mutationEnv) (change, error) {
	msg, err := env.repo.GetMessage(ctx, m.MessageID)
	if err != nil {
		return change{}, storeErr(err, msgMessageNotFound, "")
	}
	viewer := models.User{ID: env.actor.ID, Role: env.actor.Role}
	if !msg.VisibleTo(viewer, time.Now()) {
		return change{}, apperr.NotFound(msgMessageNotFound)
	}
	inserted, err := env.repo.MarkMessageRead(ctx, msg.ID, env.actor.ID)
	if err != nil {
		return change{}, storeErr(err, msgMessageNotFound, "")
	}
	reply := map[string]string{"messageId": msg.ID, "message": "Message marked as read"}
	if !inserted {
		return change{resourceID: msg.ID, reply: reply, noop: true}, nil
	}
	return change{
		action: "UPDATE", resource: "Message", resourceID: msg.ID,
		newData: map[string]string{"readBy": env.actor.ID},
		reply:   reply,
	}, nil
}
