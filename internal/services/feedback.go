package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
)

// Feedback. None of it is part of the live view, so every change is silent.

const (
	KindSubmitFeedback       Kind = "submit-feedback"
	KindUpdateFeedbackStatus Kind = "update-feedback-status"
	KindVoteFeedback         Kind = "vote-feedback"
	KindDeleteFeedback       Kind = "delete-feedback"
)

const (
	msgFeedbackNotFound = "Feedback not found"
	msgPrivateFeedback  = "Cannot vote on private feedback"
)

type SubmitFeedback struct {
	Type        string   `json:"type" validate:"required,oneof=suggestion bug_report feature_request cand_modification tag_change general"`
	Title       string   `json:"title" validate:"notblank,max=200"`
	Description string   `json:"description" validate:"notblank,max=2000"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=50"`
	// IsPublic defaults to true when omitted.
	IsPublic    *bool    `json:"isPublic"`
}

func (*SubmitFeedback) Kind() Kind            { return KindSubmitFeedback }
func (*SubmitFeedback) Action() policy.Action { return policy.ActionSubmitFeedback }

func (m *SubmitFeedback) apply(ctx context.Context, env *mutationEnv) (change, error) {
	f := models.Feedback{
		ID:          uuid.NewString(),
		UserID:      env.actor.ID,
		Username:    env.actor.Username,
		Type:        models.FeedbackType(m.Type),
		Title:       strings.TrimSpace(m.Title),
		Description: strings.TrimSpace(m.Description),
		Priority:    models.SeverityMedium,
		Status:      models.FeedbackPending,
		Tags:        m.Tags,
		IsPublic:    true,
	}
	if m.Priority != "" {
		f.Priority = models.Severity(m.Priority)
	}
	if m.IsPublic != nil {
		f.IsPublic = *m.IsPublic
	}
	created, err := env.repo.CreateFeedback(ctx, f)
	if err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	return change{action: "CREATE", resource: "Feedback", resourceID: created.ID, newData: created, reply: created, silent: true}, nil
}

type UpdateFeedbackStatus struct {
	FeedbackID    string `json:"feedbackId" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=pending in_progress resolved rejected"`
	AdminResponse string `json:"adminResponse" validate:"max=1000"`
}

func (*UpdateFeedbackStatus) Kind() Kind            { return KindUpdateFeedbackStatus }
func (*UpdateFeedbackStatus) Action() policy.Action { return policy.ActionReviewFeedback }

func (m *UpdateFeedbackStatus) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetFeedback(ctx, m.FeedbackID)
	if err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	status := models.FeedbackStatus(m.Status)
	if err := env.repo.SetFeedbackStatus(ctx, old.ID, status, strings.TrimSpace(m.AdminResponse), env.actor.ID); err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	updated, err := env.repo.GetFeedback(ctx, old.ID)
	if err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	return change{
		action: "UPDATE", resource: "Feedback", resourceID: old.ID,
		oldData: map[string]any{"status": old.Status, "adminResponse": old.AdminResponse},
		newData: map[string]any{"status": updated.Status, "adminResponse": updated.AdminResponse},
		reply:   updated,
		silent:  true,
	}, nil
}

// VoteFeedback casts, switches or withdraws the caller's vote on public feedback.
type VoteFeedback struct {
	FeedbackID string `json:"feedbackId" validate:"required"`
	Vote       string `json:"vote" validate:"required,oneof=upvote downvote none"`
}

func (*VoteFeedback) Kind() Kind            { return KindVoteFeedback }
func (*VoteFeedback) Action() policy.Action { return policy.ActionSubmitFeedback }

func (m *VoteFeedback) apply(ctx context.Context, env *mutationEnv) (change, error) {
	f, err := env.repo.GetFeedback(ctx, m.FeedbackID)
	if err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	// Private feedback is hidden from everyone but its author and reviewers.
	if !f.IsPublic {
		if f.UserID != env.actor.ID && !policy.Can(env.actor.Role, policy.ActionReviewFeedback) {
			return change{}, apperr.NotFound(msgFeedbackNotFound)
		}
		return change{}, apperr.InvalidOperation(msgPrivateFeedback)
	}

	vote := 0
	switch m.Vote {
	case "upvote":
		vote = 1
	case "downvote":
		vote = -1
	}
	if err := env.repo.VoteFeedback(ctx, f.ID, env.actor.ID, vote); err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	updated, err := env.repo.GetFeedback(ctx, f.ID)
	if err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	return change{
		action: "UPDATE", resource: "Feedback", resourceID: f.ID,
		newData: map[string]string{"vote": m.Vote, "userId": env.actor.ID},
		reply:   updated,
		silent:  true,
	}, nil
}

type DeleteFeedback struct {
	FeedbackID string `json:"feedbackId" validate:"required"`
}

func (*DeleteFeedback) Kind() Kind            { return KindDeleteFeedback }
func (*DeleteFeedback) Action() policy.Action { return policy.ActionManageFeedback }

func (m *DeleteFeedback) apply(ctx context.Context, env *mutationEnv) (change, error) {
	old, err := env.repo.GetFeedback(ctx, m.FeedbackID)
	if err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	if err := env.repo.DeleteFeedback(ctx, old.ID); err != nil {
		return change{}, storeErr(err, msgFeedbackNotFound, "")
	}
	return change{
		action: "DELETE", resource: "Feedback", resourceID: old.ID, oldData: old,
		reply:  map[string]string{"message": "Feedback deleted"},
		silent: true,
	}, nil
}
