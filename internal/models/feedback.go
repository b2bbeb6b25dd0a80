package models

import (
	"encoding/json"
	"time"
)

type FeedbackType string

const (
	FeedbackSuggestion       FeedbackType = "suggestion"
	FeedbackBugReport        FeedbackType = "bug_report"
	FeedbackFeatureRequest   FeedbackType = "feature_request"
	FeedbackCandModification FeedbackType = "cand_modification"
	FeedbackTagChange        FeedbackType = "tag_change"
	FeedbackGeneral          FeedbackType = "general"
)

type FeedbackStatus string

const (
	FeedbackPending    FeedbackStatus = "pending"
	FeedbackInProgress FeedbackStatus = "in_progress"
	FeedbackResolved   FeedbackStatus = "resolved"
	FeedbackRejected   FeedbackStatus = "rejected"
)

// Feedback is a suggestion or report submitted by a team member.
// Upvotes and Downvotes hold voter ids; a voter appears in at most one of them.
type Feedback struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	Username      string         `json:"username"`
	Type          FeedbackType   `json:"type"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Priority      Severity       `json:"priority"`
	Status        FeedbackStatus `json:"status"`
	AdminResponse string         `json:"adminResponse,omitempty"`
	AdminID       string         `json:"adminId,omitempty"`
	Tags          []string       `json:"tags"`
	IsPublic      bool           `json:"isPublic"`
	Upvotes       []string       `json:"upvotes"`
	Downvotes     []string       `json:"downvotes"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	// JSON string field for DB storage
	TagsJSON string `json:"-"`
}

// PrepareForSave marshals Tags into TagsJSON for storage.
func (f *Feedback) PrepareForSave() {
	if f.Tags == nil {
		f.Tags = []string{}
	}
	tagsBytes, _ := json.Marshal(f.Tags)
	f.TagsJSON = string(tagsBytes)
}

// PrepareForAPI unmarshals TagsJSON into Tags.
func (f *Feedback) PrepareForAPI() {
	f.Tags = []string{}
	if f.TagsJSON != "" {
		json.Unmarshal([]byte(f.TagsJSON), &f.Tags)
	}
	if f.Upvotes == nil {
		f.Upvotes = []string{}
	}
	if f.Downvotes == nil {
		f.Downvotes = []string{}
	}
}

// FeedbackFilter narrows feedback listings. Zero values match everything.
type FeedbackFilter struct {
	Type      FeedbackType
	Status    FeedbackStatus
	// UserID keeps only feedback submitted by this user.
	UserID    string
	// VisibleTo keeps public feedback plus feedback submitted by this user.
	VisibleTo string
	Paging
}

// FeedbackPage is one page of a feedback listing.
type FeedbackPage struct {
	Feedback    []Feedback `json:"feedback"`
	Total       int        `json:"total"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
}
