package models

import (
	"encoding/json"
	"slices"
	"time"
)

type MessagePriority string

const (
	PriorityLow    MessagePriority = "low"
	PriorityMedium MessagePriority = "medium"
	PriorityHigh   MessagePriority = "high"
	PriorityUrgent MessagePriority = "urgent"
)

// Rank orders priorities, most pressing highest.
func (p MessagePriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

type MessageType string

const (
	MessageAnnouncement MessageType = "announcement"
	MessageMaintenance  MessageType = "maintenance"
	MessageUpdate       MessageType = "update"
	MessageWarning      MessageType = "warning"
	MessageInfo         MessageType = "info"
)

// TargetAll in TargetRoles addresses every account.
const TargetAll = "all"

// MessageRead records when a recipient dismissed a message.
type MessageRead struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

// Message is an admin announcement shown to the users and roles it targets
// between StartDate and EndDate.
type Message struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	AuthorID    string          `json:"authorId"`
	AuthorName  string          `json:"authorName"`
	TargetUsers []string        `json:"targetUsers"`
	TargetRoles []string        `json:"targetRoles"`
	Priority    MessagePriority `json:"priority"`
	Type        MessageType     `json:"type"`
	IsActive    bool            `json:"isActive"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
	ReadBy      []MessageRead   `json:"readBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	// JSON string fields for DB storage
	TargetUsersJSON string `json:"-"`
	TargetRolesJSON string `json:"-"`
}

// PrepareForSave marshals the target lists for storage.
func (m *Message) PrepareForSave() {
	if m.TargetUsers == nil {
		m.TargetUsers = []string{}
	}
	if m.TargetRoles == nil {
		m.TargetRoles = []string{}
	}
	usersBytes, _ := json.Marshal(m.TargetUsers)
	m.TargetUsersJSON = string(usersBytes)
	rolesBytes, _ := json.Marshal(m.TargetRoles)
	m.TargetRolesJSON = string(rolesBytes)
}

// PrepareForAPI unmarshals the stored target lists.
func (m *Message) PrepareForAPI() {
	m.TargetUsers = []string{}
	m.TargetRoles = []string{}
	if m.TargetUsersJSON != "" {
		json.Unmarshal([]byte(m.TargetUsersJSON), &m.TargetUsers)
	}
	if m.TargetRolesJSON != "" {
		json.Unmarshal([]byte(m.TargetRolesJSON), &m.TargetRoles)
	}
	if m.ReadBy == nil {
		m.ReadBy = []MessageRead{}
	}
}

// Live reports whether m is active and inside its display window at now.
func (m Message) Live(now time.Time) bool {
	return m.IsActive && !now.Before(m.StartDate) && now.Before(m.EndDate)
}

// Targets reports whether m is addressed to u, by id or by role.
func (m Message) Targets(u User) bool {
	return slices.Contains(m.TargetUsers, u.ID) ||
		slices.Contains(m.TargetRoles, TargetAll) ||
		slices.Contains(m.TargetRoles, string(u.Role))
}

// VisibleTo reports whether u should see m at now.
func (m Message) VisibleTo(u User, now time.Time) bool {
	return m.Live(now) && m.Targets(u)
}

// ReadAt is when userID read m, or nil.
func (m Message) ReadAt(userID string) *time.Time {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			at := r.ReadAt
			return &at
		}
	}
	return nil
}

// Announcement is a message as one recipient sees it.
type Announcement struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	AuthorName string          `json:"authorName"`
	Priority   MessagePriority `json:"priority"`
	Type       MessageType     `json:"type"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	CreatedAt  time.Time       `json:"createdAt"`
	Read       bool            `json:"read"`
	ReadAt     *time.Time      `json:"readAt,omitempty"`
}

// For renders m for userID.
func (m Message) For(userID string) Announcement {
	readAt := m.ReadAt(userID)
	return Announcement{
		ID:         m.ID,
		Title:      m.Title,
		Content:    m.Content,
		AuthorName: m.AuthorName,
		Priority:   m.Priority,
		Type:       m.Type,
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		CreatedAt:  m.CreatedAt,
		Read:       readAt != nil,
		ReadAt:     readAt,
	}
}

// MessageFilter narrows the admin message listing. Zero values match everything.
type MessageFilter struct {
	Type     MessageType
	Priority MessagePriority
	Paging
}

// MessagePage is one page of the admin message listing.
type MessagePage struct {
	Messages    []Message `json:"messages"`
	Total       int       `json:"total"`
	CurrentPage int       `json:"currentPage"`
	TotalPages  int       `json:"totalPages"`
}
