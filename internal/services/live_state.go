package services

import (
	"cmp"
	"slices"
	"sync/atomic"
	"time"

	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/isdelr/quickreply-be/internal/websocket"
)

// LiveState holds the current aggregate snapshot. Only the Coordinator replaces it;
// readers get an immutable *models.Snapshot.
type LiveState struct {
	current atomic.Pointer[models.Snapshot]
}

// NewLiveState creates a state holding an empty snapshot.
func NewLiveState() *LiveState {
	l := &LiveState{}
	l.current.Store(&models.Snapshot{
		Users:        []models.User{},
		Categories:   []models.Category{},
		PNCategories: []models.PNCategory{},
		Messages:     []models.Message{},
	})
	return l
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (l *LiveState) Snapshot() *models.Snapshot {
	return l.current.Load()
}

// replace installs snap with the next version number and returns it.
func (l *LiveState) replace(snap models.Snapshot) *models.Snapshot {
	snap.Version = l.current.Load().Version + 1
	users := make([]models.User, len(snap.Users))
	for i, u := range snap.Users {
		users[i] = u.Sanitized()
	}
	snap.Users = users
	l.current.Store(&snap)
	return &snap
}

// ViewFor derives what userID may see from the current snapshot.
func (l *LiveState) ViewFor(userID string) models.View {
	return ViewOf(l.Snapshot(), userID)
}

// InitialMessage renders the first socket message for a viewer and the version it reflects.
func (l *LiveState) InitialMessage(userID string) ([]byte, uint64) {
	snap := l.Snapshot()
	return websocket.NewMessage(websocket.TypeInitialData, ViewOf(snap, userID)), snap.Version
}

// ViewOf derives what userID may see from snap. Unknown or empty ids get an empty view.
func ViewOf(snap *models.Snapshot, userID string) models.View {
	return viewAt(snap, userID, time.Now())
}

// viewAt is ViewOf with message windows checked against now.
func viewAt(snap *models.Snapshot, userID string, now time.Time) models.View {
	if snap == nil || userID == "" {
		return models.EmptyView()
	}

	var me *models.User
	for i := range snap.Users {
		if snap.Users[i].ID == userID {
			u := snap.Users[i]
			me = &u
			break
		}
	}
	if me == nil {
		return models.EmptyView()
	}

	view := models.View{
		Me:           me,
		Users:        []models.User{},
		Categories:   snap.Categories,
		PNCategories: []models.PNCategory{},
		Messages:     announcementsFor(snap.Messages, *me, now),
	}
	if me.Role == policy.RoleAdmin {
		view.Users = snap.Users
	}
	for _, pc := range snap.PNCategories {
		if pc.OwnerID == me.ID {
			view.PNCategories = append(view.PNCategories, pc)
		}
	}
	return view
}

// announcementsFor renders the messages u may see at now, most pressing first
// and newest first within a priority.
func announcementsFor(messages []models.Message, u models.User, now time.Time) []models.Announcement {
	out := []models.Announcement{}
	for _, m := range messages {
		if m.VisibleTo(u, now) {
			out = append(out, m.For(u.ID))
		}
	}
	slices.SortStableFunc(out, func(a, b models.Announcement) int {
		if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
