package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/quickreply-be/internal/database"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func mustUser(t *testing.T, s *Store, username string, role policy.Role) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{
		ID: uuid.NewString(), Username: username, PasswordHash: "hash", Role: role,
	})
	require.NoError(t, err)
	return u
}

func mustCategory(t *testing.T, s *Store, title string) models.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), models.Category{ID: uuid.NewString(), Title: title})
	require.NoError(t, err)
	return c
}

func TestUsernamesAreCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "  Alice ", policy.RoleUser)
	assert.Equal(t, "alice", u.Username)

	_, err := s.CreateUser(ctx, models.User{ID: uuid.NewString(), Username: "ALICE", PasswordHash: "x", Role: policy.RoleUser})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetUserByUsername(ctx, "aLiCe")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
}

func TestCreateUsersSkipExisting(t *testing.T) {
	s := newTestStore(t)
	mustUser(t, s, "bob", policy.RoleUser)

	created, err := s.CreateUsersSkipExisting(context.Background(), []models.User{
		{ID: uuid.NewString(), Username: "Bob", PasswordHash: "x", Role: policy.RoleUser},
		{ID: uuid.NewString(), Username: "carol", PasswordHash: "x", Role: policy.RoleUser},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "carol", created[0].Username)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCountAdminsExcludesTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a1 := mustUser(t, s, "a1", policy.RoleAdmin)
	mustUser(t, s, "a2", policy.RoleAdmin)
	mustUser(t, s, "u1", policy.RoleUser)

	n, err := s.CountAdmins(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountAdmins(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserUpdatesAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "dave", policy.RoleUser)

	require.NoError(t, s.UpdateUser(ctx, u.ID, UserUpdate{Role: policy.RoleEditor}))
	require.NoError(t, s.UpdateUser(ctx, u.ID, UserUpdate{PasswordHash: "newhash"}))
	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.RoleEditor, got.Role)
	assert.Equal(t, "newhash", got.PasswordHash)

	_, err = s.CreatePNCategory(ctx, models.PNCategory{ID: uuid.NewString(), Title: "mine", OwnerID: u.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateUser(ctx, u.ID, UserUpdate{Role: policy.RoleUser}), ErrNotFound)

	pn, err := s.ListPNCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, pn)
}

func TestTemplateSubDocumentOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Delays")
	other := mustCategory(t, s, "Other")

	t1 := models.Template{ID: "t1", Text: "first", Tags: []string{"a"}}
	t2 := models.Template{ID: "t2", Text: "second"}
	require.NoError(t, s.PushTemplate(ctx, c.ID, t1))
	require.NoError(t, s.PushTemplate(ctx, c.ID, t2))
	// Child ids are scoped to their parent.
	require.NoError(t, s.PushTemplate(ctx, other.ID, t1))

	assert.ErrorIs(t, s.PushTemplate(ctx, "missing", t1), ErrNotFound)

	got, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Templates, 2)
	assert.Equal(t, "first", got.Templates[0].Text)
	assert.Equal(t, []string{"a"}, got.Templates[0].Tags)
	assert.Equal(t, []string{}, got.Templates[1].Tags)

	require.NoError(t, s.SetTemplate(ctx, c.ID, models.Template{ID: "t1", Text: "edited", Tags: []string{"b"}}))
	assert.ErrorIs(t, s.SetTemplate(ctx, c.ID, models.Template{ID: "nope", Text: "x"}), ErrNotFound)

	tmpl, err := s.GetTemplate(ctx, c.ID, "t1")
	require.NoError(t, err)
	assert.Equal(t, "edited", tmpl.Text)

	untouched, err := s.GetTemplate(ctx, other.ID, "t1")
	require.NoError(t, err)
	assert.Equal(t, "first", untouched.Text)

	require.NoError(t, s.PullTemplate(ctx, c.ID, "t2"))
	assert.ErrorIs(t, s.PullTemplate(ctx, c.ID, "t2"), ErrNotFound)
}

func TestConcurrentTemplateWritesKeepEveryUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Shared")

	const writers = 16
	ids := make([]string, writers)
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.PushTemplate(ctx, c.ID, models.Template{ID: ids[i], Text: fmt.Sprintf("text %d", i)}))
		}(i)
	}
	wg.Wait()

	rows, err := s.DB().QueryContext(ctx, "SELECT id, position FROM templates WHERE category_id = ?", c.ID)
	require.NoError(t, err)
	positions := map[int]string{}
	for rows.Next() {
		var id string
		var pos int
		require.NoError(t, rows.Scan(&id, &pos))
		_, taken := positions[pos]
		assert.False(t, taken, "position %d assigned twice", pos)
		positions[pos] = id
	}
	require.NoError(t, rows.Err())
	rows.Close()
	assert.Len(t, positions, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SetTemplate(ctx, c.ID, models.Template{ID: ids[i], Text: fmt.Sprintf("edited %d", i), Tags: []string{"edit"}}))
		}(i)
	}
	wg.Wait()

	got, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Templates, writers)
	texts := map[string]string{}
	for _, tmpl := range got.Templates {
		texts[tmpl.ID] = tmpl.Text
		assert.Equal(t, []string{"edit"}, tmpl.Tags)
	}
	for i, id := range ids {
		assert.Equal(t, fmt.Sprintf("edited %d", i), texts[id])
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Gone")
	require.NoError(t, s.PushTemplate(ctx, c.ID, models.Template{ID: "t1", Text: "x"}))

	require.NoError(t, s.DeleteCategory(ctx, c.ID))

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM templates").Scan(&n))
	assert.Zero(t, n)
	assert.ErrorIs(t, s.DeleteCategory(ctx, c.ID), ErrNotFound)
}

func TestCategoryTitleIsUnique(t *testing.T) {
	s := newTestStore(t)
	mustCategory(t, s, "Same")

	_, err := s.CreateCategory(context.Background(), models.Category{ID: uuid.NewString(), Title: "Same"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestReplaceCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCategory(t, s, "Old")

	err := s.ReplaceCategories(ctx, []models.Category{
		{ID: "n1", Title: "New one", Templates: []models.Template{{ID: "t1", Text: "hello", Tags: []string{"x"}}}},
		{ID: "n2", Title: "New two"},
	})
	require.NoError(t, err)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "New one", cats[0].Title)
	assert.Len(t, cats[0].Templates, 1)
	assert.Equal(t, "New two", cats[1].Title)
	assert.Empty(t, cats[1].Templates)
}

func TestReplaceCategoriesRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCategory(t, s, "Keep")

	err := s.ReplaceCategories(ctx, []models.Category{
		{ID: "d1", Title: "Dup"},
		{ID: "d2", Title: "Dup"},
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Keep", cats[0].Title)
}

func TestNotesAreScopedByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice", policy.RoleUser)
	bob := mustUser(t, s, "bob", policy.RoleUser)

	pc, err := s.CreatePNCategory(ctx, models.PNCategory{ID: uuid.NewString(), Title: "Personal", OwnerID: alice.ID})
	require.NoError(t, err)

	note := models.Note{ID: "n1", Title: "todo", Content: "buy milk"}
	require.NoError(t, s.PushNote(ctx, alice.ID, pc.ID, note))

	assert.ErrorIs(t, s.PushNote(ctx, bob.ID, pc.ID, models.Note{ID: "n2", Title: "x"}), ErrNotFound)
	assert.ErrorIs(t, s.SetNote(ctx, bob.ID, pc.ID, models.Note{ID: "n1", Title: "hacked"}), ErrNotFound)
	assert.ErrorIs(t, s.PullNote(ctx, bob.ID, pc.ID, "n1"), ErrNotFound)
	assert.ErrorIs(t, s.RenamePNCategory(ctx, bob.ID, pc.ID, "mine now"), ErrNotFound)
	assert.ErrorIs(t, s.DeletePNCategory(ctx, bob.ID, pc.ID), ErrNotFound)
	_, err = s.GetNote(ctx, bob.ID, pc.ID, "n1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetNote(ctx, alice.ID, pc.ID, models.Note{ID: "n1", Title: "todo", Content: "buy bread"}))
	got, err := s.GetNote(ctx, alice.ID, pc.ID, "n1")
	require.NoError(t, err)
	assert.Equal(t, "buy bread", got.Content)

	require.NoError(t, s.PullNote(ctx, alice.ID, pc.ID, "n1"))
	require.NoError(t, s.DeletePNCategory(ctx, alice.ID, pc.ID))
}

func TestLogsListAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		level := models.LevelInfo
		if i%2 == 0 {
			level = models.LevelDatabase
		}
		require.NoError(t, s.InsertLog(ctx, models.LogEntry{
			ID: uuid.NewString(), Level: level, Message: "entry", Severity: models.SeverityLow,
			NewData:   []byte(`{"title":"x"}`),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := s.ListLogs(ctx, models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.True(t, all[0].CreatedAt.After(all[4].CreatedAt))
	assert.JSONEq(t, `{"title":"x"}`, string(all[0].NewData))

	db, err := s.ListLogs(ctx, models.LogFilter{Level: models.LevelDatabase, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, db, 2)

	n, err := s.DeleteLogsBefore(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.DeleteLogsBeyond(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	remaining, err := s.ListLogs(ctx, models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, base.Add(4*time.Hour), remaining[0].CreatedAt.UTC())

	n, err = s.DeleteLogsBeyond(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "erin", policy.RoleAdmin)
	c := mustCategory(t, s, "Greetings")
	require.NoError(t, s.PushTemplate(ctx, c.ID, models.Template{ID: "t1", Text: "hi"}))
	_, err := s.CreatePNCategory(ctx, models.PNCategory{ID: "p1", Title: "p", OwnerID: u.ID})
	require.NoError(t, err)

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Users, 1)
	require.Len(t, snap.Categories, 1)
	assert.Len(t, snap.Categories[0].Templates, 1)
	require.Len(t, snap.PNCategories, 1)
	assert.Equal(t, u.ID, snap.PNCategories[0].OwnerID)
}
