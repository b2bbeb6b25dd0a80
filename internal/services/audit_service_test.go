package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecorderFlushAndList(t *testing.T) {
	st := newStore(t)
	a := NewAuditRecorder(st, 16)
	defer a.Close()

	actor := &policy.Actor{ID: "u1", Username: "ursula"}
	a.Warning("first", actor, RequestMeta{IP: "10.0.0.1", UserAgent: "test"})
	a.Failure("second", errors.New("boom"), nil, RequestMeta{})

	entries, err := a.List(context.Background(), models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	warn := entries[1]
	assert.Equal(t, models.LevelWarn, warn.Level)
	assert.Equal(t, "u1", warn.UserID)
	assert.Equal(t, "ursula", warn.Username)
	assert.Equal(t, "10.0.0.1", warn.IP)
	assert.NotEmpty(t, warn.ID)

	failure := entries[0]
	assert.Equal(t, models.LevelError, failure.Level)
	assert.Equal(t, "Error: boom", failure.Description)
}

func TestDatabaseChangeRedactsPasswords(t *testing.T) {
	st := newStore(t)
	a := NewAuditRecorder(st, 16)
	defer a.Close()

	a.DatabaseChange("UPDATE", "User", "u1",
		map[string]any{"password": "old-secret", "role": "user"},
		map[string]any{"nested": map[string]any{"newPassword": "new-secret"}, "items": []any{map[string]any{"Password": "x"}}},
		nil, RequestMeta{})

	entries, err := a.List(context.Background(), models.LogFilter{Level: models.LevelDatabase})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "UPDATE operation on User", e.Message)
	assert.Equal(t, "Database UPDATE: User (ID: u1)", e.Description)
	assert.JSONEq(t, `{"password":"***","role":"user"}`, string(e.OldData))
	assert.JSONEq(t, `{"nested":{"newPassword":"***"},"items":[{"Password":"***"}]}`, string(e.NewData))
}

func TestPrune(t *testing.T) {
	st := newStore(t)
	a := NewAuditRecorder(st, 64)
	defer a.Close()
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		a.Record(models.LogEntry{Level: models.LevelInfo, Message: "old", CreatedAt: now.Add(-48 * time.Hour).Add(time.Duration(i) * time.Minute)})
	}
	for i := 0; i < 5; i++ {
		a.Record(models.LogEntry{Level: models.LevelInfo, Message: "recent", CreatedAt: now.Add(-time.Duration(5-i) * time.Minute)})
	}

	res, err := a.Prune(ctx, 24*time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Expired)
	assert.Equal(t, int64(3), res.Excess)
	assert.Equal(t, int64(6), res.Total())

	entries, err := a.List(ctx, models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "recent", e.Message)
	}
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))

	again, err := a.Prune(ctx, 24*time.Hour, 2)
	require.NoError(t, err)
	assert.Zero(t, again.Total())
}

func TestPruneSkipsDisabledBounds(t *testing.T) {
	st := newStore(t)
	a := NewAuditRecorder(st, 16)
	defer a.Close()

	a.Record(models.LogEntry{Level: models.LevelInfo, Message: "ancient", CreatedAt: time.Now().UTC().AddDate(-1, 0, 0)})
	res, err := a.Prune(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, res.Total())

	entries, err := a.List(context.Background(), models.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	st := newStore(t)
	a := NewAuditRecorder(st, 4)
	a.Record(models.LogEntry{Level: models.LevelInfo, Message: "kept"})
	a.Close()

	a.Record(models.LogEntry{Level: models.LevelInfo, Message: "dropped"})
	require.NoError(t, a.Flush(context.Background()))

	n, err := st.CountLogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
