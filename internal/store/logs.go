package store

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/isdelr/quickreply-be/internal/models"
)

// DefaultLogLimit applies when a LogFilter has no limit.
const DefaultLogLimit = 100

var logColumns = []string{
	"id", "level", "message", "description", "severity", "action", "resource", "resource_id",
	"old_data", "new_data", "user_id", "username", "ip", "user_agent", "response_time_ms",
	"status_code", "created_at", "updated_at",
}

func nullJSON(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// InsertLog appends an audit entry.
func (s *Store) InsertLog(ctx context.Context, e models.LogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	query, args, err := psql.Insert("logs").Columns(logColumns...).Values(
		e.ID, string(e.Level), e.Message, e.Description, string(e.Severity), e.Action, e.Resource, e.ResourceID,
		nullJSON(e.OldData), nullJSON(e.NewData), e.UserID, e.Username, e.IP, e.UserAgent, e.ResponseTimeMs,
		e.StatusCode, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return mapErr(err)
}

// ListLogs returns entries newest first.
func (s *Store) ListLogs(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	b := psql.Select(logColumns...).From("logs").OrderBy("created_at DESC", "rowid DESC").Limit(uint64(limit))
	if f.Level != "" {
		b = b.Where(sq.Eq{"level": string(f.Level)})
	}
	if f.Severity != "" {
		b = b.Where(sq.Eq{"severity": string(f.Severity)})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		var level, severity string
		var oldData, newData sql.NullString
		if err := rows.Scan(&e.ID, &level, &e.Message, &e.Description, &severity, &e.Action, &e.Resource,
			&e.ResourceID, &oldData, &newData, &e.UserID, &e.Username, &e.IP, &e.UserAgent, &e.ResponseTimeMs,
			&e.StatusCode, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Level = models.LogLevel(level)
		e.Severity = models.Severity(severity)
		if oldData.Valid {
			e.OldData = []byte(oldData.String)
		}
		if newData.Valid {
			e.NewData = []byte(newData.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountLogs returns the number of stored entries.
func (s *Store) CountLogs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs").Scan(&n)
	return n, err
}

// DeleteLogsBefore removes entries created before cutoff.
func (s *Store) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Delete("logs").Where(sq.Lt{"created_at": cutoff.UTC()}).ToSql()
	if err != nil {
		return 0, err
	}
	return s.execCount(ctx, query, args...)
}

// DeleteLogsBeyond keeps the newest keep entries and removes the rest.
func (s *Store) DeleteLogsBeyond(ctx context.Context, keep int) (int64, error) {
	query, args, err := psql.Delete("logs").
		Where(sq.Expr("rowid NOT IN (SELECT rowid FROM logs ORDER BY created_at DESC, rowid DESC LIMIT ?)", keep)).
		ToSql()
	if err != nil {
		return 0, err
	}
	return s.execCount(ctx, query, args...)
}

func (s *Store) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
