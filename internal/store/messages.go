package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/isdelr/quickreply-be/internal/models"
)

var messageColumns = []string{
	"id", "title", "content", "author_id", "author_name", "target_users_json", "target_roles_json",
	"priority", "type", "is_active", "start_date", "end_date", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(r rowScanner) (models.Message, error) {
	var m models.Message
	var priority, typ string
	err := r.Scan(&m.ID, &m.Title, &m.Content, &m.AuthorID, &m.AuthorName, &m.TargetUsersJSON, &m.TargetRolesJSON,
		&priority, &typ, &m.IsActive, &m.StartDate, &m.EndDate, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return models.Message{}, err
	}
	m.Priority = models.MessagePriority(priority)
	m.Type = models.MessageType(typ)
	return m, nil
}

// queryMessages runs b and attaches read receipts to every returned message.
func (s *Store) queryMessages(ctx context.Context, q querier, b sq.SelectBuilder) ([]models.Message, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	index := map[string]int{}
	ids := []string{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		m.PrepareForAPI()
		index[m.ID] = len(messages)
		ids = append(ids, m.ID)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return messages, nil
	}

	query, args, err = psql.Select("message_id", "user_id", "read_at").From("message_reads").
		Where(sq.Eq{"message_id": ids}).OrderBy("read_at").ToSql()
	if err != nil {
		return nil, err
	}
	rrows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()

	for rrows.Next() {
		var messageID string
		var r models.MessageRead
		if err := rrows.Scan(&messageID, &r.UserID, &r.ReadAt); err != nil {
			return nil, err
		}
		if i, ok := index[messageID]; ok {
			messages[i].ReadBy = append(messages[i].ReadBy, r)
		}
	}
	return messages, rrows.Err()
}

// listActiveMessages returns messages that are switched on and have not ended, newest first.
func (s *Store) listActiveMessages(ctx context.Context, q querier) ([]models.Message, error) {
	return s.queryMessages(ctx, q, psql.Select(messageColumns...).From("messages").
		Where(sq.Eq{"is_active": true}).
		Where(sq.Gt{"end_date": s.now()}).
		OrderBy("created_at DESC", "rowid DESC"))
}

// ListMessages returns one page of all messages, newest first, and the total match count.
func (s *Store) ListMessages(ctx context.Context, f models.MessageFilter) ([]models.Message, int, error) {
	p := f.Paging.Normalized()
	where := sq.And{}
	if f.Type != "" {
		where = append(where, sq.Eq{"type": string(f.Type)})
	}
	if f.Priority != "" {
		where = append(where, sq.Eq{"priority": string(f.Priority)})
	}

	query, args, err := psql.Select("COUNT(*)").From("messages").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	messages, err := s.queryMessages(ctx, s.db, psql.Select(messageColumns...).From("messages").Where(where).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(p.Limit)).Offset(uint64(p.Offset())))
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// GetMessage returns a message with its read receipts.
func (s *Store) GetMessage(ctx context.Context, id string) (models.Message, error) {
	messages, err := s.queryMessages(ctx, s.db, psql.Select(messageColumns...).From("messages").Where(sq.Eq{"id": id}))
	if err != nil {
		return models.Message{}, err
	}
	if len(messages) == 0 {
		return models.Message{}, ErrNotFound
	}
	return messages[0], nil
}

// CreateMessage inserts m. A zero StartDate means now.
func (s *Store) CreateMessage(ctx context.Context, m models.Message) (models.Message, error) {
	now := s.now()
	if m.StartDate.IsZero() {
		m.StartDate = now
	}
	m.StartDate, m.EndDate = m.StartDate.UTC(), m.EndDate.UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	m.PrepareForSave()
	query, args, err := psql.Insert("messages").Columns(messageColumns...).Values(
		m.ID, m.Title, m.Content, m.AuthorID, m.AuthorName, m.TargetUsersJSON, m.TargetRolesJSON,
		string(m.Priority), string(m.Type), m.IsActive, m.StartDate, m.EndDate, m.CreatedAt, m.UpdatedAt,
	).ToSql()
	if err != nil {
		return models.Message{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return models.Message{}, mapErr(err)
	}
	m.ReadBy = []models.MessageRead{}
	return m, nil
}

// UpdateMessage overwrites the editable fields of m. Author, creation time and
// read receipts are kept.
func (s *Store) UpdateMessage(ctx context.Context, m models.Message) error {
	m.PrepareForSave()
	query, args, err := psql.Update("messages").SetMap(map[string]any{
		"title":             m.Title,
		"content":           m.Content,
		"target_users_json": m.TargetUsersJSON,
		"target_roles_json": m.TargetRolesJSON,
		"priority":          string(m.Priority),
		"type":              string(m.Type),
		"is_active":         m.IsActive,
		"end_date":          m.EndDate.UTC(),
		"updated_at":        s.now(),
	}).Where(sq.Eq{"id": m.ID}).ToSql()
	if err != nil {
		return err
	}
	return expectOne(s.db.ExecContext(ctx, query, args...))
}

// DeleteMessage removes a message and its read receipts.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id))
}

// MarkMessageRead records that userID read the message. It reports false when
// the receipt already existed.
func (s *Store) MarkMessageRead(ctx context.Context, messageID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO message_reads(message_id, user_id, read_at)
		 SELECT id, ?, ? FROM messages WHERE id = ?
		 ON CONFLICT(message_id, user_id) DO NOTHING`,
		userID, s.now(), messageID)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	// Nothing inserted: either the receipt exists or the message does not.
	var exists bool
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM messages WHERE id = ?", messageID).Scan(&exists)
	return false, mapErr(err)
}

// DeleteMessagesEndedBefore removes messages whose end date is at or before cutoff.
func (s *Store) DeleteMessagesEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Delete("messages").Where(sq.LtOrEq{"end_date": cutoff.UTC()}).ToSql()
	if err != nil {
		return 0, err
	}
	return s.execCount(ctx, query, args...)
}
