package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/isdelr/quickreply-be/internal/models"
)

var feedbackColumns = []string{
	"id", "user_id", "username", "type", "title", "description", "priority", "status",
	"admin_response", "admin_id", "tags_json", "is_public", "created_at", "updated_at",
}

func scanFeedback(r rowScanner) (models.Feedback, error) {
	var f models.Feedback
	var typ, priority, status string
	err := r.Scan(&f.ID, &f.UserID, &f.Username, &typ, &f.Title, &f.Description, &priority, &status,
		&f.AdminResponse, &f.AdminID, &f.TagsJSON, &f.IsPublic, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return models.Feedback{}, err
	}
	f.Type = models.FeedbackType(typ)
	f.Priority = models.Severity(priority)
	f.Status = models.FeedbackStatus(status)
	return f, nil
}

// queryFeedback runs b and attaches votes to every returned item.
func (s *Store) queryFeedback(ctx context.Context, b sq.SelectBuilder) ([]models.Feedback, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Feedback{}
	index := map[string]int{}
	ids := []string{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		f.PrepareForAPI()
		index[f.ID] = len(items)
		ids = append(ids, f.ID)
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return items, nil
	}

	query, args, err = psql.Select("feedback_id", "user_id", "vote").From("feedback_votes").
		Where(sq.Eq{"feedback_id": ids}).OrderBy("rowid").ToSql()
	if err != nil {
		return nil, err
	}
	vrows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()

	for vrows.Next() {
		var feedbackID, userID string
		var vote int
		if err := vrows.Scan(&feedbackID, &userID, &vote); err != nil {
			return nil, err
		}
		i, ok := index[feedbackID]
		if !ok {
			continue
		}
		if vote > 0 {
			items[i].Upvotes = append(items[i].Upvotes, userID)
		} else {
			items[i].Downvotes = append(items[i].Downvotes, userID)
		}
	}
	return items, vrows.Err()
}

func feedbackWhere(f models.FeedbackFilter) sq.And {
	where := sq.And{}
	if f.Type != "" {
		where = append(where, sq.Eq{"type": string(f.Type)})
	}
	if f.Status != "" {
		where = append(where, sq.Eq{"status": string(f.Status)})
	}
	if f.UserID != "" {
		where = append(where, sq.Eq{"user_id": f.UserID})
	}
	if f.VisibleTo != "" {
		where = append(where, sq.Or{sq.Eq{"is_public": true}, sq.Eq{"user_id": f.VisibleTo}})
	}
	return where
}

// ListFeedback returns one page of feedback, newest first, and the total match count.
func (s *Store) ListFeedback(ctx context.Context, f models.FeedbackFilter) ([]models.Feedback, int, error) {
	p := f.Paging.Normalized()
	where := feedbackWhere(f)

	query, args, err := psql.Select("COUNT(*)").From("feedback").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	items, err := s.queryFeedback(ctx, psql.Select(feedbackColumns...).From("feedback").Where(where).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(p.Limit)).Offset(uint64(p.Offset())))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetFeedback returns one feedback item with its votes.
func (s *Store) GetFeedback(ctx context.Context, id string) (models.Feedback, error) {
	items, err := s.queryFeedback(ctx, psql.Select(feedbackColumns...).From("feedback").Where(sq.Eq{"id": id}))
	if err != nil {
		return models.Feedback{}, err
	}
	if len(items) == 0 {
		return models.Feedback{}, ErrNotFound
	}
	return items[0], nil
}

// CreateFeedback inserts f.
func (s *Store) CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	now := s.now()
	f.CreatedAt, f.UpdatedAt = now, now
	f.PrepareForSave()
	query, args, err := psql.Insert("feedback").Columns(feedbackColumns...).Values(
		f.ID, f.UserID, f.Username, string(f.Type), f.Title, f.Description, string(f.Priority), string(f.Status),
		f.AdminResponse, f.AdminID, f.TagsJSON, f.IsPublic, f.CreatedAt, f.UpdatedAt,
	).ToSql()
	if err != nil {
		return models.Feedback{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return models.Feedback{}, mapErr(err)
	}
	f.Upvotes, f.Downvotes = []string{}, []string{}
	return f, nil
}

// SetFeedbackStatus records a review. An empty response keeps the previous one.
func (s *Store) SetFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus, response, adminID string) error {
	b := psql.Update("feedback").
		Set("status", string(status)).
		Set("admin_id", adminID).
		Set("updated_at", s.now()).
		Where(sq.Eq{"id": id})
	if response != "" {
		b = b.Set("admin_response", response)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return expectOne(s.db.ExecContext(ctx, query, args...))
}

// VoteFeedback sets userID's vote: positive for up, negative for down, zero to withdraw.
func (s *Store) VoteFeedback(ctx context.Context, feedbackID, userID string, vote int) error {
	if vote == 0 {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM feedback_votes WHERE feedback_id = ? AND user_id = ?", feedbackID, userID)
		return mapErr(err)
	}
	if vote > 0 {
		vote = 1
	} else {
		vote = -1
	}
	return expectOne(s.db.ExecContext(ctx,
		`INSERT INTO feedback_votes(feedback_id, user_id, vote)
		 SELECT id, ?, ? FROM feedback WHERE id = ?
		 ON CONFLICT(feedback_id, user_id) DO UPDATE SET vote = excluded.vote`,
		userID, vote, feedbackID))
}

// DeleteFeedback removes a feedback item and its votes.
func (s *Store) DeleteFeedback(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, "DELETE FROM feedback WHERE id = ?", id))
}
