package store

import (
	"context"
	"database/sql"

	"github.com/isdelr/quickreply-be/internal/models"
)

// ListCategories returns every category with its templates in position order.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.listCategories(ctx, s.db)
}

func (s *Store) listCategories(ctx context.Context, q querier) ([]models.Category, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, title, created_at FROM categories ORDER BY position, created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	index := map[string]int{}
	for rows.Next() {
		c := models.Category{Templates: []models.Template{}}
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			return nil, err
		}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trows, err := q.QueryContext(ctx, "SELECT category_id, id, text, tags_json FROM templates ORDER BY category_id, position")
	if err != nil {
		return nil, err
	}
	defer trows.Close()

	for trows.Next() {
		var categoryID string
		var t models.Template
		if err := trows.Scan(&categoryID, &t.ID, &t.Text, &t.TagsJSON); err != nil {
			return nil, err
		}
		t.PrepareForAPI()
		if i, ok := index[categoryID]; ok {
			categories[i].Templates = append(categories[i].Templates, t)
		}
	}
	return categories, trows.Err()
}

// GetCategory returns one category with its templates.
func (s *Store) GetCategory(ctx context.Context, id string) (models.Category, error) {
	c := models.Category{Templates: []models.Template{}}
	err := s.db.QueryRowContext(ctx, "SELECT id, title, created_at FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.Title, &c.CreatedAt)
	if err != nil {
		return models.Category{}, mapErr(err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, text, tags_json FROM templates WHERE category_id = ? ORDER BY position", id)
	if err != nil {
		return models.Category{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.Text, &t.TagsJSON); err != nil {
			return models.Category{}, err
		}
		t.PrepareForAPI()
		c.Templates = append(c.Templates, t)
	}
	return c, rows.Err()
}

// CreateCategory appends a category. A taken title yields ErrDuplicate.
func (s *Store) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	return s.createCategory(ctx, s.db, c)
}

func (s *Store) createCategory(ctx context.Context, q querier, c models.Category) (models.Category, error) {
	c.CreatedAt = s.now()
	_, err := q.ExecContext(ctx,
		`INSERT INTO categories(id, title, position, created_at)
		 VALUES(?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM categories), ?)`,
		c.ID, c.Title, c.CreatedAt)
	if err != nil {
		return models.Category{}, mapErr(err)
	}
	if c.Templates == nil {
		c.Templates = []models.Template{}
	}
	for _, t := range c.Templates {
		if err := s.pushTemplate(ctx, q, c.ID, t); err != nil {
			return models.Category{}, err
		}
	}
	return c, nil
}

// RenameCategory sets a category title.
func (s *Store) RenameCategory(ctx context.Context, id, title string) error {
	return expectOne(s.db.ExecContext(ctx, "UPDATE categories SET title = ? WHERE id = ?", title, id))
}

// DeleteCategory removes a category; its templates go with it in the same statement.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id))
}

// GetTemplate returns a template by parent and child id.
func (s *Store) GetTemplate(ctx context.Context, categoryID, templateID string) (models.Template, error) {
	var t models.Template
	err := s.db.QueryRowContext(ctx,
		"SELECT id, text, tags_json FROM templates WHERE category_id = ? AND id = ?", categoryID, templateID).
		Scan(&t.ID, &t.Text, &t.TagsJSON)
	if err != nil {
		return models.Template{}, mapErr(err)
	}
	t.PrepareForAPI()
	return t, nil
}

// PushTemplate appends a template to a category. A missing category yields ErrNotFound.
func (s *Store) PushTemplate(ctx context.Context, categoryID string, t models.Template) error {
	return s.pushTemplate(ctx, s.db, categoryID, t)
}

func (s *Store) pushTemplate(ctx context.Context, q querier, categoryID string, t models.Template) error {
	t.PrepareForSave()
	return expectOne(q.ExecContext(ctx,
		`INSERT INTO templates(id, category_id, text, tags_json, position)
		 SELECT ?, c.id, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM templates WHERE category_id = c.id)
		 FROM categories c WHERE c.id = ?`,
		t.ID, t.Text, t.TagsJSON, categoryID))
}

// SetTemplate replaces the text and tags of the template matching both ids.
func (s *Store) SetTemplate(ctx context.Context, categoryID string, t models.Template) error {
	t.PrepareForSave()
	return expectOne(s.db.ExecContext(ctx,
		"UPDATE templates SET text = ?, tags_json = ? WHERE category_id = ? AND id = ?",
		t.Text, t.TagsJSON, categoryID, t.ID))
}

// PullTemplate removes the template matching both ids.
func (s *Store) PullTemplate(ctx context.Context, categoryID, templateID string) error {
	return expectOne(s.db.ExecContext(ctx,
		"DELETE FROM templates WHERE category_id = ? AND id = ?", categoryID, templateID))
}

// ReplaceCategories swaps the whole catalog in one transaction.
func (s *Store) ReplaceCategories(ctx context.Context, categories []models.Category) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM categories"); err != nil {
			return err
		}
		for _, c := range categories {
			if _, err := s.createCategory(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}
