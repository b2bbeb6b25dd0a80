package store

import (
	"context"

	"github.com/isdelr/quickreply-be/internal/models"
)

// Every private note statement is scoped by owner, so another user's ids behave as missing.

// ListPNCategories returns all private note categories with their notes.
func (s *Store) ListPNCategories(ctx context.Context) ([]models.PNCategory, error) {
	return s.listPNCategories(ctx, s.db)
}

func (s *Store) listPNCategories(ctx context.Context, q querier) ([]models.PNCategory, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, title, owner_id, created_at FROM pn_categories ORDER BY owner_id, created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.PNCategory{}
	index := map[string]int{}
	for rows.Next() {
		c := models.PNCategory{Notes: []models.Note{}}
		if err := rows.Scan(&c.ID, &c.Title, &c.OwnerID, &c.CreatedAt); err != nil {
			return nil, err
		}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nrows, err := q.QueryContext(ctx, "SELECT category_id, id, title, content FROM notes ORDER BY category_id, position")
	if err != nil {
		return nil, err
	}
	defer nrows.Close()

	for nrows.Next() {
		var categoryID string
		var n models.Note
		if err := nrows.Scan(&categoryID, &n.ID, &n.Title, &n.Content); err != nil {
			return nil, err
		}
		if i, ok := index[categoryID]; ok {
			categories[i].Notes = append(categories[i].Notes, n)
		}
	}
	return categories, nrows.Err()
}

// GetPNCategory returns an owned private note category without its notes.
func (s *Store) GetPNCategory(ctx context.Context, ownerID, id string) (models.PNCategory, error) {
	c := models.PNCategory{Notes: []models.Note{}}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, owner_id, created_at FROM pn_categories WHERE id = ? AND owner_id = ?", id, ownerID).
		Scan(&c.ID, &c.Title, &c.OwnerID, &c.CreatedAt)
	if err != nil {
		return models.PNCategory{}, mapErr(err)
	}
	return c, nil
}

// CreatePNCategory inserts a private note category for c.OwnerID.
func (s *Store) CreatePNCategory(ctx context.Context, c models.PNCategory) (models.PNCategory, error) {
	c.CreatedAt = s.now()
	c.Notes = []models.Note{}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO pn_categories(id, title, owner_id, created_at) VALUES(?, ?, ?, ?)",
		c.ID, c.Title, c.OwnerID, c.CreatedAt)
	if err != nil {
		return models.PNCategory{}, mapErr(err)
	}
	return c, nil
}

// RenamePNCategory sets the title of an owned category.
func (s *Store) RenamePNCategory(ctx context.Context, ownerID, id, title string) error {
	return expectOne(s.db.ExecContext(ctx,
		"UPDATE pn_categories SET title = ? WHERE id = ? AND owner_id = ?", title, id, ownerID))
}

// DeletePNCategory removes an owned category and its notes.
func (s *Store) DeletePNCategory(ctx context.Context, ownerID, id string) error {
	return expectOne(s.db.ExecContext(ctx,
		"DELETE FROM pn_categories WHERE id = ? AND owner_id = ?", id, ownerID))
}

// GetNote returns an owned note by parent and child id.
func (s *Store) GetNote(ctx context.Context, ownerID, categoryID, noteID string) (models.Note, error) {
	var n models.Note
	err := s.db.QueryRowContext(ctx,
		`SELECT n.id, n.title, n.content FROM notes n
		 JOIN pn_categories c ON c.id = n.category_id
		 WHERE n.category_id = ? AND n.id = ? AND c.owner_id = ?`,
		categoryID, noteID, ownerID).Scan(&n.ID, &n.Title, &n.Content)
	if err != nil {
		return models.Note{}, mapErr(err)
	}
	return n, nil
}

// PushNote appends a note to an owned category.
func (s *Store) PushNote(ctx context.Context, ownerID, categoryID string, n models.Note) error {
	return expectOne(s.db.ExecContext(ctx,
		`INSERT INTO notes(id, category_id, title, content, position)
		 SELECT ?, c.id, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM notes WHERE category_id = c.id)
		 FROM pn_categories c WHERE c.id = ? AND c.owner_id = ?`,
		n.ID, n.Title, n.Content, categoryID, ownerID))
}

// SetNote replaces the title and content of the owned note matching both ids.
func (s *Store) SetNote(ctx context.Context, ownerID, categoryID string, n models.Note) error {
	return expectOne(s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?
		 WHERE category_id = ? AND id = ?
		   AND EXISTS (SELECT 1 FROM pn_categories WHERE id = ? AND owner_id = ?)`,
		n.Title, n.Content, categoryID, n.ID, categoryID, ownerID))
}

// PullNote removes the owned note matching both ids.
func (s *Store) PullNote(ctx context.Context, ownerID, categoryID, noteID string) error {
	return expectOne(s.db.ExecContext(ctx,
		`DELETE FROM notes
		 WHERE category_id = ? AND id = ?
		   AND EXISTS (SELECT 1 FROM pn_categories WHERE id = ? AND owner_id = ?)`,
		categoryID, noteID, categoryID, ownerID))
}
