package store

import (
	"context"
	"database/sql"

	"github.com/isdelr/quickreply-be/internal/models"
)

// LoadSnapshot reads users, categories, private notes and active messages from one transaction,
// so the result reflects a single committed state.
func (s *Store) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if snap.Users, err = s.listUsers(ctx, tx); err != nil {
			return err
		}
		if snap.Categories, err = s.listCategories(ctx, tx); err != nil {
			return err
		}
		if snap.PNCategories, err = s.listPNCategories(ctx, tx); err != nil {
			return err
		}
		snap.Messages, err = s.listActiveMessages(ctx, tx)
		return err
	})
	if err != nil {
		return models.Snapshot{}, err
	}
	snap.BuiltAt = s.now()
	return snap, nil
}
