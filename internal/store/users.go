package store

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
)

const userColumns = "id, username, password_hash, role, created_at, updated_at"

func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var role string
	err := scanner.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	u.Role = policy.Role(role)
	return u, err
}

// NormalizeUsername is applied on every user write path.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CreateUser inserts a user. A taken username yields ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	return s.createUser(ctx, s.db, u)
}

func (s *Store) createUser(ctx context.Context, q querier, u models.User) (models.User, error) {
	now := s.now()
	u.Username = NormalizeUsername(u.Username)
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := q.ExecContext(ctx,
		"INSERT INTO users(id, username, password_hash, role, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)",
		u.ID, u.Username, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	return u, nil
}

// CreateUsersSkipExisting inserts users in one transaction, skipping taken usernames.
// It returns only the users that were created.
func (s *Store) CreateUsersSkipExisting(ctx context.Context, users []models.User) ([]models.User, error) {
	created := []models.User{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, u := range users {
			now := s.now()
			u.Username = NormalizeUsername(u.Username)
			u.CreatedAt, u.UpdatedAt = now, now
			res, err := tx.ExecContext(ctx,
				`INSERT INTO users(id, username, password_hash, role, created_at, updated_at)
				 VALUES(?, ?, ?, ?, ?, ?) ON CONFLICT(username) DO NOTHING`,
				u.ID, u.Username, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 1 {
				created = append(created, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return created, nil
}

// GetUser retrieves a user by id, including the password hash.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by case-insensitive username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", NormalizeUsername(username))
	u, err := scanUser(row)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	return u, nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, s.db)
}

func (s *Store) listUsers(ctx context.Context, q querier) ([]models.User, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserUpdate lists the user fields to change. Zero values are left untouched.
type UserUpdate struct {
	Role         policy.Role
	PasswordHash string
}

// UpdateUser applies u to the user in one statement.
func (s *Store) UpdateUser(ctx context.Context, id string, u UserUpdate) error {
	b := psql.Update("users").Set("updated_at", s.now()).Where(sq.Eq{"id": id})
	if u.Role != "" {
		b = b.Set("role", string(u.Role))
	}
	if u.PasswordHash != "" {
		b = b.Set("password_hash", u.PasswordHash)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return expectOne(s.db.ExecContext(ctx, query, args...))
}

// DeleteUser removes a user and, by cascade, their private notes.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id))
}

// CountAdmins counts admins other than excludeID. Pass "" to count all.
func (s *Store) CountAdmins(ctx context.Context, excludeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role = ? AND id <> ?", string(policy.RoleAdmin), excludeID).Scan(&n)
	return n, err
}
