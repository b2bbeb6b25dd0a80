package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/isdelr/quickreply-be/internal/store"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// passwordCost is lowered in tests.
var passwordCost = bcrypt.DefaultCost

const (
	tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
	tempPasswordLength   = 12
)

var errBadCredentials = apperr.Unauthenticated("Invalid username or password")

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func temporaryPassword() (string, error) {
	return gonanoid.Generate(tempPasswordAlphabet, tempPasswordLength)
}

// UserRepository is the user persistence the account service needs.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	CountAdmins(ctx context.Context, excludeID string) (int, error)
}

// UserServiceProvider defines the interface for credential checks.
type UserServiceProvider interface {
	AuthenticateUser(ctx context.Context, username, password string, meta RequestMeta) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

// UserService verifies credentials. Account changes go through the Coordinator.
type UserService struct {
	repo  UserRepository
	audit AuditServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(repo UserRepository, audit AuditServiceProvider) *UserService {
	return &UserService{repo: repo, audit: audit}
}

// GetUserByID retrieves a single user by their ID, without the password hash.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, apperr.NotFound("User not found")
		}
		return models.User{}, apperr.Internal(err)
	}
	return user.Sanitized(), nil
}

// AuthenticateUser verifies a user's credentials. Unknown users and wrong passwords
// produce the same error.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string, meta RequestMeta) (models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.User{}, apperr.Internal(err)
	}
	if err != nil || !checkPassword(user.PasswordHash, password) {
		log.Warn().Str("username", store.NormalizeUsername(username)).Str("ip", meta.IP).Msg("Failed authentication attempt")
		s.audit.Warning("Failed login attempt for "+store.NormalizeUsername(username), nil, meta)
		return models.User{}, errBadCredentials
	}

	s.audit.Record(withActor(models.LogEntry{
		Level:    models.LevelInfo,
		Message:  "User logged in",
		Severity: models.SeverityLow,
		Action:   "LOGIN",
		Resource: "User",
	}, user.Actor(), meta))
	return user.Sanitized(), nil
}

// EnsureAdmin creates the given admin account when no admin exists yet.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.repo.CountAdmins(ctx, "")
	if err != nil {
		return false, err
	}
	if n > 0 || username == "" || password == "" {
		return false, nil
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	user, err := s.repo.CreateUser(ctx, models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hashed,
		Role:         policy.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	s.audit.DatabaseChange("CREATE", "User", user.ID, nil, user.Sanitized(), nil, RequestMeta{})
	log.Info().Str("username", user.Username).Msg("Bootstrap admin account created")
	return true, nil
}
