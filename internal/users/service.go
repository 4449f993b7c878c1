package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/wowdasare/everpack-system-hnd/internal/authz"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Insert(ctx context.Context, input CreateInput, passwordHash string) (int64, error)
	Update(ctx context.Context, id int64, input UpdateInput) error
	SetRole(ctx context.Context, id int64, role string) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ErrInvalidRole indicates an attempt to assign a role outside the
// enumerated set.
var ErrInvalidRole = errors.New("users: invalid role")

// ErrPasswordTooShort rejects weak credentials.
var ErrPasswordTooShort = errors.New("users: password must be at least 8 characters")

// Service coordinates account management.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new account. The role must parse against the
// enumerated set before anything is stored.
func (s *Service) Create(ctx context.Context, actorID int64, input CreateInput) (int64, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return 0, errors.New("users: username required")
	}
	role, err := authz.ParseRole(input.Role)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, input.Role)
	}
	input.Role = role.String()
	if len(input.Password) < 8 {
		return 0, ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	id, err := s.repo.Insert(ctx, input, string(hash))
	if err != nil {
		return 0, err
	}
	s.record(ctx, actorID, "users:create", id, map[string]any{"username": input.Username, "role": input.Role})
	return id, nil
}

// Update edits profile fields of an existing account.
func (s *Service) Update(ctx context.Context, actorID, id int64, input UpdateInput) error {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return errors.New("users: username required")
	}
	if err := s.repo.Update(ctx, id, input); err != nil {
		return err
	}
	s.record(ctx, actorID, "users:update", id, map[string]any{"username": input.Username, "is_active": input.IsActive})
	return nil
}

// ChangeRole reassigns the account's role.
func (s *Service) ChangeRole(ctx context.Context, actorID, id int64, rawRole string) error {
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRole, rawRole)
	}
	if err := s.repo.SetRole(ctx, id, role.String()); err != nil {
		return err
	}
	s.record(ctx, actorID, "users:change_role", id, map[string]any{"role": role.String()})
	return nil
}

// ResetPassword replaces the account's credential.
func (s *Service) ResetPassword(ctx context.Context, actorID, id int64, password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, id, string(hash)); err != nil {
		return err
	}
	s.record(ctx, actorID, "users:reset_password", id, nil)
	return nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "users:delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
