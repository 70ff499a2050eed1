package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, page shared.Page) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, in NewUser) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  shared.AuditRecorder
	logger *slog.Logger
	cost   int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, cost: bcrypt.DefaultCost}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, page shared.Page) ([]User, error) {
	return s.repo.ListUsers(ctx, page)
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser hashes the password and stores the account with its roles.
func (s *Service) CreateUser(ctx context.Context, actorID int64, in CreateInput) (User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if username == "" || strings.ContainsAny(username, " \t\n@") {
		return User{}, fmt.Errorf("%w: username must be a single word without @", shared.ErrValidation)
	}
	roles := make([]string, 0, len(in.Roles))
	seen := make(map[string]struct{}, len(in.Roles))
	for _, role := range in.Roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if _, dup := seen[role]; dup || role == "" {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	id, err := s.repo.CreateUser(ctx, NewUser{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: string(hash),
		Roles:        roles,
	})
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.create", id, map[string]any{"roles": roles})
	return s.repo.GetUser(ctx, id)
}

// SetActive activates or deactivates an account. Users cannot deactivate themselves.
func (s *Service) SetActive(ctx context.Context, actorID, id int64, active bool) (User, error) {
	if actorID == id && !active {
		return User{}, fmt.Errorf("%w: cannot deactivate your own account", shared.ErrValidation)
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.set_active", id, map[string]any{"active": active})
	return s.repo.GetUser(ctx, id)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit user change", slog.String("action", action), slog.Any("error", err))
	}
}
