package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// UserService manages helpdesk profiles on behalf of staff.
type UserService struct {
	users    repository.UserRepository
	ids      *IdentifierService
	profiles *provisioner
	clock    Clock
}

// UserDependencies bundles what the user service needs.
type UserDependencies struct {
	Identity    auth.IdentityProvider
	UserRepo    repository.UserRepository
	Identifiers *IdentifierService
	Logger      *zap.Logger
	Clock       Clock
}

// CreateUserInput is an admin-created account. An empty Password gets a
// generated temporary one.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// CreatedUser is the new profile plus the temporary password, when one was generated.
type CreatedUser struct {
	User              *domain.User
	TemporaryPassword string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:    deps.UserRepo,
		ids:      deps.Identifiers,
		profiles: &provisioner{identity: deps.Identity, users: deps.UserRepo, ids: deps.Identifiers, logger: logger, clock: deps.Clock},
		clock:    deps.Clock,
	}
}

// List returns users visible to actor. Agents may only list agents; admins
// list everyone or filter by role.
func (s *UserService) List(ctx context.Context, actor *domain.User, role *domain.Role) ([]domain.User, error) {
	if err := requireVerified(actor); err != nil {
		return nil, err
	}
	if role != nil && !role.Valid() {
		return nil, apperrors.NewInvalidRole("Role must be one of: user, agent, admin")
	}
	switch {
	case auth.Allowed(actor.Role, auth.ActionListUsers, auth.RelationAny):
	case auth.Allowed(actor.Role, auth.ActionListAgents, auth.RelationAny):
		if role == nil || *role != domain.RoleAgent {
			return nil, apperrors.NewForbidden("Agents can only list agents")
		}
	default:
		return nil, apperrors.NewForbidden("Access denied")
	}

	users, err := s.users.List(ctx, repository.UserFilter{Role: role})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Create provisions an account for someone else. Admin only.
func (s *UserService) Create(ctx context.Context, actor *domain.User, input CreateUserInput) (*CreatedUser, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, apperrors.NewFieldRequired("email", "Email is required")
	}
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, apperrors.NewInvalidRole("Role must be one of: user, agent, admin")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	password, temporary := input.Password, ""
	if password == "" {
		temporary = uuid.NewString()
		password = temporary
	}

	user, err := s.profiles.create(ctx, email, password, name, role)
	if err != nil {
		return nil, err
	}
	return &CreatedUser{User: user, TemporaryPassword: temporary}, nil
}

// UpdateRole moves a user to role, issuing a customId in the new role's
// series. Verification is left as is: promoted staff still need Verify.
func (s *UserService) UpdateRole(ctx context.Context, actor *domain.User, id string, role domain.Role) (*domain.User, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewInvalidRole("Role must be one of: user, agent, admin")
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		customID, err := s.ids.NextUserID(ctx, role)
		if err != nil {
			return nil, apperrors.NewStoreError(apperrors.CodeUpdateError, err)
		}
		user.Role = role
		user.CustomID = customID
	}
	return user, s.save(ctx, user)
}

// UpdateStatus blocks or re-activates a user. Admins cannot block themselves.
func (s *UserService) UpdateStatus(ctx context.Context, actor *domain.User, id string, status domain.AccountStatus) (*domain.User, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewInvalidStatus("Status must be active or blocked")
	}
	if id == actor.ID && status == domain.AccountStatusBlocked {
		return nil, apperrors.NewForbidden("You cannot block your own account")
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.AccountStatus = status
	return user, s.save(ctx, user)
}

// Verify approves a pending agent or admin.
func (s *UserService) Verify(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsStaff() {
		return nil, apperrors.NewInvalidRole("Only agents and admins require verification")
	}
	s.markVerified(user)
	return user, s.save(ctx, user)
}

func (s *UserService) requireManager(actor *domain.User) error {
	if err := requireVerified(actor); err != nil {
		return err
	}
	if !auth.Allowed(actor.Role, auth.ActionManageUsers, auth.RelationAny) {
		return apperrors.NewForbidden("Admin only")
	}
	return nil
}

func (s *UserService) get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userNotFoundAs(err, func() error {
			return apperrors.NewNotFound("user", map[string]any{"user_id": id})
		})
	}
	return user, nil
}

func (s *UserService) markVerified(user *domain.User) {
	if user.Verified {
		return
	}
	now := s.clock.now()
	user.Verified = true
	user.VerifiedAt = &now
}

func (s *UserService) save(ctx context.Context, user *domain.User) error {
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": user.ID})
		}
		return apperrors.NewStoreError(apperrors.CodeUpdateError, err)
	}
	return nil
}
