package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	identity auth.IdentityProvider
	users    repository.UserRepository
	profiles *provisioner
	logger   *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Identity    auth.IdentityProvider
	UserRepo    repository.UserRepository
	Identifiers *IdentifierService
	Logger      *zap.Logger
	Clock       Clock
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// LoginResult carries the issued token and the caller's profile.
type LoginResult struct {
	User        *domain.User
	AccessToken string
	ExpiresAt   time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		identity: deps.Identity,
		users:    deps.UserRepo,
		profiles: &provisioner{identity: deps.Identity, users: deps.UserRepo, ids: deps.Identifiers, logger: logger, clock: deps.Clock},
		logger:   logger,
	}
}

// Register creates an identity account and its helpdesk profile. Plain users
// are verified immediately, the first admin ever is auto-verified, and every
// other agent or admin waits for approval.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || input.Password == "" {
		return nil, apperrors.NewFieldRequired("email", "Email and password are required")
	}
	if name == "" {
		return nil, apperrors.NewFieldRequired("name", "Name is required")
	}
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, apperrors.NewInvalidRole("Role must be one of: user, agent, admin")
	}
	return s.profiles.create(ctx, email, input.Password, name, role)
}

// Login signs in against the identity provider and checks the profile state.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewFieldRequired("email", "Email and password are required")
	}
	session, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, session.Identity.ID)
	if err != nil {
		return nil, userNotFoundAs(err, apperrors.NewUserNotFound)
	}
	if user.AccountStatus == domain.AccountStatusBlocked {
		return nil, apperrors.NewForbidden("Your account has been blocked")
	}
	if !user.CanActAsStaff() {
		return nil, apperrors.NewVerificationPending()
	}
	return &LoginResult{User: user, AccessToken: session.AccessToken, ExpiresAt: time.Unix(session.ExpiresAt, 0).UTC()}, nil
}

// provisioner creates the identity account plus profile pair and undoes the
// account when the profile cannot be stored.
type provisioner struct {
	identity auth.IdentityProvider
	users    repository.UserRepository
	ids      *IdentifierService
	logger   *zap.Logger
	clock    Clock
}

func (p *provisioner) create(ctx context.Context, email, password, name string, role domain.Role) (*domain.User, error) {
	accountID, err := p.identity.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := p.build(ctx, accountID, email, name, role)
	if err == nil {
		err = p.users.Create(ctx, user)
	}
	if err != nil {
		if delErr := p.identity.DeleteAccount(ctx, accountID); delErr != nil {
			p.logger.Warn("account compensation failed",
				zap.String("account_id", accountID), zap.Error(delErr))
		}
		if apperrors.HasCode(err, apperrors.CodeCreateError) {
			return nil, err
		}
		return nil, apperrors.NewStoreError(apperrors.CodeCreateError, err)
	}
	return user, nil
}

func (p *provisioner) build(ctx context.Context, accountID, email, name string, role domain.Role) (*domain.User, error) {
	customID, err := p.ids.NextUserID(ctx, role)
	if err != nil {
		return nil, err
	}
	username, err := p.ids.NextUsername(ctx, name, email)
	if err != nil {
		return nil, err
	}
	verified, err := p.initiallyVerified(ctx, role)
	if err != nil {
		return nil, err
	}

	now := p.clock.now()
	user := &domain.User{
		ID:            accountID,
		Email:         email,
		Name:          name,
		Role:          role,
		CustomID:      customID,
		Username:      username,
		Verified:      verified,
		AccountStatus: domain.AccountStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if verified {
		user.VerifiedAt = &now
	}
	return user, nil
}

// initiallyVerified bootstraps the first admin; two concurrent first-admin
// registrations may both be verified.
func (p *provisioner) initiallyVerified(ctx context.Context, role domain.Role) (bool, error) {
	switch role {
	case domain.RoleUser:
		return true, nil
	case domain.RoleAdmin:
		admin := domain.RoleAdmin
		admins, err := p.users.List(ctx, repository.UserFilter{Role: &admin})
		if err != nil {
			return false, err
		}
		return len(admins) == 0, nil
	}
	return false, nil
}
