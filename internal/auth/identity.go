package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// IdentityProvider issues account identifiers and verifies bearer credentials.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
	CreateAccount(ctx context.Context, email, password string) (string, error)
	DeleteAccount(ctx context.Context, id string) error
	SignIn(ctx context.Context, email, password string) (*Session, error)
}

// Session is issued on a successful sign-in.
type Session struct {
	Identity    domain.Identity
	AccessToken string
	ExpiresAt   int64
}

// LocalIdentity keeps accounts in the service's own store.
type LocalIdentity struct {
	accounts   repository.AccountRepository
	tokens     *TokenManager
	bcryptCost int
}

// NewLocalIdentity builds the account-table backed provider.
func NewLocalIdentity(accounts repository.AccountRepository, tokens *TokenManager, bcryptCost int) *LocalIdentity {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &LocalIdentity{accounts: accounts, tokens: tokens, bcryptCost: bcryptCost}
}

// Verify resolves a bearer token to the account it was issued for.
func (p *LocalIdentity) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := p.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Invalid or expired token")
	}
	account, err := p.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("Invalid or expired token")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.Identity{ID: account.ID, Email: account.Email}, nil
}

// CreateAccount stores a new credential and returns its id.
func (p *LocalIdentity) CreateAccount(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	hash, err := HashPassword(password, p.bcryptCost)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	account := &domain.Account{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apperrors.NewEmailExists()
		}
		return "", apperrors.NewStoreError(apperrors.CodeCreateError, err)
	}
	return account.ID, nil
}

// DeleteAccount removes a credential. Missing accounts are not an error.
func (p *LocalIdentity) DeleteAccount(ctx context.Context, id string) error {
	if err := p.accounts.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// SignIn checks the password and issues an access token.
func (p *LocalIdentity) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := p.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("Invalid email or password")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("Invalid email or password")
	}
	token, expiresAt, err := p.tokens.GenerateToken(account.ID, account.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{
		Identity:    domain.Identity{ID: account.ID, Email: account.Email},
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}
