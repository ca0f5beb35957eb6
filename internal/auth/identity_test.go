package auth

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func newTestIdentity(store *memory.Store) *LocalIdentity {
	return NewLocalIdentity(store.Accounts(), NewTokenManager("test-secret", 5), 4)
}

func TestLocalIdentityLifecycle(t *testing.T) {
	ctx := context.Background()
	idp := newTestIdentity(memory.NewStore())

	id, err := idp.CreateAccount(ctx, "jane@example.com", "s3cret!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := idp.CreateAccount(ctx, "JANE@example.com", "other"); !apperrors.HasCode(err, apperrors.CodeEmailExists) {
		t.Fatalf("expected EMAIL_EXISTS, got %v", err)
	}

	if _, err := idp.SignIn(ctx, "jane@example.com", "wrong"); !apperrors.HasCode(err, apperrors.CodeAuthError) {
		t.Fatalf("expected AUTH_ERROR for bad password, got %v", err)
	}
	session, err := idp.SignIn(ctx, "jane@example.com", "s3cret!")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	identity, err := idp.Verify(ctx, session.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.ID != id || identity.Email != "jane@example.com" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	if err := idp.DeleteAccount(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := idp.DeleteAccount(ctx, id); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := idp.Verify(ctx, session.AccessToken); !apperrors.HasCode(err, apperrors.CodeAuthError) {
		t.Fatalf("expected AUTH_ERROR after deletion, got %v", err)
	}
}

func testApp(mw *AuthMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
	}})
	app.Get("/me", mw.Handle, RequireVerified(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.UserID())
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	idp := newTestIdentity(store)

	register := func(email string, user domain.User) string {
		id, err := idp.CreateAccount(ctx, email, "pw")
		if err != nil {
			t.Fatalf("create account: %v", err)
		}
		user.ID = id
		user.Email = email
		user.Username = email
		store.SeedUser(user)
		session, err := idp.SignIn(ctx, email, "pw")
		if err != nil {
			t.Fatalf("sign in: %v", err)
		}
		return session.AccessToken
	}

	userToken := register("u@example.com", domain.User{Role: domain.RoleUser, Verified: true, AccountStatus: domain.AccountStatusActive})
	blockedToken := register("b@example.com", domain.User{Role: domain.RoleUser, Verified: true, AccountStatus: domain.AccountStatusBlocked})
	pendingToken := register("p@example.com", domain.User{Role: domain.RoleAgent, AccountStatus: domain.AccountStatusActive})
	if _, err := idp.CreateAccount(ctx, "o@example.com", "pw"); err != nil {
		t.Fatalf("create orphan: %v", err)
	}
	orphan, _ := idp.SignIn(ctx, "o@example.com", "pw")

	app := testApp(NewAuthMiddleware(idp, store.Users()))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", 401, apperrors.CodeAuthError},
		{"wrong scheme", "Basic abc", 401, apperrors.CodeAuthError},
		{"garbage token", "Bearer nope", 401, apperrors.CodeAuthError},
		{"no user document", "Bearer " + orphan.AccessToken, 404, apperrors.CodeUserNotFound},
		{"blocked", "Bearer " + blockedToken, 403, apperrors.CodeForbidden},
		{"pending agent", "Bearer " + pendingToken, 403, apperrors.CodeVerificationRequired},
		{"ok", "Bearer " + userToken, 200, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != tt.body {
					t.Fatalf("expected body %q, got %q", tt.body, string(body))
				}
			}
		})
	}
}
