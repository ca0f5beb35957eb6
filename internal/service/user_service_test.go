package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestUserListScoping(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ag2", domain.RoleAgent, false, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ctx := context.Background()
	agent, admin := domain.RoleAgent, domain.RoleAdmin

	cases := []struct {
		name  string
		actor string
		role  *domain.Role
		count int
		code  string
	}{
		{"admin lists everyone", "ad", nil, 4, ""},
		{"admin filters by role", "ad", &agent, 2, ""},
		{"agent lists agents", "ag", &agent, 2, ""},
		{"agent cannot list admins", "ag", &admin, 0, apperrors.CodeForbidden},
		{"agent needs a role filter", "ag", nil, 0, apperrors.CodeForbidden},
		{"user cannot list", "u1", &agent, 0, apperrors.CodeForbidden},
		{"unverified agent", "ag2", &agent, 0, apperrors.CodeVerificationRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users, err := f.users.List(ctx, f.user(tc.actor), tc.role)
			if tc.code != "" {
				assertCode(t, err, tc.code)
				return
			}
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(users) != tc.count {
				t.Fatalf("expected %d users, got %d", tc.count, len(users))
			}
		})
	}
}

func TestAdminCreatesUserWithTemporaryPassword(t *testing.T) {
	f := newFixture()
	f.seed("ad", domain.RoleAdmin, true, 0)
	ctx := context.Background()

	created, err := f.users.Create(ctx, f.user("ad"), CreateUserInput{Email: "new.hire@example.com", Role: domain.RoleAgent})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TemporaryPassword == "" {
		t.Fatalf("expected a generated password")
	}
	if created.User.Name != "new.hire" || created.User.Username != "newhire" || created.User.Verified {
		t.Fatalf("unexpected profile %+v", created.User)
	}
	if _, err := f.identity.SignIn(ctx, "new.hire@example.com", created.TemporaryPassword); err != nil {
		t.Fatalf("temporary password does not sign in: %v", err)
	}

	withPassword, err := f.users.Create(ctx, f.user("ad"), CreateUserInput{Email: "b@example.com", Password: "chosen", Name: "Bee"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if withPassword.TemporaryPassword != "" || withPassword.User.Role != domain.RoleUser {
		t.Fatalf("unexpected result %+v", withPassword)
	}

	f.seed("ag", domain.RoleAgent, true, 0)
	_, err = f.users.Create(ctx, f.user("ag"), CreateUserInput{Email: "c@example.com"})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestUpdateRoleRegeneratesCustomID(t *testing.T) {
	f := newFixture()
	ad := f.seed("ad", domain.RoleAdmin, true, 0)
	ctx := context.Background()
	registered, err := f.auth.Register(ctx, RegisterInput{Email: "p@example.com", Password: "pw", Name: "P", Role: domain.RoleAgent})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = f.users.UpdateRole(ctx, ad, registered.ID, "owner")
	assertCode(t, err, apperrors.CodeInvalidRole)
	_, err = f.users.UpdateRole(ctx, ad, "ghost", domain.RoleAdmin)
	assertCode(t, err, apperrors.CodeNotFound)

	promoted, err := f.users.UpdateRole(ctx, ad, registered.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if promoted.Role != domain.RoleAdmin || promoted.CustomID != "AD001" {
		t.Fatalf("unexpected promotion %+v", promoted)
	}
	if promoted.Verified || promoted.CanActAsStaff() {
		t.Fatalf("promotion must not verify an unverified agent: %+v", promoted)
	}
	if stored := f.user(registered.ID); stored.CustomID != "AD001" || stored.Verified {
		t.Fatalf("promotion not persisted as is: %+v", stored)
	}

	verified, err := f.users.Verify(ctx, ad, registered.ID)
	if err != nil || !verified.Verified {
		t.Fatalf("verify promoted admin: %v %+v", err, verified)
	}
}

func TestUpdateStatusAndVerify(t *testing.T) {
	f := newFixture()
	ad := f.seed("ad", domain.RoleAdmin, true, 0)
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, false, 0)
	ctx := context.Background()

	_, err := f.users.UpdateStatus(ctx, ad, "u1", "suspended")
	assertCode(t, err, apperrors.CodeInvalidStatus)
	_, err = f.users.UpdateStatus(ctx, ad, "ad", domain.AccountStatusBlocked)
	assertCode(t, err, apperrors.CodeForbidden)

	blocked, err := f.users.UpdateStatus(ctx, ad, "u1", domain.AccountStatusBlocked)
	if err != nil || blocked.AccountStatus != domain.AccountStatusBlocked {
		t.Fatalf("block: %v", err)
	}

	_, err = f.users.Verify(ctx, ad, "u1")
	assertCode(t, err, apperrors.CodeInvalidRole)
	verified, err := f.users.Verify(ctx, ad, "ag")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified || verified.VerifiedAt == nil || !verified.VerifiedAt.Equal(testNow) {
		t.Fatalf("verification not stamped: %+v", verified)
	}
	if !f.user("ag").CanActAsStaff() {
		t.Fatalf("verified agent should act as staff")
	}
}
