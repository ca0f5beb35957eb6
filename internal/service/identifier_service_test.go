package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestMaxSuffix(t *testing.T) {
	tests := []struct {
		name   string
		ids    []string
		prefix string
		want   int64
	}{
		{"empty", nil, "U", 0},
		{"well formed", []string{"U000001", "U000007", "U000003"}, "U", 7},
		{"malformed skipped", []string{"U00x01", "", "AG00009", "U-5", "U000002"}, "U", 2},
		{"prefix only", []string{"AD"}, "AD", 0},
		{"tickets", []string{"T000000010", "T000000009"}, "T", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxSuffix(tt.ids, tt.prefix); got != tt.want {
				t.Fatalf("maxSuffix = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextUserIDFollowsExistingRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	legacy := domain.User{ID: "a", Role: domain.RoleAgent, CustomID: "AG00041", Username: "a"}
	f.store.SeedUser(legacy)
	f.store.SeedUser(domain.User{ID: "b", Role: domain.RoleAgent, CustomID: "broken", Username: "b"})

	first, err := f.ids.NextUserID(ctx, domain.RoleAgent)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if first != "AG00042" {
		t.Fatalf("expected AG00042, got %s", first)
	}
	second, _ := f.ids.NextUserID(ctx, domain.RoleAgent)
	if second != "AG00043" {
		t.Fatalf("sequence must advance without a new row, got %s", second)
	}
	admin, _ := f.ids.NextUserID(ctx, domain.RoleAdmin)
	if admin != "AD001" {
		t.Fatalf("roles count independently, got %s", admin)
	}
}

func TestNextTicketID(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	id, err := f.ids.NextTicketID(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if id != "T000000001" {
		t.Fatalf("expected T000000001, got %s", id)
	}
}

func TestNextUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.SeedUser(domain.User{ID: "1", Username: "janedoe"})
	f.store.SeedUser(domain.User{ID: "2", Username: "janedoe01"})

	got, err := f.ids.NextUsername(ctx, "Jane Doe!", "jane@example.com")
	if err != nil {
		t.Fatalf("username: %v", err)
	}
	if got != "janedoe02" {
		t.Fatalf("expected janedoe02, got %s", got)
	}

	got, _ = f.ids.NextUsername(ctx, "  ***  ", "Mr.Smith@example.com")
	if got != "mrsmith" {
		t.Fatalf("expected email fallback mrsmith, got %s", got)
	}
}

func TestNextUsernameRandomFallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.SeedUser(domain.User{ID: "base", Username: "bob"})
	for i := 1; i <= 99; i++ {
		name := "bob" + twoDigits(i)
		f.store.SeedUser(domain.User{ID: name, Username: name})
	}
	f.ids.randIntN = func(int) int { return 123 }

	got, err := f.ids.NextUsername(ctx, "Bob", "")
	if err != nil {
		t.Fatalf("username: %v", err)
	}
	if got != "bob223" {
		t.Fatalf("expected random suffix bob223, got %s", got)
	}
}

func twoDigits(i int) string {
	return string([]byte{byte('0' + i/10), byte('0' + i%10)})
}
