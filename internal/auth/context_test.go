package auth

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	if _, ok := UserFromContext(ctx); ok {
		t.Fatalf("expected no user in empty context")
	}

	ctx = ContextWithUser(ctx, &User{ID: 7, Username: "alice", Role: RoleAdmin})
	user, ok := UserFromContext(ctx)
	if !ok || user.ID != 7 || user.Role != RoleAdmin {
		t.Fatalf("unexpected user: %+v ok=%v", user, ok)
	}

	ctx = ContextWithToken(ctx, "raw-token")
	token, ok := TokenFromContext(ctx)
	if !ok || token != "raw-token" {
		t.Fatalf("unexpected token: %q ok=%v", token, ok)
	}
}

func TestParseRole(t *testing.T) {
	for raw, want := range map[string]Role{"user": RoleUser, "ADMIN": RoleAdmin, " Admin ": RoleAdmin} {
		got, err := ParseRole(raw)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %v, %v", raw, got, err)
		}
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
