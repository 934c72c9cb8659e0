package user_test

import (
	"encoding/json"
	"testing"

	"github.com/mfonseca/accounthub/internal/domain/user"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    user.Role
		wantErr bool
	}{
		{name: "admin code", code: "1", want: user.RoleAdmin},
		{name: "user code", code: "3", want: user.RoleUser},
		{name: "unknown code", code: "2", wantErr: true},
		{name: "empty code", code: "", wantErr: true},
		{name: "word not code", code: "admin", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := user.ParseRole(tc.code)

			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for code %q, got role %v", tc.code, got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tc.want {
				t.Fatalf("ParseRole(%q) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestRoleCodeRoundTrip(t *testing.T) {
	for _, r := range []user.Role{user.RoleAdmin, user.RoleUser} {
		parsed, err := user.ParseRole(r.Code())

		if err != nil {
			t.Fatalf("round trip failed for %v: %v", r, err)
		}

		if parsed != r {
			t.Fatalf("round trip: got %v, want %v", parsed, r)
		}
	}
}

func TestRoleJSONUsesLegacyCodes(t *testing.T) {
	b, err := json.Marshal(user.RoleAdmin)

	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if string(b) != `"1"` {
		t.Fatalf("admin role serialized as %s, want \"1\"", b)
	}

	var r user.Role

	if err := json.Unmarshal([]byte(`"3"`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if r != user.RoleUser {
		t.Fatalf("got %v, want RoleUser", r)
	}

	if err := json.Unmarshal([]byte(`"9"`), &r); err == nil {
		t.Fatalf("expected error for unknown code")
	}
}

func TestUserJSONNeverExposesHash(t *testing.T) {
	u := user.User{
		ID:           12,
		Username:     "marta",
		Email:        "marta@example.com",
		PasswordHash: "$2a$10$secret",
		Role:         user.RoleUser,
	}

	b, err := json.Marshal(u)

	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any

	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for key := range m {
		if key == "password" || key == "password_hash" || key == "PasswordHash" {
			t.Fatalf("serialized user leaks %q", key)
		}
	}
}
