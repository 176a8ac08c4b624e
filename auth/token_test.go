package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/egor/supportchat/models"
)

func TestResolveRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(userID, models.RoleAgent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	actor := Resolve("Bearer " + token)
	if actor == nil {
		t.Fatal("Resolve вернул nil для валидного токена")
	}
	if actor.UserID != userID {
		t.Errorf("UserID = %s, want %s", actor.UserID, userID)
	}
	if actor.Role != models.RoleAgent {
		t.Errorf("Role = %q, want %q", actor.Role, models.RoleAgent)
	}
}

func TestResolveWithoutBearerPrefix(t *testing.T) {
	token, err := GenerateToken(uuid.New(), models.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if actor := Resolve(token); actor == nil {
		t.Error("Resolve должен принимать токен без префикса Bearer")
	}
}

// Дефектные учётные данные не ошибка: вызывающий становится анонимом.
func TestResolveMalformedCredentials(t *testing.T) {
	tests := []struct {
		name       string
		credential string
	}{
		{"empty", ""},
		{"not a token", "Bearer blah-blah"},
		{"prefix only", "Bearer "},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if actor := Resolve(tt.credential); actor != nil {
				t.Errorf("Resolve(%q) = %+v, want nil", tt.credential, actor)
			}
		})
	}
}

func TestResolveUnknownRole(t *testing.T) {
	token, err := GenerateToken(uuid.New(), models.Role("superuser"))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	actor := Resolve("Bearer " + token)
	if actor == nil {
		t.Fatal("Resolve вернул nil")
	}
	if actor.Role != models.RoleUnknown {
		t.Errorf("Role = %q, want %q", actor.Role, models.RoleUnknown)
	}
}
