package policy

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/egor/supportchat/models"
)

func identity(role models.Role) *models.Identity {
	return &models.Identity{UserID: uuid.New(), Role: role}
}

func TestAuthorize(t *testing.T) {
	anon := (*models.Identity)(nil)
	customer := identity(models.RoleCustomer)
	agent := identity(models.RoleAgent)
	admin := identity(models.RoleAdmin)
	unknown := identity(models.RoleUnknown)

	tests := []struct {
		name    string
		actor   *models.Identity
		action  Action
		wantErr error
	}{
		// Открытые операции
		{"anon lists chats", anon, ActionListChats, nil},
		{"anon reads chat", anon, ActionGetChat, nil},
		{"anon creates chat", anon, ActionCreateChat, nil},
		{"anon sends message", anon, ActionSendMessage, nil},
		{"anon marks read", anon, ActionMarkRead, nil},
		{"customer sends message", customer, ActionSendMessage, nil},

		// Панель операторов
		{"anon updates chat", anon, ActionUpdateChat, ErrUnauthenticated},
		{"customer updates chat", customer, ActionUpdateChat, ErrForbidden},
		{"unknown role updates chat", unknown, ActionUpdateChat, ErrForbidden},
		{"agent updates chat", agent, ActionUpdateChat, nil},
		{"admin updates chat", admin, ActionUpdateChat, nil},
		{"anon edits message", anon, ActionUpdateMessage, ErrUnauthenticated},
		{"customer edits message", customer, ActionUpdateMessage, ErrForbidden},
		{"agent edits message", agent, ActionUpdateMessage, nil},
		{"anon deletes message", anon, ActionDeleteMessage, ErrUnauthenticated},
		{"customer deletes message", customer, ActionDeleteMessage, ErrForbidden},
		{"admin deletes message", admin, ActionDeleteMessage, nil},

		// Удаление чата — только администратор
		{"anon deletes chat", anon, ActionDeleteChat, ErrUnauthenticated},
		{"customer deletes chat", customer, ActionDeleteChat, ErrForbidden},
		{"agent deletes chat", agent, ActionDeleteChat, ErrForbidden},
		{"unknown role deletes chat", unknown, ActionDeleteChat, ErrForbidden},
		{"admin deletes chat", admin, ActionDeleteChat, nil},

		// Неизвестное действие всегда запрещено
		{"unknown action", admin, Action("drop_database"), ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.action)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize(%v, %s) = %v, want %v", tt.actor, tt.action, err, tt.wantErr)
			}
		})
	}
}

func TestListScope(t *testing.T) {
	// Аноним и привилегированные роли видят всё
	if f := ListScope(nil); f.CustomerID != nil {
		t.Error("аноним должен видеть список без фильтра")
	}
	if f := ListScope(identity(models.RoleAgent)); f.CustomerID != nil {
		t.Error("оператор должен видеть список без фильтра")
	}
	if f := ListScope(identity(models.RoleAdmin)); f.CustomerID != nil {
		t.Error("администратор должен видеть список без фильтра")
	}

	// Клиент видит только свои чаты
	customer := identity(models.RoleCustomer)
	f := ListScope(customer)
	if f.CustomerID == nil || *f.CustomerID != customer.UserID {
		t.Errorf("клиент должен видеть только свои чаты, фильтр = %v", f.CustomerID)
	}

	// Неизвестная роль не получает привилегий
	unknown := identity(models.RoleUnknown)
	f = ListScope(unknown)
	if f.CustomerID == nil || *f.CustomerID != unknown.UserID {
		t.Errorf("неизвестная роль должна видеть только свои чаты, фильтр = %v", f.CustomerID)
	}
}
