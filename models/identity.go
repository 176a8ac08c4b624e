package models

import (
	"github.com/google/uuid"
)

// Role — роль аутентифицированного пользователя.
// Неизвестные значения из токена сворачиваются в RoleUnknown
// и не получают никаких привилегий.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
	RoleUnknown  Role = "unknown"
)

// ParseRole приводит строку из claims к закрытому перечислению.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleCustomer, RoleAgent, RoleAdmin:
		return Role(s)
	}
	return RoleUnknown
}

// Privileged — роли с доступом к панели операторов.
func (r Role) Privileged() bool {
	return r == RoleAgent || r == RoleAdmin
}

// Identity — разобранные данные токена: кто и в какой роли.
// nil *Identity означает анонимного вызывающего.
type Identity struct {
	UserID uuid.UUID `json:"userId"`
	Role   Role      `json:"role"`
}

// Agent представляет собой структуру оператора поддержки
type Agent struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"` // "agent" или "admin"
	Active       bool      `json:"active"`
}
