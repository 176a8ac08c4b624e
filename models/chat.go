package models

import (
	"time"

	"github.com/google/uuid"
)

// Mode — режим обработки чата.
type Mode string

const (
	ModeBot    Mode = "bot"    // отвечает автоответчик
	ModeAgent  Mode = "agent"  // чат передан оператору
	ModeClosed Mode = "closed" // чат закрыт, повторное открытие только через создание нового
)

// modeRank задаёт порядок переходов: bot → agent → closed, назад нельзя.
var modeRank = map[Mode]int{
	ModeBot:    0,
	ModeAgent:  1,
	ModeClosed: 2,
}

// Valid сообщает, известен ли режим.
func (m Mode) Valid() bool {
	_, ok := modeRank[m]
	return ok
}

// CanTransitionTo проверяет, что переход идёт только вперёд.
// Переход в тот же режим разрешён (no-op).
func (m Mode) CanTransitionTo(next Mode) bool {
	cur, ok := modeRank[m]
	if !ok {
		return false
	}
	nxt, ok := modeRank[next]
	if !ok {
		return false
	}
	return nxt >= cur
}

// Chat представляет собой структуру чата
type Chat struct {
	ID              uuid.UUID  `json:"id"`
	CustomerID      uuid.UUID  `json:"customerId"`
	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty"` // ID оператора, только при mode=agent
	Mode            Mode       `json:"mode"`
	Messages        []Message  `json:"messages,omitempty"`
	LastMessage     *Message   `json:"lastMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ChatSummary для списка чатов на фронтенде
type ChatSummary struct {
	ID              uuid.UUID  `json:"id"`
	CustomerID      uuid.UUID  `json:"customerId"`
	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty"`
	Mode            Mode       `json:"mode"`
	LastMessage     *Message   `json:"lastMessage,omitempty"`
	UnreadCount     int        `json:"unreadCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ChatPatch — частичное обновление чата. Применяются только заполненные поля.
type ChatPatch struct {
	Mode            *Mode
	AssignedAgentID *uuid.UUID
}

// ChatFilter ограничивает выборку списка чатов.
// Нулевое значение — без ограничений.
type ChatFilter struct {
	CustomerID *uuid.UUID
}
