package models

import (
	"time"

	"github.com/google/uuid"
)

// Sender — тип отправителя сообщения.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
	SenderBot      Sender = "bot"
)

// Valid сообщает, известен ли тип отправителя.
func (s Sender) Valid() bool {
	switch s {
	case SenderCustomer, SenderAgent, SenderBot:
		return true
	}
	return false
}

// Message представляет собой структуру сообщения.
// После создания меняются только Text (редактирование) и Read (отметка о прочтении).
type Message struct {
	ID        uuid.UUID  `json:"id"`
	ChatID    uuid.UUID  `json:"chatId"`
	Sender    Sender     `json:"sender"`
	AgentID   *uuid.UUID `json:"agentId,omitempty"` // заполнено только при sender=agent
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	Read      bool       `json:"read"`
}
