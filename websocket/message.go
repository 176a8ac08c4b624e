package websocket

import (
	"github.com/google/uuid"

	"github.com/egor/supportchat/models"
)

// Event — конверт события для WebSocket.
type Event struct {
	Type    string      `json:"type"` // "new_message", "chat_updated", "chat_deleted"
	Payload interface{} `json:"payload"`
}

// NewMessageEvent — в чате появилось новое сообщение.
func NewMessageEvent(chat *models.Chat, message *models.Message) Event {
	payload := struct {
		Chat    *models.Chat    `json:"chat"`
		Message *models.Message `json:"message"`
	}{
		Chat:    chat,
		Message: message,
	}
	return Event{Type: "new_message", Payload: payload}
}

// ChatUpdatedEvent — изменился режим или назначение чата.
func ChatUpdatedEvent(chat *models.Chat) Event {
	return Event{Type: "chat_updated", Payload: chat}
}

// ChatDeletedEvent — чат удалён вместе с сообщениями.
func ChatDeletedEvent(chatID uuid.UUID) Event {
	payload := struct {
		ChatID uuid.UUID `json:"chatId"`
	}{ChatID: chatID}
	return Event{Type: "chat_deleted", Payload: payload}
}
