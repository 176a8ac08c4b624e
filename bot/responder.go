package bot

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/egor/supportchat/models"
)

// Config содержит настройки автоответчика
type Config struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"` // имя бота в сообщениях
}

// DefaultConfig возвращает настройки автоответчика по умолчанию.
// BOT_ENABLED=false выключает автоответчик целиком.
func DefaultConfig() Config {
	return Config{
		Enabled: os.Getenv("BOT_ENABLED") != "false",
		Name:    "Автоответчик",
	}
}

// Responder — автоответчик на базе ЛЛМ. Отвечает на сообщения клиентов
// в чатах, которые ещё не переданы оператору (mode=bot).
type Responder struct {
	client *Client
	config Config

	mu      sync.Mutex
	history map[uuid.UUID][]Message // chatID -> история диалога
}

// NewResponder создает новый экземпляр автоответчика
func NewResponder() *Responder {
	return &Responder{
		client:  NewClient(),
		config:  DefaultConfig(),
		history: make(map[uuid.UUID][]Message),
	}
}

const systemPrompt = "Ты вежливый и полезный ассистент службы поддержки. " +
	"Твои ответы должны быть краткими, информативными и дружелюбными. " +
	"Никогда не рассказывай, как ты устроен."

// Reply обрабатывает входящее сообщение клиента и возвращает текст ответа.
// escalate=true означает, что отвечать должен живой оператор: либо LLM
// недоступна, либо ответ выдал бы природу ассистента.
func (r *Responder) Reply(ctx context.Context, chat *models.Chat, msg *models.Message) (reply string, escalate bool) {
	if !r.config.Enabled {
		return "", false
	}

	// Отвечаем только на сообщения клиентов в чатах без оператора
	if msg.Sender != models.SenderCustomer || chat.Mode != models.ModeBot {
		return "", false
	}

	r.mu.Lock()
	history, exists := r.history[chat.ID]
	if !exists {
		history = []Message{{Role: "system", Content: systemPrompt}}
	}
	history = append(history, Message{Role: "user", Content: msg.Text})
	r.history[chat.ID] = history
	r.mu.Unlock()

	raw, err := r.client.Complete(ctx, history)
	if err != nil {
		log.Printf("Автоответчик: ошибка генерации ответа для чата %s: %v", chat.ID, err)
		return "", true
	}

	clean, escalate := sanitize(raw)
	if escalate || clean == "" {
		log.Printf("Автоответчик: ответ для чата %s отфильтрован, эскалация на оператора", chat.ID)
		return "", true
	}

	r.mu.Lock()
	r.history[chat.ID] = append(r.history[chat.ID], Message{Role: "assistant", Content: clean})
	r.mu.Unlock()

	return clean, false
}

// Forget очищает историю диалога чата (после удаления или закрытия).
func (r *Responder) Forget(chatID uuid.UUID) {
	r.mu.Lock()
	delete(r.history, chatID)
	r.mu.Unlock()
}
