// Package service связывает policy и хранилище в сценарии использования.
// Идентичность вызывающего передаётся явным параметром — никакого
// глобального состояния запроса, авторизация проверяется без транспорта.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/egor/supportchat/models"
	"github.com/egor/supportchat/policy"
)

// Store — контракт хранилища чатов. Реализации: database.Postgres и
// database.Memory.
type Store interface {
	ListChats(ctx context.Context, filter models.ChatFilter, page, size int) ([]models.ChatSummary, int, error)
	GetChat(ctx context.Context, chatID uuid.UUID, page, size int) (*models.Chat, int, error)
	CreateChat(ctx context.Context, customerID uuid.UUID, mode models.Mode) (*models.Chat, error)
	UpdateChat(ctx context.Context, chatID uuid.UUID, patch models.ChatPatch) (*models.Chat, error)
	AddMessage(ctx context.Context, chatID uuid.UUID, sender models.Sender, agentID *uuid.UUID, text string) (*models.Message, error)
	MarkAllRead(ctx context.Context, chatID uuid.UUID) (int, error)
	UpdateMessage(ctx context.Context, messageID uuid.UUID, text string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID uuid.UUID) error
	DeleteChat(ctx context.Context, chatID uuid.UUID) error
}

// ChatService — оркестратор шести сценариев работы с чатами.
// Бизнес-логики здесь нет, кроме подмены agent_id при отправке
// сообщения от имени оператора.
type ChatService struct {
	store Store
}

// New создает сервис поверх хранилища.
func New(store Store) *ChatService {
	return &ChatService{store: store}
}

// SendMessageInput — входные данные отправки сообщения.
type SendMessageInput struct {
	ChatID  uuid.UUID
	Sender  models.Sender
	AgentID *uuid.UUID
	Text    string
}

// ListChats возвращает чаты, видимые актору: операторы и администраторы
// видят всё, клиенты — только свои чаты.
func (s *ChatService) ListChats(ctx context.Context, actor *models.Identity, page, size int) ([]models.ChatSummary, int, error) {
	if err := policy.Authorize(actor, policy.ActionListChats); err != nil {
		return nil, 0, err
	}
	return s.store.ListChats(ctx, policy.ListScope(actor), page, size)
}

// GetChat возвращает чат с сообщениями. Доступен по id без авторизации.
func (s *ChatService) GetChat(ctx context.Context, actor *models.Identity, chatID uuid.UUID, page, size int) (*models.Chat, int, error) {
	if err := policy.Authorize(actor, policy.ActionGetChat); err != nil {
		return nil, 0, err
	}
	return s.store.GetChat(ctx, chatID, page, size)
}

// CreateChat создаёт чат. Анонимный клиент может начать чат.
func (s *ChatService) CreateChat(ctx context.Context, actor *models.Identity, customerID uuid.UUID, mode models.Mode) (*models.Chat, error) {
	if err := policy.Authorize(actor, policy.ActionCreateChat); err != nil {
		return nil, err
	}
	return s.store.CreateChat(ctx, customerID, mode)
}

// UpdateChat меняет режим и/или назначение чата. Только оператор/администратор.
func (s *ChatService) UpdateChat(ctx context.Context, actor *models.Identity, chatID uuid.UUID, patch models.ChatPatch) (*models.Chat, error) {
	if err := policy.Authorize(actor, policy.ActionUpdateChat); err != nil {
		return nil, err
	}
	return s.store.UpdateChat(ctx, chatID, patch)
}

// SendMessage сохраняет сообщение. Если отправитель — оператор и вызывающий
// аутентифицирован, agent_id берётся из токена, а не из запроса:
// писать от чужого имени нельзя.
func (s *ChatService) SendMessage(ctx context.Context, actor *models.Identity, in SendMessageInput) (*models.Message, error) {
	if err := policy.Authorize(actor, policy.ActionSendMessage); err != nil {
		return nil, err
	}

	agentID := in.AgentID
	if in.Sender == models.SenderAgent && actor != nil {
		id := actor.UserID
		agentID = &id
	}

	return s.store.AddMessage(ctx, in.ChatID, in.Sender, agentID, in.Text)
}

// MarkRead помечает все сообщения чата прочитанными и возвращает их число.
func (s *ChatService) MarkRead(ctx context.Context, actor *models.Identity, chatID uuid.UUID) (int, error) {
	if err := policy.Authorize(actor, policy.ActionMarkRead); err != nil {
		return 0, err
	}
	return s.store.MarkAllRead(ctx, chatID)
}

// UpdateMessage редактирует текст сообщения. Только оператор/администратор.
func (s *ChatService) UpdateMessage(ctx context.Context, actor *models.Identity, messageID uuid.UUID, text string) (*models.Message, error) {
	if err := policy.Authorize(actor, policy.ActionUpdateMessage); err != nil {
		return nil, err
	}
	return s.store.UpdateMessage(ctx, messageID, text)
}

// DeleteMessage удаляет сообщение. Только оператор/администратор.
func (s *ChatService) DeleteMessage(ctx context.Context, actor *models.Identity, messageID uuid.UUID) error {
	if err := policy.Authorize(actor, policy.ActionDeleteMessage); err != nil {
		return err
	}
	return s.store.DeleteMessage(ctx, messageID)
}

// Escalate переводит чат из режима bot в режим agent.
// Системное действие автоответчика, не действие вызывающего,
// поэтому policy здесь не участвует.
func (s *ChatService) Escalate(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	mode := models.ModeAgent
	return s.store.UpdateChat(ctx, chatID, models.ChatPatch{Mode: &mode})
}

// DeleteChat удаляет чат со всеми сообщениями. Только администратор.
func (s *ChatService) DeleteChat(ctx context.Context, actor *models.Identity, chatID uuid.UUID) error {
	if err := policy.Authorize(actor, policy.ActionDeleteChat); err != nil {
		return err
	}
	return s.store.DeleteChat(ctx, chatID)
}
