package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/egor/supportchat/models"
)

// Memory — хранилище чатов в памяти. Используется в режиме STORE=memory
// (локальная разработка без PostgreSQL) и в тестах модели состояний.
// Семантика операций полностью повторяет Postgres; мьютекс играет роль
// транзакционной границы.
type Memory struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]*models.Chat
	messages map[uuid.UUID]*memMessage
	agents   map[string]*models.Agent // по email
	seq      uint64                   // порядок вставки сообщений
}

// memMessage хранит порядок вставки: метки времени могут совпадать,
// а порядок создания обязан быть стабильным.
type memMessage struct {
	models.Message
	seq uint64
}

// NewMemory создает пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{
		chats:    make(map[uuid.UUID]*models.Chat),
		messages: make(map[uuid.UUID]*memMessage),
		agents:   make(map[string]*models.Agent),
	}
}

// ListChats возвращает сводки чатов по убыванию последней активности.
func (s *Memory) ListChats(_ context.Context, filter models.ChatFilter, page, size int) ([]models.ChatSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.ChatSummary
	for _, c := range s.chats {
		if filter.CustomerID != nil && c.CustomerID != *filter.CustomerID {
			continue
		}
		sum := models.ChatSummary{
			ID:              c.ID,
			CustomerID:      c.CustomerID,
			AssignedAgentID: c.AssignedAgentID,
			Mode:            c.Mode,
			CreatedAt:       c.CreatedAt,
			UpdatedAt:       c.UpdatedAt,
		}
		for _, m := range s.messagesOf(c.ID) {
			if !m.Read {
				sum.UnreadCount++
			}
			msg := m
			sum.LastMessage = &msg
		}
		all = append(all, sum)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	total := len(all)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// GetChat возвращает чат и его сообщения в порядке создания.
func (s *Memory) GetChat(_ context.Context, chatID uuid.UUID, page, size int) (*models.Chat, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return nil, 0, fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
	}

	chat := *c
	msgs := s.messagesOf(chatID)
	total := len(msgs)

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	chat.Messages = append([]models.Message(nil), msgs[start:end]...)
	if total > 0 {
		last := msgs[total-1]
		chat.LastMessage = &last
	}
	return &chat, total, nil
}

// CreateChat создаёт чат. Режим по умолчанию — bot.
func (s *Memory) CreateChat(_ context.Context, customerID uuid.UUID, mode models.Mode) (*models.Chat, error) {
	if mode == "" {
		mode = models.ModeBot
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("неизвестный режим %q: %w", mode, ErrInvalidArgument)
	}
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("пустой customer_id: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	chat := &models.Chat{
		ID:         uuid.New(),
		CustomerID: customerID,
		Mode:       mode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.chats[chat.ID] = chat

	out := *chat
	return &out, nil
}

// UpdateChat применяет частичное обновление с теми же инвариантами,
// что и Postgres: режим только вперёд, назначение только в режиме agent.
func (s *Memory) UpdateChat(_ context.Context, chatID uuid.UUID, patch models.ChatPatch) (*models.Chat, error) {
	if patch.Mode != nil && !patch.Mode.Valid() {
		return nil, fmt.Errorf("неизвестный режим %q: %w", *patch.Mode, ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
	}

	newMode := c.Mode
	if patch.Mode != nil {
		if !c.Mode.CanTransitionTo(*patch.Mode) {
			return nil, fmt.Errorf("недопустимый переход режима %s → %s: %w", c.Mode, *patch.Mode, ErrInvalidArgument)
		}
		newMode = *patch.Mode
	}

	newAssigned := c.AssignedAgentID
	if patch.AssignedAgentID != nil {
		newAssigned = patch.AssignedAgentID
	}
	if newMode != models.ModeAgent {
		if patch.AssignedAgentID != nil {
			return nil, fmt.Errorf("назначение оператора возможно только в режиме agent: %w", ErrInvalidArgument)
		}
		newAssigned = nil
	}

	c.Mode = newMode
	c.AssignedAgentID = newAssigned
	c.UpdatedAt = time.Now()

	out := *c
	return &out, nil
}

// AddMessage добавляет сообщение и сдвигает updated_at чата.
func (s *Memory) AddMessage(_ context.Context, chatID uuid.UUID, sender models.Sender, agentID *uuid.UUID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("пустой текст сообщения: %w", ErrInvalidArgument)
	}
	if !sender.Valid() {
		return nil, fmt.Errorf("неизвестный отправитель %q: %w", sender, ErrInvalidArgument)
	}
	if agentID != nil && sender != models.SenderAgent {
		return nil, fmt.Errorf("agent_id допустим только при sender=agent: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
	}

	now := time.Now()
	s.seq++
	msg := &memMessage{
		Message: models.Message{
			ID:        uuid.New(),
			ChatID:    chatID,
			Sender:    sender,
			AgentID:   agentID,
			Text:      text,
			CreatedAt: now,
		},
		seq: s.seq,
	}
	s.messages[msg.ID] = msg
	c.UpdatedAt = now

	out := msg.Message
	return &out, nil
}

// MarkAllRead помечает все непрочитанные сообщения чата и возвращает их число.
func (s *Memory) MarkAllRead(_ context.Context, chatID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return 0, fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
	}

	n := 0
	for _, m := range s.messages {
		if m.ChatID == chatID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

// UpdateMessage заменяет текст сообщения, не трогая остальные поля.
func (s *Memory) UpdateMessage(_ context.Context, messageID uuid.UUID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("пустой текст сообщения: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("сообщение %s: %w", messageID, ErrNotFound)
	}

	m.Text = text
	out := m.Message
	return &out, nil
}

// DeleteMessage удаляет одно сообщение.
func (s *Memory) DeleteMessage(_ context.Context, messageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[messageID]; !ok {
		return fmt.Errorf("сообщение %s: %w", messageID, ErrNotFound)
	}
	delete(s.messages, messageID)
	return nil
}

// DeleteChat удаляет чат и каскадно все его сообщения.
func (s *Memory) DeleteChat(_ context.Context, chatID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
	}
	delete(s.chats, chatID)
	for id, m := range s.messages {
		if m.ChatID == chatID {
			delete(s.messages, id)
		}
	}
	return nil
}

// ─────────────────────────────── операторы

// SeedAgent добавляет оператора (для dev-режима и тестов).
func (s *Memory) SeedAgent(agent models.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := agent
	s.agents[agent.Email] = &a
}

// GetAgentByEmail возвращает оператора по email.
func (s *Memory) GetAgentByEmail(_ context.Context, email string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[email]
	if !ok {
		return nil, fmt.Errorf("оператор %s: %w", email, ErrNotFound)
	}
	out := *a
	return &out, nil
}

// messagesOf возвращает сообщения чата в порядке создания.
// Вызывать только под мьютексом.
func (s *Memory) messagesOf(chatID uuid.UUID) []models.Message {
	var mm []*memMessage
	for _, m := range s.messages {
		if m.ChatID == chatID {
			mm = append(mm, m)
		}
	}
	sort.Slice(mm, func(i, j int) bool { return mm[i].seq < mm[j].seq })

	msgs := make([]models.Message, len(mm))
	for i, m := range mm {
		msgs[i] = m.Message
	}
	return msgs
}
