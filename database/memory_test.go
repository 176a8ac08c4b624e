package database

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/egor/supportchat/models"
)

func newChat(t *testing.T, s *Memory, mode models.Mode) *models.Chat {
	t.Helper()
	chat, err := s.CreateChat(context.Background(), uuid.New(), mode)
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	return chat
}

func sendText(t *testing.T, s *Memory, chatID uuid.UUID, text string) *models.Message {
	t.Helper()
	msg, err := s.AddMessage(context.Background(), chatID, models.SenderCustomer, nil, text)
	if err != nil {
		t.Fatalf("AddMessage(%q): %v", text, err)
	}
	return msg
}

func TestCreateChatDefaults(t *testing.T) {
	s := NewMemory()
	chat := newChat(t, s, "")

	if chat.Mode != models.ModeBot {
		t.Errorf("режим по умолчанию = %q, want %q", chat.Mode, models.ModeBot)
	}
	if chat.ID == uuid.Nil {
		t.Error("чат должен получить суррогатный id")
	}
	if !chat.UpdatedAt.Equal(chat.CreatedAt) {
		t.Error("updated_at нового чата должен совпадать с created_at")
	}
}

func TestCreateChatInvalid(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.CreateChat(ctx, uuid.Nil, models.ModeBot); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("пустой customer_id: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.CreateChat(ctx, uuid.New(), models.Mode("pending")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("неизвестный режим: err = %v, want ErrInvalidArgument", err)
	}
}

// Полный цикл: создание → три сообщения → чтение в порядке создания →
// отметка о прочтении.
func TestChatRoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	chat := newChat(t, s, models.ModeBot)

	texts := []string{"первое", "второе", "третье"}
	for _, text := range texts {
		sendText(t, s, chat.ID, text)
	}

	got, total, err := s.GetChat(ctx, chat.ID, 1, DefaultPageSize)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if total != 3 || len(got.Messages) != 3 {
		t.Fatalf("сообщений = %d (total %d), want 3", len(got.Messages), total)
	}
	for i, m := range got.Messages {
		if m.Text != texts[i] {
			t.Errorf("порядок нарушен: messages[%d] = %q, want %q", i, m.Text, texts[i])
		}
		if m.Read {
			t.Errorf("messages[%d] прочитано до MarkAllRead", i)
		}
	}
	if got.LastMessage == nil || got.LastMessage.Text != "третье" {
		t.Errorf("LastMessage = %v, want «третье»", got.LastMessage)
	}

	n, err := s.MarkAllRead(ctx, chat.ID)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if n != 3 {
		t.Errorf("MarkAllRead = %d, want 3", n)
	}

	got, _, err = s.GetChat(ctx, chat.ID, 1, DefaultPageSize)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	for i, m := range got.Messages {
		if !m.Read {
			t.Errorf("messages[%d] не прочитано после MarkAllRead", i)
		}
	}
}

func TestMarkAllReadIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	chat := newChat(t, s, models.ModeBot)
	sendText(t, s, chat.ID, "привет")

	if n, _ := s.MarkAllRead(ctx, chat.ID); n != 1 {
		t.Errorf("первый вызов: %d, want 1", n)
	}
	if n, _ := s.MarkAllRead(ctx, chat.ID); n != 0 {
		t.Errorf("повторный вызов: %d, want 0", n)
	}

	if _, err := s.MarkAllRead(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий чат: err = %v, want ErrNotFound", err)
	}
}

func TestAddMessageInvariants(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	chat := newChat(t, s, models.ModeBot)
	agentID := uuid.New()

	if _, err := s.AddMessage(ctx, chat.ID, models.SenderCustomer, nil, "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("пустой текст: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.AddMessage(ctx, chat.ID, models.Sender("user"), nil, "привет"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("неизвестный отправитель: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.AddMessage(ctx, chat.ID, models.SenderCustomer, &agentID, "привет"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("agent_id при sender=customer: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.AddMessage(ctx, uuid.New(), models.SenderCustomer, nil, "привет"); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий чат: err = %v, want ErrNotFound", err)
	}

	msg, err := s.AddMessage(ctx, chat.ID, models.SenderAgent, &agentID, "здравствуйте")
	if err != nil {
		t.Fatalf("AddMessage от оператора: %v", err)
	}
	if msg.AgentID == nil || *msg.AgentID != agentID {
		t.Errorf("AgentID = %v, want %s", msg.AgentID, agentID)
	}
}

func TestUpdateMessage(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	chat := newChat(t, s, models.ModeBot)
	msg := sendText(t, s, chat.ID, "привет")

	// Пустой текст отклоняется и ничего не меняет
	if _, err := s.UpdateMessage(ctx, msg.ID, "   "); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("пустой текст: err = %v, want ErrInvalidArgument", err)
	}
	got, _, _ := s.GetChat(ctx, chat.ID, 1, DefaultPageSize)
	if got.Messages[0].Text != "привет" {
		t.Errorf("текст изменился после отклонённой правки: %q", got.Messages[0].Text)
	}

	updated, err := s.UpdateMessage(ctx, msg.ID, "привет!")
	if err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}
	if updated.Text != "привет!" {
		t.Errorf("Text = %q, want %q", updated.Text, "привет!")
	}
	if updated.Sender != msg.Sender || updated.Read != msg.Read {
		t.Error("правка текста не должна менять отправителя и флаг прочтения")
	}

	if _, err := s.UpdateMessage(ctx, uuid.New(), "текст"); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующее сообщение: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	chat := newChat(t, s, models.ModeBot)
	msg := sendText(t, s, chat.ID, "лишнее")

	if err := s.DeleteMessage(ctx, msg.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := s.DeleteMessage(ctx, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: err = %v, want ErrNotFound", err)
	}

	if _, total, _ := s.GetChat(ctx, chat.ID, 1, DefaultPageSize); total != 0 {
		t.Errorf("после удаления сообщений = %d, want 0", total)
	}
}

// Каскад: чат исчезает вместе со всеми сообщениями, по отдельности
// они тоже не находятся.
func TestDeleteChatCascade(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	chat := newChat(t, s, models.ModeBot)
	m1 := sendText(t, s, chat.ID, "раз")
	m2 := sendText(t, s, chat.ID, "два")

	if err := s.DeleteChat(ctx, chat.ID); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}

	if _, _, err := s.GetChat(ctx, chat.ID, 1, DefaultPageSize); !errors.Is(err, ErrNotFound) {
		t.Errorf("чат найден после удаления: err = %v", err)
	}
	for _, id := range []uuid.UUID{m1.ID, m2.ID} {
		if err := s.DeleteMessage(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("сообщение %s пережило каскад: err = %v", id, err)
		}
	}

	if err := s.DeleteChat(ctx, chat.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление чата: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateChatModeForwardOnly(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	chat := newChat(t, s, models.ModeBot)

	modeAgent := models.ModeAgent
	modeBot := models.ModeBot
	modeClosed := models.ModeClosed

	updated, err := s.UpdateChat(ctx, chat.ID, models.ChatPatch{Mode: &modeAgent})
	if err != nil {
		t.Fatalf("bot → agent: %v", err)
	}
	if updated.Mode != models.ModeAgent {
		t.Errorf("Mode = %q, want agent", updated.Mode)
	}

	// Назад нельзя
	if _, err := s.UpdateChat(ctx, chat.ID, models.ChatPatch{Mode: &modeBot}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("agent → bot: err = %v, want ErrInvalidArgument", err)
	}

	if _, err := s.UpdateChat(ctx, chat.ID, models.ChatPatch{Mode: &modeClosed}); err != nil {
		t.Fatalf("agent → closed: %v", err)
	}
	if _, err := s.UpdateChat(ctx, chat.ID, models.ChatPatch{Mode: &modeAgent}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("closed → agent: err = %v, want ErrInvalidArgument", err)
	}

	if _, err := s.UpdateChat(ctx, uuid.New(), models.ChatPatch{Mode: &modeAgent}); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий чат: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateChatAssignment(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	chat := newChat(t, s, models.ModeBot)
	agentID := uuid.New()

	// Назначение в режиме bot запрещено
	if _, err := s.UpdateChat(ctx, chat.ID, models.ChatPatch{AssignedAgentID: &agentID}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("назначение в режиме bot: err = %v, want ErrInvalidArgument", err)
	}

	// Перевод на оператора с назначением одним патчем
	modeAgent := models.ModeAgent
	updated, err := s.UpdateChat(ctx, chat.ID, models.ChatPatch{Mode: &modeAgent, AssignedAgentID: &agentID})
	if err != nil {
		t.Fatalf("UpdateChat: %v", err)
	}
	if updated.AssignedAgentID == nil || *updated.AssignedAgentID != agentID {
		t.Errorf("AssignedAgentID = %v, want %s", updated.AssignedAgentID, agentID)
	}

	// Закрытие снимает назначение
	modeClosed := models.ModeClosed
	updated, err = s.UpdateChat(ctx, chat.ID, models.ChatPatch{Mode: &modeClosed})
	if err != nil {
		t.Fatalf("UpdateChat: %v", err)
	}
	if updated.AssignedAgentID != nil {
		t.Errorf("закрытый чат сохранил назначение: %v", updated.AssignedAgentID)
	}
}

func TestListChatsOrderingAndFilter(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first := newChat(t, s, models.ModeBot)
	second := newChat(t, s, models.ModeBot)

	// Активность в первом чате делает его самым свежим
	sendText(t, s, first.ID, "новое сообщение")

	list, total, err := s.ListChats(ctx, models.ChatFilter{}, 1, DefaultPageSize)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("чатов = %d (total %d), want 2", len(list), total)
	}
	if list[0].ID != first.ID {
		t.Errorf("первым должен идти чат с последней активностью, got %s", list[0].ID)
	}
	if list[0].UnreadCount != 1 {
		t.Errorf("UnreadCount = %d, want 1", list[0].UnreadCount)
	}
	if list[0].LastMessage == nil || list[0].LastMessage.Text != "новое сообщение" {
		t.Errorf("LastMessage = %v", list[0].LastMessage)
	}

	// Фильтр по клиенту
	list, total, err = s.ListChats(ctx, models.ChatFilter{CustomerID: &second.CustomerID}, 1, DefaultPageSize)
	if err != nil {
		t.Fatalf("ListChats с фильтром: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != second.ID {
		t.Errorf("фильтр по клиенту вернул %d чатов", len(list))
	}

	// Пустой результат — не ошибка
	other := uuid.New()
	list, total, err = s.ListChats(ctx, models.ChatFilter{CustomerID: &other}, 1, DefaultPageSize)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if total != 0 || len(list) != 0 {
		t.Errorf("чужой клиент увидел %d чатов", len(list))
	}
}
