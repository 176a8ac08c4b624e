// Package policy — чистые решения о доступе: (актор, действие) → разрешено/запрещено.
// Пакет не ходит в базу и не знает про HTTP, поэтому проверяется обычными юнит-тестами.
package policy

import (
	"errors"

	"github.com/egor/supportchat/models"
)

var (
	// ErrUnauthenticated — операция требует входа, а вызывающий аноним.
	ErrUnauthenticated = errors.New("требуется авторизация")
	// ErrForbidden — вызывающий аутентифицирован, но роль не даёт доступа.
	ErrForbidden = errors.New("доступ запрещён")
)

// Action — действие, на которое запрашивается доступ.
type Action string

const (
	ActionListChats     Action = "list_chats"
	ActionGetChat       Action = "get_chat"
	ActionCreateChat    Action = "create_chat"
	ActionUpdateChat    Action = "update_chat"
	ActionSendMessage   Action = "send_message"
	ActionMarkRead      Action = "mark_read"
	ActionDeleteChat    Action = "delete_chat"
	ActionUpdateMessage Action = "update_message"
	ActionDeleteMessage Action = "delete_message"
)

// Authorize решает, может ли актор выполнить действие.
// actor == nil означает анонимного вызывающего.
//
// Открытые операции: просмотр чата, создание чата, отправка сообщения и
// отметка о прочтении доступны всем, включая анонимов (виджет на сайте
// работает без логина). Изменение чата и правка/удаление сообщений
// требуют оператора или администратора. Удаление чата — только администратор.
func Authorize(actor *models.Identity, action Action) error {
	switch action {
	case ActionListChats, ActionGetChat, ActionCreateChat, ActionSendMessage, ActionMarkRead:
		return nil

	case ActionUpdateChat, ActionUpdateMessage, ActionDeleteMessage:
		if actor == nil {
			return ErrUnauthenticated
		}
		if !actor.Role.Privileged() {
			return ErrForbidden
		}
		return nil

	case ActionDeleteChat:
		if actor == nil {
			return ErrUnauthenticated
		}
		if actor.Role != models.RoleAdmin {
			return ErrForbidden
		}
		return nil
	}

	// Неизвестное действие запрещаем: новые операции должны
	// явно появиться в таблице выше.
	return ErrForbidden
}

// ListScope определяет видимость списка чатов.
// Оператор и администратор видят все чаты; клиент (и любая неизвестная
// роль) — только свои. Аноним видит список без ограничений — так ведёт
// себя и исходная система, виджет сам ограничивает себя одним чатом.
func ListScope(actor *models.Identity) models.ChatFilter {
	if actor == nil {
		return models.ChatFilter{}
	}
	if actor.Role.Privileged() {
		return models.ChatFilter{}
	}
	id := actor.UserID
	return models.ChatFilter{CustomerID: &id}
}
