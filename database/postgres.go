package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/egor/supportchat/models"
)

// Postgres — хранилище чатов поверх PostgreSQL.
// Каждая мутация выполняется в собственной транзакции с ограниченным
// тайм-аутом: блокировки не удерживаются через сетевые ожидания.
type Postgres struct {
	db *sql.DB
}

// NewPostgres создает хранилище поверх открытого пула соединений.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// ─────────────────────────────── чтение

// ListChats возвращает сводки чатов, отсортированные по последней активности.
// Фильтр по клиенту применяется, только если он задан (решение принимает policy).
func (s *Postgres) ListChats(ctx context.Context, filter models.ChatFilter, page, size int) ([]models.ChatSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where := ""
	args := []any{}
	if filter.CustomerID != nil {
		where = "WHERE c.customer_id=$1"
		args = append(args, *filter.CustomerID)
	}

	// Подсчитываем общее количество чатов
	var total int
	countQuery := "SELECT COUNT(*) FROM chats c " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета чатов: %w", err)
	}

	q := fmt.Sprintf(`
      SELECT
        c.id,c.customer_id,c.assigned_agent_id,c.mode,c.created_at,c.updated_at,
        COUNT(CASE WHEN m.read=false THEN 1 END) AS unread,
        l.id,l.sender,l.agent_id,l.text,l.created_at,l.read
      FROM chats c
      LEFT JOIN messages m ON m.chat_id=c.id
      LEFT JOIN LATERAL (
        SELECT id,sender,agent_id,text,created_at,read
          FROM messages
         WHERE chat_id=c.id
         ORDER BY created_at DESC
         LIMIT 1
      ) l ON TRUE
      %s
      GROUP BY c.id,l.id,l.sender,l.agent_id,l.text,l.created_at,l.read
      ORDER BY c.updated_at DESC
      LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	offset := (page - 1) * size
	args = append(args, size, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения чатов: %w", err)
	}
	defer rows.Close()

	var list []models.ChatSummary
	for rows.Next() {
		var (
			chat         models.ChatSummary
			assignedNull sql.NullString
			lastID       sql.NullString
			lastSender   sql.NullString
			lastAgent    sql.NullString
			lastText     sql.NullString
			lastTime     sql.NullTime
			lastRead     sql.NullBool
		)
		if err := rows.Scan(
			&chat.ID, &chat.CustomerID, &assignedNull, &chat.Mode,
			&chat.CreatedAt, &chat.UpdatedAt, &chat.UnreadCount,
			&lastID, &lastSender, &lastAgent, &lastText, &lastTime, &lastRead,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования чата: %w", err)
		}

		if chat.AssignedAgentID, err = nullUUIDToPointer(assignedNull); err != nil {
			return nil, 0, fmt.Errorf("ошибка преобразования assigned_agent_id: %w", err)
		}

		if lastID.Valid {
			agentID, err := nullUUIDToPointer(lastAgent)
			if err != nil {
				return nil, 0, fmt.Errorf("ошибка преобразования agent_id: %w", err)
			}
			chat.LastMessage = &models.Message{
				ID:        uuid.MustParse(lastID.String),
				ChatID:    chat.ID,
				Sender:    models.Sender(lastSender.String),
				AgentID:   agentID,
				Text:      lastText.String,
				CreatedAt: lastTime.Time,
				Read:      lastRead.Bool,
			}
		}

		list = append(list, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка обработки результатов: %w", err)
	}

	return list, total, nil
}

// GetChat возвращает чат и его сообщения в порядке создания.
func (s *Postgres) GetChat(ctx context.Context, chatID uuid.UUID, page, size int) (*models.Chat, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		chat         models.Chat
		assignedNull sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id,customer_id,assigned_agent_id,mode,created_at,updated_at
          FROM chats WHERE id=$1`, chatID,
	).Scan(&chat.ID, &chat.CustomerID, &assignedNull, &chat.Mode, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("ошибка получения чата: %w", err)
	}

	if chat.AssignedAgentID, err = nullUUIDToPointer(assignedNull); err != nil {
		return nil, 0, fmt.Errorf("ошибка преобразования assigned_agent_id: %w", err)
	}

	// Подсчитываем общее количество сообщений
	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE chat_id=$1", chatID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета сообщений: %w", err)
	}

	offset := (page - 1) * size
	rows, err := s.db.QueryContext(ctx, `
        SELECT id,sender,agent_id,text,created_at,read
          FROM messages
         WHERE chat_id=$1
         ORDER BY created_at ASC
         LIMIT $2 OFFSET $3`, chatID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения сообщений: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m         models.Message
			agentNull sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Sender, &agentNull, &m.Text, &m.CreatedAt, &m.Read); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования сообщения: %w", err)
		}
		m.ChatID = chatID
		if m.AgentID, err = nullUUIDToPointer(agentNull); err != nil {
			return nil, 0, fmt.Errorf("ошибка преобразования agent_id: %w", err)
		}
		chat.Messages = append(chat.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка обработки сообщений: %w", err)
	}

	// Получаем последнее сообщение
	var (
		last      models.Message
		agentNull sql.NullString
	)
	err = s.db.QueryRowContext(ctx, `
        SELECT id,sender,agent_id,text,created_at,read
          FROM messages
         WHERE chat_id=$1
         ORDER BY created_at DESC LIMIT 1`, chatID,
	).Scan(&last.ID, &last.Sender, &agentNull, &last.Text, &last.CreatedAt, &last.Read)
	if err == nil {
		last.ChatID = chatID
		if last.AgentID, err = nullUUIDToPointer(agentNull); err != nil {
			return nil, 0, fmt.Errorf("ошибка преобразования agent_id: %w", err)
		}
		chat.LastMessage = &last
	} else if err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("ошибка получения последнего сообщения: %w", err)
	}

	return &chat, total, nil
}

// ─────────────────────────────── мутации

// CreateChat создаёт чат. Режим по умолчанию — bot.
func (s *Postgres) CreateChat(ctx context.Context, customerID uuid.UUID, mode models.Mode) (*models.Chat, error) {
	if mode == "" {
		mode = models.ModeBot
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("неизвестный режим %q: %w", mode, ErrInvalidArgument)
	}
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("пустой customer_id: %w", ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	chat := models.Chat{
		ID:         uuid.New(),
		CustomerID: customerID,
		Mode:       mode,
		CreatedAt:  time.Now(),
	}
	chat.UpdatedAt = chat.CreatedAt

	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO chats(id,customer_id,mode,created_at,updated_at)
        VALUES($1,$2,$3,$4,$5)`,
		chat.ID, chat.CustomerID, chat.Mode, chat.CreatedAt, chat.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("ошибка создания чата: %w", err)
	}

	log.Printf("Создан чат %s для клиента %s (режим %s)", chat.ID, customerID, mode)
	return &chat, nil
}

// UpdateChat применяет частичное обновление чата.
// Режим движется только вперёд (bot → agent → closed); откат — ошибка.
// Назначение оператора допустимо только в режиме agent; при закрытии
// чата назначение снимается.
func (s *Postgres) UpdateChat(ctx context.Context, chatID uuid.UUID, patch models.ChatPatch) (*models.Chat, error) {
	if patch.Mode != nil && !patch.Mode.Valid() {
		return nil, fmt.Errorf("неизвестный режим %q: %w", *patch.Mode, ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		mode         models.Mode
		assignedNull sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		"SELECT mode,assigned_agent_id FROM chats WHERE id=$1 FOR UPDATE", chatID,
	).Scan(&mode, &assignedNull)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения чата: %w", err)
	}

	assigned, err := nullUUIDToPointer(assignedNull)
	if err != nil {
		return nil, fmt.Errorf("ошибка преобразования assigned_agent_id: %w", err)
	}

	newMode := mode
	if patch.Mode != nil {
		if !mode.CanTransitionTo(*patch.Mode) {
			return nil, fmt.Errorf("недопустимый переход режима %s → %s: %w", mode, *patch.Mode, ErrInvalidArgument)
		}
		newMode = *patch.Mode
	}

	newAssigned := assigned
	if patch.AssignedAgentID != nil {
		newAssigned = patch.AssignedAgentID
	}
	if newMode != models.ModeAgent {
		// Назначение существует только пока чат у оператора
		if patch.AssignedAgentID != nil {
			return nil, fmt.Errorf("назначение оператора возможно только в режиме agent: %w", ErrInvalidArgument)
		}
		newAssigned = nil
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
        UPDATE chats SET mode=$1, assigned_agent_id=$2, updated_at=$3 WHERE id=$4`,
		newMode, uuidPointerToNullString(newAssigned), now, chatID,
	); err != nil {
		return nil, fmt.Errorf("ошибка обновления чата: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	chat, _, err := s.GetChat(ctx, chatID, 1, DefaultPageSize)
	if err != nil {
		return nil, err
	}
	log.Printf("Обновлён чат %s: режим %s", chatID, chat.Mode)
	return chat, nil
}

// AddMessage добавляет сообщение и обновляет время последней активности
// чата в одной транзакции.
func (s *Postgres) AddMessage(ctx context.Context, chatID uuid.UUID, sender models.Sender, agentID *uuid.UUID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("пустой текст сообщения: %w", ErrInvalidArgument)
	}
	if !sender.Valid() {
		return nil, fmt.Errorf("неизвестный отправитель %q: %w", sender, ErrInvalidArgument)
	}
	if agentID != nil && sender != models.SenderAgent {
		return nil, fmt.Errorf("agent_id допустим только при sender=agent: %w", ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Проверяем, существует ли чат
	var ok bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM chats WHERE id=$1)", chatID,
	).Scan(&ok); err != nil {
		return nil, fmt.Errorf("проверка чата: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
	}

	now := time.Now()
	msg := models.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		Sender:    sender,
		AgentID:   agentID,
		Text:      text,
		CreatedAt: now,
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO messages(id,chat_id,sender,agent_id,text,created_at,read)
        VALUES($1,$2,$3,$4,$5,$6,false)`,
		msg.ID, msg.ChatID, msg.Sender, uuidPointerToNullString(agentID), msg.Text, now,
	); err != nil {
		return nil, fmt.Errorf("вставка сообщения: %w", err)
	}

	// Обновляем время последнего изменения чата
	if _, err := tx.ExecContext(ctx,
		"UPDATE chats SET updated_at=$1 WHERE id=$2", now, chatID,
	); err != nil {
		return nil, fmt.Errorf("обновление чата: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &msg, nil
}

// MarkAllRead помечает все непрочитанные сообщения чата прочитанными
// и возвращает число затронутых. Повторный вызов возвращает 0.
func (s *Postgres) MarkAllRead(ctx context.Context, chatID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ok bool
	if err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM chats WHERE id=$1)", chatID,
	).Scan(&ok); err != nil {
		return 0, fmt.Errorf("проверка чата: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET read=true WHERE chat_id=$1 AND read=false", chatID,
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка отметки сообщений: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("RowsAffected: %w", err)
	}
	return int(n), nil
}

// UpdateMessage заменяет текст сообщения. Отправитель, agent_id и флаг
// прочтения неизменяемы после создания.
func (s *Postgres) UpdateMessage(ctx context.Context, messageID uuid.UUID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("пустой текст сообщения: %w", ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		m         models.Message
		agentNull sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
        UPDATE messages SET text=$1 WHERE id=$2
        RETURNING id,chat_id,sender,agent_id,created_at,read`,
		text, messageID,
	).Scan(&m.ID, &m.ChatID, &m.Sender, &agentNull, &m.CreatedAt, &m.Read)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("сообщение %s: %w", messageID, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка обновления сообщения: %w", err)
	}

	m.Text = text
	if m.AgentID, err = nullUUIDToPointer(agentNull); err != nil {
		return nil, fmt.Errorf("ошибка преобразования agent_id: %w", err)
	}
	return &m, nil
}

// DeleteMessage удаляет одно сообщение.
func (s *Postgres) DeleteMessage(ctx context.Context, messageID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id=$1", messageID)
	if err != nil {
		return fmt.Errorf("ошибка удаления сообщения: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("сообщение %s: %w", messageID, ErrNotFound)
	}
	return nil
}

// DeleteChat удаляет чат вместе со всеми его сообщениями.
// Каскад выполняется в одной транзакции: либо исчезает всё, либо ничего.
func (s *Postgres) DeleteChat(ctx context.Context, chatID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id=$1", chatID); err != nil {
		return fmt.Errorf("удаление сообщений чата: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id=$1", chatID)
	if err != nil {
		return fmt.Errorf("удаление чата: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("чат %s: %w", chatID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	log.Printf("Удалён чат %s со всеми сообщениями", chatID)
	return nil
}
