// Создание схемы PostgreSQL и тестовых данных.
// Запуск: go run ./scripts
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Загружаем переменные окружения из .env файла
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		env("PG_HOST", "localhost"),
		env("PG_PORT", "5432"),
		env("PG_USER", "postgres"),
		os.Getenv("PG_PASSWORD"),
		env("PG_DATABASE", "supportchat"),
		env("PG_SSL_MODE", "disable"),
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Ошибка проверки соединения с БД: %v", err)
	}
	log.Println("Успешное подключение к базе данных")

	createTables(db)

	// Создаем тестового администратора и оператора
	adminID := seedAgent(db, "Администратор", "admin@example.com", "admin")
	agentID := seedAgent(db, "Оператор", "agent@example.com", "agent")

	// Создаем тестовые чаты с сообщениями
	now := time.Now()
	for i := 0; i < 3; i++ {
		customerID := uuid.New()
		chatID := uuid.New()
		mode := "bot"
		var assigned any
		if i == 1 {
			mode = "agent"
			assigned = agentID
		}

		_, err = db.Exec(`
			INSERT INTO chats (id, customer_id, assigned_agent_id, mode, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			chatID, customerID, assigned, mode,
			now.Add(-time.Duration(i*24)*time.Hour), now.Add(-time.Duration(i*2)*time.Hour),
		)
		if err != nil {
			log.Fatalf("Ошибка создания тестового чата: %v", err)
		}
		log.Printf("Создан тестовый чат %s (режим %s)", chatID, mode)

		seedMessages(db, chatID, agentID, i)
	}

	log.Printf("База данных инициализирована. Администратор: %s", adminID)
}

// Создание таблиц базы данных
func createTables(db *sql.DB) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id            UUID PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL,
			active        BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS chats (
			id                UUID PRIMARY KEY,
			customer_id       UUID NOT NULL,
			assigned_agent_id UUID REFERENCES agents(id),
			mode              TEXT NOT NULL DEFAULT 'bot',
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         UUID PRIMARY KEY,
			chat_id    UUID NOT NULL REFERENCES chats(id),
			sender     TEXT NOT NULL,
			agent_id   UUID,
			text       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			read       BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_customer_id ON chats(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats(updated_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Ошибка создания таблиц: %v", err)
		}
	}
	log.Println("Таблицы созданы")
}

func seedAgent(db *sql.DB, name, email, role string) uuid.UUID {
	id := uuid.New()
	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Ошибка хеширования пароля: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO agents (id, name, email, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (email) DO NOTHING`,
		id, name, email, string(passwordHash), role,
	)
	if err != nil {
		log.Fatalf("Ошибка создания оператора %s: %v", email, err)
	}
	log.Printf("Создан %s %s с ID: %s", role, email, id)
	return id
}

func seedMessages(db *sql.DB, chatID, agentID uuid.UUID, n int) {
	texts := []string{
		"Здравствуйте! Подскажите, пожалуйста, по заказу.",
		"Добрый день! Сейчас посмотрю.",
		"Спасибо, жду.",
	}

	base := time.Now().Add(-time.Hour)
	for i, text := range texts {
		sender := "customer"
		var agent any
		if i == 1 && n == 1 {
			sender = "agent"
			agent = agentID
		}

		_, err := db.Exec(`
			INSERT INTO messages (id, chat_id, sender, agent_id, text, created_at, read)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE)`,
			uuid.New(), chatID, sender, agent, text, base.Add(time.Duration(i)*time.Minute),
		)
		if err != nil {
			log.Fatalf("Ошибка создания тестового сообщения: %v", err)
		}
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
