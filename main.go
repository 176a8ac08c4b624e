package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/egor/supportchat/bot"
	"github.com/egor/supportchat/database"
	"github.com/egor/supportchat/handlers"
	"github.com/egor/supportchat/middleware"
	"github.com/egor/supportchat/models"
	"github.com/egor/supportchat/service"
	"github.com/egor/supportchat/websocket"
)

func main() {
	// Загружаем переменные окружения из .env файла
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	// Выбор хранилища: PostgreSQL по умолчанию, STORE=memory для
	// локальной разработки без базы
	var (
		store      service.Store
		agentStore handlers.AgentStore
	)
	if os.Getenv("STORE") == "memory" {
		mem := database.NewMemory()
		seedDevAdmin(mem)
		store, agentStore = mem, mem
		log.Println("Хранилище: in-memory (данные не переживут перезапуск)")
	} else {
		db, err := database.Open()
		if err != nil {
			log.Fatalf("Ошибка подключения к базе данных: %v", err)
		}
		defer db.Close()
		pg := database.NewPostgres(db)
		store, agentStore = pg, pg
	}

	chatService := service.New(store)
	handlers.SetChatService(chatService)
	handlers.SetAgentStore(agentStore)
	handlers.SetResponder(bot.NewResponder())

	// Инициализация роутера Gin
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// Настройка CORS для взаимодействия с фронтендом
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{envDefault("CORS_ORIGIN", "http://localhost:3000")},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// Инициализация WebSocket хаба
	hub := websocket.NewHub()
	go hub.Run()
	handlers.SetWebSocketHub(hub)

	// API эндпоинты. Идентичность разбирается на всей группе:
	// аноним не ошибка, решения о доступе принимает policy.
	api := r.Group("/api")
	api.Use(middleware.Identity())
	{
		// Авторизация операторов (публичный)
		api.POST("/auth/login", handlers.Login)

		chats := api.Group("/chats")
		{
			// Открытые операции: виджет работает без логина
			chats.GET("", handlers.GetChats)
			chats.POST("", handlers.CreateChat)
			chats.GET("/:id", handlers.GetChatByID)
			chats.POST("/:id/read", handlers.MarkRead)
			chats.POST("/messages", handlers.SendMessage)

			// Операции панели операторов
			chats.PATCH("/:id", middleware.RequireAuth(), handlers.UpdateChat)
			chats.DELETE("/:id", middleware.RequireAuth(), handlers.DeleteChat)
			chats.PATCH("/messages/:id", middleware.RequireAuth(), handlers.UpdateMessage)
			chats.DELETE("/messages/:id", middleware.RequireAuth(), handlers.DeleteMessage)
		}
	}

	// WebSocket эндпоинт
	r.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(hub, c.Writer, c.Request)
	})

	// Запуск сервера
	addr := ":" + envDefault("PORT", "8080")
	log.Printf("Сервер запущен на порту %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

// seedDevAdmin добавляет администратора в in-memory хранилище,
// чтобы dev-режим работал без initdb.
func seedDevAdmin(mem *database.Memory) {
	email := envDefault("ADMIN_EMAIL", "admin@example.com")
	password := envDefault("ADMIN_PASSWORD", "password")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Ошибка хеширования пароля: %v", err)
	}

	mem.SeedAgent(models.Agent{
		ID:           uuid.New(),
		Name:         "Администратор",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       true,
	})
	log.Printf("Создан dev-администратор %s", email)
}

func envDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
