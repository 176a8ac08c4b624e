package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egor/supportchat/auth"
	"github.com/egor/supportchat/database"
	"github.com/egor/supportchat/models"
)

// AgentStore — доступ к учётным записям операторов.
type AgentStore interface {
	GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error)
}

// agentStore устанавливается при старте.
var agentStore AgentStore

// SetAgentStore устанавливает хранилище операторов для обработчиков.
func SetAgentStore(store AgentStore) {
	agentStore = store
}

// Login обрабатывает авторизацию операторов и администраторов
func Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&credentials); err != nil {
		log.Printf("Ошибка парсинга данных для авторизации: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Попытка авторизации для пользователя: %s", credentials.Email)

	agent, err := agentStore.GetAgentByEmail(c.Request.Context(), credentials.Email)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("Ошибка получения данных оператора %s: %v", credentials.Email, err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверные учетные данные"})
		return
	}

	// Проверяем активен ли аккаунт
	if !agent.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "аккаунт деактивирован"})
		return
	}

	// Проверяем пароль (хешированный в базе)
	if err := database.VerifyPassword(credentials.Password, agent.PasswordHash); err != nil {
		log.Printf("Ошибка аутентификации для %s: %v", credentials.Email, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверные учетные данные"})
		return
	}

	token, err := auth.GenerateToken(agent.ID, agent.Role)
	if err != nil {
		log.Printf("Ошибка генерации токена для %s: %v", credentials.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка генерации токена"})
		return
	}

	agent.PasswordHash = ""

	log.Printf("Успешная авторизация оператора: %s (ID: %s)", agent.Email, agent.ID)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"agent": agent,
	})
}
