package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/egor/supportchat/bot"
	"github.com/egor/supportchat/database"
	"github.com/egor/supportchat/middleware"
	"github.com/egor/supportchat/models"
	"github.com/egor/supportchat/policy"
	"github.com/egor/supportchat/service"
	"github.com/egor/supportchat/websocket"
)

// chatService — сервис чатов, устанавливается при старте.
var chatService *service.ChatService

// responder — автоответчик, может быть nil, если выключен.
var responder *bot.Responder

// SetChatService устанавливает сервис чатов для обработчиков.
func SetChatService(svc *service.ChatService) {
	chatService = svc
}

// SetResponder устанавливает автоответчик для обработчиков.
func SetResponder(r *bot.Responder) {
	responder = r
}

// PaginationResponse стандартная структура ответа с пагинацией
type PaginationResponse struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalItems int         `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

// writeError переводит ошибку сервиса в HTTP-статус.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, policy.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, policy.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
	}
}

func pagination(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(database.DefaultPageSize)))
	return page, size
}

func totalPages(totalItems, size int) int {
	n := (totalItems + size - 1) / size
	if n < 1 {
		n = 1
	}
	return n
}

// ─────────────────────────────── чаты

// GetChats возвращает список чатов, видимых вызывающему.
func GetChats(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	page, size := pagination(c)

	chats, totalItems, err := chatService.ListChats(c.Request.Context(), actor, page, size)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Items:      chats,
		Page:       page,
		PageSize:   size,
		TotalItems: totalItems,
		TotalPages: totalPages(totalItems, size),
	})
}

// GetChatByID возвращает информацию о конкретном чате и его сообщениях
func GetChatByID(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный id чата"})
		return
	}

	page, size := pagination(c)
	chat, totalMessages, err := chatService.GetChat(c.Request.Context(), middleware.ActorFrom(c), chatID, page, size)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, struct {
		Chat       *models.Chat `json:"chat"`
		Page       int          `json:"page"`
		PageSize   int          `json:"pageSize"`
		TotalItems int          `json:"totalMessages"`
		TotalPages int          `json:"totalPages"`
	}{
		Chat:       chat,
		Page:       page,
		PageSize:   size,
		TotalItems: totalMessages,
		TotalPages: totalPages(totalMessages, size),
	})
}

type createChatRequest struct {
	CustomerID string `json:"customerId"`
	Mode       string `json:"mode"`
}

func (r createChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CustomerID, validation.Required, is.UUID),
		validation.Field(&r.Mode, validation.In("bot", "agent", "closed")),
	)
}

// CreateChat создает новый чат
func CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректные данные: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customerID, _ := uuid.Parse(req.CustomerID)
	chat, err := chatService.CreateChat(c.Request.Context(), middleware.ActorFrom(c), customerID, models.Mode(req.Mode))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

type updateChatRequest struct {
	Mode            *string `json:"mode"`
	AssignedAgentID *string `json:"assignedAgentId"`
}

func (r updateChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode, validation.In("bot", "agent", "closed")),
		validation.Field(&r.AssignedAgentID, is.UUID),
	)
}

// UpdateChat меняет режим чата и/или назначает оператора.
// Неизвестные поля в теле запроса — ошибка, а не молчаливый no-op.
func UpdateChat(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный id чата"})
		return
	}

	var req updateChatRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректные данные: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var patch models.ChatPatch
	if req.Mode != nil {
		mode := models.Mode(*req.Mode)
		patch.Mode = &mode
	}
	if req.AssignedAgentID != nil {
		id, _ := uuid.Parse(*req.AssignedAgentID)
		patch.AssignedAgentID = &id
	}

	chat, err := chatService.UpdateChat(c.Request.Context(), middleware.ActorFrom(c), chatID, patch)
	if err != nil {
		writeError(c, err)
		return
	}

	WebSocketHub.Broadcast(websocket.ChatUpdatedEvent(chat))
	c.JSON(http.StatusOK, chat)
}

// DeleteChat удаляет чат со всеми сообщениями. Только для администраторов.
func DeleteChat(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный id чата"})
		return
	}

	if err := chatService.DeleteChat(c.Request.Context(), middleware.ActorFrom(c), chatID); err != nil {
		writeError(c, err)
		return
	}

	if responder != nil {
		responder.Forget(chatID)
	}
	WebSocketHub.Broadcast(websocket.ChatDeletedEvent(chatID))
	c.JSON(http.StatusOK, gin.H{"deleted": chatID})
}

// ─────────────────────────────── сообщения

type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	AgentID string `json:"agentId"`
}

func (r sendMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ChatID, validation.Required, is.UUID),
		validation.Field(&r.Sender, validation.Required, validation.In("customer", "agent", "bot")),
		validation.Field(&r.Text, validation.Required),
		validation.Field(&r.AgentID, is.UUID),
	)
}

// SendMessage отправляет сообщение в чат
func SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректные данные: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chatID, _ := uuid.Parse(req.ChatID)
	in := service.SendMessageInput{
		ChatID: chatID,
		Sender: models.Sender(req.Sender),
		Text:   req.Text,
	}
	if req.AgentID != "" {
		id, _ := uuid.Parse(req.AgentID)
		in.AgentID = &id
	}

	actor := middleware.ActorFrom(c)
	message, err := chatService.SendMessage(c.Request.Context(), actor, in)
	if err != nil {
		writeError(c, err)
		return
	}

	// Уведомляем панели операторов и, если чат у автоответчика,
	// запускаем генерацию ответа
	chat, _, err := chatService.GetChat(c.Request.Context(), actor, chatID, 1, database.DefaultPageSize)
	if err != nil {
		log.Printf("Предупреждение: не удалось получить обновленный чат: %v", err)
	} else {
		WebSocketHub.Broadcast(websocket.NewMessageEvent(chat, message))
		if responder != nil {
			go autoRespond(chat, message)
		}
	}

	c.JSON(http.StatusOK, message)
}

// autoRespond генерирует ответ автоответчика на сообщение клиента.
// Выполняется вне запроса с собственным тайм-аутом; при эскалации
// чат передаётся оператору.
func autoRespond(chat *models.Chat, message *models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reply, escalate := responder.Reply(ctx, chat, message)
	if escalate {
		updated, err := chatService.Escalate(ctx, chat.ID)
		if err != nil {
			log.Printf("Ошибка эскалации чата %s: %v", chat.ID, err)
			return
		}
		WebSocketHub.Broadcast(websocket.ChatUpdatedEvent(updated))
		return
	}
	if reply == "" {
		return
	}

	botMsg, err := chatService.SendMessage(ctx, nil, service.SendMessageInput{
		ChatID: chat.ID,
		Sender: models.SenderBot,
		Text:   reply,
	})
	if err != nil {
		log.Printf("Ошибка сохранения ответа автоответчика в чат %s: %v", chat.ID, err)
		return
	}
	WebSocketHub.Broadcast(websocket.NewMessageEvent(chat, botMsg))
}

// MarkRead помечает все сообщения чата прочитанными.
func MarkRead(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный id чата"})
		return
	}

	n, err := chatService.MarkRead(c.Request.Context(), middleware.ActorFrom(c), chatID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": n})
}

type updateMessageRequest struct {
	Text string `json:"text"`
}

func (r updateMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

// UpdateMessage редактирует текст сообщения.
// Патч принимает единственное легальное поле — text; всё прочее отклоняется.
func UpdateMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный id сообщения"})
		return
	}

	var req updateMessageRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректные данные: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := chatService.UpdateMessage(c.Request.Context(), middleware.ActorFrom(c), messageID, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

// DeleteMessage удаляет сообщение.
func DeleteMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный id сообщения"})
		return
	}

	if err := chatService.DeleteMessage(c.Request.Context(), middleware.ActorFrom(c), messageID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": messageID})
}
