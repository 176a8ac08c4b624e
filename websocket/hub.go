package websocket

import (
	"encoding/json"
	"log"
)

// Hub обрабатывает WebSocket соединения панелей операторов.
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Исходящие события для всех клиентов
	broadcast chan []byte

	// Регистрация клиента
	Register chan *Client

	// Отмена регистрации клиента
	Unregister chan *Client
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run запускает Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Printf("Клиент подключился. Всего клиентов: %d", len(h.clients))
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Клиент отключился. Всего клиентов: %d", len(h.clients))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast отправляет событие всем подключенным клиентам
func (h *Hub) Broadcast(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Ошибка при маршализации события: %v", err)
		return
	}
	h.broadcast <- data
}
