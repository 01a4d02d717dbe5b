package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// EventsHandler streams published points events to websocket clients.
type EventsHandler struct {
	redisClient *redis.Client
	topic       string
	upgrader    websocket.Upgrader
}

func NewEventsHandler(redisClient *redis.Client, topic string) *EventsHandler {
	return &EventsHandler{
		redisClient: redisClient,
		topic:       topic,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS is enforced on the REST routes only
			},
		},
	}
}

// HandleWebSocket forwards every event on the topic. ?user_id= narrows the
// stream to one user.
func (h *EventsHandler) HandleWebSocket(c *gin.Context) {
	if h.redisClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream unavailable"})
		return
	}
	filter := c.Query("user_id")

	ctx := c.Request.Context()
	pubsub := h.redisClient.Subscribe(ctx, h.topic)
	defer pubsub.Close()

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("[EventsHandler] failed to subscribe to %s: %v", h.topic, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[EventsHandler] failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	ch := pubsub.Channel()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if filter != "" && !matchesUser(msg.Payload, filter) {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("[EventsHandler] failed to write message to websocket: %v", err)
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func matchesUser(payload, userID string) bool {
	var event struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return false
	}
	return event.UserID == userID
}
