package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-testgen-be/internal/model"
	"ai-testgen-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clusterChannel is the Redis pub/sub channel instances use to reach
// clients connected elsewhere.
const clusterChannel = "cluster_events"

// clusterFrame is the envelope relayed between instances. Message is
// RawMessage on both ends so the frame crosses Redis byte for byte
// instead of getting base64-wrapped as a plain []byte would.
type clusterFrame struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// instanceID tags published cluster frames; the subscriber skips its
	// own so local clients never hear a frame twice
	instanceID string

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						// Remove from slice
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers a stored notification to one user on every device.
// Implements service.NotificationDelivery.
func (h *Hub) Send(userID uuid.UUID, notification model.Notification) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})

	h.deliverLocal(userID, data)
	h.publishCluster(userID.String(), data)
}

// Broadcast sends a notification to ALL connected clients.
func (h *Hub) Broadcast(notification model.Notification) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})

	h.deliverAllLocal(data)
	h.publishCluster("*", data)
}

// SendEphemeral pushes a frame that is never stored, such as generation
// progress. The frame type becomes the "type" field clients switch on.
func (h *Hub) SendEphemeral(userID uuid.UUID, frameType string, payload map[string]interface{}) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": frameType,
		"data": payload,
	})

	h.deliverLocal(userID, data)
	h.publishCluster(userID.String(), data)
}

// deliverLocal pushes raw bytes to every local connection of one user.
// A full send buffer drops the client; a stalled reader must not block
// the hub. Only Run closes Send channels, the drop just unregisters.
func (h *Hub) deliverLocal(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"user_id": userID})
			h.unregister <- client
		}
	}
}

func (h *Hub) deliverAllLocal(data []byte) {
	// Snapshot first: sending to unregister while holding the lock would
	// deadlock against Run.
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, clients := range h.clients {
		all = append(all, clients...)
	}
	h.mu.RUnlock()

	for _, client := range all {
		select {
		case client.Send <- data:
		default:
			h.unregister <- client
		}
	}
}

// publishCluster forwards the frame to other instances over Redis.
// Target "*" means broadcast.
func (h *Hub) publishCluster(target string, data []byte) {
	if h.rdb == nil {
		return
	}

	jsonPayload, _ := json.Marshal(clusterFrame{
		Origin:       h.instanceID,
		TargetUserID: target,
		Message:      json.RawMessage(data),
	})
	h.rdb.Publish(context.Background(), clusterChannel, jsonPayload)
}

// subscribeToRedis relays frames published by other instances to the
// clients connected here. Every instance subscribes to the same channel
// and filters by target.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var frame clusterFrame
		if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
			h.logger.Warn("Hub", "Cluster frame parse error", map[string]interface{}{"error": err.Error()})
			continue
		}

		// Our own publish coming back around; local delivery already ran
		if frame.Origin == h.instanceID {
			continue
		}

		if frame.TargetUserID == "*" {
			h.deliverAllLocal(frame.Message)
			continue
		}

		uid, err := uuid.Parse(frame.TargetUserID)
		if err != nil {
			continue
		}
		h.deliverLocal(uid, frame.Message)
	}
}
