package realtime

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/emberapp/ember-backend/internal/app"
)

// Hub routes realtime events to websocket connections held by this
// instance. It is deliberately not the source of truth for presence:
// presence lives in Redis TTL keys, and events travel through Redis
// pub/sub, so any instance can deliver to users connected elsewhere.
type Hub struct {
	appCtx *app.AppContext

	mu          sync.RWMutex
	connections map[uint64]*websocket.Conn
}

// NewHub creates a hub bound to the app's Redis cache.
func NewHub(appCtx *app.AppContext) *Hub {
	return &Hub{
		appCtx:      appCtx,
		connections: make(map[uint64]*websocket.Conn),
	}
}

// Run subscribes to the per-user event channels and forwards payloads
// to locally held connections until the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	sub := h.appCtx.RedisCache.PSubscribeEvents(ctx)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, err := userIDFromChannel(msg.Channel)
			if err != nil {
				continue
			}
			h.deliver(userID, []byte(msg.Payload))
		}
	}
}

// Register attaches a connection for a user, replacing any previous one,
// and marks the user online.
func (h *Hub) Register(ctx context.Context, userID uint64, conn *websocket.Conn) {
	h.mu.Lock()
	if existing, ok := h.connections[userID]; ok {
		existing.Close()
	}
	h.connections[userID] = conn
	h.mu.Unlock()

	if err := h.appCtx.RedisCache.TouchPresence(ctx, userID); err != nil {
		h.appCtx.Logger.Warn("presence touch failed", "user", userID, "err", err)
	}
	h.appCtx.Logger.Debug("websocket registered", "user", userID)
}

// Unregister drops the user's connection and clears their presence.
func (h *Hub) Unregister(ctx context.Context, userID uint64, conn *websocket.Conn) {
	h.mu.Lock()
	if current, ok := h.connections[userID]; ok && current == conn {
		delete(h.connections, userID)
	}
	h.mu.Unlock()

	conn.Close()
	if err := h.appCtx.RedisCache.ClearPresence(ctx, userID); err != nil {
		h.appCtx.Logger.Warn("presence clear failed", "user", userID, "err", err)
	}
	h.appCtx.Logger.Debug("websocket unregistered", "user", userID)
}

// Heartbeat refreshes the user's presence TTL.
func (h *Hub) Heartbeat(ctx context.Context, userID uint64) {
	if err := h.appCtx.RedisCache.TouchPresence(ctx, userID); err != nil {
		h.appCtx.Logger.Warn("presence touch failed", "user", userID, "err", err)
	}
}

func (h *Hub) deliver(userID uint64, payload []byte) {
	h.mu.RLock()
	conn, ok := h.connections[userID]
	h.mu.RUnlock()
	if !ok {
		return // user is connected to another instance, or offline
	}

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.appCtx.Logger.Warn("websocket write failed", "user", userID, "err", err)
		h.Unregister(context.Background(), userID, conn)
	}
}

// userIDFromChannel parses "events:user:<id>".
func userIDFromChannel(channel string) (uint64, error) {
	idx := strings.LastIndex(channel, ":")
	return strconv.ParseUint(channel[idx+1:], 10, 64)
}
