package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/server"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const readDeadline = 90 * time.Second

// Registrar ties the websocket endpoint into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
	hub    *Hub
}

// NewRegistrar creates a new Registrar around a running hub.
func NewRegistrar(appCtx *app.AppContext, hub *Hub) *Registrar {
	return &Registrar{appCtx: appCtx, hub: hub}
}

// Register attaches the websocket route.
func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	protected.GET("/ws", r.serveWS)
}

// serveWS upgrades the connection and pumps heartbeats until the client
// goes away. Events are written by the hub's pub/sub loop.
func (r *Registrar) serveWS(c *gin.Context) {
	userID := server.CurrentUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.appCtx.Logger.Warn("websocket upgrade failed", "user", userID, "err", err)
		return
	}

	ctx := c.Request.Context()
	r.hub.Register(ctx, userID, conn)
	defer r.hub.Unregister(ctx, userID, conn)

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		r.hub.Heartbeat(ctx, userID)
		return nil
	})

	// Inbound frames are heartbeats only; messaging goes over REST.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		r.hub.Heartbeat(ctx, userID)
	}
}
