package message

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/server"
)

// Registrar ties the message service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the message service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches messaging routes.
func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	h := &handler{svc: NewService(r.appCtx)}
	protected.POST("/messages", h.send)
	protected.GET("/messages/:userID", h.conversation)
}

type handler struct {
	svc *Service
}

type sendRequest struct {
	RecipientID uint64 `json:"recipient_id"`
	Body        string `json:"body"`
}

func (h *handler) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validationf("invalid request body"))
		return
	}

	msg, remaining, err := h.svc.Send(c.Request.Context(), server.CurrentUserID(c), req.RecipientID, req.Body)
	if err != nil {
		server.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":            msg,
		"remaining_messages": remaining,
	})
}

func (h *handler) conversation(c *gin.Context) {
	otherID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
	if err != nil {
		server.RespondError(c, apperr.Validationf("userID must be a valid user id"))
		return
	}

	messages, err := h.svc.Conversation(c.Request.Context(), server.CurrentUserID(c), otherID)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
