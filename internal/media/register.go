package media

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/server"
)

// Registrar ties the media service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the media service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches photo-upload routes. Failure to build the S3 client
// disables the routes rather than taking the server down.
func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	svc, err := NewService(r.appCtx)
	if err != nil {
		r.appCtx.Logger.Error("media service disabled", "err", err)
		return
	}

	h := &handler{svc: svc}
	protected.POST("/photos/upload-url", h.uploadURL)
	protected.POST("/photos/confirm", h.confirm)
}

type handler struct {
	svc *Service
}

type uploadURLRequest struct {
	ContentType string `json:"content_type"`
}

func (h *handler) uploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validationf("invalid request body"))
		return
	}

	grant, err := h.svc.PresignUpload(c.Request.Context(), server.CurrentUserID(c), req.ContentType)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

type confirmRequest struct {
	PhotoKey string `json:"photo_key"`
}

func (h *handler) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PhotoKey == "" {
		server.RespondError(c, apperr.Validationf("photo_key is required"))
		return
	}

	url, err := h.svc.Confirm(c.Request.Context(), server.CurrentUserID(c), req.PhotoKey)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo_url": url})
}
