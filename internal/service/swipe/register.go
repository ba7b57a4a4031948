package swipe

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/repository"
	"github.com/emberapp/ember-backend/internal/server"
)

// Registrar ties the swipe service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the swipe service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches swipe, liker-listing, match and block routes.
func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	h := &handler{
		svc:       NewService(r.appCtx),
		blockRepo: repository.NewBlockRepository(r.appCtx.DB),
		appCtx:    r.appCtx,
	}
	protected.POST("/swipe", h.swipe)
	protected.GET("/likes", h.listLikers)
	protected.GET("/likes/new", h.listNewLikers)
	protected.GET("/likes/count", h.countLikers)
	protected.GET("/matches", h.listMatches)
	protected.POST("/blocks", h.createBlock)
	protected.DELETE("/blocks/:id", h.deleteBlock)
}

type handler struct {
	svc       *Service
	blockRepo *repository.BlockRepository
	appCtx    *app.AppContext
}

type swipeRequest struct {
	SwipedUserID uint64 `json:"swiped_user_id"`
	Action       string `json:"action"`
}

// swipe handles POST /swipe.
func (h *handler) swipe(c *gin.Context) {
	actorID := server.CurrentUserID(c)

	var req swipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validationf("invalid request body"))
		return
	}

	result, err := h.svc.Swipe(c.Request.Context(), actorID, req.SwipedUserID, db.SwipeAction(req.Action))
	if err != nil {
		server.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"is_match":        result.IsMatch,
		"remaining_likes": result.RemainingLikes,
	})
}

func (h *handler) listLikers(c *gin.Context) {
	page, err := h.svc.ListLikedYou(c.Request.Context(), server.CurrentUserID(c), paginationToken(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handler) listNewLikers(c *gin.Context) {
	page, err := h.svc.ListNewLikedYou(c.Request.Context(), server.CurrentUserID(c), paginationToken(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handler) countLikers(c *gin.Context) {
	count, err := h.svc.CountLikedYou(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *handler) listMatches(c *gin.Context) {
	cards, err := h.svc.ListMatches(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": cards})
}

type blockRequest struct {
	BlockedUserID uint64 `json:"blocked_user_id"`
}

func (h *handler) createBlock(c *gin.Context) {
	blockerID := server.CurrentUserID(c)

	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BlockedUserID == 0 {
		server.RespondError(c, apperr.Validationf("blocked_user_id is required"))
		return
	}
	if req.BlockedUserID == blockerID {
		server.RespondError(c, apperr.InvalidTargetf("cannot block yourself"))
		return
	}

	if err := h.blockRepo.Create(c.Request.Context(), blockerID, req.BlockedUserID); err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handler) deleteBlock(c *gin.Context) {
	blockedID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		server.RespondError(c, apperr.Validationf("id must be a valid user id"))
		return
	}

	if err := h.blockRepo.Delete(c.Request.Context(), server.CurrentUserID(c), blockedID); err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func paginationToken(c *gin.Context) *string {
	if v := c.Query("pagination_token"); v != "" {
		return &v
	}
	return nil
}
