package quota

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/repository"
	"github.com/emberapp/ember-backend/internal/server"
)

// Registrar ties the usage-stats endpoint into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the quota service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the usage-stats route.
func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	h := &handler{
		tracker:  NewTracker(r.appCtx),
		userRepo: repository.NewUserRepository(r.appCtx.DB),
	}
	protected.GET("/usage-stats", h.usageStats)
}

type handler struct {
	tracker  *Tracker
	userRepo *repository.UserRepository
}

// usageStats handles GET /usage-stats.
func (h *handler) usageStats(c *gin.Context) {
	user, err := h.userRepo.GetByID(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}

	stats, err := h.tracker.Stats(c.Request.Context(), user)
	if err != nil {
		server.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
