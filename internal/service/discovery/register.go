package discovery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/server"
)

// Registrar ties the discovery service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the discovery service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the discovery routes.
func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	h := &handler{svc: NewService(r.appCtx), appCtx: r.appCtx}
	protected.GET("/profiles/discover", h.discover)
}

type handler struct {
	svc    *Service
	appCtx *app.AppContext
}

// discover handles GET /profiles/discover.
// Query params: category, min_age, max_age, gender, max_distance, limit.
func (h *handler) discover(c *gin.Context) {
	requesterID := server.CurrentUserID(c)

	filters, limit, err := parseQuery(c)
	if err != nil {
		server.RespondError(c, err)
		return
	}

	cards, err := h.svc.Discover(c.Request.Context(), requesterID, filters, limit)
	if err != nil {
		h.appCtx.Logger.Error("discover failed", "requester", requesterID, "err", err)
		server.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": cards, "count": len(cards)})
}

func parseQuery(c *gin.Context) (Filters, int, error) {
	f := Filters{
		Category: c.Query("category"),
		Gender:   c.Query("gender"),
	}

	var limit int
	var err error

	if f.MinAge, err = intParam(c, "min_age"); err != nil {
		return f, 0, err
	}
	if f.MaxAge, err = intParam(c, "max_age"); err != nil {
		return f, 0, err
	}
	if v := c.Query("max_distance"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d < 0 {
			return f, 0, apperr.Validationf("max_distance must be a non-negative number")
		}
		f.MaxDistanceKm = &d
	}
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return f, 0, apperr.Validationf("limit must be an integer")
		}
	}

	return f, limit, nil
}

func intParam(c *gin.Context, name string) (*int, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, apperr.Validationf("%s must be a non-negative integer", name)
	}
	return &n, nil
}
