package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/server"
)

// Registrar ties the account service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the account service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches auth and profile routes.
func (r *Registrar) Register(public, protected *gin.RouterGroup) {
	h := &handler{svc: NewService(r.appCtx)}

	public.POST("/auth/register", h.register)
	public.POST("/auth/login", h.login)

	protected.GET("/profiles/me", h.getProfile)
	protected.PUT("/profiles/me", h.updateProfile)
}

type handler struct {
	svc *Service
}

func (h *handler) register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		server.RespondError(c, apperr.Validationf("invalid request body"))
		return
	}

	token, user, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		server.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user_id": user.ID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validationf("invalid request body"))
		return
	}

	token, user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		server.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": user.ID})
}

func (h *handler) getProfile(c *gin.Context) {
	profile, err := h.svc.GetProfile(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *handler) updateProfile(c *gin.Context) {
	var in ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		server.RespondError(c, apperr.Validationf("invalid request body"))
		return
	}

	profile, err := h.svc.UpdateProfile(c.Request.Context(), server.CurrentUserID(c), in)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
