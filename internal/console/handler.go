package console

import (
	"errors"

	"user_admin_backend/internal/common"
	"user_admin_backend/internal/config"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler exposes the console intents over HTTP. Every response carries the resulting View.
type Handler struct {
	manager *Manager
	cfg     *config.Config
	logger  *zap.Logger
}

func NewHandler(manager *Manager, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		manager: manager,
		cfg:     cfg,
		logger:  logger.Named("ConsoleHandler"),
	}
}

// RegisterRoutes mounts the console under /console. authMW and adminMW guard every route;
// createMW runs only on form submission.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, adminMW, createMW gin.HandlerFunc) {
	g := router.Group("/console")
	g.Use(authMW, adminMW)
	{
		g.GET("", h.view)
		g.POST("/reload", h.reload)
		g.POST("/create/open", h.openCreate)
		g.POST("/create", createMW, h.create)
		g.POST("/users/:id/edit", h.editRole)
		g.POST("/role", h.saveRole)
		g.POST("/users/:id/delete", h.requestDelete)
		g.POST("/delete/confirm", h.confirmDelete)
		g.POST("/modal/close", h.closeModal)
		g.POST("/logout", h.logout)
	}
}

func (h *Handler) console(c *gin.Context) *Console {
	lang := ResolveLanguage(c.GetHeader("Accept-Language"), h.cfg.ConsoleLocale)
	return h.manager.Get(common.GetFirebaseUIDFromContext(c), lang)
}

func (h *Handler) respond(c *gin.Context, v View, err error) {
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok {
			c.AbortWithStatusJSON(apiErr.StatusCode, gin.H{
				"code":    apiErr.Code,
				"message": apiErr.Message,
				"details": apiErr.Details,
				"view":    v,
			})
			return
		}
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "", v)
}

func (h *Handler) view(c *gin.Context) {
	h.respond(c, h.console(c).View(c.Request.Context()), nil)
}

func (h *Handler) reload(c *gin.Context) {
	h.respond(c, h.console(c).Load(c.Request.Context()), nil)
}

func (h *Handler) openCreate(c *gin.Context) {
	v, err := h.console(c).OpenCreate()
	h.respond(c, v, err)
}

func (h *Handler) create(c *gin.Context) {
	var req user.CreateUserRequest
	if !h.bind(c, &req) {
		return
	}
	v, err := h.console(c).Create(c.Request.Context(), req)
	h.respond(c, v, err)
}

func (h *Handler) editRole(c *gin.Context) {
	v, err := h.console(c).EditRole(c.Param("id"))
	h.respond(c, v, err)
}

func (h *Handler) saveRole(c *gin.Context) {
	var updates directory.Updates
	if !h.bind(c, &updates) {
		return
	}
	v, err := h.console(c).SaveRole(c.Request.Context(), updates)
	h.respond(c, v, err)
}

func (h *Handler) requestDelete(c *gin.Context) {
	v, err := h.console(c).RequestDelete(c.Param("id"))
	h.respond(c, v, err)
}

func (h *Handler) confirmDelete(c *gin.Context) {
	v, err := h.console(c).ConfirmDelete(c.Request.Context())
	h.respond(c, v, err)
}

func (h *Handler) closeModal(c *gin.Context) {
	h.respond(c, h.console(c).CloseModal(), nil)
}

func (h *Handler) logout(c *gin.Context) {
	uid := common.GetFirebaseUIDFromContext(c)
	v, done := h.console(c).Logout(c.Request.Context())
	if done {
		h.manager.Remove(uid)
	}
	h.respond(c, v, nil)
}

func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Warn("Invalid console request body", zap.String("path", c.FullPath()), zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return false
	}
	return true
}
