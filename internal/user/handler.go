// File: internal/user/handler.go
package user

import (
	"errors"

	"user_admin_backend/internal/common"
	"user_admin_backend/internal/directory"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("UserHandler"),
	}
}

// RegisterRoutes sets up the routes for user operations.
// Reads need an authenticated operator; writes additionally pass adminMW.
// createMW runs only on creation (rate limiting).
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, adminMW, createMW gin.HandlerFunc) {
	userGroup := router.Group("/users")
	userGroup.Use(authMW)
	{
		userGroup.GET("", h.listUsers)
		userGroup.GET("/me", h.getMe)

		adminGroup := userGroup.Group("")
		adminGroup.Use(adminMW)
		{
			adminGroup.POST("", createMW, h.createUser)
			adminGroup.PATCH("/:id", h.updateUser)
			adminGroup.DELETE("/:id", h.deleteUser)
		}
	}
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Users retrieved successfully.", ToUserResponses(users))
}

func (h *Handler) getMe(c *gin.Context) {
	uid := common.GetFirebaseUIDFromContext(c)
	if uid == "" {
		h.logger.Error("Firebase UID not found in context for /me", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("User identifier missing."))
		return
	}
	usr, err := h.service.GetUserByUID(c.Request.Context(), uid)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", ToUserResponse(usr))
}

func (h *Handler) createUser(c *gin.Context) {
	var req CreateUserRequest
	if !h.bind(c, &req) {
		return
	}
	usr, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, toAPIError(err))
		return
	}
	common.RespondCreated(c, "User created successfully.", ToUserResponse(usr))
}

func (h *Handler) updateUser(c *gin.Context) {
	var updates directory.Updates
	if !h.bind(c, &updates) {
		return
	}
	id := c.Param("id")
	if err := h.service.UpdateUser(c.Request.Context(), id, updates); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User updated successfully.", gin.H{"id": id})
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

// bind decodes the JSON body into dst and writes the error response on failure.
func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Warn("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
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
