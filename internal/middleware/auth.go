// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"

	"user_admin_backend/internal/common"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/identity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*identity.Token, error)
}

// OperatorLookup resolves the directory record of a signed-in operator.
type OperatorLookup interface {
	GetUserByUID(ctx context.Context, uid string) (*directory.User, error)
}

// AuthMiddleware creates a Gin middleware for Firebase ID token authentication.
// The operator's role comes from their directory record; an operator without a
// record is authenticated but carries no role.
func AuthMiddleware(verifier TokenVerifier, operators OperatorLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken := common.GetTokenFromContext(c)
		if idToken == "" {
			logger.Debug("Authorization header missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			logger.Warn("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired ID token."))
			return
		}

		c.Set(common.FirebaseUIDKey, token.UID)
		c.Set(common.UserEmailKey, token.Email)

		operator, err := operators.GetUserByUID(c.Request.Context(), token.UID)
		switch {
		case err == nil:
			c.Set(common.UserIDKey, operator.ID)
			c.Set(common.UserRoleKey, string(operator.Role))
		case errors.Is(err, common.ErrNotFound):
			logger.Debug("Authenticated operator has no directory record", zap.String("uid", token.UID))
		default:
			logger.Error("Failed to resolve operator record", zap.String("uid", token.UID), zap.Error(err))
			common.RespondWithError(c, err)
			return
		}

		logger.Debug("User authenticated successfully",
			zap.String("uid", token.UID),
			zap.String("email", token.Email),
			zap.String("role", common.GetUserRoleFromContext(c)),
		)
		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware to check if the authenticated user has one of the required roles.
func RoleAuthMiddleware(allowedRoles ...directory.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}

		for _, role := range allowedRoles {
			if userRole == string(role) {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
