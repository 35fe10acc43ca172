package middleware

import (
	"net/http"
	"strings"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/services/auth"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Context keys set for authenticated requests
const (
	UserIDKey    = "user_id"
	UserKey      = "user"
	ActorKey     = "actor"
	TokenInfoKey = "token_info"
)

type BearerTokenMiddleware struct {
	authService *auth.AuthService
	userRepo    *repository.UserRepository
}

func NewBearerTokenMiddleware(authService *auth.AuthService, db *gorm.DB) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{
		authService: authService,
		userRepo:    repository.NewUserRepository(db),
	}
}

func abortUnauthorized(c *gin.Context, err *apperror.Error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"code":    err.Code,
		"error":   err.Message,
	})
}

// BearerTokenAuthMiddleware validates JWT token and sets user info in context
func (m *BearerTokenMiddleware) BearerTokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, apperror.Unauthorized("missing_token", "Invalid authorization header format"))
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		tokenInfo, err := m.authService.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, apperror.From(err))
			return
		}

		// Reload so role and location changes apply to live tokens
		user, err := m.userRepo.GetByID(tokenInfo.UserID)
		if err != nil {
			abortUnauthorized(c, apperror.Unauthorized("invalid_token", "User not found"))
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)
		c.Set(ActorKey, policy.ActorFromUser(user))
		c.Set(TokenInfoKey, tokenInfo)

		c.Next()
	}
}
