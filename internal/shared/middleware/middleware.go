package middleware

import (
	"errors"
	"net/http"
	"strings"

	"ticketing/internal/shared/config"
	"ticketing/internal/shared/utils/response"
	"ticketing/internal/users"
	"ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

var ErrUnauthenticated = errors.New("user not authenticated")

// JWTAuth validates the bearer access token and stores its claims on the context
func JWTAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c, cfg.JWT.Secret)
		if err != nil {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), err.Error(), c.ClientIP())
			response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth validates a token if one is present but never rejects the request
func OptionalAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			if claims, err := parseBearer(c, cfg.JWT.Secret); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func parseBearer(c *gin.Context, secret string) (jwt.MapClaims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errors.New("authorization header is required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.New("authorization header format must be Bearer {token}")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, errors.New("invalid token type")
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims jwt.MapClaims) {
	c.Set(ContextUserID, claims["user_id"])
	c.Set(ContextUserEmail, claims["email"])
	c.Set(ContextUserRole, claims["role"])
	if id, ok := claims["user_id"].(string); ok {
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), id))
	}
}

// RequestIDHeader carries the correlation id in and out of the service.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or mints one, echoes it on the
// response and attaches it to the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequireRoles checks the authenticated user has any of the given roles
func RequireRoles(roles ...users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextUserRole)
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		roleStr, _ := userRole.(string)
		for _, role := range roles {
			if roleStr == string(role) {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(users.RoleAdmin)
}

// RequireOrganizer allows organizers and admins
func RequireOrganizer() gin.HandlerFunc {
	return RequireRoles(users.RoleOrganizer, users.RoleAdmin)
}

// CurrentUser returns the authenticated user's id and role
func CurrentUser(c *gin.Context) (uuid.UUID, users.Role, error) {
	rawID, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, "", ErrUnauthenticated
	}
	idStr, _ := rawID.(string)
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, "", ErrUnauthenticated
	}

	roleStr := c.GetString(ContextUserRole)
	if roleStr == "" {
		roleStr = string(users.RoleUser)
	}
	return userID, users.Role(roleStr), nil
}

// CurrentUserEmail returns the email claim, empty when absent
func CurrentUserEmail(c *gin.Context) string {
	return c.GetString(ContextUserEmail)
}
