package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// RoleLookup отвечает на вопрос "этот пользователь — админ или владелец гива?".
// Сама аутентификация живет снаружи: сюда приходит уже проверенный user id.
type RoleLookup interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	IsOwner(ctx context.Context, userID int64, giveawayID string) (bool, error)
}

// ConfigRoleLookup реализует RoleLookup по списку ADMIN_IDS из конфигурации
type ConfigRoleLookup struct {
	adminIDs map[int64]struct{}
}

func NewConfigRoleLookup(adminIDs []string) *ConfigRoleLookup {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, idStr := range adminIDs {
		if id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64); err == nil {
			ids[id] = struct{}{}
		}
	}
	return &ConfigRoleLookup{adminIDs: ids}
}

func (l *ConfigRoleLookup) IsAdmin(_ context.Context, userID int64) (bool, error) {
	_, ok := l.adminIDs[userID]
	return ok, nil
}

// IsOwner в конфигурационной реализации всегда false: владельцев знает
// только внешний сервис ролей
func (l *ConfigRoleLookup) IsOwner(context.Context, int64, string) (bool, error) {
	return false, nil
}

// RequireAdmin пропускает только владельца гива или администратора
func RequireAdmin(roles RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: authenticated user id required"})
			return
		}

		isAdmin, err := roles.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Role lookup failed"})
			return
		}

		if !isAdmin {
			giveawayID := c.Param("id")
			isOwner, err := roles.IsOwner(c.Request.Context(), userID, giveawayID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Role lookup failed"})
				return
			}
			if !isOwner {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
				return
			}
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
