package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egor/supportchat/auth"
	"github.com/egor/supportchat/models"
)

// identityKey — ключ идентичности в контексте gin.
const identityKey = "identity"

// Identity разбирает заголовок Authorization и кладёт идентичность
// вызывающего в контекст. Отсутствие или дефект токена не прерывает
// запрос: вызывающий просто остаётся анонимом, решение принимает policy.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := auth.Resolve(c.GetHeader("Authorization")); actor != nil {
			c.Set(identityKey, actor)
		}
		c.Next()
	}
}

// RequireAuth прерывает запрос, если вызывающий аноним.
// Вешается поверх Identity на маршруты панели операторов.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFrom достаёт идентичность из контекста; nil — аноним.
func ActorFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	actor, ok := v.(*models.Identity)
	if !ok {
		return nil
	}
	return actor
}
