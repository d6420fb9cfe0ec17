package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/taskboard-chat/internal/handlers/dto"
	"github.com/thereayou/taskboard-chat/pkg/auth"
)

const (
	UserIDKey = "userID"
	TokenKey  = "token"

	blacklistPrefix = "blacklist:"
)

var errBlacklisted = errors.New("token is blacklisted")

// BlacklistKey ключ Redis для отозванного токена
func BlacklistKey(token string) string {
	return blacklistPrefix + token
}

// AuthMiddleware проверяет JWT из заголовка Authorization
func AuthMiddleware(jwtManager *auth.JWTManager, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail("missing or invalid token"))
			return
		}

		authenticate(c, token, jwtManager, redisClient)
	}
}

// WSAuthMiddleware для WebSocket: браузер не может выставить заголовок,
// поэтому токен можно передать в ?token=
func WSAuthMiddleware(jwtManager *auth.JWTManager, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = auth.ExtractTokenFromHeader(c.Request)
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail("missing token"))
			return
		}

		authenticate(c, token, jwtManager, redisClient)
	}
}

func authenticate(c *gin.Context, token string, jwtManager *auth.JWTManager, redisClient *redis.Client) {
	if err := checkBlacklist(c.Request.Context(), redisClient, token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail(err.Error()))
		return
	}

	userID, err := jwtManager.UserID(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail("invalid token"))
		return
	}

	c.Set(UserIDKey, userID)
	c.Set(TokenKey, token)
	c.Next()
}

func checkBlacklist(ctx context.Context, redisClient *redis.Client, token string) error {
	exists, err := redisClient.Exists(ctx, BlacklistKey(token)).Result()
	if err != nil {
		return errors.New("cannot check token")
	}
	if exists > 0 {
		return errBlacklisted
	}
	return nil
}
