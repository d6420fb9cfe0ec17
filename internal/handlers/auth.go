package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/taskboard-chat/internal/database"
	"github.com/thereayou/taskboard-chat/internal/handlers/dto"
	"github.com/thereayou/taskboard-chat/internal/middleware"
	"github.com/thereayou/taskboard-chat/internal/models"
	"github.com/thereayou/taskboard-chat/internal/services"
	"github.com/thereayou/taskboard-chat/pkg/auth"
)

type AuthHandler struct {
	db         *database.Database
	jwtManager *auth.JWTManager
	redis      *redis.Client
}

func NewAuthHandler(db *database.Database, jwtMgr *auth.JWTManager, rdb *redis.Client) *AuthHandler {
	return &AuthHandler{db: db, jwtManager: jwtMgr, redis: rdb}
}

// Register создаёт пользователя и сразу выдаёт токен
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "cannot hash password")
		return
	}

	user := &models.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		LastSeenAt:   time.Now(),
		CreatedAt:    time.Now(),
	}

	if err := h.db.SaveUser(user); err != nil {
		fail(c, http.StatusConflict, "username or email already taken")
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login выдаёт JWT и обновляет last_seen
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.db.FindUserByEmail(strings.ToLower(req.Email))
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.db.UpdateLastSeen(user.ID); err != nil {
		if database.IsNotFound(err) {
			fail(c, http.StatusUnauthorized, "invalid credentials")
			return
		}

		fail(c, http.StatusInternalServerError, "could not update last seen")
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := h.jwtManager.Generate(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "could not generate token")
		return
	}

	c.JSON(status, dto.OK(dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      services.MemberFromModel(user, false),
	}))
}

// Logout ставит токен в черный список в Redis до истечения
func (h *AuthHandler) Logout(c *gin.Context) {
	rawToken := c.GetString(middleware.TokenKey)

	exp, err := h.jwtManager.Expiry(rawToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid token")
		return
	}

	ttl := time.Until(exp)
	if err := h.redis.Set(c.Request.Context(), middleware.BlacklistKey(rawToken), 1, ttl).Err(); err != nil {
		fail(c, http.StatusInternalServerError, "could not revoke token")
		return
	}

	c.JSON(http.StatusOK, dto.OK(nil))
}
