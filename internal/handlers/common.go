package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/internal/handlers/dto"
	"github.com/thereayou/taskboard-chat/internal/middleware"
)

func currentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(middleware.UserIDKey).(uuid.UUID)
}

// paramID разбирает uuid из пути, при ошибке отвечает 400
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Fail("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, dto.Fail(msg))
}
