package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/taskboard-chat/internal/handlers"
	"github.com/thereayou/taskboard-chat/internal/handlers/dto"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	User      *handlers.UserHandler
	Room      *handlers.RoomHandler
	Message   *handlers.HTTPMessageHandler
	Project   *handlers.ProjectHandler
	WebSocket *handlers.WebSocketHandler
}

func APIEndpoints(r *gin.Engine, h Handlers, authMW, wsAuthMW gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.OK(gin.H{"status": "ok"}))
	})

	// Auth endpoints
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", authMW, h.Auth.Logout)
	}

	users := r.Group("/users", authMW)
	{
		users.GET("/me", h.User.GetMe)
		users.PATCH("/me", h.User.UpdateMe)
		users.GET("/search", h.User.SearchUsers)
	}

	chat := r.Group("/chat", authMW)
	{
		chat.GET("/rooms/user", h.Room.GetMyRooms)
		chat.POST("/rooms", h.Room.CreateRoom)
		chat.POST("/rooms/direct", h.Room.CreateDirectRoom)
		chat.GET("/rooms/:id", h.Room.GetRoom)
		chat.PATCH("/rooms/:id", h.Room.UpdateRoom)
		chat.DELETE("/rooms/:id", h.Room.DeleteRoom)
		chat.GET("/rooms/:id/members", h.Room.GetRoomMembers)
		chat.POST("/rooms/:id/members", h.Room.AddMember)
		chat.POST("/rooms/:id/leave", h.Room.LeaveRoom)
		chat.GET("/rooms/:id/messages", h.Message.GetRoomMessages)
		chat.POST("/rooms/:id/messages", h.Message.SendMessage)
		chat.PATCH("/messages/:id", h.Message.UpdateMessage)
		chat.DELETE("/messages/:id", h.Message.DeleteMessage)
	}

	projects := r.Group("/projects", authMW)
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:id/tasks", h.Project.ListTasks)
		projects.POST("/:id/tasks", h.Project.CreateTask)
		projects.POST("/:id/tasks/:taskID/done", h.Project.CompleteTask)
	}

	r.GET("/ws", wsAuthMW, h.WebSocket.HandleWebSocket)
}
