package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/internal/database"
	"github.com/thereayou/taskboard-chat/internal/handlers/dto"
	"github.com/thereayou/taskboard-chat/internal/models"
)

type ProjectHandler struct {
	db *database.Database
}

func NewProjectHandler(db *database.Database) *ProjectHandler {
	return &ProjectHandler{db: db}
}

func projectResponse(p *models.Project) dto.ProjectResponse {
	return dto.ProjectResponse{ID: p.ID, Name: p.Name, OwnerID: p.OwnerID, CreatedAt: p.CreatedAt}
}

func taskResponse(t *models.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:         t.ID,
		ProjectID:  t.ProjectID,
		Title:      t.Title,
		AssigneeID: t.AssigneeID,
		DueAt:      t.DueAt,
		Done:       t.Done,
		CreatedAt:  t.CreatedAt,
	}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	project := &models.Project{
		Name:      req.Name,
		OwnerID:   currentUserID(c),
		CreatedAt: time.Now(),
	}
	if err := h.db.CreateProject(project); err != nil {
		fail(c, http.StatusInternalServerError, "failed to create project")
		return
	}

	c.JSON(http.StatusCreated, dto.OK(projectResponse(project)))
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.db.GetUserProjects(currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to get projects")
		return
	}

	result := make([]dto.ProjectResponse, len(projects))
	for i := range projects {
		result[i] = projectResponse(&projects[i])
	}

	c.JSON(http.StatusOK, dto.OK(result))
}

// loadProject проект, доступный текущему пользователю. При ошибке ответ
// уже записан.
func (h *ProjectHandler) loadProject(c *gin.Context) (*models.Project, bool) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	projects, err := h.db.GetUserProjects(currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to get projects")
		return nil, false
	}
	for i := range projects {
		if projects[i].ID == projectID {
			return &projects[i], true
		}
	}

	if _, err := h.db.GetProject(projectID); database.IsNotFound(err) {
		fail(c, http.StatusNotFound, "project not found")
		return nil, false
	}
	fail(c, http.StatusForbidden, "no access to this project")
	return nil, false
}

func (h *ProjectHandler) ListTasks(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}

	tasks, err := h.db.GetProjectTasks(project.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to get tasks")
		return
	}

	result := make([]dto.TaskResponse, len(tasks))
	for i := range tasks {
		result[i] = taskResponse(&tasks[i])
	}

	c.JSON(http.StatusOK, dto.OK(result))
}

func (h *ProjectHandler) CreateTask(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.AssigneeID != nil {
		if _, err := h.db.GetUser(*req.AssigneeID); err != nil {
			fail(c, http.StatusBadRequest, "unknown assignee")
			return
		}
	}

	if req.DueAt != nil {
		due := req.DueAt.UTC()
		req.DueAt = &due
	}

	task := &models.Task{
		ProjectID:  project.ID,
		Title:      req.Title,
		AssigneeID: req.AssigneeID,
		DueAt:      req.DueAt,
		CreatedAt:  time.Now(),
	}
	if err := h.db.CreateTask(task); err != nil {
		fail(c, http.StatusInternalServerError, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, dto.OK(taskResponse(task)))
}

// CompleteTask отмечает задачу выполненной
func (h *ProjectHandler) CompleteTask(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid taskID")
		return
	}

	if err := h.db.SetTaskDone(project.ID, taskID, true); err != nil {
		if database.IsNotFound(err) {
			fail(c, http.StatusNotFound, "task not found")
			return
		}
		fail(c, http.StatusInternalServerError, "failed to update task")
		return
	}

	c.JSON(http.StatusOK, dto.OK(nil))
}
