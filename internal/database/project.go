package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/taskboard-chat/internal/models"
)

func (d *Database) CreateProject(project *models.Project) error {
	return d.db.Create(project).Error
}

func (d *Database) GetProject(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := d.db.First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// GetUserProjects проекты, которыми пользователь владеет или в чьих
// комнатах состоит
func (d *Database) GetUserProjects(userID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := d.db.
		Where("owner_id = ?", userID).
		Or("id IN (?)", d.db.Table("rooms").
			Select("rooms.project_id").
			Joins("JOIN room_members rm ON rm.room_id = rooms.id").
			Where("rm.user_id = ? AND rooms.project_id IS NOT NULL", userID)).
		Order("created_at").
		Find(&projects).Error
	return projects, err
}

func (d *Database) CreateTask(task *models.Task) error {
	return d.db.Create(task).Error
}

func (d *Database) GetProjectTasks(projectID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := d.db.Where("project_id = ?", projectID).Order("created_at").Find(&tasks).Error
	return tasks, err
}

func (d *Database) SetTaskDone(projectID, id uuid.UUID, done bool) error {
	res := d.db.Model(&models.Task{}).
		Where("id = ? AND project_id = ?", id, projectID).
		Update("done", done)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TasksDueForReminder незавершённые задачи с исполнителем, срок которых
// наступает до until, о которых ещё не напоминали
func (d *Database) TasksDueForReminder(until time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := d.db.
		Where("done = ? AND reminded_at IS NULL AND assignee_id IS NOT NULL", false).
		Where("due_at IS NOT NULL AND due_at <= ?", until.UTC()).
		Order("due_at").
		Find(&tasks).Error
	return tasks, err
}

func (d *Database) MarkTaskReminded(id uuid.UUID, at time.Time) error {
	return d.db.Model(&models.Task{}).Where("id = ?", id).Update("reminded_at", at).Error
}
