// Package reminder рассылает напоминания о задачах, срок которых подходит.
package reminder

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/internal/models"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

type Store interface {
	TasksDueForReminder(until time.Time) ([]models.Task, error)
	MarkTaskReminded(id uuid.UUID, at time.Time) error
}

type Notifier interface {
	IsUserOnline(userID uuid.UUID) bool
	SendToUser(userID uuid.UUID, message []byte)
}

type Worker struct {
	store    Store
	notifier Notifier
	interval time.Duration
	lead     time.Duration
	now      func() time.Time
}

func NewWorker(store Store, notifier Notifier, interval, lead time.Duration) *Worker {
	return &Worker{
		store:    store,
		notifier: notifier,
		interval: interval,
		lead:     lead,
		now:      time.Now,
	}
}

// Run проверяет задачи каждые interval до отмены ctx
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Tick(); err != nil {
				log.Printf("Reminder tick failed: %v", err)
			}
		}
	}
}

// Tick отправляет напоминания по задачам, срок которых наступает в течение
// lead. Задача отмечается только после доставки: если исполнитель не в сети,
// напоминание уйдёт, когда он подключится.
func (w *Worker) Tick() (int, error) {
	now := w.now()

	tasks, err := w.store.TasksDueForReminder(now.Add(w.lead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range tasks {
		task := &tasks[i]
		if task.AssigneeID == nil || task.DueAt == nil {
			continue
		}
		if !w.notifier.IsUserOnline(*task.AssigneeID) {
			continue
		}

		frame, err := chatproto.Encode(chatproto.EventTaskReminder, nil, *task.AssigneeID, chatproto.TaskReminderPayload{
			TaskID:    task.ID,
			ProjectID: task.ProjectID,
			Title:     task.Title,
			DueAt:     *task.DueAt,
		})
		if err != nil {
			return sent, err
		}

		w.notifier.SendToUser(*task.AssigneeID, frame)

		if err := w.store.MarkTaskReminded(task.ID, now); err != nil {
			return sent, err
		}
		sent++
	}

	return sent, nil
}
