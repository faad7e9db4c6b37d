package repo

import (
	"context"

	"github.com/BuzzLyutic/todo-bot/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	CreateTable(ctx context.Context) error
	Create(ctx context.Context, t model.Task) (model.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error)
	// DeleteIfOwned удаляет задачу одним запросом, только если она принадлежит ownerID.
	// Возвращает удаленную запись или ErrorNotFound.
	DeleteIfOwned(ctx context.Context, id int64, ownerID string) (model.Task, error)
	Ping(ctx context.Context) error
	Close() error
}
