package service

import (
	"context"
	"errors"
	"strings"

	"github.com/BuzzLyutic/todo-bot/internal/model"
	"github.com/BuzzLyutic/todo-bot/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

type TaskService struct {
	repo repo.TaskRepository
}

func NewTaskService(repo repo.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

// Init создает таблицу задач, если ее еще нет
func (s *TaskService) Init(ctx context.Context) error {
	return s.repo.CreateTable(ctx)
}

func (s *TaskService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *TaskService) Add(ctx context.Context, ownerID, text string) (model.Task, error) {
	t := model.Task{OwnerID: ownerID, Text: strings.TrimSpace(text)}
	if err := s.validate(t); err != nil { // Пустые задачи в хранилище не попадают
		return t, err
	}
	return s.repo.Create(ctx, t)
}

func (s *TaskService) List(ctx context.Context, ownerID string) ([]model.Task, error) {
	if ownerID == "" {
		return nil, ErrValidation
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// Done удаляет задачу владельца. Чужая или несуществующая задача - repo.ErrorNotFound.
func (s *TaskService) Done(ctx context.Context, id int64, ownerID string) (model.Task, error) {
	if ownerID == "" {
		return model.Task{}, ErrValidation
	}
	if id <= 0 {
		return model.Task{}, repo.ErrorNotFound
	}
	return s.repo.DeleteIfOwned(ctx, id, ownerID)
}

func (s *TaskService) validate(t model.Task) error {
	if strings.TrimSpace(t.Text) == "" {
		return ErrValidation
	}
	if t.OwnerID == "" {
		return ErrValidation
	}
	return nil
}
