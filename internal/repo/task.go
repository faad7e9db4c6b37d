package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/todo-bot/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

type TaskRepo struct { // Репозиторий задач поверх PostgreSQL
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		task TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks (user_id)`,
}

func (r *TaskRepo) CreateTable(ctx context.Context) error {
	for _, stmt := range pgSchema {
		_, err := r.pool.Exec(ctx, stmt)
		err = r.mapError(err)
		// Конфликт значит, что схему параллельно создал другой экземпляр
		if err != nil && !errors.Is(err, ErrorConflict) {
			return err
		}
	}
	return nil
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, task)
		VALUES ($1, $2)
		RETURNING id, user_id, task
	`, t.OwnerID, t.Text).Scan(&t.ID, &t.OwnerID, &t.Text)
	return t, r.mapError(err)
}

func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, task
		FROM tasks
		WHERE user_id = $1
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Text); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) DeleteIfOwned(ctx context.Context, id int64, ownerID string) (model.Task, error) {
	var t model.Task
	err := r.pool.QueryRow(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, task
	`, id, ownerID).Scan(&t.ID, &t.OwnerID, &t.Text)

	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *TaskRepo) Close() error {
	r.pool.Close()
	return nil
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 и 42P07 при параллельном CREATE ... IF NOT EXISTS
		switch pgErr.Code {
		case "23505", "42P07":
			return ErrorConflict
		}
	}
	return err
}
