package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BuzzLyutic/todo-bot/internal/model"
)

// dialect описывает отличия SQLite и MySQL, которые работают через database/sql.
type dialect struct {
	name   string
	schema []string
	// returning: поддерживается ли DELETE ... RETURNING
	returning bool
}

var (
	sqliteDialect = dialect{
		name: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS tasks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT,
				task TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks (user_id)`,
		},
		returning: true,
	}

	mysqlDialect = dialect{
		name: "mysql",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS tasks (
				id BIGINT PRIMARY KEY AUTO_INCREMENT,
				user_id VARCHAR(64) NOT NULL,
				task TEXT NOT NULL,
				INDEX idx_tasks_user_id (user_id)
			)`,
		},
		returning: false,
	}
)

type SQLRepo struct { // Репозиторий задач поверх database/sql
	db      *sql.DB
	dialect dialect
}

func newSQLRepo(db *sql.DB, d dialect) *SQLRepo {
	return &SQLRepo{db: db, dialect: d}
}

func (r *SQLRepo) CreateTable(ctx context.Context) error {
	for _, ddl := range r.dialect.schema {
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%s: create schema: %w", r.dialect.name, err)
		}
	}
	return nil
}

func (r *SQLRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO tasks (user_id, task) VALUES (?, ?)`, t.OwnerID, t.Text)
	if err != nil {
		return t, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return t, err
	}
	t.ID = id
	return t, nil
}

func (r *SQLRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, task
		FROM tasks
		WHERE user_id = ?
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

func (r *SQLRepo) DeleteIfOwned(ctx context.Context, id int64, ownerID string) (model.Task, error) {
	if r.dialect.returning {
		var t model.Task
		err := r.db.QueryRowContext(ctx, `
			DELETE FROM tasks
			WHERE id = ? AND user_id = ?
			RETURNING id, user_id, task
		`, id, ownerID).Scan(&t.ID, &t.OwnerID, &t.Text)
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrorNotFound
		}
		return t, err
	}
	return r.deleteLocked(ctx, id, ownerID)
}

// deleteLocked - вариант для MySQL: строка блокируется до удаления, поэтому
// два параллельных нажатия не удалят одну задачу дважды.
func (r *SQLRepo) deleteLocked(ctx context.Context, id int64, ownerID string) (model.Task, error) {
	var t model.Task

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, task
		FROM tasks
		WHERE id = ? AND user_id = ?
		FOR UPDATE
	`, id, ownerID).Scan(&t.ID, &t.OwnerID, &t.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrorNotFound
	}
	if err != nil {
		return t, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, t.ID); err != nil {
		return t, err
	}
	return t, tx.Commit()
}

func (r *SQLRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepo) Close() error {
	return r.db.Close()
}
