package model

// Task - запись списка дел одного пользователя
type Task struct {
	ID      int64  `json:"id"`
	OwnerID string `json:"user_id"`
	Text    string `json:"task"`
}
