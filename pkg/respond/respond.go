package respond

import (
	"encoding/json"
	"net/http"
)

// JSON пишет data с кодом code. Ошибку кодирования возвращает вызывающему,
// заголовки к этому моменту уже отправлены.
func JSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, code int, message string) error {
	return JSON(w, code, map[string]string{"error": message})
}

func Status(w http.ResponseWriter, code int, status string) error {
	return JSON(w, code, map[string]string{"status": status})
}
