package bot

import (
	"errors"
	"strconv"
	"strings"
)

const donePrefix = "done:"

// maxButtonLabel - длина подписи кнопки в рунах, дальше текст обрезается.
const maxButtonLabel = 64

var ErrBadPayload = errors.New("bad callback payload")

func DonePayload(id int64) string {
	return donePrefix + strconv.FormatInt(id, 10)
}

func ParseDonePayload(data string) (int64, error) {
	raw, ok := strings.CutPrefix(data, donePrefix)
	if !ok {
		return 0, ErrBadPayload
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadPayload
	}
	return id, nil
}

func buttonLabel(text string) string {
	label := "❌ " + text
	runes := []rune(label)
	if len(runes) <= maxButtonLabel {
		return label
	}
	return string(runes[:maxButtonLabel-1]) + "…"
}
