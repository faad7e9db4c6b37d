package bot

import "sync"

type State int

const (
	StateIdle State = iota
	StateAwaitingText
)

func (s State) String() string {
	switch s {
	case StateAwaitingText:
		return "awaiting_text"
	default:
		return "idle"
	}
}

// DialogKey - диалог принадлежит паре (чат, пользователь): в группе
// каждый участник добавляет свою задачу независимо от остальных.
type DialogKey struct {
	ChatID int64
	UserID int64
}

// Sessions хранит состояние диалога добавления по DialogKey.
// Idle-диалоги в карте не хранятся.
type Sessions struct {
	mu     sync.Mutex
	states map[DialogKey]State
}

func NewSessions() *Sessions {
	return &Sessions{states: make(map[DialogKey]State)}
}

func (s *Sessions) Begin(key DialogKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = StateAwaitingText
}

func (s *Sessions) State(key DialogKey) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key]
}

// End возвращает диалог в idle. Результат - был ли диалог открыт.
func (s *Sessions) End(key DialogKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[key]
	delete(s.states, key)
	return ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
