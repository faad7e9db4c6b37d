package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-bot/internal/metrics"
	helpers "github.com/BuzzLyutic/todo-bot/internal/testutil"
)

// recordingHandler запоминает порядок обработки по чатам
type recordingHandler struct {
	mu     sync.Mutex
	seen   map[int64][]int
	total  int
	delay  time.Duration
	handle func(upd tgbotapi.Update) error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(map[int64][]int)}
}

func (h *recordingHandler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.seen[chatID(upd)] = append(h.seen[chatID(upd)], upd.UpdateID)
	h.total++
	h.mu.Unlock()

	if h.handle != nil {
		return h.handle(upd)
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

func messageUpdate(updateID int, chat int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: updateID,
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chat},
			From: &tgbotapi.User{ID: chat},
			Text: "x",
		},
	}
}

func TestPool_PreservesPerChatOrder(t *testing.T) {
	handler := newRecordingHandler()
	pool := NewPool(handler, metrics.New("test"), zap.NewNop(), 4)

	updates := make(chan tgbotapi.Update)
	pool.Start(context.Background(), updates)

	const perChat = 50
	chats := []int64{1, 2, 3, -1001234567890}
	id := 0
	for i := 0; i < perChat; i++ {
		for _, chat := range chats {
			id++
			updates <- messageUpdate(id, chat)
		}
	}

	require.True(t, helpers.WaitForCondition(t, 5*time.Second, func() bool {
		return handler.count() == perChat*len(chats)
	}))
	pool.Stop()

	for _, chat := range chats {
		ids := handler.seen[chat]
		require.Len(t, ids, perChat)
		assert.IsIncreasing(t, ids, "chat %d updates out of order", chat)
	}
}

func TestPool_SameChatSameWorker(t *testing.T) {
	pool := NewPool(newRecordingHandler(), metrics.New("test"), zap.NewNop(), 3)

	callback := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
	}}
	assert.Equal(t, pool.shard(messageUpdate(1, 42)), pool.shard(callback))

	for _, chat := range []int64{0, 1, -5, 1 << 40} {
		s := pool.shard(messageUpdate(1, chat))
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 3)
	}
}

func TestPool_RecoversFromPanic(t *testing.T) {
	handler := newRecordingHandler()
	handler.handle = func(upd tgbotapi.Update) error {
		if upd.UpdateID == 1 {
			panic("boom")
		}
		return nil
	}
	m := metrics.New("test")
	pool := NewPool(handler, m, zap.NewNop(), 1)

	updates := make(chan tgbotapi.Update, 2)
	updates <- messageUpdate(1, 10)
	updates <- messageUpdate(2, 10)
	pool.Start(context.Background(), updates)

	require.True(t, helpers.WaitForCondition(t, 5*time.Second, func() bool {
		return handler.count() == 2
	}))
	pool.Stop()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HandlerErrors.WithLabelValues("panic")))
}

func TestPool_CountsHandlerErrors(t *testing.T) {
	handler := newRecordingHandler()
	handler.handle = func(tgbotapi.Update) error { return errors.New("database is locked") }
	m := metrics.New("test")
	pool := NewPool(handler, m, zap.NewNop(), 2)

	updates := make(chan tgbotapi.Update, 3)
	for i := 1; i <= 3; i++ {
		updates <- messageUpdate(i, int64(i))
	}
	close(updates)
	pool.Start(context.Background(), updates)

	require.True(t, helpers.WaitForCondition(t, 5*time.Second, func() bool {
		return handler.count() == 3
	}))
	pool.Stop()

	assert.Equal(t, float64(3), testutil.ToFloat64(m.HandlerErrors.WithLabelValues("error")))
}

func TestPool_StopDrainsQueuedUpdates(t *testing.T) {
	handler := newRecordingHandler()
	handler.delay = 20 * time.Millisecond
	pool := NewPool(handler, metrics.New("test"), zap.NewNop(), 1)

	updates := make(chan tgbotapi.Update)
	pool.Start(context.Background(), updates)

	for i := 1; i <= 5; i++ {
		updates <- messageUpdate(i, 1)
	}
	pool.Stop()

	// все принятые диспетчером апдейты обработаны до возврата из Stop
	assert.Equal(t, 5, handler.count())
}

func TestPool_StopsOnContextCancel(t *testing.T) {
	pool := NewPool(newRecordingHandler(), metrics.New("test"), zap.NewNop(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, make(chan tgbotapi.Update))
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		pool.Stop() // повторный вызов безопасен
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker pool did not stop within 5 seconds")
	}
}

func TestPool_HandlerContextSurvivesCancel(t *testing.T) {
	handler := newRecordingHandler()
	var ctxErr error
	var once sync.Once
	block := make(chan struct{})
	handler.handle = func(tgbotapi.Update) error {
		<-block
		return nil
	}
	wrapped := handlerFunc(func(ctx context.Context, upd tgbotapi.Update) error {
		err := handler.HandleUpdate(ctx, upd)
		once.Do(func() { ctxErr = ctx.Err() })
		return err
	})
	pool := NewPool(wrapped, metrics.New("test"), zap.NewNop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan tgbotapi.Update)
	pool.Start(ctx, updates)
	updates <- messageUpdate(1, 1)

	cancel()
	close(block)
	pool.Stop()

	assert.NoError(t, ctxErr, "in-flight update must finish with a live context")
}

type handlerFunc func(ctx context.Context, upd tgbotapi.Update) error

func (f handlerFunc) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	return f(ctx, upd)
}
