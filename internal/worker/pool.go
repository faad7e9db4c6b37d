package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-bot/internal/metrics"
)

const (
	queueSize     = 64
	handleTimeout = 30 * time.Second
)

// Handler обрабатывает один апдейт
type Handler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update) error
}

// Pool раздает апдейты воркерам по chat id: апдейты одного чата
// всегда попадают к одному воркеру и обрабатываются по порядку.
type Pool struct {
	handler  Handler
	metrics  *metrics.Metrics
	logger   *zap.Logger
	count    int
	queues   []chan tgbotapi.Update
	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func NewPool(handler Handler, m *metrics.Metrics, logger *zap.Logger, count int) *Pool {
	if count < 1 {
		count = 1
	}
	queues := make([]chan tgbotapi.Update, count)
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, queueSize)
	}
	return &Pool{
		handler: handler,
		metrics: m,
		logger:  logger,
		count:   count,
		queues:  queues,
		stop:    make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context, updates <-chan tgbotapi.Update) {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.count))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.wg.Add(1)
	go p.dispatch(ctx, updates)
}

// Stop прекращает прием апдейтов, дожидается обработки уже полученных
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool...")
		close(p.stop)
		p.wg.Wait()
		p.logger.Info("Worker pool stopped")
	})
}

func (p *Pool) dispatch(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer p.wg.Done()
	defer func() {
		for _, q := range p.queues {
			close(q)
		}
	}()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			q := p.queues[p.shard(upd)]
			select {
			case q <- upd: // уже принятый апдейт не теряем, если в очереди есть место
			default:
				select {
				case q <- upd:
				case <-p.stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	// Апдейты дочитываются и после остановки, поэтому контекст отвязан от отмены
	base := context.WithoutCancel(ctx)
	for upd := range p.queues[id] {
		p.process(base, id, upd)
	}
}

func (p *Pool) process(ctx context.Context, workerID int, upd tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		p.metrics.ObserveHandle(time.Since(start))
	}()

	defer func() { // паника в хендлере теряет только этот апдейт
		if r := recover(); r != nil {
			p.metrics.HandlerErrors.WithLabelValues("panic").Inc()
			p.logger.Error("handler panic",
				zap.Int("worker", workerID),
				zap.Int("update_id", upd.UpdateID),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := p.handler.HandleUpdate(ctx, upd); err != nil {
		p.metrics.HandlerErrors.WithLabelValues("error").Inc()
		p.logger.Error("handler error",
			zap.Int("worker", workerID),
			zap.Int("update_id", upd.UpdateID),
			zap.Int64("chat_id", chatID(upd)),
			zap.Error(err),
		)
	}
}

func (p *Pool) shard(upd tgbotapi.Update) int {
	return int(uint64(chatID(upd)) % uint64(p.count))
}

func chatID(upd tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil:
		return upd.CallbackQuery.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID
	default:
		return 0
	}
}
