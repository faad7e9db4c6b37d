package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-bot/internal/metrics"
	"github.com/BuzzLyutic/todo-bot/internal/repo"
	"github.com/BuzzLyutic/todo-bot/internal/service"
)

// Sender - часть *tgbotapi.BotAPI, которой пользуется бот
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api      Sender
	service  *service.TaskService
	sessions *Sessions
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func New(api Sender, srv *service.TaskService, m *metrics.Metrics, logger *zap.Logger) *Bot {
	return &Bot{
		api:      api,
		service:  srv,
		sessions: NewSessions(),
		metrics:  m,
		logger:   logger,
	}
}

// HandleUpdate - точка входа для одного апдейта Telegram
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	switch {
	case upd.CallbackQuery != nil:
		b.metrics.Updates.WithLabelValues("callback").Inc()
		return b.handleDoneButton(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.metrics.Updates.WithLabelValues("message").Inc()
		return b.handleMessage(ctx, upd.Message)
	default:
		b.metrics.Updates.WithLabelValues("other").Inc()
		return nil
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	if msg.IsCommand() {
		return b.route(ctx, msg)
	}

	// Текст вне диалога и нетекстовые сообщения игнорируются
	if msg.Text != "" && b.sessions.State(dialogOf(msg)) == StateAwaitingText {
		return b.saveTask(ctx, msg)
	}
	return nil
}

func (b *Bot) route(ctx context.Context, msg *tgbotapi.Message) error {
	cmd := msg.Command()
	if cmd == cmdCancel {
		return b.cancel(msg)
	}

	// Любая другая команда закрывает незавершенный диалог
	b.endDialog(dialogOf(msg))

	switch cmd {
	case cmdStart:
		return b.start(msg)
	case cmdAdd:
		return b.startAddTask(msg)
	case cmdList:
		return b.listTasks(ctx, msg)
	default:
		return b.reply(msg.Chat.ID, textUnknownCommand)
	}
}

func (b *Bot) start(msg *tgbotapi.Message) error {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("/add")),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("/list")),
	)
	keyboard.ResizeKeyboard = true

	out := tgbotapi.NewMessage(msg.Chat.ID, textGreeting)
	out.ReplyMarkup = keyboard
	_, err := b.api.Send(out)
	return err
}

func (b *Bot) startAddTask(msg *tgbotapi.Message) error {
	b.sessions.Begin(dialogOf(msg))
	b.metrics.ActiveDialogs.Set(float64(b.sessions.Len()))
	return b.reply(msg.Chat.ID, textAskTask)
}

func (b *Bot) saveTask(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	b.endDialog(dialogOf(msg)) // диалог завершается при любом исходе

	task, err := b.service.Add(ctx, ownerID(msg.From), msg.Text)
	if errors.Is(err, service.ErrValidation) {
		b.metrics.TaskEvents.WithLabelValues("rejected").Inc()
		return b.reply(chatID, textEmptyTask)
	}
	if err != nil {
		return b.reportError(chatID, err)
	}

	b.metrics.TaskEvents.WithLabelValues("added").Inc()
	b.logger.Info("Task added",
		zap.Int64("chat_id", chatID),
		zap.Int64("task_id", task.ID),
	)
	return b.reply(chatID, fmt.Sprintf(textAddedFmt, task.Text))
}

func (b *Bot) cancel(msg *tgbotapi.Message) error {
	if !b.endDialog(dialogOf(msg)) {
		return b.reply(msg.Chat.ID, textNothingToCancel)
	}
	return b.reply(msg.Chat.ID, textCancelled)
}

func (b *Bot) listTasks(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	tasks, err := b.service.List(ctx, ownerID(msg.From))
	if err != nil {
		return b.reportError(chatID, err)
	}

	if len(tasks) == 0 {
		return b.reply(chatID, textNoTasks)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonLabel(t.Text), DonePayload(t.ID)),
		))
	}

	out := tgbotapi.NewMessage(chatID, textTaskList)
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleDoneButton(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	// Ответ на callback убирает "часики" у кнопки
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.String("callback_id", cq.ID), zap.Error(err))
	}

	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		return nil
	}
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID

	id, err := ParseDonePayload(cq.Data)
	if err != nil {
		b.logger.Debug("unexpected callback payload", zap.String("data", cq.Data))
		b.metrics.TaskEvents.WithLabelValues("not_found").Inc()
		return b.edit(chatID, messageID, textTaskNotFound)
	}

	task, err := b.service.Done(ctx, id, ownerID(cq.From))
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		b.metrics.TaskEvents.WithLabelValues("not_found").Inc()
		return b.edit(chatID, messageID, textTaskNotFound)
	case err != nil:
		return b.reportError(chatID, err)
	}

	b.metrics.TaskEvents.WithLabelValues("deleted").Inc()
	b.logger.Info("Task deleted",
		zap.Int64("chat_id", chatID),
		zap.Int64("task_id", task.ID),
	)
	return b.edit(chatID, messageID, fmt.Sprintf(textDeletedFmt, task.Text))
}

func (b *Bot) endDialog(key DialogKey) bool {
	ended := b.sessions.End(key)
	b.metrics.ActiveDialogs.Set(float64(b.sessions.Len()))
	return ended
}

func (b *Bot) reply(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) edit(chatID int64, messageID int, text string) error {
	_, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// reportError сообщает пользователю о сбое и возвращает исходную ошибку диспетчеру
func (b *Bot) reportError(chatID int64, err error) error {
	if replyErr := b.reply(chatID, textInternalError); replyErr != nil {
		b.logger.Warn("failed to report error to user", zap.Int64("chat_id", chatID), zap.Error(replyErr))
	}
	return err
}

func dialogOf(msg *tgbotapi.Message) DialogKey {
	return DialogKey{ChatID: msg.Chat.ID, UserID: msg.From.ID}
}

func ownerID(u *tgbotapi.User) string {
	return strconv.FormatInt(u.ID, 10)
}
