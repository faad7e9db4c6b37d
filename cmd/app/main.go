package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-bot/internal/bot"
	"github.com/BuzzLyutic/todo-bot/internal/config"
	"github.com/BuzzLyutic/todo-bot/internal/metrics"
	"github.com/BuzzLyutic/todo-bot/internal/repo"
	"github.com/BuzzLyutic/todo-bot/internal/server"
	"github.com/BuzzLyutic/todo-bot/internal/service"
	"github.com/BuzzLyutic/todo-bot/internal/worker"
)

func main() {
	// Загрузка конфигурации
	cfg, cfgErr := config.Load()

	// Подключаем логгер
	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("Invalid configuration", zap.Error(cfgErr)) // без токена работать бессмысленно
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Подключаем БД
	store, err := repo.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open the Database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer store.Close()

	taskService := service.NewTaskService(store)
	if err := taskService.Init(ctx); err != nil {
		logger.Fatal("Failed to create tasks table", zap.Error(err))
	}
	logger.Info("Database is ready", zap.String("driver", cfg.DBDriver))

	api, err := tgbotapi.NewBotAPI(cfg.BotToken) // getMe: неверный токен обнаружится сразу
	if err != nil {
		logger.Fatal("Failed to authorize the bot", zap.Error(err))
	}
	api.Debug = cfg.Debug
	logger.Info("Authorized", zap.String("bot", api.Self.UserName))

	m := metrics.New(cfg.MetricsNamespace)
	todoBot := bot.New(api, taskService, m, logger)

	var statusSrv *http.Server
	if cfg.StatusAddr != "" {
		statusSrv = server.New(cfg.StatusAddr, server.NewRouter(taskService, m, logger))
		go func() {
			logger.Info("Status server started", zap.String("addr", statusSrv.Addr))
			if err := statusSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Status server failed", zap.Error(err))
			}
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.PollTimeout
	updates := api.GetUpdatesChan(u)

	pool := worker.NewPool(todoBot, m, logger, cfg.WorkerCount)
	pool.Start(ctx, updates)
	logger.Info("Bot started, polling for updates")

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("Shutting down...")

	api.StopReceivingUpdates()
	pool.Stop()

	if statusSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := statusSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Status server shutdown error", zap.Error(err))
		}
	}
	logger.Info("Bot stopped successfully!")
}

func newLogger(debug bool) *zap.Logger {
	build := zap.NewProduction
	if debug {
		build = zap.NewDevelopment
	}
	logger, err := build()
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return logger
}
