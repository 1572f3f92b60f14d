package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"todo-chat/internal/client"
	"todo-chat/internal/logger"
)

type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
}

func NewBot(token string, handler *Handler) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания бота: %w", err)
	}
	bot.Debug = os.Getenv("TELEGRAM_DEBUG") != ""

	return &Bot{api: bot, handler: handler}, nil
}

// Start читает обновления до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("ошибка получения updates: %w", err)
	}

	logger.Info(ctx, "Бот запущен и слушает сообщения", "bot", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user := ""
	if msg.From != nil {
		user = msg.From.UserName
	}

	var reply string
	if msg.IsCommand() {
		cmd := Command{Name: msg.Command(), Args: msg.CommandArguments()}
		logCommand(ctx, user, cmd)
		reply = b.handler.HandleCommand(ctx, msg.Chat.ID, cmd)
		if cmd.Name == "login" || cmd.Name == "signup" {
			b.deleteMessage(ctx, msg)
		}
	} else {
		logger.Info(ctx, "Получено сообщение", "user", user, "chat_id", msg.Chat.ID)
		reply = b.handler.HandleText(ctx, msg.Chat.ID, msg.Text)
	}

	if reply != "" {
		b.sendMessage(ctx, msg.Chat.ID, reply)
	}
}

// deleteMessage убирает сообщение с паролем из чата
func (b *Bot) deleteMessage(ctx context.Context, msg *tgbotapi.Message) {
	_, err := b.api.DeleteMessage(tgbotapi.DeleteMessageConfig{ChatID: msg.Chat.ID, MessageID: msg.MessageID})
	if err != nil {
		logger.Warn(ctx, "Не удалось удалить сообщение с паролем", "chat_id", msg.Chat.ID, "error", err.Error())
	}
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Error(ctx, err, "Ошибка отправки сообщения", "chat_id", chatID)
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.SetLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	logger.Info(ctx, "Запуск Telegram-бота...")

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		logger.Error(ctx, fmt.Errorf("TELEGRAM_BOT_TOKEN is empty"), "Токен бота не задан")
		os.Exit(1)
	}
	apiURL := os.Getenv("TODO_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:7860"
	}

	bot, err := NewBot(botToken, NewHandler(client.New(apiURL)))
	if err != nil {
		logger.Error(ctx, err, "Ошибка создания бота")
		os.Exit(1)
	}

	logger.Info(ctx, "Бот успешно инициализирован", "api", apiURL)
	if err := bot.Start(ctx); err != nil {
		logger.Error(ctx, err, "Бот остановлен с ошибкой")
		os.Exit(1)
	}
	logger.Info(ctx, "Бот остановлен")
}
