package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
)

const component = "telegram_bot"

// botAPI содержит методы *tgbotapi.BotAPI, которыми пользуется клиент.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client отправляет сообщения через Bot API.
type Client struct {
	bot botAPI
}

// NewClient оборачивает бота.
func NewClient(bot *tgbotapi.BotAPI) *Client {
	return &Client{bot: bot}
}

// Commands — меню команд бота.
var Commands = []tgbotapi.BotCommand{
	{Command: "chart", Description: "Столбчатая диаграмма"},
	{Command: "stats", Description: "Текстовая статистика"},
	{Command: "rules", Description: "Правила получения и списания палок"},
	{Command: "sticks", Description: "Изменить количество палок"},
	{Command: "subscribe", Description: "Подписаться на уведомления"},
	{Command: "unsubscribe", Description: "Отписаться от уведомлений"},
	{Command: "time", Description: "Опрос «Во сколько играем?»"},
	{Command: "results", Description: "Результаты опроса"},
}

// SendText отправляет текст, при необходимости разбивая его на части.
// Возвращает идентификатор первого отправленного сообщения.
func (c *Client) SendText(_ context.Context, chatID int64, text string, opts domain.SendOptions) (int, error) {
	parts := SplitMessage(text, opts.ParseMode)
	firstID := 0
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = opts.ParseMode
		if i == 0 {
			msg.ReplyToMessageID = opts.ReplyTo
		}
		start := time.Now()
		sent, err := c.bot.Send(msg)
		metrics.ObserveNetworkRequest(component, "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			return firstID, classify(err)
		}
		if i == 0 {
			firstID = sent.MessageID
		}
	}
	return firstID, nil
}

// EditText заменяет текст ранее отправленного сообщения.
func (c *Client) EditText(_ context.Context, chatID int64, messageID int, text string, opts domain.SendOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = opts.ParseMode
	start := time.Now()
	_, err := c.bot.Send(edit)
	metrics.ObserveNetworkRequest(component, "edit_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil && isNotModified(err) {
		return nil
	}
	return classify(err)
}

// SendImage отправляет PNG как фото.
func (c *Client) SendImage(_ context.Context, chatID int64, name string, image []byte) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: image})
	start := time.Now()
	_, err := c.bot.Send(photo)
	metrics.ObserveNetworkRequest(component, "send_photo", strconv.FormatInt(chatID, 10), start, err)
	return classify(err)
}

// RegisterCommands публикует меню команд.
func (c *Client) RegisterCommands(context.Context) error {
	start := time.Now()
	_, err := c.bot.Request(tgbotapi.NewSetMyCommands(Commands...))
	metrics.ObserveNetworkRequest(component, "set_my_commands", "", start, err)
	if err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}
	return nil
}

// SetWebhook регистрирует адрес вебхука.
func (c *Client) SetWebhook(_ context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	start := time.Now()
	_, err = c.bot.Request(wh)
	metrics.ObserveNetworkRequest(component, "set_webhook", "", start, err)
	if err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	return nil
}

// DeleteWebhook снимает вебхук, чтобы работал long polling.
func (c *Client) DeleteWebhook(context.Context) error {
	start := time.Now()
	_, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{})
	metrics.ObserveNetworkRequest(component, "delete_webhook", "", start, err)
	if err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}

// classify помечает ошибки, после которых писать в чат бессмысленно.
func classify(err error) error {
	if err == nil {
		return nil
	}
	code, desc, ok := apiError(err)
	if !ok {
		return err
	}
	desc = strings.ToLower(desc)
	switch {
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrRecipientUnreachable, err)
	case code == http.StatusBadRequest && strings.Contains(desc, "chat not found"):
		return fmt.Errorf("%w: %w", domain.ErrRecipientUnreachable, err)
	}
	return err
}

func isNotModified(err error) bool {
	code, desc, ok := apiError(err)
	return ok && code == http.StatusBadRequest && strings.Contains(strings.ToLower(desc), "message is not modified")
}

func apiError(err error) (int, string, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val.Code, val.Message, true
	}
	return 0, "", false
}
