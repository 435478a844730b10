package routes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agomzy/hookrelay/internal/relay"
)

// GitHub caps webhook payloads well above anything we can render as a chat
// message, so we read at most 1 MiB.
const maxPayloadBytes = 1 << 20

// Dispatcher runs a webhook delivery through the relay pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, delivery relay.Delivery) error
}

// Onboarder consumes a Telegram chat message.
type Onboarder interface {
	HandleMessage(ctx context.Context, chatID, text string) error
}

type WebhookRoutes struct {
	dispatcher Dispatcher
	onboarding Onboarder
	log        *slog.Logger
}

func NewWebhookRoutes(dispatcher Dispatcher, onboarding Onboarder, log *slog.Logger) *WebhookRoutes {
	return &WebhookRoutes{
		dispatcher: dispatcher,
		onboarding: onboarding,
		log:        log,
	}
}

func (w *WebhookRoutes) RegisterRoutes(e *echo.Echo) {
	e.POST("/notifications/github", w.handleGitHubWebhook)
	e.POST("/telegram_webhook", w.handleTelegramWebhook)
}

func (w *WebhookRoutes) handleGitHubWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status": "error",
			"detail": "failed to read request body",
		})
	}

	delivery := relay.Delivery{
		Event:     c.Request().Header.Get("X-GitHub-Event"),
		Signature: c.Request().Header.Get("X-Hub-Signature-256"),
		Body:      body,
	}

	if err := w.dispatcher.Dispatch(c.Request().Context(), delivery); err != nil {
		var relayErr *relay.Error
		if errors.As(err, &relayErr) {
			return c.JSON(relayErr.Status, map[string]string{
				"status": "error",
				"detail": relayErr.Detail,
			})
		}
		w.log.Error("webhook dispatch failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status": "error",
			"detail": "internal server error",
		})
	}

	message := "Notification sent"
	if strings.EqualFold(strings.TrimSpace(delivery.Event), relay.PingEvent) {
		message = "Ping received successfully"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": message,
	})
}

func (w *WebhookRoutes) handleTelegramWebhook(c echo.Context) error {
	var update struct {
		Message *struct {
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
			Text string `json:"text"`
		} `json:"message"`
	}
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status": "error",
			"detail": "invalid payload",
		})
	}
	if update.Message == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	if err := w.onboarding.HandleMessage(c.Request().Context(), chatID, update.Message.Text); err != nil {
		w.log.Error("onboarding message failed", "chat_id", chatID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status": "error",
			"detail": "internal server error",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
