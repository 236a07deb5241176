package telegram

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/booklinehq/bookline/internal/conversation"
	"github.com/booklinehq/bookline/pkg/logging"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Dialogue consumes one conversation event for a chat.
type Dialogue interface {
	Handle(ctx context.Context, chatID int64, ev conversation.Event) error
}

// CallbackAnswerer acknowledges inline button presses.
type CallbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error
}

// UpdateMetrics counts inbound webhook updates by kind.
type UpdateMetrics interface {
	ObserveUpdate(kind string)
}

// WebhookHandler receives Bot API updates and routes them into the dialogue.
// Telegram redelivers on non-2xx responses, so handler-level failures are
// logged and answered with 200 to avoid a retry storm replaying the event.
type WebhookHandler struct {
	dialogue Dialogue
	answerer CallbackAnswerer
	secret   string
	logger   *logging.Logger
	metrics  UpdateMetrics
}

// WebhookOption configures a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithSecretToken requires Telegram's secret token header on every delivery.
func WithSecretToken(secret string) WebhookOption {
	return func(h *WebhookHandler) {
		h.secret = secret
	}
}

// WithCallbackAnswerer enables acknowledging button presses.
func WithCallbackAnswerer(a CallbackAnswerer) WebhookOption {
	return func(h *WebhookHandler) {
		h.answerer = a
	}
}

// WithUpdateMetrics attaches a metrics sink.
func WithUpdateMetrics(m UpdateMetrics) WebhookOption {
	return func(h *WebhookHandler) {
		h.metrics = m
	}
}

// NewWebhookHandler creates the webhook endpoint handler.
func NewWebhookHandler(dialogue Dialogue, logger *logging.Logger, opts ...WebhookOption) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &WebhookHandler{
		dialogue: dialogue,
		logger:   logger.Component("webhook"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && r.Header.Get(secretTokenHeader) != h.secret {
		h.logger.Warn("webhook delivery with bad secret token", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("undecodable webhook payload", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		h.observe("callback")
		cq := update.CallbackQuery
		if h.answerer != nil {
			if err := h.answerer.AnswerCallbackQuery(ctx, cq.ID); err != nil {
				h.logger.Warn("failed to answer callback query", "error", err)
			}
		}
		h.route(ctx, cq.Message.Chat.ID, conversation.Event{CallbackData: cq.Data})

	case update.Message != nil:
		h.observe("message")
		h.route(ctx, update.Message.Chat.ID, conversation.Event{Text: update.Message.Text})

	default:
		h.observe("ignored")
		h.logger.Debug("ignoring update without message or callback", "update_id", update.UpdateID)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *WebhookHandler) route(ctx context.Context, chatID int64, ev conversation.Event) {
	if err := h.dialogue.Handle(ctx, chatID, ev); err != nil {
		h.logger.Error("event handling failed", "chat_id", chatID, "error", err)
	}
}

func (h *WebhookHandler) observe(kind string) {
	if h.metrics != nil {
		h.metrics.ObserveUpdate(kind)
	}
}
