package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/booklinehq/bookline/internal/conversation"
	"github.com/booklinehq/bookline/pkg/logging"
)

const (
	defaultAPIBaseURL = "https://api.telegram.org"
	defaultTimeout    = 15 * time.Second
)

// SendMetrics counts outbound Bot API calls by method and status.
type SendMetrics interface {
	ObserveSend(method, status string)
}

// Client calls the Telegram Bot API over HTTPS. It satisfies the
// conversation layer's Messenger interface.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    SendMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Bot API origin, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithSendMetrics attaches a metrics sink for outbound calls.
func WithSendMetrics(m SendMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		token:   token,
		baseURL: defaultAPIBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.Component("telegram"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	return c.call(ctx, "sendMessage", payload)
}

// SendInlineKeyboard sends a text message with an inline keyboard attached.
func (c *Client) SendInlineKeyboard(ctx context.Context, chatID int64, text string, rows [][]conversation.Button) error {
	markup := InlineKeyboardMarkup{InlineKeyboard: make([][]InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		buttons := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, InlineKeyboardButton{Text: b.Label, CallbackData: b.CallbackData})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}

	payload := map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"reply_markup": markup,
	}
	return c.call(ctx, "sendMessage", payload)
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing a loading spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	payload := map[string]any{
		"callback_query_id": callbackQueryID,
	}
	return c.call(ctx, "answerCallbackQuery", payload)
}

// SetWebhook registers the webhook URL with Telegram. When secret is
// non-empty, Telegram will echo it in the X-Telegram-Bot-Api-Secret-Token
// header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	payload := map[string]any{
		"url": webhookURL,
	}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", payload)
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	err := c.doCall(ctx, method, payload)
	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.ObserveSend(method, status)
	}
	return err
}

func (c *Client) doCall(ctx context.Context, method string, payload any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("telegram: %s returned status %d with undecodable body", method, resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram: %s failed with code %d: %s", method, parsed.ErrorCode, parsed.Description)
	}

	c.logger.Debug("bot API call succeeded", "method", method)
	return nil
}
