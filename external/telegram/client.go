package telegram

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/matchpoint/internal/platform/logging"
	"github.com/riskibarqy/matchpoint/internal/platform/resilience"
)

const (
	// DefaultBaseURL is the public Bot API host.
	DefaultBaseURL = "https://api.telegram.org"

	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4096
)

var errTelegramTransient = crerr.New("telegram transient failure")

// SendError reports a failed delivery to one chat. The wrapped error never
// contains the bot token; transport errors are redacted before wrapping.
type SendError struct {
	ChatID int64
	Status int
	Err    error
}

func (e *SendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("telegram send chat_id=%d status=%d: %v", e.ChatID, e.Status, e.Err)
	}
	return fmt.Sprintf("telegram send chat_id=%d: %v", e.ChatID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the Telegram Bot API. It satisfies usecase.NotificationSink
// and also carries the webhook management calls the HTTP layer needs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	maxRetries int
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
		breaker:    resilience.NewCircuitBreaker(cfg.CircuitBreaker),
	}
}

// Send delivers a plain text message to one chat.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	return c.sendMessage(ctx, chatID, text, nil)
}

// SendMessageWithKeyboard delivers a message with an inline keyboard attached.
func (c *Client) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard [][]InlineKeyboardButton) error {
	var markup *replyMarkup
	if len(keyboard) > 0 {
		markup = &replyMarkup{InlineKeyboard: keyboard}
	}
	return c.sendMessage(ctx, chatID, text, markup)
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string, markup *replyMarkup) error {
	if chatID == 0 {
		return &SendError{ChatID: chatID, Err: crerr.New("chat id is required")}
	}
	if strings.TrimSpace(text) == "" {
		return &SendError{ChatID: chatID, Err: crerr.New("message text is required")}
	}

	status, err := c.callMethod(ctx, "sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		return &SendError{ChatID: chatID, Status: status, Err: err}
	}
	return nil
}

// AnswerCallbackQuery acknowledges a button press so the client stops showing
// a spinner. The text is optional and shows as a toast when set.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error {
	callbackQueryID = strings.TrimSpace(callbackQueryID)
	if callbackQueryID == "" {
		return crerr.New("callback query id is required")
	}

	_, err := c.callMethod(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	})
	if err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}
	return nil
}

// SetWebhook registers the public webhook URL with Telegram. The secret is
// echoed back by Telegram on every update so the HTTP layer can verify origin.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string, secret string) error {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return crerr.New("webhook url is required")
	}

	_, err := c.callMethod(ctx, "setWebhook", setWebhookRequest{
		URL:         webhookURL,
		SecretToken: strings.TrimSpace(secret),
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// callMethod posts one Bot API method with retries for transient failures.
// The returned status is the last HTTP status, 0 when the request never
// reached Telegram.
func (c *Client) callMethod(ctx context.Context, method string, payload any) (int, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "telegram circuit breaker rejected request", "method", method, "state", c.breaker.State())
		return 0, fmt.Errorf("telegram is temporarily unavailable: %w", err)
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return 0, crerr.Wrap(err, "marshal telegram payload")
	}

	var (
		lastStatus int
		lastErr    error
	)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		status, err := c.postOnce(ctx, method, body)
		if err == nil {
			c.recordCircuitResult(nil)
			return status, nil
		}
		lastStatus, lastErr = status, err

		if ctx.Err() != nil {
			break
		}
		if attempt >= c.maxRetries || !isTelegramCircuitFailure(err) {
			break
		}

		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.recordCircuitResult(lastErr)
			return lastStatus, ctx.Err()
		case <-timer.C:
		}
	}

	c.recordCircuitResult(lastErr)
	c.logger.WarnContext(ctx, "telegram request failed", "method", method, "status", lastStatus, "error", lastErr)
	return lastStatus, lastErr
}

func (c *Client) postOnce(ctx context.Context, method string, body []byte) (int, error) {
	endpoint := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, crerr.Wrap(err, "create telegram request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: send request: %s", errTelegramTransient, c.redactToken(err.Error()))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	detail := truncateForLog(strings.TrimSpace(string(raw)), 512)

	if resp.StatusCode/100 != 2 {
		if isTelegramRetryableStatus(resp.StatusCode) {
			return resp.StatusCode, fmt.Errorf("%w: telegram api method=%s status=%d body=%s", errTelegramTransient, method, resp.StatusCode, detail)
		}
		return resp.StatusCode, fmt.Errorf("telegram api method=%s status=%d body=%s", method, resp.StatusCode, detail)
	}

	var envelope apiResponse
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return resp.StatusCode, crerr.Wrapf(err, "decode telegram response method=%s", method)
	}
	if !envelope.OK {
		return resp.StatusCode, fmt.Errorf("telegram api rejected method=%s: %s", method, truncateForLog(envelope.Description, 512))
	}
	return resp.StatusCode, nil
}

// redactToken scrubs the bot token from transport error text. The request URL
// embeds the token, and url.Error copies the URL verbatim.
func (c *Client) redactToken(value string) string {
	if c.token == "" {
		return value
	}
	return strings.ReplaceAll(value, c.token, "***")
}

func (c *Client) recordCircuitResult(err error) {
	if c.breaker == nil {
		return
	}
	if err == nil {
		c.breaker.RecordSuccess()
		return
	}
	if isTelegramCircuitFailure(err) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func isTelegramCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errTelegramTransient)
}

func isTelegramRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}
