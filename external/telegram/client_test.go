package telegram

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/matchpoint/internal/platform/logging"
	"github.com/riskibarqy/matchpoint/internal/platform/resilience"
)

const testToken = "12345:TESTTOKEN"

func newTestClient(t *testing.T, baseURL string, maxRetries int) *Client {
	t.Helper()

	return NewClient(ClientConfig{
		BaseURL:    baseURL,
		Token:      testToken,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		Logger:     logging.NewNop(),
	})
}

func decodeSendMessage(t *testing.T, r *http.Request) sendMessageRequest {
	t.Helper()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("read request body: %v", err)
	}
	var req sendMessageRequest
	if err := sonic.Unmarshal(raw, &req); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return req
}

func TestClient_Send_PostsSendMessage(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got=%s", r.Method)
		}
		if want := "/bot" + testToken + "/sendMessage"; r.URL.Path != want {
			t.Errorf("expected path %s, got=%s", want, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got=%s", ct)
		}
		req := decodeSendMessage(t, r)
		if req.ChatID != 42 || req.Text != "привет" {
			t.Errorf("unexpected payload: %+v", req)
		}
		if req.ReplyMarkup != nil {
			t.Errorf("expected no reply markup, got=%+v", req.ReplyMarkup)
		}
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 10}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	if err := c.Send(context.Background(), 42, "привет"); err != nil {
		t.Fatalf("expected send to succeed, got=%v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 request, got=%d", got)
	}
}

func TestClient_Send_ValidatesInput(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://127.0.0.1:1", 0)

	var sendErr *SendError
	if err := c.Send(context.Background(), 0, "text"); !stderrors.As(err, &sendErr) {
		t.Fatalf("expected SendError for missing chat id, got=%v", err)
	}
	if err := c.Send(context.Background(), 42, "   "); !stderrors.As(err, &sendErr) {
		t.Fatalf("expected SendError for blank text, got=%v", err)
	}
}

func TestClient_SendMessageWithKeyboard_EncodesInlineKeyboard(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeSendMessage(t, r)
		if req.ReplyMarkup == nil {
			t.Errorf("expected reply markup, got none")
			_, _ = w.Write([]byte(`{"ok": true}`))
			return
		}
		rows := req.ReplyMarkup.InlineKeyboard
		if len(rows) != 2 || len(rows[0]) != 1 || len(rows[1]) != 1 {
			t.Errorf("unexpected keyboard shape: %+v", rows)
		}
		if rows[0][0].Text != "Следить: Синнер — Алькарас" || rows[0][0].CallbackData != "watch_ev:111" {
			t.Errorf("unexpected first button: %+v", rows[0][0])
		}
		if rows[1][0].CallbackData != "watch_tour:17" {
			t.Errorf("unexpected second button: %+v", rows[1][0])
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	keyboard := [][]InlineKeyboardButton{
		{{Text: "Следить: Синнер — Алькарас", CallbackData: "watch_ev:111"}},
		{{Text: "✅ Следить за ВСЕМИ матчами турнира", CallbackData: "watch_tour:17"}},
	}
	if err := c.SendMessageWithKeyboard(context.Background(), 42, "Матчи: Cincinnati Open", keyboard); err != nil {
		t.Fatalf("expected send to succeed, got=%v", err)
	}
}

func TestClient_Send_RejectedBodyIsSendError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	err := c.Send(context.Background(), 42, "привет")

	var sendErr *SendError
	if !stderrors.As(err, &sendErr) {
		t.Fatalf("expected SendError, got=%v", err)
	}
	if sendErr.Status != http.StatusOK {
		t.Fatalf("expected status 200, got=%d", sendErr.Status)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected description in error, got=%v", err)
	}
}

func TestClient_Send_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok": false, "description": "Too Many Requests: retry after 1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	if err := c.Send(context.Background(), 42, "привет"); err != nil {
		t.Fatalf("expected retry to succeed, got=%v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected 2 requests, got=%d", got)
	}
}

func TestClient_Send_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok": false, "description": "Bad Request: message text is empty"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	err := c.Send(context.Background(), 42, "привет")

	var sendErr *SendError
	if !stderrors.As(err, &sendErr) {
		t.Fatalf("expected SendError, got=%v", err)
	}
	if sendErr.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got=%d", sendErr.Status)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected no retries, got=%d requests", got)
	}
}

func TestClient_Send_CircuitBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"ok": false, "description": "Internal Server Error"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		Token:      testToken,
		Timeout:    2 * time.Second,
		MaxRetries: 0,
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if err := c.Send(context.Background(), 42, "привет"); err == nil {
		t.Fatalf("expected first send to fail")
	}
	err := c.Send(context.Background(), 42, "привет")
	if !stderrors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got=%v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected rejected request to skip transport, got=%d hits", got)
	}
}

func TestClient_Send_RedactsTokenInTransportErrors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://127.0.0.1:1", 0)
	err := c.Send(context.Background(), 42, "привет")
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if strings.Contains(err.Error(), testToken) {
		t.Fatalf("expected token to be redacted, got=%v", err)
	}
	if !strings.Contains(err.Error(), "***") {
		t.Fatalf("expected redaction marker in error, got=%v", err)
	}
}

func TestClient_AnswerCallbackQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := "/bot" + testToken + "/answerCallbackQuery"; r.URL.Path != want {
			t.Errorf("expected path %s, got=%s", want, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var req answerCallbackQueryRequest
		if err := sonic.Unmarshal(raw, &req); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if req.CallbackQueryID != "cq-1" || req.Text != "Ок, добавил матч." {
			t.Errorf("unexpected payload: %+v", req)
		}
		_, _ = w.Write([]byte(`{"ok": true, "result": true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	if err := c.AnswerCallbackQuery(context.Background(), "cq-1", "Ок, добавил матч."); err != nil {
		t.Fatalf("expected answer to succeed, got=%v", err)
	}
	if err := c.AnswerCallbackQuery(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for blank callback query id")
	}
}

func TestClient_SetWebhook(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := "/bot" + testToken + "/setWebhook"; r.URL.Path != want {
			t.Errorf("expected path %s, got=%s", want, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var req setWebhookRequest
		if err := sonic.Unmarshal(raw, &req); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if req.URL != "https://bot.example.com/webhook" || req.SecretToken != "s3cret" {
			t.Errorf("unexpected payload: %+v", req)
		}
		_, _ = w.Write([]byte(`{"ok": true, "result": true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	if err := c.SetWebhook(context.Background(), "https://bot.example.com/webhook", "s3cret"); err != nil {
		t.Fatalf("expected set webhook to succeed, got=%v", err)
	}
	if err := c.SetWebhook(context.Background(), "", "s3cret"); err == nil {
		t.Fatalf("expected error for blank webhook url")
	}
}

func TestLogSink_Send(t *testing.T) {
	t.Parallel()

	sink := NewLogSink(nil)
	if err := sink.Send(context.Background(), 7, "card text"); err != nil {
		t.Fatalf("expected log sink to succeed, got=%v", err)
	}
}
