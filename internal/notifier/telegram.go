package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"OilSentinel/internal/model"
)

// ErrRateLimited is returned when Telegram keeps answering 429 after all
// bounded retries.
var ErrRateLimited = errors.New("telegram rate limited")

const (
	rateLimitRetries = 3
	maxRetryAfter    = 60 * time.Second
)

// TelegramNotifier talks to the Telegram Bot API: it renames the chat,
// posts messages, and long-polls for commands.
type TelegramNotifier struct {
	BotToken    string
	ChatID      string
	TitlePrefix string
	Client      *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, titlePrefix, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken:    botToken,
		ChatID:      chatID,
		TitlePrefix: titlePrefix,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// apiBase is variable so tests can point the notifier at a local server.
var apiBase = "https://api.telegram.org"

func (t *TelegramNotifier) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", apiBase, t.BotToken, method)
}

// call posts a Bot API method, honoring 429 retry_after for a bounded
// number of attempts.
func (t *TelegramNotifier) call(ctx context.Context, method string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	for attempt := 0; attempt <= rateLimitRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL(method), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.Client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("%s: status %d, body: %s", method, resp.StatusCode, string(respBody))
		}

		wait := retryAfter(respBody)
		log.Printf("[WARN] telegram %s rate limited (attempt %d/%d), waiting %v", method, attempt+1, rateLimitRetries+1, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s: %w", method, ErrRateLimited)
}

func retryAfter(body []byte) time.Duration {
	var resp struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Parameters.RetryAfter > 0 {
		wait := time.Duration(resp.Parameters.RetryAfter) * time.Second
		if wait > maxRetryAfter {
			wait = maxRetryAfter
		}
		return wait
	}
	return 5 * time.Second
}

// SendMessage posts an HTML-formatted message to the configured chat.
func (t *TelegramNotifier) SendMessage(ctx context.Context, html string) error {
	return t.call(ctx, "sendMessage", map[string]string{
		"chat_id":    t.ChatID,
		"text":       html,
		"parse_mode": "HTML",
	})
}

// SetChatTitle renames the configured chat.
func (t *TelegramNotifier) SetChatTitle(ctx context.Context, title string) error {
	return t.call(ctx, "setChatTitle", map[string]string{
		"chat_id": t.ChatID,
		"title":   title,
	})
}

// AnnounceResult reports the two announcement calls independently.
type AnnounceResult struct {
	RenameErr  error
	MessageErr error
}

// Failed reports whether either call failed.
func (r *AnnounceResult) Failed() bool { return r.RenameErr != nil || r.MessageErr != nil }

// Announce reflects a price change into the chat: rename the chat to show
// the new price, then post the change message. The calls are independent;
// one failing never blocks the other.
func (t *TelegramNotifier) Announce(ctx context.Context, evt *model.ChangeEvent) *AnnounceResult {
	res := &AnnounceResult{}

	title := FormatTitle(t.TitlePrefix, evt.New.Price, evt.Delta.Trend)
	if err := t.SetChatTitle(ctx, title); err != nil {
		res.RenameErr = err
		log.Printf("[ERROR] rename chat: %v", err)
	}

	if err := t.SendMessage(ctx, FormatChangeMessage(evt)); err != nil {
		res.MessageErr = err
		log.Printf("[ERROR] post change message: %v", err)
	}

	return res
}
