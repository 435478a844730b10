// Package telegram sends bot messages through the Telegram HTTP API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// Client is a minimal sendMessage-only Telegram bot client.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

// NewClient constructs a client for the given bot token. baseURL is the API
// host; pass an empty string for the public Telegram API.
func NewClient(botToken, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		botToken:   strings.TrimSpace(botToken),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMessage delivers a Markdown-formatted message to a chat. Link previews
// are disabled so notification links stay compact. There is no retry; a
// failed send surfaces to the caller.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sendMessage payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram rejected message: status=%s body=%s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
