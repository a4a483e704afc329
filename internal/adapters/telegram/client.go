/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/rs/zerolog"
)

const defaultAPIBase = "https://api.telegram.org"

type Client struct {
	token   string
	chatIDs []int64
	apiBase string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		token:   cfg.TelegramToken,
		chatIDs: cfg.TelegramChatIDs,
		apiBase: defaultAPIBase,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "telegram").Logger(),
	}
}

// Enabled reports whether a token and at least one chat are configured.
func (c *Client) Enabled() bool { return c.token != "" && len(c.chatIDs) > 0 }

// Notify sends text to every configured chat. Markdown is not used so run errors
// containing brackets or underscores are delivered verbatim.
func (c *Client) Notify(ctx context.Context, text string) error {
	if !c.Enabled() {
		return nil
	}
	var errs []error
	for _, chat := range c.chatIDs {
		if err := c.SendMessagePlain(ctx, chat, text); err != nil {
			c.log.Error().Err(err).Int64("chat_id", chat).Msg("telegram notify failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) SendMessagePlain(ctx context.Context, chatID int64, text string) error {
	if c.token == "" || chatID == 0 {
		return fmt.Errorf("telegram: missing token or chat id")
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.apiBase, "/"), c.token)
	body := map[string]any{"chat_id": chatID, "text": text, "disable_web_page_preview": true}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram sendMessage status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
