package notify

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

const (
	defaultDiscordAPI = "https://discord.com/api"

	// Discord rejects embeds whose description exceeds this many characters.
	discordDescriptionMax = 4096
)

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

type discordMessage struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

// DiscordSender posts loop events to a Discord channel webhook as embeds.
type DiscordSender struct {
	apiBase string
	// webhook is the "<id>/<token>" part of the webhook URL.
	webhook string
	client  *http.Client
	now     func() time.Time
}

// NewDiscordSender accepts either a full webhook URL or its "<id>/<token>"
// suffix.
func NewDiscordSender(webhookURL string) *DiscordSender {
	base, hook := defaultDiscordAPI, webhookURL
	if i := strings.Index(webhookURL, "/webhooks/"); i >= 0 {
		base, hook = webhookURL[:i], webhookURL[i+len("/webhooks/"):]
	}
	return &DiscordSender{
		apiBase: base,
		webhook: strings.Trim(hook, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

// Send posts one embed. With wait=true Discord answers 200 once the message
// is stored instead of 204 on enqueue.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	if r := []rune(message); len(r) > discordDescriptionMax {
		message = string(r[:discordDescriptionMax-1]) + "…"
	}
	body, err := json.Marshal(discordMessage{
		Username: "tickbot",
		Embeds: []discordEmbed{{
			Title:       title,
			Description: message,
			Timestamp:   d.now().UTC().Format(time.RFC3339),
		}},
	})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/webhooks/%s?wait=true", d.apiBase, d.webhook)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (d *DiscordSender) Name() string { return "discord" }
