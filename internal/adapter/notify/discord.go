package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cryoner-gateway/config"
	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// retryIntervals between delivery attempts.
var retryIntervals = []time.Duration{2 * time.Second, 5 * time.Second}

// Embed colors per event.
const (
	colorCreated   = 0xF59E0B // amber
	colorConfirmed = 0x22C55E // green
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DiscordNotifier implements ports.Notifier by posting rich embeds to a
// Discord webhook. An empty webhook URL disables delivery.
type DiscordNotifier struct {
	webhookURL string
	client     HTTPClient
	log        zerolog.Logger
}

// NewDiscordNotifier creates a notifier for the configured webhook.
func NewDiscordNotifier(cfg config.NotifyConfig, client HTTPClient, log zerolog.Logger) *DiscordNotifier {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &DiscordNotifier{
		webhookURL: cfg.WebhookURL,
		client:     client,
		log:        log,
	}
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Timestamp string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Notify posts the lifecycle event to the webhook, retrying transient
// failures until the context expires.
func (n *DiscordNotifier) Notify(ctx context.Context, event ports.NotifyEvent, rec *domain.OrderRecord) error {
	if n.webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(discordMessage{Embeds: []discordEmbed{n.buildEmbed(event, rec)}})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(retryIntervals); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryIntervals[attempt-1]):
			}
		}

		if lastErr = n.deliver(ctx, payload); lastErr == nil {
			n.log.Debug().Str("order_id", rec.OrderID).Str("event", string(event)).Msg("notification delivered")
			return nil
		}
		n.log.Warn().Err(lastErr).Str("order_id", rec.OrderID).Int("attempt", attempt+1).
			Msg("notification delivery failed")
	}
	return lastErr
}

func (n *DiscordNotifier) deliver(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *DiscordNotifier) buildEmbed(event ports.NotifyEvent, rec *domain.OrderRecord) discordEmbed {
	embed := discordEmbed{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields: []discordField{
			{Name: "Order ID", Value: rec.OrderID, Inline: true},
			{Name: "Amount", Value: fmt.Sprintf("$%.2f", rec.AmountUSD), Inline: true},
			{Name: "Currency", Value: fmt.Sprintf("%.8f %s", rec.CryptoAmount, rec.Currency), Inline: true},
			{Name: "Address", Value: rec.PaymentAddress},
		},
	}
	if rec.TelegramHandle != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "Telegram", Value: rec.TelegramHandle, Inline: true})
	}
	if rec.UserCountry != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "Country", Value: rec.UserCountry, Inline: true})
	}

	switch event {
	case ports.NotifyOrderConfirmed:
		embed.Title = "✅ Payment Confirmed"
		embed.Color = colorConfirmed
		if rec.TxReference != nil {
			embed.Fields = append(embed.Fields, discordField{Name: "Tx", Value: *rec.TxReference})
		}
	default:
		embed.Title = "🕒 New Payment Started"
		embed.Color = colorCreated
	}
	return embed
}
