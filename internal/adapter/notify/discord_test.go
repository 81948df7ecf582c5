package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cryoner-gateway/config"
	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedOrder() *domain.OrderRecord {
	txRef := "0xdeadbeef"
	return &domain.OrderRecord{
		OrderData: domain.OrderData{
			OrderID:        "CRY-20240101-000000-AB12",
			AmountUSD:      50,
			Currency:       domain.CurrencySOL,
			CryptoAmount:   0.5,
			PaymentAddress: "So1MockAddr",
			TelegramHandle: "@buyer",
		},
		Status:      domain.OrderStatusConfirmed,
		TxReference: &txRef,
		UserCountry: "US",
	}
}

func TestDiscordNotifier_PostsEmbed(t *testing.T) {
	var got discordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(config.NotifyConfig{WebhookURL: srv.URL, Timeout: time.Second}, nil, zerolog.New(io.Discard))

	err := n.Notify(context.Background(), ports.NotifyOrderConfirmed, confirmedOrder())
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, colorConfirmed, embed.Color)
	assert.Contains(t, embed.Title, "Confirmed")

	names := make([]string, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "Order ID")
	assert.Contains(t, names, "Tx")
}

func TestDiscordNotifier_DisabledWithoutURL(t *testing.T) {
	n := NewDiscordNotifier(config.NotifyConfig{}, nil, zerolog.New(io.Discard))
	assert.NoError(t, n.Notify(context.Background(), ports.NotifyOrderCreated, confirmedOrder()))
}

func TestDiscordNotifier_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(config.NotifyConfig{WebhookURL: srv.URL, Timeout: time.Second}, nil, zerolog.New(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := n.Notify(ctx, ports.NotifyOrderCreated, confirmedOrder())
	assert.Error(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}
