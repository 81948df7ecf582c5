package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cryoner-gateway/config"
	"cryoner-gateway/internal/core/domain"

	"github.com/rs/zerolog"
)

// tickerSymbols maps supported currencies to Binance trading pairs.
// USDT has no pair; it is pinned to 1.
var tickerSymbols = map[domain.Currency]string{
	domain.CurrencySOL: "SOLUSDT",
	domain.CurrencyBTC: "BTCUSDT",
	domain.CurrencyETH: "ETHUSDT",
}

// fallbackPrices are served when the exchange cannot be reached so checkout
// keeps working offline.
var fallbackPrices = map[domain.Currency]float64{
	domain.CurrencySOL:  100,
	domain.CurrencyBTC:  45000,
	domain.CurrencyETH:  2500,
	domain.CurrencyUSDT: 1,
}

// BinanceFeed implements ports.PriceFeed against the Binance ticker API.
type BinanceFeed struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewBinanceFeed creates a price feed with the configured endpoint and
// timeout.
func NewBinanceFeed(cfg config.PriceFeedConfig, log zerolog.Logger) *BinanceFeed {
	return &BinanceFeed{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// Prices returns current USD prices per supported currency. A feed outage
// degrades to the fallback table rather than blocking checkout.
func (f *BinanceFeed) Prices(ctx context.Context) (map[domain.Currency]float64, error) {
	live, err := f.fetch(ctx)
	if err != nil {
		f.log.Warn().Err(err).Msg("price feed unreachable, using fallback prices")
		return fallback(), nil
	}

	prices := fallback()
	for c, v := range live {
		prices[c] = v
	}
	return prices, nil
}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (f *BinanceFeed) fetch(ctx context.Context) (map[domain.Currency]float64, error) {
	symbols, _ := json.Marshal([]string{
		tickerSymbols[domain.CurrencySOL],
		tickerSymbols[domain.CurrencyBTC],
		tickerSymbols[domain.CurrencyETH],
	})
	endpoint := f.baseURL + "?symbols=" + url.QueryEscape(string(symbols))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building price request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}

	var tickers []tickerPrice
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("decoding price response: %w", err)
	}

	bySymbol := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		bySymbol[t.Symbol] = price
	}

	prices := make(map[domain.Currency]float64)
	for c, symbol := range tickerSymbols {
		if price, ok := bySymbol[symbol]; ok {
			prices[c] = price
		}
	}
	prices[domain.CurrencyUSDT] = 1
	return prices, nil
}

func fallback() map[domain.Currency]float64 {
	prices := make(map[domain.Currency]float64, len(fallbackPrices))
	for c, v := range fallbackPrices {
		prices[c] = v
	}
	return prices
}
