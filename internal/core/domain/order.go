package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Currency is a supported cryptocurrency ticker.
type Currency string

const (
	CurrencySOL  Currency = "SOL"
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDT Currency = "USDT"
)

// SupportedCurrencies returns the fixed ticker set accepted at intake.
func SupportedCurrencies() []Currency {
	return []Currency{CurrencySOL, CurrencyBTC, CurrencyETH, CurrencyUSDT}
}

// ParseCurrency maps a raw ticker string onto the supported set.
// Tickers are matched case-insensitively.
func ParseCurrency(s string) (Currency, bool) {
	switch c := Currency(strings.ToUpper(s)); c {
	case CurrencySOL, CurrencyBTC, CurrencyETH, CurrencyUSDT:
		return c, true
	}
	return "", false
}

// Network returns the blockchain network name the currency settles on.
func (c Currency) Network() string {
	switch c {
	case CurrencySOL:
		return "Solana"
	case CurrencyBTC:
		return "Bitcoin"
	case CurrencyETH:
		return "Ethereum"
	case CurrencyUSDT:
		return "Ethereum (ERC-20)"
	}
	return ""
}

// OrderStatus represents the lifecycle state of a payment order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusExpired   OrderStatus = "EXPIRED"
	OrderStatusError     OrderStatus = "ERROR"
)

// ParseOrderStatus maps a raw status string onto the known set.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusExpired, OrderStatusError:
		return OrderStatus(s), true
	}
	return "", false
}

// IsTerminal returns true if no further transition may leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusExpired || s == OrderStatusError
}

// CanTransitionTo reports whether the transition s -> next is legal.
// Only PENDING may transition, and only into a terminal status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && next.IsTerminal()
}

// OrderData is the validated, immutable order input produced by intake.
type OrderData struct {
	OrderID        string    `json:"order_id"`
	AmountUSD      float64   `json:"amount_usd"`
	Currency       Currency  `json:"currency"`
	Email          string    `json:"email,omitempty"`
	TelegramHandle string    `json:"telegram_handle"`
	Timestamp      time.Time `json:"timestamp"`
	PaymentAddress string    `json:"payment_address,omitempty"`
	CryptoAmount   float64   `json:"crypto_amount,omitempty"`
	Network        string    `json:"network,omitempty"`
}

// OrderRecord is the persisted order: validated data plus lifecycle state
// and the request context captured at creation (audit/display only, never
// part of any integrity check).
type OrderRecord struct {
	OrderData

	Status      OrderStatus `json:"status"`
	TxReference *string     `json:"tx_reference,omitempty"`
	UserIP      string      `json:"user_ip,omitempty"`
	UserCountry string      `json:"user_country,omitempty"`
	UserAgent   string      `json:"user_agent,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// IsTerminal returns true if the order reached a final status.
func (r *OrderRecord) IsTerminal() bool {
	return r.Status.IsTerminal()
}

const orderIDPrefix = "CRY"

const idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderID generates an order identifier in the storefront format
// PREFIX-YYYYMMDD-HHMMSS-RAND4, e.g. CRY-20240101-000000-AB12.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s",
		orderIDPrefix,
		now.Format("20060102"),
		now.Format("150405"),
		randomSuffix(4),
	)
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read does not fail on supported platforms
	_, _ = rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = idCharset[int(b)%len(idCharset)]
	}
	return string(out)
}
