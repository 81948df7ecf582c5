package ports

import (
	"context"
	"net/url"
	"time"

	"cryoner-gateway/internal/core/domain"
)

// PaymentMethod is the nested payment descriptor some token payloads carry.
type PaymentMethod struct {
	Ticker  string `json:"ticker,omitempty"`
	Address string `json:"address,omitempty"`
}

// TokenPayload is the decoded checkout token. Producers have shipped two
// generations of field names, so amount, handle, ticker and address each
// have a primary and an alternate field.
type TokenPayload struct {
	OrderID        string         `json:"orderId,omitempty"`
	USDAmount      *float64       `json:"usdAmount,omitempty"`
	FinalTotal     *float64       `json:"finalTotal,omitempty"`
	Currency       string         `json:"currency,omitempty"`
	PaymentMethod  *PaymentMethod `json:"paymentMethod,omitempty"`
	Email          string         `json:"email,omitempty"`
	Telegram       string         `json:"telegram,omitempty"`
	TelegramHandle string         `json:"telegramHandle,omitempty"`
	PaymentAddress string         `json:"paymentAddress,omitempty"`
	Network        string         `json:"network,omitempty"`
	Timestamp      string         `json:"timestamp,omitempty"`
}

// TokenCodec encodes checkout payloads and computes their integrity tags.
type TokenCodec interface {
	// Encode serializes the payload to an opaque token string.
	Encode(p TokenPayload) (string, error)
	// Decode parses an opaque token string. It does not verify integrity.
	Decode(token string) (*TokenPayload, error)
	// Tag computes the integrity tag for a payload.
	Tag(p TokenPayload) string
	// Verify reports whether the tag matches the payload. An empty tag
	// never verifies.
	Verify(p TokenPayload, tag string) bool
}

// IntakeService turns inbound request parameters into validated order data.
type IntakeService interface {
	// FromQuery builds order data from the checkout query string. When a
	// token is present it must verify; otherwise the legacy flat
	// parameters are read as-is.
	FromQuery(q url.Values) (*domain.OrderData, error)
	// HasOrderParams reports whether the query carries any recognized
	// order parameter at all.
	HasOrderParams(q url.Values) bool
}

// ProbeStatus is the outcome of a single blockchain confirmation probe.
type ProbeStatus string

const (
	ProbeConfirmed ProbeStatus = "confirmed"
	ProbePending   ProbeStatus = "pending"
	ProbeNotFound  ProbeStatus = "not_found"
)

// ProbeResult carries one probe outcome. TxReference is set only when
// the payment was found on-chain.
type ProbeResult struct {
	Status      ProbeStatus `json:"status"`
	TxReference string      `json:"tx_reference,omitempty"`
}

// ConfirmationProbe checks whether a payment has landed at an address.
type ConfirmationProbe interface {
	Check(ctx context.Context, address string, amount float64, currency domain.Currency) (*ProbeResult, error)
}

// RequestContext carries the caller metadata captured at checkout time.
type RequestContext struct {
	IP        string
	UserAgent string
}

// PaymentEngine owns the timed lifecycle of pending orders.
type PaymentEngine interface {
	// Begin resolves the payment address and crypto amount, persists the
	// pending order and starts its countdown.
	Begin(ctx context.Context, data domain.OrderData, reqCtx RequestContext) (*domain.OrderRecord, error)
	// Remaining returns the seconds left in the payment window and whether
	// the order is still actively tracked.
	Remaining(orderID string) (int64, bool)
	// CheckNow runs one on-demand confirmation probe for an active order
	// and returns the raw result without acting on it.
	CheckNow(ctx context.Context, orderID string) (*ProbeResult, error)
	// Shutdown stops all active countdowns.
	Shutdown()
}

// PriceFeed returns current USD prices per supported currency.
type PriceFeed interface {
	Prices(ctx context.Context) (map[domain.Currency]float64, error)
}

// AddressProvider hands out receiving addresses per currency.
type AddressProvider interface {
	AddressFor(c domain.Currency) string
}

// NotifyEvent identifies which lifecycle event a notification reports.
type NotifyEvent string

const (
	NotifyOrderCreated   NotifyEvent = "order_created"
	NotifyOrderConfirmed NotifyEvent = "order_confirmed"
)

// Notifier pushes order lifecycle events to an external channel.
type Notifier interface {
	Notify(ctx context.Context, event NotifyEvent, rec *domain.OrderRecord) error
}

// GeoLocator resolves a caller IP to a country name.
type GeoLocator interface {
	// Country returns "Unknown" rather than failing when the lookup
	// cannot be completed.
	Country(ctx context.Context, ip string) string
}

// TokenClaims are the validated contents of an admin access token.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenService issues and validates admin access tokens.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(token string) (*TokenClaims, error)
}

// HashService hashes and verifies admin credentials.
type HashService interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// AuthService authenticates admin users.
type AuthService interface {
	// Login verifies credentials and returns a signed access token with
	// its expiry.
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}
