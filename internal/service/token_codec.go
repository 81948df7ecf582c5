package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cryoner-gateway/internal/core/ports"
)

// OrderTokenCodec implements ports.TokenCodec. Tokens are base64-encoded
// JSON payloads; integrity tags are HMAC-SHA256 over a canonical string of
// the order fields. Tags minted by the retired base36 mixer can still be
// accepted when allowLegacy is set.
type OrderTokenCodec struct {
	secret      string
	allowLegacy bool
}

// NewOrderTokenCodec creates a codec keyed with the shared token secret.
func NewOrderTokenCodec(secret string, allowLegacy bool) *OrderTokenCodec {
	return &OrderTokenCodec{secret: secret, allowLegacy: allowLegacy}
}

// Encode serializes the payload to a base64 token string.
func (c *OrderTokenCodec) Encode(p ports.TokenPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling token payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a base64 token string. Unpadded encodings are accepted.
func (c *OrderTokenCodec) Decode(token string) (*ports.TokenPayload, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(token)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}

	var p ports.TokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parsing token payload: %w", err)
	}
	return &p, nil
}

// Tag computes the HMAC-SHA256 integrity tag for a payload.
// Returns lowercase hex.
func (c *OrderTokenCodec) Tag(p ports.TokenPayload) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(canonicalString(p)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the tag against the payload using constant-time comparison.
// When legacy tags are allowed, a tag from the old base36 mixer also passes.
func (c *OrderTokenCodec) Verify(p ports.TokenPayload, tag string) bool {
	if tag == "" {
		return false
	}

	expected := c.Tag(p)
	if hmac.Equal([]byte(expected), []byte(tag)) {
		return true
	}

	if c.allowLegacy {
		legacy := c.legacyTag(p)
		return subtle.ConstantTimeCompare([]byte(legacy), []byte(tag)) == 1
	}
	return false
}

// legacyTag reproduces the retired mixer: the canonical string plus the
// secret, folded through a 32-bit rolling hash and rendered in base36.
func (c *OrderTokenCodec) legacyTag(p ports.TokenPayload) string {
	return simpleHash(canonicalString(p) + "|" + c.secret)
}

// canonicalString joins the integrity-relevant fields in a fixed order:
// orderId|amount|ticker|handle|timestamp.
func canonicalString(p ports.TokenPayload) string {
	return strings.Join([]string{
		p.OrderID,
		formatAmount(payloadAmount(p)),
		payloadTicker(p),
		payloadHandle(p),
		p.Timestamp,
	}, "|")
}

// payloadAmount resolves the USD amount across field generations.
func payloadAmount(p ports.TokenPayload) float64 {
	if p.USDAmount != nil {
		return *p.USDAmount
	}
	if p.FinalTotal != nil {
		return *p.FinalTotal
	}
	return 0
}

// payloadHandle resolves the telegram handle across field generations.
func payloadHandle(p ports.TokenPayload) string {
	if p.TelegramHandle != "" {
		return p.TelegramHandle
	}
	return p.Telegram
}

// payloadTicker resolves the currency ticker across field generations.
func payloadTicker(p ports.TokenPayload) string {
	if p.Currency != "" {
		return p.Currency
	}
	if p.PaymentMethod != nil {
		return p.PaymentMethod.Ticker
	}
	return ""
}

// payloadAddress resolves the payment address across field generations.
func payloadAddress(p ports.TokenPayload) string {
	if p.PaymentAddress != "" {
		return p.PaymentAddress
	}
	if p.PaymentMethod != nil {
		return p.PaymentMethod.Address
	}
	return ""
}

// formatAmount renders the amount the way the token producers do: no
// exponent, no trailing zeros, so 50 stays "50".
func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// simpleHash folds the input through the legacy 32-bit rolling hash
// (h = h*31 + ch with wraparound) and renders |h| in base36.
func simpleHash(s string) string {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
