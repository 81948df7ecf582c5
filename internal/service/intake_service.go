package service

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// orderParams are the query keys that mark a request as carrying an order.
var orderParams = []string{"data", "token", "orderId", "amount", "currency"}

// IntakeServiceImpl implements ports.IntakeService. Tokenized requests are
// decoded and verified through the codec; requests with no token material
// at all fall back to the legacy flat query parameters.
type IntakeServiceImpl struct {
	codec           ports.TokenCodec
	defaultCurrency domain.Currency
	log             zerolog.Logger
}

// NewIntakeService creates a new IntakeServiceImpl.
func NewIntakeService(codec ports.TokenCodec, defaultCurrency domain.Currency, log zerolog.Logger) *IntakeServiceImpl {
	return &IntakeServiceImpl{
		codec:           codec,
		defaultCurrency: defaultCurrency,
		log:             log,
	}
}

// HasOrderParams reports whether the query carries any recognized order
// parameter.
func (s *IntakeServiceImpl) HasOrderParams(q url.Values) bool {
	for _, key := range orderParams {
		if q.Get(key) != "" {
			return true
		}
	}
	return false
}

// FromQuery builds order data from the checkout query string. A request
// carrying either a data blob or a token takes the verified path; both
// must then be present and consistent or the request is rejected.
func (s *IntakeServiceImpl) FromQuery(q url.Values) (*domain.OrderData, error) {
	data := q.Get("data")
	tag := q.Get("token")

	if data == "" && tag == "" {
		return s.fromLegacyQuery(q), nil
	}

	payload, err := s.codec.Decode(data)
	if err != nil {
		return nil, apperror.ErrMalformedPayload(err)
	}
	if !s.codec.Verify(*payload, tag) {
		s.log.Warn().Str("order_id", payload.OrderID).Msg("checkout token failed verification")
		return nil, apperror.ErrTokenRejected()
	}
	return s.fromPayload(payload)
}

// fromPayload maps a verified token payload onto order data, resolving the
// field name variants that different producers emit.
func (s *IntakeServiceImpl) fromPayload(p *ports.TokenPayload) (*domain.OrderData, error) {
	amount := payloadAmount(*p)
	if amount < 0 {
		return nil, apperror.Validation("order amount cannot be negative")
	}

	currency := s.defaultCurrency
	if ticker := payloadTicker(*p); ticker != "" {
		c, ok := domain.ParseCurrency(ticker)
		if !ok {
			return nil, apperror.Validation("unsupported currency: " + ticker)
		}
		currency = c
	}

	orderID := p.OrderID
	if orderID == "" {
		orderID = domain.NewOrderID(time.Now())
	}

	ts := time.Now()
	if p.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
			ts = parsed
		}
	}

	return &domain.OrderData{
		OrderID:        orderID,
		AmountUSD:      amount,
		Currency:       currency,
		Email:          p.Email,
		TelegramHandle: payloadHandle(*p),
		Timestamp:      ts,
		PaymentAddress: payloadAddress(*p),
		Network:        p.Network,
	}, nil
}

// fromLegacyQuery reads the flat parameters as-is. Unparseable or negative
// amounts degrade to zero rather than failing the request.
func (s *IntakeServiceImpl) fromLegacyQuery(q url.Values) *domain.OrderData {
	amount, err := strconv.ParseFloat(strings.TrimSpace(q.Get("amount")), 64)
	if err != nil || amount < 0 {
		amount = 0
	}

	currency := s.defaultCurrency
	if c, ok := domain.ParseCurrency(q.Get("currency")); ok {
		currency = c
	}

	orderID := q.Get("orderId")
	if orderID == "" {
		orderID = domain.NewOrderID(time.Now())
	}

	return &domain.OrderData{
		OrderID:        orderID,
		AmountUSD:      amount,
		Currency:       currency,
		Email:          q.Get("email"),
		TelegramHandle: q.Get("telegram"),
		Timestamp:      time.Now(),
	}
}
