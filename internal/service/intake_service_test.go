package service

import (
	"errors"
	"net/url"
	"testing"

	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIntake() (*IntakeServiceImpl, *OrderTokenCodec) {
	codec := NewOrderTokenCodec("test-secret", false)
	return NewIntakeService(codec, domain.CurrencySOL, testLogger()), codec
}

func encodeWithTag(t *testing.T, codec *OrderTokenCodec, p ports.TokenPayload) url.Values {
	t.Helper()
	token, err := codec.Encode(p)
	require.NoError(t, err)
	return url.Values{
		"data":  {token},
		"token": {codec.Tag(p)},
	}
}

func TestIntake_FromQuery_VerifiedToken(t *testing.T) {
	svc, codec := newTestIntake()

	q := encodeWithTag(t, codec, ports.TokenPayload{
		OrderID:        "CRY-20240101-000000-AB12",
		USDAmount:      f64(50),
		Currency:       "SOL",
		Email:          "buyer@example.com",
		TelegramHandle: "@buyer",
		Timestamp:      "2024-01-01T00:00:00Z",
	})

	data, err := svc.FromQuery(q)
	require.NoError(t, err)
	assert.Equal(t, "CRY-20240101-000000-AB12", data.OrderID)
	assert.Equal(t, 50.0, data.AmountUSD)
	assert.Equal(t, domain.CurrencySOL, data.Currency)
	assert.Equal(t, "@buyer", data.TelegramHandle)
	assert.Equal(t, "buyer@example.com", data.Email)
	assert.Equal(t, 2024, data.Timestamp.Year())
}

func TestIntake_FromQuery_FieldVariants(t *testing.T) {
	svc, codec := newTestIntake()

	q := encodeWithTag(t, codec, ports.TokenPayload{
		OrderID:    "CRY-20240101-000000-CD34",
		FinalTotal: f64(125.5),
		PaymentMethod: &ports.PaymentMethod{
			Ticker:  "ETH",
			Address: "0xabc123",
		},
		Telegram:  "@old_style",
		Timestamp: "2024-01-01T00:00:00Z",
	})

	data, err := svc.FromQuery(q)
	require.NoError(t, err)
	assert.Equal(t, 125.5, data.AmountUSD)
	assert.Equal(t, domain.CurrencyETH, data.Currency)
	assert.Equal(t, "@old_style", data.TelegramHandle)
	assert.Equal(t, "0xabc123", data.PaymentAddress)
}

func TestIntake_FromQuery_RejectsTamperedToken(t *testing.T) {
	svc, codec := newTestIntake()

	p := ports.TokenPayload{
		OrderID:   "CRY-20240101-000000-AB12",
		USDAmount: f64(50),
		Currency:  "SOL",
		Timestamp: "2024-01-01T00:00:00Z",
	}
	tag := codec.Tag(p)

	p.USDAmount = f64(1)
	token, err := codec.Encode(p)
	require.NoError(t, err)

	_, err = svc.FromQuery(url.Values{"data": {token}, "token": {tag}})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TOK_002", appErr.Code)
}

func TestIntake_FromQuery_RejectsMissingTag(t *testing.T) {
	svc, codec := newTestIntake()

	token, err := codec.Encode(ports.TokenPayload{OrderID: "CRY-20240101-000000-AB12"})
	require.NoError(t, err)

	_, err = svc.FromQuery(url.Values{"data": {token}})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TOK_002", appErr.Code)
}

func TestIntake_FromQuery_RejectsMalformedData(t *testing.T) {
	svc, _ := newTestIntake()

	_, err := svc.FromQuery(url.Values{"data": {"!!!"}, "token": {"whatever"}})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TOK_001", appErr.Code)
}

func TestIntake_FromQuery_RejectsUnsupportedCurrency(t *testing.T) {
	svc, codec := newTestIntake()

	q := encodeWithTag(t, codec, ports.TokenPayload{
		OrderID:   "CRY-20240101-000000-AB12",
		USDAmount: f64(50),
		Currency:  "DOGE",
		Timestamp: "2024-01-01T00:00:00Z",
	})

	_, err := svc.FromQuery(q)
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_002", appErr.Code)
}

func TestIntake_FromQuery_LegacyFlatParams(t *testing.T) {
	svc, _ := newTestIntake()

	data, err := svc.FromQuery(url.Values{
		"orderId":  {"CRY-20240101-000000-AB12"},
		"amount":   {"50"},
		"currency": {"SOL"},
		"telegram": {"@buyer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "CRY-20240101-000000-AB12", data.OrderID)
	assert.Equal(t, 50.0, data.AmountUSD)
	assert.Equal(t, domain.CurrencySOL, data.Currency)
	assert.Equal(t, "@buyer", data.TelegramHandle)
}

func TestIntake_FromQuery_LegacyDefaults(t *testing.T) {
	svc, _ := newTestIntake()

	tests := []struct {
		name string
		q    url.Values
	}{
		{"garbage amount", url.Values{"orderId": {"X"}, "amount": {"abc"}}},
		{"negative amount", url.Values{"orderId": {"X"}, "amount": {"-5"}}},
		{"missing amount", url.Values{"orderId": {"X"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := svc.FromQuery(tt.q)
			require.NoError(t, err)
			assert.Equal(t, 0.0, data.AmountUSD)
			assert.Equal(t, domain.CurrencySOL, data.Currency)
		})
	}
}

func TestIntake_FromQuery_LegacySynthesizesOrderID(t *testing.T) {
	svc, _ := newTestIntake()

	data, err := svc.FromQuery(url.Values{"amount": {"10"}})
	require.NoError(t, err)
	assert.Regexp(t, `^CRY-\d{8}-\d{6}-[A-Z0-9]{4}$`, data.OrderID)
}

func TestIntake_HasOrderParams(t *testing.T) {
	svc, _ := newTestIntake()

	assert.True(t, svc.HasOrderParams(url.Values{"data": {"x"}}))
	assert.True(t, svc.HasOrderParams(url.Values{"orderId": {"x"}}))
	assert.True(t, svc.HasOrderParams(url.Values{"amount": {"5"}}))
	assert.True(t, svc.HasOrderParams(url.Values{"currency": {"SOL"}}))
	assert.False(t, svc.HasOrderParams(url.Values{}))
	assert.False(t, svc.HasOrderParams(url.Values{"utm_source": {"x"}}))
}
