package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"
)

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,safe_id,max=50"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CheckoutResponse is the response body for a started checkout.
type CheckoutResponse struct {
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	AmountUSD      float64 `json:"amount_usd"`
	Currency       string  `json:"currency"`
	CryptoAmount   float64 `json:"crypto_amount"`
	PaymentAddress string  `json:"payment_address"`
	Network        string  `json:"network"`
	QRPayload      string  `json:"qr_payload"`
	ExpiresIn      int64   `json:"expires_in"` // seconds
}

// OrderView is the order-status representation shared by the checkout
// status endpoint and the order lookup endpoint.
type OrderView struct {
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	AmountUSD      float64 `json:"amount_usd"`
	Currency       string  `json:"currency"`
	CryptoAmount   float64 `json:"crypto_amount"`
	PaymentAddress string  `json:"payment_address"`
	Network        string  `json:"network"`
	TxReference    *string `json:"tx_reference,omitempty"`
	RemainingSecs  int64   `json:"remaining_seconds"`
	CreatedAt      string  `json:"created_at"`
}

// SessionResponse is the response body for session creation and lookup.
type SessionResponse struct {
	ID        string      `json:"id"`
	Payload   interface{} `json:"payload,omitempty"`
	ExpiresAt string      `json:"expires_at"`
}

// StatusUpdateRequest is the request body for an admin status mutation.
type StatusUpdateRequest struct {
	Status      string  `json:"status" binding:"required,max=20"`
	TxReference *string `json:"tx_reference,omitempty"`
}

// AdminOrderResponse is the full ledger record exposed to admins.
type AdminOrderResponse struct {
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	AmountUSD      float64 `json:"amount_usd"`
	Currency       string  `json:"currency"`
	CryptoAmount   float64 `json:"crypto_amount"`
	PaymentAddress string  `json:"payment_address"`
	Network        string  `json:"network"`
	Email          string  `json:"email,omitempty"`
	TelegramHandle string  `json:"telegram_handle,omitempty"`
	TxReference    *string `json:"tx_reference,omitempty"`
	UserIP         string  `json:"user_ip,omitempty"`
	UserCountry    string  `json:"user_country,omitempty"`
	UserAgent      string  `json:"user_agent,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      *string `json:"updated_at,omitempty"`
}

// OrderListResponse wraps a paginated admin order listing.
type OrderListResponse struct {
	Items      []AdminOrderResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// NewOrderView maps a ledger record plus the live countdown into the
// public status shape.
func NewOrderView(rec *domain.OrderRecord, remaining int64) OrderView {
	return OrderView{
		OrderID:        rec.OrderID,
		Status:         string(rec.Status),
		AmountUSD:      rec.AmountUSD,
		Currency:       string(rec.Currency),
		CryptoAmount:   rec.CryptoAmount,
		PaymentAddress: rec.PaymentAddress,
		Network:        rec.Network,
		TxReference:    rec.TxReference,
		RemainingSecs:  remaining,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewAdminOrderResponse maps a ledger record into the admin shape.
func NewAdminOrderResponse(rec *domain.OrderRecord) AdminOrderResponse {
	out := AdminOrderResponse{
		OrderID:        rec.OrderID,
		Status:         string(rec.Status),
		AmountUSD:      rec.AmountUSD,
		Currency:       string(rec.Currency),
		CryptoAmount:   rec.CryptoAmount,
		PaymentAddress: rec.PaymentAddress,
		Network:        rec.Network,
		Email:          rec.Email,
		TelegramHandle: rec.TelegramHandle,
		TxReference:    rec.TxReference,
		UserIP:         rec.UserIP,
		UserCountry:    rec.UserCountry,
		UserAgent:      rec.UserAgent,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rec.UpdatedAt != nil {
		s := rec.UpdatedAt.UTC().Format(time.RFC3339)
		out.UpdatedAt = &s
	}
	return out
}

// NewOrderListResponse maps a page of records plus the total match count.
func NewOrderListResponse(recs []domain.OrderRecord, total int64, params ports.OrderListParams) OrderListResponse {
	items := make([]AdminOrderResponse, 0, len(recs))
	for i := range recs {
		items = append(items, NewAdminOrderResponse(&recs[i]))
	}
	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return OrderListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}
}

// QRPayload builds the wallet URI encoded into the checkout QR code,
// e.g. "sol:So1abc?amount=0.5".
func QRPayload(currency domain.Currency, address string, cryptoAmount float64) string {
	return fmt.Sprintf("%s:%s?amount=%s",
		strings.ToLower(string(currency)),
		address,
		strconv.FormatFloat(cryptoAmount, 'f', -1, 64),
	)
}

