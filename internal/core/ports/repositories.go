package ports

import (
	"context"
	"encoding/json"

	"cryoner-gateway/internal/core/domain"
)

// OrderListParams filters and paginates admin order listings.
type OrderListParams struct {
	// Status restricts results to a single lifecycle status when set.
	Status *domain.OrderStatus
	// Search matches order ID, email or telegram handle, case-insensitive.
	Search   string
	Page     int
	PageSize int
}

// OrderStats aggregates ledger counters for the admin dashboard.
type OrderStats struct {
	Total               int64   `json:"total"`
	Pending             int64   `json:"pending"`
	Confirmed           int64   `json:"confirmed"`
	Expired             int64   `json:"expired"`
	Errored             int64   `json:"errored"`
	ConfirmedRevenueUSD float64 `json:"confirmed_revenue_usd"`
}

// OrderRepository persists the order ledger.
type OrderRepository interface {
	// Create inserts a new pending order. Returns apperror.ErrDuplicateOrder
	// if the order ID already exists.
	Create(ctx context.Context, rec *domain.OrderRecord) error
	// GetByID returns the order, or (nil, nil) if absent.
	GetByID(ctx context.Context, orderID string) (*domain.OrderRecord, error)
	// TransitionStatus moves a pending order to a terminal status using a
	// compare-and-set on the current status. Repeating a transition that
	// already happened is a no-op and returns the stored record. Moving a
	// terminal order to a different terminal status fails with
	// apperror.ErrIllegalTransition.
	TransitionStatus(ctx context.Context, orderID string, next domain.OrderStatus, txReference *string) (*domain.OrderRecord, error)
	// List returns a page of orders plus the total match count.
	List(ctx context.Context, params OrderListParams) ([]domain.OrderRecord, int64, error)
	// ListAll returns every order matching the filter, for exports.
	ListAll(ctx context.Context, params OrderListParams) ([]domain.OrderRecord, error)
	// GetStats aggregates counters across the whole ledger.
	GetStats(ctx context.Context) (*OrderStats, error)
}

// SessionRepository stores short-lived checkout sessions.
type SessionRepository interface {
	// Create stores the payload under a fresh session ID and returns the
	// session with its expiry set.
	Create(ctx context.Context, payload json.RawMessage) (*domain.Session, error)
	// Get returns the session, or (nil, nil) if absent or expired.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
	// SweepExpired removes expired and corrupt sessions, returning the
	// number removed.
	SweepExpired(ctx context.Context) (int, error)
}
