package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const orderColumns = `order_id, amount_usd, currency, email, telegram_handle, order_timestamp,
		payment_address, crypto_amount, network, status, tx_reference,
		user_ip, user_country, user_agent, created_at, updated_at`

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts a new pending order.
func (r *OrderRepo) Create(ctx context.Context, rec *domain.OrderRecord) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		rec.OrderID, rec.AmountUSD, rec.Currency, rec.Email, rec.TelegramHandle, rec.Timestamp,
		rec.PaymentAddress, rec.CryptoAmount, rec.Network, rec.Status, rec.TxReference,
		rec.UserIP, rec.UserCountry, rec.UserAgent, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.ErrDuplicateOrder(rec.OrderID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by its ID, or (nil, nil) if absent.
func (r *OrderRepo) GetByID(ctx context.Context, orderID string) (*domain.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	return r.scanOrder(r.pool.QueryRow(ctx, query, orderID))
}

// TransitionStatus moves a pending order to a terminal status. The update
// is conditioned on the current status so concurrent finalizers cannot
// both win.
func (r *OrderRepo) TransitionStatus(ctx context.Context, orderID string, next domain.OrderStatus, txReference *string) (*domain.OrderRecord, error) {
	if !next.IsTerminal() {
		return nil, apperror.ErrIllegalTransition(string(domain.OrderStatusPending), string(next))
	}

	query := `UPDATE orders
		SET status = $2, tx_reference = COALESCE($3, tx_reference), updated_at = NOW()
		WHERE order_id = $1 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, orderID, next, txReference, domain.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("transition order status: %w", err)
	}

	rec, getErr := r.GetByID(ctx, orderID)
	if getErr != nil {
		return nil, getErr
	}
	if rec == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	if tag.RowsAffected() == 0 {
		// Lost the compare-and-set. Repeating an identical transition is
		// a no-op; any other late arrival is illegal.
		if rec.Status != next {
			return nil, apperror.ErrIllegalTransition(string(rec.Status), string(next))
		}
	}
	return rec, nil
}

// List fetches orders with filtering and pagination.
func (r *OrderRepo) List(ctx context.Context, params ports.OrderListParams) ([]domain.OrderRecord, int64, error) {
	where, args := buildOrderFilter(params)
	argIdx := len(args) + 1

	countQuery := "SELECT COUNT(*) FROM orders" + where
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	dataQuery := fmt.Sprintf("SELECT "+orderColumns+" FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, argIdx, argIdx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	recs, err := r.queryOrders(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// ListAll fetches every order matching the filter, newest first.
func (r *OrderRepo) ListAll(ctx context.Context, params ports.OrderListParams) ([]domain.OrderRecord, error) {
	where, args := buildOrderFilter(params)
	query := "SELECT " + orderColumns + " FROM orders" + where + " ORDER BY created_at DESC"
	return r.queryOrders(ctx, query, args...)
}

// GetStats aggregates counters across the whole ledger.
func (r *OrderRepo) GetStats(ctx context.Context) (*ports.OrderStats, error) {
	query := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
		COUNT(*) FILTER (WHERE status = 'CONFIRMED') AS confirmed,
		COUNT(*) FILTER (WHERE status = 'EXPIRED') AS expired,
		COUNT(*) FILTER (WHERE status = 'ERROR') AS errored,
		COALESCE(SUM(amount_usd) FILTER (WHERE status = 'CONFIRMED'), 0) AS confirmed_revenue
		FROM orders`

	stats := &ports.OrderStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.Pending, &stats.Confirmed, &stats.Expired, &stats.Errored,
		&stats.ConfirmedRevenueUSD,
	)
	if err != nil {
		return nil, fmt.Errorf("get order stats: %w", err)
	}
	return stats, nil
}

// buildOrderFilter renders the WHERE clause for List and ListAll.
func buildOrderFilter(params ports.OrderListParams) (string, []any) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(order_id ILIKE $%d OR email ILIKE $%d OR telegram_handle ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *OrderRepo) queryOrders(ctx context.Context, query string, args ...any) ([]domain.OrderRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var recs []domain.OrderRecord
	for rows.Next() {
		rec := domain.OrderRecord{}
		err := rows.Scan(
			&rec.OrderID, &rec.AmountUSD, &rec.Currency, &rec.Email, &rec.TelegramHandle, &rec.Timestamp,
			&rec.PaymentAddress, &rec.CryptoAmount, &rec.Network, &rec.Status, &rec.TxReference,
			&rec.UserIP, &rec.UserCountry, &rec.UserAgent, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return recs, nil
}

// scanOrder is a helper to scan a single row into an OrderRecord.
func (r *OrderRepo) scanOrder(row pgx.Row) (*domain.OrderRecord, error) {
	rec := &domain.OrderRecord{}
	err := row.Scan(
		&rec.OrderID, &rec.AmountUSD, &rec.Currency, &rec.Email, &rec.TelegramHandle, &rec.Timestamp,
		&rec.PaymentAddress, &rec.CryptoAmount, &rec.Network, &rec.Status, &rec.TxReference,
		&rec.UserIP, &rec.UserCountry, &rec.UserAgent, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return rec, nil
}
