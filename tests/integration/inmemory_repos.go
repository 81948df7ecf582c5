package integration

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"
)

// inMemoryOrderRepo mirrors the compare-and-set semantics of the Postgres
// ledger so the lifecycle machine can be exercised without a database.
type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*domain.OrderRecord
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[string]*domain.OrderRecord)}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, rec *domain.OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[rec.OrderID]; ok {
		return apperror.ErrDuplicateOrder(rec.OrderID)
	}
	cp := *rec
	cp.CreatedAt = time.Now().UTC()
	r.orders[rec.OrderID] = &cp
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, orderID string) (*domain.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryOrderRepo) TransitionStatus(ctx context.Context, orderID string, next domain.OrderStatus, txReference *string) (*domain.OrderRecord, error) {
	if !next.IsTerminal() {
		return nil, apperror.ErrIllegalTransition(string(domain.OrderStatusPending), string(next))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.ErrOrderNotFound()
	}
	if rec.Status == next {
		cp := *rec
		return &cp, nil
	}
	if rec.Status != domain.OrderStatusPending {
		return nil, apperror.ErrIllegalTransition(string(rec.Status), string(next))
	}

	rec.Status = next
	if txReference != nil {
		rec.TxReference = txReference
	}
	now := time.Now().UTC()
	rec.UpdatedAt = &now
	cp := *rec
	return &cp, nil
}

func (r *inMemoryOrderRepo) List(ctx context.Context, params ports.OrderListParams) ([]domain.OrderRecord, int64, error) {
	all, err := r.ListAll(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(all))

	page, size := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(all) {
		return []domain.OrderRecord{}, total, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *inMemoryOrderRepo) ListAll(ctx context.Context, params ports.OrderListParams) ([]domain.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.OrderRecord, 0, len(r.orders))
	needle := strings.ToLower(params.Search)
	for _, rec := range r.orders {
		if params.Status != nil && rec.Status != *params.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(rec.OrderID), needle) &&
			!strings.Contains(strings.ToLower(rec.Email), needle) &&
			!strings.Contains(strings.ToLower(rec.TelegramHandle), needle) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryOrderRepo) GetStats(ctx context.Context) (*ports.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ports.OrderStats{}
	for _, rec := range r.orders {
		stats.Total++
		switch rec.Status {
		case domain.OrderStatusPending:
			stats.Pending++
		case domain.OrderStatusConfirmed:
			stats.Confirmed++
			stats.ConfirmedRevenueUSD += rec.AmountUSD
		case domain.OrderStatusExpired:
			stats.Expired++
		case domain.OrderStatusError:
			stats.Errored++
		}
	}
	return stats, nil
}

// --- Deterministic probes ---

type staticProbe struct {
	result ports.ProbeResult
}

func (p staticProbe) Check(ctx context.Context, address string, amount float64, currency domain.Currency) (*ports.ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp := p.result
	return &cp, nil
}

func alwaysPendingProbe() staticProbe {
	return staticProbe{result: ports.ProbeResult{Status: ports.ProbePending}}
}

func alwaysConfirmedProbe(txRef string) staticProbe {
	return staticProbe{result: ports.ProbeResult{Status: ports.ProbeConfirmed, TxReference: txRef}}
}
