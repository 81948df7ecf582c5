package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"cryoner-gateway/config"
	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// notifyTimeout bounds the fire-and-forget notification calls.
const notifyTimeout = 10 * time.Second

// PaymentEngineImpl implements ports.PaymentEngine. Each pending order gets
// its own runner goroutine driving a countdown tick and, depending on the
// confirmation policy, either periodic chain probes or a single timer that
// confirms at the end of the window. All status changes go through the
// ledger's compare-and-set so a runner and an admin mutation cannot both
// finalize the same order.
type PaymentEngineImpl struct {
	repo     ports.OrderRepository
	probe    ports.ConfirmationProbe
	prices   ports.PriceFeed
	addrs    ports.AddressProvider
	notifier ports.Notifier
	geo      ports.GeoLocator
	cfg      config.PaymentConfig
	log      zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu   sync.Mutex
	runs map[string]*orderRun
}

// orderRun is the engine-side state of one active order.
type orderRun struct {
	cancel   context.CancelFunc
	deadline time.Time
	record   *domain.OrderRecord

	mu        sync.Mutex
	finalized bool
	lastProbe *ports.ProbeResult
}

// NewPaymentEngine creates a new PaymentEngineImpl.
func NewPaymentEngine(
	repo ports.OrderRepository,
	probe ports.ConfirmationProbe,
	prices ports.PriceFeed,
	addrs ports.AddressProvider,
	notifier ports.Notifier,
	geo ports.GeoLocator,
	cfg config.PaymentConfig,
	log zerolog.Logger,
) *PaymentEngineImpl {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &PaymentEngineImpl{
		repo:     repo,
		probe:    probe,
		prices:   prices,
		addrs:    addrs,
		notifier: notifier,
		geo:      geo,
		cfg:      cfg,
		log:      log,
		baseCtx:  baseCtx,
		cancel:   cancel,
		runs:     make(map[string]*orderRun),
	}
}

// Begin resolves the payment address and crypto amount, persists the
// pending order and starts its countdown.
func (e *PaymentEngineImpl) Begin(ctx context.Context, data domain.OrderData, reqCtx ports.RequestContext) (*domain.OrderRecord, error) {
	if data.AmountUSD < 0 {
		return nil, apperror.Validation("order amount cannot be negative")
	}

	prices, err := e.prices.Prices(ctx)
	if err != nil {
		return nil, apperror.ErrSetupFailure(fmt.Errorf("fetching prices: %w", err))
	}
	price, ok := prices[data.Currency]
	if !ok || price <= 0 {
		return nil, apperror.ErrSetupFailure(fmt.Errorf("no usable price for %s", data.Currency))
	}
	data.CryptoAmount = data.AmountUSD / price

	if data.PaymentAddress == "" {
		data.PaymentAddress = e.addrs.AddressFor(data.Currency)
	}
	if data.Network == "" {
		data.Network = data.Currency.Network()
	}

	rec := &domain.OrderRecord{
		OrderData:   data,
		Status:      domain.OrderStatusPending,
		UserIP:      reqCtx.IP,
		UserCountry: e.geo.Country(ctx, reqCtx.IP),
		UserAgent:   reqCtx.UserAgent,
		CreatedAt:   time.Now(),
	}

	if err := e.repo.Create(ctx, rec); err != nil {
		if apperror.IsCode(err, apperror.CodeDuplicateOrder) {
			return nil, err
		}
		return nil, apperror.ErrSetupFailure(fmt.Errorf("writing order to ledger: %w", err))
	}

	e.startRun(rec)
	e.notifyAsync(ports.NotifyOrderCreated, rec)

	e.log.Info().
		Str("order_id", rec.OrderID).
		Str("currency", string(rec.Currency)).
		Float64("amount_usd", rec.AmountUSD).
		Float64("crypto_amount", rec.CryptoAmount).
		Str("policy", string(e.cfg.ConfirmPolicy)).
		Msg("payment window opened")

	return rec, nil
}

// startRun registers the order and launches its runner goroutine.
func (e *PaymentEngineImpl) startRun(rec *domain.OrderRecord) {
	runCtx, cancel := context.WithCancel(e.baseCtx)
	run := &orderRun{
		cancel:   cancel,
		deadline: time.Now().Add(e.cfg.Window),
		record:   rec,
	}

	e.mu.Lock()
	e.runs[rec.OrderID] = run
	e.mu.Unlock()

	e.wg.Add(1)
	go e.runOrder(runCtx, run)
}

// runOrder drives the countdown for one order until it reaches a terminal
// status or the engine shuts down.
func (e *PaymentEngineImpl) runOrder(ctx context.Context, run *orderRun) {
	defer e.wg.Done()
	defer e.dropRun(run.record.OrderID)

	countdown := time.NewTicker(e.cfg.TickInterval)
	defer countdown.Stop()

	var probeC <-chan time.Time
	var confirmC <-chan time.Time
	switch e.cfg.ConfirmPolicy {
	case config.PolicyProbe:
		probeTicker := time.NewTicker(e.cfg.ProbeInterval)
		defer probeTicker.Stop()
		probeC = probeTicker.C
	case config.PolicyTimer:
		confirmTimer := time.NewTimer(e.cfg.Window)
		defer confirmTimer.Stop()
		confirmC = confirmTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-countdown.C:
			if !now.Before(run.deadline) {
				// Under the timer policy the confirm timer owns the
				// window boundary; a deadline-crossing tick must not
				// race it into EXPIRED.
				if e.cfg.ConfirmPolicy == config.PolicyTimer {
					continue
				}
				e.finalize(ctx, run, domain.OrderStatusExpired, nil)
				return
			}

		case <-probeC:
			res, err := e.probe.Check(ctx, run.record.PaymentAddress, run.record.CryptoAmount, run.record.Currency)
			if err != nil {
				e.log.Warn().Err(err).Str("order_id", run.record.OrderID).Msg("confirmation probe failed")
				continue
			}
			run.mu.Lock()
			run.lastProbe = res
			run.mu.Unlock()
			if res.Status == ports.ProbeConfirmed {
				ref := res.TxReference
				e.finalize(ctx, run, domain.OrderStatusConfirmed, &ref)
				return
			}

		case <-confirmC:
			ref := syntheticTxReference()
			e.finalize(ctx, run, domain.OrderStatusConfirmed, &ref)
			return
		}
	}
}

// finalize moves the order to a terminal status through the ledger CAS and
// stops the run. Losing the CAS race means someone else already finalized
// the order, which is fine.
func (e *PaymentEngineImpl) finalize(ctx context.Context, run *orderRun, next domain.OrderStatus, txRef *string) {
	run.mu.Lock()
	if run.finalized {
		run.mu.Unlock()
		return
	}
	run.finalized = true
	run.mu.Unlock()

	defer run.cancel()

	rec, err := e.repo.TransitionStatus(ctx, run.record.OrderID, next, txRef)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeIllegalTransition) {
			e.log.Info().Str("order_id", run.record.OrderID).Str("attempted", string(next)).
				Msg("order already finalized elsewhere")
			return
		}
		e.log.Error().Err(err).Str("order_id", run.record.OrderID).Str("next", string(next)).
			Msg("failed to finalize order")
		return
	}

	e.log.Info().Str("order_id", rec.OrderID).Str("status", string(rec.Status)).Msg("order finalized")

	if next == domain.OrderStatusConfirmed {
		e.notifyAsync(ports.NotifyOrderConfirmed, rec)
	}
}

// dropRun removes the order from the active set.
func (e *PaymentEngineImpl) dropRun(orderID string) {
	e.mu.Lock()
	delete(e.runs, orderID)
	e.mu.Unlock()
}

// Remaining returns the seconds left in the payment window and whether the
// order is still actively tracked.
func (e *PaymentEngineImpl) Remaining(orderID string) (int64, bool) {
	e.mu.Lock()
	run, ok := e.runs[orderID]
	e.mu.Unlock()
	if !ok {
		return 0, false
	}

	left := time.Until(run.deadline)
	if left < 0 {
		return 0, true
	}
	return int64(math.Ceil(left.Seconds())), true
}

// CheckNow runs one on-demand probe for an active order. The result is
// returned for display only; acting on it stays with the runner.
func (e *PaymentEngineImpl) CheckNow(ctx context.Context, orderID string) (*ports.ProbeResult, error) {
	e.mu.Lock()
	run, ok := e.runs[orderID]
	e.mu.Unlock()
	if !ok {
		return nil, apperror.ErrOrderNotFound()
	}

	res, err := e.probe.Check(ctx, run.record.PaymentAddress, run.record.CryptoAmount, run.record.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("running confirmation probe: %w", err))
	}

	run.mu.Lock()
	run.lastProbe = res
	run.mu.Unlock()
	return res, nil
}

// Shutdown stops all runners and waits for them to exit.
func (e *PaymentEngineImpl) Shutdown() {
	e.cancel()
	e.wg.Wait()
	e.log.Info().Msg("payment engine stopped")
}

// notifyAsync fires a notification without blocking the caller.
func (e *PaymentEngineImpl) notifyAsync(event ports.NotifyEvent, rec *domain.OrderRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := e.notifier.Notify(ctx, event, rec); err != nil {
			e.log.Warn().Err(err).Str("order_id", rec.OrderID).Str("event", string(event)).
				Msg("notification delivery failed")
		}
	}()
}

// syntheticTxReference mints the reference recorded when the timer policy
// confirms an order without an on-chain transaction.
func syntheticTxReference() string {
	return "MOCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}
