package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

const txRefAlphabet = "abcdef0123456789"

// MockChainProbe implements ports.ConfirmationProbe with simulated chain
// lookups. Each check draws from the injected source: above 0.7 the
// payment is confirmed, above 0.3 it is pending, otherwise nothing was
// found at the address.
type MockChainProbe struct {
	mu  sync.Mutex
	rnd *rand.Rand
	log zerolog.Logger
}

// NewMockChainProbe creates a probe seeded from the given source. Tests
// pass a fixed seed to make outcomes deterministic.
func NewMockChainProbe(src rand.Source, log zerolog.Logger) *MockChainProbe {
	return &MockChainProbe{rnd: rand.New(src), log: log}
}

// Check simulates one blockchain lookup.
func (p *MockChainProbe) Check(ctx context.Context, address string, amount float64, currency domain.Currency) (*ports.ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	roll := p.rnd.Float64()
	p.mu.Unlock()

	res := &ports.ProbeResult{Status: ports.ProbeNotFound}
	switch {
	case roll > 0.7:
		res.Status = ports.ProbeConfirmed
		res.TxReference = p.mockTxReference()
	case roll > 0.3:
		res.Status = ports.ProbePending
	}

	p.log.Debug().
		Str("address", address).
		Float64("amount", amount).
		Str("currency", string(currency)).
		Str("status", string(res.Status)).
		Msg("chain probe")

	return res, nil
}

func (p *MockChainProbe) mockTxReference() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	b.WriteString("0x")
	for i := 0; i < 64; i++ {
		b.WriteByte(txRefAlphabet[p.rnd.Intn(len(txRefAlphabet))])
	}
	return b.String()
}

const addressAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz123456789"

// addressPrefixes mirror the receiving wallet formats per network.
var addressPrefixes = map[domain.Currency]string{
	domain.CurrencySOL:  "So1",
	domain.CurrencyBTC:  "bc1q",
	domain.CurrencyETH:  "0x",
	domain.CurrencyUSDT: "0x",
}

// MockAddressProvider implements ports.AddressProvider with generated
// receiving addresses shaped like each network's real ones.
type MockAddressProvider struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockAddressProvider creates a provider seeded from the given source.
func NewMockAddressProvider(src rand.Source) *MockAddressProvider {
	return &MockAddressProvider{rnd: rand.New(src)}
}

// AddressFor returns a fresh receiving address for the currency.
func (p *MockAddressProvider) AddressFor(c domain.Currency) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix, ok := addressPrefixes[c]
	if !ok {
		prefix = addressPrefixes[domain.CurrencySOL]
	}

	var b strings.Builder
	b.WriteString(prefix)
	for b.Len() < 40 {
		b.WriteByte(addressAlphabet[p.rnd.Intn(len(addressAlphabet))])
	}
	return b.String()
}
