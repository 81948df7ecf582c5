package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockChainProbe_OutcomesAreValid(t *testing.T) {
	probe := NewMockChainProbe(rand.NewSource(42), testLogger())

	seen := map[ports.ProbeStatus]bool{}
	for i := 0; i < 200; i++ {
		res, err := probe.Check(context.Background(), "So1MockAddr", 0.5, domain.CurrencySOL)
		require.NoError(t, err)
		seen[res.Status] = true

		switch res.Status {
		case ports.ProbeConfirmed:
			assert.Regexp(t, `^0x[0-9a-f]{64}$`, res.TxReference)
		case ports.ProbePending, ports.ProbeNotFound:
			assert.Empty(t, res.TxReference)
		default:
			t.Fatalf("unexpected probe status %q", res.Status)
		}
	}

	// 200 draws cover all three outcomes with overwhelming probability.
	assert.True(t, seen[ports.ProbeConfirmed])
	assert.True(t, seen[ports.ProbePending])
	assert.True(t, seen[ports.ProbeNotFound])
}

func TestMockChainProbe_HonorsCancelledContext(t *testing.T) {
	probe := NewMockChainProbe(rand.NewSource(1), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := probe.Check(ctx, "So1MockAddr", 0.5, domain.CurrencySOL)
	assert.Error(t, err)
}

func TestMockAddressProvider_Shapes(t *testing.T) {
	addrs := NewMockAddressProvider(rand.NewSource(7))

	tests := []struct {
		currency domain.Currency
		prefix   string
	}{
		{domain.CurrencySOL, "So1"},
		{domain.CurrencyBTC, "bc1q"},
		{domain.CurrencyETH, "0x"},
		{domain.CurrencyUSDT, "0x"},
	}
	for _, tt := range tests {
		t.Run(string(tt.currency), func(t *testing.T) {
			addr := addrs.AddressFor(tt.currency)
			assert.Regexp(t, "^"+tt.prefix, addr)
			assert.Len(t, addr, 40)
		})
	}
}

func TestMockAddressProvider_FreshPerCall(t *testing.T) {
	addrs := NewMockAddressProvider(rand.NewSource(7))
	assert.NotEqual(t, addrs.AddressFor(domain.CurrencySOL), addrs.AddressFor(domain.CurrencySOL))
}

func TestMockChain_ConcurrentProbeAndAddresses(t *testing.T) {
	// Probe and address provider run on different goroutines in production,
	// so each must own its rand source. Hammering both concurrently keeps
	// the race detector honest about that split.
	probe := NewMockChainProbe(rand.NewSource(7), testLogger())
	addrs := NewMockAddressProvider(rand.NewSource(8))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				res, err := probe.Check(context.Background(), "So1MockAddr", 0.5, domain.CurrencySOL)
				assert.NoError(t, err)
				assert.NotEmpty(t, res.Status)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				addr := addrs.AddressFor(domain.CurrencyETH)
				assert.NotEmpty(t, addr)
			}
		}()
	}
	wg.Wait()
}
