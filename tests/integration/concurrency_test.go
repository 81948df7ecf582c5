package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cryoner-gateway/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentCheckouts_SameOrderID fires many checkout requests carrying
// the same order ID. Exactly one must win; the rest get ORD_001.
func TestConcurrentCheckouts_SameOrderID(t *testing.T) {
	app := newTestApp(t, testAppOpts{window: 5 * time.Second})

	const workers = 50
	var created, duplicated int64
	var wg sync.WaitGroup

	target := app.server.URL + "/api/v1/checkout?orderId=RACE-1&amount=50&currency=SOL"
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(target, "", nil)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case http.StatusConflict:
				atomic.AddInt64(&duplicated, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created, "exactly one checkout may win the order ID")
	assert.Equal(t, int64(workers-1), duplicated)

	rec, err := app.orders.GetByID(context.Background(), "RACE-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.OrderStatusPending, rec.Status)
}

// TestConcurrentFinalize_AdminVsWindow races a manual admin confirmation
// against the expiring payment window. Whatever wins, the order must land
// in exactly one terminal status and stay there.
func TestConcurrentFinalize_AdminVsWindow(t *testing.T) {
	app := newTestApp(t, testAppOpts{window: 150 * time.Millisecond})

	resp, err := http.Post(app.server.URL+"/api/v1/checkout?orderId=RACE-2&amount=50&currency=SOL", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Hammer the CAS directly while the window runs out.
	txRef := "0xadmin"
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, _ = app.orders.TransitionStatus(context.Background(), "RACE-2", domain.OrderStatusConfirmed, &txRef)
		rec, _ := app.orders.GetByID(context.Background(), "RACE-2")
		if rec != nil && rec.Status.IsTerminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		rec, err := app.orders.GetByID(context.Background(), "RACE-2")
		return err == nil && rec != nil && rec.Status.IsTerminal()
	}, 3*time.Second, 20*time.Millisecond)

	// The terminal status never changes afterwards.
	rec, err := app.orders.GetByID(context.Background(), "RACE-2")
	require.NoError(t, err)
	final := rec.Status

	time.Sleep(300 * time.Millisecond)
	rec, err = app.orders.GetByID(context.Background(), "RACE-2")
	require.NoError(t, err)
	assert.Equal(t, final, rec.Status)

	if final == domain.OrderStatusConfirmed {
		require.NotNil(t, rec.TxReference)
		assert.Equal(t, "0xadmin", *rec.TxReference)
	}
}

// TestConcurrentSessions verifies independent session creation under load.
func TestConcurrentSessions(t *testing.T) {
	app := newTestApp(t, testAppOpts{})

	const workers = 30
	ids := make(chan string, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			payload := fmt.Sprintf(`{"worker":%d}`, n)
			resp, err := http.Post(app.server.URL+"/api/v1/sessions", "application/json", strings.NewReader(payload))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				return
			}
			var body struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
				ids <- body.Data.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "session IDs must be unique")
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}
