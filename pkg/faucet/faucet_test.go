package faucet

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rubixchain/faucet/pkg/counter"
	"github.com/rubixchain/faucet/pkg/rubix"
	"github.com/rubixchain/faucet/pkg/store"
)

const (
	testFaucetDID = "bafybfaucet"
	testAmount    = 0.5
)

// fakeNode is a Client double with canned outcomes.
type fakeNode struct {
	mu          sync.Mutex
	initErr     error
	confirmErr  error
	confirmMsg  string
	initiations int
}

func (f *fakeNode) InitiateTransfer(ctx context.Context, receiver, sender string, amount float64) (string, error) {
	f.mu.Lock()
	f.initiations++
	f.mu.Unlock()

	if f.initErr != nil {
		return "", f.initErr
	}
	return "tx123", nil
}

func (f *fakeNode) ConfirmTransfer(ctx context.Context, id string) (rubix.Confirmation, error) {
	if f.confirmErr != nil {
		return rubix.Confirmation{}, f.confirmErr
	}

	msg := f.confirmMsg
	if msg == "" {
		msg = "Transfer finished successfully"
	}
	return rubix.Confirmation{
		Confirmed: msg == "Transfer finished successfully",
		Message:   msg,
	}, nil
}

// chanMonitor reports replenishment calls on a channel.
type chanMonitor struct {
	calls chan string
}

func (m *chanMonitor) MaybeReplenish(ctx context.Context, did string) error {
	m.calls <- did
	return nil
}

// denyAll blocks every identity.
type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newTestService(t *testing.T, node Client, monitor Monitor) *Service {
	t.Helper()
	dir := t.TempDir()

	db, err := store.New(filepath.Join(dir, "faucet.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.EnsureAccount(context.Background(), testFaucetDID); err != nil {
		t.Fatalf("failed to ensure account: %v", err)
	}

	seq, err := counter.New(filepath.Join(dir, "counter.json"))
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}

	config := NewConfig()
	config.FaucetDID = testFaucetDID
	config.Amount = testAmount

	return NewService(config, db, seq, node, nil, monitor, slog.Default())
}

func TestDispenseSuccess(t *testing.T) {
	service := newTestService(t, &fakeNode{}, nil)
	ctx := context.Background()

	receipt, err := service.Dispense(ctx, "bafybalice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := counter.Receipt(1); receipt != want {
		t.Errorf("got receipt %s, want %s", receipt, want)
	}

	account, err := service.Account(ctx)
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account.TokensTransferred != testAmount {
		t.Errorf("got %v tokens transferred, want %v", account.TokensTransferred, testAmount)
	}
}

func TestDispenseCooldown(t *testing.T) {
	service := newTestService(t, &fakeNode{}, nil)
	ctx := context.Background()

	if _, err := service.Dispense(ctx, "bafybalice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := service.Dispense(ctx, "bafybalice")
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("expected CooldownError, got %v", err)
	}

	window := service.config.Window()
	if cooldown.Remaining <= 0 || cooldown.Remaining > window {
		t.Errorf("remaining %v out of range (0, %v]", cooldown.Remaining, window)
	}

	// A different identity is unaffected.
	if _, err := service.Dispense(ctx, "bafybbob"); err != nil {
		t.Errorf("unexpected error for other identity: %v", err)
	}
}

func TestDispenseEmptyIdentity(t *testing.T) {
	node := &fakeNode{}
	service := newTestService(t, node, nil)

	_, err := service.Dispense(context.Background(), "")
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
	if node.initiations != 0 {
		t.Errorf("got %d initiations, want 0", node.initiations)
	}
}

func TestDispenseBlockedIdentity(t *testing.T) {
	node := &fakeNode{}
	service := newTestService(t, node, nil)
	service.acl = denyAll{}

	_, err := service.Dispense(context.Background(), "bafybmallory")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if node.initiations != 0 {
		t.Errorf("got %d initiations, want 0", node.initiations)
	}
}

func TestFailedTransferConsumesSlot(t *testing.T) {
	node := &fakeNode{initErr: rubix.ErrUnavailable}
	service := newTestService(t, node, nil)
	ctx := context.Background()

	_, err := service.Dispense(ctx, "bafybalice")
	if !errors.Is(err, ErrTransfer) {
		t.Fatalf("expected ErrTransfer, got %v", err)
	}

	// The counter advanced even though the transfer failed.
	if got := service.counter.Value(); got != 1 {
		t.Errorf("got counter %d, want 1", got)
	}

	// The cooldown slot is consumed per attempt, not per success.
	_, err = service.Dispense(ctx, "bafybalice")
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Errorf("expected CooldownError, got %v", err)
	}

	account, err := service.Account(ctx)
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account.TokensTransferred != 0 {
		t.Errorf("got %v tokens transferred, want 0", account.TokensTransferred)
	}
}

func TestRejectedConfirmSkipsAccounting(t *testing.T) {
	node := &fakeNode{confirmMsg: "signature verification failed"}
	service := newTestService(t, node, nil)
	ctx := context.Background()

	_, err := service.Dispense(ctx, "bafybalice")
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.Message != "signature verification failed" {
		t.Errorf("got message %q, want the remote message", rejected.Message)
	}

	account, err := service.Account(ctx)
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account.TokensTransferred != 0 {
		t.Errorf("got %v tokens transferred, want 0", account.TokensTransferred)
	}
}

func TestConcurrentDispenseSameIdentity(t *testing.T) {
	service := newTestService(t, &fakeNode{}, nil)
	ctx := context.Background()

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)

	outcomes := make(chan error, goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			_, err := service.Dispense(ctx, "bafybraced")
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	var accepted, throttled int
	for err := range outcomes {
		var cooldown *CooldownError
		switch {
		case err == nil:
			accepted++
		case errors.As(err, &cooldown):
			throttled++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if accepted != 1 {
		t.Errorf("got %d accepted requests, want 1", accepted)
	}
	if throttled != goroutines-1 {
		t.Errorf("got %d throttled requests, want %d", throttled, goroutines-1)
	}
}

func TestReplenishRunsAfterDispense(t *testing.T) {
	monitor := &chanMonitor{calls: make(chan string, 1)}
	service := newTestService(t, &fakeNode{}, monitor)

	if _, err := service.Dispense(context.Background(), "bafybalice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case did := <-monitor.calls:
		if did != testFaucetDID {
			t.Errorf("got did %q, want %q", did, testFaucetDID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("replenishment was not triggered")
	}
}

func TestReplenishRunsAfterRejectedConfirm(t *testing.T) {
	monitor := &chanMonitor{calls: make(chan string, 1)}
	node := &fakeNode{confirmMsg: "signature verification failed"}
	service := newTestService(t, node, monitor)

	_, err := service.Dispense(context.Background(), "bafybalice")
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}

	select {
	case <-monitor.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("replenishment was not triggered")
	}
}

func TestConfigValidate(t *testing.T) {
	config := NewConfig()
	if err := config.Validate(); err == nil {
		t.Error("expected an error for missing faucet DID")
	}

	config.FaucetDID = testFaucetDID
	if err := config.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	config.Amount = 1.5
	if err := config.Validate(); err == nil {
		t.Error("expected an error for amount above the 1.0 cap")
	}
}
