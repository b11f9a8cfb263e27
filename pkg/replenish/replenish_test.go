package replenish

import (
	"context"
	"log/slog"
	"testing"

	"github.com/rubixchain/faucet/pkg/rubix"
)

// fakeClient counts calls and returns canned results.
type fakeClient struct {
	balance    float64
	balanceErr error
	mintErr    error
	confirmMsg string

	mints    int
	confirms int
}

func (f *fakeClient) Balance(ctx context.Context, did string) (float64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeClient) GenerateTestTokens(ctx context.Context, did string, amount float64) (string, error) {
	f.mints++
	if f.mintErr != nil {
		return "", f.mintErr
	}
	return "mint123", nil
}

func (f *fakeClient) ConfirmTransfer(ctx context.Context, id string) (rubix.Confirmation, error) {
	f.confirms++
	msg := f.confirmMsg
	if msg == "" {
		msg = "Transfer finished successfully"
	}
	return rubix.Confirmation{
		Confirmed: msg == "Transfer finished successfully",
		Message:   msg,
	}, nil
}

func newTestMonitor(client *fakeClient) *Monitor {
	config := Config{Floor: 50, TopUpAmount: 100, TreasuryDID: "bafybtreasury"}
	return NewMonitor(config, client, slog.Default())
}

func TestMaybeReplenish(t *testing.T) {
	tests := []struct {
		name      string
		client    *fakeClient
		wantMints int
		wantErr   bool
	}{
		{
			name:      "balance below floor triggers one top-up",
			client:    &fakeClient{balance: 49.9},
			wantMints: 1,
		},
		{
			name:      "balance at floor does nothing",
			client:    &fakeClient{balance: 50},
			wantMints: 0,
		},
		{
			name:      "balance above floor does nothing",
			client:    &fakeClient{balance: 1000},
			wantMints: 0,
		},
		{
			name:      "balance check failure",
			client:    &fakeClient{balanceErr: rubix.ErrUnavailable},
			wantMints: 0,
			wantErr:   true,
		},
		{
			name:      "mint failure",
			client:    &fakeClient{balance: 10, mintErr: rubix.ErrRejected},
			wantMints: 1,
			wantErr:   true,
		},
		{
			name:      "unconfirmed mint",
			client:    &fakeClient{balance: 10, confirmMsg: "signature verification failed"},
			wantMints: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := newTestMonitor(tt.client)

			err := monitor.MaybeReplenish(context.Background(), "bafybfaucet")
			if tt.wantErr && err == nil {
				t.Error("expected an error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.client.mints != tt.wantMints {
				t.Errorf("got %d mints, want %d", tt.client.mints, tt.wantMints)
			}
		})
	}
}

func TestMaybeReplenishConfirmsTheMint(t *testing.T) {
	client := &fakeClient{balance: 1}
	monitor := newTestMonitor(client)

	if err := monitor.MaybeReplenish(context.Background(), "bafybfaucet"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.confirms != 1 {
		t.Errorf("got %d confirms, want 1", client.confirms)
	}
}

func TestConfigValidate(t *testing.T) {
	config := NewConfig()
	if err := config.Validate(); err == nil {
		t.Error("expected an error for missing treasury DID")
	}

	config.TreasuryDID = "bafybtreasury"
	if err := config.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	config.Floor = 0
	if err := config.Validate(); err == nil {
		t.Error("expected an error for zero floor")
	}
}
