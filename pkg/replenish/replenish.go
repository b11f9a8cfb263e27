// The replenish package keeps the faucet funded: after a dispensation it
// checks the faucet's own balance on the node and, when it has fallen below
// the configured floor, mints a top-up through the same two-phase protocol.
//
// The monitor is best-effort. It runs outside the request path, its failures
// are only logged by the caller, and concurrent top-ups are not deduplicated.
package replenish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rubixchain/faucet/pkg/rubix"
)

// Client is the subset of the node client the monitor needs.
type Client interface {
	Balance(ctx context.Context, did string) (float64, error)
	GenerateTestTokens(ctx context.Context, did string, amount float64) (string, error)
	ConfirmTransfer(ctx context.Context, id string) (rubix.Confirmation, error)
}

type Monitor struct {
	client Client
	config Config
	log    *slog.Logger
}

func NewMonitor(c Config, client Client, log *slog.Logger) *Monitor {
	return &Monitor{
		client: client,
		config: c,
		log:    log,
	}
}

// MaybeReplenish tops up the faucet's balance when it is below the floor.
// It reports the balance check and the outcome of any top-up via logs and the
// returned error; the caller must never surface either to a requester.
func (m *Monitor) MaybeReplenish(ctx context.Context, faucetDID string) error {
	balance, err := m.client.Balance(ctx, faucetDID)
	if err != nil {
		return fmt.Errorf("replenish: failed to check balance: %w", err)
	}

	if balance >= m.config.Floor {
		return nil
	}

	m.log.Info("replenish: balance below floor, minting top-up",
		"balance", balance,
		"floor", m.config.Floor,
		"amount", m.config.TopUpAmount,
	)

	id, err := m.client.GenerateTestTokens(ctx, m.config.TreasuryDID, m.config.TopUpAmount)
	if err != nil {
		return fmt.Errorf("replenish: failed to generate test tokens: %w", err)
	}

	confirmation, err := m.client.ConfirmTransfer(ctx, id)
	if err != nil {
		return fmt.Errorf("replenish: failed to confirm mint %s: %w", id, err)
	}
	if !confirmation.Confirmed {
		return fmt.Errorf("replenish: mint %s not confirmed: %s", id, confirmation.Message)
	}

	m.log.Info("replenish: top-up confirmed", "id", id, "amount", m.config.TopUpAmount)
	return nil
}
