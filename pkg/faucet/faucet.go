// The faucet package implements the throttled-dispensing orchestrator:
// it grants a fixed amount of test RBT to a requesting identity at most once
// per cooldown window, driving the node's two-phase transfer protocol and
// keeping the durable counter and accounting in sync.
package faucet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rubixchain/faucet/pkg/counter"
	"github.com/rubixchain/faucet/pkg/rubix"
	"github.com/rubixchain/faucet/pkg/store"
)

var (
	// ErrBadRequest indicates a missing or empty identity.
	ErrBadRequest = errors.New("identity is required")

	// ErrForbidden indicates the identity is not allowed to request funds.
	ErrForbidden = errors.New("identity is not allowed")

	// ErrTransfer indicates the transfer could not be carried out.
	ErrTransfer = errors.New("transfer failed")
)

// CooldownError is returned when an identity requests again inside its cooldown window.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, try again in %s", formatWait(e.Remaining))
}

// RejectedError is returned when the node refused to finalize the transfer.
// It is a structured dispensation failure, not a server fault: the remote
// message is preserved for the requester.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Client is the subset of the node client the orchestrator needs.
type Client interface {
	InitiateTransfer(ctx context.Context, receiver, sender string, amount float64) (string, error)
	ConfirmTransfer(ctx context.Context, id string) (rubix.Confirmation, error)
}

// Monitor replenishes the faucet's own balance. See the replenish package.
type Monitor interface {
	MaybeReplenish(ctx context.Context, faucetDID string) error
}

// Allower decides whether an identity may request funds. See the acl package.
type Allower interface {
	Allow(identity string) bool
}

// Service composes the durable state, the node client, and the replenishment
// monitor under a single dispensation flow.
type Service struct {
	store   *store.Store
	counter *counter.Counter
	client  Client
	acl     Allower
	monitor Monitor

	// recent is an advisory fast path for cooldown rejections; the conditional
	// claim on the store remains the source of truth.
	recent *expirable.LRU[string, int64]

	config Config
	log    *slog.Logger
}

// NewService creates a Service. The acl and monitor collaborators may be nil,
// disabling identity filtering and replenishment respectively.
func NewService(
	config Config,
	db *store.Store,
	seq *counter.Counter,
	client Client,
	acl Allower,
	monitor Monitor,
	log *slog.Logger,
) *Service {
	return &Service{
		store:   db,
		counter: seq,
		client:  client,
		acl:     acl,
		monitor: monitor,
		recent:  expirable.NewLRU[string, int64](config.CacheSize, nil, config.Window()),
		config:  config,
		log:     log,
	}
}

// Dispense grants the configured amount to the given identity.
// On success it returns the receipt hash of the dispensation.
//
// The cooldown slot and the counter are committed before the transfer is
// attempted: a failed transfer does not refund them, so an identity consumes
// its slot per attempt, not per success.
func (s *Service) Dispense(ctx context.Context, identity string) (string, error) {
	if identity == "" {
		return "", ErrBadRequest
	}
	if s.acl != nil && !s.acl.Allow(identity) {
		return "", fmt.Errorf("%w: %s", ErrForbidden, identity)
	}

	now := time.Now()
	window := s.config.Window()

	if last, ok := s.recent.Get(identity); ok {
		elapsed := now.Sub(time.UnixMilli(last))
		if elapsed < window {
			return "", &CooldownError{Remaining: window - elapsed}
		}
	}

	won, err := s.store.Claim(ctx, identity, now.UnixMilli(), window)
	if err != nil {
		return "", fmt.Errorf("failed to check cooldown of %s: %w", identity, err)
	}
	if !won {
		return "", &CooldownError{Remaining: s.remaining(ctx, identity, now, window)}
	}
	s.recent.Add(identity, now.UnixMilli())

	seq, err := s.counter.Next()
	if err != nil {
		return "", fmt.Errorf("failed to advance dispensation counter: %w", err)
	}
	receipt := counter.Receipt(seq)

	id, err := s.client.InitiateTransfer(ctx, identity, s.config.FaucetDID, s.config.Amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransfer, err)
	}

	// Faucet funds are now in play: top up the balance once the request is done,
	// whatever the confirmation outcome.
	defer s.spawnReplenish()

	confirmation, err := s.client.ConfirmTransfer(ctx, id)
	if err != nil {
		if errors.Is(err, rubix.ErrRejected) {
			return "", &RejectedError{Message: err.Error()}
		}
		return "", fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	if !confirmation.Confirmed {
		return "", &RejectedError{Message: confirmation.Message}
	}

	if err := s.store.IncrementTransferred(ctx, s.config.FaucetDID, s.config.Amount); err != nil {
		// The tokens already moved; a stale aggregate is better than telling
		// the requester their confirmed transfer failed.
		s.log.Error("faucet: failed to update accounting", "error", err, "identity", identity)
	}

	s.log.Info("faucet: dispensed",
		slog.String("identity", identity),
		slog.Float64("amount", s.config.Amount),
		slog.Uint64("seq", seq),
	)
	return receipt, nil
}

// Account returns the accounting row of the faucet.
func (s *Service) Account(ctx context.Context) (store.Account, error) {
	return s.store.Account(ctx, s.config.FaucetDID)
}

// SetLevelAndTotals overwrites the administrative counters of the faucet.
func (s *Service) SetLevelAndTotals(ctx context.Context, level, lastTokenNum, totalCount int64) error {
	return s.store.SetLevelAndTotals(ctx, s.config.FaucetDID, level, lastTokenNum, totalCount)
}

// remaining computes the wait left for an identity that lost its claim.
func (s *Service) remaining(ctx context.Context, identity string, now time.Time, window time.Duration) time.Duration {
	last, err := s.store.LastRequest(ctx, identity)
	if err != nil {
		// The record existed a moment ago; fall back to the full window.
		return window
	}

	remaining := window - now.Sub(time.UnixMilli(last))
	if remaining <= 0 || remaining > window {
		return window
	}
	return remaining
}

// spawnReplenish runs the replenishment monitor in the background,
// detached from the request context. Failures are logged, never surfaced.
func (s *Service) spawnReplenish() {
	if s.monitor == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ReplenishTimeout)
		defer cancel()

		if err := s.monitor.MaybeReplenish(ctx, s.config.FaucetDID); err != nil {
			s.log.Error("faucet: replenishment failed", "error", err)
		}
	}()
}
