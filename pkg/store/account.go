package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Account is the aggregate accounting row of a faucet.
type Account struct {
	FaucetID          string  `json:"faucetId"`
	TokenLevel        int64   `json:"tokenLevel"`
	LastTokenNum      int64   `json:"lastTokenNum"`
	TotalCount        int64   `json:"totalCount"`
	TokensTransferred float64 `json:"tokensTransferred"`
}

// EnsureAccount inserts the default accounting row for the given faucet id
// if it doesn't exist yet. An existing row is left untouched.
func (s *Store) EnsureAccount(ctx context.Context, faucetID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (faucet_id, token_level, last_token_num, total_count, tokens_transferred)
		VALUES (?, 1, 0, 0, 0)
		ON CONFLICT(faucet_id) DO NOTHING
	`, faucetID)
	if err != nil {
		return fmt.Errorf("failed to ensure account %s: %w", faucetID, err)
	}
	return nil
}

// Account returns the accounting row of the given faucet id.
// It returns [ErrNotFound] if the row does not exist.
func (s *Store) Account(ctx context.Context, faucetID string) (Account, error) {
	account := Account{FaucetID: faucetID}
	err := s.db.QueryRowContext(ctx, `
		SELECT token_level, last_token_num, total_count, tokens_transferred
		FROM accounts WHERE faucet_id = ?
	`, faucetID).Scan(
		&account.TokenLevel,
		&account.LastTokenNum,
		&account.TotalCount,
		&account.TokensTransferred,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %s: %w", faucetID, ErrNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to read account %s: %w", faucetID, err)
	}
	return account, nil
}

// IncrementTransferred adds delta to the tokens_transferred column of the
// given faucet id, as a single atomic update to avoid lost increments under
// concurrent confirmed transfers.
func (s *Store) IncrementTransferred(ctx context.Context, faucetID string, delta float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET tokens_transferred = tokens_transferred + ?
		WHERE faucet_id = ?
	`, delta, faucetID)
	if err != nil {
		return fmt.Errorf("failed to increment tokens transferred of %s: %w", faucetID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to increment tokens transferred of %s: %w", faucetID, err)
	}
	if rows == 0 {
		return fmt.Errorf("account %s: %w", faucetID, ErrNotFound)
	}
	return nil
}

// SetLevelAndTotals overwrites the administrative counters of the given faucet id.
func (s *Store) SetLevelAndTotals(ctx context.Context, faucetID string, level, lastTokenNum, totalCount int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET token_level = ?, last_token_num = ?, total_count = ?
		WHERE faucet_id = ?
	`, level, lastTokenNum, totalCount, faucetID)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", faucetID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", faucetID, err)
	}
	if rows == 0 {
		return fmt.Errorf("account %s: %w", faucetID, ErrNotFound)
	}
	return nil
}
