package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LastRequest returns the timestamp (unix milliseconds) of the last successful
// request by the given identity. It returns [ErrNotFound] for unknown identities.
func (s *Store) LastRequest(ctx context.Context, identity string) (int64, error) {
	var millis int64
	err := s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM users WHERE username = ?`, identity,
	).Scan(&millis)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("identity %s: %w", identity, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read last request of %s: %w", identity, err)
	}
	return millis, nil
}

// Claim attempts to consume the cooldown slot of the given identity.
// It atomically records nowMillis as the identity's last request time, but only
// if the identity is unknown or its previous request is at least window old.
// It reports whether the claim won.
//
// The conditional upsert runs as a single statement, so concurrent claims for
// the same identity are serialized by the database and at most one can win per
// cooldown window.
func (s *Store) Claim(ctx context.Context, identity string, nowMillis int64, window time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, timestamp)
		VALUES (?, ?)
		ON CONFLICT(username)
		DO UPDATE SET timestamp = excluded.timestamp
		WHERE excluded.timestamp - users.timestamp >= ?
	`, identity, nowMillis, window.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("failed to claim cooldown slot of %s: %w", identity, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim cooldown slot of %s: %w", identity, err)
	}
	return rows > 0, nil
}
