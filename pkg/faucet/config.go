package faucet

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	// Port the HTTP server listens on. Default is "8080".
	Port string `env:"SERVER_PORT"`

	// Origin allowed by CORS. Default is "*".
	Origin string `env:"ORIGIN"`

	// CooldownSeconds is the minimum interval between two grants to the same
	// identity, in seconds. Default is 3600 (one hour).
	CooldownSeconds int `env:"REQUEST_TIMEOUT_IN_SECONDS"`

	// Amount is the number of RBT dispensed per request.
	// Capped at 1.0: the faucet never grants more than one token. Default is 1.0.
	Amount float64 `env:"FAUCET_REQUEST_AMOUNT"`

	// FaucetDID is the identity the faucet sends funds from.
	FaucetDID string `env:"FAUCET_DID"`

	// CacheSize bounds the in-memory cooldown cache. Default is 10000.
	CacheSize int `env:"FAUCET_COOLDOWN_CACHE_SIZE"`

	// ReplenishTimeout bounds the background top-up sequence. Default is 2 minutes.
	ReplenishTimeout time.Duration `env:"FAUCET_REPLENISH_TIMEOUT"`
}

func NewConfig() Config {
	return Config{
		Port:             "8080",
		Origin:           "*",
		CooldownSeconds:  3600,
		Amount:           1.0,
		CacheSize:        10_000,
		ReplenishTimeout: 2 * time.Minute,
	}
}

// Window returns the cooldown window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is not set")
	}
	if c.CooldownSeconds <= 0 {
		return errors.New("cooldown must be greater than 0 seconds")
	}
	if c.Amount <= 0 {
		return errors.New("request amount must be greater than 0")
	}
	if c.Amount > 1.0 {
		return errors.New("request amount must not exceed 1.0 RBT")
	}
	if c.FaucetDID == "" {
		return errors.New("faucet DID is not set")
	}
	if c.CacheSize <= 0 {
		return errors.New("cache size must be greater than 0")
	}
	if c.ReplenishTimeout < time.Second {
		return errors.New("replenish timeout must be greater than 1s to function reliably")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Faucet:\n"+
		"\tPort: %s\n"+
		"\tOrigin: %s\n"+
		"\tCooldown: %v\n"+
		"\tAmount: %v\n"+
		"\tFaucet DID: %s\n"+
		"\tCache Size: %d\n"+
		"\tReplenish Timeout: %v\n",
		c.Port, c.Origin, c.Window(), c.Amount, c.FaucetDID, c.CacheSize, c.ReplenishTimeout)
}
