// The package config is responsible for loading package specific configs from the
// environment variables, and validating them.
//
// Packages requiring configs should expose:
// - A Config struct with the package specific config parameters.
// - A NewConfig() function to create a new Config with default parameters.
// - A Validate() method to validate the config.
// - A String() method to return a string representation of the config.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rubixchain/faucet/pkg/acl"
	"github.com/rubixchain/faucet/pkg/faucet"
	"github.com/rubixchain/faucet/pkg/rate"
	"github.com/rubixchain/faucet/pkg/replenish"
	"github.com/rubixchain/faucet/pkg/rubix"
	"github.com/rubixchain/faucet/pkg/store"
)

type Config struct {
	Faucet    faucet.Config
	Store     store.Config
	Rubix     rubix.Config
	Replenish replenish.Config
	Rate      rate.Config
	ACL       acl.Config
}

// Load creates a new [Config] with default parameters, that get overwritten by env variables when specified.
// It returns an error if the config is invalid.
func Load() (Config, error) {
	config := New()
	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate config: %w", err)
	}
	return config, nil
}

func New() Config {
	return Config{
		Faucet:    faucet.NewConfig(),
		Store:     store.NewConfig(),
		Rubix:     rubix.NewConfig(),
		Replenish: replenish.NewConfig(),
		Rate:      rate.NewConfig(),
		ACL:       acl.NewConfig(),
	}
}

func (c Config) Validate() error {
	if err := c.Faucet.Validate(); err != nil {
		return fmt.Errorf("faucet: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Rubix.Validate(); err != nil {
		return fmt.Errorf("rubix: %w", err)
	}
	if err := c.Replenish.Validate(); err != nil {
		return fmt.Errorf("replenish: %w", err)
	}
	if err := c.Rate.Validate(); err != nil {
		return fmt.Errorf("rate: %w", err)
	}
	if err := c.ACL.Validate(); err != nil {
		return fmt.Errorf("acl: %w", err)
	}
	return nil
}

func (c Config) Print() {
	fmt.Println(c.Faucet)
	fmt.Println(c.Store)
	fmt.Println(c.Rubix)
	fmt.Println(c.Replenish)
	fmt.Println(c.Rate)
	fmt.Println(c.ACL)
}
