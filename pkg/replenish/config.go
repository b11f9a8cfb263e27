package replenish

import (
	"errors"
	"fmt"
)

type Config struct {
	// Floor is the balance below which the faucet tops itself up. Default is 50.
	Floor float64 `env:"REPLENISH_FLOOR"`

	// TopUpAmount is the number of test tokens minted per top-up. Default is 100.
	TopUpAmount float64 `env:"REPLENISH_TOPUP_AMOUNT"`

	// TreasuryDID is the identity the mint transfer is issued against.
	TreasuryDID string `env:"TREASURY_DID"`
}

func NewConfig() Config {
	return Config{
		Floor:       50,
		TopUpAmount: 100,
	}
}

func (c Config) Validate() error {
	if c.Floor <= 0 {
		return errors.New("floor must be greater than 0")
	}
	if c.TopUpAmount <= 0 {
		return errors.New("top-up amount must be greater than 0")
	}
	if c.TreasuryDID == "" {
		return errors.New("treasury DID is not set")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Replenish:\n"+
		"\tFloor: %v\n"+
		"\tTop-Up Amount: %v\n"+
		"\tTreasury DID: %s\n",
		c.Floor, c.TopUpAmount, c.TreasuryDID)
}
