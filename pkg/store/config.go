package store

import (
	"errors"
	"fmt"
)

type Config struct {
	// Path is the path of the sqlite database file. Default is "faucet.db".
	Path string `env:"FAUCET_DB_PATH"`

	// CounterPath is the path of the dispensation counter checkpoint.
	// Default is "counter.json".
	CounterPath string `env:"COUNTER_FILE_PATH"`
}

func NewConfig() Config {
	return Config{
		Path:        "faucet.db",
		CounterPath: "counter.json",
	}
}

func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("path is not set")
	}
	if c.CounterPath == "" {
		return errors.New("counter path is not set")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Store:\n"+
		"\tPath: %s\n"+
		"\tCounter Path: %s\n",
		c.Path, c.CounterPath)
}
