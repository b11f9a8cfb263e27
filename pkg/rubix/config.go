package rubix

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	// NodeAddress is the base address of the Rubix node (e.g. "http://localhost:20000").
	NodeAddress string `env:"RUBIX_NODE_ADDRESS"`

	// Password is the credential submitted with the signature-response step.
	Password string `env:"FAUCET_SIGNATURE_PASSWORD"`

	// Timeout applies to each call against the node. Default is 30 seconds.
	Timeout time.Duration `env:"RUBIX_REQUEST_TIMEOUT"`
}

func NewConfig() Config {
	return Config{
		Password: "mypassword",
		Timeout:  30 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.NodeAddress == "" {
		return errors.New("node address is not set")
	}
	u, err := url.Parse(c.NodeAddress)
	if err != nil {
		return fmt.Errorf("invalid node address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid node address scheme: %q", u.Scheme)
	}
	if c.Password == "" {
		return errors.New("signature password is not set")
	}
	if c.Timeout < time.Second {
		return errors.New("timeout must be greater than 1s to function reliably")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Rubix:\n"+
		"\tNode Address: %s\n"+
		"\tRequest Timeout: %v\n",
		c.NodeAddress, c.Timeout)
}
