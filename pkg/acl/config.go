// The acl package provides access control over requesting identities.
// It supports hot-reloadable CSV files for allowed/blocked DIDs,
// with a configurable policy for identities in neither list.
package acl

import (
	"errors"
	"fmt"
	"os"
	"slices"
)

// Hardcoded file names within the ACL directory.
const (
	IdentitiesAllowedFile = "identities_allowed.csv"
	IdentitiesBlockedFile = "identities_blocked.csv"
)

var RequiredFiles = []string{IdentitiesAllowedFile, IdentitiesBlockedFile}

// IdentityPolicy determines how to handle identities that are not in the allowed or blocked lists.
type IdentityPolicy string

const (
	// AllowAll allows unknown identities.
	AllowAll IdentityPolicy = "ALLOW"

	// BlockAll blocks unknown identities.
	BlockAll IdentityPolicy = "BLOCK"
)

var IdentityPolicies = []IdentityPolicy{AllowAll, BlockAll}

type Config struct {
	// Enabled activates identity filtering. Default is false.
	Enabled bool `env:"ACL_ENABLED"`

	// Dir is the path to the directory containing the ACL CSV files.
	// The directory must contain:
	//   - identities_allowed.csv
	//   - identities_blocked.csv
	// Default is "acl".
	Dir string `env:"ACL_DIRECTORY_PATH"`

	// UnknownIdentityPolicy is the policy to apply to identities in neither list.
	// Possible values are "ALLOW" and "BLOCK". Default is "ALLOW".
	UnknownIdentityPolicy IdentityPolicy `env:"ACL_UNKNOWN_IDENTITY_POLICY"`

	// DIDPrefix, when set, rejects identities that don't start with it.
	// Rubix DIDs start with "bafyb". Default is "" (no syntax check).
	DIDPrefix string `env:"ACL_DID_PREFIX"`
}

// NewConfig creates a new Config with default values.
func NewConfig() Config {
	return Config{
		Dir:                   "acl",
		UnknownIdentityPolicy: AllowAll,
	}
}

// Validate checks that the configuration is valid.
// A disabled ACL is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Dir == "" {
		return errors.New("path is empty or not set")
	}

	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("acl directory not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("acl path is not a directory: %s", c.Dir)
	}

	for _, file := range RequiredFiles {
		path := c.Dir + "/" + file
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("required file not found: %s", path)
		}
	}

	if !slices.Contains(IdentityPolicies, c.UnknownIdentityPolicy) {
		return fmt.Errorf("unknown identity policy: %s. Possible values are: %v", c.UnknownIdentityPolicy, IdentityPolicies)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("ACL:\n"+
		"\tEnabled: %t\n"+
		"\tDir: %s\n"+
		"\tUnknown Identity Policy: %s\n"+
		"\tDID Prefix: %q\n",
		c.Enabled, c.Dir, c.UnknownIdentityPolicy, c.DIDPrefix)
}
