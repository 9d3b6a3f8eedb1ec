package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every options group in this package so a
// command can validate and register flags for all of them uniformly.
type IOptions interface {
	// Validate checks the current values and returns any errors found.
	// A nil receiver must return nil, so an unset optional options group
	// can be validated without a guard at the call site.
	Validate() []error

	// AddFlags registers the group's flags on fs. prefixes lets a caller
	// compose multiple instances of the same options type (e.g. two MQTT
	// connections) under distinct flag names.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a well-formed host:port pair.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return nil
}
