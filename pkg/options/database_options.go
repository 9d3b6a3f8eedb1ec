package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*DatabaseOptions)(nil)

// DatabaseOptions configures the cloud bridge's persistence backend. An
// empty URL selects the in-memory store.
type DatabaseOptions struct {
	URL             string        `json:"url" mapstructure:"url"`
	MaxOpenConns    int32         `json:"max-open-conns" mapstructure:"max-open-conns"`
	ConnMaxLifetime time.Duration `json:"conn-max-lifetime" mapstructure:"conn-max-lifetime"`
}

// NewDatabaseOptions creates a DatabaseOptions object with default parameters.
func NewDatabaseOptions() *DatabaseOptions {
	return &DatabaseOptions{
		MaxOpenConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *DatabaseOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	return errs
}

// AddFlags adds flags for DatabaseOptions to the specified FlagSet.
func (o *DatabaseOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, "database.url", o.URL, "Postgres connection URL. Empty selects the in-memory store.")
	fs.Int32Var(&o.MaxOpenConns, "database.max-open-conns", o.MaxOpenConns, "Maximum open Postgres connections.")
	fs.DurationVar(&o.ConnMaxLifetime, "database.conn-max-lifetime", o.ConnMaxLifetime, "Maximum lifetime of a pooled Postgres connection.")
}

// Enabled reports whether a Postgres backend was configured.
func (o *DatabaseOptions) Enabled() bool {
	return o != nil && o.URL != ""
}
