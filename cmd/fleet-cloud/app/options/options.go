// Package options defines the flag surface for the fleet-cloud binary:
// HTTP, MQTT, database, inference and logging option groups composed
// behind one pflag.FlagSet, the same composition shape the teacher's
// cpeer-vehicle-agent/app/options package uses.
package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/options"
)

// Options is the top-level configuration for fleet-cloud.
type Options struct {
	Http      *options.HttpOptions      `json:"http" mapstructure:"http"`
	Mqtt      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	Database  *options.DatabaseOptions  `json:"database" mapstructure:"database"`
	Inference *options.InferenceOptions `json:"inference" mapstructure:"inference"`
	Log       *log.Options              `json:"log" mapstructure:"log"`

	// FleetIDs lists the fleets this cloud process bridges to the
	// broker. Each gets its own subscription set and bridge.Bridge.
	FleetIDs []string `json:"fleet-ids" mapstructure:"fleet-ids"`

	// OfflineSweepInterval controls how often Service.RunOfflineSweep
	// polls the device registry for stale heartbeats.
	OfflineSweepInterval string `json:"offline-sweep-interval" mapstructure:"offline-sweep-interval"`
}

// NewOptions creates an Options object with default parameters.
func NewOptions() *Options {
	return &Options{
		Http:                 options.NewHttpOptions(),
		Mqtt:                 options.NewMqttOptions(),
		Database:             options.NewDatabaseOptions(),
		Inference:            options.NewInferenceOptions(),
		Log:                  log.NewOptions(),
		FleetIDs:             []string{"default"},
		OfflineSweepInterval: "30s",
	}
}

// Flags returns the full flag set for fleet-cloud, composed from every
// options group it holds.
func (o *Options) Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("fleet-cloud", pflag.ExitOnError)

	o.Http.AddFlags(fs)
	o.Mqtt.AddFlags(fs)
	o.Database.AddFlags(fs)
	o.Inference.AddFlags(fs)
	o.Log.AddFlags(fs)

	fs.StringSliceVar(&o.FleetIDs, "cloud.fleet-ids", o.FleetIDs, "Fleets this process bridges to the broker.")
	fs.StringVar(&o.OfflineSweepInterval, "cloud.offline-sweep-interval", o.OfflineSweepInterval, "Interval between offline-device sweeps.")

	return fs
}

// Validate checks every composed options group, plus fleet-cloud's own
// direct fields.
func (o *Options) Validate() []error {
	var errs []error

	errs = append(errs, o.Http.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Database.Validate()...)
	errs = append(errs, o.Inference.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	if len(o.FleetIDs) == 0 {
		errs = append(errs, errors.New("cloud.fleet-ids must name at least one fleet"))
	}

	return errs
}
