// Package options defines the flag surface for the fleet-agent binary.
package options

import (
	"github.com/spf13/pflag"

	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/options"
)

// Options is the top-level configuration for fleet-agent.
type Options struct {
	Agent     *options.AgentOptions     `json:"agent" mapstructure:"agent"`
	Mqtt      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	Inference *options.InferenceOptions `json:"inference" mapstructure:"inference"`
	Log       *log.Options              `json:"log" mapstructure:"log"`

	// HardwareType and AgentVersion are reported in every heartbeat and
	// shadow update; they identify the device's platform and the
	// running binary's build, not its identity (that's Agent.DeviceID).
	HardwareType string `json:"hardware-type" mapstructure:"hardware-type"`
	AgentVersion string `json:"agent-version" mapstructure:"agent-version"`
}

// NewOptions creates an Options object with default parameters.
func NewOptions() *Options {
	return &Options{
		Agent:        options.NewAgentOptions(),
		Mqtt:         options.NewMqttOptions(),
		Inference:    options.NewInferenceOptions(),
		Log:          log.NewOptions(),
		HardwareType: "raspberry_pi4",
		AgentVersion: "dev",
	}
}

// Flags returns the full flag set for fleet-agent.
func (o *Options) Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("fleet-agent", pflag.ExitOnError)

	o.Agent.AddFlags(fs)
	o.Mqtt.AddFlags(fs)
	o.Inference.AddFlags(fs)
	o.Log.AddFlags(fs)

	fs.StringVar(&o.HardwareType, "agent.hardware-type", o.HardwareType, "Hardware platform reported in heartbeats and shadow updates.")
	fs.StringVar(&o.AgentVersion, "agent.version", o.AgentVersion, "Agent build version reported in heartbeats.")

	return fs
}

// Validate checks every composed options group.
func (o *Options) Validate() []error {
	var errs []error

	errs = append(errs, o.Agent.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Inference.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	return errs
}
