package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*AgentOptions)(nil)

// AgentOptions configures one edge agent process: which device it is and
// how often it reports in.
type AgentOptions struct {
	FleetID  string `json:"fleet-id" mapstructure:"fleet-id"`
	DeviceID string `json:"device-id" mapstructure:"device-id"`

	HeartbeatInterval  time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`
	ShadowSyncInterval time.Duration `json:"shadow-sync-interval" mapstructure:"shadow-sync-interval"`

	LogPaths []string `json:"log-paths" mapstructure:"log-paths"`
}

// NewAgentOptions creates an AgentOptions object with default parameters.
func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		HeartbeatInterval:  30 * time.Second,
		ShadowSyncInterval: 60 * time.Second,
		LogPaths:           []string{"/var/log/syslog"},
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *AgentOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.FleetID == "" {
		errs = append(errs, fleetIDRequiredErr)
	}
	if o.DeviceID == "" {
		errs = append(errs, deviceIDRequiredErr)
	}

	return errs
}

// AddFlags adds flags for AgentOptions to the specified FlagSet.
func (o *AgentOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.FleetID, "agent.fleet-id", o.FleetID, "Fleet identifier this device belongs to.")
	fs.StringVar(&o.DeviceID, "agent.device-id", o.DeviceID, "This device's identifier within the fleet.")

	fs.DurationVar(&o.HeartbeatInterval, "agent.heartbeat-interval", o.HeartbeatInterval, "Interval between heartbeat publishes.")
	fs.DurationVar(&o.ShadowSyncInterval, "agent.shadow-sync-interval", o.ShadowSyncInterval, "Interval between shadow state reports.")

	fs.StringSliceVar(&o.LogPaths, "agent.log-paths", o.LogPaths, "Log file paths searchable by the log tools.")
}
