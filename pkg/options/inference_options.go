package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*InferenceOptions)(nil)

// Inference engine selectors for the cloud bridge.
const (
	InferenceEngineLocal   = "local"
	InferenceEngineBedrock = "bedrock"
)

// InferenceOptions configures the cloud-side intent inference engine used
// when a device forwards natural language with no embedded parsed intent.
type InferenceOptions struct {
	Engine string `json:"engine" mapstructure:"engine"`

	// RemoteEndpoint, RemoteModel and RemoteAPIKey configure the bedrock
	// engine's HTTP call to the remote text model.
	RemoteEndpoint string        `json:"remote-endpoint" mapstructure:"remote-endpoint"`
	RemoteModel    string        `json:"remote-model" mapstructure:"remote-model"`
	RemoteAPIKey   string        `json:"remote-api-key" mapstructure:"remote-api-key"`
	Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`

	// LocalHost, LocalModel configure the on-device/co-resident engine
	// used by the agent regardless of the cloud engine choice.
	LocalHost    string        `json:"local-host" mapstructure:"local-host"`
	LocalModel   string        `json:"local-model" mapstructure:"local-model"`
	LocalTimeout time.Duration `json:"local-timeout" mapstructure:"local-timeout"`
	LocalEnabled bool          `json:"local-enabled" mapstructure:"local-enabled"`
}

// NewInferenceOptions creates an InferenceOptions object with default parameters.
func NewInferenceOptions() *InferenceOptions {
	return &InferenceOptions{
		Engine:       InferenceEngineLocal,
		Timeout:      15 * time.Second,
		LocalHost:    "http://localhost:11434",
		LocalModel:   "llama3.1",
		LocalTimeout: 15 * time.Second,
		LocalEnabled: true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *InferenceOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.Engine != InferenceEngineLocal && o.Engine != InferenceEngineBedrock {
		errs = append(errs, errInvalidInferenceEngine(o.Engine))
	}

	return errs
}

// AddFlags adds flags for InferenceOptions to the specified FlagSet.
func (o *InferenceOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Engine, "inference.engine", o.Engine, "Cloud inference engine: local or bedrock.")
	fs.StringVar(&o.RemoteEndpoint, "inference.remote-endpoint", o.RemoteEndpoint, "HTTP endpoint of the remote text model.")
	fs.StringVar(&o.RemoteModel, "inference.remote-model", o.RemoteModel, "Remote model identifier.")
	fs.StringVar(&o.RemoteAPIKey, "inference.remote-api-key", o.RemoteAPIKey, "API key for the remote model.")
	fs.DurationVar(&o.Timeout, "inference.timeout", o.Timeout, "Timeout for a remote inference call.")

	fs.StringVar(&o.LocalHost, "inference.local-host", o.LocalHost, "Base URL of the co-resident local inference server.")
	fs.StringVar(&o.LocalModel, "inference.local-model", o.LocalModel, "Local model identifier.")
	fs.DurationVar(&o.LocalTimeout, "inference.local-timeout", o.LocalTimeout, "Timeout for a local inference call.")
	fs.BoolVar(&o.LocalEnabled, "inference.local-enabled", o.LocalEnabled, "Whether the local inference engine is available on this agent.")
}
