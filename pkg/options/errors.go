package options

import (
	"errors"
	"fmt"
)

var (
	fleetIDRequiredErr  = errors.New("agent.fleet-id is required")
	deviceIDRequiredErr = errors.New("agent.device-id is required")
)

func errInvalidInferenceEngine(engine string) error {
	return fmt.Errorf("invalid inference engine %q: must be %q or %q", engine, InferenceEngineLocal, InferenceEngineBedrock)
}
