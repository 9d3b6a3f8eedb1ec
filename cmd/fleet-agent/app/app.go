// Package app wires fleet-agent's components together: the tool
// registry, the local inference engine, the executor and the Agent
// runtime. It mirrors the teacher's cpeer-edge-agent/app package.
package app

import (
	"context"
	"fmt"

	agentapp "github.com/zeroclaw/fleetctl/cmd/fleet-agent/app/options"
	"github.com/zeroclaw/fleetctl/internal/agent"
	"github.com/zeroclaw/fleetctl/internal/executor"
	"github.com/zeroclaw/fleetctl/internal/intent"
	"github.com/zeroclaw/fleetctl/internal/tools"
	pkgapp "github.com/zeroclaw/fleetctl/pkg/app"
	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/exitcode"
	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

const (
	commandName = "fleet-agent"
	commandDesc = "fleet-agent runs the edge side of the fleet command-and-control platform on one device."
)

// NewApp builds the fleet-agent cobra command.
func NewApp() *pkgapp.App {
	opts := agentapp.NewOptions()
	return pkgapp.NewApp(commandName, commandDesc,
		pkgapp.WithDescription(commandDesc),
		pkgapp.WithOptions(opts),
		pkgapp.WithDefaultValidArgs(),
		pkgapp.WithRunFunc(run(opts)),
	)
}

func run(opts *agentapp.Options) pkgapp.RunFunc {
	return func() error {
		log.Init(opts.Log)
		logger := log.WithName("fleet-agent").WithValues("device_id", opts.Agent.DeviceID)

		ctx := pkgapp.SetupSignalContext()

		channel, err := broker.NewClient(opts.Mqtt.ToClientConfig())
		if err != nil {
			return exitcode.Wrap(exitcode.BrokerConnect, fmt.Errorf("construct broker client: %w", err))
		}
		if err := channel.Start(ctx); err != nil {
			return exitcode.Wrap(exitcode.BrokerConnect, fmt.Errorf("start broker client: %w", err))
		}
		defer channel.Disconnect(context.Background())

		can := tools.NewMockCanBackend()
		registry := tools.NewRegistry(can, tools.NewMockLogBackend())

		var localEngine intent.Engine
		if opts.Inference.LocalEnabled {
			localEngine = intent.NewLocalLLMEngine(intent.LocalLLMConfig{
				Host:    opts.Inference.LocalHost,
				Model:   opts.Inference.LocalModel,
				Timeout: opts.Inference.LocalTimeout,
				Enabled: opts.Inference.LocalEnabled,
			})
		}

		exec := executor.New(registry, localEngine)

		a := agent.New(agent.Config{
			FleetID:            opts.Agent.FleetID,
			DeviceID:           opts.Agent.DeviceID,
			HardwareType:       protocol.HardwareType(opts.HardwareType),
			AgentVersion:       opts.AgentVersion,
			HeartbeatInterval:  opts.Agent.HeartbeatInterval,
			ShadowSyncInterval: opts.Agent.ShadowSyncInterval,
		}, channel, exec, agent.NewCanShadowSource(can))

		logger.Info("starting fleet-agent", "broker", opts.Mqtt.Broker, "fleet_id", opts.Agent.FleetID)
		if err := a.Run(ctx); err != nil && ctx.Err() == nil {
			return exitcode.Wrap(exitcode.Irrecoverable, err)
		}
		return nil
	}
}
