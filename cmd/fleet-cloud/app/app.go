// Package app wires fleet-cloud's components together: store, broker
// channel, cloud inference engine, the shared cloud.Service, one
// bridge.Bridge per configured fleet, and the REST surface. It mirrors
// the teacher's cpeer-vehicle-agent/app package: a NewApp() constructor
// and a run(opts) closure handed to pkg/app.App as its RunFunc.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	cloudapp "github.com/zeroclaw/fleetctl/cmd/fleet-cloud/app/options"
	"github.com/zeroclaw/fleetctl/internal/bridge"
	"github.com/zeroclaw/fleetctl/internal/cloud"
	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/internal/intent"
	"github.com/zeroclaw/fleetctl/internal/restapi"
	"github.com/zeroclaw/fleetctl/internal/store"
	"github.com/zeroclaw/fleetctl/pkg/app"
	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/exitcode"
	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/options"
)

const (
	commandName = "fleet-cloud"
	commandDesc = "fleet-cloud bridges vehicle fleets between the MQTT broker and the cloud's REST surface."
)

// NewApp builds the fleet-cloud cobra command.
func NewApp() *app.App {
	opts := cloudapp.NewOptions()
	return app.NewApp(commandName, commandDesc,
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *cloudapp.Options) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		logger := log.WithName("fleet-cloud")

		ctx := app.SetupSignalContext()

		st, err := newStore(ctx, opts.Database)
		if err != nil {
			return exitcode.Wrap(exitcode.ConfigError, fmt.Errorf("construct store: %w", err))
		}

		channel, err := broker.NewClient(opts.Mqtt.ToClientConfig())
		if err != nil {
			return exitcode.Wrap(exitcode.BrokerConnect, fmt.Errorf("construct broker client: %w", err))
		}
		if err := channel.Start(ctx); err != nil {
			return exitcode.Wrap(exitcode.BrokerConnect, fmt.Errorf("start broker client: %w", err))
		}
		defer channel.Disconnect(context.Background())

		bus := events.NewBus()
		cloudEngine := newCloudEngine(opts.Inference)

		svc := cloud.New(st, bus, channel, cloudEngine)
		server := restapi.New(opts.Http.Addr, svc, bus)

		sweepInterval, err := time.ParseDuration(opts.OfflineSweepInterval)
		if err != nil {
			return exitcode.Wrap(exitcode.ConfigError, fmt.Errorf("parse cloud.offline-sweep-interval: %w", err))
		}

		bridges := make([]*bridge.Bridge, 0, len(opts.FleetIDs))
		for _, fleetID := range opts.FleetIDs {
			bridges = append(bridges, bridge.New(channel, svc, fleetID))
		}

		logger.Info("starting fleet-cloud",
			"http_addr", opts.Http.Addr, "broker", opts.Mqtt.Broker, "fleets", opts.FleetIDs)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			bus.Run(gctx)
			return nil
		})
		g.Go(func() error {
			svc.RunOfflineSweep(gctx, sweepInterval)
			return nil
		})
		g.Go(func() error {
			return server.Start(gctx)
		})
		for _, b := range bridges {
			b := b
			g.Go(func() error {
				return b.Start(gctx)
			})
		}

		if err := g.Wait(); err != nil && gctx.Err() == nil {
			return exitcode.Wrap(exitcode.Irrecoverable, err)
		}
		return nil
	}
}

// newStore selects the persistence backend per opts: an empty URL keeps
// the in-memory store authoritative with no mirror, a configured URL
// adds a best-effort Postgres mirror behind DualStore.
func newStore(ctx context.Context, opts *options.DatabaseOptions) (store.Store, error) {
	mem := store.NewMemoryStore()
	if !opts.Enabled() {
		return mem, nil
	}

	pg, err := store.NewPostgresStore(ctx, opts.URL, opts.MaxOpenConns, opts.ConnMaxLifetime)
	if err != nil {
		return nil, err
	}
	return store.NewDualStore(mem, pg), nil
}

// newCloudEngine selects the cloud-side intent engine. A local-only
// deployment runs the broker bridge with no cloud-side parsing at all
// (nil is a valid Service.CloudEngine): every device still has its own
// on-device engine, so command intent parsing degrades gracefully, not
// functionally.
func newCloudEngine(opts *options.InferenceOptions) intent.Engine {
	if opts.Engine != options.InferenceEngineBedrock {
		return nil
	}
	return intent.NewCloudLLMEngine(intent.CloudLLMConfig{
		Endpoint: opts.RemoteEndpoint,
		APIKey:   opts.RemoteAPIKey,
		Model:    opts.RemoteModel,
		Timeout:  opts.Timeout,
	})
}
