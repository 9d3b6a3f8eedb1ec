// Package metrics defines the fleet-wide counters and histograms
// exposed on the cloud binary's /metrics endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CommandsDispatchedTotal counts every command published to a device.
	CommandsDispatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetctl_commands_dispatched_total",
			Help: "Total number of commands published to devices.",
		},
	)

	// CommandResponsesTotal counts terminal command responses by status.
	CommandResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetctl_command_responses_total",
			Help: "Total number of command responses ingested, by status.",
		},
		[]string{"status"},
	)

	// CommandLatencySeconds observes device-reported command latency.
	CommandLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetctl_command_latency_seconds",
			Help:    "Latency of command execution as reported by the device.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DeviceHeartbeatsTotal counts every ingested heartbeat.
	DeviceHeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetctl_device_heartbeats_total",
			Help: "Total number of heartbeats ingested from devices.",
		},
	)

	// DeviceStatusChangesTotal counts device lifecycle transitions.
	DeviceStatusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetctl_device_status_changes_total",
			Help: "Total number of device status transitions, by new status.",
		},
		[]string{"status"},
	)

	// TelemetryIngestedTotal counts every telemetry reading accepted.
	TelemetryIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetctl_telemetry_ingested_total",
			Help: "Total number of telemetry readings ingested, by source.",
		},
		[]string{"source"},
	)

	// AlertsRaisedTotal counts every alert ingested from a device.
	AlertsRaisedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetctl_alerts_raised_total",
			Help: "Total number of alerts ingested from devices.",
		},
	)

	// HTTPRequestsTotal counts REST requests by route and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetctl_http_requests_total",
			Help: "Total number of REST API requests, by route and status.",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		CommandsDispatchedTotal,
		CommandResponsesTotal,
		CommandLatencySeconds,
		DeviceHeartbeatsTotal,
		DeviceStatusChangesTotal,
		TelemetryIngestedTotal,
		AlertsRaisedTotal,
		HTTPRequestsTotal,
	)
}
