package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oven"

var (
	registerOnce sync.Once

	framesRx = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_rx_total",
			Help:      "Decoded frames received, by kind.",
		},
		[]string{"side", "kind"},
	)
	framesTx = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_tx_total",
			Help:      "Frames transmitted, by kind.",
		},
		[]string{"side", "kind"},
	)
	parseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "parse_failures_total",
			Help:      "Junk or undecodable lines.",
		},
		[]string{"side"},
	)
	overflows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "assembler_overflows",
			Help:      "Lines dropped because they exceeded the receive buffer.",
		},
		[]string{"side"},
	)
	commErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "comm_errors_total",
			Help:      "Fatal-flagged communication errors seen by the host.",
		},
	)
	retries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "command_retries_total",
			Help:      "Output commands re-sent after an ack timeout.",
		},
	)
	linkSynced = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "synced",
			Help:      "1 while the PING/PONG handshake holds.",
		},
	)
	ovenMode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "mode",
			Help:      "1 for the current oven mode, 0 for the others.",
		},
		[]string{"mode"},
	)
	ovenTemp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "temperature_celsius",
			Help:      "Chamber temperature from the last STATUS.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Link sides used as the "side" label.
const (
	SideHost   = "host"
	SideClient = "client"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesRx, framesTx, parseFailures, overflows,
			commErrors, retries, linkSynced, ovenMode, ovenTemp,
			httpRequests, httpDuration)
	})
}

func RecordRx(side, kind string) {
	RegisterMetrics()
	framesRx.WithLabelValues(side, kind).Inc()
}

func RecordTx(side, kind string) {
	RegisterMetrics()
	framesTx.WithLabelValues(side, kind).Inc()
}

func RecordParseFailure(side string) {
	RegisterMetrics()
	parseFailures.WithLabelValues(side).Inc()
}

func SetOverflows(side string, n uint64) {
	RegisterMetrics()
	overflows.WithLabelValues(side).Set(float64(n))
}

func RecordCommError() {
	RegisterMetrics()
	commErrors.Inc()
}

func RecordRetry() {
	RegisterMetrics()
	retries.Inc()
}

func SetLinkSynced(synced bool) {
	RegisterMetrics()
	if synced {
		linkSynced.Set(1)
		return
	}
	linkSynced.Set(0)
}

// SetOvenMode flips the mode gauge so exactly one of modes reads 1.
func SetOvenMode(current string, modes ...string) {
	RegisterMetrics()
	for _, m := range modes {
		v := 0.0
		if m == current {
			v = 1
		}
		ovenMode.WithLabelValues(m).Set(v)
	}
}

func SetTemperature(c float64) {
	RegisterMetrics()
	ovenTemp.Set(c)
}

// RecordHTTPRequest counts one served request; path is the route pattern.
func RecordHTTPRequest(method, path string, status int, d time.Duration) {
	RegisterMetrics()
	code := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, code).Inc()
	httpDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}
