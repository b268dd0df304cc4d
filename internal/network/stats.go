package network

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/robot.frontend/internal/dispatch"
)

// Stats receives counters from the listener, pipeline and supervisor.
type Stats interface {
	AddPacket(bytes int)
	AddDecodeError()
	AddOutcome(o dispatch.Outcome)
	AddRestart()
	AddSocketError(stage Stage)
}

// noopStats is a Stats implementation that does nothing.
// It is used as a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddPacket(int)               {}
func (noopStats) AddDecodeError()             {}
func (noopStats) AddOutcome(dispatch.Outcome) {}
func (noopStats) AddRestart()                 {}
func (noopStats) AddSocketError(Stage)        {}

func statsOrNoop(s Stats) Stats {
	if s == nil {
		return noopStats{}
	}
	return s
}

// PromStats exports listener counters as Prometheus metrics.
type PromStats struct {
	Datagrams    prometheus.Counter
	Bytes        prometheus.Counter
	DecodeErrors prometheus.Counter
	Requests     *prometheus.CounterVec
	Restarts     prometheus.Counter
	SocketErrors *prometheus.CounterVec
}

// NewPromStats creates the collectors and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPromStats(reg prometheus.Registerer) *PromStats {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromStats{
		Datagrams: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_datagrams_received_total",
			Help: "Total number of datagrams received on the control socket",
		}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_datagram_bytes_total",
			Help: "Total payload bytes received after truncation",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_decode_errors_total",
			Help: "Total number of datagrams that failed to decode",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "robot_requests_dispatched_total",
			Help: "Decoded requests by dispatch outcome",
		}, []string{"outcome"}),
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_listener_restarts_total",
			Help: "Total number of listener restart cycles after receive failures",
		}),
		SocketErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "robot_socket_errors_total",
			Help: "Socket failures by stage",
		}, []string{"stage"}),
	}
	reg.MustRegister(s.Datagrams, s.Bytes, s.DecodeErrors, s.Requests, s.Restarts, s.SocketErrors)
	return s
}

func (s *PromStats) AddPacket(bytes int) {
	s.Datagrams.Inc()
	s.Bytes.Add(float64(bytes))
}

func (s *PromStats) AddDecodeError() { s.DecodeErrors.Inc() }

func (s *PromStats) AddOutcome(o dispatch.Outcome) {
	s.Requests.WithLabelValues(o.String()).Inc()
}

func (s *PromStats) AddRestart() { s.Restarts.Inc() }

func (s *PromStats) AddSocketError(stage Stage) {
	s.SocketErrors.WithLabelValues(stage.String()).Inc()
}
