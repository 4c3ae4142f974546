package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an Observer backed by Prometheus counters/gauges, so a
// Controller's lifecycle events are visible on a /metrics endpoint
// alongside application logs. Register it once per process; multiple
// Controllers sharing one Metrics simply add to the same series.
type Metrics struct {
	framesSent    prometheus.Counter
	framesLost    prometheus.Counter
	framesBad     prometheus.Counter
	fatalSessions prometheus.Counter
	exitCode      prometheus.Gauge
}

// NewMetrics constructs and registers the Controller's series on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqlink",
			Name:      "frames_sent_total",
			Help:      "Data frames written to the transport, including resends.",
		}),
		framesLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqlink",
			Name:      "frames_lost_total",
			Help:      "Reply timeouts and NAKs that triggered a resend.",
		}),
		framesBad: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqlink",
			Name:      "frames_bad_crc_total",
			Help:      "Inbound data frames that failed their CRC check.",
		}),
		fatalSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqlink",
			Name:      "sessions_fatal_total",
			Help:      "Sessions that ended after exhausting the reply-timeout ceiling.",
		}),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arqlink",
			Name:      "last_exit_code",
			Help:      "Exit code of the most recently completed session.",
		}),
	}
	reg.MustRegister(m.framesSent, m.framesLost, m.framesBad, m.fatalSessions, m.exitCode)
	return m
}

func (m *Metrics) Sent()        { m.framesSent.Inc() }
func (m *Metrics) Received()    {}
func (m *Metrics) ReceivedBad() { m.framesBad.Inc() }
func (m *Metrics) Lost()        { m.framesLost.Inc() }

func (m *Metrics) Fatal(code int) {
	m.exitCode.Set(float64(code))
	if code == ExitFatal {
		m.fatalSessions.Inc()
	}
}
