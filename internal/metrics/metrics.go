package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "watchparty"

const (
	ResultOK    = "ok"
	ResultError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	wsConnections    prometheus.Gauge
	eventsTotal      *prometheus.CounterVec
	syncBroadcasts   prometheus.Counter
	chatMessages     prometheus.Counter
	signalingRelays  *prometheus.CounterVec
	roomsExpired     prometheus.Counter
	requestDurations *prometheus.HistogramVec
}

// New registers every collector on a fresh registry so that several
// instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		wsConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Number of open websocket connections",
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_events_total",
			Help:      "Client events handled, by type and result",
		}, []string{"type", "result"}),

		syncBroadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_broadcasts_total",
			Help:      "Player state updates fanned out to a room",
		}),

		chatMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages accepted",
		}),

		signalingRelays: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signaling_relays_total",
			Help:      "WebRTC signaling messages relayed, by kind",
		}, []string{"kind"}),

		roomsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_expired_total",
			Help:      "Rooms closed by the expiry sweep",
		}),

		requestDurations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "REST request latency",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ConnectionOpened() {
	m.wsConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.wsConnections.Dec()
}

func (m *Metrics) RecordEvent(eventType string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.eventsTotal.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) RecordSyncBroadcast() {
	m.syncBroadcasts.Inc()
}

func (m *Metrics) RecordChatMessage() {
	m.chatMessages.Inc()
}

func (m *Metrics) RecordSignalingRelay(kind string) {
	m.signalingRelays.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRoomsExpired(n int) {
	m.roomsExpired.Add(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestDurations.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
