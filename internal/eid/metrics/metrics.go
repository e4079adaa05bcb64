package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the eID session controller.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AttemptsStarted    prometheus.Counter
	MessagesDecoded    *prometheus.CounterVec
	DecodeFailures     prometheus.Counter
	ProtocolViolations *prometheus.CounterVec
	CommandsSent       *prometheus.CounterVec
	ChannelFailures    *prometheus.CounterVec
	StatesEmitted      *prometheus.CounterVec
	StatesCoalesced    prometheus.Counter
}

// New registers the controller metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AttemptsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "eidgate_identification_attempts_total",
			Help: "Total identification attempts that bound the engine channel",
		}),
		MessagesDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eidgate_messages_decoded_total",
			Help: "Inbound engine messages by decoded kind",
		}, []string{"kind"}),
		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "eidgate_message_decode_failures_total",
			Help: "Inbound engine payloads that could not be decoded",
		}),
		ProtocolViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eidgate_protocol_violations_total",
			Help: "Out-of-sequence messages or actions ignored by the controller",
		}, []string{"reason"}),
		CommandsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eidgate_commands_sent_total",
			Help: "Commands handed to the engine channel by name",
		}, []string{"command"}),
		ChannelFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eidgate_channel_failures_total",
			Help: "Engine channel failures by operation (bind, send, unbind, disconnect)",
		}, []string{"op"}),
		StatesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eidgate_states_emitted_total",
			Help: "Session states delivered to subscribers after coalescing",
		}, []string{"state"}),
		StatesCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Name: "eidgate_states_coalesced_total",
			Help: "Transient session states superseded within the debounce window",
		}),
	}
}

func (m *Metrics) IncAttemptsStarted() {
	if m != nil {
		m.AttemptsStarted.Inc()
	}
}

func (m *Metrics) IncMessageDecoded(kind string) {
	if m != nil {
		m.MessagesDecoded.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncDecodeFailure() {
	if m != nil {
		m.DecodeFailures.Inc()
	}
}

func (m *Metrics) IncProtocolViolation(reason string) {
	if m != nil {
		m.ProtocolViolations.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncCommandSent(command string) {
	if m != nil {
		m.CommandsSent.WithLabelValues(command).Inc()
	}
}

func (m *Metrics) IncChannelFailure(op string) {
	if m != nil {
		m.ChannelFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncStateEmitted(state string) {
	if m != nil {
		m.StatesEmitted.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) IncStateCoalesced() {
	if m != nil {
		m.StatesCoalesced.Inc()
	}
}
