package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the intake pipeline.
type PipelineMetrics struct {
	inboundTotal     *prometheus.CounterVec
	outboundTotal    *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Subsystem: "webhook",
			Name:      "inbound_total",
			Help:      "Total inbound webhook deliveries",
		}, []string{"channel", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound message sends",
		}, []string{"channel", "status"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadflow",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end intake pipeline duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.pipelineDuration)
	return m
}

func (m *PipelineMetrics) ObserveInbound(channel, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *PipelineMetrics) ObserveOutbound(channel, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *PipelineMetrics) ObservePipeline(channel, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.pipelineDuration.WithLabelValues(channel, outcome).Observe(seconds)
}
