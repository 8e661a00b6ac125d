package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "osakana"

// Recorder holds the engine's collectors. A nil *Recorder is valid and records
// nothing, so core packages can be used without a registry.
type Recorder struct {
	registry *prometheus.Registry

	answers        *prometheus.CounterVec
	roundResets    prometheus.Counter
	published      *prometheus.CounterVec
	dropped        prometheus.Counter
	subscribers    prometheus.Gauge
	persistFailure prometheus.Counter
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Judged answers by result.",
		}, []string{"result"}),
		roundResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_resets_total",
			Help:      "Rounds reshuffled after the clock expired.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events handed to the broadcaster by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Buffered events discarded for slow subscribers.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Currently attached event subscribers.",
		}),
		persistFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_persist_failures_total",
			Help:      "Ranking saves that failed.",
		}),
	}
	reg.MustRegister(r.answers, r.roundResets, r.published, r.dropped, r.subscribers, r.persistFailure)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) AnswerJudged(correct bool) {
	if r == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	r.answers.WithLabelValues(result).Inc()
}

func (r *Recorder) RoundReset() {
	if r == nil {
		return
	}
	r.roundResets.Inc()
}

func (r *Recorder) EventPublished(kind string) {
	if r == nil {
		return
	}
	r.published.WithLabelValues(kind).Inc()
}

func (r *Recorder) EventDropped() {
	if r == nil {
		return
	}
	r.dropped.Inc()
}

func (r *Recorder) SetSubscribers(n int) {
	if r == nil {
		return
	}
	r.subscribers.Set(float64(n))
}

func (r *Recorder) RankingPersistFailed() {
	if r == nil {
		return
	}
	r.persistFailure.Inc()
}
