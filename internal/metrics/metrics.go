// Package metrics exports secret codec and upgrade counters in Prometheus
// format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmcleod/ironseal/secret"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Recorder implements secret.Observer and counts project upgrades.
type Recorder struct {
	encodes  *prometheus.CounterVec
	decodes  *prometheus.CounterVec
	upgraded prometheus.Counter
	upgrades *prometheus.CounterVec
}

var _ secret.Observer = (*Recorder)(nil)

// NewRecorder creates the collectors under namespace and registers them
// with reg.
func NewRecorder(reg prometheus.Registerer, namespace string) (*Recorder, error) {
	r := &Recorder{
		encodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secret_encodes_total",
			Help:      "Secrets encoded into envelopes, by status.",
		}, []string{"status"}),
		decodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secret_decodes_total",
			Help:      "Stored values read back as secrets, by the path that recovered them.",
		}, []string{"outcome"}),
		upgraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_upgraded_total",
			Help:      "Projects rewritten by an upgrade pass.",
		}),
		upgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upgrade_runs_total",
			Help:      "Upgrade passes, by status.",
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{r.encodes, r.decodes, r.upgraded, r.upgrades} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}

	// Pre-create every series so that zero counts are exported too.
	for _, s := range []string{statusSuccess, statusError} {
		r.encodes.WithLabelValues(s)
		r.upgrades.WithLabelValues(s)
	}
	for _, o := range []secret.Outcome{secret.OutcomeCurrent, secret.OutcomeLegacy, secret.OutcomePlaintext, secret.OutcomeNone} {
		r.decodes.WithLabelValues(string(o))
	}
	return r, nil
}

func (r *Recorder) ObserveEncode(err error) {
	r.encodes.WithLabelValues(status(err)).Inc()
}

func (r *Recorder) ObserveDecode(outcome secret.Outcome) {
	r.decodes.WithLabelValues(string(outcome)).Inc()
}

// ObserveUpgrade records one upgrade pass that rewrote n projects.
func (r *Recorder) ObserveUpgrade(n int, err error) {
	r.upgrades.WithLabelValues(status(err)).Inc()
	if n > 0 {
		r.upgraded.Add(float64(n))
	}
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

// WriteTextfile writes everything in g to path in the text exposition
// format, for collection by node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
