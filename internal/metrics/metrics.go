// Package metrics counts the outcomes of discovery, synchronization and
// broadcast streams. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
	OutcomeUnchanged = "unchanged"
)

type Metrics struct {
	accountsDiscovered prometheus.Counter
	scans              *prometheus.CounterVec
	syncs              *prometheus.CounterVec
	broadcasts         *prometheus.CounterVec
}

func New(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		accountsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_discovered",
			Help:      "Number of accounts yielded by device scans, placeholders included",
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans",
			Help:      "Number of device scans by outcome",
		}, []string{"outcome"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs",
			Help:      "Number of account synchronizations by outcome",
		}, []string{"outcome"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts",
			Help:      "Number of sign and broadcast attempts by outcome",
		}, []string{"outcome"}),
	}

	err := errors.Join(
		registerer.Register(m.accountsDiscovered),
		registerer.Register(m.scans),
		registerer.Register(m.syncs),
		registerer.Register(m.broadcasts),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) AccountDiscovered() {
	if m == nil {
		return
	}
	m.accountsDiscovered.Inc()
}

func (m *Metrics) ScanDone(outcome string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SyncDone(outcome string) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BroadcastDone(outcome string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(outcome).Inc()
}
