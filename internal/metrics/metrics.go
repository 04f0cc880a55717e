// internal/metrics/metrics.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// MessagesRead — events persisted to the local store.
	MessagesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ehreader",
		Subsystem: "consumer",
		Name:      "messages_read_total",
		Help:      "Total number of messages persisted to the local store",
	})

	// MessagesSkipped — events rejected by the content filter.
	MessagesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ehreader",
		Subsystem: "consumer",
		Name:      "messages_skipped_total",
		Help:      "Total number of messages skipped by the content filter",
	})

	// MessagesDuplicated — events already present in the store.
	MessagesDuplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ehreader",
		Subsystem: "consumer",
		Name:      "messages_duplicated_total",
		Help:      "Total number of duplicate messages detected by key",
	})

	// ReceiveErrors — transient receive failures from the event source.
	ReceiveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ehreader",
		Subsystem: "consumer",
		Name:      "receive_errors_total",
		Help:      "Total number of receive errors from the event source",
	})

	// CheckpointSaveErrors — best-effort checkpoint writes that failed.
	CheckpointSaveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ehreader",
		Subsystem: "checkpoint",
		Name:      "save_errors_total",
		Help:      "Total number of checkpoint saves that failed",
	})

	// ActiveOperations — per-event operations currently in flight.
	ActiveOperations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ehreader",
		Subsystem: "consumer",
		Name:      "active_operations",
		Help:      "Number of per-event operations currently in flight",
	})
)

// Register registers all metrics in the given registry.
// Call with nil to use the DefaultRegisterer.
func Register(registerers ...prometheus.Registerer) {
	once.Do(func() {
		var reg prometheus.Registerer
		if len(registerers) > 0 && registerers[0] != nil {
			reg = registerers[0]
		} else {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			MessagesRead,
			MessagesSkipped,
			MessagesDuplicated,
			ReceiveErrors,
			CheckpointSaveErrors,
			ActiveOperations,
		)
	})
}
