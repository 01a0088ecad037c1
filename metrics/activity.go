package metrics

import (
	"context"
	"errors"

	"github.com/goliatone/go-tracker-auth"
	"github.com/prometheus/client_golang/prometheus"
)

const unknownLabel = "unknown"

// ActivityCollector is an auth.ActivitySink that counts activity events
type ActivityCollector struct {
	events  *prometheus.CounterVec
	denials *prometheus.CounterVec
	refresh *prometheus.CounterVec
}

var _ auth.ActivitySink = (*ActivityCollector)(nil)

// NewActivityCollector registers the activity counters with reg. Collectors
// already registered under the same names are reused.
func NewActivityCollector(reg prometheus.Registerer, namespace string) (*ActivityCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Total auth and membership activity events by type",
		},
		[]string{"event"},
	)
	denials := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_denials_total",
			Help:      "Total permission denials by operation",
		},
		[]string{"operation"},
	)
	refresh := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_rejections_total",
			Help:      "Total rejected refresh attempts by reason",
		},
		[]string{"reason"},
	)

	var err error
	if events, err = register(reg, events); err != nil {
		return nil, err
	}
	if denials, err = register(reg, denials); err != nil {
		return nil, err
	}
	if refresh, err = register(reg, refresh); err != nil {
		return nil, err
	}

	return &ActivityCollector{events: events, denials: denials, refresh: refresh}, nil
}

// Record implements auth.ActivitySink
func (c *ActivityCollector) Record(_ context.Context, event auth.ActivityEvent) error {
	c.events.WithLabelValues(label(string(event.EventType))).Inc()

	switch event.EventType {
	case auth.ActivityEventPermissionDenied:
		c.denials.WithLabelValues(metadataLabel(event.Metadata, "operation")).Inc()
	case auth.ActivityEventRefreshRejected:
		c.refresh.WithLabelValues(metadataLabel(event.Metadata, "reason")).Inc()
	}
	return nil
}

func register(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

func metadataLabel(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return label(v)
	}
	return unknownLabel
}

func label(v string) string {
	if v == "" {
		return unknownLabel
	}
	return v
}
