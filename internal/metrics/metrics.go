// Package metrics holds the Prometheus collectors shared by the client and
// the relay and the HTTP handler exposing them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/docstore/grpcstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/mirror"
	"github.com/dmitrijs2005/chatsync/internal/presence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatsync"

type Metrics struct {
	reg *prometheus.Registry

	SnapshotsApplied   *prometheus.CounterVec
	SnapshotSize       *prometheus.GaugeVec
	RemoteWriteErrors  *prometheus.CounterVec
	Subscribers        *prometheus.GaugeVec
	ActivityWrites     prometheus.Counter
	ActivityThrottled  prometheus.Counter
	PresenceUsers      prometheus.Gauge
	RelayRequests      *prometheus.CounterVec
	RelaySubscriptions prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		SnapshotsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshots_applied_total",
			Help: "Remote snapshots applied to a collection mirror.",
		}, []string{"collection"}),
		SnapshotSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "snapshot_size",
			Help: "Number of documents in the last applied snapshot.",
		}, []string{"collection"}),
		RemoteWriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "remote_write_failures_total",
			Help: "Store writes rejected by the remote store.",
		}, []string{"collection", "op"}),
		Subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "broadcast_subscribers",
			Help: "Current broadcaster subscribers.",
		}, []string{"collection"}),
		ActivityWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "presence_activity_writes_total",
			Help: "Activity timestamps written for the local user.",
		}),
		ActivityThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "presence_activity_throttled_total",
			Help: "Activity reports dropped by the throttle.",
		}),
		PresenceUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "presence_users",
			Help: "Users in the last reconciled presence list.",
		}),
		RelayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "relay_requests_total",
			Help: "Relay RPCs by method and outcome.",
		}, []string{"method", "code"}),
		RelaySubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "relay_subscriptions",
			Help: "Open relay snapshot streams.",
		}),
	}
	m.reg.MustRegister(
		m.SnapshotsApplied, m.SnapshotSize, m.RemoteWriteErrors, m.Subscribers,
		m.ActivityWrites, m.ActivityThrottled, m.PresenceUsers,
		m.RelayRequests, m.RelaySubscriptions,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// MirrorHooks feeds mirror events into the collectors.
func (m *Metrics) MirrorHooks() mirror.Hooks {
	return mirror.Hooks{
		SnapshotApplied: func(collection string, size int) {
			m.SnapshotsApplied.WithLabelValues(collection).Inc()
			m.SnapshotSize.WithLabelValues(collection).Set(float64(size))
		},
		RemoteWriteFailed: func(collection, op string) {
			m.RemoteWriteErrors.WithLabelValues(collection, op).Inc()
		},
		SubscribersChanged: func(collection string, n int) {
			m.Subscribers.WithLabelValues(collection).Set(float64(n))
		},
	}
}

// PresenceHooks feeds tracker events into the collectors.
func (m *Metrics) PresenceHooks() presence.Hooks {
	return presence.Hooks{
		ActivityWritten:   m.ActivityWrites.Inc,
		ActivityThrottled: m.ActivityThrottled.Inc,
		Reconciled:        func(n int) { m.PresenceUsers.Set(float64(n)) },
	}
}

func (m *Metrics) RelayHooks() grpcstore.ServerHooks {
	return grpcstore.ServerHooks{
		Request: func(method, code string) {
			m.RelayRequests.WithLabelValues(method, code).Inc()
		},
		SubscriptionsChanged: func(delta int) { m.RelaySubscriptions.Add(float64(delta)) },
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func (m *Metrics) Serve(ctx context.Context, addr string, log logging.Logger) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
