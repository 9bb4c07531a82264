package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMirrorHooks(t *testing.T) {
	m := New()
	h := m.MirrorHooks()

	h.SnapshotApplied("users", 3)
	h.SnapshotApplied("users", 5)
	h.RemoteWriteFailed("channels", "replace")
	h.SubscribersChanged("users", 2)

	require.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotsApplied.WithLabelValues("users")))
	require.Equal(t, 5.0, testutil.ToFloat64(m.SnapshotSize.WithLabelValues("users")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RemoteWriteErrors.WithLabelValues("channels", "replace")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Subscribers.WithLabelValues("users")))
}

func TestPresenceHooks(t *testing.T) {
	m := New()
	h := m.PresenceHooks()

	h.ActivityWritten()
	h.ActivityThrottled()
	h.ActivityThrottled()
	h.Reconciled(7)

	require.Equal(t, 1.0, testutil.ToFloat64(m.ActivityWrites))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ActivityThrottled))
	require.Equal(t, 7.0, testutil.ToFloat64(m.PresenceUsers))
}

func TestRelayHooks(t *testing.T) {
	m := New()
	h := m.RelayHooks()

	h.Request("/chatsync.docstore.DocumentStore/Create", "OK")
	h.Request("/chatsync.docstore.DocumentStore/Create", "OK")
	h.SubscriptionsChanged(1)
	h.SubscriptionsChanged(1)
	h.SubscriptionsChanged(-1)

	require.Equal(t, 2.0, testutil.ToFloat64(m.RelayRequests.WithLabelValues("/chatsync.docstore.DocumentStore/Create", "OK")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RelaySubscriptions))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ActivityWrites.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "chatsync_presence_activity_writes_total 1"))
}
