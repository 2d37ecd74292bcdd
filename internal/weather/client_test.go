package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/metar-reader/internal/observability"
	"github.com/yegors/metar-reader/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, maxRetries int) (*Client, *observability.Metrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultWeatherConfig()
	config.APIBaseURL = server.URL
	config.MaxRetries = maxRetries

	metrics := observability.NewMetricsForTesting()
	return NewClient(config, metrics, logger.NewNop()), metrics
}

func TestClient_FetchMETAR_Success(t *testing.T) {
	var gotPath, gotIDs string
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIDs = r.URL.Query().Get("ids")
		w.Write([]byte("KJFK 161251Z 28008KT 10SM CLR 22/13 A3012\n"))
	}, 0)

	raw, err := client.FetchMETAR(context.Background(), "kjfk")
	require.NoError(t, err)
	assert.Equal(t, "KJFK 161251Z 28008KT 10SM CLR 22/13 A3012", raw)
	assert.Equal(t, "/metar", gotPath)
	assert.Equal(t, "KJFK", gotIDs)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("success")))
}

func TestClient_FetchMETAR_FirstLineOnly(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\n  KJFK 161251Z 28008KT 10SM CLR 22/13 A3012  \nKJFK 161151Z 28008KT 10SM CLR 21/13 A3010\n"))
	}, 0)

	raw, err := client.FetchMETAR(context.Background(), "KJFK")
	require.NoError(t, err)
	assert.Equal(t, "KJFK 161251Z 28008KT 10SM CLR 22/13 A3012", raw)
}

func TestClient_FetchMETAR_EmptyBody(t *testing.T) {
	var calls atomic.Int32
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("  \n"))
	}, 2)

	_, err := client.FetchMETAR(context.Background(), "KZZZ")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "No METAR data found for this airport code", fetchErr.Error())
	assert.Equal(t, int32(1), calls.Load(), "empty responses are not retried")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("empty")))
}

func TestClient_FetchMETAR_HTTPError(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 0)

	_, err := client.FetchMETAR(context.Background(), "KJFK")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "Error fetching METAR data: 502 Bad Gateway", fetchErr.Error())
	assert.NotNil(t, errors.Unwrap(fetchErr))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("error")))
}

func TestClient_FetchMETAR_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("KLAX 161253Z 25015G25KT 3SM +TSRA BKN008 OVC015 18/16 A2995"))
	}, 1)

	raw, err := client.FetchMETAR(context.Background(), "KLAX")
	require.NoError(t, err)
	assert.Contains(t, raw, "KLAX 161253Z")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FetchMETAR_TransportError(t *testing.T) {
	config := DefaultWeatherConfig()
	config.APIBaseURL = "http://127.0.0.1:1"
	client := NewClient(config, observability.NewMetricsForTesting(), logger.NewNop())

	_, err := client.FetchMETAR(context.Background(), "KJFK")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Error(), "Error fetching METAR data: ")
}

func TestClient_FetchMETAR_CancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("KJFK 161251Z 28008KT"))
	}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchMETAR(ctx, "KJFK")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFirstReportLine(t *testing.T) {
	assert.Equal(t, "", firstReportLine(""))
	assert.Equal(t, "", firstReportLine(" \n\t\n"))
	assert.Equal(t, "A B", firstReportLine("\r\nA B\r\nC"))
}
