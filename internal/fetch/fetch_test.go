package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/config"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/errs"
)

const extract = "CNPJ_FUNDO;DENOM_SOCIAL\n00.017.024/0001-53;FUNDO A\n"

func newTestFetcher(t *testing.T, url string) *Fetcher {
	t.Helper()
	cfg := config.Default()
	cfg.Source.URL = url
	cfg.Source.Timeout = 2 * time.Second
	cfg.Source.Progress = false
	f, err := NewFetcher(
		cfg,
		tracenoop.NewTracerProvider().Tracer("test"),
		zap.NewNop().Sugar(),
		metricnoop.NewMeterProvider().Meter("test"),
	)
	require.NoError(t, err)
	return f
}

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(extract))
	}))
	defer srv.Close()

	body, err := ET.UnwrapError(newTestFetcher(t, srv.URL).Fetch(context.Background())())
	require.NoError(t, err)
	assert.Equal(t, extract, string(body))
}

func TestFetchWithProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(extract))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL)
	f.Cfg.Source.Progress = true
	var progress bytes.Buffer
	f.ProgressOut = &progress

	body, err := ET.UnwrapError(f.Fetch(context.Background())())
	require.NoError(t, err)
	assert.Equal(t, extract, string(body))
	assert.NotEmpty(t, progress.String())
}

func TestFetchBadStatus(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusNoContent} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := ET.UnwrapError(newTestFetcher(t, srv.URL).Fetch(context.Background())())
		srv.Close()

		var statusErr *errs.RemoteStatusError
		require.True(t, errors.As(err, &statusErr), "status %d", code)
		assert.Equal(t, code, statusErr.StatusCode)
		assert.Equal(t, errs.ExitRemoteStatus, errs.ExitCode(err))
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := ET.UnwrapError(newTestFetcher(t, url).Fetch(context.Background())())
	var netErr *errs.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, url, netErr.URL)
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(extract))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ET.UnwrapError(newTestFetcher(t, srv.URL).Fetch(ctx)())
	var netErr *errs.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(extract))
	}))
	defer srv.Close()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	f := newTestFetcher(t, srv.URL)
	f2, err := NewFetcher(f.Cfg, f.Tracer, f.Logger, mp.Meter("test"))
	require.NoError(t, err)

	_, err = ET.UnwrapError(f2.Fetch(context.Background())())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(len(extract)), got["fetch.bytes.total"])
	assert.Equal(t, int64(1), got["fetch.requests.total"])
}
