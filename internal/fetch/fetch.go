package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
	"github.com/IBM/fp-go/v2/function"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/config"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/errs"
	T "github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/typing"
)

type Fetcher struct {
	Cfg    config.Config
	Logger *zap.SugaredLogger
	Tracer trace.Tracer
	Meter  metric.Meter
	// ProgressOut receives the download progress bar when Cfg.Source.Progress is set.
	ProgressOut   io.Writer
	client        *http.Client
	requestsTotal metric.Int64Counter
	bytesTotal    metric.Int64Counter
	duration      metric.Int64Histogram
}

type session struct {
	ctx   context.Context
	span  trace.Span
	start time.Time
}

func NewFetcher(
	cfg config.Config,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Fetcher, error) {
	f := &Fetcher{
		Cfg:         cfg,
		Logger:      logger,
		Tracer:      tracer,
		Meter:       meter,
		ProgressOut: os.Stderr,
		client:      &http.Client{Timeout: cfg.Source.Timeout},
	}

	var err error
	f.requestsTotal, err = meter.Int64Counter(
		"fetch.requests.total",
		metric.WithDescription("Number of fetch attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	f.bytesTotal, err = meter.Int64Counter(
		"fetch.bytes.total",
		metric.WithDescription("Total bytes downloaded"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	f.duration, err = meter.Int64Histogram(
		"fetch.duration",
		metric.WithDescription("Duration of the remote fetch"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Fetch issues one GET against the configured source and yields the whole body.
// Transport failures are *errs.NetworkError, any status but 200 is
// *errs.RemoteStatusError. Nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context) IOE.IOEither[error, []byte] {
	return IOE.Bracket(
		IOE.FromIO[error](func() *session { return f.begin(ctx) }),
		func(s *session) IOE.IOEither[error, []byte] {
			return IOE.Bracket(f.get(s), f.readBody(s), closeBody)
		},
		f.end,
	)
}

func (f *Fetcher) begin(ctx context.Context) *session {
	ctx, span := f.Tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("url", f.Cfg.Source.URL),
		attribute.String("timeout", f.Cfg.Source.Timeout.String()),
	))
	f.Logger.Infow("Fetching remote extract", "url", f.Cfg.Source.URL)
	return &session{ctx: ctx, span: span, start: time.Now()}
}

func (f *Fetcher) get(s *session) IOE.IOEither[error, *http.Response] {
	url := f.Cfg.Source.URL
	return IOE.TryCatchError(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &errs.NetworkError{URL: url, Err: err}
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, &errs.NetworkError{URL: url, Err: err}
		}
		s.span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return resp, nil
	})
}

func (f *Fetcher) readBody(s *session) func(*http.Response) IOE.IOEither[error, []byte] {
	url := f.Cfg.Source.URL
	return func(resp *http.Response) IOE.IOEither[error, []byte] {
		if resp.StatusCode != http.StatusOK {
			var err error = &errs.RemoteStatusError{URL: url, StatusCode: resp.StatusCode}
			return IOE.Left[[]byte](err)
		}
		return IOE.TryCatchError(func() ([]byte, error) {
			var buf bytes.Buffer
			if resp.ContentLength > 0 {
				buf.Grow(int(resp.ContentLength))
			}
			var writer io.Writer = &buf
			bar := f.newProgress(resp.ContentLength)
			if bar != nil {
				writer = io.MultiWriter(&buf, bar)
			}
			n, err := io.Copy(writer, resp.Body)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return nil, &errs.NetworkError{URL: url, Err: err}
			}
			s.span.AddEvent("body_read", trace.WithAttributes(attribute.Int64("bytes", n)))
			return buf.Bytes(), nil
		})
	}
}

func closeBody(resp *http.Response, _ ET.Either[error, []byte]) IOE.IOEither[error, any] {
	return IOE.TryCatchError(func() (any, error) { return nil, resp.Body.Close() })
}

func (f *Fetcher) end(s *session, res ET.Either[error, []byte]) IOE.IOEither[error, T.Unit] {
	defer s.span.End()
	durationMs := time.Since(s.start).Milliseconds()
	status := function.Pipe1(
		res,
		ET.Fold(
			func(err error) string {
				s.span.RecordError(err)
				s.span.SetStatus(codes.Error, err.Error())
				f.Logger.Errorw("Fetch failed", "url", f.Cfg.Source.URL, "err", err)
				return "failed"
			},
			func(body []byte) string {
				f.bytesTotal.Add(s.ctx, int64(len(body)))
				f.Logger.Infow("Fetch completed",
					"url", f.Cfg.Source.URL,
					"bytes", len(body),
					"duration_ms", durationMs)
				return "success"
			},
		),
	)
	attrs := metric.WithAttributes(attribute.String("status", status))
	f.requestsTotal.Add(s.ctx, 1, attrs)
	f.duration.Record(s.ctx, durationMs, attrs)
	return IOE.Of[error](T.Unit{})
}

func (f *Fetcher) newProgress(size int64) *progressbar.ProgressBar {
	if !f.Cfg.Source.Progress || f.ProgressOut == nil {
		return nil
	}
	return progressbar.NewOptions64(
		size,
		progressbar.OptionSetWriter(f.ProgressOut),
		progressbar.OptionSetWidth(60),
		progressbar.OptionSetDescription("Downloading extract..."),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(50*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(f.ProgressOut, "\n") }),
	)
}
