package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/charset"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/config"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/errs"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/models"
)

type Loader struct {
	Cfg          config.Config
	Fs           afero.Fs
	Logger       *zap.SugaredLogger
	Tracer       trace.Tracer
	Meter        metric.Meter
	Allocator    memory.Allocator
	rowsTotal    metric.Int64Counter
	loadDuration metric.Int64Histogram
}

func NewLoader(
	cfg config.Config,
	fs afero.Fs,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Loader, error) {
	l := &Loader{
		Cfg:       cfg,
		Fs:        fs,
		Logger:    logger,
		Tracer:    tracer,
		Meter:     meter,
		Allocator: memory.NewGoAllocator(),
	}

	var err error
	l.rowsTotal, err = meter.Int64Counter(
		"dataset.rows.total",
		metric.WithDescription("Number of data rows loaded"),
	)
	if err != nil {
		return nil, err
	}

	l.loadDuration, err = meter.Int64Histogram(
		"dataset.load.duration",
		metric.WithDescription("Duration of the full-file parse"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// Load parses the whole file with desc. Short rows are padded with nulls, a
// row with more fields than the header is *errs.ParseError and a file with a
// header and no rows is *errs.EmptyDatasetError.
func (l *Loader) Load(ctx context.Context, path string, desc models.Descriptor) (*Dataset, error) {
	ctx, span := l.Tracer.Start(ctx, "dataset.load", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("encoding", desc.Encoding),
		attribute.String("delimiter", models.DelimiterName(desc.Delimiter)),
	))
	defer span.End()
	start := time.Now()

	ds, err := l.load(ctx, path, desc)
	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.Logger.Errorw("Load failed", "path", path, "err", err)
	} else {
		span.SetAttributes(
			attribute.Int("rows", ds.NumRows()),
			attribute.Int("columns", ds.NumColumns()),
		)
		l.rowsTotal.Add(ctx, int64(ds.NumRows()))
		l.Logger.Infow("Dataset loaded",
			"path", path,
			"rows", ds.NumRows(),
			"columns", ds.NumColumns())
	}
	l.loadDuration.Record(ctx, time.Since(start).Milliseconds(),
		metric.WithAttributes(attribute.String("status", status)))
	return ds, err
}

func (l *Loader) load(ctx context.Context, path string, desc models.Descriptor) (*Dataset, error) {
	f, err := l.Fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := charset.NewReader(f, desc.Encoding)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.Comma = desc.Delimiter
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &errs.EmptyDatasetError{Path: path}
	}
	if err != nil {
		return nil, toParseError(path, err)
	}
	columns := ColumnNames(header)

	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	builder := array.NewRecordBuilder(l.Allocator, arrow.NewSchema(fields, nil))
	defer builder.Release()

	for rows := 0; ; rows++ {
		if rows%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, toParseError(path, err)
		}
		if len(record) > len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, &errs.ParseError{
				Path: path,
				Line: line,
				Err:  fmt.Errorf("expected %d fields, saw %d: %w", len(columns), len(record), csv.ErrFieldCount),
			}
		}
		for i := range columns {
			sb := builder.Field(i).(*array.StringBuilder)
			if i >= len(record) || record[i] == "" {
				sb.AppendNull()
			} else {
				sb.Append(record[i])
			}
		}
	}

	rec := builder.NewRecord()
	if rec.NumRows() == 0 {
		rec.Release()
		return nil, &errs.EmptyDatasetError{Path: path}
	}
	return &Dataset{Path: path, Descriptor: desc, Columns: columns, record: rec}, nil
}

func toParseError(path string, err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &errs.ParseError{Path: path, Line: csvErr.Line, Err: csvErr.Err}
	}
	return &errs.ParseError{Path: path, Err: err}
}

// ColumnNames fills blank header cells with "Unnamed: <i>" and suffixes
// repeated names with ".1", ".2", ... in order of appearance.
func ColumnNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, name := range header {
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		candidate := name
		for n := 1; used[candidate]; n++ {
			candidate = name + "." + strconv.Itoa(n)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}
