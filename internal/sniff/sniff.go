package sniff

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
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

var errNoRows = errors.New("sample has no data rows")

// Sniffer finds the first (encoding, delimiter) pair, in configured priority
// order, under which the head of a file parses as delimited text.
type Sniffer struct {
	Cfg           config.Config
	Fs            afero.Fs
	Logger        *zap.SugaredLogger
	Tracer        trace.Tracer
	Meter         metric.Meter
	encodings     []string
	delimiters    []rune
	attemptsTotal metric.Int64Counter
	duration      metric.Int64Histogram
}

func NewSniffer(
	cfg config.Config,
	fs afero.Fs,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Sniffer, error) {
	delimiters, err := cfg.Sniff.DelimiterRunes()
	if err != nil {
		return nil, err
	}
	for _, enc := range cfg.Sniff.Encodings {
		if err := charset.Validate(enc); err != nil {
			return nil, err
		}
	}
	s := &Sniffer{
		Cfg:        cfg,
		Fs:         fs,
		Logger:     logger,
		Tracer:     tracer,
		Meter:      meter,
		encodings:  append([]string(nil), cfg.Sniff.Encodings...),
		delimiters: delimiters,
	}

	s.attemptsTotal, err = meter.Int64Counter(
		"sniff.attempts.total",
		metric.WithDescription("Number of (encoding, delimiter) probes by outcome"),
	)
	if err != nil {
		return nil, err
	}

	s.duration, err = meter.Int64Histogram(
		"sniff.duration",
		metric.WithDescription("Duration of format detection"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Sniff walks encodings in order and, for each, delimiters in order; the first
// probe that parses the sample wins. A file without a data row is
// *errs.EmptyDatasetError, a file no pair can parse is *errs.FormatDetectionError.
func (s *Sniffer) Sniff(ctx context.Context, path string) (models.Descriptor, error) {
	ctx, span := s.Tracer.Start(ctx, "sniff", trace.WithAttributes(
		attribute.String("path", path),
		attribute.StringSlice("encodings", s.encodings),
		attribute.Int("sample_rows", s.Cfg.Sniff.SampleRows),
	))
	defer span.End()
	start := time.Now()

	empty, err := s.isEmpty(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.Descriptor{}, fmt.Errorf("sniff %s: %w", path, err)
	}
	if empty {
		err := &errs.EmptyDatasetError{Path: path}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.Descriptor{}, err
	}

	attempts := 0
	for _, enc := range s.encodings {
		for _, delim := range s.delimiters {
			if err := ctx.Err(); err != nil {
				return models.Descriptor{}, err
			}
			attempts++
			res := s.probe(path, enc, delim)
			outcome := "rejected"
			if ET.IsRight(res) {
				outcome = "accepted"
			}
			s.attemptsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("encoding", enc),
				attribute.String("delimiter", models.DelimiterName(delim)),
				attribute.String("outcome", outcome),
			))

			d, err := ET.UnwrapError(res)
			if err != nil {
				s.Logger.Debugw("Format candidate rejected",
					"path", path,
					"encoding", enc,
					"delimiter", models.DelimiterName(delim),
					"err", err)
				continue
			}
			span.SetAttributes(
				attribute.String("encoding", d.Encoding),
				attribute.String("delimiter", models.DelimiterName(d.Delimiter)),
				attribute.Int("attempts", attempts),
			)
			s.duration.Record(ctx, time.Since(start).Milliseconds(),
				metric.WithAttributes(attribute.String("status", "success")))
			s.Logger.Infow("Format detected",
				"path", path,
				"encoding", d.Encoding,
				"delimiter", models.DelimiterName(d.Delimiter),
				"attempts", attempts)
			return d, nil
		}
	}

	err = &errs.FormatDetectionError{Path: path, Attempts: attempts}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.duration.Record(ctx, time.Since(start).Milliseconds(),
		metric.WithAttributes(attribute.String("status", "failed")))
	s.Logger.Errorw("Format detection failed", "path", path, "attempts", attempts)
	return models.Descriptor{}, err
}

// probe parses the header plus the first SampleRows records under one pair.
// Rows shorter than the header are accepted; longer ones reject the pair.
func (s *Sniffer) probe(path, enc string, delim rune) ET.Either[error, models.Descriptor] {
	f, err := s.Fs.Open(path)
	if err != nil {
		return ET.Left[models.Descriptor](err)
	}
	defer f.Close()

	r, err := charset.NewReader(f, enc)
	if err != nil {
		return ET.Left[models.Descriptor](err)
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ET.Left[models.Descriptor](err)
	}
	if len(header) < s.Cfg.Sniff.MinColumns {
		return ET.Left[models.Descriptor](
			fmt.Errorf("%d columns, want at least %d", len(header), s.Cfg.Sniff.MinColumns),
		)
	}
	rows := 0
	for rows < s.Cfg.Sniff.SampleRows {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ET.Left[models.Descriptor](err)
		}
		if len(record) > len(header) {
			return ET.Left[models.Descriptor](errTooManyFields(cr, len(header), len(record)))
		}
		rows++
	}
	if rows == 0 {
		return ET.Left[models.Descriptor](errNoRows)
	}
	return ET.Right[error](models.Descriptor{Delimiter: delim, Encoding: enc})
}

func errTooManyFields(cr *csv.Reader, want, got int) error {
	line, _ := cr.FieldPos(0)
	return fmt.Errorf("line %d: expected %d fields, saw %d: %w", line, want, got, csv.ErrFieldCount)
}

// isEmpty reports whether the file has fewer than two non-blank lines,
// i.e. no data row below the header.
func (s *Sniffer) isEmpty(path string) (bool, error) {
	f, err := s.Fs.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lines := 0
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		lines++
		if lines >= 2 {
			return false, nil
		}
	}
	return true, scanner.Err()
}
