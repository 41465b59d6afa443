package internal

import (
	"context"
	"fmt"
	"io"

	ET "github.com/IBM/fp-go/v2/either"
	"github.com/IBM/fp-go/v2/function"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/models"
)

// Run downloads the extract, replaces the local artifact and previews it.
func (s *Services) Run(ctx context.Context, out io.Writer, rows int) error {
	ctx, span := s.Tracer.Start(ctx, "run")
	defer span.End()

	artifact, err := s.Download(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.Inspect(ctx, artifact.Path, out, rows); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Download fetches the remote extract and, only once the body is in hand,
// purges old artifacts and writes the new one.
func (s *Services) Download(ctx context.Context) (models.Artifact, error) {
	res := function.Pipe1(
		s.Fetcher.Fetch(ctx),
		IOE.Chain(func(data []byte) IOE.IOEither[error, models.Artifact] {
			return s.Store.Save(ctx, data)
		}),
	)()
	artifact, err := ET.UnwrapError(res)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("download: %w", err)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("artifact.path", artifact.Path),
		attribute.Int64("artifact.size", artifact.Size),
	)
	return artifact, nil
}

// Inspect sniffs the file format, loads the whole file and writes the first
// rows to out.
func (s *Services) Inspect(ctx context.Context, path string, out io.Writer, rows int) error {
	desc, err := s.Sniffer.Sniff(ctx, path)
	if err != nil {
		return fmt.Errorf("sniff: %w", err)
	}
	ds, err := s.Loader.Load(ctx, path, desc)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer ds.Release()

	fmt.Fprintf(out, "%s (%s)\n", path, desc)
	if err := ds.WritePreview(out, rows); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}
