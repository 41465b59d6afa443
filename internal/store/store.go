package store

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/IBM/fp-go/v2/function"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/config"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/errs"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/models"
)

// Store keeps the single local artifact. After Save returns successfully the
// target directory holds exactly one file with the configured suffix.
// Two processes sharing a directory race each other; that is not guarded.
type Store struct {
	Cfg          config.Config
	Fs           afero.Fs
	Logger       *zap.SugaredLogger
	Tracer       trace.Tracer
	Meter        metric.Meter
	filesRemoved metric.Int64Counter
	bytesWritten metric.Int64Counter
}

func NewStore(
	cfg config.Config,
	fs afero.Fs,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Store, error) {
	s := &Store{
		Cfg:    cfg,
		Fs:     fs,
		Logger: logger,
		Tracer: tracer,
		Meter:  meter,
	}

	var err error
	s.filesRemoved, err = meter.Int64Counter(
		"store.files.removed",
		metric.WithDescription("Number of stale artifacts removed"),
	)
	if err != nil {
		return nil, err
	}

	s.bytesWritten, err = meter.Int64Counter(
		"store.bytes.written",
		metric.WithDescription("Bytes written to the local artifact"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) ArtifactPath() string {
	return filepath.Join(s.Cfg.Store.Directory, s.Cfg.Store.Filename)
}

// Save purges old artifacts and then writes data as the new one.
func (s *Store) Save(ctx context.Context, data []byte) IOE.IOEither[error, models.Artifact] {
	return function.Pipe1(
		s.Clean(ctx),
		IOE.Chain(func(_ []string) IOE.IOEither[error, models.Artifact] {
			return s.Write(ctx, data)
		}),
	)
}

// Clean removes every regular file in the directory whose name ends with the
// configured suffix and returns their paths. The first failure aborts with
// *errs.CleanupError; files removed before it stay removed.
func (s *Store) Clean(ctx context.Context) IOE.IOEither[error, []string] {
	dir := s.Cfg.Store.Directory
	suffix := s.Cfg.Store.Suffix
	return IOE.TryCatchError(func() ([]string, error) {
		ctx, span := s.Tracer.Start(ctx, "store.clean", trace.WithAttributes(
			attribute.String("directory", dir),
			attribute.String("suffix", suffix),
		))
		defer span.End()

		if ok, _ := afero.DirExists(s.Fs, dir); !ok {
			if err := s.Fs.MkdirAll(dir, 0o755); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, &errs.CleanupError{Path: dir, Err: err}
			}
		}
		entries, err := afero.ReadDir(s.Fs, dir)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, &errs.CleanupError{Path: dir, Err: err}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		removed := []string{}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := s.Fs.Remove(path); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				s.Logger.Errorw("Failed to remove old artifact", "path", path, "err", err)
				return removed, &errs.CleanupError{Path: path, Err: err}
			}
			s.filesRemoved.Add(ctx, 1)
			removed = append(removed, path)
		}
		span.SetAttributes(attribute.Int("removed", len(removed)))
		s.Logger.Infow("Removed old artifacts", "dir", dir, "count", len(removed), "files", removed)
		return removed, nil
	})
}

// Write stores data at the artifact path, replacing whatever was there.
func (s *Store) Write(ctx context.Context, data []byte) IOE.IOEither[error, models.Artifact] {
	path := s.ArtifactPath()
	return IOE.TryCatchError(func() (models.Artifact, error) {
		ctx, span := s.Tracer.Start(ctx, "store.write", trace.WithAttributes(
			attribute.String("path", path),
			attribute.Int("bytes", len(data)),
		))
		defer span.End()

		if err := afero.WriteFile(s.Fs, path, data, 0o644); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return models.Artifact{}, &errs.WriteError{Path: path, Err: err}
		}
		s.bytesWritten.Add(ctx, int64(len(data)))
		s.Logger.Infow("Artifact written", "path", path, "bytes", len(data))
		return models.Artifact{Path: path, Size: int64(len(data))}, nil
	})
}
