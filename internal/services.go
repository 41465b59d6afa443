package internal

import (
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/config"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/dataset"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/fetch"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/sniff"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/store"
)

type Services struct {
	Cfg     config.Config
	Logger  *zap.SugaredLogger
	Tracer  trace.Tracer
	Fetcher FetcherInterface
	Store   StoreInterface
	Sniffer SnifferInterface
	Loader  LoaderInterface
}

func InitServices(
	cfg config.Config,
	fs afero.Fs,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Services, error) {
	f, err := fetch.NewFetcher(cfg, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	st, err := store.NewStore(cfg, fs, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	sn, err := sniff.NewSniffer(cfg, fs, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	l, err := dataset.NewLoader(cfg, fs, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	return &Services{
		Cfg:     cfg,
		Logger:  logger,
		Tracer:  tracer,
		Fetcher: f,
		Store:   st,
		Sniffer: sn,
		Loader:  l,
	}, nil
}
