package internal

import (
	"context"

	"github.com/IBM/fp-go/v2/ioeither"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/dataset"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/models"
)

type FetcherInterface interface {
	Fetch(ctx context.Context) ioeither.IOEither[error, []byte]
}

type StoreInterface interface {
	ArtifactPath() string
	Save(ctx context.Context, data []byte) ioeither.IOEither[error, models.Artifact]
}

type SnifferInterface interface {
	Sniff(ctx context.Context, path string) (models.Descriptor, error)
}

type LoaderInterface interface {
	Load(ctx context.Context, path string, desc models.Descriptor) (*dataset.Dataset, error)
}
