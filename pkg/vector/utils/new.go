package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/vector"
	"github.com/corpusd/corpusd/pkg/vector/chroma"
	"github.com/corpusd/corpusd/pkg/vector/exact"
	"github.com/corpusd/corpusd/pkg/vector/sqlitevec"
)

type NewIndexOpts struct {
	ProviderType string
	Target       string
	Dimensions   int
	Metric       string
	Logger       *zap.Logger
}

// NewIndex builds the vector index named by opts.
func NewIndex(o *NewIndexOpts) (vector.Index, error) {
	switch o.ProviderType {
	case "exact", "memory":
		return exact.NewIndex(exact.Config{
			Dimensions: o.Dimensions,
			Metric:     o.Metric,
		}, o.Logger)
	case "sqlite":
		return sqlitevec.NewIndex(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
			Metric:     o.Metric,
		}, o.Logger)
	case "chroma":
		return chroma.NewIndex(chroma.Config{
			URL:        o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
