// Package analysis implements the parcel engines: adjacency, merging of
// contiguous same-owner parcels, the owner graph, swap suggestions and
// area statistics, plus an Analyzer that runs them as one pipeline.
package analysis

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/config"
	"github.com/bsaid97/go-parcel-consolidator/geometry"
)

// DefaultSwapThreshold is the lowest potential a swap may have to be
// suggested.
const DefaultSwapThreshold = 0.75

// Options configures the engines. The zero value is usable: every unset
// field falls back to its default.
type Options struct {
	Adapter       *geometry.Adapter
	Predicate     geometry.Predicate
	Potential     Potential
	SwapThreshold float64
	// Workers bounds the adjacency workers and the concurrent region
	// runs. Zero means runtime.NumCPU.
	Workers int
	// CellSize of the spatial index. Zero derives it from the data.
	CellSize float64
	// Progress receives a spinner while pairs are evaluated. Nil is silent.
	Progress io.Writer
	Logger   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Adapter == nil {
		o.Adapter = geometry.NewAdapter()
	}
	if o.Predicate == nil {
		o.Predicate = geometry.PredicateRelated
	}
	if o.Potential == nil {
		o.Potential = PotentialRatio
	}
	if o.SwapThreshold <= 0 {
		o.SwapThreshold = DefaultSwapThreshold
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// OptionsFromConfig resolves the named predicate and potential of cfg.
func OptionsFromConfig(cfg config.AnalysisConfig, logger *zap.Logger, progress io.Writer) (Options, error) {
	predicate, err := geometry.ParsePredicate(cfg.Predicate)
	if err != nil {
		return Options{}, fmt.Errorf("analysis options: %w", err)
	}
	potential, err := ParsePotential(cfg.Potential)
	if err != nil {
		return Options{}, fmt.Errorf("analysis options: %w", err)
	}
	opts := Options{
		Adapter:       geometry.NewAdapter(),
		Predicate:     predicate,
		Potential:     potential,
		SwapThreshold: cfg.SwapThreshold,
		Workers:       cfg.Workers,
		CellSize:      cfg.CellSize,
		Logger:        logger,
	}
	if cfg.Progress {
		opts.Progress = progress
	}
	return opts, nil
}
