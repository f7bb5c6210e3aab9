package analysis

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/geometry"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

// Result is the outcome of one pipeline run over a parcel set.
type Result struct {
	RunID       string                   `json:"runId"`
	Label       string                   `json:"label,omitempty"`
	Parcels     int                      `json:"parcels"`
	Edges       [][2]string              `json:"edges"`
	Merged      []parcels.Parcel         `json:"merged"`
	OwnerGraph  *OwnerGraph              `json:"ownerGraph"`
	Swaps       *SwapReport              `json:"swaps"`
	Areas       AreaSummary              `json:"areas"`
	MergedAreas AreaSummary              `json:"mergedAreas"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`

	Graph *Graph `json:"-"`
}

type Analyzer struct {
	opts Options
}

func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts.withDefaults()}
}

func (a *Analyzer) Options() Options { return a.opts }

// Run executes adjacency, merge, owner graph, swap suggestions and area
// summaries over ps. Only an empty parcel set or an inconsistent pipeline
// state fails the run; everything else ends up in Result.Diagnostics.
func (a *Analyzer) Run(ps []parcels.Parcel) (*Result, error) {
	return a.run("", ps, a.opts)
}

func (a *Analyzer) run(label string, ps []parcels.Parcel, opts Options) (*Result, error) {
	if len(ps) == 0 {
		return nil, fmt.Errorf("analyze %q: no parcels: %w", label, diagnostics.ErrEmptyInput)
	}

	runID := uuid.NewString()
	opts.Logger = opts.Logger.With(zap.String("run", runID))
	if label != "" {
		opts.Logger = opts.Logger.With(zap.String("region", label))
	}

	res := &Result{RunID: runID, Label: label, Parcels: len(ps), Diagnostics: []diagnostics.Diagnostic{}}

	graph, adjDiags := BuildAdjacency(ps, opts)
	res.Graph = graph
	res.Edges = graph.EdgeIDs()

	merged, mergeDiags, err := Merge(ps, graph, opts)
	if err != nil {
		return nil, err
	}
	res.Merged = merged

	res.OwnerGraph, err = BuildOwnerGraph(ps, graph)
	if err != nil {
		return nil, err
	}

	res.Swaps, err = SuggestSwaps(ps, graph, opts)
	if err != nil {
		return nil, err
	}

	areas := diagnostics.NewCollector("areas", opts.Logger.Named("areas"))
	res.Areas, err = SummarizeArea(label, ps, areas)
	if err != nil {
		areas.Report(err)
	}
	// numeric problems were reported on the raw parcels already
	res.MergedAreas, _ = SummarizeArea(label, merged, nil)

	res.Diagnostics = append(res.Diagnostics, adjDiags...)
	res.Diagnostics = append(res.Diagnostics, mergeDiags...)
	res.Diagnostics = append(res.Diagnostics, res.Swaps.Diagnostics...)
	res.Diagnostics = append(res.Diagnostics, areas.Items()...)

	opts.Logger.Info("analysis completed",
		zap.Int("parcels", len(ps)),
		zap.Int("edges", len(res.Edges)),
		zap.Int("merged", len(merged)),
		zap.Int("owners", len(res.OwnerGraph.Owners)),
		zap.Int("suggestions", len(res.Swaps.Suggestions)),
		zap.Int("diagnostics", len(res.Diagnostics)))
	return res, nil
}

// RunRegions analyzes each region of the given kind independently, at most
// Options.Workers at a time. An empty values slice means every region in
// the store. Results follow the order of values; a region without parcels
// yields a result holding an empty_input diagnostic. Once ctx is done no
// further region is started.
func (a *Analyzer) RunRegions(ctx context.Context, store *parcels.Store, kind parcels.RegionKind, values []string) ([]*Result, error) {
	if len(values) == 0 {
		values = store.Regions(kind)
	}

	limit := a.opts.Workers
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]*Result, len(values))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, value := range values {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			ps := store.Filter(kind, value)
			if len(ps) == 0 {
				results[i] = a.emptyRegion(value)
				return nil
			}

			// each region parses into its own GEOS context so regions do
			// not serialize on one another
			opts := a.opts
			opts.Adapter = geometry.NewAdapter()
			res, err := a.run(value, ps, opts)
			if err != nil {
				return fmt.Errorf("region %s %q: %w", kind, value, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (a *Analyzer) emptyRegion(value string) *Result {
	c := diagnostics.NewCollector("regions", a.opts.Logger)
	c.Report(fmt.Errorf("region %q has no parcels: %w", value, diagnostics.ErrEmptyInput))
	return &Result{
		RunID:       uuid.NewString(),
		Label:       value,
		Edges:       [][2]string{},
		Merged:      []parcels.Parcel{},
		Areas:       AreaSummary{Label: value},
		MergedAreas: AreaSummary{Label: value},
		Diagnostics: c.Items(),
	}
}
