package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/analysis"
	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/geometry"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

// selection picks the regions a report covers. An empty Kind means the
// whole store as one unlabelled set; an empty Values means every region
// of Kind.
type selection struct {
	Kind   parcels.RegionKind
	Values []string
}

func newSelection(kind string, values []string) (selection, error) {
	if kind == "" {
		if len(values) > 0 {
			return selection{}, errors.New("--region needs a region type")
		}
		return selection{}, nil
	}
	k, err := parcels.ParseRegionKind(kind)
	if err != nil {
		return selection{}, err
	}
	return selection{Kind: k, Values: values}, nil
}

type subset struct {
	label   string
	parcels []parcels.Parcel
}

// header is shared by every per-region report.
type header struct {
	Label       string                   `json:"label,omitempty"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
}

type AdjacencyReport struct {
	header
	Parcels int         `json:"parcels"`
	Edges   [][2]string `json:"edges"`
}

type MergeReport struct {
	header
	Parcels []parcels.Parcel     `json:"parcels"`
	Areas   analysis.AreaSummary `json:"areas"`
}

type OwnerReport struct {
	header
	Owners []string             `json:"owners"`
	Edges  []analysis.OwnerEdge `json:"edges"`
}

type SwapsReport struct {
	header
	Swaps *analysis.SwapReport `json:"swaps"`
}

type AreasReport struct {
	header
	Areas       analysis.AreaSummary `json:"areas"`
	MergedAreas analysis.AreaSummary `json:"mergedAreas"`
}

type CheckReport struct {
	header
	Problems []geometry.Problem `json:"problems"`
}

// service runs the engines over the selected regions of a store. Regions
// run one after another here; analyze is the only report that fans out.
type service struct {
	opts   analysis.Options
	logger *zap.Logger
}

func newService(opts analysis.Options) *service {
	s := &service{opts: analysis.NewAnalyzer(opts).Options()}
	s.logger = s.opts.Logger
	return s
}

func (s *service) subsets(store *parcels.Store, sel selection) ([]subset, error) {
	if store.Len() == 0 {
		return nil, fmt.Errorf("parcel source has no rows: %w", diagnostics.ErrEmptyInput)
	}
	if sel.Kind == "" {
		return []subset{{parcels: store.List()}}, nil
	}
	values := sel.Values
	if len(values) == 0 {
		values = store.Regions(sel.Kind)
	}
	out := make([]subset, len(values))
	for i, v := range values {
		out[i] = subset{label: v, parcels: store.Filter(sel.Kind, v)}
	}
	return out, nil
}

func emptyHeader(label string, logger *zap.Logger) header {
	c := diagnostics.NewCollector("regions", logger)
	c.Report(fmt.Errorf("region %q has no parcels: %w", label, diagnostics.ErrEmptyInput))
	return header{Label: label, Diagnostics: c.Items()}
}

func each[T any](s *service, store *parcels.Store, sel selection, build func(subset) (T, error)) ([]T, error) {
	subs, err := s.subsets(store, sel)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(subs))
	for _, sub := range subs {
		r, err := build(sub)
		if err != nil {
			if sub.label != "" {
				return nil, fmt.Errorf("region %q: %w", sub.label, err)
			}
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *service) Adjacency(store *parcels.Store, sel selection) ([]AdjacencyReport, error) {
	return each(s, store, sel, func(sub subset) (AdjacencyReport, error) {
		if len(sub.parcels) == 0 {
			return AdjacencyReport{header: emptyHeader(sub.label, s.logger), Edges: [][2]string{}}, nil
		}
		g, diags := analysis.BuildAdjacency(sub.parcels, s.opts)
		return AdjacencyReport{
			header:  header{Label: sub.label, Diagnostics: nonNil(diags)},
			Parcels: len(sub.parcels),
			Edges:   g.EdgeIDs(),
		}, nil
	})
}

func (s *service) Merge(store *parcels.Store, sel selection) ([]MergeReport, error) {
	return each(s, store, sel, func(sub subset) (MergeReport, error) {
		if len(sub.parcels) == 0 {
			return MergeReport{header: emptyHeader(sub.label, s.logger), Parcels: []parcels.Parcel{}}, nil
		}
		g, diags := analysis.BuildAdjacency(sub.parcels, s.opts)
		merged, mergeDiags, err := analysis.Merge(sub.parcels, g, s.opts)
		if err != nil {
			return MergeReport{}, err
		}
		areas, _ := analysis.SummarizeArea(sub.label, merged, nil)
		return MergeReport{
			header:  header{Label: sub.label, Diagnostics: nonNil(append(diags, mergeDiags...))},
			Parcels: merged,
			Areas:   areas,
		}, nil
	})
}

func (s *service) Owners(store *parcels.Store, sel selection) ([]OwnerReport, error) {
	return each(s, store, sel, func(sub subset) (OwnerReport, error) {
		if len(sub.parcels) == 0 {
			return OwnerReport{header: emptyHeader(sub.label, s.logger), Owners: []string{}, Edges: []analysis.OwnerEdge{}}, nil
		}
		g, diags := analysis.BuildAdjacency(sub.parcels, s.opts)
		og, err := analysis.BuildOwnerGraph(sub.parcels, g)
		if err != nil {
			return OwnerReport{}, err
		}
		return OwnerReport{
			header: header{Label: sub.label, Diagnostics: nonNil(diags)},
			Owners: og.Owners,
			Edges:  og.Edges,
		}, nil
	})
}

func (s *service) Swaps(store *parcels.Store, sel selection) ([]SwapsReport, error) {
	return each(s, store, sel, func(sub subset) (SwapsReport, error) {
		if len(sub.parcels) == 0 {
			return SwapsReport{header: emptyHeader(sub.label, s.logger), Swaps: &analysis.SwapReport{}}, nil
		}
		g, diags := analysis.BuildAdjacency(sub.parcels, s.opts)
		report, err := analysis.SuggestSwaps(sub.parcels, g, s.opts)
		if err != nil {
			return SwapsReport{}, err
		}
		return SwapsReport{
			header: header{Label: sub.label, Diagnostics: nonNil(append(diags, report.Diagnostics...))},
			Swaps:  report,
		}, nil
	})
}

func (s *service) Areas(store *parcels.Store, sel selection) ([]AreasReport, error) {
	return each(s, store, sel, func(sub subset) (AreasReport, error) {
		if len(sub.parcels) == 0 {
			h := emptyHeader(sub.label, s.logger)
			return AreasReport{header: h, Areas: analysis.AreaSummary{Label: sub.label}, MergedAreas: analysis.AreaSummary{Label: sub.label}}, nil
		}
		c := diagnostics.NewCollector("areas", s.logger.Named("areas"))
		areas, err := analysis.SummarizeArea(sub.label, sub.parcels, c)
		if err != nil {
			c.Report(err)
		}

		g, diags := analysis.BuildAdjacency(sub.parcels, s.opts)
		merged, mergeDiags, err := analysis.Merge(sub.parcels, g, s.opts)
		if err != nil {
			return AreasReport{}, err
		}
		mergedAreas, _ := analysis.SummarizeArea(sub.label, merged, nil)

		all := append(diags, mergeDiags...)
		all = append(all, c.Items()...)
		return AreasReport{
			header:      header{Label: sub.label, Diagnostics: nonNil(all)},
			Areas:       areas,
			MergedAreas: mergedAreas,
		}, nil
	})
}

func (s *service) Check(store *parcels.Store, sel selection) ([]CheckReport, error) {
	return each(s, store, sel, func(sub subset) (CheckReport, error) {
		if len(sub.parcels) == 0 {
			return CheckReport{header: emptyHeader(sub.label, s.logger), Problems: []geometry.Problem{}}, nil
		}
		ids := make([]string, len(sub.parcels))
		boundaries := make([]string, len(sub.parcels))
		for i, p := range sub.parcels {
			ids[i] = p.ID
			boundaries[i] = p.Boundary
		}
		problems, err := s.opts.Adapter.CheckGeometry(ids, boundaries)
		if err != nil {
			return CheckReport{}, err
		}
		if problems == nil {
			problems = []geometry.Problem{}
		}
		return CheckReport{header: header{Label: sub.label, Diagnostics: []diagnostics.Diagnostic{}}, Problems: problems}, nil
	})
}

// Analyze runs the whole pipeline. Selected regions run concurrently.
func (s *service) Analyze(ctx context.Context, store *parcels.Store, sel selection) ([]*analysis.Result, error) {
	subs, err := s.subsets(store, sel)
	if err != nil {
		return nil, err
	}
	a := analysis.NewAnalyzer(s.opts)
	if sel.Kind == "" {
		res, err := a.Run(subs[0].parcels)
		if err != nil {
			return nil, err
		}
		return []*analysis.Result{res}, nil
	}
	return a.RunRegions(ctx, store, sel.Kind, sel.Values)
}

// runner produces one report over the selected regions of a store.
type runner func(ctx context.Context, s *service, store *parcels.Store, sel selection) (any, error)

func withoutContext[T any](run func(*service, *parcels.Store, selection) ([]T, error)) runner {
	return func(_ context.Context, s *service, store *parcels.Store, sel selection) (any, error) {
		return run(s, store, sel)
	}
}

func runAnalyze(ctx context.Context, s *service, store *parcels.Store, sel selection) (any, error) {
	return s.Analyze(ctx, store, sel)
}

// Regions lists the region values of kind, or of every kind when kind is
// empty.
func Regions(store *parcels.Store, kind parcels.RegionKind) map[parcels.RegionKind][]string {
	kinds := []parcels.RegionKind{parcels.RegionParish, parcels.RegionMunicipality, parcels.RegionIsland}
	if kind != "" {
		kinds = []parcels.RegionKind{kind}
	}
	out := make(map[parcels.RegionKind][]string, len(kinds))
	for _, k := range kinds {
		out[k] = store.Regions(k)
		if out[k] == nil {
			out[k] = []string{}
		}
	}
	return out
}

func nonNil(ds []diagnostics.Diagnostic) []diagnostics.Diagnostic {
	if ds == nil {
		return []diagnostics.Diagnostic{}
	}
	return ds
}
