// Package diagnostics holds the error kinds produced while analysing a
// parcel batch and the structured records that replace ad-hoc printing.
// Engines never abort a batch because of one parcel or one pair; they
// record a Diagnostic and carry on.
package diagnostics

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrGeometryParse     = errors.New("geometry parse error")
	ErrGeometryOperation = errors.New("geometry operation error")
	ErrNumericParse      = errors.New("numeric parse error")
	ErrEmptyInput        = errors.New("empty input")
)

type Kind string

const (
	KindGeometryParse     Kind = "geometry_parse"
	KindGeometryOperation Kind = "geometry_operation"
	KindNumericParse      Kind = "numeric_parse"
	KindEmptyInput        Kind = "empty_input"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one recoverable failure observed during an analysis.
type Diagnostic struct {
	Kind      Kind     `json:"kind"`
	Severity  Severity `json:"severity"`
	Stage     string   `json:"stage"`
	ParcelIDs []string `json:"parcelIds,omitempty"`
	Message   string   `json:"message"`
	Err       error    `json:"-"`
}

func (d Diagnostic) Error() string {
	if len(d.ParcelIDs) == 0 {
		return fmt.Sprintf("%s: %s", d.Stage, d.Message)
	}
	return fmt.Sprintf("%s %v: %s", d.Stage, d.ParcelIDs, d.Message)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// KindOf maps a wrapped sentinel to its Kind. Unknown errors are treated as
// geometry operation failures since that is the only open-ended source.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrGeometryParse):
		return KindGeometryParse
	case errors.Is(err, ErrNumericParse):
		return KindNumericParse
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	default:
		return KindGeometryOperation
	}
}

// Collector accumulates diagnostics from concurrent workers.
type Collector struct {
	mu     sync.Mutex
	stage  string
	items  []Diagnostic
	logger *zap.Logger
}

func NewCollector(stage string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{stage: stage, logger: logger}
}

// Report records err against the given parcels. Geometry operation failures
// are warnings because the engine falls back; everything else is an error.
func (c *Collector) Report(err error, parcelIDs ...string) {
	if err == nil {
		return
	}
	kind := KindOf(err)
	severity := SeverityError
	if kind == KindGeometryOperation {
		severity = SeverityWarning
	}
	c.add(Diagnostic{
		Kind:      kind,
		Severity:  severity,
		Stage:     c.stage,
		ParcelIDs: parcelIDs,
		Message:   err.Error(),
		Err:       err,
	})
}

// Warn records a warning with an explicit kind.
func (c *Collector) Warn(kind Kind, err error, parcelIDs ...string) {
	if err == nil {
		return
	}
	c.add(Diagnostic{
		Kind:      kind,
		Severity:  SeverityWarning,
		Stage:     c.stage,
		ParcelIDs: parcelIDs,
		Message:   err.Error(),
		Err:       err,
	})
}

func (c *Collector) add(d Diagnostic) {
	c.logger.Debug("diagnostic",
		zap.String("stage", d.Stage),
		zap.String("kind", string(d.Kind)),
		zap.Strings("parcels", d.ParcelIDs),
		zap.String("message", d.Message))

	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Items returns the records sorted by kind, then by first parcel id, so the
// output does not depend on worker scheduling.
func (c *Collector) Items() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return firstID(out[i]) < firstID(out[j])
	})
	return out
}

func firstID(d Diagnostic) string {
	if len(d.ParcelIDs) == 0 {
		return ""
	}
	return d.ParcelIDs[0]
}

// Count returns how many records of kind are present in ds.
func Count(ds []Diagnostic, kind Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
