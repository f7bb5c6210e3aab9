package geometry

import (
	"errors"
)

// Problem describes a boundary that cannot be used by the engines.
type Problem struct {
	Ref          int    `json:"ref"`
	ID           string `json:"id"`
	ErrorMessage string `json:"errorMessage"`
}

// CheckGeometry parses every boundary and lists the ones that fail, with
// the GEOS validity reason when there is one.
func (a *Adapter) CheckGeometry(ids, boundaries []string) ([]Problem, error) {
	if len(ids) != len(boundaries) {
		return nil, errors.New("check geometry: ids and boundaries differ in length")
	}

	var problems []Problem
	for i := range boundaries {
		if _, err := a.ParseBoundary(boundaries[i]); err != nil {
			problems = append(problems, Problem{Ref: i, ID: ids[i], ErrorMessage: err.Error()})
		}
	}
	return problems, nil
}
