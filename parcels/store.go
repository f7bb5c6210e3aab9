package parcels

import (
	"fmt"
	"sort"
	"strings"
)

// RegionKind names an administrative tag a parcel can be filtered on.
type RegionKind string

const (
	RegionParish       RegionKind = "parish"
	RegionMunicipality RegionKind = "municipality"
	RegionIsland       RegionKind = "island"
)

// ParseRegionKind accepts the English names and the Portuguese column
// names used by the cadastre (freguesia, municipio, ilha).
func ParseRegionKind(s string) (RegionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parish", "freguesia":
		return RegionParish, nil
	case "municipality", "municipio", "município":
		return RegionMunicipality, nil
	case "island", "ilha":
		return RegionIsland, nil
	default:
		return "", fmt.Errorf("unknown region type %q", s)
	}
}

// Of returns the region value of p for this kind.
func (k RegionKind) Of(p Parcel) string {
	switch k {
	case RegionParish:
		return p.Parish
	case RegionMunicipality:
		return p.Municipality
	case RegionIsland:
		return p.Island
	default:
		return ""
	}
}

// Store is an immutable, ordered parcel collection. Filters return new
// slices and never alias the store's backing array.
type Store struct {
	parcels []Parcel
	index   map[string]int
}

// NewStore keeps the input order. Duplicate ids are rejected.
func NewStore(ps []Parcel) (*Store, error) {
	s := &Store{
		parcels: Clone(ps),
		index:   make(map[string]int, len(ps)),
	}
	for i, p := range s.parcels {
		if p.ID == "" {
			return nil, fmt.Errorf("parcel at position %d has an empty id", i)
		}
		if j, ok := s.index[p.ID]; ok {
			return nil, fmt.Errorf("duplicate parcel id %q at positions %d and %d", p.ID, j, i)
		}
		s.index[p.ID] = i
	}
	return s, nil
}

func (s *Store) Len() int { return len(s.parcels) }

func (s *Store) List() []Parcel { return Clone(s.parcels) }

func (s *Store) Get(id string) (Parcel, bool) {
	i, ok := s.index[id]
	if !ok {
		return Parcel{}, false
	}
	return Clone(s.parcels[i : i+1])[0], true
}

// Filter returns the parcels whose region of the given kind equals value,
// compared case-insensitively, in store order.
func (s *Store) Filter(kind RegionKind, value string) []Parcel {
	value = strings.TrimSpace(value)
	out := []Parcel{}
	for _, p := range s.parcels {
		if strings.EqualFold(kind.Of(p), value) {
			out = append(out, p)
		}
	}
	return Clone(out)
}

func (s *Store) ByParish(name string) []Parcel { return s.Filter(RegionParish, name) }

func (s *Store) ByMunicipality(name string) []Parcel {
	return s.Filter(RegionMunicipality, name)
}

func (s *Store) ByIsland(name string) []Parcel { return s.Filter(RegionIsland, name) }

// Regions lists the distinct non-empty values of kind, sorted.
func (s *Store) Regions(kind RegionKind) []string {
	seen := make(map[string]struct{})
	for _, p := range s.parcels {
		if v := kind.Of(p); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Owners lists the distinct owners in the store, sorted.
func (s *Store) Owners() []string {
	seen := make(map[string]struct{})
	for _, p := range s.parcels {
		seen[p.Owner] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}
