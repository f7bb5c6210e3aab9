package parcels

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source column names. Header matching is case-insensitive.
const (
	ColumnObjectID     = "OBJECTID"
	ColumnParcelID     = "PAR_ID"
	ColumnParcelNumber = "PAR_NUM"
	ColumnLength       = "Shape_Length"
	ColumnArea         = "Shape_Area"
	ColumnGeometry     = "geometry"
	ColumnOwner        = "OWNER"
	ColumnParish       = "Freguesia"
	ColumnMunicipality = "Municipio"
	ColumnIsland       = "Ilha"
)

var requiredColumns = []string{
	ColumnObjectID, ColumnParcelID, ColumnParcelNumber, ColumnLength, ColumnArea,
	ColumnGeometry, ColumnOwner, ColumnParish, ColumnMunicipality, ColumnIsland,
}

// ErrMissingColumns is returned when a source lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

type CSVOptions struct {
	Delimiter rune
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ';'}
}

// ReadCSV reads parcels from a delimited source with a header row. Rows
// with an empty OBJECTID are skipped. Numeric and geometry problems are
// left on the parcel for the engines to report.
func ReadCSV(r io.Reader, opts CSVOptions) ([]Parcel, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read header: empty source: %w", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := columnIndex(header, requiredColumns, strings.EqualFold)
	if err != nil {
		return nil, err
	}

	var out []Parcel
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		get := func(col string) string {
			i := cols[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if get(ColumnObjectID) == "" {
			continue
		}
		out = append(out, New(recordFrom(get)))
	}
	return out, nil
}

func LoadCSV(path string, opts CSVOptions) ([]Parcel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ps, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ps, nil
}

// Source formats accepted by Load.
const (
	FormatCSV       = "csv"
	FormatShapefile = "shapefile"
)

// Load reads parcels from path. An empty format is derived from the file
// extension.
func Load(path, format string, opts CSVOptions) ([]Parcel, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".shp":
			format = FormatShapefile
		default:
			format = FormatCSV
		}
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return LoadCSV(path, opts)
	case FormatShapefile, "shp":
		return LoadShapefile(path)
	default:
		return nil, fmt.Errorf("unknown source format %q", format)
	}
}

func recordFrom(get func(string) string) Record {
	return Record{
		ID:           get(ColumnObjectID),
		ParcelID:     get(ColumnParcelID),
		ParcelNumber: get(ColumnParcelNumber),
		Perimeter:    get(ColumnLength),
		Area:         get(ColumnArea),
		Boundary:     get(ColumnGeometry),
		Owner:        get(ColumnOwner),
		Parish:       get(ColumnParish),
		Municipality: get(ColumnMunicipality),
		Island:       get(ColumnIsland),
	}
}

// columnIndex maps every required column to its position in header.
func columnIndex(header, required []string, match func(want, got string) bool) (map[string]int, error) {
	cols := make(map[string]int, len(required))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, want := range required {
			if _, done := cols[want]; !done && match(want, h) {
				cols[want] = i
			}
		}
	}

	var missing []string
	for _, want := range required {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}
