package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// SRID of every stored geometry (WGS 84).
const SRID = 4326

var (
	ErrMalformedPoint  = errors.New("point must be \"<lat>,<lng>\"")
	ErrNoFeatures      = errors.New("feature collection has no features")
	ErrShortLine       = errors.New("line needs at least 2 positions")
	ErrShortRing       = errors.New("polygon ring needs at least 4 positions")
	ErrOpenRing        = errors.New("polygon ring is not closed")
	ErrBadPosition     = errors.New("position must have 2 or 3 numeric ordinates")
	ErrMixedDimensions = errors.New("positions have different dimensions")
)

// ParsePoint reads "<lat>,<lng>" and returns a point in (lng, lat) axis order.
func ParsePoint(s string) (*geom.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, ErrMalformedPoint
	}
	lat, err := parseOrdinate(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: latitude: %v", ErrMalformedPoint, err)
	}
	lng, err := parseOrdinate(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: longitude: %v", ErrMalformedPoint, err)
	}

	p, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{lng, lat})
	if err != nil {
		return nil, err
	}
	return p.SetSRID(SRID), nil
}

func parseOrdinate(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return f, nil
}

type featureCollection struct {
	Features []struct {
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// firstCoordinates returns the raw coordinates of the first feature's geometry.
// The collection may be sent as a JSON object or as a string holding one.
func firstCoordinates(raw json.RawMessage) (json.RawMessage, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("feature collection: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, ErrNoFeatures
	}
	coords := fc.Features[0].Geometry.Coordinates
	if len(coords) == 0 || string(coords) == "null" {
		return nil, errors.New("feature has no coordinates")
	}
	return coords, nil
}

// ParseLine builds a line string from the first feature of a feature collection.
func ParseLine(raw json.RawMessage) (*geom.LineString, error) {
	coords, err := firstCoordinates(raw)
	if err != nil {
		return nil, err
	}
	var positions [][]float64
	if err := json.Unmarshal(coords, &positions); err != nil {
		return nil, fmt.Errorf("line coordinates: %w", err)
	}
	if len(positions) < 2 {
		return nil, ErrShortLine
	}

	layout, cs, err := toCoords(positions)
	if err != nil {
		return nil, err
	}
	l, err := geom.NewLineString(layout).SetCoords(cs)
	if err != nil {
		return nil, err
	}
	return l.SetSRID(SRID), nil
}

// ParsePolygon builds a polygon from the outer ring (coordinates[0]) of the first feature.
func ParsePolygon(raw json.RawMessage) (*geom.Polygon, error) {
	coords, err := firstCoordinates(raw)
	if err != nil {
		return nil, err
	}
	var rings [][][]float64
	if err := json.Unmarshal(coords, &rings); err != nil {
		return nil, fmt.Errorf("polygon coordinates: %w", err)
	}
	if len(rings) == 0 {
		return nil, ErrShortRing
	}
	return NewPolygon(rings[0])
}

// NewPolygon builds a single-ring polygon, rejecting rings that are too short or not closed.
func NewPolygon(ring [][]float64) (*geom.Polygon, error) {
	if len(ring) < 4 {
		return nil, ErrShortRing
	}
	layout, cs, err := toCoords(ring)
	if err != nil {
		return nil, err
	}
	if !cs[0].Equal(layout, cs[len(cs)-1]) {
		return nil, ErrOpenRing
	}
	p, err := geom.NewPolygon(layout).SetCoords([][]geom.Coord{cs})
	if err != nil {
		return nil, err
	}
	return p.SetSRID(SRID), nil
}

func toCoords(positions [][]float64) (geom.Layout, []geom.Coord, error) {
	var layout geom.Layout
	switch len(positions[0]) {
	case 2:
		layout = geom.XY
	case 3:
		layout = geom.XYZ
	default:
		return geom.NoLayout, nil, ErrBadPosition
	}

	cs := make([]geom.Coord, len(positions))
	for i, p := range positions {
		if len(p) != layout.Stride() {
			return geom.NoLayout, nil, ErrMixedDimensions
		}
		for _, f := range p {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return geom.NoLayout, nil, ErrBadPosition
			}
		}
		cs[i] = geom.Coord(p)
	}
	return layout, cs, nil
}
