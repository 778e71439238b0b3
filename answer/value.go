package answer

import (
	"encoding/json"
	"mime/multipart"
	"time"

	"github.com/shopspring/decimal"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Value is the typed content of one answer. A nil Value is an empty answer.
type Value interface {
	json.Marshaler
	isValue()
}

type Text string

// Timestamp keeps the raw client text; Time is only set once the value has been parsed by storage.
type Timestamp struct {
	Raw  string
	Time time.Time
}

type Integer int64

type Decimal struct {
	D decimal.Decimal
}

type Choice string

type Point struct {
	Geom *geom.Point
}

type Line struct {
	Geom *geom.LineString
}

type Polygon struct {
	Geom *geom.Polygon
}

// Media is an uploaded file. File is set while ingesting, Path once the blob is stored.
type Media struct {
	File *multipart.FileHeader
	Path string
}

func (Text) isValue()      {}
func (Timestamp) isValue() {}
func (Integer) isValue()   {}
func (Decimal) isValue()   {}
func (Choice) isValue()    {}
func (Point) isValue()     {}
func (Line) isValue()      {}
func (Polygon) isValue()   {}
func (Media) isValue()     {}

func (v Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

func (v Timestamp) MarshalJSON() ([]byte, error) {
	if v.Time.IsZero() {
		return json.Marshal(v.Raw)
	}
	return json.Marshal(v.Time.Format(time.RFC3339))
}

func (v Integer) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(v))
}

func (v Decimal) MarshalJSON() ([]byte, error) {
	return v.D.MarshalJSON()
}

func (v Choice) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

func (v Point) MarshalJSON() ([]byte, error) {
	if v.Geom == nil {
		return []byte("null"), nil
	}
	return geojson.Marshal(v.Geom)
}

func (v Line) MarshalJSON() ([]byte, error) {
	if v.Geom == nil {
		return []byte("null"), nil
	}
	return geojson.Marshal(v.Geom)
}

func (v Polygon) MarshalJSON() ([]byte, error) {
	if v.Geom == nil {
		return []byte("null"), nil
	}
	return geojson.Marshal(v.Geom)
}

func (v Media) MarshalJSON() ([]byte, error) {
	if v.Path == "" && v.File != nil {
		return json.Marshal(v.File.Filename)
	}
	return json.Marshal(v.Path)
}
