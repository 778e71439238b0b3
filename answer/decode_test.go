package answer

import (
	"encoding/json"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/field-survey/model"
)

func decode(t *testing.T, at model.AnswerType, payload string, file *multipart.FileHeader) (Value, error) {
	t.Helper()
	spec, err := Lookup(at)
	require.NoError(t, err)

	var item Item
	require.NoError(t, json.Unmarshal([]byte(payload), &item))
	return Decode(spec, item, file)
}

func TestDecodeScalars(t *testing.T) {
	tests := []struct {
		answerType model.AnswerType
		payload    string
		expected   Value
	}{
		{model.ShortText, `{"answer_text":"hello"}`, Text("hello")},
		{model.PhoneNumber, `{"answer_text":393331234567}`, Text("393331234567")},
		{model.Link, `{"answer_url":"https://example.org"}`, Text("https://example.org")},
		{model.Timestamp, `{"answer_timestamp":"2024-03-01T10:00:00Z"}`, Timestamp{Raw: "2024-03-01T10:00:00Z"}},
		{model.Integer, `{"answer_integer":42}`, Integer(42)},
		{model.Integer, `{"answer_integer":"-7"}`, Integer(-7)},
		{model.Integer, `{"answer_integer":"3.0"}`, Integer(3)},
		{model.SingleChoice, `{"answer_choice":"yes"}`, Choice("yes")},
		{model.MultiChoice, `{"answer_choice":["a","b"]}`, Choice("a,b")},
		{model.MultiChoice, `{"answer_choice":"a,b"}`, Choice("a,b")},
	}

	for _, test := range tests {
		v, err := decode(t, test.answerType, test.payload, nil)
		require.NoError(t, err, test.payload)
		assert.Equal(t, test.expected, v, test.payload)
	}
}

func TestDecodeDecimal(t *testing.T) {
	v, err := decode(t, model.Decimal, `{"answer_decimal":"12.345"}`, nil)
	require.NoError(t, err)
	require.IsType(t, Decimal{}, v)
	assert.True(t, v.(Decimal).D.Equal(decimal.RequireFromString("12.345")))

	v, err = decode(t, model.Decimal, `{"answer_decimal":0.5}`, nil)
	require.NoError(t, err)
	assert.True(t, v.(Decimal).D.Equal(decimal.RequireFromString("0.5")))
}

func TestDecodeEmpty(t *testing.T) {
	for _, at := range []model.AnswerType{model.ShortText, model.Timestamp, model.Integer, model.Decimal, model.SingleChoice} {
		v, err := decode(t, at, `{}`, nil)
		assert.NoError(t, err, at)
		assert.Nil(t, v, at)
	}

	v, err := decode(t, model.ShortText, `{"answer_text":null}`, nil)
	assert.NoError(t, err)
	assert.Nil(t, v)

	v, err = decode(t, model.Integer, `{"answer_integer":""}`, nil)
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestDecodeErrors(t *testing.T) {
	_, err := decode(t, model.Integer, `{"answer_integer":"4.2"}`, nil)
	assert.ErrorIs(t, err, ErrNotInteger)

	_, err = decode(t, model.Integer, `{"answer_integer":"99999999999999999999"}`, nil)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = decode(t, model.Integer, `{"answer_integer":"9223372036854775808"}`, nil)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = decode(t, model.Integer, `{"answer_integer":"0.5"}`, nil)
	assert.ErrorIs(t, err, ErrNotInteger)

	_, err = decode(t, model.Decimal, `{"answer_decimal":"lots"}`, nil)
	assert.ErrorIs(t, err, ErrNotNumber)

	_, err = decode(t, model.Decimal, `{"answer_decimal":"`+strings.Repeat("1", 200)+`"}`, nil)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = decode(t, model.ShortText, `{"answer_text":{"nested":true}}`, nil)
	assert.ErrorIs(t, err, ErrWrongKind)

	_, err = decode(t, model.Point, `{}`, nil)
	assert.ErrorIs(t, err, ErrMissingValue)

	_, err = decode(t, model.Point, `{"answer_point":"12.5"}`, nil)
	assert.ErrorIs(t, err, ErrMalformedPoint)

	_, err = decode(t, model.Polygon, `{"answer_polygon":null}`, nil)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestDecodeHugeExponents(t *testing.T) {
	for _, payload := range []string{
		`{"answer_integer":"1e999999999"}`,
		`{"answer_integer":1e999999999}`,
		`{"answer_integer":"-1e999999999"}`,
	} {
		start := time.Now()
		_, err := decode(t, model.Integer, payload, nil)
		assert.ErrorIs(t, err, ErrOutOfRange, payload)
		assert.Less(t, time.Since(start), time.Second, payload)
	}

	for _, payload := range []string{`{"answer_integer":"1e-999999999"}`, `{"answer_integer":"5e-999999999"}`} {
		_, err := decode(t, model.Integer, payload, nil)
		assert.ErrorIs(t, err, ErrNotInteger, payload)
	}

	v, err := decode(t, model.Integer, `{"answer_integer":"0e999999999"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, Integer(0), v)

	v, err = decode(t, model.Integer, `{"answer_integer":"12e3"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, Integer(12000), v)

	_, err = decode(t, model.Decimal, `{"answer_decimal":"1e999999999"}`, nil)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = decode(t, model.Decimal, `{"answer_decimal":"1e94"}`, nil)
	assert.ErrorIs(t, err, ErrOutOfRange)

	v, err = decode(t, model.Decimal, `{"answer_decimal":"1e93"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, 94, len(v.(Decimal).D.Round(6).StringFixed(0)))

	for _, payload := range []string{`{"answer_decimal":"1e-999999999"}`, `{"answer_decimal":"0e-999999999"}`} {
		start := time.Now()
		v, err = decode(t, model.Decimal, payload, nil)
		require.NoError(t, err, payload)
		assert.True(t, v.(Decimal).D.IsZero(), payload)
		assert.Equal(t, "0", v.(Decimal).D.Round(6).String(), payload)
		assert.Less(t, time.Since(start), time.Second, payload)
	}

	v, err = decode(t, model.Decimal, `{"answer_decimal":"25e-7"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.000003", v.(Decimal).D.Round(6).String())
}

func TestDecodeGeometry(t *testing.T) {
	v, err := decode(t, model.Point, `{"answer_point":"12.5,77.6"}`, nil)
	require.NoError(t, err)
	p := v.(Point)
	assert.Equal(t, 77.6, p.Geom.X())
	assert.Equal(t, 12.5, p.Geom.Y())

	v, err = decode(t, model.Line, `{"answer_line":`+lineFC+`}`, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, v.(Line).Geom.NumCoords())
}

func TestDecodeMedia(t *testing.T) {
	v, err := decode(t, model.Image, `{}`, nil)
	assert.NoError(t, err)
	assert.Nil(t, v)

	fh := &multipart.FileHeader{Filename: "photo.jpg"}
	v, err = decode(t, model.Image, `{"answer_text":"ignored"}`, fh)
	require.NoError(t, err)
	assert.Equal(t, Media{File: fh}, v)
}

func TestValueJSON(t *testing.T) {
	p, err := ParsePoint("12.5,77.6")
	require.NoError(t, err)

	out, err := json.Marshal(map[string]Value{
		"text":  Text("hi"),
		"int":   Integer(3),
		"dec":   Decimal{D: decimal.RequireFromString("1.25")},
		"point": Point{Geom: p},
		"media": Media{Path: "images/a.jpg"},
		"empty": Line{},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"text": "hi",
		"int": 3,
		"dec": "1.25",
		"point": {"type": "Point", "coordinates": [77.6, 12.5]},
		"media": "images/a.jpg",
		"empty": null
	}`, string(out))
}
