package answer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mbolis/field-survey/model"
)

// Item is one element of the answers array, keyed by payload key.
type Item map[string]json.RawMessage

// Files holds the uploaded file parts keyed by question id.
type Files map[string]*multipart.FileHeader

var (
	ErrMissingValue = errors.New("missing value")
	ErrWrongKind    = errors.New("unexpected JSON kind")
	ErrNotInteger   = errors.New("not an integer")
	ErrNotNumber    = errors.New("not a number")
	ErrOutOfRange   = errors.New("number out of range")
)

// Decimal answers hold 100 digits, 6 of them decimal places.
const (
	maxNumberLen        = 128
	maxDecimalIntDigits = 94
	decimalPlaces       = 6
	maxInt64Digits      = 19
)

type decodeFunc func(raw json.RawMessage, file *multipart.FileHeader) (Value, error)

var decoders = map[model.AnswerType]decodeFunc{
	model.ShortText:    decodeText,
	model.LongText:     decodeText,
	model.PhoneNumber:  decodeText,
	model.Email:        decodeText,
	model.Link:         decodeText,
	model.Timestamp:    decodeTimestamp,
	model.Integer:      decodeInteger,
	model.Decimal:      decodeDecimal,
	model.SingleChoice: decodeChoice,
	model.MultiChoice:  decodeChoice,
	model.Point:        decodePoint,
	model.Line:         decodeLine,
	model.Polygon:      decodePolygon,
	model.Image:        decodeMedia,
	model.Document:     decodeMedia,
	model.Video:        decodeMedia,
	model.Audio:        decodeMedia,
}

// Decode turns the payload of one answer item into a typed value.
// A nil value with a nil error is an empty answer.
func Decode(spec Spec, item Item, file *multipart.FileHeader) (Value, error) {
	decode, ok := decoders[spec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnswerType, spec.Type)
	}

	var raw json.RawMessage
	if spec.PayloadKey != "" {
		raw = item[spec.PayloadKey]
		if isNull(raw) {
			raw = nil
		}
	}

	v, err := decode(raw, file)
	if err != nil && spec.PayloadKey != "" {
		return nil, fmt.Errorf("%s: %w", spec.PayloadKey, err)
	}
	return v, err
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// scalarText returns a JSON string's content or a JSON number's literal text.
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch c := raw[0]; {
	case c == '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", ErrWrongKind
	}
}

func decodeText(raw json.RawMessage, _ *multipart.FileHeader) (Value, error) {
	if raw == nil {
		return nil, nil
	}
	s, err := scalarText(raw)
	if err != nil {
		return nil, err
	}
	return Text(s), nil
}

func decodeTimestamp(raw json.RawMessage, _ *multipart.FileHeader) (Value, error) {
	if raw == nil {
		return nil, nil
	}
	s, err := scalarText(raw)
	if err != nil {
		return nil, err
	}
	return Timestamp{Raw: s}, nil
}

func numberText(raw json.RawMessage) (string, error) {
	s, err := scalarText(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// parseNumber parses a numeric literal and returns it with the number of digits
// of its integer part, zero or negative when its magnitude is below 1.
func parseNumber(s string, invalid error) (d decimal.Decimal, intDigits int, err error) {
	if len(s) > maxNumberLen {
		return d, 0, fmt.Errorf("%w: literal of %d characters", ErrOutOfRange, len(s))
	}
	d, err = decimal.NewFromString(s)
	if err != nil {
		return d, 0, fmt.Errorf("%w: %q", invalid, s)
	}
	c := d.Coefficient()
	return d, len(c.Abs(c).String()) + int(d.Exponent()), nil
}

func decodeInteger(raw json.RawMessage, _ *multipart.FileHeader) (Value, error) {
	if raw == nil {
		return nil, nil
	}
	s, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	d, intDigits, err := parseNumber(s, ErrNotInteger)
	if err != nil {
		return nil, err
	}
	if d.IsZero() {
		return Integer(0), nil
	}
	// the exponent is checked before any rescale: "1e999999999" is a short literal
	if intDigits > maxInt64Digits {
		return nil, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	if intDigits <= 0 || !d.IsInteger() {
		return nil, fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	n := d.BigInt()
	if !n.IsInt64() {
		return nil, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return Integer(n.Int64()), nil
}

func decodeDecimal(raw json.RawMessage, _ *multipart.FileHeader) (Value, error) {
	if raw == nil {
		return nil, nil
	}
	s, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	d, intDigits, err := parseNumber(s, ErrNotNumber)
	if err != nil {
		return nil, err
	}
	switch {
	case d.IsZero(), intDigits < -decimalPlaces:
		// rounds to zero at the stored precision
		return Decimal{D: decimal.Zero}, nil
	case intDigits > maxDecimalIntDigits:
		return nil, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return Decimal{D: d}, nil
}

func decodeChoice(raw json.RawMessage, _ *multipart.FileHeader) (Value, error) {
	if raw == nil {
		return nil, nil
	}
	if trimmed := bytes.TrimSpace(raw); trimmed[0] == '[' {
		var choices []string
		if err := json.Unmarshal(trimmed, &choices); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWrongKind, err)
		}
		return Choice(strings.Join(choices, ",")), nil
	}
	s, err := scalarText(raw)
	if err != nil {
		return nil, err
	}
	return Choice(s), nil
}

func decodePoint(raw json.RawMessage, _ *multipart.FileHeader) (Value, error) {
	if raw == nil {
		return nil, ErrMissingValue
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongKind, err)
	}
	p, err := ParsePoint(s)
	if err != nil {
		return nil, err
	}
	return Point{Geom: p}, nil
}

func decodeLine(raw json.RawMessage, _ *multipart.FileHeader) (Value, error) {
	if raw == nil {
		return nil, ErrMissingValue
	}
	l, err := ParseLine(raw)
	if err != nil {
		return nil, err
	}
	return Line{Geom: l}, nil
}

func decodePolygon(raw json.RawMessage, _ *multipart.FileHeader) (Value, error) {
	if raw == nil {
		return nil, ErrMissingValue
	}
	p, err := ParsePolygon(raw)
	if err != nil {
		return nil, err
	}
	return Polygon{Geom: p}, nil
}

func decodeMedia(_ json.RawMessage, file *multipart.FileHeader) (Value, error) {
	if file == nil {
		return nil, nil
	}
	return Media{File: file}, nil
}
