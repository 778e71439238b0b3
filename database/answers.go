package database

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"

	"github.com/mbolis/field-survey/answer"
	"github.com/mbolis/field-survey/model"
)

// Answers are stored as wide rows: one nullable column per answer type, at most one of them set.

const decimalPlaces = 6

var ErrBadTimestamp = errors.New("malformed timestamp")

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var valueColumns = answer.Columns()

var answerColumns = func() []string {
	cols := []string{"id", "question_id", "submission_id", "answer_type"}
	cols = append(cols, valueColumns...)
	return append(cols, "created_at")
}()

var columnIndex = func() map[model.AnswerType]int {
	m := map[model.AnswerType]int{}
	for i, t := range answer.Types() {
		m[t] = i
	}
	return m
}()

// ParseTimestamp accepts RFC 3339 and the common ISO 8601 local forms, read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// answerRow returns the insert arguments of a, in answerColumns order.
func answerRow(a answer.Answer) ([]any, error) {
	idx, ok := columnIndex[a.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", answer.ErrUnknownAnswerType, a.Type)
	}

	values := make([]any, len(valueColumns))
	if a.Value != nil {
		v, err := columnValue(a.Value)
		if err != nil {
			return nil, fmt.Errorf("answer %s (question %s): %w", a.ID, a.QuestionID, err)
		}
		values[idx] = v
	}

	row := make([]any, 0, len(answerColumns))
	row = append(row, a.ID, a.QuestionID, a.SubmissionID, a.Type)
	row = append(row, values...)
	return append(row, a.CreatedAt), nil
}

func columnValue(v answer.Value) (any, error) {
	switch v := v.(type) {
	case answer.Text:
		return string(v), nil
	case answer.Choice:
		return string(v), nil
	case answer.Timestamp:
		if !v.Time.IsZero() {
			return v.Time.UTC(), nil
		}
		return ParseTimestamp(v.Raw)
	case answer.Integer:
		return int64(v), nil
	case answer.Decimal:
		return v.D.Round(decimalPlaces).String(), nil
	case answer.Point:
		if v.Geom == nil {
			return nil, nil
		}
		return encodeGeometry(v.Geom)
	case answer.Line:
		if v.Geom == nil {
			return nil, nil
		}
		return encodeGeometry(v.Geom)
	case answer.Polygon:
		if v.Geom == nil {
			return nil, nil
		}
		return encodeGeometry(v.Geom)
	case answer.Media:
		if v.Path == "" {
			return nil, errors.New("media answer was not stored")
		}
		return v.Path, nil
	default:
		return nil, fmt.Errorf("unsupported answer value %T", v)
	}
}

func encodeGeometry(g geom.T) (any, error) {
	return ewkbhex.Encode(g, binary.LittleEndian)
}

// scanAnswer reads one row selected with answerColumns.
func scanAnswer(rows *sql.Rows) (a answer.Answer, err error) {
	cols := make([]sql.NullString, len(valueColumns))
	dest := make([]any, 0, len(answerColumns))
	dest = append(dest, &a.ID, &a.QuestionID, &a.SubmissionID, &a.Type)
	for i := range cols {
		dest = append(dest, &cols[i])
	}
	dest = append(dest, &a.CreatedAt)

	if err = rows.Scan(dest...); err != nil {
		return
	}

	idx, ok := columnIndex[a.Type]
	if !ok || !cols[idx].Valid {
		return
	}
	a.Value, err = parseColumn(a.Type, cols[idx].String)
	return
}

func parseColumn(t model.AnswerType, s string) (answer.Value, error) {
	switch t {
	case model.ShortText, model.LongText, model.PhoneNumber, model.Email, model.Link:
		return answer.Text(s), nil
	case model.SingleChoice, model.MultiChoice:
		return answer.Choice(s), nil
	case model.Timestamp:
		ts, err := parseStoredTime(s)
		if err != nil {
			return nil, err
		}
		return answer.Timestamp{Raw: ts.Format(time.RFC3339), Time: ts}, nil
	case model.Integer:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return answer.Integer(n), nil
	case model.Decimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		return answer.Decimal{D: d}, nil
	case model.Point, model.Line, model.Polygon:
		g, err := ewkbhex.Decode(s)
		if err != nil {
			return nil, err
		}
		switch g := g.(type) {
		case *geom.Point:
			return answer.Point{Geom: g}, nil
		case *geom.LineString:
			return answer.Line{Geom: g}, nil
		case *geom.Polygon:
			return answer.Polygon{Geom: g}, nil
		}
		return nil, fmt.Errorf("unexpected geometry %T", g)
	case model.Image, model.Document, model.Video, model.Audio:
		return answer.Media{Path: s}, nil
	}
	return nil, fmt.Errorf("%w: %q", answer.ErrUnknownAnswerType, t)
}

// parseStoredTime reads a DATETIME as the sqlite3 driver renders it into a string.
func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return ParseTimestamp(s)
}
