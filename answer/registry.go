package answer

import (
	"errors"
	"fmt"

	"github.com/mbolis/field-survey/model"
)

var ErrUnknownAnswerType = errors.New("unknown answer type")

// Spec describes where the answer to a question of a given type comes from and where it goes.
type Spec struct {
	Type        model.AnswerType
	Category    model.QuestionType
	Column      string
	PayloadKey  string // empty for file-backed types
	ExpectsFile bool
	MediaDir    string
}

var specs = []Spec{
	{Type: model.ShortText, Category: model.QuestionText, Column: "short_text_answer", PayloadKey: "answer_text"},
	{Type: model.LongText, Category: model.QuestionText, Column: "long_text_answer", PayloadKey: "answer_text"},
	{Type: model.PhoneNumber, Category: model.QuestionText, Column: "phone_number_answer", PayloadKey: "answer_text"},
	{Type: model.Email, Category: model.QuestionText, Column: "email_answer", PayloadKey: "answer_text"},
	{Type: model.Timestamp, Category: model.QuestionText, Column: "timestamp_answer", PayloadKey: "answer_timestamp"},
	{Type: model.Link, Category: model.QuestionText, Column: "link_answer", PayloadKey: "answer_url"},
	{Type: model.Integer, Category: model.QuestionNumber, Column: "integer_answer", PayloadKey: "answer_integer"},
	{Type: model.Decimal, Category: model.QuestionNumber, Column: "decimal_answer", PayloadKey: "answer_decimal"},
	{Type: model.Point, Category: model.QuestionGeometry, Column: "point_answer", PayloadKey: "answer_point"},
	{Type: model.Line, Category: model.QuestionGeometry, Column: "line_answer", PayloadKey: "answer_line"},
	{Type: model.Polygon, Category: model.QuestionGeometry, Column: "polygon_answer", PayloadKey: "answer_polygon"},
	{Type: model.SingleChoice, Category: model.QuestionChoice, Column: "single_choice_answer", PayloadKey: "answer_choice"},
	{Type: model.MultiChoice, Category: model.QuestionChoice, Column: "multi_choice_answer", PayloadKey: "answer_choice"},
	{Type: model.Image, Category: model.QuestionFile, Column: "image_answer", ExpectsFile: true, MediaDir: "images"},
	{Type: model.Document, Category: model.QuestionFile, Column: "document_answer", ExpectsFile: true, MediaDir: "documents"},
	{Type: model.Video, Category: model.QuestionFile, Column: "video_answer", ExpectsFile: true, MediaDir: "videos"},
	{Type: model.Audio, Category: model.QuestionFile, Column: "audio_answer", ExpectsFile: true, MediaDir: "audio"},
}

var byType = func() map[model.AnswerType]Spec {
	m := make(map[model.AnswerType]Spec, len(specs))
	for _, s := range specs {
		m[s.Type] = s
	}
	return m
}()

func Lookup(t model.AnswerType) (Spec, error) {
	s, ok := byType[t]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownAnswerType, t)
	}
	return s, nil
}

// Types lists every known answer type in declaration order.
func Types() []model.AnswerType {
	types := make([]model.AnswerType, len(specs))
	for i, s := range specs {
		types[i] = s.Type
	}
	return types
}

// Columns lists every answer column in declaration order.
func Columns() []string {
	cols := make([]string, len(specs))
	for i, s := range specs {
		cols[i] = s.Column
	}
	return cols
}

// Compatible reports whether an answer type may be used by a question of the given category.
func Compatible(q model.QuestionType, t model.AnswerType) bool {
	s, ok := byType[t]
	return ok && s.Category == q
}
