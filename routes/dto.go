package routes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mbolis/field-survey/answer"
	"github.com/mbolis/field-survey/model"
)

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

type QuestionRequest struct {
	Question     string             `json:"question" validate:"required,max=500"`
	QuestionType model.QuestionType `json:"question_type" validate:"required,oneof=TEXT NUMBER FILE GEOMETRY CHOICE"`
	AnswerType   model.AnswerType   `json:"answer_type" validate:"required"`
	IsRequired   bool               `json:"is_required"`
	RequiredText string             `json:"required_text" validate:"max=200"`
	Options      string             `json:"options"`
	Placeholder  string             `json:"placeholder" validate:"max=200"`
	Hint         string             `json:"hint" validate:"max=200"`
}

type QuestionnaireRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description"`
	Questions   []QuestionRequest `json:"questions" validate:"dive"`
}

// Validate checks field constraints and that every answer type belongs to its question type.
func (req QuestionnaireRequest) Validate() error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	for i, q := range req.Questions {
		if _, err := answer.Lookup(q.AnswerType); err != nil {
			return fmt.Errorf("questions[%d]: %w", i, err)
		}
		if !answer.Compatible(q.QuestionType, q.AnswerType) {
			return fmt.Errorf("questions[%d]: answer type %s does not fit question type %s", i, q.AnswerType, q.QuestionType)
		}
	}
	return nil
}

func (req QuestionnaireRequest) Model(creator uuid.UUID) model.Questionnaire {
	qn := model.Questionnaire{
		ID:          uuid.New(),
		CreatorID:   creator,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Questions:   make([]model.Question, len(req.Questions)),
	}
	for i, q := range req.Questions {
		qn.Questions[i] = model.Question{
			Question:     q.Question,
			QuestionType: q.QuestionType,
			AnswerType:   q.AnswerType,
			IsRequired:   q.IsRequired,
			RequiredText: q.RequiredText,
			Options:      q.Options,
			Placeholder:  q.Placeholder,
			Hint:         q.Hint,
		}
	}
	return qn
}

type SkipLogicRequest struct {
	Question        uuid.UUID `json:"question" validate:"required"`
	AnswerValue     string    `json:"answer_value" validate:"required,max=5000"`
	DisplayQuestion uuid.UUID `json:"display_question" validate:"required"`
}

type FilterLogicRequest struct {
	Question       uuid.UUID `json:"question" validate:"required"`
	SourceQuestion uuid.UUID `json:"source_question" validate:"required"`
	Mapping        string    `json:"mapping" validate:"required"`
}

type EvaluateRequest struct {
	Answers map[uuid.UUID]string `json:"answers"`
}

// validationDetail renders a validation failure as a client message.
func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param())
		} else {
			msgs[i] = fmt.Sprintf("%s: %s", field, fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

type submissionView struct {
	model.Submission
	FillDuration *float64        `json:"fill_duration"`
	Answers      []answer.Answer `json:"answers,omitempty"`
}

func newSubmissionView(s model.Submission, answers []answer.Answer) submissionView {
	v := submissionView{Submission: s, Answers: answers}
	if s.FillDuration != nil {
		secs := s.FillDuration.Round(time.Millisecond).Seconds()
		v.FillDuration = &secs
	}
	return v
}
