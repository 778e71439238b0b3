package model

import (
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionText     QuestionType = "TEXT"
	QuestionNumber   QuestionType = "NUMBER"
	QuestionFile     QuestionType = "FILE"
	QuestionGeometry QuestionType = "GEOMETRY"
	QuestionChoice   QuestionType = "CHOICE"
)

type AnswerType string

const (
	ShortText    AnswerType = "SHORT_TEXT"
	LongText     AnswerType = "LONG_TEXT"
	PhoneNumber  AnswerType = "PHONE_NUMBER"
	Email        AnswerType = "EMAIL"
	Timestamp    AnswerType = "TIMESTAMP"
	Link         AnswerType = "LINK"
	Integer      AnswerType = "INTEGER"
	Decimal      AnswerType = "DECIMAL"
	Point        AnswerType = "POINT"
	Line         AnswerType = "LINE"
	Polygon      AnswerType = "POLYGON"
	SingleChoice AnswerType = "SINGLE_CHOICE"
	MultiChoice  AnswerType = "MULTI_CHOICE"
	Image        AnswerType = "IMAGE"
	Document     AnswerType = "DOCUMENT"
	Video        AnswerType = "VIDEO"
	Audio        AnswerType = "AUDIO"
)

const (
	RoleOwner      = "OWNER"
	RoleManager    = "MANAGER"
	RoleEnumerator = "ENUMERATOR"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Questionnaire struct {
	ID           uuid.UUID     `json:"id"`
	CreatorID    uuid.UUID     `json:"creator"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Link         string        `json:"link,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Questions    []Question    `json:"questions,omitempty"`
	SkipLogics   []SkipLogic   `json:"skip_logics,omitempty"`
	FilterLogics []FilterLogic `json:"filter_logics,omitempty"`
}

type Question struct {
	ID              uuid.UUID    `json:"id"`
	QuestionnaireID uuid.UUID    `json:"questionnaire"`
	Position        int          `json:"position"`
	Question        string       `json:"question"`
	QuestionType    QuestionType `json:"question_type"`
	AnswerType      AnswerType   `json:"answer_type"`
	IsRequired      bool         `json:"is_required"`
	RequiredText    string       `json:"required_text,omitempty"`
	Options         string       `json:"options,omitempty"` // comma separated, CHOICE questions only
	Placeholder     string       `json:"placeholder,omitempty"`
	Hint            string       `json:"hint,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// SkipLogic shows DisplayQuestionID only when QuestionID was answered with AnswerValue.
type SkipLogic struct {
	ID                uuid.UUID `json:"id"`
	QuestionID        uuid.UUID `json:"question"`
	AnswerValue       string    `json:"answer_value"`
	DisplayQuestionID uuid.UUID `json:"display_question"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FilterLogic restricts the choices of QuestionID based on the answer to SourceQuestionID.
// Mapping has the form "value1:choice1,choice2;value2:choice3".
type FilterLogic struct {
	ID               uuid.UUID `json:"id"`
	QuestionID       uuid.UUID `json:"question"`
	SourceQuestionID uuid.UUID `json:"source_question"`
	Mapping          string    `json:"mapping"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Submission struct {
	ID              uuid.UUID      `json:"id"`
	QuestionnaireID uuid.UUID      `json:"questionnaire"`
	EnumeratorID    uuid.UUID      `json:"enumerator"`
	FillDuration    *time.Duration `json:"fill_duration,omitempty"`
	SubmittedAt     time.Time      `json:"submitted_at"`
}
