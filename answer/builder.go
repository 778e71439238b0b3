package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbolis/field-survey/log"
	"github.com/mbolis/field-survey/model"
)

type QuestionLister interface {
	ListQuestions(ctx context.Context, questionnaireID uuid.UUID) ([]model.Question, error)
}

type Answer struct {
	ID           uuid.UUID        `json:"id"`
	QuestionID   uuid.UUID        `json:"question"`
	SubmissionID uuid.UUID        `json:"submission"`
	Type         model.AnswerType `json:"answer_type"`
	Value        Value            `json:"value"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Skip reports an answer item that produced no answer.
type Skip struct {
	Index    int    `json:"index"`
	Question string `json:"question,omitempty"`
	Reason   string `json:"reason"`
}

type Result struct {
	Answers  []Answer
	Received int
	Skipped  []Skip
}

// Build resolves every item against the questionnaire's questions and decodes its payload.
// Items that cannot be resolved or decoded are reported in Result.Skipped; only a failure to
// load the questions is returned as an error.
func Build(ctx context.Context, questions QuestionLister, submissionID, questionnaireID uuid.UUID, items []json.RawMessage, files Files) (Result, error) {
	qs, err := questions.ListQuestions(ctx, questionnaireID)
	if err != nil {
		return Result{}, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]model.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}

	res := Result{
		Answers:  make([]Answer, 0, len(items)),
		Received: len(items),
		Skipped:  []Skip{},
	}
	now := time.Now().UTC()

	for i, raw := range items {
		skip := func(question, reason string) {
			log.Debugf("answer.build: skip item %d (question %q): %s", i, question, reason)
			res.Skipped = append(res.Skipped, Skip{Index: i, Question: question, Reason: reason})
		}

		var item Item
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			skip("", "item is not an object")
			continue
		}

		var ref string
		if err := json.Unmarshal(item["question"], &ref); err != nil || ref == "" {
			skip("", "missing question id")
			continue
		}
		qid, err := uuid.Parse(ref)
		if err != nil {
			skip(ref, "invalid question id")
			continue
		}
		q, ok := byID[qid]
		if !ok {
			skip(ref, "question does not belong to questionnaire")
			continue
		}

		spec, err := Lookup(q.AnswerType)
		if err != nil {
			skip(ref, err.Error())
			continue
		}

		var file = files[ref]
		if file == nil {
			file = files[qid.String()]
		}
		v, err := Decode(spec, item, file)
		if err != nil {
			skip(ref, err.Error())
			continue
		}

		res.Answers = append(res.Answers, Answer{
			ID:           uuid.New(),
			QuestionID:   qid,
			SubmissionID: submissionID,
			Type:         q.AnswerType,
			Value:        v,
			CreatedAt:    now,
		})
	}

	return res, nil
}
