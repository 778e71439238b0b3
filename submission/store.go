package submission

import (
	"context"

	"github.com/google/uuid"

	"github.com/mbolis/field-survey/answer"
	"github.com/mbolis/field-survey/database"
	"github.com/mbolis/field-survey/model"
)

type Store interface {
	FindQuestionnaire(ctx context.Context, id uuid.UUID) (model.Questionnaire, error)
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is what a submission writes through; everything done with it commits or rolls back together.
type Tx interface {
	answer.QuestionLister
	CreateSubmission(ctx context.Context, s *model.Submission) error
	InsertAnswers(ctx context.Context, answers []answer.Answer) error
}

type dbStore struct {
	*database.Store
}

// FromDB adapts the SQL store to Store.
func FromDB(s *database.Store) Store {
	return dbStore{s}
}

func (s dbStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.Store.InTx(ctx, func(tx *database.Tx) error {
		return fn(tx)
	})
}
