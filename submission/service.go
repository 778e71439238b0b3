package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/field-survey/answer"
	"github.com/mbolis/field-survey/log"
	"github.com/mbolis/field-survey/model"
	"github.com/mbolis/field-survey/storage"
)

type Request struct {
	QuestionnaireID string    `validate:"required"`
	Enumerator      uuid.UUID `validate:"required"`
	Answers         string    `validate:"required"`
	FillDuration    *time.Duration
	Files           answer.Files
}

type Result struct {
	SubmissionID uuid.UUID     `json:"submission_id"`
	Saved        int           `json:"answers_saved"`
	Received     int           `json:"answers_received"`
	Skipped      []answer.Skip `json:"skipped"`
}

type Service struct {
	store    Store
	media    storage.Store
	validate *validator.Validate
}

func NewService(store Store, media storage.Store) *Service {
	return &Service{
		store:    store,
		media:    media,
		validate: validator.New(),
	}
}

// Submit records one filled questionnaire: a submission row and every answer that decodes.
// Either all of it is committed or nothing is, including uploaded media.
func (s *Service) Submit(ctx context.Context, req Request) (res Result, err error) {
	if err = s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Enumerator" {
			return res, &Error{Kind: KindValidation, Msg: MsgEnumerator, Err: err}
		}
		return res, &Error{Kind: KindValidation, Msg: MsgRequired, Err: err}
	}

	var items []json.RawMessage
	if err = json.Unmarshal([]byte(req.Answers), &items); err != nil || items == nil {
		return res, &Error{Kind: KindValidation, Msg: MsgInvalidJSON, Err: err}
	}

	questionnaireID, err := uuid.Parse(req.QuestionnaireID)
	if err != nil {
		return res, &Error{Kind: KindNotFound, Msg: MsgNotFound, Err: err}
	}
	if _, err = s.store.FindQuestionnaire(ctx, questionnaireID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, &Error{Kind: KindNotFound, Msg: MsgNotFound, Err: err}
		}
		return res, fmt.Errorf("find questionnaire: %w", err)
	}

	var stored []string
	err = s.store.InTx(ctx, func(tx Tx) error {
		sub := model.Submission{
			QuestionnaireID: questionnaireID,
			EnumeratorID:    req.Enumerator,
			FillDuration:    req.FillDuration,
		}
		if err := tx.CreateSubmission(ctx, &sub); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}

		built, err := answer.Build(ctx, tx, sub.ID, questionnaireID, items, req.Files)
		if err != nil {
			return err
		}

		for i, a := range built.Answers {
			m, ok := a.Value.(answer.Media)
			if !ok || m.File == nil {
				continue
			}
			spec, err := answer.Lookup(a.Type)
			if err != nil {
				return err
			}
			key, err := storage.SaveUpload(ctx, s.media, spec.MediaDir, m.File)
			if err != nil {
				return fmt.Errorf("store media for question %s: %w", a.QuestionID, err)
			}
			stored = append(stored, key)
			m.Path = key
			built.Answers[i].Value = m
		}

		if err := tx.InsertAnswers(ctx, built.Answers); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}

		res = Result{
			SubmissionID: sub.ID,
			Saved:        len(built.Answers),
			Received:     built.Received,
			Skipped:      built.Skipped,
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, stored)
		return Result{}, err
	}

	log.WithFields(log.Fields{
		"submission":    res.SubmissionID,
		"questionnaire": questionnaireID,
		"saved":         res.Saved,
		"received":      res.Received,
	}).Info("submission.created")
	return res, nil
}

// discard removes media stored by a submission that was rolled back.
func (s *Service) discard(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var errs error
	for _, key := range keys {
		if err := s.media.Delete(ctx, key); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		log.Errorf("submission.discard_media: %s", errs)
	}
}
