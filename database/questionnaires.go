package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbolis/field-survey/model"
)

// CreateQuestionnaire inserts qn and its questions, in order, filling in ids and timestamps.
func (q queries) CreateQuestionnaire(ctx context.Context, qn *model.Questionnaire) error {
	if qn.ID == uuid.Nil {
		qn.ID = uuid.New()
	}
	now := time.Now().UTC()
	qn.CreatedAt, qn.UpdatedAt = now, now

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO questionnaire (id, creator_id, title, description, link, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		qn.ID, qn.CreatorID, qn.Title, qn.Description, qn.Link, qn.CreatedAt, qn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert questionnaire: %w", err)
	}

	for i := range qn.Questions {
		qs := &qn.Questions[i]
		if qs.ID == uuid.Nil {
			qs.ID = uuid.New()
		}
		qs.QuestionnaireID = qn.ID
		qs.Position = i
		qs.CreatedAt, qs.UpdatedAt = now, now

		_, err = q.q.ExecContext(ctx, `
			INSERT INTO question (
				id, questionnaire_id, position, question, question_type, answer_type,
				is_required, required_text, options, placeholder, hint, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			qs.ID, qs.QuestionnaireID, qs.Position, qs.Question, qs.QuestionType, qs.AnswerType,
			qs.IsRequired, qs.RequiredText, qs.Options, qs.Placeholder, qs.Hint, qs.CreatedAt, qs.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return nil
}

const questionnaireColumns = `id, creator_id, title, description, link, created_at, updated_at`

func scanQuestionnaire(row interface{ Scan(...any) error }) (qn model.Questionnaire, err error) {
	err = row.Scan(&qn.ID, &qn.CreatorID, &qn.Title, &qn.Description, &qn.Link, &qn.CreatedAt, &qn.UpdatedAt)
	return
}

// ListQuestionnaires returns every questionnaire header, newest first.
func (q queries) ListQuestionnaires(ctx context.Context) ([]model.Questionnaire, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+questionnaireColumns+`
		FROM questionnaire
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	qns := []model.Questionnaire{}
	for rows.Next() {
		qn, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		qns = append(qns, qn)
	}
	return qns, rows.Err()
}

// FindQuestionnaire returns the questionnaire header, or sql.ErrNoRows.
func (q queries) FindQuestionnaire(ctx context.Context, id uuid.UUID) (model.Questionnaire, error) {
	return scanQuestionnaire(q.q.QueryRowContext(ctx, `
		SELECT `+questionnaireColumns+`
		FROM questionnaire
		WHERE id = ?`,
		id,
	))
}

// GetQuestionnaire returns the questionnaire with its questions and logic rules.
func (q queries) GetQuestionnaire(ctx context.Context, id uuid.UUID) (qn model.Questionnaire, err error) {
	qn, err = q.FindQuestionnaire(ctx, id)
	if err != nil {
		return
	}
	if qn.Questions, err = q.ListQuestions(ctx, id); err != nil {
		return
	}
	if qn.SkipLogics, err = q.ListSkipLogics(ctx, id); err != nil {
		return
	}
	qn.FilterLogics, err = q.ListFilterLogics(ctx, id)
	return
}

// DeleteQuestionnaire removes the questionnaire and, by cascade, everything that depends on it.
func (q queries) DeleteQuestionnaire(ctx context.Context, id uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM questionnaire WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return sql.ErrNoRows
	}
	return nil
}

func (q queries) ListQuestions(ctx context.Context, questionnaireID uuid.UUID) ([]model.Question, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT
			id, questionnaire_id, position, question, question_type, answer_type,
			is_required, required_text, options, placeholder, hint, created_at, updated_at
		FROM question
		WHERE questionnaire_id = ?
		ORDER BY position`,
		questionnaireID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	qs := []model.Question{}
	for rows.Next() {
		var x model.Question
		err = rows.Scan(
			&x.ID, &x.QuestionnaireID, &x.Position, &x.Question, &x.QuestionType, &x.AnswerType,
			&x.IsRequired, &x.RequiredText, &x.Options, &x.Placeholder, &x.Hint, &x.CreatedAt, &x.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		qs = append(qs, x)
	}
	return qs, rows.Err()
}

func (q queries) CreateSkipLogic(ctx context.Context, sl *model.SkipLogic) error {
	if sl.ID == uuid.Nil {
		sl.ID = uuid.New()
	}
	now := time.Now().UTC()
	sl.CreatedAt, sl.UpdatedAt = now, now
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO skip_logic (id, question_id, answer_value, display_question_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sl.ID, sl.QuestionID, sl.AnswerValue, sl.DisplayQuestionID, sl.CreatedAt, sl.UpdatedAt,
	)
	return err
}

// ListSkipLogics returns the skip rules whose controlling question belongs to the questionnaire.
func (q queries) ListSkipLogics(ctx context.Context, questionnaireID uuid.UUID) ([]model.SkipLogic, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT s.id, s.question_id, s.answer_value, s.display_question_id, s.created_at, s.updated_at
		FROM skip_logic s
		INNER JOIN question q ON (q.id = s.question_id)
		WHERE q.questionnaire_id = ?
		ORDER BY s.created_at, s.id`,
		questionnaireID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sls := []model.SkipLogic{}
	for rows.Next() {
		var sl model.SkipLogic
		err = rows.Scan(&sl.ID, &sl.QuestionID, &sl.AnswerValue, &sl.DisplayQuestionID, &sl.CreatedAt, &sl.UpdatedAt)
		if err != nil {
			return nil, err
		}
		sls = append(sls, sl)
	}
	return sls, rows.Err()
}

func (q queries) CreateFilterLogic(ctx context.Context, fl *model.FilterLogic) error {
	if fl.ID == uuid.Nil {
		fl.ID = uuid.New()
	}
	now := time.Now().UTC()
	fl.CreatedAt, fl.UpdatedAt = now, now
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO filter_logic (id, question_id, source_question_id, mapping, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		fl.ID, fl.QuestionID, fl.SourceQuestionID, fl.Mapping, fl.CreatedAt, fl.UpdatedAt,
	)
	return err
}

// ListFilterLogics returns the filter rules whose filtered question belongs to the questionnaire.
func (q queries) ListFilterLogics(ctx context.Context, questionnaireID uuid.UUID) ([]model.FilterLogic, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT f.id, f.question_id, f.source_question_id, f.mapping, f.created_at, f.updated_at
		FROM filter_logic f
		INNER JOIN question q ON (q.id = f.question_id)
		WHERE q.questionnaire_id = ?
		ORDER BY f.created_at, f.id`,
		questionnaireID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fls := []model.FilterLogic{}
	for rows.Next() {
		var fl model.FilterLogic
		err = rows.Scan(&fl.ID, &fl.QuestionID, &fl.SourceQuestionID, &fl.Mapping, &fl.CreatedAt, &fl.UpdatedAt)
		if err != nil {
			return nil, err
		}
		fls = append(fls, fl)
	}
	return fls, rows.Err()
}
