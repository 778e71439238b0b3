package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbolis/field-survey/answer"
	"github.com/mbolis/field-survey/model"
)

// BatchSize is the number of answer rows written by one INSERT statement.
const BatchSize = 500

func (q queries) CreateSubmission(ctx context.Context, s *model.Submission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	var fillDuration sql.NullInt64
	if s.FillDuration != nil {
		fillDuration = sql.NullInt64{Int64: s.FillDuration.Microseconds(), Valid: true}
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO submission (id, questionnaire_id, enumerator_id, fill_duration, submitted_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.QuestionnaireID, s.EnumeratorID, fillDuration, s.SubmittedAt,
	)
	return err
}

// InsertAnswers writes the answers with multi-row INSERTs of at most BatchSize rows each.
func (q queries) InsertAnswers(ctx context.Context, answers []answer.Answer) error {
	for start := 0; start < len(answers); start += BatchSize {
		end := start + BatchSize
		if end > len(answers) {
			end = len(answers)
		}
		if err := q.insertAnswerBatch(ctx, answers[start:end]); err != nil {
			return fmt.Errorf("insert answers %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func (q queries) insertAnswerBatch(ctx context.Context, batch []answer.Answer) error {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(answerColumns)), ", ") + ")"

	var stmt strings.Builder
	stmt.WriteString("INSERT INTO answer (" + strings.Join(answerColumns, ", ") + ") VALUES ")
	args := make([]any, 0, len(batch)*len(answerColumns))
	for i, a := range batch {
		row, err := answerRow(a)
		if err != nil {
			return err
		}
		if i > 0 {
			stmt.WriteString(", ")
		}
		stmt.WriteString(placeholder)
		args = append(args, row...)
	}

	_, err := q.q.ExecContext(ctx, stmt.String(), args...)
	return err
}

const submissionColumns = `id, questionnaire_id, enumerator_id, fill_duration, submitted_at`

func scanSubmission(row interface{ Scan(...any) error }) (s model.Submission, err error) {
	var fillDuration sql.NullInt64
	err = row.Scan(&s.ID, &s.QuestionnaireID, &s.EnumeratorID, &fillDuration, &s.SubmittedAt)
	if err == nil && fillDuration.Valid {
		d := time.Duration(fillDuration.Int64) * time.Microsecond
		s.FillDuration = &d
	}
	return
}

// ListSubmissions returns the submissions of a questionnaire, newest first.
func (q queries) ListSubmissions(ctx context.Context, questionnaireID uuid.UUID) ([]model.Submission, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submission
		WHERE questionnaire_id = ?
		ORDER BY submitted_at DESC`,
		questionnaireID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// GetSubmission returns the submission, or sql.ErrNoRows.
func (q queries) GetSubmission(ctx context.Context, id uuid.UUID) (model.Submission, error) {
	return scanSubmission(q.q.QueryRowContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submission
		WHERE id = ?`,
		id,
	))
}

// ListAnswers returns the answers of a submission in question order.
func (q queries) ListAnswers(ctx context.Context, submissionID uuid.UUID) ([]answer.Answer, error) {
	cols := make([]string, len(answerColumns))
	for i, c := range answerColumns {
		cols[i] = "a." + c
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+strings.Join(cols, ", ")+`
		FROM answer a
		INNER JOIN question q ON (q.id = a.question_id)
		WHERE a.submission_id = ?
		ORDER BY q.position, a.id`,
		submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []answer.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// CountSubmissions returns how many submissions and answers the questionnaire holds.
func (q queries) CountSubmissions(ctx context.Context, questionnaireID uuid.UUID) (submissions, answers int, err error) {
	err = q.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM submission WHERE questionnaire_id = ?),
			(SELECT COUNT(*) FROM answer a
				INNER JOIN submission s ON (s.id = a.submission_id)
				WHERE s.questionnaire_id = ?)`,
		questionnaireID, questionnaireID,
	).Scan(&submissions, &answers)
	return
}
