package routes

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/mbolis/field-survey/app"
	"github.com/mbolis/field-survey/database"
	"github.com/mbolis/field-survey/httpx"
	"github.com/mbolis/field-survey/log"
	"github.com/mbolis/field-survey/logic"
	"github.com/mbolis/field-survey/model"
	"github.com/mbolis/field-survey/routes/middlewares"
)

const msgQuestionnaireNotFound = "Questionnaire not found"

// urlID parses the {id} URL parameter, answering 400 when it is not a UUID.
func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id", "Invalid id %q", chi.URLParam(r, "id"))
		return uuid.Nil, false
	}
	return id, true
}

func CreateQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := QuestionnaireRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err = req.Validate(); err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", validationDetail(err))
			return
		}

		creator := middlewares.UserID(r)
		if creator == uuid.Nil {
			httpx.LogStatus(w, r, http.StatusForbidden, log.DebugLevel, "auth.user_id")
			return
		}

		qn := req.Model(creator)
		qn.Link = app.Config.QuestionnaireLink(qn.ID.String())

		err = app.InTx(r.Context(), func(tx *database.Tx) error {
			return tx.CreateQuestionnaire(r.Context(), &qn)
		})
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_questionnaire", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, qn)
	}
}

func ListQuestionnaires(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qns, err := app.ListQuestionnaires(r.Context())
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questionnaires", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"questionnaires": qns,
		})
	}
}

func GetQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		qn, err := app.GetQuestionnaire(r.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_questionnaire", id, msgQuestionnaireNotFound)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questionnaire", err)
			return
		}

		render.JSON(w, r, qn)
	}
}

func DeleteQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		err := app.DeleteQuestionnaire(r.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "delete_questionnaire", id, msgQuestionnaireNotFound)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_questionnaire", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

var (
	errForeignQuestion = errors.New("question does not belong to questionnaire")
	errNotChoice       = errors.New("filtered question must be a CHOICE question")
	errSkipCycle       = errors.New("skip logic would create a cycle")
)

// questionsIn checks that every id is a question of the questionnaire and returns them by id.
func questionsIn(r *http.Request, tx *database.Tx, questionnaireID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]model.Question, error) {
	if _, err := tx.FindQuestionnaire(r.Context(), questionnaireID); err != nil {
		return nil, err
	}
	qs, err := tx.ListQuestions(r.Context(), questionnaireID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: %s", errForeignQuestion, id)
		}
	}
	return byID, nil
}

// logicError answers a failed skip or filter logic creation.
func logicError(w http.ResponseWriter, r *http.Request, code string, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httpx.LogNotFound(w, r, code, id, msgQuestionnaireNotFound)
	case errors.Is(err, errForeignQuestion),
		errors.Is(err, errNotChoice),
		errors.Is(err, errSkipCycle),
		errors.Is(err, logic.ErrMalformedMapping):
		httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, code, "%s", err)
	default:
		httpx.LogInternalError(w, r, "db."+code, err)
	}
}

func CreateSkipLogic(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		req := SkipLogicRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", validationDetail(err))
			return
		}

		sl := model.SkipLogic{
			QuestionID:        req.Question,
			AnswerValue:       req.AnswerValue,
			DisplayQuestionID: req.DisplayQuestion,
		}
		err := app.InTx(r.Context(), func(tx *database.Tx) error {
			if _, err := questionsIn(r, tx, id, sl.QuestionID, sl.DisplayQuestionID); err != nil {
				return err
			}
			existing, err := tx.ListSkipLogics(r.Context(), id)
			if err != nil {
				return err
			}
			if logic.DetectCycle(existing, sl.QuestionID, sl.DisplayQuestionID) {
				return errSkipCycle
			}
			return tx.CreateSkipLogic(r.Context(), &sl)
		})
		if err != nil {
			logicError(w, r, "insert_skip_logic", id, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, sl)
	}
}

func CreateFilterLogic(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		req := FilterLogicRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", validationDetail(err))
			return
		}

		if req.Question == req.SourceQuestion {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "source_question: must differ from question")
			return
		}

		fl := model.FilterLogic{
			QuestionID:       req.Question,
			SourceQuestionID: req.SourceQuestion,
		}
		err := app.InTx(r.Context(), func(tx *database.Tx) error {
			m, err := logic.ParseMapping(req.Mapping)
			if err != nil {
				return err
			}
			if m.Len() == 0 {
				return fmt.Errorf("%w: no entries", logic.ErrMalformedMapping)
			}
			fl.Mapping = m.Format()

			qs, err := questionsIn(r, tx, id, fl.QuestionID, fl.SourceQuestionID)
			if err != nil {
				return err
			}
			if qs[fl.QuestionID].QuestionType != model.QuestionChoice {
				return errNotChoice
			}
			return tx.CreateFilterLogic(r.Context(), &fl)
		})
		if err != nil {
			logicError(w, r, "insert_filter_logic", id, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, fl)
	}
}

func EvaluateQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		req := EvaluateRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		qn, err := app.GetQuestionnaire(r.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "evaluate_questionnaire", id, msgQuestionnaireNotFound)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questionnaire", err)
			return
		}

		states, err := logic.Evaluate(logic.Form{
			Questions: qn.Questions,
			Skips:     qn.SkipLogics,
			Filters:   qn.FilterLogics,
		}, req.Answers)
		if err != nil {
			httpx.LogInternalError(w, r, "logic.evaluate", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"questions": states,
		})
	}
}

func ListSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		_, err := app.FindQuestionnaire(r.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_submissions", id, msgQuestionnaireNotFound)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questionnaire", err)
			return
		}

		subs, err := app.Store.ListSubmissions(r.Context(), id)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_submissions", err)
			return
		}
		_, answers, err := app.CountSubmissions(r.Context(), id)
		if err != nil {
			httpx.LogInternalError(w, r, "db.count_answers", err)
			return
		}

		views := make([]submissionView, len(subs))
		for i, s := range subs {
			views[i] = newSubmissionView(s, nil)
		}
		render.JSON(w, r, map[string]any{
			"submissions": views,
			"count":       len(views),
			"answers":     answers,
		})
	}
}
