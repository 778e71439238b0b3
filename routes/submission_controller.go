package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/mbolis/field-survey/answer"
	"github.com/mbolis/field-survey/app"
	"github.com/mbolis/field-survey/httpx"
	"github.com/mbolis/field-survey/log"
	"github.com/mbolis/field-survey/routes/middlewares"
	"github.com/mbolis/field-survey/submission"
)

const msgSubmissionCreated = "Submission successful"

var errBadFillDuration = errors.New("fill_duration must be seconds, a duration like 1m30s, or HH:MM:SS")

// ParseFillDuration reads seconds ("90", "90.5"), a Go duration ("1m30s") or a clock
// duration ("[HH:]MM:SS[.fff]"). An empty string is no duration.
func ParseFillDuration(s string) (*time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if d, err = secondsDuration(secs); err != nil {
			return nil, err
		}
	} else if pd, err := time.ParseDuration(s); err == nil {
		d = pd
	} else {
		parts := strings.Split(s, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, errBadFillDuration
		}
		secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
		if err != nil || secs >= 60 {
			return nil, errBadFillDuration
		}
		if d, err = secondsDuration(secs); err != nil {
			return nil, err
		}
		for i, unit := range []time.Duration{time.Minute, time.Hour}[:len(parts)-1] {
			n, err := strconv.ParseInt(parts[len(parts)-2-i], 10, 64)
			if err != nil || n < 0 || (unit == time.Minute && len(parts) == 3 && n >= 60) {
				return nil, errBadFillDuration
			}
			if n > int64(math.MaxInt64-d)/int64(unit) {
				return nil, errBadFillDuration
			}
			d += time.Duration(n) * unit
		}
	}

	if d < 0 {
		return nil, errBadFillDuration
	}
	return &d, nil
}

// secondsDuration converts a non-negative number of seconds, rejecting values time.Duration cannot hold.
func secondsDuration(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || secs < 0 || secs >= float64(math.MaxInt64/int64(time.Second)) {
		return 0, errBadFillDuration
	}
	return time.Duration(secs * float64(time.Second)), nil
}

type bulkJSONBody struct {
	Questionnaire string          `json:"questionnaire"`
	Answers       json.RawMessage `json:"answers"`
	FillDuration  json.RawMessage `json:"fill_duration"`
}

// jsonText returns the content of a JSON string, or the raw JSON text of any other value.
func jsonText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// readBulkRequest reads a bulk submission from a multipart, urlencoded or JSON body.
func readBulkRequest(r *http.Request, maxMemory int64) (req submission.Request, err error) {
	var fillDuration string

	ct, _, _ := mime.ParseMediaType(r.Header.Get("content-type"))
	if ct == "application/json" {
		var body bulkJSONBody
		if err = render.DecodeJSON(r.Body, &body); err != nil {
			return req, fmt.Errorf("%w: %v", errBadBody, err)
		}
		req.QuestionnaireID = body.Questionnaire
		req.Answers = jsonText(body.Answers)
		fillDuration = jsonText(body.FillDuration)
	} else {
		err = r.ParseMultipartForm(maxMemory)
		if err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, fmt.Errorf("%w: %v", errBadBody, err)
		}
		req.QuestionnaireID = r.FormValue("questionnaire")
		req.Answers = r.FormValue("answers")
		fillDuration = r.FormValue("fill_duration")

		if r.MultipartForm != nil {
			req.Files = answer.Files{}
			for key, fhs := range r.MultipartForm.File {
				if len(fhs) > 0 {
					req.Files[key] = fhs[0]
				}
			}
		}
	}

	req.FillDuration, err = ParseFillDuration(fillDuration)
	return req, err
}

var errBadBody = errors.New("malformed request body")

func BulkSubmit(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readBulkRequest(r, app.Config.MaxMemory)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_form", "%s", err)
			return
		}
		req.Enumerator = middlewares.UserID(r)

		res, err := app.Submissions.Submit(r.Context(), req)
		if err != nil {
			var serr *submission.Error
			errors.As(err, &serr)
			switch submission.KindOf(err) {
			case submission.KindNotFound:
				httpx.LogNotFound(w, r, "submit.questionnaire", req.QuestionnaireID, serr.Msg)
			case submission.KindValidation:
				httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "submit.validate", "%s", serr.Msg)
			default:
				httpx.LogInternalError(w, r, "db.submit", err)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"detail":           msgSubmissionCreated,
			"submission_id":    res.SubmissionID,
			"answers_saved":    res.Saved,
			"answers_received": res.Received,
			"skipped":          res.Skipped,
		})
	}
}

func GetSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		sub, err := app.Store.GetSubmission(r.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_submission", id, "Submission not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_submission", err)
			return
		}

		answers, err := app.ListAnswers(r.Context(), id)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_submission.answers", err)
			return
		}

		render.JSON(w, r, newSubmissionView(sub, answers))
	}
}
