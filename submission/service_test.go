package submission

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/field-survey/answer"
	"github.com/mbolis/field-survey/database"
	"github.com/mbolis/field-survey/model"
	"github.com/mbolis/field-survey/storage"
)

type fixture struct {
	db         *database.Store
	media      *storage.Local
	service    *Service
	enumerator model.User
	qn         model.Questionnaire
}

func (f fixture) question(i int) string {
	return f.qn.Questions[i].ID.String()
}

func (f fixture) counts(t *testing.T) (submissions, answers int) {
	t.Helper()
	submissions, answers, err := f.db.CountSubmissions(context.Background(), f.qn.ID)
	require.NoError(t, err)
	return
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	media, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	f := fixture{db: db, media: media, service: NewService(FromDB(db), media)}

	f.enumerator = model.User{Email: "enum@example.org", Role: model.RoleEnumerator}
	require.NoError(t, db.CreateUser(ctx, &f.enumerator, []byte("hash")))

	f.qn = model.Questionnaire{
		CreatorID: f.enumerator.ID,
		Title:     "Field visit",
		Questions: []model.Question{
			{Question: "Name", QuestionType: model.QuestionText, AnswerType: model.ShortText},
			{Question: "When", QuestionType: model.QuestionText, AnswerType: model.Timestamp},
			{Question: "Where", QuestionType: model.QuestionGeometry, AnswerType: model.Point},
			{Question: "Photo", QuestionType: model.QuestionFile, AnswerType: model.Image},
		},
	}
	require.NoError(t, db.CreateQuestionnaire(ctx, &f.qn))
	return f
}

func (f fixture) request(answers string) Request {
	return Request{
		QuestionnaireID: f.qn.ID.String(),
		Enumerator:      f.enumerator.ID,
		Answers:         answers,
	}
}

func uploadedFile(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File[field][0]
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	d := 2 * time.Minute

	req := f.request(`[
		{"question":"` + f.question(0) + `","answer_text":"Ada"},
		{"question":"` + f.question(1) + `","answer_timestamp":"2024-03-01T10:00:00Z"},
		{"question":"` + f.question(2) + `","answer_point":"12.5,77.6"},
		{"question":"` + f.question(3) + `"}
	]`)
	req.FillDuration = &d
	req.Files = answer.Files{f.question(3): uploadedFile(t, f.question(3), "photo.png", pngHeader)}

	res, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.SubmissionID)
	assert.Equal(t, 4, res.Saved)
	assert.Equal(t, 4, res.Received)
	assert.Empty(t, res.Skipped)

	sub, err := f.db.GetSubmission(context.Background(), res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, f.enumerator.ID, sub.EnumeratorID)
	require.NotNil(t, sub.FillDuration)
	assert.Equal(t, d, *sub.FillDuration)

	answers, err := f.db.ListAnswers(context.Background(), res.SubmissionID)
	require.NoError(t, err)
	require.Len(t, answers, 4)

	media := answers[3].Value.(answer.Media)
	assert.Regexp(t, `^images/[0-9a-f-]{36}\.png$`, media.Path)
	blob, err := os.ReadFile(filepath.Join(f.media.Root, filepath.FromSlash(media.Path)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, blob)
}

func TestSubmitTwiceCreatesTwoSubmissions(t *testing.T) {
	f := newFixture(t)
	req := f.request(`[{"question":"` + f.question(0) + `","answer_text":"Ada"}]`)

	first, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)
	second, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.SubmissionID, second.SubmissionID)
	subs, answers := f.counts(t)
	assert.Equal(t, 2, subs)
	assert.Equal(t, 2, answers)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  Request
		kind Kind
		msg  string
	}{
		{"missing questionnaire", Request{Enumerator: f.enumerator.ID, Answers: "[]"}, KindValidation, MsgRequired},
		{"missing answers", Request{QuestionnaireID: f.qn.ID.String(), Enumerator: f.enumerator.ID}, KindValidation, MsgRequired},
		{"missing enumerator", Request{QuestionnaireID: f.qn.ID.String(), Answers: "[]"}, KindValidation, MsgEnumerator},
		{"answers not json", f.request("{oops"), KindValidation, MsgInvalidJSON},
		{"answers not an array", f.request(`{"question":"x"}`), KindValidation, MsgInvalidJSON},
		{"answers null", f.request("null"), KindValidation, MsgInvalidJSON},
		{"questionnaire not a uuid", Request{QuestionnaireID: "42", Enumerator: f.enumerator.ID, Answers: "[]"}, KindNotFound, MsgNotFound},
		{"unknown questionnaire", Request{QuestionnaireID: uuid.NewString(), Enumerator: f.enumerator.ID, Answers: "[]"}, KindNotFound, MsgNotFound},
	}

	for _, test := range tests {
		_, err := f.service.Submit(context.Background(), test.req)
		require.Error(t, err, test.name)
		assert.Equal(t, test.kind, KindOf(err), test.name)

		var serr *Error
		require.ErrorAs(t, err, &serr, test.name)
		assert.Equal(t, test.msg, serr.Msg, test.name)
	}

	subs, answers := f.counts(t)
	assert.Zero(t, subs)
	assert.Zero(t, answers)
}

func TestSubmitSkipsUnusableItems(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.Submit(context.Background(), f.request(`[
		{"question":"`+uuid.NewString()+`","answer_text":"stranger"},
		{"question":"`+f.question(2)+`","answer_point":"somewhere"},
		{"question":"`+f.question(0)+`","answer_text":"kept"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 3, res.Received)
	assert.Len(t, res.Skipped, 2)

	subs, answers := f.counts(t)
	assert.Equal(t, 1, subs)
	assert.Equal(t, 1, answers)
}

func TestSubmitEmptyAnswers(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.Submit(context.Background(), f.request(`[]`))
	require.NoError(t, err)
	assert.Zero(t, res.Saved)

	subs, _ := f.counts(t)
	assert.Equal(t, 1, subs)
}

func TestSubmitMalformedTimestampRollsBack(t *testing.T) {
	f := newFixture(t)

	req := f.request(`[
		{"question":"` + f.question(0) + `","answer_text":"Ada"},
		{"question":"` + f.question(3) + `"},
		{"question":"` + f.question(1) + `","answer_timestamp":"last tuesday"}
	]`)
	req.Files = answer.Files{f.question(3): uploadedFile(t, f.question(3), "photo.png", pngHeader)}

	_, err := f.service.Submit(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrBadTimestamp)
	assert.Zero(t, KindOf(err))

	subs, answers := f.counts(t)
	assert.Zero(t, subs)
	assert.Zero(t, answers)

	leftovers, err := filepath.Glob(filepath.Join(f.media.Root, "images", "*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

// failingStore runs the real transaction but fails every answer insert.
type failingStore struct {
	Store
}

type failingTx struct {
	Tx
}

var errInsert = errors.New("disk full")

func (s failingStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.Store.InTx(ctx, func(tx Tx) error {
		return fn(failingTx{tx})
	})
}

func (failingTx) InsertAnswers(context.Context, []answer.Answer) error {
	return errInsert
}

func TestSubmitInsertFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	service := NewService(failingStore{FromDB(f.db)}, f.media)

	_, err := service.Submit(context.Background(), f.request(`[
		{"question":"`+f.question(0)+`","answer_text":"Ada"}
	]`))
	assert.ErrorIs(t, err, errInsert)

	subs, answers := f.counts(t)
	assert.Zero(t, subs)
	assert.Zero(t, answers)
}
