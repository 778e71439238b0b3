package logic

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/field-survey/model"
)

func TestDetectCycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	edges := []model.SkipLogic{
		{QuestionID: a, DisplayQuestionID: b},
		{QuestionID: b, DisplayQuestionID: c},
	}

	assert.True(t, DetectCycle(edges, c, a))
	assert.True(t, DetectCycle(edges, b, b))
	assert.False(t, DetectCycle(edges, a, c))
	assert.False(t, DetectCycle(nil, a, b))
}

func byQuestion(states []QuestionState) map[uuid.UUID]QuestionState {
	m := map[uuid.UUID]QuestionState{}
	for _, s := range states {
		m[s.ID] = s
	}
	return m
}

func TestEvaluateSkipChain(t *testing.T) {
	owns := model.Question{ID: uuid.New(), QuestionType: model.QuestionChoice, Options: "yes,no"}
	kind := model.Question{ID: uuid.New(), QuestionType: model.QuestionText}
	age := model.Question{ID: uuid.New(), QuestionType: model.QuestionNumber}
	form := Form{
		Questions: []model.Question{owns, kind, age},
		Skips: []model.SkipLogic{
			{QuestionID: owns.ID, AnswerValue: "yes", DisplayQuestionID: kind.ID},
			{QuestionID: kind.ID, AnswerValue: "car", DisplayQuestionID: age.ID},
		},
	}

	states, err := Evaluate(form, nil)
	require.NoError(t, err)
	got := byQuestion(states)
	assert.True(t, got[owns.ID].Visible)
	assert.False(t, got[kind.ID].Visible)
	assert.False(t, got[age.ID].Visible)

	states, err = Evaluate(form, map[uuid.UUID]string{owns.ID: "yes", kind.ID: "car"})
	require.NoError(t, err)
	got = byQuestion(states)
	assert.True(t, got[kind.ID].Visible)
	assert.True(t, got[age.ID].Visible)

	// a stale answer to a hidden question does not reveal its dependents
	states, err = Evaluate(form, map[uuid.UUID]string{owns.ID: "no", kind.ID: "car"})
	require.NoError(t, err)
	got = byQuestion(states)
	assert.False(t, got[kind.ID].Visible)
	assert.False(t, got[age.ID].Visible)
}

func TestEvaluateFilters(t *testing.T) {
	region := model.Question{ID: uuid.New(), QuestionType: model.QuestionChoice, Options: "north,south"}
	town := model.Question{ID: uuid.New(), QuestionType: model.QuestionChoice, Options: "a,b,c,d"}
	form := Form{
		Questions: []model.Question{region, town},
		Filters: []model.FilterLogic{
			{QuestionID: town.ID, SourceQuestionID: region.ID, Mapping: "north:a,b;south:c"},
		},
	}

	states, err := Evaluate(form, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, byQuestion(states)[town.ID].Choices)

	states, err = Evaluate(form, map[uuid.UUID]string{region.ID: "north"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, byQuestion(states)[town.ID].Choices)

	states, err = Evaluate(form, map[uuid.UUID]string{region.ID: "south,north"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, byQuestion(states)[town.ID].Choices)

	states, err = Evaluate(form, map[uuid.UUID]string{region.ID: "west"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, byQuestion(states)[town.ID].Choices)
}

func TestEvaluateBadMapping(t *testing.T) {
	src := model.Question{ID: uuid.New(), QuestionType: model.QuestionText}
	dst := model.Question{ID: uuid.New(), QuestionType: model.QuestionChoice, Options: "x"}
	form := Form{
		Questions: []model.Question{src, dst},
		Filters:   []model.FilterLogic{{QuestionID: dst.ID, SourceQuestionID: src.ID, Mapping: "broken"}},
	}

	_, err := Evaluate(form, map[uuid.UUID]string{src.ID: "v"})
	assert.ErrorIs(t, err, ErrMalformedMapping)
}
