package logic

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mbolis/field-survey/model"
)

// Form is the part of a questionnaire the evaluator needs.
type Form struct {
	Questions []model.Question
	Skips     []model.SkipLogic
	Filters   []model.FilterLogic
}

type QuestionState struct {
	ID      uuid.UUID `json:"question"`
	Visible bool      `json:"visible"`
	Choices []string  `json:"choices"`
}

// DetectCycle reports whether adding a skip edge from -> to would close a cycle in edges.
func DetectCycle(edges []model.SkipLogic, from, to uuid.UUID) bool {
	if from == to {
		return true
	}
	next := map[uuid.UUID][]uuid.UUID{}
	for _, e := range edges {
		next[e.QuestionID] = append(next[e.QuestionID], e.DisplayQuestionID)
	}

	seen := map[uuid.UUID]bool{to: true}
	stack := []uuid.UUID{to}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range next[n] {
			if m == from {
				return true
			}
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	return false
}

const (
	unknown = iota
	resolving
	visible
	hidden
)

// Evaluate resolves which questions are shown and which choices they offer, given the
// answers recorded so far (keyed by question id).
//
// A question targeted by skip rules is visible only if one of those rules has a visible
// controlling question whose answer equals the rule's value. Choices of a question start
// from its options and are narrowed by every filter rule whose visible source question has
// an answer listed in the rule's mapping.
func Evaluate(form Form, answers map[uuid.UUID]string) ([]QuestionState, error) {
	skipsTo := map[uuid.UUID][]model.SkipLogic{}
	for _, s := range form.Skips {
		skipsTo[s.DisplayQuestionID] = append(skipsTo[s.DisplayQuestionID], s)
	}

	state := map[uuid.UUID]int{}
	var isVisible func(id uuid.UUID) bool
	isVisible = func(id uuid.UUID) bool {
		switch state[id] {
		case visible:
			return true
		case hidden, resolving:
			return false
		}
		rules := skipsTo[id]
		if len(rules) == 0 {
			state[id] = visible
			return true
		}

		state[id] = resolving
		result := hidden
		for _, r := range rules {
			answer, ok := answers[r.QuestionID]
			if ok && strings.TrimSpace(answer) == strings.TrimSpace(r.AnswerValue) && isVisible(r.QuestionID) {
				result = visible
				break
			}
		}
		state[id] = result
		return result == visible
	}

	filtersOn := map[uuid.UUID][]model.FilterLogic{}
	for _, f := range form.Filters {
		filtersOn[f.QuestionID] = append(filtersOn[f.QuestionID], f)
	}

	states := make([]QuestionState, 0, len(form.Questions))
	for _, q := range form.Questions {
		st := QuestionState{ID: q.ID, Visible: isVisible(q.ID)}
		if q.QuestionType == model.QuestionChoice {
			choices := SplitOptions(q.Options)
			for _, f := range filtersOn[q.ID] {
				answer, ok := answers[f.SourceQuestionID]
				if !ok || !isVisible(f.SourceQuestionID) {
					continue
				}
				m, err := ParseMapping(f.Mapping)
				if err != nil {
					return nil, fmt.Errorf("filter logic %s: %w", f.ID, err)
				}
				if allowed, ok := allowedChoices(m, answer); ok {
					choices = intersect(choices, allowed)
				}
			}
			st.Choices = choices
		}
		states = append(states, st)
	}
	return states, nil
}

// allowedChoices looks the answer up in the mapping; multi-choice answers ("a,b") allow the
// union of their parts' choices.
func allowedChoices(m Mapping, answer string) ([]string, bool) {
	if choices, ok := m.Choices(answer); ok {
		return choices, true
	}
	var union []string
	found := false
	for _, part := range SplitOptions(answer) {
		if choices, ok := m.Choices(part); ok {
			found = true
			union = append(union, choices...)
		}
	}
	return union, found
}

func intersect(choices, allowed []string) []string {
	keep := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		keep[a] = true
	}
	out := []string{}
	for _, c := range choices {
		if keep[c] {
			out = append(out, c)
		}
	}
	return out
}
