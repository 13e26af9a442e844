package scoring

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/model"
)

func matchingHeadingQuestion() *model.Question {
	return &model.Question{
		ID: uuid.New(),
		Body: &model.MatchingHeading{
			Headings: []model.Option{
				{ID: "A", Text: "A history of engineering"},
				{ID: "B", Text: "Public reception"},
				{ID: "C", Text: "Construction challenges"},
			},
			Items: []model.QuestionItem{
				{ID: "p1", Prompt: "Paragraph 1"},
				{ID: "p2", Prompt: "Paragraph 2"},
				{ID: "p3", Prompt: "Paragraph 3"},
			},
		},
		AnswerKey: []model.AnswerKeyEntry{
			{ItemID: "p1", Value: "A"},
			{ItemID: "p2", Value: "B"},
			{ItemID: "p3", Value: "B"},
		},
	}
}

func TestExactMatchScoring(t *testing.T) {
	reg := NewRegistry()
	q := matchingHeadingQuestion()

	res, err := reg.Score(q, map[string]string{"p1": "A", "p2": "C", "p3": "B"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.ItemCount != 3 {
		t.Errorf("ItemCount = %d, want 3", res.ItemCount)
	}
	if got := res.Correct(); got != 2 {
		t.Errorf("Correct = %d, want 2", got)
	}
	if res.PerItemCorrect["p2"] {
		t.Error("p2 scored correct for a wrong heading")
	}
}

func TestExactMatchIsCaseSensitive(t *testing.T) {
	reg := NewRegistry()
	q := matchingHeadingQuestion()

	res, err := reg.Score(q, map[string]string{"p1": "a", "p2": "B", "p3": "B"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.PerItemCorrect["p1"] {
		t.Error("lowercase submission matched an uppercase key under exact matching")
	}
	if got := res.Correct(); got != 2 {
		t.Errorf("Correct = %d, want 2", got)
	}
}

func TestScoringIgnoresDisplayOrder(t *testing.T) {
	reg := NewRegistry()
	q := matchingHeadingQuestion()
	answers := map[string]string{"p1": "A", "p2": "B", "p3": "B"}

	base, err := reg.Score(q, answers)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	// Reverse the heading pool, as a shuffled presentation might.
	body := q.Body.(*model.MatchingHeading)
	for i, j := 0, len(body.Headings)-1; i < j; i, j = i+1, j-1 {
		body.Headings[i], body.Headings[j] = body.Headings[j], body.Headings[i]
	}

	permuted, err := reg.Score(q, answers)
	if err != nil {
		t.Fatalf("Score after permutation: %v", err)
	}
	if base.Correct() != permuted.Correct() {
		t.Errorf("score changed with display order: %d vs %d", base.Correct(), permuted.Correct())
	}
	if base.Correct() != 3 {
		t.Errorf("Correct = %d, want 3", base.Correct())
	}
}

func TestUnansweredItemsScoreIncorrect(t *testing.T) {
	reg := NewRegistry()
	q := matchingHeadingQuestion()

	res, err := reg.Score(q, map[string]string{"p1": "A"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.ItemCount != 3 {
		t.Errorf("ItemCount = %d, want 3", res.ItemCount)
	}
	if got := res.Correct(); got != 1 {
		t.Errorf("Correct = %d, want 1", got)
	}
	for _, id := range []string{"p2", "p3"} {
		if _, present := res.PerItemCorrect[id]; !present {
			t.Errorf("unanswered item %q missing from per-item outcome", id)
		}
	}
}

func TestFreeTextNormalization(t *testing.T) {
	reg := NewRegistry()
	q := &model.Question{
		ID:   uuid.New(),
		Body: &model.SummaryCompletion{Summary: "The tower in ____ opened in ____."},
		AnswerKey: []model.AnswerKeyEntry{
			{ItemID: "b1", Value: "Paris"},
			{ItemID: "b2", Value: "1889"},
		},
	}

	cases := []struct {
		name      string
		submitted map[string]string
		want      int
	}{
		{"case and whitespace ignored", map[string]string{"b1": " paris ", "b2": "1889"}, 2},
		{"interior difference still wrong", map[string]string{"b1": "par is", "b2": "1889"}, 1},
		{"empty submission", map[string]string{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := reg.Score(q, tc.submitted)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got := res.Correct(); got != tc.want {
				t.Errorf("Correct = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestShortAnswerCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	q := &model.Question{
		ID: uuid.New(),
		Body: &model.ShortAnswer{
			Items: []model.QuestionItem{{ID: "s1", Prompt: "Who designed the tower?"}},
		},
		AnswerKey: []model.AnswerKeyEntry{{ItemID: "s1", Value: "Gustave Eiffel"}},
	}

	res, err := reg.Score(q, map[string]string{"s1": "gustave eiffel"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got := res.Correct(); got != 1 {
		t.Errorf("Correct = %d, want 1", got)
	}
}

func TestMissingKeyEntryFailsScoring(t *testing.T) {
	reg := NewRegistry()
	q := matchingHeadingQuestion()
	q.AnswerKey = q.AnswerKey[:2] // p3 has no key entry

	_, err := reg.Score(q, map[string]string{"p1": "A", "p2": "B", "p3": "B"})
	var se *apperr.ScoringError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want ScoringError", err)
	}
	if se.ItemID != "p3" {
		t.Errorf("ScoringError.ItemID = %q, want %q", se.ItemID, "p3")
	}
}

func TestSubjectiveKindsNotScored(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.scorers[model.QuestionKind("essay")]; ok {
		t.Fatal("unexpected scorer for unknown kind")
	}
	q := &model.Question{ID: uuid.New(), Body: &model.SummaryCompletion{Summary: "____"}}
	q.AnswerKey = []model.AnswerKeyEntry{{ItemID: "b1", Value: "x"}}
	if _, err := reg.Score(q, nil); err != nil {
		t.Fatalf("summary_completion should be scored: %v", err)
	}
}

func TestScoreTestAggregates(t *testing.T) {
	reg := NewRegistry()
	q1 := matchingHeadingQuestion()
	q2 := &model.Question{
		ID: uuid.New(),
		Body: &model.TrueFalseNotGiven{
			Items: []model.QuestionItem{
				{ID: "t1", Prompt: "The tower was unpopular at first."},
				{ID: "t2", Prompt: "It was the tallest structure in 1900."},
			},
		},
		AnswerKey: []model.AnswerKeyEntry{
			{ItemID: "t1", Value: "true"},
			{ItemID: "t2", Value: "not_given"},
		},
	}
	test := &model.Test{
		Skill: model.SkillReading,
		Sections: []model.Section{
			{Title: "Passage 1", Questions: []model.Question{*q1}},
			{Title: "Passage 2", Questions: []model.Question{*q2}},
		},
	}
	answers := model.AnswerMap{
		q1.ID: {"p1": "A", "p2": "B", "p3": "A"},
		q2.ID: {"t1": "true", "t2": "false"},
	}

	ts, err := ScoreTest(reg, test, answers)
	if err != nil {
		t.Fatalf("ScoreTest: %v", err)
	}
	if ts.Total != 5 {
		t.Errorf("Total = %d, want 5", ts.Total)
	}
	if ts.Score != 3 {
		t.Errorf("Score = %d, want 3", ts.Score)
	}
	if ts.Score < 0 || ts.Score > ts.Total {
		t.Errorf("score %d outside [0, %d]", ts.Score, ts.Total)
	}
	if len(ts.PerQuestion) != 2 {
		t.Errorf("PerQuestion has %d entries, want 2", len(ts.PerQuestion))
	}
}

func TestScoreTestAbortsOnBrokenKey(t *testing.T) {
	reg := NewRegistry()
	q := matchingHeadingQuestion()
	q.AnswerKey = nil
	test := &model.Test{
		Skill:    model.SkillReading,
		Sections: []model.Section{{Title: "Passage 1", Questions: []model.Question{*q}}},
	}

	_, err := ScoreTest(reg, test, model.AnswerMap{})
	var se *apperr.ScoringError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want ScoringError", err)
	}
}
