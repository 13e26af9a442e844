package scoring

import (
	"github.com/google/uuid"

	"github.com/poil524/final-project-sub000/internal/model"
)

// TestScore is the aggregated outcome of scoring a whole attempt.
type TestScore struct {
	Score       int
	Total       int
	PerQuestion map[uuid.UUID]Result
}

// ScoreTest scores every question of an objective test against one
// answer-key snapshot. A question with zero gradable items contributes
// nothing to the total; a question with no submitted answers still
// counts its items into the total. Any scoring error aborts the whole
// attempt rather than silently awarding zero.
func ScoreTest(reg *Registry, t *model.Test, answers model.AnswerMap) (TestScore, error) {
	ts := TestScore{PerQuestion: make(map[uuid.UUID]Result)}
	for si := range t.Sections {
		sec := &t.Sections[si]
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			res, err := reg.Score(q, answers[q.ID])
			if err != nil {
				return TestScore{}, err
			}
			ts.Score += res.Correct()
			ts.Total += res.ItemCount
			ts.PerQuestion[q.ID] = res
		}
	}
	return ts, nil
}
