// Package scoring implements the per-kind scoring strategies for
// objective question types. Correctness is decided purely by stable
// item ids against the answer key; display order never matters.
package scoring

import (
	"strings"

	"github.com/poil524/final-project-sub000/internal/apperr"
	"github.com/poil524/final-project-sub000/internal/model"
)

// Result is the outcome of scoring one question.
type Result struct {
	// PerItemCorrect maps every gradable item id to whether the
	// submitted value matched the answer key. Unanswered items are
	// present and false.
	PerItemCorrect map[string]bool
	// ItemCount is the number of gradable items, i.e. this question's
	// contribution to the test total.
	ItemCount int
}

// Correct counts the items answered correctly.
func (r Result) Correct() int {
	n := 0
	for _, ok := range r.PerItemCorrect {
		if ok {
			n++
		}
	}
	return n
}

// Scorer is one question-kind scoring strategy.
type Scorer interface {
	Score(q *model.Question, submitted map[string]string) (Result, error)
}

// Registry dispatches questions to the strategy registered for their
// kind. Writing and speaking tasks are deliberately absent: they are
// graded by the external integration, not here.
type Registry struct {
	scorers map[model.QuestionKind]Scorer
}

// NewRegistry builds the registry with every objective kind wired to
// its matching strategy.
func NewRegistry() *Registry {
	exact := exactMatchScorer{}
	free := freeTextScorer{}
	return &Registry{scorers: map[model.QuestionKind]Scorer{
		model.KindMatchingHeading:              exact,
		model.KindMatchingParagraphInformation: exact,
		model.KindMatchingSentenceEndings:      exact,
		model.KindMatchingFeatures:             exact,
		model.KindMultipleChoice:               exact,
		model.KindTrueFalseNotGiven:            exact,
		model.KindYesNoNotGiven:                exact,
		model.KindTableCompletion:              exact,
		model.KindDiagramCompletion:            exact,
		model.KindShortAnswer:                  free,
		model.KindSummaryCompletion:            free,
	}}
}

// Score runs the registered strategy for the question's kind.
func (r *Registry) Score(q *model.Question, submitted map[string]string) (Result, error) {
	s, ok := r.scorers[q.Kind()]
	if !ok {
		return Result{}, apperr.Validation("question kind %q is not auto-scored", q.Kind())
	}
	return s.Score(q, submitted)
}

// exactMatchScorer requires byte equality between the submitted value
// and the answer key value. No normalization: these kinds submit
// option ids, labels or fixed tokens, never prose.
type exactMatchScorer struct{}

func (exactMatchScorer) Score(q *model.Question, submitted map[string]string) (Result, error) {
	return scoreItems(q, submitted, func(sub, key string) bool {
		return sub == key
	})
}

// freeTextScorer matches natural-language input: case-insensitive with
// surrounding whitespace trimmed on both sides.
type freeTextScorer struct{}

func (freeTextScorer) Score(q *model.Question, submitted map[string]string) (Result, error) {
	return scoreItems(q, submitted, func(sub, key string) bool {
		return strings.EqualFold(strings.TrimSpace(sub), strings.TrimSpace(key))
	})
}

func scoreItems(q *model.Question, submitted map[string]string, match func(sub, key string) bool) (Result, error) {
	ids := q.ItemIDs()
	key := q.KeyByItem()

	res := Result{
		PerItemCorrect: make(map[string]bool, len(ids)),
		ItemCount:      len(ids),
	}
	for _, id := range ids {
		entry, ok := key[id]
		if !ok {
			return Result{}, &apperr.ScoringError{QuestionID: q.ID.String(), ItemID: id}
		}
		sub, answered := submitted[id]
		res.PerItemCorrect[id] = answered && match(sub, entry.Value)
	}
	return res, nil
}
