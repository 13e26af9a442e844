package presentation

import (
	"math/rand"

	"github.com/poil524/final-project-sub000/internal/model"
)

// shuffledBody returns a copy of the body with its selectable candidate
// lists permuted uniformly at random (Fisher–Yates). Item order is kept
// as authored; only the candidate pools a student picks from move.
// Kinds with no candidate pool are returned as-is.
func shuffledBody(b model.QuestionBody) model.QuestionBody {
	switch v := b.(type) {
	case *model.MatchingHeading:
		return &model.MatchingHeading{
			Headings: shuffleOptions(v.Headings),
			Items:    v.Items,
		}
	case *model.MatchingSentenceEndings:
		return &model.MatchingSentenceEndings{
			Endings: shuffleOptions(v.Endings),
			Items:   v.Items,
		}
	case *model.MatchingFeatures:
		return &model.MatchingFeatures{
			FeatureTitle: v.FeatureTitle,
			Features:     shuffleOptions(v.Features),
			Items:        v.Items,
		}
	case *model.MultipleChoice:
		items := make([]model.QuestionItem, len(v.Items))
		for i, it := range v.Items {
			it.Options = shuffleOptions(it.Options)
			items[i] = it
		}
		return &model.MultipleChoice{Items: items}
	default:
		return b
	}
}

func shuffleOptions(opts []model.Option) []model.Option {
	out := make([]model.Option, len(opts))
	copy(out, opts)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
