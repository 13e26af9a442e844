// Package presentation builds the student-facing view of an approved
// test. The view is disposable: option lists are reshuffled on every
// fetch and the arrangement is never persisted. Answer keys and
// transcripts never leave this package's output, and every option
// keeps its stable id, so the arrangement a student happened to see
// can never influence scoring.
package presentation

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/poil524/final-project-sub000/internal/model"
)

// TestView is the payload a student receives when fetching a test.
type TestView struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Skill    model.SkillType `json:"skill"`
	Sections []SectionView   `json:"sections"`
}

// SectionView mirrors a section without its listening transcript.
type SectionView struct {
	Title      string          `json:"title"`
	Passages   []model.Passage `json:"passages,omitempty"`
	AudioKey   string          `json:"audio_key,omitempty"`
	TaskPrompt string          `json:"task_prompt,omitempty"`
	ImageKeys  []string        `json:"image_keys,omitempty"`
	Questions  []QuestionView  `json:"questions,omitempty"`
}

// QuestionView is one question with its requirement template resolved
// and its candidate lists freshly shuffled. It carries no answer key.
type QuestionView struct {
	ID          uuid.UUID          `json:"id"`
	Kind        model.QuestionKind `json:"kind"`
	Requirement string             `json:"requirement,omitempty"`
	Body        interface{}        `json:"body"`
}

// SummaryBody is the rendered form of a summary question: the template
// plus the blank ids submitted answers must be keyed by, in template
// order. The key values never appear here.
type SummaryBody struct {
	Summary string  `json:"summary"`
	Blanks  []Blank `json:"blanks"`
}

// Blank identifies one summary blank.
type Blank struct {
	ID string `json:"id"`
}

// StudentView renders a fresh presentation of the test. Each call
// produces an independent arrangement.
func StudentView(t *model.Test) *TestView {
	view := &TestView{
		ID:       t.ID,
		Name:     t.Name,
		Skill:    t.Skill,
		Sections: make([]SectionView, len(t.Sections)),
	}
	next := 1 // running question number across the whole test
	for si := range t.Sections {
		sec := &t.Sections[si]
		sv := SectionView{
			Title:      sec.Title,
			Passages:   sec.Passages,
			AudioKey:   sec.AudioKey,
			TaskPrompt: sec.TaskPrompt,
			ImageKeys:  sec.ImageKeys,
		}
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			count := len(q.ItemIDs())
			qv := QuestionView{
				ID:          q.ID,
				Kind:        q.Kind(),
				Requirement: resolveRange(q.Requirement, next, next+count-1),
				Body:        renderBody(q),
			}
			next += count
			sv.Questions = append(sv.Questions, qv)
		}
		view.Sections[si] = sv
	}
	return view
}

// renderBody shuffles candidate pools where the question has any. A
// summary body carries no item ids of its own, so the blanks are
// attached here from the answer key order.
func renderBody(q *model.Question) interface{} {
	if sc, ok := q.Body.(*model.SummaryCompletion); ok {
		ids := q.ItemIDs()
		blanks := make([]Blank, 0, len(ids))
		for _, id := range ids {
			blanks = append(blanks, Blank{ID: id})
		}
		return SummaryBody{Summary: sc.Summary, Blanks: blanks}
	}
	return shuffledBody(q.Body)
}

// resolveRange substitutes the {{start}} and {{end}} placeholders with
// the running question-number range this question occupies.
func resolveRange(template string, start, end int) string {
	r := strings.NewReplacer(
		"{{start}}", strconv.Itoa(start),
		"{{end}}", strconv.Itoa(end),
	)
	return r.Replace(template)
}
