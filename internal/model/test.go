package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/poil524/final-project-sub000/internal/apperr"
)

// SkillType identifies which of the four exam skills a test measures.
// It is fixed at creation time: the set of valid question kinds and
// section fields depends on it.
type SkillType string

const (
	SkillReading   SkillType = "reading"
	SkillListening SkillType = "listening"
	SkillWriting   SkillType = "writing"
	SkillSpeaking  SkillType = "speaking"
)

// Objective reports whether results for this skill are scored
// automatically against an answer key.
func (s SkillType) Objective() bool {
	return s == SkillReading || s == SkillListening
}

// Valid reports whether s is one of the four known skills.
func (s SkillType) Valid() bool {
	switch s {
	case SkillReading, SkillListening, SkillWriting, SkillSpeaking:
		return true
	}
	return false
}

// Test is the authored exam aggregate. It is created unapproved and
// becomes visible to students only after an administrator approves it.
type Test struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Skill        SkillType `json:"skill"`
	CreatorID    int       `json:"creator_id"`
	Approved     bool      `json:"approved"`
	AttemptCount int       `json:"attempt_count"`
	Sections     []Section `json:"sections"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Section groups passages/audio/task material with its questions.
type Section struct {
	Title string `json:"title"`
	// Passages is set for reading tests. Labels ("A", "B", ...) double as
	// answer values for the paragraph-matching question kinds.
	Passages []Passage `json:"passages,omitempty"`
	// AudioKey and Transcript are set for listening tests. The key is an
	// opaque media-storage reference, never a URL.
	AudioKey   string `json:"audio_key,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	// TaskPrompt is set for writing and speaking tests.
	TaskPrompt string     `json:"task_prompt,omitempty"`
	ImageKeys  []string   `json:"image_keys,omitempty"`
	Questions  []Question `json:"questions,omitempty"`
}

// Passage is one labeled paragraph of a reading section.
type Passage struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Name     string    `json:"name" binding:"required,min=3,max=255"`
	Skill    SkillType `json:"skill" binding:"required,oneof=reading listening writing speaking"`
	Sections []Section `json:"sections"`
}

// UpdateTestRequest is the payload for replacing a test's content.
// The skill is intentionally absent: it is immutable after creation.
type UpdateTestRequest struct {
	Name     string    `json:"name" binding:"required,min=3,max=255"`
	Sections []Section `json:"sections"`
}

// Validate checks the structural invariants of the whole aggregate.
// A test that fails validation is never persisted.
func (t *Test) Validate() error {
	if !t.Skill.Valid() {
		return apperr.Validation("unknown skill %q", t.Skill)
	}
	seen := make(map[uuid.UUID]bool)
	for si := range t.Sections {
		sec := &t.Sections[si]
		if err := sec.validate(t.Skill, si); err != nil {
			return err
		}
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			if seen[q.ID] {
				return apperr.Validation("section %d: duplicate question id %s", si, q.ID)
			}
			seen[q.ID] = true
			if err := q.Validate(); err != nil {
				return fmt.Errorf("section %d: %w", si, err)
			}
			if !kindAllowed(t.Skill, q.Kind()) {
				return apperr.Validation("section %d: question kind %q is not valid for a %s test", si, q.Kind(), t.Skill)
			}
		}
	}
	return nil
}

func (s *Section) validate(skill SkillType, idx int) error {
	switch skill {
	case SkillReading:
		labels := make(map[string]bool, len(s.Passages))
		for _, p := range s.Passages {
			if p.Label == "" {
				return apperr.Validation("section %d: passage without a label", idx)
			}
			if labels[p.Label] {
				return apperr.Validation("section %d: duplicate passage label %q", idx, p.Label)
			}
			labels[p.Label] = true
		}
	case SkillWriting, SkillSpeaking:
		if s.TaskPrompt == "" {
			return apperr.Validation("section %d: %s section requires a task prompt", idx, skill)
		}
		if len(s.Questions) > 0 {
			return apperr.Validation("section %d: %s sections carry a task prompt, not questions", idx, skill)
		}
	}
	return nil
}

// kindAllowed restricts question kinds to the skills they make sense for.
// Paragraph-oriented matching needs reading passages; everything else
// objective works for both reading and listening.
func kindAllowed(skill SkillType, kind QuestionKind) bool {
	switch skill {
	case SkillReading:
		return true
	case SkillListening:
		return kind != KindMatchingHeading && kind != KindMatchingParagraphInformation
	default:
		return false
	}
}

// AnswerableItems counts the gradable items across all questions.
// This is the denominator of an objective test's score.
func (t *Test) AnswerableItems() int {
	n := 0
	for _, sec := range t.Sections {
		for i := range sec.Questions {
			n += len(sec.Questions[i].ItemIDs())
		}
	}
	return n
}

// QuestionByID looks up a question anywhere in the aggregate.
func (t *Test) QuestionByID(id uuid.UUID) *Question {
	for si := range t.Sections {
		for qi := range t.Sections[si].Questions {
			if t.Sections[si].Questions[qi].ID == id {
				return &t.Sections[si].Questions[qi]
			}
		}
	}
	return nil
}
