package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/poil524/final-project-sub000/internal/apperr"
)

// QuestionKind tags the question variant. Each kind has its own body
// struct carrying only the fields that variant needs.
type QuestionKind string

const (
	KindMatchingHeading              QuestionKind = "matching_heading"
	KindMatchingParagraphInformation QuestionKind = "matching_paragraph_information"
	KindMatchingSentenceEndings      QuestionKind = "matching_sentence_endings"
	KindMatchingFeatures             QuestionKind = "matching_features"
	KindMultipleChoice               QuestionKind = "multiple_choice"
	KindTrueFalseNotGiven            QuestionKind = "true_false_not_given"
	KindYesNoNotGiven                QuestionKind = "yes_no_not_given"
	KindShortAnswer                  QuestionKind = "short_answer"
	KindSummaryCompletion            QuestionKind = "summary_completion"
	KindTableCompletion              QuestionKind = "table_completion"
	KindDiagramCompletion            QuestionKind = "diagram_completion"
)

// FreeText reports whether submitted values for this kind are matched
// case-insensitively with surrounding whitespace trimmed. All other
// kinds require byte equality against the answer key.
func (k QuestionKind) FreeText() bool {
	return k == KindShortAnswer || k == KindSummaryCompletion
}

// SummaryBlankMarker is the literal placeholder embedded in a summary
// template. The number of markers defines the question's item count.
const SummaryBlankMarker = "____"

// Option is one selectable candidate (a heading, a sentence ending, a
// feature, a multiple-choice option). The ID is the stable identity the
// answer key refers to; display order is never meaningful.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionItem is one gradable sub-unit of a question, identified by a
// stable id that submitted answers and answer-key entries address.
type QuestionItem struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	// Options is populated for multiple_choice items only.
	Options []Option `json:"options,omitempty"`
}

// AnswerKeyEntry is the correct value for one item id.
type AnswerKeyEntry struct {
	ItemID        string `json:"item_id"`
	Value         string `json:"value"`
	Justification string `json:"justification,omitempty"`
}

// Question is a tagged union: the Body holds exactly one of the variant
// structs below, selected by its kind. The answer key lives beside the
// body so that a "multiple_choice without options" or a "summary with
// explicit items" is unrepresentable.
type Question struct {
	ID uuid.UUID
	// Requirement is the instruction template shown above the question.
	// It may contain {{start}} and {{end}} placeholders resolved at
	// render time to the running question-number range.
	Requirement string
	Body        QuestionBody
	AnswerKey   []AnswerKeyEntry
}

// QuestionBody is implemented by every question variant.
type QuestionBody interface {
	Kind() QuestionKind
	// itemIDs lists the variant's gradable item ids in authored order.
	// summary_completion returns nil here; its items derive from the
	// answer key (see Question.ItemIDs).
	itemIDs() []string
	validate() error
}

// Kind returns the variant tag of the question's body.
func (q *Question) Kind() QuestionKind { return q.Body.Kind() }

// ItemIDs lists the gradable item ids. For summary_completion the ids
// come from the answer key entries, one per blank marker.
func (q *Question) ItemIDs() []string {
	if _, ok := q.Body.(*SummaryCompletion); ok {
		ids := make([]string, len(q.AnswerKey))
		for i, e := range q.AnswerKey {
			ids[i] = e.ItemID
		}
		return ids
	}
	return q.Body.itemIDs()
}

// KeyByItem indexes the answer key by item id.
func (q *Question) KeyByItem() map[string]AnswerKeyEntry {
	m := make(map[string]AnswerKeyEntry, len(q.AnswerKey))
	for _, e := range q.AnswerKey {
		m[e.ItemID] = e
	}
	return m
}

// Validate enforces the authoring-time invariants: a well-formed body,
// answer-key ids that resolve to real items, and for summaries an
// answer-key length equal to the number of blank markers.
func (q *Question) Validate() error {
	if q.ID == uuid.Nil {
		return apperr.Validation("question without an id")
	}
	if q.Body == nil {
		return apperr.Validation("question %s has no body", q.ID)
	}
	if err := q.Body.validate(); err != nil {
		return fmt.Errorf("question %s (%s): %w", q.ID, q.Kind(), err)
	}

	if sc, ok := q.Body.(*SummaryCompletion); ok {
		blanks := strings.Count(sc.Summary, SummaryBlankMarker)
		if blanks == 0 {
			return apperr.Validation("question %s: summary template has no %q markers", q.ID, SummaryBlankMarker)
		}
		if len(q.AnswerKey) != blanks {
			return apperr.Validation("question %s: summary has %d blanks but %d answer key entries", q.ID, blanks, len(q.AnswerKey))
		}
		seen := make(map[string]bool, len(q.AnswerKey))
		for _, e := range q.AnswerKey {
			if e.ItemID == "" {
				return apperr.Validation("question %s: answer key entry without item id", q.ID)
			}
			if seen[e.ItemID] {
				return apperr.Validation("question %s: duplicate answer key entry for item %q", q.ID, e.ItemID)
			}
			seen[e.ItemID] = true
		}
		return nil
	}

	items := q.Body.itemIDs()
	idSet := make(map[string]bool, len(items))
	for _, id := range items {
		if id == "" {
			return apperr.Validation("question %s: item without an id", q.ID)
		}
		if idSet[id] {
			return apperr.Validation("question %s: duplicate item id %q", q.ID, id)
		}
		idSet[id] = true
	}
	seen := make(map[string]bool, len(q.AnswerKey))
	for _, e := range q.AnswerKey {
		if !idSet[e.ItemID] {
			return apperr.Validation("question %s: answer key references nonexistent item %q", q.ID, e.ItemID)
		}
		if seen[e.ItemID] {
			return apperr.Validation("question %s: duplicate answer key entry for item %q", q.ID, e.ItemID)
		}
		seen[e.ItemID] = true
	}
	return nil
}

// ─── Variants ───────────────────────────────────────────────────────

// MatchingHeading: match each paragraph item to one heading from a
// shared candidate list. Answer values are heading option ids.
type MatchingHeading struct {
	Headings []Option       `json:"headings"`
	Items    []QuestionItem `json:"items"`
}

func (b *MatchingHeading) Kind() QuestionKind { return KindMatchingHeading }
func (b *MatchingHeading) itemIDs() []string  { return itemIDs(b.Items) }
func (b *MatchingHeading) validate() error {
	if len(b.Headings) == 0 {
		return apperr.Validation("matching_heading requires heading candidates")
	}
	return validateOptions(b.Headings)
}

// MatchingParagraphInformation: locate which passage contains each
// statement. Answer values are passage labels ("A", "B", ...).
type MatchingParagraphInformation struct {
	Items []QuestionItem `json:"items"`
}

func (b *MatchingParagraphInformation) Kind() QuestionKind {
	return KindMatchingParagraphInformation
}
func (b *MatchingParagraphInformation) itemIDs() []string { return itemIDs(b.Items) }
func (b *MatchingParagraphInformation) validate() error   { return requireItems(b.Items) }

// MatchingSentenceEndings: complete each sentence start with one ending
// from a shared candidate list.
type MatchingSentenceEndings struct {
	Endings []Option       `json:"endings"`
	Items   []QuestionItem `json:"items"`
}

func (b *MatchingSentenceEndings) Kind() QuestionKind { return KindMatchingSentenceEndings }
func (b *MatchingSentenceEndings) itemIDs() []string  { return itemIDs(b.Items) }
func (b *MatchingSentenceEndings) validate() error {
	if len(b.Endings) == 0 {
		return apperr.Validation("matching_sentence_endings requires ending candidates")
	}
	return validateOptions(b.Endings)
}

// MatchingFeatures: attribute each statement to one feature (a person,
// a theory, a time period) from a shared list.
type MatchingFeatures struct {
	FeatureTitle string         `json:"feature_title,omitempty"`
	Features     []Option       `json:"features"`
	Items        []QuestionItem `json:"items"`
}

func (b *MatchingFeatures) Kind() QuestionKind { return KindMatchingFeatures }
func (b *MatchingFeatures) itemIDs() []string  { return itemIDs(b.Items) }
func (b *MatchingFeatures) validate() error {
	if len(b.Features) == 0 {
		return apperr.Validation("matching_features requires a feature list")
	}
	return validateOptions(b.Features)
}

// MultipleChoice: each item carries its own option list; the answer
// value is the chosen option id.
type MultipleChoice struct {
	Items []QuestionItem `json:"items"`
}

func (b *MultipleChoice) Kind() QuestionKind { return KindMultipleChoice }
func (b *MultipleChoice) itemIDs() []string  { return itemIDs(b.Items) }
func (b *MultipleChoice) validate() error {
	if err := requireItems(b.Items); err != nil {
		return err
	}
	for _, it := range b.Items {
		if len(it.Options) < 2 {
			return apperr.Validation("multiple_choice item %q needs at least two options", it.ID)
		}
		if err := validateOptions(it.Options); err != nil {
			return err
		}
	}
	return nil
}

// TrueFalseNotGiven: statements judged against a reading passage.
// Answer values are "true", "false" or "not_given".
type TrueFalseNotGiven struct {
	Items []QuestionItem `json:"items"`
}

func (b *TrueFalseNotGiven) Kind() QuestionKind { return KindTrueFalseNotGiven }
func (b *TrueFalseNotGiven) itemIDs() []string  { return itemIDs(b.Items) }
func (b *TrueFalseNotGiven) validate() error    { return requireItems(b.Items) }

// YesNoNotGiven: statements judged against the writer's claims.
// Answer values are "yes", "no" or "not_given".
type YesNoNotGiven struct {
	Items []QuestionItem `json:"items"`
}

func (b *YesNoNotGiven) Kind() QuestionKind { return KindYesNoNotGiven }
func (b *YesNoNotGiven) itemIDs() []string  { return itemIDs(b.Items) }
func (b *YesNoNotGiven) validate() error    { return requireItems(b.Items) }

// ShortAnswer: free-text answers limited to a few words.
type ShortAnswer struct {
	WordLimit int            `json:"word_limit,omitempty"`
	Items     []QuestionItem `json:"items"`
}

func (b *ShortAnswer) Kind() QuestionKind { return KindShortAnswer }
func (b *ShortAnswer) itemIDs() []string  { return itemIDs(b.Items) }
func (b *ShortAnswer) validate() error    { return requireItems(b.Items) }

// SummaryCompletion: a prose template whose blank markers define the
// item set. There is no explicit item list; the answer key carries the
// stable id for each blank, in template order.
type SummaryCompletion struct {
	Summary string `json:"summary"`
}

func (b *SummaryCompletion) Kind() QuestionKind { return KindSummaryCompletion }
func (b *SummaryCompletion) itemIDs() []string  { return nil }
func (b *SummaryCompletion) validate() error {
	if strings.TrimSpace(b.Summary) == "" {
		return apperr.Validation("summary_completion requires a summary template")
	}
	return nil
}

// TableCompletion: a display table with gaps; each gap is an item.
type TableCompletion struct {
	Columns []string       `json:"columns,omitempty"`
	Rows    [][]string     `json:"rows,omitempty"`
	Items   []QuestionItem `json:"items"`
}

func (b *TableCompletion) Kind() QuestionKind { return KindTableCompletion }
func (b *TableCompletion) itemIDs() []string  { return itemIDs(b.Items) }
func (b *TableCompletion) validate() error    { return requireItems(b.Items) }

// DiagramCompletion: label a diagram image; the image is referenced by
// an opaque media key.
type DiagramCompletion struct {
	ImageKey string         `json:"image_key"`
	Items    []QuestionItem `json:"items"`
}

func (b *DiagramCompletion) Kind() QuestionKind { return KindDiagramCompletion }
func (b *DiagramCompletion) itemIDs() []string  { return itemIDs(b.Items) }
func (b *DiagramCompletion) validate() error {
	if b.ImageKey == "" {
		return apperr.Validation("diagram_completion requires an image key")
	}
	return requireItems(b.Items)
}

// ─── JSON encoding ──────────────────────────────────────────────────

type questionJSON struct {
	ID          uuid.UUID        `json:"id"`
	Kind        QuestionKind     `json:"kind"`
	Requirement string           `json:"requirement,omitempty"`
	Body        json.RawMessage  `json:"body"`
	AnswerKey   []AnswerKeyEntry `json:"answer_key,omitempty"`
}

// MarshalJSON flattens the union into {kind, body} with the kind tag
// beside the variant payload.
func (q Question) MarshalJSON() ([]byte, error) {
	if q.Body == nil {
		return nil, fmt.Errorf("question %s: marshal without a body", q.ID)
	}
	body, err := json.Marshal(q.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(questionJSON{
		ID:          q.ID,
		Kind:        q.Kind(),
		Requirement: q.Requirement,
		Body:        body,
		AnswerKey:   q.AnswerKey,
	})
}

// UnmarshalJSON dispatches on the kind tag to the matching variant.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	body, err := newBody(raw.Kind)
	if err != nil {
		return err
	}
	if len(raw.Body) > 0 {
		if err := json.Unmarshal(raw.Body, body); err != nil {
			return fmt.Errorf("question %s: decode %s body: %w", raw.ID, raw.Kind, err)
		}
	}
	q.ID = raw.ID
	q.Requirement = raw.Requirement
	q.Body = body
	q.AnswerKey = raw.AnswerKey
	return nil
}

func newBody(kind QuestionKind) (QuestionBody, error) {
	switch kind {
	case KindMatchingHeading:
		return &MatchingHeading{}, nil
	case KindMatchingParagraphInformation:
		return &MatchingParagraphInformation{}, nil
	case KindMatchingSentenceEndings:
		return &MatchingSentenceEndings{}, nil
	case KindMatchingFeatures:
		return &MatchingFeatures{}, nil
	case KindMultipleChoice:
		return &MultipleChoice{}, nil
	case KindTrueFalseNotGiven:
		return &TrueFalseNotGiven{}, nil
	case KindYesNoNotGiven:
		return &YesNoNotGiven{}, nil
	case KindShortAnswer:
		return &ShortAnswer{}, nil
	case KindSummaryCompletion:
		return &SummaryCompletion{}, nil
	case KindTableCompletion:
		return &TableCompletion{}, nil
	case KindDiagramCompletion:
		return &DiagramCompletion{}, nil
	}
	return nil, fmt.Errorf("unknown question kind %q", kind)
}

// ─── helpers ────────────────────────────────────────────────────────

func itemIDs(items []QuestionItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func requireItems(items []QuestionItem) error {
	if len(items) == 0 {
		return apperr.Validation("question requires at least one item")
	}
	return nil
}

func validateOptions(opts []Option) error {
	seen := make(map[string]bool, len(opts))
	for _, o := range opts {
		if o.ID == "" {
			return apperr.Validation("option without an id")
		}
		if seen[o.ID] {
			return apperr.Validation("duplicate option id %q", o.ID)
		}
		seen[o.ID] = true
	}
	return nil
}
