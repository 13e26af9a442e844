package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestQuestionJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		q    Question
	}{
		{
			"matching_heading",
			Question{
				ID:          uuid.New(),
				Requirement: "Choose the correct heading for paragraphs {{start}}-{{end}}.",
				Body: &MatchingHeading{
					Headings: []Option{{ID: "i", Text: "Origins"}, {ID: "ii", Text: "Decline"}},
					Items:    []QuestionItem{{ID: "p1", Prompt: "Paragraph A"}},
				},
				AnswerKey: []AnswerKeyEntry{{ItemID: "p1", Value: "i", Justification: "First sentence."}},
			},
		},
		{
			"multiple_choice",
			Question{
				ID: uuid.New(),
				Body: &MultipleChoice{
					Items: []QuestionItem{{
						ID:      "q1",
						Prompt:  "What caused the delay?",
						Options: []Option{{ID: "a", Text: "Weather"}, {ID: "b", Text: "Funding"}},
					}},
				},
				AnswerKey: []AnswerKeyEntry{{ItemID: "q1", Value: "b"}},
			},
		},
		{
			"summary_completion",
			Question{
				ID:   uuid.New(),
				Body: &SummaryCompletion{Summary: "Built in ____, restored in ____."},
				AnswerKey: []AnswerKeyEntry{
					{ItemID: "b1", Value: "1889"},
					{ItemID: "b2", Value: "1980"},
				},
			},
		},
		{
			"diagram_completion",
			Question{
				ID: uuid.New(),
				Body: &DiagramCompletion{
					ImageKey: "diagrams/turbine.png",
					Items:    []QuestionItem{{ID: "d1", Prompt: "Label 1"}},
				},
				AnswerKey: []AnswerKeyEntry{{ItemID: "d1", Value: "rotor"}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.q)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if !strings.Contains(string(data), `"kind":"`+tc.name+`"`) {
				t.Errorf("encoded question missing kind tag %q: %s", tc.name, data)
			}

			var got Question
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Kind() != tc.q.Kind() {
				t.Errorf("Kind = %q, want %q", got.Kind(), tc.q.Kind())
			}
			if got.ID != tc.q.ID {
				t.Errorf("ID = %s, want %s", got.ID, tc.q.ID)
			}
			if len(got.AnswerKey) != len(tc.q.AnswerKey) {
				t.Errorf("AnswerKey length = %d, want %d", len(got.AnswerKey), len(tc.q.AnswerKey))
			}
			wantIDs := tc.q.ItemIDs()
			gotIDs := got.ItemIDs()
			if len(gotIDs) != len(wantIDs) {
				t.Fatalf("ItemIDs = %v, want %v", gotIDs, wantIDs)
			}
			for i := range wantIDs {
				if gotIDs[i] != wantIDs[i] {
					t.Errorf("ItemIDs[%d] = %q, want %q", i, gotIDs[i], wantIDs[i])
				}
			}
		})
	}
}

func TestQuestionUnmarshalRejectsUnknownKind(t *testing.T) {
	data := []byte(`{"id":"` + uuid.NewString() + `","kind":"essay","body":{}}`)
	var q Question
	if err := json.Unmarshal(data, &q); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestQuestionValidate(t *testing.T) {
	valid := func() Question {
		return Question{
			ID: uuid.New(),
			Body: &TrueFalseNotGiven{
				Items: []QuestionItem{{ID: "t1", Prompt: "s1"}, {ID: "t2", Prompt: "s2"}},
			},
			AnswerKey: []AnswerKeyEntry{
				{ItemID: "t1", Value: "true"},
				{ItemID: "t2", Value: "not_given"},
			},
		}
	}

	t.Run("valid passes", func(t *testing.T) {
		q := valid()
		if err := q.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("dangling key id", func(t *testing.T) {
		q := valid()
		q.AnswerKey = append(q.AnswerKey, AnswerKeyEntry{ItemID: "t9", Value: "false"})
		if err := q.Validate(); err == nil {
			t.Fatal("expected error for key entry referencing nonexistent item")
		}
	})

	t.Run("duplicate item id", func(t *testing.T) {
		q := valid()
		q.Body = &TrueFalseNotGiven{
			Items: []QuestionItem{{ID: "t1", Prompt: "s1"}, {ID: "t1", Prompt: "s2"}},
		}
		if err := q.Validate(); err == nil {
			t.Fatal("expected error for duplicate item id")
		}
	})

	t.Run("multiple_choice needs options", func(t *testing.T) {
		q := Question{
			ID:        uuid.New(),
			Body:      &MultipleChoice{Items: []QuestionItem{{ID: "q1", Prompt: "?"}}},
			AnswerKey: []AnswerKeyEntry{{ItemID: "q1", Value: "a"}},
		}
		if err := q.Validate(); err == nil {
			t.Fatal("expected error for item with fewer than two options")
		}
	})
}

func TestSummaryBlankCountMustMatchKey(t *testing.T) {
	q := Question{
		ID:   uuid.New(),
		Body: &SummaryCompletion{Summary: "One blank: ____."},
		AnswerKey: []AnswerKeyEntry{
			{ItemID: "b1", Value: "x"},
			{ItemID: "b2", Value: "y"},
		},
	}
	if err := q.Validate(); err == nil {
		t.Fatal("expected error when key entries outnumber blank markers")
	}

	q.AnswerKey = q.AnswerKey[:1]
	if err := q.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := q.ItemIDs(); len(got) != 1 || got[0] != "b1" {
		t.Errorf("ItemIDs = %v, want [b1]", got)
	}
}

func TestTestValidateSkillRules(t *testing.T) {
	heading := Question{
		ID: uuid.New(),
		Body: &MatchingHeading{
			Headings: []Option{{ID: "i", Text: "h"}},
			Items:    []QuestionItem{{ID: "p1", Prompt: "A"}},
		},
		AnswerKey: []AnswerKeyEntry{{ItemID: "p1", Value: "i"}},
	}

	t.Run("matching_heading needs reading", func(t *testing.T) {
		test := &Test{
			Skill:    SkillListening,
			Sections: []Section{{Title: "Part 1", AudioKey: "audio/p1.mp3", Questions: []Question{heading}}},
		}
		if err := test.Validate(); err == nil {
			t.Fatal("expected error for paragraph matching on a listening test")
		}
	})

	t.Run("writing section needs prompt, no questions", func(t *testing.T) {
		test := &Test{Skill: SkillWriting, Sections: []Section{{Title: "Task 1"}}}
		if err := test.Validate(); err == nil {
			t.Fatal("expected error for writing section without a task prompt")
		}
		test.Sections[0].TaskPrompt = "Describe the chart."
		test.Sections[0].Questions = []Question{heading}
		if err := test.Validate(); err == nil {
			t.Fatal("expected error for writing section carrying questions")
		}
		test.Sections[0].Questions = nil
		if err := test.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("duplicate question ids across sections", func(t *testing.T) {
		test := &Test{
			Skill: SkillReading,
			Sections: []Section{
				{Title: "P1", Questions: []Question{heading}},
				{Title: "P2", Questions: []Question{heading}},
			},
		}
		if err := test.Validate(); err == nil {
			t.Fatal("expected error for duplicate question id")
		}
	})
}

func TestAnswerableItems(t *testing.T) {
	test := &Test{
		Skill: SkillReading,
		Sections: []Section{
			{
				Questions: []Question{
					{
						ID: uuid.New(),
						Body: &TrueFalseNotGiven{Items: []QuestionItem{
							{ID: "t1"}, {ID: "t2"}, {ID: "t3"},
						}},
					},
					{
						ID:        uuid.New(),
						Body:      &SummaryCompletion{Summary: "____ and ____"},
						AnswerKey: []AnswerKeyEntry{{ItemID: "b1", Value: "x"}, {ItemID: "b2", Value: "y"}},
					},
				},
			},
		},
	}
	if got := test.AnswerableItems(); got != 5 {
		t.Errorf("AnswerableItems = %d, want 5", got)
	}
}
