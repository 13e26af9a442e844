package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnswerMap holds submitted values keyed by question id, then by item
// id. Submitted values address items by stable id only; the display
// order a student saw is irrelevant to this shape.
type AnswerMap map[uuid.UUID]map[string]string

// TestResult is one completed attempt, owned by the student. Objective
// skills get score/total at submission time; subjective skills get a
// band and rubric feedback written back by the grading integration.
type TestResult struct {
	ID        uuid.UUID `json:"id"`
	StudentID int       `json:"student_id"`
	TestID    uuid.UUID `json:"test_id"`
	// TestName and Skill are denormalized so results stay readable even
	// if the test is later edited or deleted.
	TestName  string          `json:"test_name"`
	Skill     SkillType       `json:"skill"`
	Score     int             `json:"score"`
	Total     int             `json:"total"`
	Band      *float64        `json:"band,omitempty"`
	Feedback  json.RawMessage `json:"feedback,omitempty"`
	Answers   AnswerMap       `json:"answers,omitempty"`
	Responses []TaskResponse  `json:"responses,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// TaskResponse is the submitted content for one writing or speaking
// section: essay text, or media keys of recorded audio.
type TaskResponse struct {
	Section   int      `json:"section"`
	Text      string   `json:"text,omitempty"`
	AudioKeys []string `json:"audio_keys,omitempty"`
}

// SubmitRequest is the payload for submitting a test attempt. Answers
// is used by objective skills, Responses by writing/speaking.
type SubmitRequest struct {
	Answers   AnswerMap      `json:"answers"`
	Responses []TaskResponse `json:"responses"`
}
