//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"

	"github.com/poil524/final-project-sub000/internal/service"
)

const defaultBaseURL = "http://localhost:8080/api/v1"

var (
	baseURL      string
	authorToken  string
	adminToken   string
	studentToken string
	testID       string
	resultID     string
	evaluationID string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-this-to-a-secure-random-string"
	}

	// The engine trusts tokens signed with its configured secret, so the
	// suite mints its own principals instead of depending on the
	// external identity service.
	var err error
	if authorToken, err = mintToken(secret, service.RoleTeacher, 101); err != nil {
		fmt.Printf("mint author token: %v\n", err)
		os.Exit(1)
	}
	if adminToken, err = mintToken(secret, service.RoleAdmin, 1); err != nil {
		fmt.Printf("mint admin token: %v\n", err)
		os.Exit(1)
	}
	if studentToken, err = mintToken(secret, service.RoleStudent, 2001); err != nil {
		fmt.Printf("mint student token: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func mintToken(secret string, role service.Role, userID int) (string, error) {
	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role:   role,
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func doRequest(t *testing.T, method, path, token string, body interface{}, wantStatus int) *apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, wantStatus, raw)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return &out
}

func readingTestPayload() map[string]interface{} {
	return map[string]interface{}{
		"name":  "E2E Academic Reading",
		"skill": "reading",
		"sections": []map[string]interface{}{{
			"title": "Passage 1",
			"passages": []map[string]string{
				{"label": "A", "text": "The Eiffel Tower was completed in 1889."},
				{"label": "B", "text": "It was initially criticized by artists."},
			},
			"questions": []map[string]interface{}{{
				"id":          "4f9c2d7e-0f3b-4a1c-9e6d-1b2a3c4d5e6f",
				"kind":        "true_false_not_given",
				"requirement": "Questions {{start}}-{{end}}: write TRUE, FALSE or NOT GIVEN.",
				"body": map[string]interface{}{
					"items": []map[string]string{
						{"id": "t1", "prompt": "The tower opened in 1889."},
						{"id": "t2", "prompt": "It was immediately popular."},
					},
				},
				"answer_key": []map[string]string{
					{"item_id": "t1", "value": "true"},
					{"item_id": "t2", "value": "false"},
				},
			}},
		}},
	}
}

func TestA_AuthorCreatesTest(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/author/tests", authorToken, readingTestPayload(), http.StatusCreated)

	var data struct {
		Test struct {
			ID       string `json:"id"`
			Approved bool   `json:"approved"`
		} `json:"test"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Test.Approved {
		t.Error("new test must start unapproved")
	}
	testID = data.Test.ID
}

func TestB_AuthoringReadRequiresCreator(t *testing.T) {
	if testID == "" {
		t.Skip("no test created")
	}
	// The creator and an admin get the authoring view with answer keys;
	// a different teacher is rejected before any key leaves the server.
	resp := doRequest(t, http.MethodGet, "/author/tests/"+testID, authorToken, nil, http.StatusOK)
	if !bytes.Contains(resp.Data, []byte("answer_key")) {
		t.Error("authoring view must include the answer key")
	}
	doRequest(t, http.MethodGet, "/author/tests/"+testID, adminToken, nil, http.StatusOK)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-this-to-a-secure-random-string"
	}
	otherAuthor, err := mintToken(secret, service.RoleTeacher, 102)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	doRequest(t, http.MethodGet, "/author/tests/"+testID, otherAuthor, nil, http.StatusForbidden)
}

func TestC_UnapprovedTestInvisibleToStudent(t *testing.T) {
	if testID == "" {
		t.Skip("no test created")
	}
	doRequest(t, http.MethodGet, "/student/tests/"+testID, studentToken, nil, http.StatusNotFound)
}

func TestD_AdminApproves(t *testing.T) {
	if testID == "" {
		t.Skip("no test created")
	}
	doRequest(t, http.MethodPost, "/admin/tests/"+testID+"/approve", adminToken, nil, http.StatusOK)

	// Second approval is a state conflict.
	doRequest(t, http.MethodPost, "/admin/tests/"+testID+"/approve", adminToken, nil, http.StatusConflict)
}

func TestE_StudentFetchesWithoutKeys(t *testing.T) {
	if testID == "" {
		t.Skip("no test created")
	}
	resp := doRequest(t, http.MethodGet, "/student/tests/"+testID, studentToken, nil, http.StatusOK)
	if bytes.Contains(resp.Data, []byte("answer_key")) {
		t.Error("student view leaks the answer key")
	}
	if !bytes.Contains(resp.Data, []byte("Questions 1-2")) {
		t.Error("requirement range placeholders not resolved")
	}
}

func TestF_StudentSubmits(t *testing.T) {
	if testID == "" {
		t.Skip("no test created")
	}
	payload := map[string]interface{}{
		"answers": map[string]map[string]string{
			"4f9c2d7e-0f3b-4a1c-9e6d-1b2a3c4d5e6f": {"t1": "true", "t2": "true"},
		},
	}
	resp := doRequest(t, http.MethodPost, "/student/tests/"+testID+"/submit", studentToken, payload, http.StatusCreated)

	var data struct {
		Result struct {
			ID    string `json:"id"`
			Score int    `json:"score"`
			Total int    `json:"total"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Result.Total != 2 || data.Result.Score != 1 {
		t.Errorf("score = %d/%d, want 1/2", data.Result.Score, data.Result.Total)
	}
	resultID = data.Result.ID
}

func TestG_ResultOwnership(t *testing.T) {
	if resultID == "" {
		t.Skip("no result")
	}
	doRequest(t, http.MethodGet, "/student/results/"+resultID, studentToken, nil, http.StatusOK)

	// Another student's token sees nothing.
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-this-to-a-secure-random-string"
	}
	otherToken, err := mintToken(secret, service.RoleStudent, 2002)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	doRequest(t, http.MethodGet, "/student/results/"+resultID, otherToken, nil, http.StatusNotFound)
}

func TestH_ObjectiveResultNotEvaluable(t *testing.T) {
	if resultID == "" {
		t.Skip("no result")
	}
	doRequest(t, http.MethodPost, "/student/results/"+resultID+"/evaluations", studentToken, nil, http.StatusBadRequest)
}

func TestI_WritingEvaluationWorkflow(t *testing.T) {
	// Author a writing test, approve it, submit an essay, then walk the
	// evaluation through pending, assigned and completed.
	payload := map[string]interface{}{
		"name":  "E2E Writing Task",
		"skill": "writing",
		"sections": []map[string]interface{}{{
			"title":       "Task 1",
			"task_prompt": "Describe the chart in at least 150 words.",
		}},
	}
	resp := doRequest(t, http.MethodPost, "/author/tests", authorToken, payload, http.StatusCreated)
	var created struct {
		Test struct {
			ID string `json:"id"`
		} `json:"test"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	writingID := created.Test.ID

	doRequest(t, http.MethodPost, "/admin/tests/"+writingID+"/approve", adminToken, nil, http.StatusOK)

	submit := map[string]interface{}{
		"responses": []map[string]interface{}{
			{"section": 0, "text": "The chart shows a steady increase in rail usage."},
		},
	}
	resp = doRequest(t, http.MethodPost, "/student/tests/"+writingID+"/submit", studentToken, submit, http.StatusCreated)
	var sub struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Data, &sub); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp = doRequest(t, http.MethodPost, "/student/results/"+sub.Result.ID+"/evaluations", studentToken, nil, http.StatusCreated)
	var ev struct {
		Evaluation struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"evaluation"`
	}
	if err := json.Unmarshal(resp.Data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Evaluation.Status != "pending" {
		t.Errorf("status = %q, want pending", ev.Evaluation.Status)
	}
	evaluationID = ev.Evaluation.ID

	// A duplicate request conflicts while the first is open.
	doRequest(t, http.MethodPost, "/student/results/"+sub.Result.ID+"/evaluations", studentToken, nil, http.StatusConflict)

	assign := map[string]int{"teacher_id": 101}
	doRequest(t, http.MethodPost, "/admin/evaluations/"+evaluationID+"/assign", adminToken, assign, http.StatusOK)
	doRequest(t, http.MethodPost, "/admin/evaluations/"+evaluationID+"/assign", adminToken, assign, http.StatusConflict)

	complete := map[string]interface{}{
		"feedback": map[string]interface{}{"band": 6.0, "comments": "Clear overview, limited range."},
	}
	doRequest(t, http.MethodPost, "/author/evaluations/"+evaluationID+"/complete", authorToken, complete, http.StatusOK)
	doRequest(t, http.MethodPost, "/author/evaluations/"+evaluationID+"/complete", authorToken, complete, http.StatusConflict)
}

// doRaw issues a request and reports the outcome without asserting the
// status, so racing goroutines can tally results themselves.
func doRaw(method, path, token string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, nil
}

func TestJ_ConcurrentEvaluationTransitions(t *testing.T) {
	// Fresh writing submission so both races start from a clean row.
	payload := map[string]interface{}{
		"name":  "E2E Writing Task 2",
		"skill": "writing",
		"sections": []map[string]interface{}{{
			"title":       "Task 2",
			"task_prompt": "Discuss both views and give your own opinion.",
		}},
	}
	resp := doRequest(t, http.MethodPost, "/author/tests", authorToken, payload, http.StatusCreated)
	var created struct {
		Test struct {
			ID string `json:"id"`
		} `json:"test"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	doRequest(t, http.MethodPost, "/admin/tests/"+created.Test.ID+"/approve", adminToken, nil, http.StatusOK)

	submit := map[string]interface{}{
		"responses": []map[string]interface{}{
			{"section": 0, "text": "Some argue cities should restrict private cars entirely."},
		},
	}
	resp = doRequest(t, http.MethodPost, "/student/tests/"+created.Test.ID+"/submit", studentToken, submit, http.StatusCreated)
	var sub struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Data, &sub); err != nil {
		t.Fatalf("decode: %v", err)
	}

	type outcome struct {
		status int
		body   []byte
		err    error
	}

	// Race two evaluation requests. The partial unique index on open
	// evaluations admits exactly one.
	requests := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s, b, err := doRaw(http.MethodPost, "/student/results/"+sub.Result.ID+"/evaluations", studentToken, nil)
			requests <- outcome{s, b, err}
		}()
	}
	var evalID string
	accepted, conflicts := 0, 0
	for i := 0; i < 2; i++ {
		o := <-requests
		if o.err != nil {
			t.Fatalf("request evaluation: %v", o.err)
		}
		switch o.status {
		case http.StatusCreated:
			accepted++
			var wrapped apiResponse
			if err := json.Unmarshal(o.body, &wrapped); err != nil {
				t.Fatalf("decode: %v", err)
			}
			var ev struct {
				Evaluation struct {
					ID string `json:"id"`
				} `json:"evaluation"`
			}
			if err := json.Unmarshal(wrapped.Data, &ev); err != nil {
				t.Fatalf("decode: %v", err)
			}
			evalID = ev.Evaluation.ID
		case http.StatusConflict:
			conflicts++
		default:
			t.Errorf("unexpected status %d: %s", o.status, o.body)
		}
	}
	if accepted != 1 || conflicts != 1 {
		t.Fatalf("racing requests: %d created, %d conflicts, want 1 and 1", accepted, conflicts)
	}

	// Race two assignments of different teachers. The status-guarded
	// update lets exactly one through.
	assigns := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		teacherID := 301 + i
		go func(id int) {
			s, b, err := doRaw(http.MethodPost, "/admin/evaluations/"+evalID+"/assign", adminToken, map[string]int{"teacher_id": id})
			assigns <- outcome{s, b, err}
		}(teacherID)
	}
	assigned, assignConflicts := 0, 0
	for i := 0; i < 2; i++ {
		o := <-assigns
		if o.err != nil {
			t.Fatalf("assign evaluation: %v", o.err)
		}
		switch o.status {
		case http.StatusOK:
			assigned++
		case http.StatusConflict:
			assignConflicts++
		default:
			t.Errorf("unexpected status %d: %s", o.status, o.body)
		}
	}
	if assigned != 1 || assignConflicts != 1 {
		t.Fatalf("racing assigns: %d assigned, %d conflicts, want 1 and 1", assigned, assignConflicts)
	}
}
