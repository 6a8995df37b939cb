package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quizhub_backend/internal/config"
	"quizhub_backend/internal/model"
	"quizhub_backend/internal/util"
	"quizhub_backend/pkg/database"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret-with-at-least-32-characters!"

const catalogFixture = `[
  {"id": 1, "title": "Colours", "description": "basic colours", "questions": [
    {"id": 10, "text": "Sky?", "order": 1, "choices": [
      {"id": 100, "text": "blue", "is_correct": true},
      {"id": 101, "text": "green"}
    ]},
    {"id": 11, "text": "Grass?", "order": 2, "choices": [
      {"id": 110, "text": "red"},
      {"id": 111, "text": "green", "is_correct": true}
    ]}
  ]},
  {"id": 2, "title": "Other", "questions": [
    {"id": 20, "text": "Snow?", "order": 1, "choices": [
      {"id": 200, "text": "white", "is_correct": true}
    ]}
  ]}
]`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fixtures.json"), []byte(catalogFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: gin.TestMode},
		Database:  config.DatabaseConfig{Driver: util.DriverSQLite, SQLitePath: ":memory:"},
		JWT:       config.JWTConfig{Secret: testSecret},
		Storage:   config.StorageConfig{Type: util.StorageLocal, LocalPath: dir, FixturesObject: "fixtures.json"},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	a, err := New(cfg, db, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })

	if err := a.LoadFixtures(context.Background()); err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	return a
}

func token(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, "student", testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(t *testing.T, a *App, method, path, tok, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: body is not an envelope: %s", method, path, w.Body.String())
		}
	}
	return w, env
}

type resultPayload struct {
	AttemptID      *uint   `json:"attempt_id"`
	TestID         uint    `json:"test_id"`
	FinishedReason string  `json:"finished_reason"`
	Score          int     `json:"score"`
	Total          int     `json:"total"`
	Percent        float64 `json:"percent"`
	Results        []struct {
		QuestionID       uint  `json:"question_id"`
		SelectedChoiceID uint  `json:"selected_choice_id"`
		CorrectChoiceID  *uint `json:"correct_choice_id"`
		IsCorrect        bool  `json:"is_correct"`
	} `json:"results"`
}

func TestSubmitAttemptEndToEnd(t *testing.T) {
	a := newTestApp(t)
	tok := token(t, 5)
	body := `{"test_id": 1, "finished_reason": "completed", "answers": {"10": 100, "11": 110}}`

	for _, path := range []string{"/api/attempts", "/api/attempts/"} {
		w, env := do(t, a, http.MethodPost, path, tok, body)
		if w.Code != http.StatusCreated {
			t.Fatalf("POST %s status = %d body = %s", path, w.Code, w.Body.String())
		}
		var res resultPayload
		if err := json.Unmarshal(env.Data, &res); err != nil {
			t.Fatal(err)
		}
		if res.AttemptID == nil || res.TestID != 1 || res.Score != 1 || res.Total != 2 || res.Percent != 50 {
			t.Errorf("result = %+v", res)
		}
		if len(res.Results) != 2 || res.Results[0].QuestionID != 10 || !res.Results[0].IsCorrect ||
			res.Results[1].IsCorrect || *res.Results[1].CorrectChoiceID != 111 {
			t.Errorf("results = %+v", res.Results)
		}
	}

	w, env := do(t, a, http.MethodGet, "/api/attempts/my", tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/attempts/my status = %d", w.Code)
	}
	var history []map[string]interface{}
	if err := json.Unmarshal(env.Data, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %v", history)
	}
	for _, key := range []string{"id", "test", "test_title", "started_at", "finished_at", "score", "total", "percent", "finished_reason"} {
		if _, ok := history[0][key]; !ok {
			t.Errorf("history row missing %q: %v", key, history[0])
		}
	}
	if history[0]["test_title"] != "Colours" {
		t.Errorf("test_title = %v", history[0]["test_title"])
	}

	// other users see nothing
	w, env = do(t, a, http.MethodGet, "/api/attempts/my/", token(t, 6), "")
	if w.Code != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("other user history = %d %s", w.Code, env.Data)
	}
}

func TestAttemptDetailOwnership(t *testing.T) {
	a := newTestApp(t)
	body := `{"test_id": 2, "finished_reason": "timeout", "answers": {"20": 200}}`

	_, env := do(t, a, http.MethodPost, "/api/attempts", token(t, 5), body)
	var res resultPayload
	if err := json.Unmarshal(env.Data, &res); err != nil || res.AttemptID == nil {
		t.Fatalf("submit: %v %s", err, env.Data)
	}
	path := "/api/attempts/" + jsonNumber(*res.AttemptID)

	if w, _ := do(t, a, http.MethodGet, path, token(t, 5), ""); w.Code != http.StatusOK {
		t.Errorf("owner status = %d", w.Code)
	}
	if w, _ := do(t, a, http.MethodGet, path, token(t, 6), ""); w.Code != http.StatusForbidden {
		t.Errorf("other user status = %d, want 403", w.Code)
	}
	if w, _ := do(t, a, http.MethodGet, "/api/attempts/9999", token(t, 5), ""); w.Code != http.StatusNotFound {
		t.Errorf("missing attempt status = %d, want 404", w.Code)
	}
}

func TestSubmitRequiresAuth(t *testing.T) {
	a := newTestApp(t)
	body := `{"test_id": 1, "finished_reason": "completed", "answers": {}}`

	tests := []struct {
		name   string
		method string
		path   string
		tok    string
	}{
		{name: "submit without token", method: http.MethodPost, path: "/api/attempts"},
		{name: "submit with bad token", method: http.MethodPost, path: "/api/attempts", tok: "not-a-jwt"},
		{name: "history without token", method: http.MethodGet, path: "/api/attempts/my"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(t, a, tt.method, tt.path, tt.tok, body)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}

	var count int64
	a.DB.Table("attempts").Count(&count)
	if count != 0 {
		t.Errorf("attempts written without auth: %d", count)
	}
}

func TestPreviewIsAnonymousAndWritesNothing(t *testing.T) {
	a := newTestApp(t)
	body := `{"test_id": "1", "finished_reason": "completed", "answers": {"11": "111"}}`

	var first string
	for _, path := range []string{"/api/attempts/preview", "/api/attempts/preview/"} {
		w, env := do(t, a, http.MethodPost, path, "", body)
		if w.Code != http.StatusOK {
			t.Fatalf("POST %s status = %d body = %s", path, w.Code, w.Body.String())
		}
		if first == "" {
			first = string(env.Data)
		} else if first != string(env.Data) {
			t.Errorf("preview payloads differ:\n%s\n%s", first, env.Data)
		}
		var res resultPayload
		if err := json.Unmarshal(env.Data, &res); err != nil {
			t.Fatal(err)
		}
		if res.AttemptID != nil || res.Score != 1 || res.Total != 2 || res.Percent != 50 {
			t.Errorf("preview = %+v", res)
		}
	}

	var count int64
	a.DB.Table("attempts").Count(&count)
	if count != 0 {
		t.Errorf("preview wrote %d attempts", count)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	a := newTestApp(t)
	tok := token(t, 5)

	tests := []struct {
		name     string
		body     string
		status   int
		kind     string
		field    string
		question float64
		choice   float64
	}{
		{name: "unknown test", body: `{"test_id": 42, "finished_reason": "completed", "answers": {}}`, status: 404, kind: "not_found", field: "test_id"},
		{name: "bad key", body: `{"test_id": 1, "finished_reason": "completed", "answers": {"x": 100}}`, status: 400, kind: "malformed_input", field: "answers"},
		{name: "bad value", body: `{"test_id": 1, "finished_reason": "completed", "answers": {"10": [1]}}`, status: 400, kind: "malformed_input", field: "answers"},
		{name: "foreign question", body: `{"test_id": 1, "finished_reason": "completed", "answers": {"20": 200}}`, status: 400, kind: "foreign_question", field: "answers", question: 20},
		{name: "invalid choice", body: `{"test_id": 1, "finished_reason": "completed", "answers": {"10": 111}}`, status: 400, kind: "invalid_choice", field: "answers", question: 10, choice: 111},
		{name: "bad finished reason", body: `{"test_id": 1, "finished_reason": "gave_up", "answers": {}}`, status: 400, kind: "malformed_input", field: "finished_reason"},
		{name: "bad test id", body: `{"test_id": "one", "finished_reason": "completed"}`, status: 400, kind: "malformed_input", field: "body"},
		{name: "negative test id", body: `{"test_id": -3, "finished_reason": "completed"}`, status: 400, kind: "malformed_input", field: "test_id"},
		{name: "answers not an object", body: `{"test_id": 1, "finished_reason": "completed", "answers": [1]}`, status: 400, kind: "malformed_input", field: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/attempts", "/api/attempts/preview"} {
				w, env := do(t, a, http.MethodPost, path, tok, tt.body)
				if w.Code != tt.status || env.Code != tt.status {
					t.Fatalf("%s status = %d/%d, want %d: %s", path, w.Code, env.Code, tt.status, w.Body.String())
				}
				var data map[string]interface{}
				if err := json.Unmarshal(env.Data, &data); err != nil {
					t.Fatalf("%s data = %s", path, env.Data)
				}
				if data["kind"] != tt.kind || data["field"] != tt.field {
					t.Errorf("%s data = %v", path, data)
				}
				if tt.question != 0 && data["question_id"] != tt.question {
					t.Errorf("%s question_id = %v, want %v", path, data["question_id"], tt.question)
				}
				if tt.choice != 0 && data["choice_id"] != tt.choice {
					t.Errorf("%s choice_id = %v, want %v", path, data["choice_id"], tt.choice)
				}
			}
		})
	}

	var attempts, answers int64
	a.DB.Table("attempts").Count(&attempts)
	a.DB.Table("attempt_answers").Count(&answers)
	if attempts != 0 || answers != 0 {
		t.Errorf("rows written on rejected submissions: attempts=%d answers=%d", attempts, answers)
	}
}

func TestSubmitStoreFailureIsRetryable(t *testing.T) {
	a := newTestApp(t)
	tok := token(t, 5)
	body := `{"test_id": 1, "finished_reason": "completed", "answers": {"10": 100, "11": 111}}`

	// the attempt row is written, then the answer insert fails
	if err := a.DB.Migrator().DropTable(&model.AttemptAnswer{}); err != nil {
		t.Fatalf("DropTable: %v", err)
	}

	w, env := do(t, a, http.MethodPost, "/api/attempts", tok, body)
	if w.Code != http.StatusServiceUnavailable || env.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, code = %d, body = %s", w.Code, env.Code, w.Body.String())
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}

	var attempts int64
	if err := a.DB.Model(&model.Attempt{}).Count(&attempts).Error; err != nil {
		t.Fatal(err)
	}
	if attempts != 0 {
		t.Errorf("attempts after rollback = %d, want 0", attempts)
	}

	// preview never writes, so it is unaffected
	if w, _ := do(t, a, http.MethodPost, "/api/attempts/preview", "", body); w.Code != http.StatusOK {
		t.Errorf("preview status = %d", w.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	a := newTestApp(t)

	w, env := do(t, a, http.MethodGet, "/api/tests/", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0]["questions_count"] != float64(2) || list[1]["title"] != "Other" {
		t.Errorf("list = %v", list)
	}

	w, env = do(t, a, http.MethodGet, "/api/tests/1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("detail status = %d", w.Code)
	}
	var detail struct {
		ID        uint `json:"id"`
		Questions []struct {
			ID              uint                     `json:"id"`
			CorrectChoiceID *uint                    `json:"correct_choice_id"`
			Choices         []map[string]interface{} `json:"choices"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatal(err)
	}
	if len(detail.Questions) != 2 || detail.Questions[0].ID != 10 || *detail.Questions[1].CorrectChoiceID != 111 {
		t.Errorf("detail = %+v", detail)
	}
	if _, leaked := detail.Questions[0].Choices[0]["is_correct"]; leaked {
		t.Error("choice exposes is_correct")
	}

	for _, path := range []string{"/api/tests/99", "/api/tests/abc"} {
		if w, _ := do(t, a, http.MethodGet, path, "", ""); w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
}

func TestHealthAndRequestID(t *testing.T) {
	a := newTestApp(t)

	w, env := do(t, a, http.MethodGet, "/api/health", "", "")
	if w.Code != http.StatusOK || env.Code != http.StatusOK {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(util.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(util.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	if got := rec.Header().Get(util.RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want echo of abc-123", got)
	}
}

func TestLoadFixturesSkipsPopulatedCatalog(t *testing.T) {
	a := newTestApp(t)

	if err := a.LoadFixtures(context.Background()); err != nil {
		t.Fatalf("second LoadFixtures: %v", err)
	}
	var count int64
	a.DB.Table("tests").Count(&count)
	if count != 2 {
		t.Errorf("tests = %d, want 2", count)
	}
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
