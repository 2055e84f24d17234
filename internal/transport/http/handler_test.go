package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cartie-training-service/internal/app"
	"cartie-training-service/internal/domain"
	"cartie-training-service/internal/infra/memory"
	"cartie-training-service/internal/logging"
)

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, fields domain.CertificateFields) (string, error) {
	return "https://cdn.example.com/certs/" + fields.Number + ".png", nil
}

func fixtureLocations() []domain.Location {
	return []domain.Location{
		{
			ID:   "loc-admin",
			Name: "Springfield Depot",
			Boundary: domain.Polygon{
				{Lon: 0, Lat: 0}, {Lon: 10, Lat: 0}, {Lon: 10, Lat: 10}, {Lon: 0, Lat: 10},
			},
		},
		{ID: "loc-default", Name: "Nationwide", Default: true},
	}
}

func fixtureQuestions() []domain.Question {
	questions := make([]domain.Question, 0, 5)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("q%d", i)
		questions = append(questions, domain.Question{
			ID:         id,
			LocationID: "loc-admin",
			Prompt:     fmt.Sprintf("Prompt %d", i),
			Options: []domain.Option{
				{ID: id + "-o1", Text: "A"},
				{ID: id + "-o2", Text: "B", Correct: true},
				{ID: id + "-o3", Text: "C"},
			},
		})
	}
	return questions
}

func fixtureCatalog() *memory.Catalog {
	return memory.NewCatalog(map[string][]domain.CatalogSection{
		"loc-admin": {
			{
				ID:     "sec-1",
				Number: "1",
				Title:  "Defensive Driving",
				Videos: []domain.CatalogVideo{
					{ID: "v1", Title: "Mirrors", DurationSeconds: 120},
				},
			},
		},
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logging.NewNop()

	locations := memory.NewLocationStore(fixtureLocations())
	questionStore := memory.NewQuestionStore(fixtureQuestions())
	answers := memory.NewAnswerCache(questionStore, time.Minute)
	ledgers := memory.NewLedgerStore()
	progressStore := memory.NewProgressStore()
	catalog := fixtureCatalog()
	users := memory.NewUserDirectory([]domain.User{{ID: "u1", Email: "alice@example.com", Name: "Alice"}})

	resolver := app.NewResolver(locations)
	assessments := app.NewAssessmentService(resolver, locations, questionStore, answers, ledgers, log)
	progress := app.NewProgressService(progressStore, catalog, log)
	certificates := app.NewCertificateService(memory.NewCertificateStore(), memory.NewSequence(), stubRenderer{}, users, locations, log)

	handler := NewHandler(assessments, progress, certificates, log)
	mux := handler.Routes()
	wsHandler := NewProgressWSHandler(progress, log)
	mux.HandleFunc("/ws/progress", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestGetAssessmentStripsCorrectness(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/assessment?lon=5&lat=5", nil)
	req.Header.Set("X-User-Id", "u1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get assessment: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)

	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var view struct {
		LocationID string `json:"locationId"`
		Questions  []struct {
			ID      string           `json:"id"`
			Options []map[string]any `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("decode quiz view: %v", err)
	}
	if view.LocationID != "loc-admin" {
		t.Fatalf("expected loc-admin, got %s", view.LocationID)
	}
	if len(view.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(view.Questions))
	}
	for _, q := range view.Questions {
		for _, opt := range q.Options {
			if _, leaked := opt["correct"]; leaked {
				t.Fatalf("question %s leaked option correctness", q.ID)
			}
		}
	}
}

func TestGetAssessmentRequiresIdentity(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/assessment?lon=5&lat=5")
	if err != nil {
		t.Fatalf("get assessment: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func postAttempt(t *testing.T, server *httptest.Server, userID string, correct int) *http.Response {
	t.Helper()
	answers := make([]domain.Answer, 0, 5)
	for i := 1; i <= 5; i++ {
		selected := fmt.Sprintf("q%d-o1", i)
		if i <= correct {
			selected = fmt.Sprintf("q%d-o2", i)
		}
		answers = append(answers, domain.Answer{QuestionID: fmt.Sprintf("q%d", i), SelectedOption: selected})
	}
	body, _ := json.Marshal(map[string]any{
		"locationId": "loc-admin",
		"answers":    answers,
		"duration":   90,
	})
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/assessment/attempts", bytes.NewReader(body))
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post attempt: %v", err)
	}
	return resp
}

func TestSubmitAttemptScoring(t *testing.T) {
	server := newTestServer(t)

	resp := postAttempt(t, server, "u1", 3)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)

	raw, _ := json.Marshal(env.Data)
	var result app.AttemptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Score != 60 || !result.Passed {
		t.Fatalf("expected passing score 60, got score=%d passed=%v", result.Score, result.Passed)
	}
	if result.AttemptNumber != 1 {
		t.Fatalf("expected attempt 1, got %d", result.AttemptNumber)
	}
}

func TestSubmitAttemptDailyLimit(t *testing.T) {
	server := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := postAttempt(t, server, "u2", 1)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := postAttempt(t, server, "u2", 1)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on fourth attempt, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if len(env.Message) == 0 || env.Message[0] != "You have reached today's 3 attempt limit" {
		t.Fatalf("unexpected limit message: %v", env.Message)
	}
}

func TestSubmitAfterPassRejected(t *testing.T) {
	server := newTestServer(t)

	resp := postAttempt(t, server, "u3", 5)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/assessment?lon=5&lat=5", nil)
	req.Header.Set("X-User-Id", "u3")
	quizResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get assessment: %v", err)
	}
	if quizResp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 after pass, got %d", quizResp.StatusCode)
	}
	quizResp.Body.Close()
}

func TestUpdateProgressAndOverview(t *testing.T) {
	server := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"locationId":     "loc-admin",
		"sectionId":      "sec-1",
		"videoId":        "v1",
		"watchedSeconds": 118,
	})
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/progress", bytes.NewReader(body))
	req.Header.Set("X-User-Id", "u1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post progress: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	raw, _ := json.Marshal(env.Data)
	var ack app.ProgressAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.VideoCompleted || !ack.SectionCompleted {
		t.Fatalf("expected completion within tolerance, got %+v", ack)
	}

	ovReq, _ := http.NewRequest(http.MethodGet, server.URL+"/progress/overview?locationId=loc-admin", nil)
	ovReq.Header.Set("X-User-Id", "u1")
	ovResp, err := http.DefaultClient.Do(ovReq)
	if err != nil {
		t.Fatalf("get overview: %v", err)
	}
	if ovResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", ovResp.StatusCode)
	}
	ovEnv := decodeEnvelope(t, ovResp)
	raw, _ = json.Marshal(ovEnv.Data)
	var sections []app.SectionOverview
	if err := json.Unmarshal(raw, &sections); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if len(sections) != 1 || !sections[0].SectionCompleted {
		t.Fatalf("expected one completed section, got %+v", sections)
	}
}

func TestUnknownVideoReturns404(t *testing.T) {
	server := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"locationId":     "loc-admin",
		"sectionId":      "sec-1",
		"videoId":        "nope",
		"watchedSeconds": 30,
	})
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/progress", bytes.NewReader(body))
	req.Header.Set("X-User-Id", "u1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post progress: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEnrollIsIdempotentOverHTTP(t *testing.T) {
	server := newTestServer(t)

	enroll := func() domain.Certificate {
		body, _ := json.Marshal(map[string]string{"locationId": "loc-admin"})
		req, _ := http.NewRequest(http.MethodPost, server.URL+"/certificates/enroll", bytes.NewReader(body))
		req.Header.Set("X-User-Id", "u1")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("enroll: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		env := decodeEnvelope(t, resp)
		raw, _ := json.Marshal(env.Data)
		var cert domain.Certificate
		if err := json.Unmarshal(raw, &cert); err != nil {
			t.Fatalf("decode certificate: %v", err)
		}
		return cert
	}

	first := enroll()
	second := enroll()
	if first.Number != "CERT-001" {
		t.Fatalf("expected CERT-001, got %s", first.Number)
	}
	if first.ID != second.ID || first.Number != second.Number {
		t.Fatalf("enroll not idempotent: %s/%s vs %s/%s", first.ID, first.Number, second.ID, second.Number)
	}

	listReq, _ := http.NewRequest(http.MethodGet, server.URL+"/certificates", nil)
	listReq.Header.Set("X-User-Id", "u1")
	listResp, err := http.DefaultClient.Do(listReq)
	if err != nil {
		t.Fatalf("list certificates: %v", err)
	}
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.StatusCode)
	}
	listEnv := decodeEnvelope(t, listResp)
	raw, _ := json.Marshal(listEnv.Data)
	var certs []domain.Certificate
	if err := json.Unmarshal(raw, &certs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(certs) != 1 {
		t.Fatalf("expected one certificate, got %d", len(certs))
	}
}

func TestEnrollUnknownUser(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/certificates/enroll", bytes.NewReader([]byte(`{"locationId":"loc-admin"}`)))
	req.Header.Set("X-User-Id", "ghost")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
