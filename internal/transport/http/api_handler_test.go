package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sketch-guess-service/internal/app"
	"sketch-guess-service/internal/domain"
	"sketch-guess-service/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.GameService) {
	t.Helper()
	store := memory.NewStore()
	service := app.NewGameService(store, store)
	server := httptest.NewServer(NewRouter(NewAPIHandler(service), NewWSHandler(service)))
	t.Cleanup(server.Close)
	return server, service
}

func postJSON(t *testing.T, url string, user string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func saveTestDrawing(t *testing.T, server *httptest.Server, answer string) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/drawing", "creator", map[string]interface{}{
		"drawing": domain.Drawing{
			Answer: answer,
			Strokes: []domain.Stroke{
				{Points: []domain.Point{{X: 10, Y: 10}, {X: 20, Y: 20}}, Color: "#000000", Width: 5},
			},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save drawing status %d", resp.StatusCode)
	}
	var body struct {
		DrawingID string `json:"drawingId"`
		Success   bool   `json:"success"`
	}
	decodeBody(t, resp, &body)
	if !body.Success || body.DrawingID == "" {
		t.Fatalf("unexpected save response: %+v", body)
	}
	return body.DrawingID
}

func TestSaveAndFetchDrawing(t *testing.T) {
	server, _ := newTestServer(t)
	id := saveTestDrawing(t, server, "cat")

	resp, err := http.Get(server.URL + "/api/drawing?drawingId=" + id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var body struct {
		Type    string          `json:"type"`
		Drawing *domain.Drawing `json:"drawing"`
	}
	decodeBody(t, resp, &body)
	if body.Type != "getDrawing" || body.Drawing == nil || body.Drawing.Answer != "cat" {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestSaveDrawingValidationError(t *testing.T) {
	server, _ := newTestServer(t)
	resp := postJSON(t, server.URL+"/api/drawing", "creator", map[string]interface{}{
		"drawing": domain.Drawing{Answer: "cat"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid drawing, got %d", resp.StatusCode)
	}
}

func TestGuessFlowAndLeaderboard(t *testing.T) {
	server, _ := newTestServer(t)
	id := saveTestDrawing(t, server, "cat")

	resp := postJSON(t, server.URL+"/api/guess", "u1", map[string]interface{}{
		"guess":         "CAT",
		"drawingId":     id,
		"elapsedTime":   30.0,
		"viewedStrokes": 0.0,
	})
	var guess struct {
		Type      string `json:"type"`
		Correct   bool   `json:"correct"`
		Score     int    `json:"score"`
		BaseScore int    `json:"baseScore"`
		TimeBonus int    `json:"timeBonus"`
	}
	decodeBody(t, resp, &guess)
	if !guess.Correct || guess.Score != 400 || guess.BaseScore != 100 || guess.TimeBonus != 300 {
		t.Fatalf("unexpected guess response: %+v", guess)
	}

	lbResp, err := http.Get(server.URL + "/api/leaderboard/" + id)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var lb struct {
		Scores []domain.Score `json:"scores"`
	}
	decodeBody(t, lbResp, &lb)
	if len(lb.Scores) != 1 || lb.Scores[0].UserID != "u1" || lb.Scores[0].Score != 400 {
		t.Fatalf("unexpected leaderboard: %+v", lb.Scores)
	}
}

func TestGuessUnknownDrawingReturns404(t *testing.T) {
	server, _ := newTestServer(t)
	resp := postJSON(t, server.URL+"/api/guess", "u1", map[string]interface{}{
		"guess":     "cat",
		"drawingId": "drawing-404",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGlobalRankingEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	id := saveTestDrawing(t, server, "cat")

	resp := postJSON(t, server.URL+"/api/guess", "u1", map[string]interface{}{
		"guess": "cat", "drawingId": id, "elapsedTime": 10.0, "viewedStrokes": 0.0,
	})
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/leaderboard/global?limit=10", nil)
	req.Header.Set(userHeader, "u1")
	rankResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	var ranking struct {
		Type            string               `json:"type"`
		Entries         []domain.RankedEntry `json:"entries"`
		Total           int                  `json:"total"`
		CurrentUserRank *int                 `json:"currentUserRank"`
	}
	decodeBody(t, rankResp, &ranking)
	if ranking.Type != "getGlobalLeaderboard" || ranking.Total != 1 || len(ranking.Entries) != 1 {
		t.Fatalf("unexpected ranking: %+v", ranking)
	}
	if ranking.CurrentUserRank == nil || *ranking.CurrentUserRank != 1 {
		t.Fatalf("expected currentUserRank 1, got %v", ranking.CurrentUserRank)
	}
}

func TestQuizHistoryEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	id := saveTestDrawing(t, server, "cat")

	resp := postJSON(t, server.URL+"/api/guess", "u1", map[string]interface{}{
		"guess": "cat", "drawingId": id, "elapsedTime": 10.0, "viewedStrokes": 0.0,
	})
	resp.Body.Close()

	histResp, err := http.Get(server.URL + "/api/user/u1/quiz-history?page=1&limit=10")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var history struct {
		Type    string                    `json:"type"`
		Entries []domain.QuizHistoryEntry `json:"entries"`
		Total   int                       `json:"total"`
		Page    int                       `json:"page"`
	}
	decodeBody(t, histResp, &history)
	if history.Type != "getQuizHistory" || history.Total != 1 || len(history.Entries) != 1 {
		t.Fatalf("unexpected history: %+v", history)
	}
	if history.Entries[0].DrawingAnswer != "cat" {
		t.Fatalf("expected resolved answer, got %+v", history.Entries[0])
	}
}

func TestRandomDrawingExcludesCaller(t *testing.T) {
	server, _ := newTestServer(t)
	id := saveTestDrawing(t, server, "cat")

	resp := postJSON(t, server.URL+"/api/guess", "u1", map[string]interface{}{
		"guess": "cat", "drawingId": id, "elapsedTime": 10.0, "viewedStrokes": 0.0,
	})
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/drawing", nil)
	req.Header.Set(userHeader, "u1")
	randomResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	var body struct {
		Drawing *domain.Drawing `json:"drawing"`
	}
	decodeBody(t, randomResp, &body)
	if body.Drawing != nil {
		t.Fatalf("expected null drawing once everything is answered, got %+v", body.Drawing)
	}
}
