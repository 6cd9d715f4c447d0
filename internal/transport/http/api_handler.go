package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"sketch-guess-service/internal/app"
	"sketch-guess-service/internal/domain"
	"github.com/gorilla/mux"
)

// userHeader carries the authenticated user's identity, resolved by the
// platform gateway in front of this service.
const userHeader = "X-User-Id"

// APIHandler exposes the game's REST surface. It is thin glue: decode,
// call into the service, encode.
type APIHandler struct {
	service *app.GameService
}

func NewAPIHandler(service *app.GameService) *APIHandler {
	return &APIHandler{service: service}
}

// NewRouter wires the REST and websocket handlers onto one router.
func NewRouter(api *APIHandler, ws *WSHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	s := r.PathPrefix("/api").Subrouter()
	s.HandleFunc("/init", api.Init).Methods(http.MethodGet)
	s.HandleFunc("/drawing", api.GetDrawing).Methods(http.MethodGet)
	s.HandleFunc("/drawing", api.SaveDrawing).Methods(http.MethodPost)
	s.HandleFunc("/guess", api.SubmitGuess).Methods(http.MethodPost)
	s.HandleFunc("/leaderboard/global", api.GlobalRanking).Methods(http.MethodGet)
	s.HandleFunc("/leaderboard/{drawingId}", api.Leaderboard).Methods(http.MethodGet)
	s.HandleFunc("/subreddit/{name}/ranking", api.SubredditRanking).Methods(http.MethodGet)
	s.HandleFunc("/user/{userId}/quiz-history", api.QuizHistory).Methods(http.MethodGet)

	r.HandleFunc("/ws/leaderboard", ws.ServeWS)
	return r
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

func (h *APIHandler) Init(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"type":      "init",
		"userId":    r.Header.Get(userHeader),
		"gameState": "menu",
	})
}

type getDrawingResponse struct {
	Type    string          `json:"type"`
	Drawing *domain.Drawing `json:"drawing"`
}

// GetDrawing serves a specific drawing by id, or a random one the requesting
// user has not answered yet when no id is given.
func (h *APIHandler) GetDrawing(w http.ResponseWriter, r *http.Request) {
	var (
		drawing domain.Drawing
		ok      bool
		err     error
	)
	if id := r.URL.Query().Get("drawingId"); id != "" {
		drawing, ok, err = h.service.GetDrawing(r.Context(), id)
	} else {
		drawing, ok, err = h.service.RandomDrawing(r.Context(), r.Header.Get(userHeader))
	}
	if err != nil {
		log.Printf("get drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get drawing")
		return
	}

	resp := getDrawingResponse{Type: "getDrawing"}
	if ok {
		resp.Drawing = &drawing
	}
	writeJSON(w, http.StatusOK, resp)
}

type saveDrawingRequest struct {
	Drawing domain.Drawing `json:"drawing"`
}

func (h *APIHandler) SaveDrawing(w http.ResponseWriter, r *http.Request) {
	var req saveDrawingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Drawing.CreatedBy = r.Header.Get(userHeader)

	id, err := h.service.CreateDrawing(r.Context(), req.Drawing)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDrawing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("save drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save drawing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":      "saveDrawing",
		"drawingId": id,
		"success":   true,
	})
}

type guessRequest struct {
	Guess         string  `json:"guess"`
	DrawingID     string  `json:"drawingId"`
	ElapsedTime   float64 `json:"elapsedTime"`
	ViewedStrokes float64 `json:"viewedStrokes"`
	CommunityName string  `json:"communityName,omitempty"`
}

type guessResponse struct {
	Type string `json:"type"`
	domain.GuessResult
}

func (h *APIHandler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	var req guessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Guess == "" || req.DrawingID == "" {
		writeError(w, http.StatusBadRequest, "guess and drawingId are required")
		return
	}

	result, err := h.service.SubmitGuess(r.Context(), r.Header.Get(userHeader), app.GuessRequest{
		DrawingID:     req.DrawingID,
		Guess:         req.Guess,
		ElapsedTime:   req.ElapsedTime,
		ViewedStrokes: req.ViewedStrokes,
		Community:     req.CommunityName,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDrawingNotFound):
			writeError(w, http.StatusNotFound, "drawing not found")
		case errors.Is(err, domain.ErrSubmitConflict):
			writeError(w, http.StatusServiceUnavailable, "score submission conflicted, please retry")
		default:
			log.Printf("submit guess: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to submit guess")
		}
		return
	}
	writeJSON(w, http.StatusOK, guessResponse{Type: "submitGuess", GuessResult: result})
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	drawingID := mux.Vars(r)["drawingId"]
	scores, err := h.service.TopScores(r.Context(), drawingID, queryInt(r, "limit", 5))
	if err != nil {
		log.Printf("get leaderboard: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":   "getLeaderboard",
		"scores": scores,
	})
}

type rankingResponse struct {
	Type string `json:"type"`
	domain.Ranking
}

func (h *APIHandler) GlobalRanking(w http.ResponseWriter, r *http.Request) {
	h.ranking(w, r, "", "getGlobalLeaderboard")
}

func (h *APIHandler) SubredditRanking(w http.ResponseWriter, r *http.Request) {
	h.ranking(w, r, mux.Vars(r)["name"], "getSubredditRanking")
}

func (h *APIHandler) ranking(w http.ResponseWriter, r *http.Request, community, respType string) {
	ranking, err := h.service.Ranking(r.Context(), community, queryInt(r, "limit", 50), r.Header.Get(userHeader))
	if err != nil {
		log.Printf("get ranking: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get ranking")
		return
	}
	writeJSON(w, http.StatusOK, rankingResponse{Type: respType, Ranking: ranking})
}

func (h *APIHandler) QuizHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	history, err := h.service.QuizHistory(r.Context(), userID, page, limit)
	if err != nil {
		log.Printf("get quiz history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get quiz history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":    "getQuizHistory",
		"entries": history.Entries,
		"total":   history.Total,
		"page":    page,
		"limit":   limit,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
