package app

import (
	"context"
	"fmt"
	"time"

	"sketch-guess-service/internal/domain"
)

// DrawingRepository abstracts how drawings are stored (in-memory, Redis, etc).
type DrawingRepository interface {
	SaveDrawing(ctx context.Context, d domain.Drawing) (string, error)
	GetDrawing(ctx context.Context, id string) (domain.Drawing, bool, error)
	// RandomDrawing samples uniformly from stored drawings. A non-empty
	// excludeUserID removes drawings that user has already scored on before
	// sampling; found is false when nothing remains.
	RandomDrawing(ctx context.Context, excludeUserID string) (domain.Drawing, bool, error)
}

// ScoreRepository is the ledger of best scores and every structure derived
// from them: per-drawing leaderboards, player aggregates, rankings, and the
// quiz history log. SubmitScore applies all of them atomically.
type ScoreRepository interface {
	SubmitScore(ctx context.Context, s domain.Score, community string) (string, error)
	GetScore(ctx context.Context, drawingID, userID string) (domain.Score, bool, error)
	TopScores(ctx context.Context, drawingID string, limit int) ([]domain.Score, error)
	ScoresByDrawing(ctx context.Context, drawingID string) ([]domain.Score, error)
	HasScored(ctx context.Context, drawingID, userID string) (bool, error)
	Ranking(ctx context.Context, community string, limit int, currentUserID string) (domain.Ranking, error)
	QuizHistory(ctx context.Context, userID string, page, pageSize int) (domain.QuizHistory, error)
}

// GuessRequest is the scoring signal coming off the playback screen.
// ViewedStrokes includes fractional progress through the stroke being
// replayed when the guess was submitted.
type GuessRequest struct {
	DrawingID     string
	Guess         string
	ElapsedTime   float64
	ViewedStrokes float64
	Community     string
}

// GameService contains the drawing-and-guessing use cases.
type GameService struct {
	drawings DrawingRepository
	scores   ScoreRepository
	feed     *leaderboardFeed
	now      func() time.Time
}

func NewGameService(drawings DrawingRepository, scores ScoreRepository) *GameService {
	return &GameService{
		drawings: drawings,
		scores:   scores,
		feed:     newLeaderboardFeed(),
		now:      time.Now,
	}
}

// NewGameServiceWithClock is test-only for deterministic timestamps.
func NewGameServiceWithClock(drawings DrawingRepository, scores ScoreRepository, now func() time.Time) *GameService {
	s := NewGameService(drawings, scores)
	s.now = now
	return s
}

// CreateDrawing validates and stores a new drawing. The caller supplies
// strokes and metadata; id, creation time, and stroke count are assigned here.
func (s *GameService) CreateDrawing(ctx context.Context, d domain.Drawing) (string, error) {
	d.Answer = SanitizeText(d.Answer)
	d.Hint = SanitizeText(d.Hint)
	if errs := ValidateDrawing(d); len(errs) > 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidDrawing, errs[0])
	}
	d.CreatedAt = s.now().UnixMilli()
	d.TotalStrokes = len(d.Strokes)
	return s.drawings.SaveDrawing(ctx, d)
}

func (s *GameService) GetDrawing(ctx context.Context, id string) (domain.Drawing, bool, error) {
	return s.drawings.GetDrawing(ctx, id)
}

// RandomDrawing picks a drawing the given user has not answered yet; with an
// empty user id it samples from everything.
func (s *GameService) RandomDrawing(ctx context.Context, excludeUserID string) (domain.Drawing, bool, error) {
	return s.drawings.RandomDrawing(ctx, excludeUserID)
}

// SubmitGuess evaluates a guess against the drawing's answer, computes the
// score, and on a correct guess records it through the ledger. A ledger
// failure is returned to the caller so the guess can be treated as
// unsubmitted; no partial score is ever persisted.
func (s *GameService) SubmitGuess(ctx context.Context, userID string, req GuessRequest) (domain.GuessResult, error) {
	drawing, ok, err := s.drawings.GetDrawing(ctx, req.DrawingID)
	if err != nil {
		return domain.GuessResult{}, err
	}
	if !ok {
		return domain.GuessResult{}, domain.ErrDrawingNotFound
	}

	correct := EvaluateGuess(SanitizeText(req.Guess), drawing.Answer)
	total, base, bonus := ComputeScore(correct, drawing.TotalStrokes, req.ViewedStrokes, req.ElapsedTime)

	result := domain.GuessResult{
		Correct:   correct,
		Answer:    drawing.Answer,
		Score:     total,
		BaseScore: base,
		TimeBonus: bonus,
	}
	if !correct || userID == "" {
		return result, nil
	}

	score := domain.Score{
		DrawingID:     req.DrawingID,
		UserID:        userID,
		Score:         total,
		BaseScore:     base,
		TimeBonus:     bonus,
		ElapsedTime:   req.ElapsedTime,
		ViewedStrokes: req.ViewedStrokes,
		SubmittedAt:   s.now().UnixMilli(),
	}
	if _, err := s.scores.SubmitScore(ctx, score, req.Community); err != nil {
		return domain.GuessResult{}, err
	}

	s.publishLeaderboard(ctx, req.DrawingID)
	return result, nil
}

func (s *GameService) TopScores(ctx context.Context, drawingID string, limit int) ([]domain.Score, error) {
	return s.scores.TopScores(ctx, drawingID, limit)
}

func (s *GameService) Ranking(ctx context.Context, community string, limit int, currentUserID string) (domain.Ranking, error) {
	return s.scores.Ranking(ctx, community, limit, currentUserID)
}

func (s *GameService) QuizHistory(ctx context.Context, userID string, page, pageSize int) (domain.QuizHistory, error) {
	return s.scores.QuizHistory(ctx, userID, page, pageSize)
}

// Subscribe returns a channel that receives leaderboard updates for a
// drawing as guesses come in. The caller must invoke the returned cancel
// function to avoid leaks.
func (s *GameService) Subscribe(drawingID string) (<-chan LeaderboardUpdate, func()) {
	return s.feed.subscribe(drawingID)
}

func (s *GameService) publishLeaderboard(ctx context.Context, drawingID string) {
	if !s.feed.hasSubscribers(drawingID) {
		return
	}
	top, err := s.scores.TopScores(ctx, drawingID, defaultLeaderboardSize)
	if err != nil {
		// the score itself is committed; the live feed just misses a beat
		return
	}
	s.feed.publish(drawingID, LeaderboardUpdate{
		DrawingID: drawingID,
		Scores:    top,
		UpdatedAt: s.now().UnixMilli(),
	})
}

const defaultLeaderboardSize = 5
