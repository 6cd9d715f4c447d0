package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"sketch-guess-service/internal/domain"
)

const leaderboardSize = 5

// Store is an in-memory implementation of app.DrawingRepository and
// app.ScoreRepository, useful for tests and for running the service without
// Redis. A single mutex guards everything, which also makes each score
// submission atomic across the derived structures.
type Store struct {
	mu       sync.RWMutex
	rnd      *rand.Rand
	counter  int64
	drawings map[string]domain.Drawing
	// scores: drawingID -> userID -> best score
	scores map[string]map[string]domain.Score
	// stats: scope -> userID -> aggregate; history: userID -> chronological log
	stats   map[string]map[string]domain.PlayerStats
	history map[string][]domain.QuizHistoryEntry
}

// the global aggregate scope; community scopes use the subreddit name
const globalScope = ""

func NewStore() *Store {
	return &Store{
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		drawings: make(map[string]domain.Drawing),
		scores:   make(map[string]map[string]domain.Score),
		stats:    make(map[string]map[string]domain.PlayerStats),
		history:  make(map[string][]domain.QuizHistoryEntry),
	}
}

func (s *Store) SaveDrawing(_ context.Context, d domain.Drawing) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	d.ID = fmt.Sprintf("drawing-%d", s.counter)
	s.drawings[d.ID] = d
	return d.ID, nil
}

func (s *Store) GetDrawing(_ context.Context, id string) (domain.Drawing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drawings[id]
	return d, ok, nil
}

func (s *Store) RandomDrawing(_ context.Context, excludeUserID string) (domain.Drawing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]domain.Drawing, 0, len(s.drawings))
	for id, d := range s.drawings {
		if excludeUserID != "" {
			if _, scored := s.scores[id][excludeUserID]; scored {
				continue
			}
		}
		candidates = append(candidates, d)
	}
	if len(candidates) == 0 {
		return domain.Drawing{}, false, nil
	}
	return candidates[s.rnd.Intn(len(candidates))], true, nil
}

func (s *Store) SubmitScore(_ context.Context, score domain.Score, community string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("scores:%s:%s", score.DrawingID, score.UserID)
	byUser := s.scores[score.DrawingID]
	existing, hasExisting := byUser[score.UserID]
	if hasExisting && score.Score <= existing.Score {
		return id, nil
	}

	if byUser == nil {
		byUser = make(map[string]domain.Score)
		s.scores[score.DrawingID] = byUser
	}
	score.ID = id
	byUser[score.UserID] = score

	delta := score.Score
	if hasExisting {
		delta = score.Score - existing.Score
	}
	s.bumpStats(globalScope, score.UserID, delta, !hasExisting, score.SubmittedAt)
	if community != "" {
		s.bumpStats(community, score.UserID, delta, !hasExisting, score.SubmittedAt)
	}

	s.history[score.UserID] = append(s.history[score.UserID], domain.QuizHistoryEntry{
		DrawingID:     score.DrawingID,
		Score:         score.Score,
		BaseScore:     score.BaseScore,
		TimeBonus:     score.TimeBonus,
		SubmittedAt:   score.SubmittedAt,
		CommunityName: community,
	})
	return id, nil
}

func (s *Store) bumpStats(scope, userID string, delta int, firstTime bool, at int64) {
	byUser := s.stats[scope]
	if byUser == nil {
		byUser = make(map[string]domain.PlayerStats)
		s.stats[scope] = byUser
	}
	stats := byUser[userID]
	stats.UserID = userID
	stats.TotalScore += delta
	if firstTime {
		stats.QuizCount++
	}
	stats.LastUpdated = at
	byUser[userID] = stats
}

func (s *Store) GetScore(_ context.Context, drawingID, userID string) (domain.Score, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[drawingID][userID]
	return score, ok, nil
}

func (s *Store) HasScored(_ context.Context, drawingID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.scores[drawingID][userID]
	return ok, nil
}

// ScoresByDrawing returns the retained leaderboard for a drawing: its top
// entries sorted descending, never more than the leaderboard size.
func (s *Store) ScoresByDrawing(_ context.Context, drawingID string) ([]domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topScoresLocked(drawingID, leaderboardSize), nil
}

func (s *Store) TopScores(_ context.Context, drawingID string, limit int) ([]domain.Score, error) {
	if limit <= 0 || limit > leaderboardSize {
		limit = leaderboardSize
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topScoresLocked(drawingID, limit), nil
}

func (s *Store) topScoresLocked(drawingID string, limit int) []domain.Score {
	entries := make([]domain.Score, 0, len(s.scores[drawingID]))
	for _, score := range s.scores[drawingID] {
		entries = append(entries, score)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (s *Store) Ranking(_ context.Context, community string, limit int, currentUserID string) (domain.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := s.stats[community]
	ordered := make([]domain.PlayerStats, 0, len(byUser))
	for _, stats := range byUser {
		ordered = append(ordered, stats)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].TotalScore != ordered[j].TotalScore {
			return ordered[i].TotalScore > ordered[j].TotalScore
		}
		return ordered[i].UserID < ordered[j].UserID
	})

	ranking := domain.Ranking{Total: len(ordered)}
	for i, stats := range ordered {
		if currentUserID != "" && stats.UserID == currentUserID {
			rank := i + 1
			ranking.CurrentUserRank = &rank
		}
		if i < limit {
			ranking.Entries = append(ranking.Entries, domain.RankedEntry{
				UserID:      stats.UserID,
				TotalScore:  stats.TotalScore,
				QuizCount:   stats.QuizCount,
				LastUpdated: stats.LastUpdated,
				Rank:        i + 1,
			})
		}
	}
	return ranking, nil
}

func (s *Store) QuizHistory(_ context.Context, userID string, page, pageSize int) (domain.QuizHistory, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.history[userID]
	result := domain.QuizHistory{Total: len(log), Entries: []domain.QuizHistoryEntry{}}

	start := (page - 1) * pageSize
	// most-recent-first over the append-only log
	for i := len(log) - 1 - start; i >= 0 && len(result.Entries) < pageSize; i-- {
		entry := log[i]
		entry.DrawingAnswer = s.drawings[entry.DrawingID].Answer
		entry.Rank = s.rankLocked(entry.DrawingID, userID)
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

// rankLocked resolves the user's current position on a drawing's retained
// leaderboard; nil when the user has been pruned out of the top entries.
func (s *Store) rankLocked(drawingID, userID string) *int {
	for i, score := range s.topScoresLocked(drawingID, leaderboardSize) {
		if score.UserID == userID {
			rank := i + 1
			return &rank
		}
	}
	return nil
}
