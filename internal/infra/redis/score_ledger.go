package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sketch-guess-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardSize     = 5
	rankingSnapshotSize = 50

	submitMaxAttempts = 3
	submitBackoffStep = 10 * time.Millisecond
)

// errNoImprovement aborts a submission that would not beat the stored best.
// It is mapped back to a successful no-op for the caller.
var errNoImprovement = errors.New("score does not beat existing best")

// ScoreLedger is the single writer for score records and everything derived
// from them: per-drawing leaderboards, player aggregates, global and
// community rankings, and the quiz history log. One submission updates all
// of them inside a single WATCH/MULTI/EXEC transaction, so readers either
// see the full update or none of it.
type ScoreLedger struct {
	client      *redis.Client
	snapshotTTL time.Duration
}

// NewScoreLedger builds a ledger; snapshotTTL bounds how long a cached
// ranking snapshot may serve reads before it is rebuilt.
func NewScoreLedger(client *redis.Client, snapshotTTL time.Duration) *ScoreLedger {
	return &ScoreLedger{client: client, snapshotTTL: snapshotTTL}
}

// historyRecord is the stored form of a quiz history entry. Answer and rank
// are resolved at read time, not persisted.
type historyRecord struct {
	DrawingID     string `json:"drawingId"`
	Score         int    `json:"score"`
	BaseScore     int    `json:"baseScore"`
	TimeBonus     int    `json:"timeBonus"`
	SubmittedAt   int64  `json:"submittedAt"`
	CommunityName string `json:"communityName,omitempty"`
}

// SubmitScore records a guess result, keeping only the highest score per
// (drawing, user) pair. Lower or equal scores are a no-op returning the
// existing record's identity. On a conflicting concurrent submission the
// whole read-modify-write sequence is retried with linear backoff; after the
// retry budget the submission fails without any partial state written.
func (l *ScoreLedger) SubmitScore(ctx context.Context, s domain.Score, community string) (string, error) {
	key := scoreKey(s.DrawingID, s.UserID)
	watched := []string{
		key,
		leaderboardKey(s.DrawingID),
		historyKey(s.UserID),
		statsKey("", s.UserID),
		rankingKey(""),
	}
	if community != "" {
		watched = append(watched, statsKey(community, s.UserID), rankingKey(community))
	}

	for attempt := 1; attempt <= submitMaxAttempts; attempt++ {
		err := l.client.Watch(ctx, func(tx *redis.Tx) error {
			return l.applyScore(ctx, tx, s, community)
		}, watched...)
		switch {
		case err == nil, errors.Is(err, errNoImprovement):
			return key, nil
		case errors.Is(err, redis.TxFailedErr):
			if attempt == submitMaxAttempts {
				return "", fmt.Errorf("submit score %s: %w", key, domain.ErrSubmitConflict)
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * submitBackoffStep):
			}
		default:
			return "", fmt.Errorf("submit score %s: %w", key, err)
		}
	}
	return "", fmt.Errorf("submit score %s: %w", key, domain.ErrSubmitConflict)
}

func (l *ScoreLedger) applyScore(ctx context.Context, tx *redis.Tx, s domain.Score, community string) error {
	key := scoreKey(s.DrawingID, s.UserID)

	existing, err := tx.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	existingScore, hasExisting := 0, false
	if raw, ok := existing["score"]; ok {
		existingScore, _ = strconv.Atoi(raw)
		hasExisting = true
	}
	if hasExisting && s.Score <= existingScore {
		return errNoImprovement
	}

	// aggregate totals move by the delta between old and new best, and the
	// quiz count only moves on the first score for this pair
	delta := s.Score - existingScore
	globalTotal, globalCount, err := l.readStats(ctx, tx, statsKey("", s.UserID))
	if err != nil {
		return err
	}
	var communityTotal, communityCount int
	if community != "" {
		communityTotal, communityCount, err = l.readStats(ctx, tx, statsKey(community, s.UserID))
		if err != nil {
			return err
		}
	}

	entry, err := json.Marshal(historyRecord{
		DrawingID:     s.DrawingID,
		Score:         s.Score,
		BaseScore:     s.BaseScore,
		TimeBonus:     s.TimeBonus,
		SubmittedAt:   s.SubmittedAt,
		CommunityName: community,
	})
	if err != nil {
		return err
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"score":         strconv.Itoa(s.Score),
			"baseScore":     strconv.Itoa(s.BaseScore),
			"timeBonus":     strconv.Itoa(s.TimeBonus),
			"elapsedTime":   strconv.FormatFloat(s.ElapsedTime, 'f', -1, 64),
			"viewedStrokes": strconv.FormatFloat(s.ViewedStrokes, 'f', -1, 64),
			"submittedAt":   strconv.FormatInt(s.SubmittedAt, 10),
			"drawingId":     s.DrawingID,
			"userId":        s.UserID,
		})

		pipe.ZAdd(ctx, leaderboardKey(s.DrawingID), redis.Z{Score: float64(s.Score), Member: s.UserID})
		pipe.ZRemRangeByRank(ctx, leaderboardKey(s.DrawingID), 0, -int64(leaderboardSize)-1)

		pipe.ZAdd(ctx, historyKey(s.UserID), redis.Z{Score: float64(s.SubmittedAt), Member: string(entry)})

		l.writeStats(ctx, pipe, "", s, globalTotal+delta, bumpCount(globalCount, hasExisting))
		if community != "" {
			l.writeStats(ctx, pipe, community, s, communityTotal+delta, bumpCount(communityCount, hasExisting))
		}
		return nil
	})
	return err
}

func bumpCount(count int, hasExisting bool) int {
	if hasExisting {
		return count
	}
	return count + 1
}

func (l *ScoreLedger) readStats(ctx context.Context, tx *redis.Tx, key string) (total, count int, err error) {
	fields, err := tx.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	total, _ = strconv.Atoi(fields["totalScore"])
	count, _ = strconv.Atoi(fields["quizCount"])
	return total, count, nil
}

func (l *ScoreLedger) writeStats(ctx context.Context, pipe redis.Pipeliner, community string, s domain.Score, newTotal, newCount int) {
	pipe.HSet(ctx, statsKey(community, s.UserID), map[string]interface{}{
		"totalScore":  strconv.Itoa(newTotal),
		"quizCount":   strconv.Itoa(newCount),
		"lastUpdated": strconv.FormatInt(s.SubmittedAt, 10),
	})
	pipe.ZAdd(ctx, rankingKey(community), redis.Z{Score: float64(newTotal), Member: s.UserID})
	pipe.Del(ctx, rankingSnapshotKey(community))
}

func (l *ScoreLedger) GetScore(ctx context.Context, drawingID, userID string) (domain.Score, bool, error) {
	fields, err := l.client.HGetAll(ctx, scoreKey(drawingID, userID)).Result()
	if err != nil {
		return domain.Score{}, false, fmt.Errorf("read score: %w", err)
	}
	if len(fields) == 0 {
		return domain.Score{}, false, nil
	}
	return scoreFromHash(scoreKey(drawingID, userID), fields), true, nil
}

func (l *ScoreLedger) HasScored(ctx context.Context, drawingID, userID string) (bool, error) {
	n, err := l.client.Exists(ctx, scoreKey(drawingID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check score: %w", err)
	}
	return n > 0, nil
}

// ScoresByDrawing returns the full retained leaderboard for a drawing,
// highest first. The retained set is bounded by the leaderboard size.
func (l *ScoreLedger) ScoresByDrawing(ctx context.Context, drawingID string) ([]domain.Score, error) {
	return l.topScores(ctx, drawingID, -1)
}

func (l *ScoreLedger) TopScores(ctx context.Context, drawingID string, limit int) ([]domain.Score, error) {
	if limit <= 0 || limit > leaderboardSize {
		limit = leaderboardSize
	}
	return l.topScores(ctx, drawingID, int64(limit-1))
}

func (l *ScoreLedger) topScores(ctx context.Context, drawingID string, stop int64) ([]domain.Score, error) {
	userIDs, err := l.client.ZRevRange(ctx, leaderboardKey(drawingID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	scores := make([]domain.Score, 0, len(userIDs))
	if len(userIDs) == 0 {
		return scores, nil
	}

	pipe := l.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.HGetAll(ctx, scoreKey(drawingID, userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		scores = append(scores, scoreFromHash(scoreKey(drawingID, userIDs[i]), fields))
	}
	return scores, nil
}

func scoreFromHash(id string, fields map[string]string) domain.Score {
	score, _ := strconv.Atoi(fields["score"])
	base, _ := strconv.Atoi(fields["baseScore"])
	bonus, _ := strconv.Atoi(fields["timeBonus"])
	elapsed, _ := strconv.ParseFloat(fields["elapsedTime"], 64)
	viewed, _ := strconv.ParseFloat(fields["viewedStrokes"], 64)
	submitted, _ := strconv.ParseInt(fields["submittedAt"], 10, 64)
	return domain.Score{
		ID:            id,
		DrawingID:     fields["drawingId"],
		UserID:        fields["userId"],
		Score:         score,
		BaseScore:     base,
		TimeBonus:     bonus,
		ElapsedTime:   elapsed,
		ViewedStrokes: viewed,
		SubmittedAt:   submitted,
	}
}

// Ranking returns a page of the global or community ranking plus the total
// participant count. The requesting user's rank is located in the full
// ordering, not just the returned page, and is nil when the user has no
// aggregate record in the scope.
func (l *ScoreLedger) Ranking(ctx context.Context, community string, limit int, currentUserID string) (domain.Ranking, error) {
	if limit <= 0 {
		limit = rankingSnapshotSize
	}

	total, err := l.client.ZCard(ctx, rankingKey(community)).Result()
	if err != nil {
		return domain.Ranking{}, fmt.Errorf("count ranking: %w", err)
	}

	var entries []domain.RankedEntry
	if limit <= rankingSnapshotSize {
		entries, err = l.snapshotEntries(ctx, community)
	} else {
		entries, err = l.buildRankingEntries(ctx, community, limit)
	}
	if err != nil {
		return domain.Ranking{}, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	ranking := domain.Ranking{Entries: entries, Total: int(total)}
	if currentUserID != "" {
		pos, err := l.client.ZRevRank(ctx, rankingKey(community), currentUserID).Result()
		switch {
		case err == redis.Nil:
			// user has no aggregate in this scope
		case err != nil:
			return domain.Ranking{}, fmt.Errorf("rank lookup: %w", err)
		default:
			rank := int(pos) + 1
			ranking.CurrentUserRank = &rank
		}
	}
	return ranking, nil
}

// snapshotEntries serves the ranking head from a short-lived cached
// snapshot. The snapshot key is deleted inside every submit transaction, so
// a stale cache never outlives the TTL or the next accepted score.
func (l *ScoreLedger) snapshotEntries(ctx context.Context, community string) ([]domain.RankedEntry, error) {
	cached, err := l.client.Get(ctx, rankingSnapshotKey(community)).Result()
	if err == nil {
		var entries []domain.RankedEntry
		if jsonErr := json.Unmarshal([]byte(cached), &entries); jsonErr == nil {
			return entries, nil
		}
	} else if err != redis.Nil {
		return nil, fmt.Errorf("read ranking snapshot: %w", err)
	}

	entries, err := l.buildRankingEntries(ctx, community, rankingSnapshotSize)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(entries); err == nil {
		// best-effort cache fill
		_ = l.client.Set(ctx, rankingSnapshotKey(community), data, l.snapshotTTL).Err()
	}
	return entries, nil
}

func (l *ScoreLedger) buildRankingEntries(ctx context.Context, community string, limit int) ([]domain.RankedEntry, error) {
	members, err := l.client.ZRevRangeWithScores(ctx, rankingKey(community), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	entries := make([]domain.RankedEntry, 0, len(members))
	if len(members) == 0 {
		return entries, nil
	}

	pipe := l.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, z := range members {
		cmds[i] = pipe.HGetAll(ctx, statsKey(community, z.Member.(string)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read player stats: %w", err)
	}

	for i, z := range members {
		fields := cmds[i].Val()
		quizCount, _ := strconv.Atoi(fields["quizCount"])
		lastUpdated, _ := strconv.ParseInt(fields["lastUpdated"], 10, 64)
		entries = append(entries, domain.RankedEntry{
			UserID:      z.Member.(string),
			TotalScore:  int(z.Score),
			QuizCount:   quizCount,
			LastUpdated: lastUpdated,
			Rank:        i + 1,
		})
	}
	return entries, nil
}

// QuizHistory pages through a user's completed quizzes, most recent first.
// Each entry's rank and answer are resolved against the live leaderboard and
// drawing metadata at read time; a user pruned out of a drawing's top
// entries gets a nil rank rather than a stale one.
func (l *ScoreLedger) QuizHistory(ctx context.Context, userID string, page, pageSize int) (domain.QuizHistory, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	total, err := l.client.ZCard(ctx, historyKey(userID)).Result()
	if err != nil {
		return domain.QuizHistory{}, fmt.Errorf("count history: %w", err)
	}

	start := int64((page - 1) * pageSize)
	members, err := l.client.ZRevRange(ctx, historyKey(userID), start, start+int64(pageSize)-1).Result()
	if err != nil {
		return domain.QuizHistory{}, fmt.Errorf("read history: %w", err)
	}

	history := domain.QuizHistory{Total: int(total), Entries: make([]domain.QuizHistoryEntry, 0, len(members))}
	for _, member := range members {
		var record historyRecord
		if err := json.Unmarshal([]byte(member), &record); err != nil {
			continue
		}
		entry := domain.QuizHistoryEntry{
			DrawingID:     record.DrawingID,
			Score:         record.Score,
			BaseScore:     record.BaseScore,
			TimeBonus:     record.TimeBonus,
			SubmittedAt:   record.SubmittedAt,
			CommunityName: record.CommunityName,
		}
		entry.DrawingAnswer, _ = l.client.HGet(ctx, drawingMetaKey(record.DrawingID), "answer").Result()
		entry.Rank = l.leaderboardRank(ctx, record.DrawingID, userID)
		history.Entries = append(history.Entries, entry)
	}
	return history, nil
}

func (l *ScoreLedger) leaderboardRank(ctx context.Context, drawingID, userID string) *int {
	pos, err := l.client.ZRevRank(ctx, leaderboardKey(drawingID), userID).Result()
	if err != nil || pos >= leaderboardSize {
		return nil
	}
	rank := int(pos) + 1
	return &rank
}
