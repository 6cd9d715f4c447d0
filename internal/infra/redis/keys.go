package redis

import "fmt"

// Key layout. Stroke payloads and guessing metadata live in separate hashes
// so the leaderboard paths never deserialize stroke data.
const (
	drawingCounterKey = "drawings:id:counter"
	drawingListKey    = "drawings:list"
	globalRankingKey  = "global:leaderboard"
)

func drawingKey(id string) string {
	return "drawings:" + id
}

func drawingMetaKey(id string) string {
	return "drawings:meta:" + id
}

func scoreKey(drawingID, userID string) string {
	return fmt.Sprintf("scores:%s:%s", drawingID, userID)
}

func leaderboardKey(drawingID string) string {
	return "leaderboard:" + drawingID
}

func historyKey(userID string) string {
	return "user:" + userID + ":quiz-history"
}

// statsKey returns the aggregate hash for a user; community "" is the
// global scope.
func statsKey(community, userID string) string {
	if community == "" {
		return "player:" + userID + ":stats"
	}
	return fmt.Sprintf("subreddit:%s:player:%s:stats", community, userID)
}

func rankingKey(community string) string {
	if community == "" {
		return globalRankingKey
	}
	return "subreddit:" + community + ":leaderboard"
}

func rankingSnapshotKey(community string) string {
	return rankingKey(community) + ":snapshot"
}
