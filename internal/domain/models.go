package domain

// Point is a single canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen-down-to-pen-up sequence of points.
// Timestamp is milliseconds since the drawing session started, used to
// replay at original pacing.
type Stroke struct {
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Timestamp int64   `json:"timestamp"`
}

// Drawing is an immutable stroke sequence plus guessing metadata.
// TotalStrokes mirrors len(Strokes) at creation time.
type Drawing struct {
	ID           string   `json:"id"`
	CreatedBy    string   `json:"createdBy"`
	CreatedAt    int64    `json:"createdAt"`
	Answer       string   `json:"answer"`
	Hint         string   `json:"hint,omitempty"`
	Strokes      []Stroke `json:"strokes"`
	TotalStrokes int      `json:"totalStrokes"`
}

// Score is the best result a user achieved on one drawing. The store keeps
// a single record per (drawing, user) pair and only ever replaces it with a
// strictly higher score.
type Score struct {
	ID            string  `json:"id"`
	DrawingID     string  `json:"drawingId"`
	UserID        string  `json:"userId"`
	Score         int     `json:"score"`
	BaseScore     int     `json:"baseScore"`
	TimeBonus     int     `json:"timeBonus"`
	ElapsedTime   float64 `json:"elapsedTime"`
	ViewedStrokes float64 `json:"viewedStrokes"`
	SubmittedAt   int64   `json:"submittedAt"`
}

// PlayerStats are the running per-user aggregates, maintained incrementally
// by the score ledger. One record exists globally and one per community the
// user has played in.
type PlayerStats struct {
	UserID      string `json:"userId"`
	TotalScore  int    `json:"totalScore"`
	QuizCount   int    `json:"quizCount"`
	LastUpdated int64  `json:"lastUpdated"`
}

// RankedEntry is one row of a global or community ranking.
type RankedEntry struct {
	UserID      string `json:"userId"`
	TotalScore  int    `json:"totalScore"`
	QuizCount   int    `json:"quizCount"`
	LastUpdated int64  `json:"lastUpdated"`
	Rank        int    `json:"rank"`
}

// Ranking is a page of ranked entries plus the total participant count for
// the scope. CurrentUserRank is nil when the requesting user has no
// aggregate record in that scope.
type Ranking struct {
	Entries         []RankedEntry `json:"entries"`
	Total           int           `json:"total"`
	CurrentUserRank *int          `json:"currentUserRank,omitempty"`
}

// QuizHistoryEntry is one completed quiz in a user's chronological log.
// Rank is resolved from the live per-drawing leaderboard at read time and is
// nil when the user is no longer in its top entries.
type QuizHistoryEntry struct {
	DrawingID     string `json:"drawingId"`
	DrawingAnswer string `json:"drawingAnswer"`
	Score         int    `json:"score"`
	BaseScore     int    `json:"baseScore"`
	TimeBonus     int    `json:"timeBonus"`
	SubmittedAt   int64  `json:"submittedAt"`
	CommunityName string `json:"communityName,omitempty"`
	Rank          *int   `json:"rank"`
}

// QuizHistory is a page of history entries; Total is the full log length.
type QuizHistory struct {
	Entries []QuizHistoryEntry `json:"entries"`
	Total   int                `json:"total"`
}

// GuessResult summarizes the outcome of one guess submission.
type GuessResult struct {
	Correct   bool   `json:"correct"`
	Answer    string `json:"answer"`
	Score     int    `json:"score"`
	BaseScore int    `json:"baseScore"`
	TimeBonus int    `json:"timeBonus"`
}
