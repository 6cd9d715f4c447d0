package app

import (
	"sync"

	"sketch-guess-service/internal/domain"
)

// LeaderboardUpdate is a push notification with a drawing's refreshed top
// scores after an accepted submission.
type LeaderboardUpdate struct {
	DrawingID string         `json:"drawingId"`
	Scores    []domain.Score `json:"scores"`
	UpdatedAt int64          `json:"updatedAt"`
}

// leaderboardFeed fans leaderboard updates out to websocket subscribers.
// Slow consumers get stale frames dropped instead of blocking publishers.
type leaderboardFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan LeaderboardUpdate]struct{}
}

func newLeaderboardFeed() *leaderboardFeed {
	return &leaderboardFeed{subs: make(map[string]map[chan LeaderboardUpdate]struct{})}
}

func (f *leaderboardFeed) subscribe(drawingID string) (<-chan LeaderboardUpdate, func()) {
	ch := make(chan LeaderboardUpdate, 8)

	f.mu.Lock()
	if f.subs[drawingID] == nil {
		f.subs[drawingID] = make(map[chan LeaderboardUpdate]struct{})
	}
	f.subs[drawingID][ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if set, ok := f.subs[drawingID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(f.subs, drawingID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *leaderboardFeed) hasSubscribers(drawingID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[drawingID]) > 0
}

func (f *leaderboardFeed) publish(drawingID string, update LeaderboardUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[drawingID] {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}
