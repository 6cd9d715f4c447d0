package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"sketch-guess-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Archive is a durable backing store for drawings (e.g. Postgres). Redis
// holds the hot copy; a cache miss falls through to the archive.
type Archive interface {
	LoadDrawing(ctx context.Context, id string) (domain.Drawing, error)
	StoreDrawing(ctx context.Context, d domain.Drawing) error
}

// AnsweredChecker reports whether a user already has a score recorded for a
// drawing. The score ledger provides this.
type AnsweredChecker interface {
	HasScored(ctx context.Context, drawingID, userID string) (bool, error)
}

// DrawingStore persists drawings in Redis: a hash with the compressed stroke
// payload, a hash with guessing metadata, and a sorted set indexing every
// drawing by creation time. Ids come from a monotonically increasing counter.
type DrawingStore struct {
	client   *redis.Client
	archive  Archive
	answered AnsweredChecker
	sf       singleflight.Group
	rnd      *rand.Rand
}

// NewDrawingStore builds a store; archive may be nil when no durable backing
// store is configured.
func NewDrawingStore(client *redis.Client, archive Archive, answered AnsweredChecker) *DrawingStore {
	return &DrawingStore{
		client:   client,
		archive:  archive,
		answered: answered,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *DrawingStore) SaveDrawing(ctx context.Context, d domain.Drawing) (string, error) {
	seq, err := s.client.Incr(ctx, drawingCounterKey).Result()
	if err != nil {
		return "", fmt.Errorf("allocate drawing id: %w", err)
	}
	d.ID = fmt.Sprintf("drawing-%d", seq)

	if err := s.writeDrawing(ctx, d); err != nil {
		return "", err
	}

	if s.archive != nil {
		// best-effort: the hot copy is authoritative for gameplay
		if err := s.archive.StoreDrawing(ctx, d); err != nil {
			log.Printf("archive drawing %s: %v", d.ID, err)
		}
	}
	return d.ID, nil
}

func (s *DrawingStore) writeDrawing(ctx context.Context, d domain.Drawing) error {
	payload, err := compressStrokes(d.Strokes)
	if err != nil {
		return fmt.Errorf("compress strokes: %w", err)
	}

	meta := map[string]interface{}{
		"answer":    d.Answer,
		"createdBy": d.CreatedBy,
		"createdAt": strconv.FormatInt(d.CreatedAt, 10),
	}
	if d.Hint != "" {
		meta["hint"] = d.Hint
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, drawingKey(d.ID), "strokes", payload, "totalStrokes", strconv.Itoa(d.TotalStrokes))
	pipe.HSet(ctx, drawingMetaKey(d.ID), meta)
	pipe.ZAdd(ctx, drawingListKey, redis.Z{Score: float64(d.CreatedAt), Member: d.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save drawing %s: %w", d.ID, err)
	}
	return nil
}

func (s *DrawingStore) GetDrawing(ctx context.Context, id string) (domain.Drawing, bool, error) {
	d, ok, err := s.readDrawing(ctx, id)
	if err != nil || ok {
		return d, ok, err
	}
	if s.archive == nil {
		return domain.Drawing{}, false, nil
	}

	result, err, _ := s.sf.Do(id, func() (interface{}, error) {
		// re-check in case another goroutine filled the cache
		if d, ok, err := s.readDrawing(ctx, id); err != nil || ok {
			return d, err
		}
		d, err := s.archive.LoadDrawing(ctx, id)
		if err != nil {
			return domain.Drawing{}, err
		}
		if err := s.writeDrawing(ctx, d); err != nil {
			log.Printf("cache drawing %s: %v", id, err)
		}
		return d, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDrawingNotFound) {
			return domain.Drawing{}, false, nil
		}
		return domain.Drawing{}, false, err
	}
	return result.(domain.Drawing), true, nil
}

func (s *DrawingStore) readDrawing(ctx context.Context, id string) (domain.Drawing, bool, error) {
	pipe := s.client.Pipeline()
	dataCmd := pipe.HGetAll(ctx, drawingKey(id))
	metaCmd := pipe.HGetAll(ctx, drawingMetaKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Drawing{}, false, fmt.Errorf("read drawing %s: %w", id, err)
	}

	data := dataCmd.Val()
	meta := metaCmd.Val()
	if len(data) == 0 || len(meta) == 0 {
		return domain.Drawing{}, false, nil
	}

	strokes, err := decompressStrokes(data["strokes"])
	if err != nil {
		return domain.Drawing{}, false, fmt.Errorf("decompress drawing %s: %w", id, err)
	}
	totalStrokes, _ := strconv.Atoi(data["totalStrokes"])
	createdAt, _ := strconv.ParseInt(meta["createdAt"], 10, 64)

	return domain.Drawing{
		ID:           id,
		CreatedBy:    meta["createdBy"],
		CreatedAt:    createdAt,
		Answer:       meta["answer"],
		Hint:         meta["hint"],
		Strokes:      strokes,
		TotalStrokes: totalStrokes,
	}, true, nil
}

// RandomDrawing samples uniformly from the drawing index. With a user id it
// first drops drawings that user has already scored on, so replays of solved
// quizzes are never served; found is false when nothing remains.
func (s *DrawingStore) RandomDrawing(ctx context.Context, excludeUserID string) (domain.Drawing, bool, error) {
	ids, err := s.client.ZRange(ctx, drawingListKey, 0, -1).Result()
	if err != nil {
		return domain.Drawing{}, false, fmt.Errorf("list drawings: %w", err)
	}

	if excludeUserID != "" {
		remaining := ids[:0]
		for _, id := range ids {
			scored, err := s.answered.HasScored(ctx, id, excludeUserID)
			if err != nil {
				return domain.Drawing{}, false, err
			}
			if !scored {
				remaining = append(remaining, id)
			}
		}
		ids = remaining
	}
	if len(ids) == 0 {
		return domain.Drawing{}, false, nil
	}
	return s.GetDrawing(ctx, ids[s.rnd.Intn(len(ids))])
}
