// workers/match_worker.go
package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sjais1337/prog-battle/models"
	"github.com/sjais1337/prog-battle/services"

	"gorm.io/gorm"
)

const queueCapacity = 1024

// MatchQueue feeds pending match IDs to a pool of runner goroutines.
// Enqueue never blocks the caller: a full queue drops the ID and the
// periodic pending sweep picks it back up.
type MatchQueue struct {
	db      *gorm.DB
	runner  *services.MatchRunner
	workers int
	jobs    chan string
	wg      sync.WaitGroup
}

func NewMatchQueue(db *gorm.DB, runner *services.MatchRunner, workers int) *MatchQueue {
	if workers < 1 {
		workers = 1
	}
	return &MatchQueue{
		db:      db,
		runner:  runner,
		workers: workers,
		jobs:    make(chan string, queueCapacity),
	}
}

// Enqueue hands a match ID to the pool. Safe to call from request
// handlers; duplicates are harmless because the runner's claim is
// conditional.
func (q *MatchQueue) Enqueue(matchID string) {
	select {
	case q.jobs <- matchID:
	default:
		log.Printf("⚠️ Match queue full, dropping %s (pending sweep will requeue)", matchID)
	}
}

func (q *MatchQueue) Start(ctx context.Context) {
	log.Printf("🔁 Starting Match Queue with %d workers…", q.workers)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	go q.sweep(ctx)
}

// Wait blocks until every worker has drained out after ctx is done.
func (q *MatchQueue) Wait() {
	q.wg.Wait()
}

func (q *MatchQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case matchID := <-q.jobs:
			if err := q.runner.Execute(matchID); err != nil {
				log.Printf("❌ Worker %d: match %s failed: %v", id, matchID, err)
			}
		case <-ctx.Done():
			log.Printf("⏹️ Match worker %d stopped", id)
			return
		}
	}
}

// sweep periodically requeues matches that are still pending in the
// database. This recovers anything enqueued before a crash or dropped
// on a full queue.
func (q *MatchQueue) sweep(ctx context.Context) {
	q.requeuePending()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.requeuePending()
		case <-ctx.Done():
			return
		}
	}
}

func (q *MatchQueue) requeuePending() {
	cutoff := time.Now().Add(-30 * time.Second)

	var ids []string
	err := q.db.Model(&models.Match{}).
		Where("status = ? AND created_at < ?", models.MatchStatusPending, cutoff).
		Order("created_at ASC").
		Limit(queueCapacity / 2).
		Pluck("id", &ids).Error
	if err != nil {
		log.Printf("❌ Pending sweep query failed: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	log.Printf("[Queue] requeuing %d pending matches", len(ids))
	for _, id := range ids {
		q.Enqueue(id)
	}
}
