// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRankScheduler recomputes leaderboard ranks once a minute.
func (s *LeaderboardService) StartRankScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := s.RefreshRanks(); err != nil {
				log.Printf("[Scheduler] rank refresh failed: %v", err)
			}
		}),
	)
}
