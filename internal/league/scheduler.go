package league

import (
	"context"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/leaderboard"
	"github.com/ZJUSCT/DailyBoard/internal/scoring"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// finalizationCron fires when a UTC date's 36 hour window closes: the next
// calendar day at 12:00 UTC.
const finalizationCron = "0 12 * * *"

// StartScheduler starts the background jobs the configured policy and mode
// need: the daily finalization sweep under utc12_finalized and the stale
// retry sweep in cached mode. The caller shuts the scheduler down.
func (s *Service) StartScheduler(retryInterval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	if s.resolver.Policy() == scoring.PolicyUTC12Finalized && s.boards.Mode() == leaderboard.ModeCached {
		_, err = sched.NewJob(
			gocron.CronJob(finalizationCron, false),
			gocron.NewTask(s.finalizeDays),
			gocron.WithName("finalize-days"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}

	if s.boards.Mode() == leaderboard.ModeCached {
		_, err = sched.NewJob(
			gocron.DurationJob(retryInterval),
			gocron.NewTask(s.retryStale),
			gocron.WithName("retry-stale"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}

func (s *Service) finalizeDays() {
	zap.S().Info("[Scheduler] day finalized, refreshing all groups")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.WarmUp(ctx); err != nil {
		zap.S().Errorf("[Scheduler] finalization refresh failed: %v", err)
	}
}

func (s *Service) retryStale() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.boards.RetryStale(ctx); err != nil {
		zap.S().Warnf("[Scheduler] stale refresh retry failed: %v", err)
	}
}
