package services

import (
	"context"
	"time"

	"goat-rush/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs: retiring
// expired questions and dropping stale rounds. Call Shutdown on the result.
func StartMaintenanceScheduler(questions QuestionWriter, game *GameService, clock clockwork.Clock) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}

	// Every minute: deactivate questions past their expiry date
	if _, err := sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			n, err := questions.DeactivateExpired(ctx, clock.Now())
			if err != nil {
				logger.Errorf("[scheduler] failed to deactivate expired questions: %v", err)
				return
			}
			if n > 0 {
				logger.Infof("[scheduler] deactivated %d expired questions", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	// Every minute: drop finished or abandoned rounds
	if _, err := sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			if n := game.Sweep(clock.Now()); n > 0 {
				logger.Debugf("[scheduler] swept %d rounds", n)
			}
		}),
	); err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
