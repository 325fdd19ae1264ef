package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/models"
)

const (
	sessionPruneSchedule = "@every 10m"
	// SessionMaxIdle is how long a settled form session is kept
	SessionMaxIdle = time.Hour
	refreshTimeout = 30 * time.Second
)

// KeyRateRefresher reloads the cached key rate
type KeyRateRefresher interface {
	Refresh(ctx context.Context) (models.KeyRate, error)
}

// SessionPruner drops idle calculator sessions
type SessionPruner interface {
	PruneSessions(maxIdle time.Duration) int
}

// Scheduler runs the periodic background jobs
type Scheduler struct {
	cron     *cron.Cron
	keyRate  KeyRateRefresher
	sessions SessionPruner
	log      *logrus.Logger
}

// New registers the key rate refresh on keyRateSpec and the session pruning job
func New(keyRateSpec string, keyRate KeyRateRefresher, sessions SessionPruner, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		keyRate:  keyRate,
		sessions: sessions,
		log:      log,
	}
	if _, err := s.cron.AddFunc(keyRateSpec, s.RefreshKeyRate); err != nil {
		return nil, fmt.Errorf("invalid key rate schedule %q: %w", keyRateSpec, err)
	}
	if _, err := s.cron.AddFunc(sessionPruneSchedule, s.PruneSessions); err != nil {
		return nil, fmt.Errorf("invalid session prune schedule: %w", err)
	}
	return s, nil
}

// Start runs the jobs in the background
func (s *Scheduler) Start() {
	s.log.Infof("Scheduler started with %d jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs or ctx
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out")
	}
}

// RefreshKeyRate reloads the key rate. Errors are logged only.
func (s *Scheduler) RefreshKeyRate() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	rate, err := s.keyRate.Refresh(ctx)
	if err != nil {
		s.log.Errorf("Scheduled key rate refresh failed: %v", err)
		return
	}
	s.log.Infof("Key rate refreshed: %.2f%% as of %s", rate.Rate, rate.Date.Format("2006-01-02"))
}

// PruneSessions drops form sessions idle for longer than SessionMaxIdle
func (s *Scheduler) PruneSessions() {
	s.sessions.PruneSessions(SessionMaxIdle)
}
