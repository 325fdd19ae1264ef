package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/deposit-service/internal/models"
)

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context) (models.KeyRate, error) {
	s.calls++
	if _, ok := ctx.Deadline(); !ok {
		return models.KeyRate{}, errors.New("refresh called without deadline")
	}
	return models.KeyRate{Date: time.Date(2024, 10, 28, 0, 0, 0, 0, time.UTC), Rate: 21}, s.err
}

type stubPruner struct {
	maxIdle time.Duration
}

func (s *stubPruner) PruneSessions(maxIdle time.Duration) int {
	s.maxIdle = maxIdle
	return 0
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNew_RejectsInvalidSchedule(t *testing.T) {
	_, err := New("every now and then", &stubRefresher{}, &stubPruner{}, quietLogger())
	assert.Error(t, err)
}

func TestNew_RegistersJobs(t *testing.T) {
	s, err := New("@every 1h", &stubRefresher{}, &stubPruner{}, quietLogger())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestJobs(t *testing.T) {
	refresher := &stubRefresher{}
	pruner := &stubPruner{}
	s, err := New("0 * * * *", refresher, pruner, quietLogger())
	require.NoError(t, err)

	s.RefreshKeyRate()
	assert.Equal(t, 1, refresher.calls)

	refresher.err = errors.New("cbr unavailable")
	assert.NotPanics(t, s.RefreshKeyRate)
	assert.Equal(t, 2, refresher.calls)

	s.PruneSessions()
	assert.Equal(t, SessionMaxIdle, pruner.maxIdle)
}

func TestStartStop(t *testing.T) {
	s, err := New("@every 1h", &stubRefresher{}, &stubPruner{}, quietLogger())
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
