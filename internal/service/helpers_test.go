package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/config"
	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/repository"
	"github.com/Dan9191/deposit-service/internal/service/mocks"
)

const testSecret = "test-hmac-secret"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func depositParams(principal float64) models.FDParameters {
	return models.FDParameters{
		Principal:            principal,
		TenureYears:          1,
		AnnualRatePercent:    6.5,
		CompoundingFrequency: models.Annually,
	}
}

type testEnv struct {
	svc       *Service
	generator *mocks.MockGenerator
	repo      *repository.MemoryRepository
	cache     *repository.MemoryCache
	notifier  *stubNotifier
}

func newTestEnv(t *testing.T, timeout time.Duration) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	env := &testEnv{
		generator: mocks.NewMockGenerator(ctrl),
		repo:      repository.NewMemoryRepository(),
		cache:     repository.NewMemoryCache(),
		notifier:  &stubNotifier{},
	}
	logger := quietLogger()
	explainer := NewExplainer(env.generator, env.cache, timeout, time.Hour, logger, nil)
	env.svc = NewService(env.repo, explainer, env.notifier, logger, &config.Config{HMACSecret: testSecret}, nil)
	t.Cleanup(env.svc.Wait)
	return env
}

type stubNotifier struct {
	sent []string
	err  error
}

func (n *stubNotifier) SendCalculationSummary(to string, _ models.Quote) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, to)
	return nil
}

type failingRepository struct{}

func (failingRepository) SaveCalculation(context.Context, *models.Calculation) error {
	return errors.New("database is down")
}

func (failingRepository) ListCalculations(context.Context, string, int) ([]models.Calculation, error) {
	return nil, errors.New("database is down")
}
