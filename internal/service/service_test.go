package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/deposit-service/internal/calculator"
	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/repository"
	"github.com/Dan9191/deposit-service/internal/utils"
)

func TestCalculate_ReturnsQuoteAndRecordsIt(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("Grows to 106500.", nil)
	ctx := context.Background()

	quote, err := env.svc.Calculate(ctx, "alice", depositParams(100000))
	require.NoError(t, err)

	assert.InDelta(t, 106500.0, quote.Result.MaturityAmount, 1e-6)
	assert.InDelta(t, 6500.0, quote.Result.TotalInterest, 1e-6)
	assert.Equal(t, "106500.00", quote.Display.MaturityAmount)
	assert.Equal(t, "6500.00", quote.Display.TotalInterest)
	assert.Equal(t, "Grows to 106500.", quote.Explanation)
	assert.Equal(t, models.ExplanationGenerated, quote.ExplanationSource)

	history, err := env.svc.History(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Grows to 106500.", history[0].Explanation)
	assert.True(t, utils.VerifyHMAC(history[0].Params, history[0].Result, history[0].Signature, testSecret))
	assert.True(t, history[0].Verified)
}

func TestCalculate_InvalidInputNeverCallsGenerator(t *testing.T) {
	env := newTestEnv(t, time.Second)

	_, err := env.svc.Calculate(context.Background(), "alice", depositParams(0))

	var verrs calculator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.ErrorIs(t, err, calculator.ErrInvalidParameters)

	history, _ := env.svc.History(context.Background(), "alice", 10)
	assert.Empty(t, history)
}

func TestCalculate_CollaboratorFailureKeepsNumbers(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("", errors.New("503 from upstream"))

	quote, err := env.svc.Calculate(context.Background(), "", depositParams(100000))
	require.NoError(t, err)

	assert.Equal(t, FallbackExplanation, quote.Explanation)
	assert.Equal(t, models.ExplanationFallback, quote.ExplanationSource)
	assert.Equal(t, "106500.00", quote.Display.MaturityAmount)
	assert.Equal(t, "6500.00", quote.Display.TotalInterest)

	history, _ := env.svc.History(context.Background(), AnonymousOwner, 10)
	assert.Len(t, history, 1)
}

func TestCalculate_HistoryFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("fine", nil)
	env.svc.repo = failingRepository{}

	quote, err := env.svc.Calculate(context.Background(), "alice", depositParams(5000))
	require.NoError(t, err)
	assert.Equal(t, "fine", quote.Explanation)
}

func TestSubmit_LateReplyDoesNotOverwriteNewerSubmission(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	release := make(chan struct{})
	var once sync.Once
	defer once.Do(func() { close(release) })

	first, second := depositParams(1000), depositParams(2000)
	env.generator.EXPECT().
		GenerateExplanation(gomock.Any(), models.ExplanationRequest{FDParameters: first, FDResult: mustCalculate(t, first)}).
		DoAndReturn(func(context.Context, models.ExplanationRequest) (string, error) {
			<-release
			return "explanation for the first submission", nil
		})
	env.generator.EXPECT().
		GenerateExplanation(gomock.Any(), models.ExplanationRequest{FDParameters: second, FDResult: mustCalculate(t, second)}).
		Return("explanation for the second submission", nil)

	ctx := context.Background()
	v1, err := env.svc.Submit(ctx, "alice", "form-1", first)
	require.NoError(t, err)
	assert.True(t, v1.Pending)
	assert.Equal(t, models.ExplanationPending, v1.Source)
	assert.Equal(t, uint64(1), v1.Generation)
	assert.Equal(t, "1065.00", v1.Display.MaturityAmount)

	v2, err := env.svc.Submit(ctx, "alice", "form-1", second)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2.Generation)

	assert.Eventually(t, func() bool {
		view, _ := env.svc.Session("alice", "form-1")
		return !view.Pending
	}, time.Second, 5*time.Millisecond)

	once.Do(func() { close(release) })
	env.svc.Wait()

	view, ok := env.svc.Session("alice", "form-1")
	require.True(t, ok)
	assert.Equal(t, uint64(2), view.Generation)
	assert.Equal(t, second, view.Params)
	assert.Equal(t, "explanation for the second submission", view.Explanation)
	assert.Equal(t, models.ExplanationGenerated, view.Source)
}

func TestSubmit_InvalidInputLeavesSessionUntouched(t *testing.T) {
	env := newTestEnv(t, time.Second)

	_, err := env.svc.Submit(context.Background(), "alice", "form-2", depositParams(-5))
	assert.ErrorIs(t, err, calculator.ErrInvalidParameters)

	_, ok := env.svc.Session("alice", "form-2")
	assert.False(t, ok)
}

func TestSubmit_FallbackIsShownInSession(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("", errors.New("boom"))

	_, err := env.svc.Submit(context.Background(), "", "form-3", depositParams(100000))
	require.NoError(t, err)
	env.svc.Wait()

	view, ok := env.svc.Session("", "form-3")
	require.True(t, ok)
	assert.False(t, view.Pending)
	assert.Equal(t, FallbackExplanation, view.Explanation)
	assert.Equal(t, "106500.00", view.Display.MaturityAmount)
}

func TestHistory_LimitIsClamped(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("ok", nil).AnyTimes()

	for i := 0; i < MaxHistoryLimit+5; i++ {
		_, err := env.svc.Calculate(context.Background(), "bob", depositParams(float64(1000+i)))
		require.NoError(t, err)
	}

	all, err := env.svc.History(context.Background(), "bob", 1000)
	require.NoError(t, err)
	assert.Len(t, all, MaxHistoryLimit)

	def, err := env.svc.History(context.Background(), "bob", 0)
	require.NoError(t, err)
	assert.Len(t, def, DefaultHistoryLimit)
}

func TestSendSummary(t *testing.T) {
	t.Run("sends to parsed address", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("ok", nil)

		quote, err := env.svc.SendSummary(context.Background(), "alice", "Alice <alice@example.com>", depositParams(100000))
		require.NoError(t, err)
		assert.Equal(t, "106500.00", quote.Display.MaturityAmount)
		assert.Equal(t, []string{"alice@example.com"}, env.notifier.sent)
	})

	t.Run("rejects bad recipient before calculating", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		_, err := env.svc.SendSummary(context.Background(), "alice", "not an address", depositParams(100000))
		assert.ErrorIs(t, err, ErrInvalidRecipient)
	})

	t.Run("reports delivery failure", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("ok", nil)
		env.notifier.err = errors.New("smtp down")

		_, err := env.svc.SendSummary(context.Background(), "alice", "alice@example.com", depositParams(100000))
		assert.ErrorIs(t, err, ErrNotificationFailed)
	})

	t.Run("disabled without notifier", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.svc.notifier = nil
		_, err := env.svc.SendSummary(context.Background(), "alice", "alice@example.com", depositParams(100000))
		assert.ErrorIs(t, err, ErrNotificationsDisabled)
	})
}

func TestPruneSessions(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("ok", nil)

	_, err := env.svc.Submit(context.Background(), "", "old", depositParams(1000))
	require.NoError(t, err)
	env.svc.Wait()

	env.svc.sessions.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, env.svc.PruneSessions(time.Hour))
	_, ok := env.svc.Session("", "old")
	assert.False(t, ok)
}

func mustCalculate(t *testing.T, p models.FDParameters) models.FDResult {
	t.Helper()
	res, err := calculator.Calculate(p)
	require.NoError(t, err)
	return res
}

func TestSubmit_SessionsAreBoundToTheirOwner(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.generator.EXPECT().GenerateExplanation(gomock.Any(), gomock.Any()).Return("ok", nil)

	_, err := env.svc.Submit(context.Background(), "alice", "shared-id", depositParams(1000))
	require.NoError(t, err)
	env.svc.Wait()

	_, err = env.svc.Submit(context.Background(), "bob", "shared-id", depositParams(999999))
	assert.ErrorIs(t, err, ErrSessionOwned)
	_, err = env.svc.Submit(context.Background(), "", "shared-id", depositParams(999999))
	assert.ErrorIs(t, err, ErrSessionOwned)

	_, ok := env.svc.Session("bob", "shared-id")
	assert.False(t, ok)

	view, ok := env.svc.Session("alice", "shared-id")
	require.True(t, ok)
	assert.Equal(t, depositParams(1000), view.Params)
	assert.Equal(t, uint64(1), view.Generation)
}

type cancelSensitiveRepository struct {
	*repository.MemoryRepository
}

func (r cancelSensitiveRepository) SaveCalculation(ctx context.Context, calc *models.Calculation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.MemoryRepository.SaveCalculation(ctx, calc)
}

func TestCalculate_RecordsAfterClientDisconnect(t *testing.T) {
	env := newTestEnv(t, time.Second)
	repo := cancelSensitiveRepository{env.repo}
	env.svc.repo = repo

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	quote, err := env.svc.Calculate(ctx, "alice", depositParams(100000))
	require.NoError(t, err)
	assert.Equal(t, models.ExplanationFallback, quote.ExplanationSource)

	history, err := env.svc.History(context.Background(), "alice", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHistory_FlagsTamperedRows(t *testing.T) {
	env := newTestEnv(t, time.Second)
	params := depositParams(100000)
	result := mustCalculate(t, params)

	require.NoError(t, env.repo.SaveCalculation(context.Background(), &models.Calculation{
		Owner:     "alice",
		Params:    params,
		Result:    result,
		Signature: utils.GenerateHMAC(params, result, testSecret),
	}))
	tampered := result
	tampered.MaturityAmount *= 10
	require.NoError(t, env.repo.SaveCalculation(context.Background(), &models.Calculation{
		Owner:     "alice",
		Params:    params,
		Result:    tampered,
		Signature: utils.GenerateHMAC(params, result, testSecret),
	}))

	history, err := env.svc.History(context.Background(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Verified)
	assert.True(t, history[1].Verified)
}
