package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/calculator"
	"github.com/Dan9191/deposit-service/internal/config"
	"github.com/Dan9191/deposit-service/internal/metrics"
	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/repository"
	"github.com/Dan9191/deposit-service/internal/utils"
)

const (
	// AnonymousOwner owns calculations submitted without a token
	AnonymousOwner = "anonymous"

	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

var (
	ErrInvalidRecipient      = errors.New("invalid recipient address")
	ErrNotificationFailed    = errors.New("failed to send summary")
	ErrNotificationsDisabled = errors.New("summary notifications are not configured")
)

// Notifier delivers a calculation summary to a recipient
type Notifier interface {
	SendCalculationSummary(to string, quote models.Quote) error
}

// Service handles business logic
type Service struct {
	repo      repository.CalculationRepository
	explainer *Explainer
	notifier  Notifier
	sessions  *SessionStore
	log       *logrus.Logger
	config    *config.Config
	metrics   *metrics.Metrics
	inflight  sync.WaitGroup
}

// NewService initializes a new service. notifier may be nil.
func NewService(
	repo repository.CalculationRepository,
	explainer *Explainer,
	notifier Notifier,
	log *logrus.Logger,
	cfg *config.Config,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		explainer: explainer,
		notifier:  notifier,
		sessions:  NewSessionStore(),
		log:       log,
		config:    cfg,
		metrics:   m,
	}
}

// Calculate validates params, computes the deposit and waits for its
// explanation. Validation errors are returned as calculator.ValidationErrors;
// explanation failures never are.
func (s *Service) Calculate(ctx context.Context, owner string, params models.FDParameters) (models.Quote, error) {
	result, err := s.compute(params)
	if err != nil {
		return models.Quote{}, err
	}

	explanation := s.explainer.Explain(ctx, models.ExplanationRequest{FDParameters: params, FDResult: result})
	s.record(ctx, owner, params, result, explanation)

	return models.Quote{
		Params:            params,
		Result:            result,
		Display:           utils.NewDisplay(result),
		Explanation:       explanation.Explanation,
		ExplanationSource: explanation.Source,
	}, nil
}

// Submit computes the deposit for a form session and resolves the
// explanation in the background. The returned view is pending; a later
// submission to the same session supersedes it. Sessions created by another
// owner are rejected with ErrSessionOwned.
func (s *Service) Submit(ctx context.Context, owner, sessionID string, params models.FDParameters) (models.SessionView, error) {
	result, err := s.compute(params)
	if err != nil {
		return models.SessionView{}, err
	}

	view, err := s.sessions.Begin(sessionID, ownerOrAnonymous(owner), params, result)
	if err != nil {
		return models.SessionView{}, err
	}
	bg := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		explanation := s.explainer.Explain(bg, models.ExplanationRequest{FDParameters: params, FDResult: result})
		s.record(bg, owner, params, result, explanation)

		if !s.sessions.Resolve(sessionID, view.Generation, explanation) {
			s.metrics.ObserveStaleResult()
			s.log.Debugf("Discarding stale explanation for session %s generation %d", sessionID, view.Generation)
		}
	}()

	return view, nil
}

// Session returns the latest view of a form session owned by owner
func (s *Service) Session(owner, sessionID string) (models.SessionView, bool) {
	return s.sessions.Get(sessionID, ownerOrAnonymous(owner))
}

// PruneSessions drops form sessions idle for longer than maxIdle
func (s *Service) PruneSessions(maxIdle time.Duration) int {
	removed := s.sessions.Prune(maxIdle)
	if removed > 0 {
		s.log.Infof("Pruned %d idle calculator sessions", removed)
	}
	return removed
}

// Wait blocks until every background explanation has finished
func (s *Service) Wait() {
	s.inflight.Wait()
}

// History lists the owner's calculations, newest first, with their
// signatures checked
func (s *Service) History(ctx context.Context, owner string, limit int) ([]models.Calculation, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	calcs, err := s.repo.ListCalculations(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	for i := range calcs {
		calcs[i].Verified = utils.VerifyHMAC(calcs[i].Params, calcs[i].Result, calcs[i].Signature, s.config.HMACSecret)
		if !calcs[i].Verified {
			s.log.Warnf("Calculation %d of %s failed signature check", calcs[i].ID, owner)
		}
	}
	return calcs, nil
}

// SendSummary calculates the deposit and mails the result to the recipient
func (s *Service) SendSummary(ctx context.Context, owner, to string, params models.FDParameters) (models.Quote, error) {
	if s.notifier == nil {
		return models.Quote{}, ErrNotificationsDisabled
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	quote, err := s.Calculate(ctx, owner, params)
	if err != nil {
		return models.Quote{}, err
	}

	if err := s.notifier.SendCalculationSummary(addr.Address, quote); err != nil {
		return quote, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	s.log.Infof("Deposit summary sent to %s", addr.Address)
	return quote, nil
}

func (s *Service) compute(params models.FDParameters) (models.FDResult, error) {
	result, err := calculator.Calculate(params)
	s.metrics.ObserveCalculation(err == nil)
	if err != nil {
		s.log.Debugf("Rejected deposit parameters: %v", err)
		return models.FDResult{}, err
	}
	return result, nil
}

// record stores the calculation even if the caller has gone away; failures
// are logged and otherwise ignored
func (s *Service) record(
	ctx context.Context,
	owner string,
	params models.FDParameters,
	result models.FDResult,
	explanation models.ExplanationResult,
) {
	calc := &models.Calculation{
		Owner:       ownerOrAnonymous(owner),
		Params:      params,
		Result:      result,
		Explanation: explanation.Explanation,
		Signature:   utils.GenerateHMAC(params, result, s.config.HMACSecret),
	}
	if err := s.repo.SaveCalculation(context.WithoutCancel(ctx), calc); err != nil {
		s.log.Warnf("Failed to save deposit calculation: %v", err)
	}
}

func ownerOrAnonymous(owner string) string {
	if owner == "" {
		return AnonymousOwner
	}
	return owner
}
