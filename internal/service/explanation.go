package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/integrations/genai"
	"github.com/Dan9191/deposit-service/internal/metrics"
	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/repository"
	"github.com/Dan9191/deposit-service/internal/utils"
)

//go:generate mockgen -source=explanation.go -destination=mocks/mock_generator.go -package=mocks

// FallbackExplanation is shown whenever no explanation could be generated
const FallbackExplanation = "Could not generate an explanation at this time. Please try again later."

const explanationKeyPrefix = "fd:explanation:"

var (
	// ErrExplanationTimeout is reported when the generator does not answer in time
	ErrExplanationTimeout = errors.New("explanation request timed out")
	// ErrEmptyExplanation is reported when the generator answers with blank text
	ErrEmptyExplanation = errors.New("empty explanation")
)

// Generator produces a plain-language explanation of a calculation
type Generator interface {
	GenerateExplanation(ctx context.Context, req models.ExplanationRequest) (string, error)
}

// Explainer requests explanations and masks every failure behind
// FallbackExplanation
type Explainer struct {
	generator Generator
	cache     repository.CacheRepository
	cacheTTL  time.Duration
	timeout   time.Duration
	log       *logrus.Logger
	metrics   *metrics.Metrics
}

// NewExplainer initializes a new explainer. cache may be nil.
func NewExplainer(
	generator Generator,
	cache repository.CacheRepository,
	timeout time.Duration,
	cacheTTL time.Duration,
	log *logrus.Logger,
	m *metrics.Metrics,
) *Explainer {
	return &Explainer{
		generator: generator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		timeout:   timeout,
		log:       log,
		metrics:   m,
	}
}

type generatorReply struct {
	text string
	err  error
}

// Explain returns an explanation for req. It never fails: on any error the
// result carries FallbackExplanation and the cause in Failure.
func (e *Explainer) Explain(ctx context.Context, req models.ExplanationRequest) models.ExplanationResult {
	start := time.Now()
	key := utils.CacheKey(explanationKeyPrefix, req.FDParameters, req.FDResult)

	if e.cache != nil {
		if text, ok := e.cache.Get(ctx, key); ok {
			e.metrics.ObserveExplanation(string(models.ExplanationCached), "", time.Since(start))
			return models.ExplanationResult{Explanation: text, Source: models.ExplanationCached}
		}
	}

	text, err := e.generate(ctx, req)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"principal": req.Principal,
			"tenure":    req.TenureYears,
			"rate":      req.AnnualRatePercent,
			"frequency": req.CompoundingFrequency.String(),
		}).Warnf("Explanation unavailable, using fallback: %v", err)
		e.metrics.ObserveExplanation(string(models.ExplanationFallback), failureReason(err), time.Since(start))
		return models.ExplanationResult{
			Explanation: FallbackExplanation,
			Source:      models.ExplanationFallback,
			Failure:     err,
		}
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, text, e.cacheTTL); err != nil {
			e.log.Warnf("Failed to cache explanation: %v", err)
		}
	}
	e.metrics.ObserveExplanation(string(models.ExplanationGenerated), "", time.Since(start))
	return models.ExplanationResult{Explanation: text, Source: models.ExplanationGenerated}
}

// generate bounds the generator call by the timeout even if the generator
// ignores its context
func (e *Explainer) generate(ctx context.Context, req models.ExplanationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	replies := make(chan generatorReply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				replies <- generatorReply{err: fmt.Errorf("generator panicked: %v", p)}
			}
		}()
		text, err := e.generator.GenerateExplanation(callCtx, req)
		replies <- generatorReply{text: text, err: err}
	}()

	var reply generatorReply
	select {
	case reply = <-replies:
	case <-callCtx.Done():
		reply.err = callCtx.Err()
	}

	if reply.err != nil {
		if errors.Is(reply.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w after %s: %v", ErrExplanationTimeout, e.timeout, reply.err)
		}
		return "", reply.err
	}

	text := strings.TrimSpace(reply.text)
	if text == "" {
		return "", ErrEmptyExplanation
	}
	return text, nil
}

func failureReason(err error) string {
	var apiErr *genai.APIError
	switch {
	case errors.Is(err, ErrExplanationTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, genai.ErrDisabled):
		return "disabled"
	case errors.Is(err, genai.ErrMalformedResponse), errors.Is(err, ErrEmptyExplanation):
		return "malformed"
	case errors.As(err, &apiErr):
		return "api_error"
	default:
		return "error"
	}
}
