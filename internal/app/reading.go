package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/metrics"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

// FailurePolicy decides what a pipeline failure turns into.
type FailurePolicy string

const (
	// PolicyFallback answers with the fallback envelope.
	PolicyFallback FailurePolicy = "fallback"
	// PolicyPropagate returns the *domain.PipelineError to the caller.
	PolicyPropagate FailurePolicy = "propagate"
)

// Valid reports whether p is a known policy.
func (p FailurePolicy) Valid() bool {
	return p == PolicyFallback || p == PolicyPropagate
}

// Source tells where an envelope came from. It is never shown to clients.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Options configures a ReadingService.
type Options struct {
	Strategy                ports.Strategy
	MaxOutputTokensBasic    int
	MaxOutputTokensDetailed int
	Policy                  FailurePolicy
	// StrictProseLength turns prose ceiling violations into schema failures.
	StrictProseLength bool
}

// ReadingResult is the application-level output.
type ReadingResult struct {
	Envelope  domain.Envelope
	Source    Source
	Model     string
	LatencyMS int64
	// Failure is set when Source is SourceFallback.
	Failure *domain.PipelineError
}

// ReadingService runs the generation pipeline for one request at a time.
// It holds no per-request state and is safe for concurrent use.
type ReadingService struct {
	generator ports.Generator
	opts      Options
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewReadingService(gen ports.Generator, opts Options, logger *zap.Logger) *ReadingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.Strategy.Valid() {
		if opts.Strategy != "" {
			logger.Warn("unknown output strategy, using json_schema", zap.String("strategy", string(opts.Strategy)))
		}
		opts.Strategy = ports.StrategyJSONSchema
	}
	if !opts.Policy.Valid() {
		if opts.Policy != "" {
			logger.Warn("unknown failure policy, using fallback", zap.String("policy", string(opts.Policy)))
		}
		opts.Policy = PolicyFallback
	}
	return &ReadingService{
		generator: gen,
		opts:      opts,
		logger:    logger,
		tracer:    otel.Tracer("github.com/MerlinMagicschool/innerself-ai-server/internal/app"),
	}
}

// Read produces an envelope for req. Exactly one generation call is made.
// Invalid requests return an error wrapping domain.ErrInvalidRequest; pipeline
// failures either fall back or return a *domain.PipelineError, per policy.
func (s *ReadingService) Read(ctx context.Context, v domain.Variant, req domain.Request) (ReadingResult, error) {
	req = domain.NewRequest(req.Question, req.Context, req.MainCards, req.BranchCards)
	if err := req.Validate(v); err != nil {
		return ReadingResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "reading.Read", trace.WithAttributes(
		attribute.String("reading.variant", string(v)),
		attribute.String("reading.strategy", string(s.opts.Strategy)),
	))
	defer span.End()

	env, model, latency, err := s.generate(ctx, v, req)
	if err == nil {
		metrics.ReadingsTotal.WithLabelValues(string(v), metrics.OutcomeGenerated).Inc()
		span.SetAttributes(attribute.String("reading.source", string(SourceGenerated)))
		return ReadingResult{
			Envelope:  env,
			Source:    SourceGenerated,
			Model:     model,
			LatencyMS: latency,
		}, nil
	}

	var perr *domain.PipelineError
	if !errors.As(err, &perr) {
		perr = &domain.PipelineError{Code: domain.ErrGenerationServiceFailed, Err: err}
	}
	metrics.PipelineFailures.WithLabelValues(string(v), perr.Tag()).Inc()
	span.RecordError(perr)

	log := s.logger.With(
		zap.String("variant", string(v)),
		zap.String("code", perr.Tag()),
		zap.String("path", perr.Path),
		zap.String("preview", perr.Preview),
		zap.Error(perr.Err),
	)

	if s.opts.Policy == PolicyPropagate {
		metrics.ReadingsTotal.WithLabelValues(string(v), metrics.OutcomeFailed).Inc()
		span.SetStatus(codes.Error, perr.Tag())
		log.Warn("reading pipeline failed")
		return ReadingResult{}, perr
	}

	metrics.ReadingsTotal.WithLabelValues(string(v), metrics.OutcomeFallback).Inc()
	span.SetAttributes(attribute.String("reading.source", string(SourceFallback)))
	log.Warn("reading pipeline failed, serving fallback")
	return ReadingResult{
		Envelope:  FallbackEnvelope(req, v),
		Source:    SourceFallback,
		Model:     model,
		LatencyMS: latency,
		Failure:   perr,
	}, nil
}

func (s *ReadingService) generate(ctx context.Context, v domain.Variant, req domain.Request) (domain.Envelope, string, int64, error) {
	in := ports.GenerateInput{
		Prompt:          BuildPrompt(req, v),
		Strategy:        s.opts.Strategy,
		MaxOutputTokens: s.maxOutputTokens(v),
	}
	if in.Strategy == ports.StrategyJSONSchema {
		in.SchemaName = ResponseSchemaName(v)
		in.Schema = ResponseSchema(req, v)
	}

	gctx, gspan := s.tracer.Start(ctx, "reading.generate")
	start := time.Now()
	reply, err := s.generator.Generate(gctx, in)
	elapsed := time.Since(start)
	gspan.End()

	metrics.GenerationDuration.WithLabelValues(string(v), string(in.Strategy)).Observe(elapsed.Seconds())
	latency := elapsed.Milliseconds()

	if err != nil {
		return domain.Envelope{}, "", latency, &domain.PipelineError{
			Code: domain.ErrGenerationServiceFailed,
			Err:  err,
		}
	}

	extracted := ExtractPayload(reply)
	var value any
	if extracted.Object != nil {
		value = extracted.Object
	} else {
		value, err = ParseJSON(extracted.Text)
		if err != nil {
			return domain.Envelope{}, reply.Model, latency, err
		}
	}

	env, err := ValidateEnvelope(value, v, req)
	if err != nil {
		withPreview(err, extracted.Text)
		return domain.Envelope{}, reply.Model, latency, err
	}

	if violations := ProseViolations(env); len(violations) > 0 {
		metrics.ProseViolations.WithLabelValues(string(v)).Add(float64(len(violations)))
		if s.opts.StrictProseLength {
			path, reason, _ := strings.Cut(violations[0], ": ")
			err := &domain.PipelineError{
				Code: domain.ErrSchemaValidationFailed,
				Path: path,
				Err:  errors.New(reason),
			}
			withPreview(err, extracted.Text)
			return domain.Envelope{}, reply.Model, latency, err
		}
		s.logger.Warn("generated prose outside length ceilings",
			zap.String("variant", string(v)),
			zap.Strings("violations", violations),
		)
	}

	return env, reply.Model, latency, nil
}

func (s *ReadingService) maxOutputTokens(v domain.Variant) int {
	if v == domain.VariantDetailed {
		return s.opts.MaxOutputTokensDetailed
	}
	return s.opts.MaxOutputTokensBasic
}

func withPreview(err error, text string) {
	var perr *domain.PipelineError
	if errors.As(err, &perr) && perr.Preview == "" {
		perr.Preview = domain.Preview(text)
	}
}

// String is used by the CLI and logs.
func (r ReadingResult) String() string {
	return fmt.Sprintf("source=%s model=%s latency_ms=%d", r.Source, r.Model, r.LatencyMS)
}
