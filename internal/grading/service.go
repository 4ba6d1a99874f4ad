// Package grading runs the full pipeline for one submission: alignment,
// panel evaluation, report rendering, persistence and event publication.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/alignment"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/evaluation"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/parsing"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/report"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/store"
	"github.com/Sujitsarkar6112/AI-Examiner/pkg/events"
)

// DefaultTimeout bounds a whole evaluation.
const DefaultTimeout = 300 * time.Second

// DirectWorkflowID tags events of evaluations run outside a workflow.
const DirectWorkflowID = "direct"

// Service grades submissions end to end. It is safe for concurrent use.
type Service struct {
	semantic  *alignment.SemanticAligner
	evaluator *evaluation.Evaluator
	store     store.Store
	sink      events.EventSink
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists every finished evaluation.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithEventSink publishes grading events to sink.
func WithEventSink(sink events.EventSink) Option {
	return func(svc *Service) { svc.sink = sink }
}

// WithTimeout bounds each call. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(svc *Service) { svc.timeout = d }
}

// WithEvaluator replaces the panel evaluator.
func WithEvaluator(e *evaluation.Evaluator) Option {
	return func(svc *Service) { svc.evaluator = e }
}

// WithSemanticAligner replaces the semantic aligner.
func WithSemanticAligner(a *alignment.SemanticAligner) Option {
	return func(svc *Service) { svc.semantic = a }
}

// WithClock replaces the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// NewService returns a Service whose stages share oracle.
func NewService(oracle llm.Oracle, opts ...Option) *Service {
	svc := &Service{
		semantic:  alignment.NewSemanticAligner(oracle),
		evaluator: evaluation.NewEvaluator(oracle),
		sink:      events.NewNoOpEventSink(),
		timeout:   DefaultTimeout,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		logger:    slog.Default().With("component", "grading"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Evaluate grades req. When no question has a usable answer the result
// carries the report.NoValidAnswers document and no oracle evaluation is
// made. A deadline hit anywhere in the pipeline is reported as
// domain.ErrEvaluationTimeout and discards partial work.
func (s *Service) Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := s.newID()
	logger := s.logger.With("evaluation_id", id, "mode", modeOf(req))
	logger.Info("evaluation started", "file", req.FileName)

	aligned, err := s.Align(ctx, req)
	if err != nil {
		return nil, s.timeoutError(err)
	}

	res := &domain.EvaluationResult{ID: id, Aligned: aligned, CreatedAt: s.now()}
	if len(aligned) == 0 {
		logger.Warn("no valid answers to evaluate")
		res.Markdown = report.NoValidAnswers
		return res, nil
	}

	rep, err := s.evaluator.Evaluate(ctx, aligned)
	if err != nil {
		return nil, s.timeoutError(err)
	}
	res.Report = *rep
	res.Markdown = report.Render(*rep)

	s.persist(ctx, logger, *res, req)
	s.publish(ctx, logger, DirectWorkflowID, id, *res)

	logger.Info("evaluation finished",
		"questions", len(rep.PerQuestion),
		"score", rep.ScoreLabel(),
		"percentage", rep.Percentage())
	return res, nil
}

// Align matches answers to questions using the request's mode. Pairs take
// precedence over text.
func (s *Service) Align(ctx context.Context, req domain.EvaluationRequest) ([]domain.AlignedQA, error) {
	switch {
	case len(req.Pairs) > 0:
		return parsing.AlignPairs(req.Pairs), nil
	case req.Mode == domain.AlignmentSemantic:
		return s.semantic.Align(ctx, req.QuestionPaper, req.AnswerText, req.Hints)
	default:
		questions := parsing.QuestionsOrDefault(parsing.ParseQuestions(req.QuestionPaper))
		return alignment.Align(questions, parsing.SegmentAnswers(req.AnswerText)), nil
	}
}

// MapAnswers runs semantic alignment alone under the service timeout. An
// empty result means the oracle never produced a usable mapping.
func (s *Service) MapAnswers(
	ctx context.Context,
	questionPaper, answerText string,
	hints domain.AlignmentHints,
) ([]domain.AlignedQA, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	aligned, err := s.semantic.Align(ctx, questionPaper, answerText, hints)
	if err != nil {
		return nil, s.timeoutError(err)
	}
	s.logger.Info("answers mapped", "records", len(aligned))
	return aligned, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) timeoutError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("evaluation timed out", "timeout", s.timeout)
		return fmt.Errorf("%w: %w", domain.ErrEvaluationTimeout, err)
	}
	return err
}

// persist stores the result. A storage failure is logged; the caller still
// gets the graded result.
func (s *Service) persist(ctx context.Context, logger *slog.Logger, res domain.EvaluationResult, req domain.EvaluationRequest) {
	if s.store == nil {
		return
	}
	rec := store.NewRecord(res, req.FileName, req.UserID)
	if err := s.store.Save(ctx, rec); err != nil {
		logger.Error("failed to store evaluation", "error", err)
	}
}

func (s *Service) publish(ctx context.Context, logger *slog.Logger, workflowID, runID string, res domain.EvaluationResult) {
	for _, qr := range res.Report.PerQuestion {
		env, err := domain.NewQuestionScoredEvent(workflowID, runID, qr, res.CreatedAt)
		if err != nil {
			logger.Error("failed to build event", "error", err)
			continue
		}
		s.append(ctx, logger, env)
	}
	env, err := domain.NewReportRenderedEvent(workflowID, runID, res.ID, res.Report, res.CreatedAt)
	if err != nil {
		logger.Error("failed to build event", "error", err)
		return
	}
	s.append(ctx, logger, env)
}

func (s *Service) append(ctx context.Context, logger *slog.Logger, env domain.EventEnvelope) {
	if err := s.sink.Append(ctx, env.Envelope()); err != nil {
		logger.Warn("failed to publish event", "event_type", env.EventType, "error", err)
	}
}

func modeOf(req domain.EvaluationRequest) string {
	switch {
	case len(req.Pairs) > 0:
		return "pairs"
	case req.Mode == "":
		return string(domain.AlignmentStructural)
	default:
		return string(req.Mode)
	}
}
