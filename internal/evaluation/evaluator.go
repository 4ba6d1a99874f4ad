package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm"
	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/retry"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

// DefaultPause is the wait after every oracle call.
const DefaultPause = 2 * time.Second

// Evaluator runs the persona panel over aligned answers. It is safe for
// concurrent use when its oracle is.
type Evaluator struct {
	oracle  llm.Oracle
	panel   []Persona
	arbiter Persona
	pause   time.Duration
	sleep   retry.Sleeper
	onScore func(domain.ConsensusResult)
	logger  *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPause sets the wait after each oracle call. Zero disables it.
func WithPause(d time.Duration) Option {
	return func(e *Evaluator) { e.pause = d }
}

// WithSleeper replaces the clock used for pauses.
func WithSleeper(s retry.Sleeper) Option {
	return func(e *Evaluator) { e.sleep = s }
}

// WithScoreHook registers fn to be called after each question is scored.
func WithScoreHook(fn func(domain.ConsensusResult)) Option {
	return func(e *Evaluator) { e.onScore = fn }
}

// WithLogger replaces the evaluator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator returns an Evaluator with the default panel.
func NewEvaluator(oracle llm.Oracle, opts ...Option) *Evaluator {
	e := &Evaluator{
		oracle:  oracle,
		panel:   DefaultPanel(),
		arbiter: Consensus,
		pause:   DefaultPause,
		sleep:   retry.SleepContext,
		logger:  slog.Default().With("component", "evaluator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate grades every record in order and aggregates the results. An
// input without marks, empty or all zero, is reported as domain.ErrNoMarks
// before any oracle call. If ctx is done before the batch finishes the
// partial results are discarded and ctx's error is returned.
func (e *Evaluator) Evaluate(ctx context.Context, aligned []domain.AlignedQA) (*domain.EvaluationReport, error) {
	if len(aligned) == 0 {
		return nil, fmt.Errorf("%w: nothing to evaluate", domain.ErrNoMarks)
	}
	maxTotal := 0
	for _, qa := range aligned {
		maxTotal += max(qa.MaxMarks, 0)
	}
	if maxTotal == 0 {
		return nil, fmt.Errorf("%w: %d questions carry no marks", domain.ErrNoMarks, len(aligned))
	}

	results := make([]domain.ConsensusResult, 0, len(aligned))
	for i, qa := range aligned {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("evaluation aborted", "completed", i, "total", len(aligned), "error", err)
			return nil, err
		}
		results = append(results, e.EvaluateQuestion(ctx, qa))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := domain.NewEvaluationReport(results)
	e.logger.Info("evaluation completed",
		"questions", len(results),
		"total_score", report.TotalScore,
		"max_total_score", report.MaxTotalScore)
	return &report, nil
}

// EvaluateQuestion runs the three personas and the arbiter for one record.
// It never fails: oracle errors become placeholder opinions or a zero score
// with an explanatory note.
func (e *Evaluator) EvaluateQuestion(ctx context.Context, qa domain.AlignedQA) domain.ConsensusResult {
	logger := e.logger.With("question", qa.QuestionNumber)
	stage := StagePendingOpinions
	advance := func() {
		stage = stage.next()
		logger.Debug("question stage changed", "stage", stage)
	}

	opinions := make([]domain.EvaluationOpinion, 0, len(e.panel))
	for _, p := range e.panel {
		opinions = append(opinions, e.opinion(ctx, p, qa))
	}
	advance()

	result := domain.ConsensusResult{
		QuestionNumber: qa.QuestionNumber,
		QuestionText:   qa.QuestionText,
		MaxMarks:       qa.MaxMarks,
		Opinions:       opinions,
	}

	advance()
	text, err := e.call(ctx, transport.OpConsensus, e.arbiter, consensusPrompt(e.arbiter, qa, opinions))
	advance()
	if err != nil {
		logger.Error("consensus evaluation failed", "error", err)
		result.FeedbackText = consensusFailure(err)
		result.Feedback = domain.ConsensusFeedback{Summary: result.FeedbackText}
	} else {
		result.FeedbackText = text
		result.Feedback = ParseFeedback(text)
		if score, ok := ParseConsensusScore(text); ok {
			result.FinalScore = score
			result.ScoreParsed = true
		} else {
			logger.Warn("could not read consensus score, recording zero")
		}
	}

	logger.Info("question scored",
		"stage", stage,
		"final_score", result.FinalScore,
		"max_marks", qa.MaxMarks,
		"score_parsed", result.ScoreParsed)
	if e.onScore != nil {
		e.onScore(result)
	}
	return result
}

func (e *Evaluator) opinion(ctx context.Context, p Persona, qa domain.AlignedQA) domain.EvaluationOpinion {
	op := domain.EvaluationOpinion{EvaluatorName: p.Name, Perspective: p.Perspective}
	text, err := e.call(ctx, transport.OpOpinion, p, opinionPrompt(p, qa))
	if err != nil {
		e.logger.Error("persona evaluation failed",
			"question", qa.QuestionNumber,
			"persona", p.Name,
			"error", err)
		op.RawText = placeholderOpinion(p, qa.MaxMarks, err)
		op.Failed = true
	} else {
		op.RawText = text
	}
	op.ProposedGrade = ParseProposedGrade(op.RawText)
	return op
}

// call issues one oracle request and then pauses. An empty response counts
// as a failure.
func (e *Evaluator) call(ctx context.Context, op transport.Operation, p Persona, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.oracle.Generate(ctx, prompt,
		llm.WithOperation(op),
		llm.WithSystemInstruction(p.Brief),
		llm.WithNoRetry(),
	)
	if err == nil && strings.TrimSpace(text) == "" {
		err = llmerrors.ErrEmptyResponse
	}
	if e.pause > 0 {
		// An interrupted pause keeps the response; ctx is checked before
		// the next call.
		if serr := e.sleep(ctx, e.pause); serr != nil {
			e.logger.Debug("pause interrupted", "error", serr)
		}
	}
	if err != nil {
		return "", err
	}
	return text, nil
}
