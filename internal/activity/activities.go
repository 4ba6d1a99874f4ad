// Package activity implements the Temporal activities of the evaluation
// workflow: alignment, per-question panel evaluation and report finalization.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/report"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/store"
	pkgactivity "github.com/Sujitsarkar6112/AI-Examiner/pkg/activity"
)

// Registered activity names.
const (
	AlignAnswersName     = "AlignAnswers"
	EvaluateQuestionName = "EvaluateQuestion"
	FinalizeReportName   = "FinalizeReport"
)

// Aligner matches answers to questions for a request.
type Aligner interface {
	Align(ctx context.Context, req domain.EvaluationRequest) ([]domain.AlignedQA, error)
}

// QuestionEvaluator grades one aligned record.
type QuestionEvaluator interface {
	EvaluateQuestion(ctx context.Context, qa domain.AlignedQA) domain.ConsensusResult
}

// EvaluateQuestionInput is the input of the EvaluateQuestion activity.
type EvaluateQuestionInput struct {
	EvaluationID string           `json:"evaluation_id"`
	QA           domain.AlignedQA `json:"qa"`
}

// FinalizeInput is the input of the FinalizeReport activity.
type FinalizeInput struct {
	EvaluationID string                   `json:"evaluation_id"`
	FileName     string                   `json:"file_name"`
	UserID       string                   `json:"user_id"`
	Aligned      []domain.AlignedQA       `json:"aligned"`
	Results      []domain.ConsensusResult `json:"results"`
	CreatedAt    time.Time                `json:"created_at"`
}

// Activities holds the dependencies of the evaluation activities.
type Activities struct {
	pkgactivity.BaseActivities
	aligner   Aligner
	evaluator QuestionEvaluator
	store     store.Store
	now       func() time.Time
}

// NewActivities wires the activities. A nil store skips persistence.
func NewActivities(
	base pkgactivity.BaseActivities,
	aligner Aligner,
	evaluator QuestionEvaluator,
	st store.Store,
) *Activities {
	return &Activities{
		BaseActivities: base,
		aligner:        aligner,
		evaluator:      evaluator,
		store:          st,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// AlignAnswers aligns the request's answers with its questions.
func (a *Activities) AlignAnswers(ctx context.Context, req domain.EvaluationRequest) ([]domain.AlignedQA, error) {
	if err := req.Validate(); err != nil {
		return nil, nonRetryable(ErrorValidation, err, "invalid evaluation request")
	}
	a.RecordHeartbeat(ctx, "aligning")

	aligned, err := a.aligner.Align(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retryable(ErrorCanceled, err, "alignment interrupted")
		}
		return nil, classifyOracleError(err, "alignment failed")
	}
	pkgactivity.SafeLog(ctx, "answers aligned", "records", len(aligned))
	if aligned == nil {
		aligned = []domain.AlignedQA{}
	}
	return aligned, nil
}

// EvaluateQuestion runs the persona panel for one record and emits a
// question_scored event. Oracle failures are folded into the result; only
// interruption fails the activity.
func (a *Activities) EvaluateQuestion(ctx context.Context, in EvaluateQuestionInput) (domain.ConsensusResult, error) {
	if err := in.QA.Validate(); err != nil {
		return domain.ConsensusResult{}, nonRetryable(ErrorValidation, err, "invalid aligned record")
	}
	a.RecordHeartbeat(ctx, "question "+in.QA.QuestionNumber)

	res := a.evaluator.EvaluateQuestion(ctx, in.QA)
	if err := ctx.Err(); err != nil {
		return domain.ConsensusResult{}, retryable(ErrorCanceled, err, "evaluation interrupted")
	}

	wfCtx := a.GetWorkflowContext(ctx, in.EvaluationID)
	env, err := domain.NewQuestionScoredEvent(wfCtx.WorkflowID, wfCtx.RunID, res, a.now())
	if err != nil {
		pkgactivity.SafeLogError(ctx, "failed to build question event", "error", err)
	} else {
		a.EmitEventSafe(ctx, env.Envelope(), "question scored")
	}
	return res, nil
}

// FinalizeReport aggregates the results, renders the report, stores it and
// emits a report_rendered event. Saving is idempotent on the evaluation ID so
// retries are safe.
func (a *Activities) FinalizeReport(ctx context.Context, in FinalizeInput) (*domain.EvaluationResult, error) {
	if in.EvaluationID == "" {
		return nil, nonRetryable(ErrorValidation,
			fmt.Errorf("%w: evaluation id is required", ErrActivityValidation), "invalid finalize input")
	}

	res := &domain.EvaluationResult{
		ID:        in.EvaluationID,
		Aligned:   in.Aligned,
		CreatedAt: in.CreatedAt,
	}
	if len(in.Results) == 0 {
		res.Markdown = report.NoValidAnswers
		return res, nil
	}
	res.Report = domain.NewEvaluationReport(in.Results)
	res.Markdown = report.Render(res.Report)

	if a.store != nil {
		rec := store.NewRecord(*res, in.FileName, in.UserID)
		if err := a.store.Save(ctx, rec); err != nil {
			return nil, retryable(ErrorStorage, err, "failed to store evaluation")
		}
	}

	wfCtx := a.GetWorkflowContext(ctx, in.EvaluationID)
	env, err := domain.NewReportRenderedEvent(wfCtx.WorkflowID, wfCtx.RunID, in.EvaluationID, res.Report, a.now())
	if err != nil {
		pkgactivity.SafeLogError(ctx, "failed to build report event", "error", err)
	} else {
		a.EmitEventSafe(ctx, env.Envelope(), "report rendered")
	}

	pkgactivity.SafeLog(ctx, "report finalized",
		"evaluation_id", in.EvaluationID,
		"score", res.Report.ScoreLabel())
	return res, nil
}
