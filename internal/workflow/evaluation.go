package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/activity"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

// Activity timeouts. A question runs four oracle calls with pauses, and
// semantic alignment may retry three times.
const (
	alignTimeout    = 5 * time.Minute
	questionTimeout = 5 * time.Minute
	finalizeTimeout = time.Minute
	heartbeat       = 2 * time.Minute
)

// EvaluationWorkflow grades one submission: align, evaluate every question
// in order, then finalize the report. The workflow ID doubles as the
// evaluation ID so that retried finalization overwrites the same record.
func EvaluationWorkflow(ctx workflow.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "evaluation.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid evaluation request", "Validation", err)
	}

	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)
	evaluationID := info.WorkflowExecution.ID
	createdAt := workflow.Now(ctx).UTC()

	retry := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    3,
	}

	var aligned []domain.AlignedQA
	alignCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: alignTimeout,
		HeartbeatTimeout:    heartbeat,
		RetryPolicy:         retry,
	})
	if err := workflow.ExecuteActivity(alignCtx, activity.AlignAnswersName, req).Get(ctx, &aligned); err != nil {
		return nil, err
	}
	logger.Info("answers aligned", "records", len(aligned))

	questionCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: questionTimeout,
		HeartbeatTimeout:    heartbeat,
		RetryPolicy:         retry,
	})
	results := make([]domain.ConsensusResult, 0, len(aligned))
	for _, qa := range aligned {
		var res domain.ConsensusResult
		in := activity.EvaluateQuestionInput{EvaluationID: evaluationID, QA: qa}
		if err := workflow.ExecuteActivity(questionCtx, activity.EvaluateQuestionName, in).Get(ctx, &res); err != nil {
			return nil, err
		}
		results = append(results, res)
		logger.Info("question scored", "question", qa.QuestionNumber, "final_score", res.FinalScore)
	}

	finalizeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: finalizeTimeout,
		RetryPolicy:         retry,
	})
	var out domain.EvaluationResult
	err := workflow.ExecuteActivity(finalizeCtx, activity.FinalizeReportName, activity.FinalizeInput{
		EvaluationID: evaluationID,
		FileName:     req.FileName,
		UserID:       req.UserID,
		Aligned:      aligned,
		Results:      results,
		CreatedAt:    createdAt,
	}).Get(ctx, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
