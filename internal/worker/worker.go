// Package worker connects the evaluation workflow to a Temporal cluster:
// client setup, registration, running a worker and submitting evaluations.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	sdkworker "go.temporal.io/sdk/worker"

	examineractivity "github.com/Sujitsarkar6112/AI-Examiner/internal/activity"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/workflow"
)

// DefaultTaskQueue is the task queue evaluations run on.
const DefaultTaskQueue = "examiner-evaluations"

// Registrar is the registration surface shared by Temporal workers and the
// SDK test environment.
type Registrar interface {
	RegisterWorkflow(w any)
	RegisterActivityWithOptions(a any, options activity.RegisterOptions)
}

// Register registers the evaluation workflow and its activities. It must be
// called once, before the worker starts.
func Register(r Registrar, acts *examineractivity.Activities) {
	r.RegisterWorkflow(workflow.EvaluationWorkflow)
	r.RegisterActivityWithOptions(acts.AlignAnswers,
		activity.RegisterOptions{Name: examineractivity.AlignAnswersName})
	r.RegisterActivityWithOptions(acts.EvaluateQuestion,
		activity.RegisterOptions{Name: examineractivity.EvaluateQuestionName})
	r.RegisterActivityWithOptions(acts.FinalizeReport,
		activity.RegisterOptions{Name: examineractivity.FinalizeReportName})
}

// Dial connects to a Temporal frontend, logging through slog.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
		Logger:    log.NewStructuredLogger(slog.Default().With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to temporal at %s: %w", hostPort, err)
	}
	return c, nil
}

// Run polls taskQueue until ctx is done.
func Run(ctx context.Context, c client.Client, taskQueue string, acts *examineractivity.Activities) error {
	w := sdkworker.New(c, taskQueue, sdkworker.Options{})
	Register(w, acts)
	if err := w.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	slog.Info("worker started", "task_queue", taskQueue)
	<-ctx.Done()
	w.Stop()
	slog.Info("worker stopped", "task_queue", taskQueue)
	return nil
}

// Submit starts an evaluation workflow and waits for its result. The
// workflow execution timeout plays the role of the evaluation deadline; hitting
// it is reported as domain.ErrEvaluationTimeout.
func Submit(
	ctx context.Context,
	c client.Client,
	taskQueue string,
	req domain.EvaluationRequest,
	timeout time.Duration,
) (*domain.EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       "evaluation-" + uuid.NewString(),
		TaskQueue:                taskQueue,
		WorkflowExecutionTimeout: timeout,
	}, workflow.EvaluationWorkflow, req)
	if err != nil {
		return nil, fmt.Errorf("start evaluation workflow: %w", err)
	}
	slog.Info("evaluation submitted", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var res domain.EvaluationResult
	if err := run.Get(ctx, &res); err != nil {
		return nil, mapWorkflowError(err)
	}
	return &res, nil
}

func mapWorkflowError(err error) error {
	if temporal.IsTimeoutError(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrEvaluationTimeout, err)
	}
	return fmt.Errorf("evaluation workflow failed: %w", err)
}
