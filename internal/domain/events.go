package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Sujitsarkar6112/AI-Examiner/pkg/events"
)

// EventType represents the type of event emitted by the grading pipeline.
type EventType string

const (
	// EventTypeQuestionScored is emitted once per question after consensus.
	EventTypeQuestionScored EventType = "evaluation.question_scored"

	// EventTypeReportRendered is emitted once per evaluation when the
	// markdown report is ready.
	EventTypeReportRendered EventType = "evaluation.report_rendered"
)

// eventNamespace seeds deterministic idempotency keys so that activity
// retries emit events under the same key.
var eventNamespace = uuid.MustParse("9c4b3f0e-5f7a-4d1e-8a51-2f8f0f3b6a11")

// EventEnvelope wraps a grading event with workflow context.
type EventEnvelope struct {
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
	EventType      EventType       `json:"event_type" validate:"required"`
	Version        int             `json:"version" validate:"required,min=1"`
	OccurredAt     time.Time       `json:"occurred_at" validate:"required"`
	WorkflowID     string          `json:"workflow_id" validate:"required"`
	RunID          string          `json:"run_id" validate:"required"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
	Producer       string          `json:"producer" validate:"required"`
}

// Validate checks if the event envelope meets all requirements.
func (e *EventEnvelope) Validate() error {
	return validate.Struct(e)
}

// Envelope converts e for publication through an events.EventSink.
func (e EventEnvelope) Envelope() events.Envelope {
	return events.Envelope{
		ID:             uuid.NewString(),
		Type:           string(e.EventType),
		Source:         e.Producer,
		Version:        strconv.Itoa(e.Version),
		Timestamp:      e.OccurredAt,
		IdempotencyKey: e.IdempotencyKey,
		WorkflowID:     e.WorkflowID,
		RunID:          e.RunID,
		Payload:        e.Payload,
	}
}

// QuestionScoredPayload summarises one consensus result.
type QuestionScoredPayload struct {
	QuestionNumber string   `json:"question_number" validate:"required"`
	FinalScore     float64  `json:"final_score" validate:"min=0"`
	MaxMarks       int      `json:"max_marks" validate:"min=0"`
	ScoreParsed    bool     `json:"score_parsed"`
	PersonaGrades  []string `json:"persona_grades"`
}

// ReportRenderedPayload summarises a finished evaluation.
type ReportRenderedPayload struct {
	EvaluationID  string  `json:"evaluation_id" validate:"required"`
	Questions     int     `json:"questions" validate:"min=0"`
	TotalScore    float64 `json:"total_score" validate:"min=0"`
	MaxTotalScore int     `json:"max_total_score" validate:"min=0"`
	Percentage    int     `json:"percentage"`
}

// NewQuestionScoredEvent builds the envelope for a scored question.
func NewQuestionScoredEvent(workflowID, runID string, res ConsensusResult, at time.Time) (EventEnvelope, error) {
	grades := make([]string, len(res.Opinions))
	for i, op := range res.Opinions {
		grades[i] = op.ProposedGrade.String()
	}
	payload := QuestionScoredPayload{
		QuestionNumber: res.QuestionNumber,
		FinalScore:     res.FinalScore,
		MaxMarks:       res.MaxMarks,
		ScoreParsed:    res.ScoreParsed,
		PersonaGrades:  grades,
	}
	return newEnvelope(EventTypeQuestionScored, workflowID, runID, res.QuestionNumber, "evaluation-activity", payload, at)
}

// NewReportRenderedEvent builds the envelope for a finished report.
func NewReportRenderedEvent(workflowID, runID, evaluationID string, rep EvaluationReport, at time.Time) (EventEnvelope, error) {
	payload := ReportRenderedPayload{
		EvaluationID:  evaluationID,
		Questions:     len(rep.PerQuestion),
		TotalScore:    rep.TotalScore,
		MaxTotalScore: rep.MaxTotalScore,
		Percentage:    rep.Percentage(),
	}
	return newEnvelope(EventTypeReportRendered, workflowID, runID, evaluationID, "report-activity", payload, at)
}

func newEnvelope(
	typ EventType, workflowID, runID, subject, producer string, payload any, at time.Time,
) (EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	key := uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%s|%s|%s|%s", typ, workflowID, runID, subject)))
	env := EventEnvelope{
		IdempotencyKey: key.String(),
		EventType:      typ,
		Version:        1,
		OccurredAt:     at,
		WorkflowID:     workflowID,
		RunID:          runID,
		Payload:        raw,
		Producer:       producer,
	}
	if err := env.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid %s event: %w", typ, err)
	}
	return env, nil
}
