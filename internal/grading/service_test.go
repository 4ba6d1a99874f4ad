package grading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/alignment"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/evaluation"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/report"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/store"
	"github.com/Sujitsarkar6112/AI-Examiner/pkg/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	questionPaper = "1. What is OOP? [10]\n2. Define inheritance [5]"
	answerSheet   = "Answer 1: Objects and classes.\nAnswer 2: Reuse of code."
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func noSleep(context.Context, time.Duration) error { return nil }

// gradingOracle gives every persona and the arbiter a fixed score.
func gradingOracle() *llm.FakeOracle {
	return &llm.FakeOracle{Respond: func(_ context.Context, c llm.Call) (string, error) {
		switch c.Request.Operation {
		case transport.OpConsensus:
			return "**Score:** 4 out of 5\n\n**Consensus Feedback:**\nReasonable answer.", nil
		case transport.OpAlignment:
			return `[{"questionNumber":"1","question":"What is OOP?","maxMarks":10,"answer":"Objects."}]`, nil
		default:
			return "**Proposed Grade:** 4 out of 5", nil
		}
	}}
}

func newTestService(oracle llm.Oracle, opts ...Option) *Service {
	base := []Option{
		WithEvaluator(evaluation.NewEvaluator(oracle, evaluation.WithPause(0))),
		WithSemanticAligner(alignment.NewSemanticAligner(oracle, alignment.WithSleeper(noSleep))),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewService(oracle, append(base, opts...)...)
}

func TestEvaluateStructural(t *testing.T) {
	oracle := gradingOracle()
	st := store.NewMemoryStore()
	sink := events.NewMemorySink()
	svc := newTestService(oracle, WithStore(st), WithEventSink(sink))

	res, err := svc.Evaluate(context.Background(), domain.EvaluationRequest{
		QuestionPaper: questionPaper,
		AnswerText:    answerSheet,
		FileName:      "sheet.pdf",
		UserID:        "u1",
	})
	require.NoError(t, err)

	require.Len(t, res.Aligned, 2)
	assert.Equal(t, "Reuse of code.", res.Aligned[1].Answer)
	assert.InDelta(t, 8, res.Report.TotalScore, 1e-9)
	assert.Equal(t, 15, res.Report.MaxTotalScore)
	assert.Equal(t, fixedNow, res.CreatedAt)

	total, ok := report.ExtractTotal(res.Markdown)
	require.True(t, ok)
	assert.Equal(t, 53, total.Percentage)
	assert.Len(t, oracle.Calls(), 8, "four calls per question")

	rec, err := st.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "8/15", rec.Score)
	assert.Equal(t, "sheet.pdf", rec.FileName)
	assert.Equal(t, "u1", rec.UserID)

	assert.Len(t, sink.OfType(string(domain.EventTypeQuestionScored)), 2)
	rendered := sink.OfType(string(domain.EventTypeReportRendered))
	require.Len(t, rendered, 1)
	assert.Equal(t, DirectWorkflowID, rendered[0].WorkflowID)
	assert.Equal(t, res.ID, rendered[0].RunID)
}

func TestEvaluateNoValidAnswers(t *testing.T) {
	tests := []struct {
		name string
		req  domain.EvaluationRequest
	}{
		{
			name: "all pairs unanswered",
			req: domain.EvaluationRequest{Pairs: []domain.QAPair{
				{Question: "What is OOP? [10 marks]", Answer: domain.NoAnswerFound},
				{Question: "Define inheritance", Answer: "  "},
			}},
		},
		{
			name: "semantic alignment exhausted",
			req: domain.EvaluationRequest{
				QuestionPaper: questionPaper,
				AnswerText:    answerSheet,
				Mode:          domain.AlignmentSemantic,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &llm.FakeOracle{Responses: []string{"I could not find any answers."}}
			st := store.NewMemoryStore()
			svc := newTestService(oracle, WithStore(st))

			res, err := svc.Evaluate(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, report.NoValidAnswers, res.Markdown)
			assert.Empty(t, res.Aligned)
			for _, c := range oracle.Calls() {
				assert.Equal(t, transport.OpAlignment, c.Request.Operation, "no panel calls")
			}

			stored, err := st.List(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}
}

func TestEvaluatePairs(t *testing.T) {
	oracle := gradingOracle()
	svc := newTestService(oracle)

	res, err := svc.Evaluate(context.Background(), domain.EvaluationRequest{
		Pairs: []domain.QAPair{
			{Question: "What is OOP? [5 marks]", Answer: "Objects."},
			{Question: "Define inheritance [5 marks]", Answer: domain.NoAnswerFound},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Report.PerQuestion, 1)
	assert.Equal(t, "What is OOP?", res.Report.PerQuestion[0].QuestionText)
	assert.Equal(t, "4/5", res.Report.ScoreLabel())
}

func TestEvaluateSemantic(t *testing.T) {
	oracle := gradingOracle()
	res, err := newTestService(oracle).Evaluate(context.Background(), domain.EvaluationRequest{
		QuestionPaper: questionPaper,
		AnswerText:    answerSheet,
		Mode:          domain.AlignmentSemantic,
	})
	require.NoError(t, err)
	require.Len(t, res.Aligned, 1)
	assert.Equal(t, 10, res.Aligned[0].MaxMarks)
	assert.Equal(t, transport.OpAlignment, oracle.Calls()[0].Request.Operation)
}

func TestEvaluateTimeout(t *testing.T) {
	oracle := &llm.FakeOracle{Respond: func(ctx context.Context, _ llm.Call) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	st := store.NewMemoryStore()
	svc := newTestService(oracle, WithTimeout(20*time.Millisecond), WithStore(st))

	res, err := svc.Evaluate(context.Background(), domain.EvaluationRequest{
		QuestionPaper: questionPaper,
		AnswerText:    answerSheet,
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrEvaluationTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	stored, err := st.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, stored, "partial results are discarded")
}

func TestEvaluateCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(gradingOracle()).Evaluate(ctx, domain.EvaluationRequest{AnswerText: answerSheet})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, domain.ErrEvaluationTimeout))
}

func TestEvaluateInvalidRequest(t *testing.T) {
	oracle := gradingOracle()
	_, err := newTestService(oracle).Evaluate(context.Background(), domain.EvaluationRequest{Mode: "guess"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Empty(t, oracle.Calls())
}

func TestMapAnswers(t *testing.T) {
	t.Run("returns oracle mapping", func(t *testing.T) {
		aligned, err := newTestService(gradingOracle()).MapAnswers(
			context.Background(), questionPaper, answerSheet, domain.AlignmentHints{Markdown: true})
		require.NoError(t, err)
		assert.Equal(t, []domain.AlignedQA{
			{QuestionNumber: "1", QuestionText: "What is OOP?", MaxMarks: 10, Answer: "Objects."},
		}, aligned)
	})

	t.Run("timeout", func(t *testing.T) {
		oracle := &llm.FakeOracle{Respond: func(ctx context.Context, _ llm.Call) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}}
		svc := newTestService(oracle, WithTimeout(10*time.Millisecond))
		_, err := svc.MapAnswers(context.Background(), questionPaper, answerSheet, domain.AlignmentHints{})
		assert.ErrorIs(t, err, domain.ErrEvaluationTimeout)
	})
}

func TestStoreFailureKeepsResult(t *testing.T) {
	svc := newTestService(gradingOracle(), WithStore(failingStore{store.NewMemoryStore()}))
	res, err := svc.Evaluate(context.Background(), domain.EvaluationRequest{
		QuestionPaper: questionPaper,
		AnswerText:    answerSheet,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Markdown)
}

type failingStore struct{ *store.MemoryStore }

func (failingStore) Save(context.Context, store.EvaluationRecord) error {
	return errors.New("disk full")
}
