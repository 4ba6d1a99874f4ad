package evaluation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/configuration"
	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

const consensusReply = `## Question 1: What is OOP?

**Score:** [8] out of 10

**Individual Scores:**
- Theoretical Perspective: 7 out of 10
- Practical Perspective: 8 out of 10
- Holistic Perspective: 9 out of 10

**Consensus Feedback:**
A clear answer that covers
the main ideas.

**Strengths:**
- Defines objects and classes
- Good example

**Areas for Improvement:**
- Mention polymorphism
`

type pauseCounter struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (p *pauseCounter) Sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, d)
	return ctx.Err()
}

func (p *pauseCounter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waits)
}

// panelOracle answers persona calls with a fixed grade per persona and the
// arbiter with consensusReply.
func panelOracle() *llm.FakeOracle {
	grades := map[string]string{
		Theoretical.Brief: "7",
		Practical.Brief:   "8",
		Holistic.Brief:    "9",
	}
	return &llm.FakeOracle{Respond: func(_ context.Context, c llm.Call) (string, error) {
		if c.Request.Operation == transport.OpConsensus {
			return consensusReply, nil
		}
		return "## Evaluation\n\n**Evaluation:** fine\n\n**Proposed Grade:** " +
			grades[c.Request.SystemInstruction] + " out of 10", nil
	}}
}

func TestParseProposedGrade(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Grade
	}{
		{name: "plain", text: "**Proposed Grade:** 7 out of 10", want: domain.NewGrade(7)},
		{name: "bracketed decimal", text: "**Proposed Grade:** [7.5] out of 10", want: domain.NewGrade(7.5)},
		{name: "no space", text: "**Proposed Grade:**6 out of 10", want: domain.NewGrade(6)},
		{name: "first match wins", text: "**Proposed Grade:** 3\n**Proposed Grade:** 9", want: domain.NewGrade(3)},
		{name: "missing", text: "Grade: 7", want: domain.Grade{}},
		{name: "not a number", text: "**Proposed Grade:** X out of 10", want: domain.Grade{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseProposedGrade(tt.text))
		})
	}
}

func TestParseConsensusScore(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   float64
		wantOK bool
	}{
		{name: "plain", text: "**Score:** 8 out of 10", want: 8, wantOK: true},
		{name: "bracketed", text: "**Score:** [8.5] out of 10", want: 8.5, wantOK: true},
		{name: "bold token", text: "**Score:** **6** out of 10", want: 6, wantOK: true},
		{name: "first line only", text: "intro\n**Score:** 4 out of 5\n**Score:** 5 out of 5", want: 4, wantOK: true},
		{name: "fraction token fails", text: "**Score:** 8/10", wantOK: false},
		{name: "nothing after marker", text: "**Score:**", wantOK: false},
		{name: "no marker", text: "Final: 8 out of 10", wantOK: false},
		{name: "nan", text: "**Score:** NaN out of 10", wantOK: false},
		{name: "infinity", text: "**Score:** Inf out of 10", wantOK: false},
		{name: "signed infinity", text: "**Score:** [-Infinity] out of 10", wantOK: false},
		{name: "negative", text: "**Score:** -4 out of 10", wantOK: false},
		{name: "zero", text: "**Score:** 0 out of 10", want: 0, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseConsensusScore(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseFeedback(t *testing.T) {
	fb := ParseFeedback(consensusReply)
	assert.Equal(t, "A clear answer that covers the main ideas.", fb.Summary)
	assert.Equal(t, []string{"Defines objects and classes", "Good example"}, fb.Strengths)
	assert.Equal(t, []string{"Mention polymorphism"}, fb.Improvements)

	t.Run("inline content and missing sections", func(t *testing.T) {
		fb := ParseFeedback("**Feedback:** Solid work.\n\n**Strengths:** 1. Concise")
		assert.Equal(t, "Solid work.", fb.Summary)
		assert.Equal(t, []string{"Concise"}, fb.Strengths)
		assert.Empty(t, fb.Improvements)
	})

	t.Run("free text", func(t *testing.T) {
		assert.Equal(t, domain.ConsensusFeedback{}, ParseFeedback("no headings here"))
	})
}

func TestEvaluateQuestion(t *testing.T) {
	oracle := panelOracle()
	pauses := &pauseCounter{}
	var hooked []domain.ConsensusResult
	e := NewEvaluator(oracle,
		WithSleeper(pauses.Sleep),
		WithScoreHook(func(r domain.ConsensusResult) { hooked = append(hooked, r) }),
	)

	qa := domain.AlignedQA{QuestionNumber: "1", QuestionText: "What is OOP?", MaxMarks: 10, Answer: "Objects and classes."}
	res := e.EvaluateQuestion(context.Background(), qa)

	assert.Equal(t, "1", res.QuestionNumber)
	assert.InDelta(t, 8, res.FinalScore, 1e-9)
	assert.True(t, res.ScoreParsed)
	assert.Equal(t, consensusReply, res.FeedbackText)
	assert.Equal(t, []string{"Mention polymorphism"}, res.Feedback.Improvements)

	require.Len(t, res.Opinions, 3)
	wantNames := []string{Theoretical.Name, Practical.Name, Holistic.Name}
	wantGrades := []float64{7, 8, 9}
	for i, op := range res.Opinions {
		assert.Equal(t, wantNames[i], op.EvaluatorName)
		assert.True(t, op.ProposedGrade.Valid)
		assert.InDelta(t, wantGrades[i], op.ProposedGrade.Value, 1e-9)
		assert.False(t, op.Failed)
	}

	calls := oracle.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, transport.OpConsensus, calls[3].Request.Operation)
	for _, c := range calls {
		assert.True(t, c.Request.NoRetry, "panel calls fall back instead of retrying")
	}
	assert.Contains(t, calls[3].Prompt, "**Proposed Grade:** 9 out of 10")
	assert.Contains(t, calls[3].Prompt, "- Holistic Perspective: 9 out of 10")

	assert.Equal(t, 4, pauses.count())
	assert.Equal(t, DefaultPause, pauses.waits[0])
	require.Len(t, hooked, 1)
}

func TestEvaluateQuestionFailures(t *testing.T) {
	qa := domain.AlignedQA{QuestionNumber: "2", QuestionText: "Define inheritance", MaxMarks: 5, Answer: "Reuse."}

	t.Run("every call fails", func(t *testing.T) {
		oracle := &llm.FakeOracle{Respond: func(context.Context, llm.Call) (string, error) {
			return "", errors.New("quota exhausted")
		}}
		e := NewEvaluator(oracle, WithPause(0))

		res := e.EvaluateQuestion(context.Background(), qa)
		assert.Zero(t, res.FinalScore)
		assert.False(t, res.ScoreParsed)
		assert.Equal(t, "Error in consensus evaluation: quota exhausted", res.FeedbackText)
		for _, op := range res.Opinions {
			assert.True(t, op.Failed)
			assert.Contains(t, op.RawText, "**Error:** quota exhausted")
			assert.Contains(t, op.RawText, "**Proposed Grade:** 0 out of 5")
			assert.Equal(t, domain.NewGrade(0), op.ProposedGrade)
		}
	})

	t.Run("empty persona response becomes placeholder", func(t *testing.T) {
		oracle := &llm.FakeOracle{Respond: func(_ context.Context, c llm.Call) (string, error) {
			if c.Request.Operation == transport.OpConsensus {
				return "**Score:** 3 out of 5", nil
			}
			return "   ", nil
		}}
		e := NewEvaluator(oracle, WithPause(0))

		res := e.EvaluateQuestion(context.Background(), qa)
		assert.InDelta(t, 3, res.FinalScore, 1e-9)
		for _, op := range res.Opinions {
			assert.True(t, op.Failed)
		}
	})

	t.Run("provider failures are not retried", func(t *testing.T) {
		cfg := configuration.DefaultConfig()
		cfg.RateLimit.Enabled = false
		var ops []transport.Operation
		core := transport.HandlerFunc(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
			ops = append(ops, req.Operation)
			if req.Operation == transport.OpOpinion {
				return nil, llmerrors.ErrProviderUnavailable
			}
			return &transport.Response{Content: "**Score:** 2 out of 5"}, nil
		})
		client, err := llm.NewClientWithHandler(context.Background(), cfg, core,
			func(context.Context, time.Duration) error { return nil })
		require.NoError(t, err)

		res := NewEvaluator(client, WithPause(0)).EvaluateQuestion(context.Background(), qa)
		assert.InDelta(t, 2, res.FinalScore, 1e-9)
		for _, op := range res.Opinions {
			assert.True(t, op.Failed)
		}
		assert.Equal(t, []transport.Operation{
			transport.OpOpinion, transport.OpOpinion, transport.OpOpinion, transport.OpConsensus,
		}, ops)
	})

	unreadable := []struct {
		name  string
		reply string
	}{
		{name: "prose", reply: "The student did well overall."},
		{name: "nan", reply: "**Score:** NaN out of 5"},
		{name: "infinity", reply: "**Score:** Inf out of 5"},
		{name: "negative", reply: "**Score:** -4 out of 5"},
	}
	for _, tt := range unreadable {
		t.Run("unreadable consensus score "+tt.name, func(t *testing.T) {
			oracle := &llm.FakeOracle{Respond: func(_ context.Context, c llm.Call) (string, error) {
				if c.Request.Operation == transport.OpConsensus {
					return tt.reply, nil
				}
				return "**Proposed Grade:** 4 out of 5", nil
			}}
			e := NewEvaluator(oracle, WithPause(0))

			res := e.EvaluateQuestion(context.Background(), qa)
			assert.Zero(t, res.FinalScore)
			assert.False(t, res.ScoreParsed)
			assert.Equal(t, tt.reply, res.FeedbackText)

			report := domain.NewEvaluationReport([]domain.ConsensusResult{res})
			assert.Zero(t, report.TotalScore)
			assert.Equal(t, 0, report.Percentage())
		})
	}
}

func TestEvaluate(t *testing.T) {
	aligned := []domain.AlignedQA{
		{QuestionNumber: "1", QuestionText: "What is OOP?", MaxMarks: 10, Answer: "Objects."},
		{QuestionNumber: "2", QuestionText: "Define inheritance", MaxMarks: 5, Answer: "Reuse."},
		{QuestionNumber: "3", QuestionText: "Explain encapsulation", MaxMarks: 10, Answer: "Hiding."},
	}

	t.Run("one failing question does not stop the batch", func(t *testing.T) {
		oracle := &llm.FakeOracle{Respond: func(ctx context.Context, c llm.Call) (string, error) {
			if strings.Contains(c.Prompt, "QUESTION 2 [") {
				return "", errors.New("provider unavailable")
			}
			return panelOracle().Respond(ctx, c)
		}}
		e := NewEvaluator(oracle, WithPause(0))

		report, err := e.Evaluate(context.Background(), aligned)
		require.NoError(t, err)
		require.Len(t, report.PerQuestion, 3)
		assert.InDelta(t, 8, report.PerQuestion[0].FinalScore, 1e-9)
		assert.Zero(t, report.PerQuestion[1].FinalScore)
		assert.Contains(t, report.PerQuestion[1].FeedbackText, "Error in consensus evaluation")
		assert.InDelta(t, 8, report.PerQuestion[2].FinalScore, 1e-9)
		assert.InDelta(t, 16, report.TotalScore, 1e-9)
		assert.Equal(t, 25, report.MaxTotalScore)
		assert.Equal(t, 64, report.Percentage())
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewEvaluator(panelOracle(), WithPause(0)).Evaluate(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrNoMarks)
	})

	t.Run("no marks to award", func(t *testing.T) {
		oracle := panelOracle()
		_, err := NewEvaluator(oracle, WithPause(0)).Evaluate(context.Background(), []domain.AlignedQA{
			{QuestionNumber: "1", QuestionText: "What is OOP?", MaxMarks: 0, Answer: "Objects."},
			{QuestionNumber: "2", QuestionText: "Define inheritance", MaxMarks: -5, Answer: "Reuse."},
		})
		assert.ErrorIs(t, err, domain.ErrNoMarks)
		assert.Empty(t, oracle.Calls())
	})

	t.Run("cancellation discards partial results", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		inner := panelOracle()
		oracle := &llm.FakeOracle{Respond: func(ctx context.Context, c llm.Call) (string, error) {
			if strings.Contains(c.Prompt, "QUESTION 2 [") {
				cancel()
			}
			return inner.Respond(ctx, c)
		}}
		e := NewEvaluator(oracle, WithPause(0))

		report, err := e.Evaluate(ctx, aligned)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, report)
		for _, c := range oracle.Calls() {
			assert.NotContains(t, c.Prompt, "QUESTION 3 [")
		}
	})
}

func TestStage(t *testing.T) {
	s := StagePendingOpinions
	var seen []string
	for range 5 {
		seen = append(seen, s.String())
		s = s.next()
	}
	assert.Equal(t, []string{
		"pending_opinions", "opinions_collected", "consensus_pending", "consensus_done", "consensus_done",
	}, seen)
	assert.Equal(t, "unknown", Stage(42).String())
}
