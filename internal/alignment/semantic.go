package alignment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/retry"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

// Input budgets in runes. Text past a budget is cut, never rejected.
const (
	QuestionPaperBudget = 8000
	AnswerTextBudget    = 16000
	CombinedBudget      = 22000
)

// DefaultSemanticPolicy gives the oracle three attempts with waits of 2s and
// 4s between them.
var DefaultSemanticPolicy = retry.Policy{
	MaxAttempts:   3,
	BaseDelay:     2 * time.Second,
	BackoffFactor: 2,
}

var errNoValidRecords = errors.New("oracle returned no valid alignment records")

// requiredKeys are the fields every returned record must carry.
var requiredKeys = [...]string{"questionNumber", "question", "maxMarks", "answer"}

var (
	fencedBlock    = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	arrayOfObjects = regexp.MustCompile(`\[\s*\{[\s\S]*\}\s*\]`)
	anyStructure   = regexp.MustCompile(`(\{[\s\S]*\}|\[[\s\S]*\])`)
)

// SemanticAligner aligns answers to questions by asking the oracle to read
// both documents at once.
type SemanticAligner struct {
	oracle llm.Oracle
	policy retry.Policy
	sleep  retry.Sleeper
	logger *slog.Logger
}

// SemanticOption configures a SemanticAligner.
type SemanticOption func(*SemanticAligner)

// WithPolicy replaces the retry policy.
func WithPolicy(p retry.Policy) SemanticOption {
	return func(a *SemanticAligner) { a.policy = p }
}

// WithSleeper replaces the clock used between attempts.
func WithSleeper(s retry.Sleeper) SemanticOption {
	return func(a *SemanticAligner) { a.sleep = s }
}

// NewSemanticAligner returns an aligner backed by oracle.
func NewSemanticAligner(oracle llm.Oracle, opts ...SemanticOption) *SemanticAligner {
	a := &SemanticAligner{
		oracle: oracle,
		policy: DefaultSemanticPolicy,
		sleep:  retry.SleepContext,
		logger: slog.Default().With("component", "semantic_aligner"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Align returns the records the oracle produced for questionPaper and
// answerText. Oracle failures and unusable output are retried under the
// aligner's policy; if every attempt fails the result is empty and the error
// nil. Only a done context is reported as an error.
func (a *SemanticAligner) Align(
	ctx context.Context,
	questionPaper, answerText string,
	hints domain.AlignmentHints,
) ([]domain.AlignedQA, error) {
	questionPaper, answerText = a.applyBudgets(questionPaper, answerText)
	prompt := buildAlignmentPrompt(questionPaper, answerText, hints)

	start := time.Now()
	var records []domain.AlignedQA
	err := retry.Do(ctx, a.policy, a.sleep, func(ctx context.Context, attempt int) error {
		opts := []llm.CallOption{
			llm.WithOperation(transport.OpAlignment),
			llm.WithJSONResponse(),
			llm.WithNoRetry(),
		}
		if attempt > 1 {
			// A cached answer from an earlier attempt is the one that failed.
			opts = append(opts, llm.WithCacheRefresh())
		}
		raw, err := a.oracle.Generate(ctx, prompt, opts...)
		if err != nil {
			a.logger.Warn("alignment attempt failed", "attempt", attempt, "error", err)
			return err
		}
		records = ParseAlignment(raw)
		if len(records) == 0 {
			a.logger.Warn("alignment attempt returned no usable records", "attempt", attempt)
			return errNoValidRecords
		}
		return nil
	})

	switch {
	case err == nil:
		a.logger.Info("aligned answers semantically",
			"records", len(records),
			"duration_ms", time.Since(start).Milliseconds())
		return records, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		a.logger.Error("all alignment attempts failed, returning empty result", "error", err)
		return []domain.AlignedQA{}, nil
	}
}

// applyBudgets cuts both texts to their own budgets, then shrinks them
// proportionally if together they still exceed CombinedBudget.
func (a *SemanticAligner) applyBudgets(qp, ans string) (string, string) {
	if n := runeLen(qp); n > QuestionPaperBudget {
		a.logger.Warn("question paper too long, truncating", "runes", n, "budget", QuestionPaperBudget)
		qp = truncateRunes(qp, QuestionPaperBudget)
	}
	if n := runeLen(ans); n > AnswerTextBudget {
		a.logger.Warn("answer text too long, truncating", "runes", n, "budget", AnswerTextBudget)
		ans = truncateRunes(ans, AnswerTextBudget)
	}

	qpLen, ansLen := runeLen(qp), runeLen(ans)
	total := qpLen + ansLen
	if total > CombinedBudget {
		ratio := float64(CombinedBudget) / float64(total)
		a.logger.Warn("combined text too long, shrinking proportionally", "runes", total, "budget", CombinedBudget)
		qp = truncateRunes(qp, int(float64(qpLen)*ratio))
		ans = truncateRunes(ans, int(float64(ansLen)*ratio))
	}
	return qp, ans
}

func runeLen(s string) int { return len([]rune(s)) }

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

const markdownHint = `
The questions may be written in Markdown, for example:
- "1. Question text [5]" where 5 is the marks
- "- Question text [10]"
- "## Question text [5]"
`

const noiseHint = `
The answer text was produced by OCR and may contain noise such as headers,
footers, page numbers, stray artifacts and formatting errors. Ignore the
noise and extract only the student's actual answers.
`

func buildAlignmentPrompt(questionPaper, answerText string, hints domain.AlignmentHints) string {
	var b strings.Builder
	b.WriteString("# Question-Answer Alignment\n\n")
	b.WriteString("You are an experienced examiner. Match each question on the paper below ")
	b.WriteString("with the student's answer to it.\n\n")
	b.WriteString("## Questions\n```\n")
	b.WriteString(questionPaper)
	b.WriteString("\n```\n\n")
	b.WriteString("## Student Answer Text\n```\n")
	b.WriteString(answerText)
	b.WriteString("\n```\n\n")
	b.WriteString("## Instructions\n")
	b.WriteString("1. List every question on the paper together with its marks.\n")
	b.WriteString("2. For each question, find the text in the answer sheet that answers it.\n")
	b.WriteString("3. Match by meaning, not by layout. Answers may be out of order or unlabeled.\n")
	if hints.Markdown {
		b.WriteString(markdownHint)
	}
	if hints.Noisy {
		b.WriteString(noiseHint)
	}
	b.WriteString("\n## Response Format\n")
	b.WriteString("Return a JSON array where every element has exactly these keys:\n")
	b.WriteString(`[{"questionNumber": <number>, "question": "<question text>", "maxMarks": <number>, "answer": "<answer text>"}]`)
	b.WriteString("\n\nReturn only the JSON array.\n")
	return b.String()
}

// ParseAlignment extracts alignment records from raw oracle output.
// Elements missing a required key, with a blank questionNumber, or whose
// maxMarks is not a number of at least one are dropped.
func ParseAlignment(raw string) []domain.AlignedQA {
	elems, ok := extractJSONArray(raw)
	if !ok {
		return nil
	}
	out := make([]domain.AlignedQA, 0, len(elems))
	for _, elem := range elems {
		if rec, ok := toRecord(elem); ok {
			out = append(out, rec)
		}
	}
	return out
}

// extractJSONArray tries the whole text, then fenced blocks, then the first
// array of objects, then the first brace or bracket structure. Only arrays
// count as a result.
func extractJSONArray(raw string) ([]map[string]json.RawMessage, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	candidates := []string{raw}
	for _, m := range fencedBlock.FindAllStringSubmatch(raw, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, arrayOfObjects.FindAllString(raw, -1)...)
	candidates = append(candidates, anyStructure.FindAllString(raw, -1)...)

	for _, c := range candidates {
		var v any
		if err := json.Unmarshal([]byte(c), &v); err != nil {
			continue
		}
		// The first candidate that parses decides the outcome.
		if _, isArray := v.([]any); !isArray {
			return nil, false
		}
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(c), &elems); err != nil {
			return nil, false
		}
		out := make([]map[string]json.RawMessage, 0, len(elems))
		for _, e := range elems {
			var obj map[string]json.RawMessage
			if json.Unmarshal(e, &obj) == nil && obj != nil {
				out = append(out, obj)
			}
		}
		return out, true
	}
	return nil, false
}

func toRecord(obj map[string]json.RawMessage) (domain.AlignedQA, bool) {
	for _, k := range requiredKeys {
		if _, ok := obj[k]; !ok {
			return domain.AlignedQA{}, false
		}
	}
	marks, ok := numberValue(obj["maxMarks"])
	if !ok || math.IsNaN(marks) || math.IsInf(marks, 0) {
		return domain.AlignedQA{}, false
	}
	rec := domain.AlignedQA{
		QuestionNumber: strings.TrimSpace(textValue(obj["questionNumber"])),
		QuestionText:   textValue(obj["question"]),
		MaxMarks:       int(math.Round(marks)),
		Answer:         textValue(obj["answer"]),
	}
	if rec.QuestionNumber == "" || rec.MaxMarks < 1 {
		return domain.AlignedQA{}, false
	}
	return rec, true
}

// numberValue accepts JSON numbers and strings holding a number.
func numberValue(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// textValue renders a JSON scalar as plain text. Strings are unquoted,
// null is empty, and anything else keeps its JSON form.
func textValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	t := strings.TrimSpace(string(raw))
	if t == "null" {
		return ""
	}
	return t
}

