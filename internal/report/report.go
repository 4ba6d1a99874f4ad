// Package report renders evaluation reports as Markdown and reads the score
// markers back out of rendered reports.
package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

// Title heads every rendered report.
const Title = "# Student Answer Evaluation"

// NoValidAnswers is the whole report for a submission in which no question
// had a usable answer.
const NoValidAnswers = "# No Valid Answers to Evaluate\n\n" +
	"No valid answer was found for any question on the paper. Check that the " +
	"uploaded document contains the answers, or try a different document.\n"

// Render formats report as Markdown. It is a pure function of its input.
func Render(report domain.EvaluationReport) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n\n")

	for _, res := range report.PerQuestion {
		writeQuestion(&b, res)
	}

	b.WriteString("# Summary\n\n")
	fmt.Fprintf(&b, "**Total Score:** %s out of %d (%d%%)\n",
		domain.FormatScore(report.TotalScore), report.MaxTotalScore, report.Percentage())
	return b.String()
}

func writeQuestion(b *strings.Builder, res domain.ConsensusResult) {
	fmt.Fprintf(b, "## Question %s: %s\n\n", res.QuestionNumber, oneLine(res.QuestionText))
	fmt.Fprintf(b, "**Score:** %s out of %d\n\n", domain.FormatScore(res.FinalScore), res.MaxMarks)

	if len(res.Opinions) > 0 {
		b.WriteString("**Individual Scores:**\n")
		for _, op := range res.Opinions {
			fmt.Fprintf(b, "- %s: %s out of %d\n", op.Perspective, op.ProposedGrade, res.MaxMarks)
		}
		b.WriteString("\n")
	}

	fb := res.Feedback
	summary := withoutScoreLines(fb.Summary)
	if summary == "" && len(fb.Strengths) == 0 && len(fb.Improvements) == 0 {
		// The arbiter ignored the headings; keep its text minus score lines.
		summary = withoutScoreLines(res.FeedbackText)
	}
	if summary != "" {
		fmt.Fprintf(b, "**Consensus Feedback:**\n%s\n\n", summary)
	}
	writeList(b, "Strengths", fb.Strengths)
	writeList(b, "Areas for Improvement", fb.Improvements)
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

// withoutScoreLines drops lines that would be read back as score markers.
func withoutScoreLines(s string) string {
	var kept []string
	for line := range strings.SplitSeq(s, "\n") {
		if ScorePattern.MatchString(line) || totalPattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ScorePattern matches a per-question score line written by Render and
// captures the score and the maximum.
var ScorePattern = regexp.MustCompile(`\*\*Score:\*\*\s*\[?(\d+(?:\.\d+)?)\]?\s+out of\s+(\d+(?:\.\d+)?)`)

var totalPattern = regexp.MustCompile(`\*\*Total Score:\*\*\s*(\d+(?:\.\d+)?)\s+out of\s+(\d+)\s*\((\d+)%\)`)

// Score is one score marker read back from a report.
type Score struct {
	Value float64
	Max   float64
}

// ExtractScores returns the per-question scores of a rendered report in
// document order.
func ExtractScores(markdown string) []Score {
	matches := ScorePattern.FindAllStringSubmatch(markdown, -1)
	out := make([]Score, 0, len(matches))
	for _, m := range matches {
		v, err1 := strconv.ParseFloat(m[1], 64)
		mx, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, Score{Value: v, Max: mx})
	}
	return out
}

// Total is the summary line read back from a report.
type Total struct {
	Score      float64
	Max        int
	Percentage int
}

// ExtractTotal reads the summary line of a rendered report.
func ExtractTotal(markdown string) (Total, bool) {
	m := totalPattern.FindStringSubmatch(markdown)
	if m == nil {
		return Total{}, false
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Total{}, false
	}
	mx, err := strconv.Atoi(m[2])
	if err != nil {
		return Total{}, false
	}
	pct, err := strconv.Atoi(m[3])
	if err != nil {
		return Total{}, false
	}
	return Total{Score: score, Max: mx, Percentage: pct}, true
}

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a Markdown report to an HTML fragment.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}
