package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

var (
	// bracketedMarks matches "1. Explain X [10]", "- Describe Y [5]" and
	// un-numbered "Explain Z [3]" lines. The marks bracket must end the line.
	bracketedMarks = regexp.MustCompile(
		`(?m)^[ \t]*(?:(?:\d+[.)]|[-*+]|#{1,6})[ \t]*)?(\S.*?)[ \t]*\[(\d+)\][ \t]*$`)

	// marksSuffix tolerates "Marks: 5", "(5 marks)" and "5 marks" endings.
	marksSuffix = regexp.MustCompile(
		`(?mi)^[ \t]*(?:(?:\d+[.)]|[-*+]|#{1,6})[ \t]*)?(\S.*?)[ \t]*[\[(]?[ \t]*(?:marks?[ \t]*:[ \t]*(\d+)|(\d+)[ \t]*marks?)[ \t]*[\])]?[ \t]*$`)

	// bracketAnywhere is the last resort: a bracketed integer anywhere on a line.
	bracketAnywhere = regexp.MustCompile(`\[(\d+)\]`)

	// questionLabel strips numbering that survives in the captured text,
	// such as "Q1." or "Question 2:" or a bold "1." prefix.
	questionLabel = regexp.MustCompile(`(?i)^(?:q(?:uestion)?[ \t]*)?\d+[.):][ \t]*`)
)

var questionChain = []strategy[[]domain.Question]{
	{name: "bracketed-marks", run: parseBracketedMarks},
	{name: "marks-suffix", run: parseMarksSuffix},
	{name: "bracket-anywhere", run: parseBracketAnywhere},
}

// ParseQuestions extracts the questions of a question paper in document
// order. IDs are assigned sequentially from "1" whatever numbering the paper
// itself uses. Lines without a marks annotation are not questions, so a
// paper with no annotations yields an empty slice; see QuestionsOrDefault.
func ParseQuestions(text string) []domain.Question {
	text = normalizeNewlines(text)
	qs, name, ok := firstMatch(text, questionChain)
	if !ok {
		return nil
	}
	logger().Debug("parsed questions", "strategy", name, "count", len(qs))
	return qs
}

// QuestionsOrDefault returns qs, or the single default question when qs is
// empty, so that evaluation always has at least one mark to award.
func QuestionsOrDefault(qs []domain.Question) []domain.Question {
	if len(qs) > 0 {
		return qs
	}
	return []domain.Question{domain.DefaultQuestion()}
}

func parseBracketedMarks(text string) ([]domain.Question, bool) {
	var qs []domain.Question
	for _, m := range bracketedMarks.FindAllStringSubmatch(text, -1) {
		qs = appendQuestion(qs, m[1], m[2])
	}
	return qs, len(qs) > 0
}

func parseMarksSuffix(text string) ([]domain.Question, bool) {
	var qs []domain.Question
	for _, m := range marksSuffix.FindAllStringSubmatch(text, -1) {
		marks := m[2]
		if marks == "" {
			marks = m[3]
		}
		qs = appendQuestion(qs, m[1], marks)
	}
	return qs, len(qs) > 0
}

func parseBracketAnywhere(text string) ([]domain.Question, bool) {
	var qs []domain.Question
	for _, line := range strings.Split(text, "\n") {
		m := bracketAnywhere.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qs = appendQuestion(qs, strings.ReplaceAll(line, m[0], ""), m[1])
	}
	return qs, len(qs) > 0
}

// appendQuestion adds a question numbered after the ones already collected.
// Entries that fail domain.Question validation, such as empty text or marks
// that are not a positive integer, are skipped.
func appendQuestion(qs []domain.Question, rawText, rawMarks string) []domain.Question {
	marks, err := strconv.Atoi(rawMarks)
	if err != nil {
		return qs
	}
	q := domain.Question{
		ID:    strconv.Itoa(len(qs) + 1),
		Text:  cleanQuestionText(rawText),
		Marks: marks,
	}
	if q.Validate() != nil {
		return qs
	}
	return append(qs, q)
}

func cleanQuestionText(s string) string {
	s = strings.Trim(s, " \t*_#")
	s = questionLabel.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, " *_-:")
}
