package parsing

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

var (
	// answerMarker matches "Answer 1:", "**Answer 2:**", "Answer 3a):" at the
	// start of a line. The literal word is case-sensitive.
	answerMarker = regexp.MustCompile(
		`(?m)^[ \t]*(?:\*\*)?Answer[ \t]*(\d+)(?:[a-z]\)?)?(?:\*\*)?[ \t]*:(?:\*\*)?`)

	// numberedLine matches "2) ...", "3. ..." and "4a: ..." at the start of a line.
	numberedLine = regexp.MustCompile(`(?m)^[ \t]*(?:Answer[ \t]*)?(\d+)[a-z]?[.):]`)
)

var answerChain = []strategy[map[int]string]{
	{name: "answer-marker", run: func(text string) (map[int]string, bool) {
		return segmentByMarkers(text, answerMarker, nil)
	}},
	{name: "numbered-line", run: func(text string) (map[int]string, bool) {
		return segmentByMarkers(text, numberedLine, notDecimal)
	}},
	{name: "single-answer", run: singleAnswer},
}

// SegmentAnswers maps question numbers to answer bodies. Bodies run from a
// marker to the next marker of the same kind and are trimmed. When a number
// appears twice the later body wins. Text without any markers becomes the
// answer to question 1; blank text yields an empty map.
func SegmentAnswers(text string) map[int]string {
	text = normalizeNewlines(text)
	answers, name, ok := firstMatch(text, answerChain)
	if !ok {
		return map[int]string{}
	}
	logger().Debug("segmented answers", "strategy", name, "count", len(answers))
	return answers
}

// Fragments returns the segmented answers as fragments ordered by number.
func Fragments(answers map[int]string) []domain.AnswerFragment {
	out := make([]domain.AnswerFragment, 0, len(answers))
	for n, body := range answers {
		out = append(out, domain.AnswerFragment{QuestionNumber: n, Text: body})
	}
	slices.SortFunc(out, func(a, b domain.AnswerFragment) int {
		return cmp.Compare(a.QuestionNumber, b.QuestionNumber)
	})
	return out
}

// segmentByMarkers slices text between consecutive marker matches. accept,
// when set, can veto a match by looking at the text that follows it.
func segmentByMarkers(
	text string, marker *regexp.Regexp, accept func(text string, end int) bool,
) (map[int]string, bool) {
	var locs [][]int
	for _, loc := range marker.FindAllStringSubmatchIndex(text, -1) {
		if accept == nil || accept(text, loc[1]) {
			locs = append(locs, loc)
		}
	}
	if len(locs) == 0 {
		return nil, false
	}

	answers := make(map[int]string, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		raw := text[loc[2]:loc[3]]
		n, err := strconv.Atoi(raw)
		if err != nil {
			logger().Warn("discarding answer with unusable number", "number", raw, "error", err)
			continue
		}
		answers[n] = strings.TrimSpace(text[loc[1]:end])
	}
	return answers, len(answers) > 0
}

// notDecimal rejects "3.14" style matches where the punctuation is a
// decimal point rather than list numbering.
func notDecimal(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	c := text[end]
	return c < '0' || c > '9'
}

func singleAnswer(text string) (map[int]string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	return map[int]string{1: trimmed}, true
}
