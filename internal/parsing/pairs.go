package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

// DefaultPairMarks is the mark allocation of a mapped pair whose question
// carries no "[N marks]" annotation.
const DefaultPairMarks = 5

var pairMarks = regexp.MustCompile(`(?i)[ \t]*\[(\d+)[ \t]*(?:marks?|points?)\]`)

// AlignPairs converts externally mapped question/answer pairs into aligned
// records. Pairs with an empty answer or the "No answer found" marker are
// dropped and the survivors are numbered from 1. Marks are read from a
// "[N marks]" or "[N points]" annotation, which is removed from the text.
func AlignPairs(pairs []domain.QAPair) []domain.AlignedQA {
	var out []domain.AlignedQA
	for _, p := range pairs {
		answer := strings.TrimSpace(p.Answer)
		if answer == "" || strings.EqualFold(answer, domain.NoAnswerFound) {
			continue
		}
		question, marks := splitPairMarks(p.Question)
		out = append(out, domain.AlignedQA{
			QuestionNumber: strconv.Itoa(len(out) + 1),
			QuestionText:   question,
			MaxMarks:       marks,
			Answer:         answer,
		})
	}
	return out
}

func splitPairMarks(question string) (string, int) {
	m := pairMarks.FindStringSubmatch(question)
	if m == nil {
		return strings.TrimSpace(question), DefaultPairMarks
	}
	marks, err := strconv.Atoi(m[1])
	if err != nil || marks <= 0 {
		marks = DefaultPairMarks
	}
	return strings.TrimSpace(strings.Replace(question, m[0], "", 1)), marks
}
