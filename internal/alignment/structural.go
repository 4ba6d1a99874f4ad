// Package alignment pairs parsed questions with the student's answers.
//
// Align joins regex-parsed questions with segmented answers by number.
// SemanticAligner is the alternative for text that defeats the regex
// cascades: it hands both documents to the oracle in a single call and keeps
// whatever well-formed records come back.
package alignment

import (
	"strconv"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

// Align returns one record per question, in question order. A question's id
// is looked up in answers as an integer; ids that are not integers fall back
// to the question's 1-based position. Questions without an answer get
// domain.NoAnswerProvided. Align never fails and len(result) == len(questions).
func Align(questions []domain.Question, answers map[int]string) []domain.AlignedQA {
	out := make([]domain.AlignedQA, len(questions))
	for i, q := range questions {
		key, err := strconv.Atoi(q.ID)
		if err != nil {
			key = i + 1
		}
		answer, ok := answers[key]
		if !ok {
			answer = domain.NoAnswerProvided
		}
		out[i] = domain.AlignedQA{
			QuestionNumber: q.ID,
			QuestionText:   q.Text,
			MaxMarks:       q.Marks,
			Answer:         answer,
		}
	}
	return out
}
