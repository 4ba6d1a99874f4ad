package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

func TestAlignPairs(t *testing.T) {
	pairs := []domain.QAPair{
		{Question: "Explain OOP [10 marks]", Answer: "OOP is a paradigm."},
		{Question: "Define class [3 marks]", Answer: "No answer found"},
		{Question: "What is a method? [2 Points]", Answer: "  A function bound to an object. "},
		{Question: "Blank one", Answer: "   "},
		{Question: "Describe inheritance", Answer: "Reuse."},
	}

	got := AlignPairs(pairs)

	assert.Equal(t, []domain.AlignedQA{
		{QuestionNumber: "1", QuestionText: "Explain OOP", MaxMarks: 10, Answer: "OOP is a paradigm."},
		{QuestionNumber: "2", QuestionText: "What is a method?", MaxMarks: 2, Answer: "A function bound to an object."},
		{QuestionNumber: "3", QuestionText: "Describe inheritance", MaxMarks: DefaultPairMarks, Answer: "Reuse."},
	}, got)
}

func TestAlignPairsAllFiltered(t *testing.T) {
	got := AlignPairs([]domain.QAPair{{Question: "Q [1 mark]", Answer: "no answer found"}})
	assert.Empty(t, got)
}
