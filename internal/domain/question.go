package domain

import "fmt"

// Sentinel values substituted when real data is unavailable so that every
// downstream function stays total.
const (
	// NoAnswerProvided is the answer assigned to a question for which the
	// answer sheet contains no fragment.
	NoAnswerProvided = "No answer provided"

	// NoAnswerFound is the marker external mappers emit for unanswered
	// questions. Pairs carrying it are filtered before evaluation.
	NoAnswerFound = "No answer found"

	// DefaultQuestionText is the prompt used when a question paper yields no
	// parseable questions.
	DefaultQuestionText = "Evaluate the following answer"

	// DefaultQuestionMarks is the mark allocation of the default question.
	DefaultQuestionMarks = 10
)

// Question is one entry of a question paper as recovered by the parser.
// IDs are assigned sequentially from "1" in document order; Marks is always
// positive because questions without a marks annotation are dropped.
type Question struct {
	ID    string `json:"id" validate:"required"`
	Text  string `json:"text" validate:"required"`
	Marks int    `json:"marks" validate:"required,min=1"`
}

// Validate checks the question invariants.
func (q Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return nil
}

// DefaultQuestion returns the single question synthesized when a question
// paper contains nothing recognisable.
func DefaultQuestion() Question {
	return Question{ID: "1", Text: DefaultQuestionText, Marks: DefaultQuestionMarks}
}

// AnswerFragment is the raw answer body found under one question number.
type AnswerFragment struct {
	QuestionNumber int    `json:"question_number"`
	Text           string `json:"text"`
}

// AlignedQA joins a question with the student's answer to it.
// Exactly one record exists per question; a missing answer is represented by
// NoAnswerProvided, never by omission.
type AlignedQA struct {
	QuestionNumber string `json:"questionNumber" validate:"required"`
	QuestionText   string `json:"question"`
	MaxMarks       int    `json:"maxMarks" validate:"min=0"`
	Answer         string `json:"answer"`
}

// QAPair is a question/answer pair produced by an external mapper, with the
// marks still embedded in the question text (for example "[5 marks]").
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Validate checks the record invariants.
func (a AlignedQA) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
