package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// GradeNotAvailable is the display value of a grade that could not be read
// from an evaluator's free text.
const GradeNotAvailable = "N/A"

// Grade is a proposed grade parsed out of an opinion. The zero value is an
// unparsed grade, which displays as GradeNotAvailable and is never used in
// arithmetic.
type Grade struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// NewGrade returns a parsed grade.
func NewGrade(v float64) Grade { return Grade{Value: v, Valid: true} }

// String formats the grade for reports.
func (g Grade) String() string {
	if !g.Valid {
		return GradeNotAvailable
	}
	return FormatScore(g.Value)
}

// EvaluationOpinion is one persona's independent assessment of an answer.
type EvaluationOpinion struct {
	EvaluatorName string `json:"evaluator_name"`
	Perspective   string `json:"perspective"`
	RawText       string `json:"raw_text"`
	ProposedGrade Grade  `json:"proposed_grade"`
	// Failed marks a placeholder synthesized after an oracle failure.
	Failed bool `json:"failed,omitempty"`
}

// ConsensusFeedback is the structured part of the arbiter's response.
// Fields are empty when the response did not use the expected headings.
type ConsensusFeedback struct {
	Summary      string   `json:"summary,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

// ConsensusResult is the reconciled grade for one aligned question.
// FinalScore is 0 whenever the arbiter's output could not be parsed.
type ConsensusResult struct {
	QuestionNumber string              `json:"question_number"`
	QuestionText   string              `json:"question_text"`
	MaxMarks       int                 `json:"max_marks"`
	FinalScore     float64             `json:"final_score"`
	ScoreParsed    bool                `json:"score_parsed"`
	FeedbackText   string              `json:"feedback_text"`
	Feedback       ConsensusFeedback   `json:"feedback"`
	Opinions       []EvaluationOpinion `json:"opinions"`
}

// EvaluationReport aggregates consensus results in alignment order.
type EvaluationReport struct {
	PerQuestion   []ConsensusResult `json:"per_question"`
	TotalScore    float64           `json:"total_score"`
	MaxTotalScore int               `json:"max_total_score"`
}

// NewEvaluationReport sums the results. Unparsed scores contribute nothing
// to the total but their marks still count towards the maximum.
func NewEvaluationReport(results []ConsensusResult) EvaluationReport {
	r := EvaluationReport{PerQuestion: results}
	for _, res := range results {
		if res.ScoreParsed {
			r.TotalScore += res.FinalScore
		}
		r.MaxTotalScore += res.MaxMarks
	}
	return r
}

// Percentage returns round(100 * total / max), or 0 for a report without
// marks. Evaluation rejects such inputs with ErrNoMarks before grading.
func (r EvaluationReport) Percentage() int {
	if r.MaxTotalScore == 0 {
		return 0
	}
	return int(math.Round(100 * r.TotalScore / float64(r.MaxTotalScore)))
}

// ScoreLabel renders the total as "X/Y", the form stored on evaluation records.
func (r EvaluationReport) ScoreLabel() string {
	return FormatScore(r.TotalScore) + "/" + strconv.Itoa(r.MaxTotalScore)
}

// FormatScore renders a score without trailing zeros ("8", "7.5").
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AlignmentMode selects how answers are matched to questions.
type AlignmentMode string

const (
	// AlignmentStructural uses the regex parser and segmenter cascades.
	AlignmentStructural AlignmentMode = "structural"
	// AlignmentSemantic delegates alignment to the oracle.
	AlignmentSemantic AlignmentMode = "semantic"
)

// AlignmentHints toggles optional instructions for semantic alignment.
type AlignmentHints struct {
	Markdown bool `json:"markdown"`
	Noisy    bool `json:"noisy"`
}

// EvaluationRequest carries one grading job. Either QuestionPaper/AnswerText
// or Pairs is used; Pairs takes precedence when non-empty.
type EvaluationRequest struct {
	QuestionPaper string         `json:"question_paper"`
	AnswerText    string         `json:"answer_text" validate:"required_without=Pairs"`
	Pairs         []QAPair       `json:"pairs,omitempty"`
	Mode          AlignmentMode  `json:"mode" validate:"omitempty,oneof=structural semantic"`
	Hints         AlignmentHints `json:"hints"`
	FileName      string         `json:"file_name,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
}

// Validate checks the request before any oracle call is made.
func (r *EvaluationRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// EvaluationResult is the output of a full grading run.
type EvaluationResult struct {
	ID        string           `json:"id"`
	Aligned   []AlignedQA      `json:"aligned"`
	Report    EvaluationReport `json:"report"`
	Markdown  string           `json:"markdown"`
	CreatedAt time.Time        `json:"created_at"`
}
