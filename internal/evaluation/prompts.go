package evaluation

import (
	"fmt"
	"strings"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

func opinionPrompt(p Persona, qa domain.AlignedQA) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, grading a student's answer.\n\n", p.Name)
	fmt.Fprintf(&b, "QUESTION %s [%d marks]:\n%s\n\n", qa.QuestionNumber, qa.MaxMarks, qa.QuestionText)
	fmt.Fprintf(&b, "STUDENT'S ANSWER:\n%s\n\n", qa.Answer)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. List the key points the question requires, from your perspective.\n")
	b.WriteString("2. List which of those points the answer addresses.\n")
	fmt.Fprintf(&b, "3. Give your evaluation and a proposed grade out of %d with a short rationale.\n\n", qa.MaxMarks)
	b.WriteString("Use exactly this format:\n\n")
	fmt.Fprintf(&b, "## %s Evaluation\n\n", p.Name)
	b.WriteString("**Key Points Required:**\n- ...\n\n")
	b.WriteString("**Points Addressed:**\n- ...\n\n")
	b.WriteString("**Evaluation:**\n...\n\n")
	fmt.Fprintf(&b, "**Proposed Grade:** X out of %d\n", qa.MaxMarks)
	return b.String()
}

func consensusPrompt(arbiter Persona, qa domain.AlignedQA, opinions []domain.EvaluationOpinion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, leading the final consensus evaluation.\n\n", arbiter.Name)
	fmt.Fprintf(&b, "QUESTION %s [%d marks]:\n%s\n\n", qa.QuestionNumber, qa.MaxMarks, qa.QuestionText)
	fmt.Fprintf(&b, "STUDENT'S ANSWER:\n%s\n\n", qa.Answer)
	b.WriteString("EVALUATIONS FROM DIFFERENT PERSPECTIVES:\n\n")
	for _, op := range opinions {
		b.WriteString(op.RawText)
		b.WriteString("\n\n")
	}
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Review all three evaluations.\n")
	b.WriteString("2. Identify where they agree and where they differ.\n")
	b.WriteString("3. Decide a final grade and justify it.\n\n")
	b.WriteString("Use exactly this format:\n\n")
	fmt.Fprintf(&b, "## Question %s: %s\n\n", qa.QuestionNumber, qa.QuestionText)
	fmt.Fprintf(&b, "**Score:** X out of %d\n\n", qa.MaxMarks)
	b.WriteString("**Individual Scores:**\n")
	for _, op := range opinions {
		fmt.Fprintf(&b, "- %s: %s out of %d\n", op.Perspective, op.ProposedGrade, qa.MaxMarks)
	}
	b.WriteString("\n**Consensus Feedback:**\n...\n\n")
	b.WriteString("**Strengths:**\n- ...\n\n")
	b.WriteString("**Areas for Improvement:**\n- ...\n")
	return b.String()
}

// placeholderOpinion is the opinion text recorded when a persona call fails.
// It parses to a grade of zero.
func placeholderOpinion(p Persona, maxMarks int, err error) string {
	return fmt.Sprintf("## %s Evaluation\n\n**Error:** %v\n\n**Proposed Grade:** 0 out of %d", p.Name, err, maxMarks)
}

// consensusFailure is the feedback recorded when the arbiter call fails.
func consensusFailure(err error) string {
	return fmt.Sprintf("Error in consensus evaluation: %v", err)
}
