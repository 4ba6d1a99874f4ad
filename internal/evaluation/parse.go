package evaluation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

// ScoreMarker labels the arbiter's final score line.
const ScoreMarker = "**Score:**"

var (
	proposedGrade = regexp.MustCompile(`\*\*Proposed Grade:\*\*\s*\[?(\d+(?:\.\d+)?)`)
	headingLine   = regexp.MustCompile(`^\s*\*\*([^*]+?):\*\*\s*(.*)$`)
	bulletPrefix  = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+`)
)

// ParseProposedGrade reads the first "**Proposed Grade:** X" in an opinion.
// The zero Grade is returned when there is none.
func ParseProposedGrade(text string) domain.Grade {
	m := proposedGrade.FindStringSubmatch(text)
	if m == nil {
		return domain.Grade{}
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return domain.Grade{}
	}
	return domain.NewGrade(v)
}

// ParseConsensusScore reads the final score from the arbiter's response: the
// first whitespace-separated token after ScoreMarker on the first line that
// contains it, with surrounding brackets and asterisks removed. Negative and
// non-finite values count as unparsed.
func ParseConsensusScore(text string) (float64, bool) {
	for line := range strings.SplitSeq(text, "\n") {
		_, after, found := strings.Cut(line, ScoreMarker)
		if !found {
			continue
		}
		fields := strings.Fields(after)
		if len(fields) == 0 {
			return 0, false
		}
		token := strings.Trim(fields[0], "[]*")
		v, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

type feedbackSection int

const (
	sectionNone feedbackSection = iota
	sectionSummary
	sectionStrengths
	sectionImprovements
)

func sectionFor(heading string) feedbackSection {
	switch strings.ToLower(strings.TrimSpace(heading)) {
	case "consensus feedback", "feedback":
		return sectionSummary
	case "strengths":
		return sectionStrengths
	case "areas for improvement", "improvements":
		return sectionImprovements
	default:
		return sectionNone
	}
}

// ParseFeedback splits the arbiter's response into its feedback, strengths
// and improvement sections. Missing headings leave fields empty.
func ParseFeedback(text string) domain.ConsensusFeedback {
	var (
		fb      domain.ConsensusFeedback
		summary []string
		current = sectionNone
	)
	add := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		switch current {
		case sectionSummary:
			summary = append(summary, line)
		case sectionStrengths:
			fb.Strengths = append(fb.Strengths, bulletPrefix.ReplaceAllString(line, ""))
		case sectionImprovements:
			fb.Improvements = append(fb.Improvements, bulletPrefix.ReplaceAllString(line, ""))
		}
	}

	for line := range strings.SplitSeq(text, "\n") {
		if m := headingLine.FindStringSubmatch(line); m != nil {
			current = sectionFor(m[1])
			add(m[2])
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			current = sectionNone
			continue
		}
		add(line)
	}
	fb.Summary = strings.Join(summary, " ")
	return fb
}
