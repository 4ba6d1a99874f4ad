// Package extraction turns scanned answer sheets into plain text for the
// grading pipeline.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrUnsupportedFormat indicates a file type no engine can read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoText indicates that an engine produced no text for a document.
	ErrNoText = errors.New("no text extracted")
)

// MIMEPDF is the media type of PDF documents.
const MIMEPDF = "application/pdf"

var mimeByExt = map[string]string{
	".pdf":  MIMEPDF,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Section is one question/answer pair recovered from extracted text.
type Section struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Result is the outcome of extracting one document. Confidence is a
// percentage in [0, 100].
type Result struct {
	Text       string    `json:"text"`
	Confidence int       `json:"confidence"`
	Sections   []Section `json:"sections"`
	PageCount  int       `json:"page_count"`
}

// Extractor reads the text of a document on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
}

// Document is a file loaded for extraction.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// IsPDF reports whether the document is a PDF.
func (d Document) IsPDF() bool { return d.MIMEType == MIMEPDF }

// MIMEType returns the media type for path's extension.
func MIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mt, ok := mimeByExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return mt, nil
}

// LoadDocument reads path and detects its media type.
func LoadDocument(path string) (Document, error) {
	mt, err := MIMEType(path)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("read %s: empty file", path)
	}
	return Document{Name: filepath.Base(path), MIMEType: mt, Data: data}, nil
}

const (
	minHeaderLen = 11
	minAnswerLen = 9
)

var (
	questionHeader = regexp.MustCompile(`(?i)^(?:question\b|q[\s\d])`)
	answerHeader   = regexp.MustCompile(`(?i)^(?:answer\b|a\s)`)
	answerLabel    = regexp.MustCompile(`(?i)^answer\s*:\s*`)
)

// ParseSections splits extracted text into question/answer sections.
//
// Lines starting with "Question" or "Q" (for example "Q1." or "Q 2") open a
// section; following lines extend the question until an "Answer" line, after
// which they belong to the answer. Sections without an answer are dropped.
// Text without such headers is paired up paragraph by paragraph instead.
func ParseSections(text string) []Section {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if sections := headedSections(text); len(sections) > 0 {
		return sections
	}
	return paragraphSections(text)
}

func headedSections(text string) []Section {
	var (
		sections []Section
		question strings.Builder
		answer   []string
		inAnswer bool
	)
	flush := func() {
		q := strings.TrimSpace(question.String())
		a := strings.TrimSpace(strings.Join(answer, " "))
		if q != "" && a != "" {
			sections = append(sections, Section{Question: q, Answer: a})
		}
		question.Reset()
		answer = nil
		inAnswer = false
	}

	for raw := range strings.SplitSeq(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case questionHeader.MatchString(line) && len(line) >= minHeaderLen:
			flush()
			question.WriteString(line)
		case answerHeader.MatchString(line) && len(line) >= minAnswerLen:
			inAnswer = true
			if body := answerLabel.ReplaceAllString(line, ""); body != "" {
				answer = append(answer, body)
			}
		case question.Len() == 0:
			// Preamble before the first question.
		case inAnswer:
			answer = append(answer, line)
		default:
			question.WriteString(" ")
			question.WriteString(line)
		}
	}
	flush()
	return sections
}

func paragraphSections(text string) []Section {
	var paragraphs []string
	for p := range strings.SplitSeq(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	sections := make([]Section, 0, len(paragraphs)/2)
	for i := 0; i+1 < len(paragraphs); i += 2 {
		sections = append(sections, Section{
			Question: fmt.Sprintf("Question %d: %s", i/2+1, paragraphs[i]),
			Answer:   paragraphs[i+1],
		})
	}
	return sections
}
