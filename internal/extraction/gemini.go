package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

const extractionPrompt = `Extract all handwritten text exactly as it appears in this document.
Keep the structure, layout and alignment, and do not skip pages.
Leave out struck-through or overwritten text.
Return only the plain text of the document as it would be read naturally.
Do not invent content.
If this is an answer sheet or exam, keep questions and answers separate.`

// Vision confidence is estimated from output length: a base value plus one
// point per thousand characters, capped.
const (
	visionBaseConfidence = 70
	visionMaxConfidence  = 95
)

// GeminiExtractor reads documents with a multimodal oracle. PDFs are sent
// whole; images are sent as a single page.
type GeminiExtractor struct {
	oracle llm.Oracle
	logger *slog.Logger
}

var _ Extractor = (*GeminiExtractor)(nil)

// NewGeminiExtractor returns an extractor backed by oracle.
func NewGeminiExtractor(oracle llm.Oracle) *GeminiExtractor {
	return &GeminiExtractor{
		oracle: oracle,
		logger: slog.Default().With("component", "extraction", "engine", "gemini"),
	}
}

// Extract implements Extractor.
func (g *GeminiExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return g.ExtractDocument(ctx, doc)
}

// ExtractDocument extracts an already loaded document.
func (g *GeminiExtractor) ExtractDocument(ctx context.Context, doc Document) (*Result, error) {
	pages := 1
	if doc.IsPDF() {
		n, err := CountPDFPages(ctx, doc.Data)
		if err != nil {
			g.logger.Warn("could not count pdf pages", "file", doc.Name, "error", err)
		} else {
			pages = n
		}
	}
	g.logger.Info("extracting document",
		"file", doc.Name,
		"mime_type", doc.MIMEType,
		"size_kb", len(doc.Data)/1024,
		"pages", pages)

	text, err := g.oracle.Generate(ctx, extractionPrompt,
		llm.WithOperation(transport.OpExtraction),
		llm.WithAttachment(doc.MIMEType, doc.Data),
	)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", doc.Name, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("extract %s: %w", doc.Name, ErrNoText)
	}

	res := &Result{
		Text:       text,
		Confidence: VisionConfidence(text),
		Sections:   ParseSections(text),
		PageCount:  pages,
	}
	g.logger.Info("extraction complete",
		"file", doc.Name,
		"chars", utf8.RuneCountInString(text),
		"sections", len(res.Sections))
	return res, nil
}

// VisionConfidence estimates the confidence of oracle-extracted text.
func VisionConfidence(text string) int {
	return min(visionMaxConfidence, visionBaseConfidence+utf8.RuneCountInString(text)/1000)
}
