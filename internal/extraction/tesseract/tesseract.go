// Package tesseract extracts answer sheet images with a local Tesseract
// installation. It needs cgo and the Tesseract headers at build time.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/extraction"
)

// Engine implements extraction.Extractor with gosseract. PDFs are rejected;
// callers rasterize them or use the vision extractor.
type Engine struct {
	clientFactory func() *gosseract.Client
	languages     []string
	logger        *slog.Logger
}

var _ extraction.Extractor = (*Engine)(nil)

// New returns an engine recognizing the given Tesseract languages, or the
// installation default when none are given.
func New(languages ...string) *Engine {
	return &Engine{
		clientFactory: gosseract.NewClient,
		languages:     languages,
		logger:        slog.Default().With("component", "extraction", "engine", "tesseract"),
	}
}

// Extract implements extraction.Extractor.
func (e *Engine) Extract(ctx context.Context, path string) (*extraction.Result, error) {
	doc, err := extraction.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	if doc.IsPDF() {
		return nil, fmt.Errorf("%w: tesseract reads images only", extraction.ErrUnsupportedFormat)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(doc.Data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("extract %s: %w", doc.Name, extraction.ErrNoText)
	}

	var confidences []float64
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		confidences = make([]float64, len(boxes))
		for i, b := range boxes {
			confidences[i] = b.Confidence
		}
	} else {
		e.logger.Debug("word boxes unavailable", "file", doc.Name, "error", err)
	}

	res := &extraction.Result{
		Text:       text,
		Confidence: MeanConfidence(confidences),
		Sections:   extraction.ParseSections(text),
		PageCount:  1,
	}
	e.logger.Info("extraction complete",
		"file", doc.Name,
		"confidence", res.Confidence,
		"sections", len(res.Sections))
	return res, nil
}

// MeanConfidence averages per-word confidences (0-100) into a rounded
// percentage. No words means zero confidence.
func MeanConfidence(words []float64) int {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, c := range words {
		sum += c
	}
	return int(math.Round(sum / float64(len(words))))
}
