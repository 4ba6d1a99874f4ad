//go:build tesseract

package main

import (
	"github.com/Sujitsarkar6112/AI-Examiner/internal/extraction"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/extraction/tesseract"
)

func init() {
	newTesseract = func(languages ...string) extraction.Extractor {
		return tesseract.New(languages...)
	}
}
