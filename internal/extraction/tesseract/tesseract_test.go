package tesseract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/extraction"
)

func TestMeanConfidence(t *testing.T) {
	tests := []struct {
		name  string
		words []float64
		want  int
	}{
		{name: "no words", want: 0},
		{name: "single", words: []float64{91.4}, want: 91},
		{name: "rounded mean", words: []float64{90, 85, 80.5}, want: 85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeanConfidence(tt.words))
		})
	}
}

func TestExtractRejectsPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	_, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, extraction.ErrUnsupportedFormat)
}
