package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/extraction"
)

// Extraction engines.
const (
	engineGemini    = "gemini"
	engineTesseract = "tesseract"
)

// newTesseract is set by the tesseract build tag.
var newTesseract func(languages ...string) extraction.Extractor

var errTesseractUnavailable = errors.New("tesseract engine not built in; rebuild with -tags tesseract")

func (c *cli) extractCmd() *cobra.Command {
	var (
		engine    string
		languages []string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract the text of a scanned answer sheet",
		Long: `Extracts text from a PDF or image. The gemini engine reads PDFs and images
through the model; the tesseract engine runs OCR locally on images only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var ex extraction.Extractor
			switch strings.ToLower(engine) {
			case engineGemini:
				oracle, closeOracle, err := c.oracle(ctx)
				if err != nil {
					return err
				}
				defer closeOracle()
				ex = extraction.NewGeminiExtractor(oracle)
			case engineTesseract:
				if newTesseract == nil {
					return errTesseractUnavailable
				}
				ex = newTesseract(languages...)
			default:
				return fmt.Errorf("unknown engine %q (valid: %s, %s)", engine, engineGemini, engineTesseract)
			}

			res, err := ex.Extract(ctx, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(w, res.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "confidence: %d%%, pages: %d, sections: %d\n",
				res.Confidence, res.PageCount, len(res.Sections))
			return nil
		},
	}
	cmd.Flags().StringVarP(&engine, "engine", "e", engineGemini, "Extraction engine: gemini or tesseract")
	cmd.Flags().StringSliceVar(&languages, "lang", []string{"eng"}, "Tesseract languages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result, including sections, as JSON")
	return cmd
}
