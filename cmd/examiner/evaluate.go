package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

// requestFlags are the inputs shared by evaluate and submit.
type requestFlags struct {
	questions string
	answers   string
	pairs     string
	mode      string
	markdown  bool
	noisy     bool
	user      string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.questions, "questions", "q", "", "Question paper text file")
	cmd.Flags().StringVarP(&f.answers, "answers", "a", "", "Extracted answer text file")
	cmd.Flags().StringVar(&f.pairs, "pairs", "", "JSON file of pre-mapped question/answer pairs")
	cmd.Flags().StringVar(&f.mode, "mode", string(domain.AlignmentStructural), "Alignment mode: structural or semantic")
	cmd.Flags().BoolVar(&f.markdown, "markdown-hint", false, "Tell the semantic aligner the input is Markdown")
	cmd.Flags().BoolVar(&f.noisy, "noisy-hint", false, "Tell the semantic aligner the input is noisy OCR output")
	cmd.Flags().StringVar(&f.user, "user", "", "User the evaluation is stored for")
}

func (f *requestFlags) request() (domain.EvaluationRequest, error) {
	req := domain.EvaluationRequest{
		Mode:   domain.AlignmentMode(f.mode),
		Hints:  domain.AlignmentHints{Markdown: f.markdown, Noisy: f.noisy},
		UserID: f.user,
	}

	var err error
	if req.QuestionPaper, err = readFile(f.questions); err != nil {
		return req, err
	}
	if req.AnswerText, err = readFile(f.answers); err != nil {
		return req, err
	}
	if f.answers != "" {
		req.FileName = filepath.Base(f.answers)
	}
	if f.pairs != "" {
		raw, err := os.ReadFile(f.pairs)
		if err != nil {
			return req, fmt.Errorf("read %s: %w", f.pairs, err)
		}
		if err := json.Unmarshal(raw, &req.Pairs); err != nil {
			return req, fmt.Errorf("parse pairs %s: %w", f.pairs, err)
		}
		if req.FileName == "" {
			req.FileName = filepath.Base(f.pairs)
		}
	}
	return req, req.Validate()
}

func (c *cli) evaluateCmd() *cobra.Command {
	var (
		in     requestFlags
		pretty bool
		out    string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Grade an answer sheet in-process and print the report",
		Example: `  examiner evaluate -q paper.txt -a answers.txt
  examiner evaluate --pairs mapped.json --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := in.request()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			oracle, closeOracle, err := c.oracle(ctx)
			if err != nil {
				return err
			}
			defer closeOracle()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(st)

			res, err := c.newService(oracle, st).Evaluate(ctx, req)
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(res.Markdown), 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			return printMarkdown(cmd.OutOrStdout(), res.Markdown, pretty)
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Render the report for the terminal")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the Markdown report to this file")
	return cmd
}

func printMarkdown(w io.Writer, md string, pretty bool) error {
	if !pretty {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}
