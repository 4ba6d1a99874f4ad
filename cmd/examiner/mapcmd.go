package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/grading"
)

func (c *cli) mapCmd() *cobra.Command {
	var in requestFlags
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Align answers with questions using the model and print the records as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.mode = string(domain.AlignmentSemantic)
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

			svc := grading.NewService(oracle, grading.WithTimeout(c.cfg.Grading.Timeout))
			aligned, err := svc.MapAnswers(ctx, req.QuestionPaper, req.AnswerText, req.Hints)
			if errors.Is(err, domain.ErrEvaluationTimeout) {
				return errors.New("mapping questions to answers took too long")
			}
			if err != nil {
				return err
			}
			if aligned == nil {
				aligned = []domain.AlignedQA{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(aligned)
		},
	}
	cmd.Flags().StringVarP(&in.questions, "questions", "q", "", "Question paper text file")
	cmd.Flags().StringVarP(&in.answers, "answers", "a", "", "Extracted answer text file")
	cmd.Flags().BoolVar(&in.markdown, "markdown-hint", false, "Tell the aligner the input is Markdown")
	cmd.Flags().BoolVar(&in.noisy, "noisy-hint", false, "Tell the aligner the input is noisy OCR output")
	return cmd
}
