package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zatekoja/clinicalrag/internal/evaluation"
)

var (
	groundTruthPath string
	reportPath      string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score diagnoses and retrieval against the ground-truth cases",
	Args:  cobra.NoArgs,
	RunE:  runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&groundTruthPath, "ground-truth", "", "JSON ground-truth file (defaults to the built-in set)")
	evaluateCmd.Flags().StringVarP(&reportPath, "output", "o", "", "metrics output path")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg := container.Config

	path := cfg.Evaluation.GroundTruthPath
	if groundTruthPath != "" {
		path = groundTruthPath
	}
	cases, err := evaluation.LoadGroundTruthOrDefault(path)
	if err != nil {
		return err
	}
	if err := evaluation.ValidateGroundTruth(cases); err != nil {
		return err
	}

	svc, err := container.OpenDiagnosisService(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open case index (run embed first): %w", err)
	}

	runner := evaluation.NewRunner(svc, container.Records, evaluation.RunnerConfig{
		K:              cfg.Evaluation.PrecisionK,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.Embedding.Model,
	})
	report, err := runner.Run(cmd.Context(), cases)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	out := cfg.Evaluation.OutputPath
	if reportPath != "" {
		out = reportPath
	}
	if err := evaluation.WriteReport(out, report); err != nil {
		return err
	}

	printReport(cmd, report)
	successStyle.Fprintf(cmd.OutOrStdout(), "\nMetrics saved to %s\n", out)
	return nil
}

func printReport(cmd *cobra.Command, report *evaluation.Report) {
	w := cmd.OutOrStdout()
	headerStyle.Fprintln(w, "Evaluation results")
	fmt.Fprintf(w, "Diagnosis Accuracy: %d/%d = %.2f%%\n", report.CorrectDiagnoses, report.TotalCases, report.DiagnosisAccuracy*100)
	fmt.Fprintf(w, "Keyword Match: %.2f%%\n", report.KeywordMatch*100)
	fmt.Fprintf(w, "Precision@%d: %.2f%%\n", report.K, report.PrecisionAtK*100)
	if report.Failed > 0 {
		fmt.Fprintf(w, "Failed queries: %d\n", report.Failed)
	}
}
