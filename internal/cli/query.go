package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
)

const previewLength = 200

var question string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Answer a diagnosis question from the indexed cases",
	Args:  cobra.NoArgs,
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&question, "question", "q", "", "patient presentation to diagnose")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(question) == "" {
		return errors.New("--question is required")
	}

	svc, err := container.OpenDiagnosisService(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open case index (run embed first): %w", err)
	}

	result, err := svc.Diagnose(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	printQueryResult(cmd.OutOrStdout(), question, result)
	return nil
}

func printQueryResult(w io.Writer, q string, result *entities.QueryResult) {
	headerStyle.Fprintf(w, "Question: %s\n\n", q)
	headerStyle.Fprintln(w, "Diagnosis:")
	fmt.Fprintln(w, result.Answer)
	fmt.Fprintln(w)

	headerStyle.Fprintf(w, "Similar cases (%d):\n", len(result.Sources))
	for i, doc := range result.Sources {
		caseStyle.Fprintf(w, "%d. %s\n", i+1, doc.CaseID)
		fmt.Fprintf(w, "   %s\n", preview(doc.Text, previewLength))
	}
}

// preview shortens text to n runes, marking a cut with "...".
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
