package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
)

// sampleQuestion is asked at the end of the full pipeline.
const sampleQuestion = "Patient with fever, bleeding, and recent travel to West Africa"

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract page text from the raw case-report PDFs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runExtract(cmd)
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Distill extracted pages into structured case records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFilter(cmd)
	},
}

var embedCmd = &cobra.Command{
	Use:     "embed",
	Aliases: []string{"index", "build_index"},
	Short:   "Embed case records and persist the similarity index",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := runEmbed(cmd)
		return err
	},
}

var fullCmd = &cobra.Command{
	Use:   "full",
	Short: "Run extract, filter and embed, then answer a sample question",
	Args:  cobra.NoArgs,
	RunE:  runFull,
}

func init() {
	rootCmd.AddCommand(extractCmd, filterCmd, embedCmd, fullCmd)
}

func runExtract(cmd *cobra.Command) error {
	cfg := container.Config
	headerStyle.Fprintf(cmd.OutOrStdout(), "Extracting PDFs from %s\n", cfg.Paths.RawDir)

	docs, err := container.ExtractionService().ExtractDirectory(cmd.Context(), cfg.Paths.RawDir)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	successStyle.Fprintf(cmd.OutOrStdout(), "Extracted %d documents into %s\n", len(docs), cfg.Paths.ExtractedDir)
	return nil
}

func runFilter(cmd *cobra.Command) error {
	headerStyle.Fprintln(cmd.OutOrStdout(), "Extracting clinical entities")

	svc, err := container.AccumulatorService()
	if err != nil {
		return err
	}
	records, err := svc.ProcessAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("filter failed: %w", err)
	}

	successStyle.Fprintf(cmd.OutOrStdout(), "Saved %d case records into %s\n", len(records), container.Config.Paths.FilteredDir)
	return nil
}

func runEmbed(cmd *cobra.Command) (repositories.CaseSearcher, error) {
	headerStyle.Fprintln(cmd.OutOrStdout(), "Building case index")

	svc, err := container.IndexService(cmd.Context())
	if err != nil {
		return nil, err
	}
	searcher, count, err := svc.BuildIndex(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}

	successStyle.Fprintf(cmd.OutOrStdout(), "Indexed %d cases into %s\n", count, container.Config.Paths.IndexDir)
	return searcher, nil
}

func runFull(cmd *cobra.Command, _ []string) error {
	if err := runExtract(cmd); err != nil {
		return err
	}
	if err := runFilter(cmd); err != nil {
		return err
	}
	searcher, err := runEmbed(cmd)
	if err != nil {
		return err
	}

	return askSample(cmd.Context(), cmd, searcher)
}

func askSample(ctx context.Context, cmd *cobra.Command, searcher repositories.CaseSearcher) error {
	svc, err := container.DiagnosisService(searcher)
	if err != nil {
		return err
	}

	result, err := svc.Diagnose(ctx, sampleQuestion)
	if err != nil {
		return fmt.Errorf("sample query failed: %w", err)
	}

	printQueryResult(cmd.OutOrStdout(), sampleQuestion, result)
	return nil
}
