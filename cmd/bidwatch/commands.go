package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/bidwatch/internal/extraction"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reclassify every monitored case",
		Long: `Reclassify every open case plus closed cases still inside the
grace window. Per-case failures are reported and do not stop the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, s *session) error {
				report, err := s.domain.Tracking.Sweep(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func diagnoseCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "diagnose [case-id]",
		Short: "Repair cases missing required fields",
		Long: `Run the escalating repair tiers (re-extract, re-download, re-crawl)
for one case, or for every case missing a required field when no case is
given. Unresolved cases are flagged for review.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if dryRun {
					return fmt.Errorf("--dry-run requires a case id")
				}
				return run(func(ctx context.Context, s *session) error {
					report, err := s.domain.Tracking.DiagnoseAll(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), report)
				})
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid case id %q: %w", args[0], err)
			}
			return run(func(ctx context.Context, s *session) error {
				report, err := s.domain.Tracking.Diagnose(ctx, id, dryRun)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the planned tiers without running them")

	return cmd
}

func reclassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify <case-id>",
		Short: "Run the classification pipeline for one case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid case id %q: %w", args[0], err)
			}
			return run(func(ctx context.Context, s *session) error {
				outcome, err := s.domain.Tracking.Reclassify(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), outcome)
			})
		},
	}
}

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage the document skip patterns",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "merge <file>",
		Short: "Merge a YAML skip table into the configured patterns file",
		Long: `Merge the patterns in file into the table in use. Same-named patterns
are replaced and the version advances past both tables. The result is
written back to the configured patterns path when one is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := extraction.LoadPatterns(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, s *session) error {
				if s.cfg.Extraction.PatternsPath == "" {
					return fmt.Errorf("no patterns path configured")
				}
				merged, err := s.domain.Tracking.MergePatterns(ctx, update)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), merged)
			})
		},
	})

	return cmd
}
