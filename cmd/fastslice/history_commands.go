package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fastslice/internal/api"
	"fastslice/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded slicing runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("run history is disabled (history.enabled = false)")
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					out := api.RunListResponse{Runs: make([]api.RunSummary, 0, len(runs))}
					for _, run := range runs {
						out.Runs = append(out.Runs, api.FromRun(run, nil))
					}
					return writeJSON(cmd, out)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						string(run.Status),
						run.Source,
						strconv.Itoa(run.RangeCount),
						run.Encoder,
						run.VideoPath,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Started", "Status", "Source", "Ranges", "Encoder", "Video"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
					"",
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and the clips it produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				artifacts, err := store.Artifacts(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, api.FromRun(*run, artifacts))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:       %s\n", run.ID)
				fmt.Fprintf(out, "Status:    %s\n", run.Status)
				fmt.Fprintf(out, "Source:    %s\n", run.Source)
				fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
				if !run.FinishedAt.IsZero() {
					fmt.Fprintf(out, "Finished:  %s\n", run.FinishedAt.Local().Format(time.RFC3339))
				}
				fmt.Fprintf(out, "Video:     %s\n", run.VideoPath)
				fmt.Fprintf(out, "Subtitles: %s\n", run.SubtitlePath)
				fmt.Fprintf(out, "Output:    %s\n", run.OutputDir)
				if run.Encoder != "" {
					fmt.Fprintf(out, "Encoder:   %s\n", run.Encoder)
				}
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", run.ErrorMessage)
				}
				if len(artifacts) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(artifacts))
				for _, a := range artifacts {
					rows = append(rows, []string{strconv.Itoa(a.RangeIndex), a.Label, yesNo(a.Precise), a.VideoPath, a.SubtitlePath})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Range", "Precise", "Video", "Subtitles"}, rows, []columnAlignment{alignRight}, ""))
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove runs started before this age")
	return cmd
}
