package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"calmatch/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent matching runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			store, err := ctx.historyStore()
			if err != nil {
				return err
			}
			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				out := make([]runView, 0, len(runs))
				for _, run := range runs {
					out = append(out, newRunView(run))
				}
				return writeJSON(cmd, out)
			}
			if len(runs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded in %s\n", store.Path())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run (a unique id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			store, err := ctx.historyStore()
			if err != nil {
				return err
			}
			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
}

type runView struct {
	ID                 string     `json:"id"`
	SampleFolder       string     `json:"sample_folder"`
	Status             string     `json:"status"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	SampleCount        int        `json:"sample_count"`
	ConfigurationCount int        `json:"configuration_count"`
	MatchedOB          int        `json:"matched_ob"`
	MatchedDC          int        `json:"matched_dc"`
	SkippedFrames      int        `json:"skipped_frames"`
	DiagnosticsPath    string     `json:"diagnostics_path,omitempty"`
	Error              string     `json:"error,omitempty"`
}

func newRunView(run *history.Run) runView {
	return runView{
		ID:                 run.ID,
		SampleFolder:       run.SampleFolder,
		Status:             string(run.Status),
		StartedAt:          run.StartedAt,
		FinishedAt:         run.FinishedAt,
		SampleCount:        run.SampleCount,
		ConfigurationCount: run.ConfigurationCount,
		MatchedOB:          run.MatchedOB,
		MatchedDC:          run.MatchedDC,
		SkippedFrames:      run.SkippedFrames,
		DiagnosticsPath:    run.DiagnosticsPath,
		Error:              run.ErrorMessage,
	}
}

func renderRuns(runs []*history.Run) string {
	headers := []string{"Run", "Started", "Status", "Samples", "OB", "DC", "Configs", "Folder"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			string(run.Status),
			strconv.Itoa(run.SampleCount),
			strconv.Itoa(run.MatchedOB),
			strconv.Itoa(run.MatchedDC),
			strconv.Itoa(run.ConfigurationCount),
			run.SampleFolder,
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
	return renderTable(headers, rows, aligns)
}

func printRun(out io.Writer, run *history.Run) {
	fmt.Fprintf(out, "Run:            %s\n", run.ID)
	fmt.Fprintf(out, "Sample folder:  %s\n", run.SampleFolder)
	fmt.Fprintf(out, "Status:         %s\n", run.Status)
	fmt.Fprintf(out, "Started:        %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Duration:       %s\n", run.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(out, "Samples:        %d\n", run.SampleCount)
	fmt.Fprintf(out, "Configurations: %d\n", run.ConfigurationCount)
	fmt.Fprintf(out, "Open beams:     %d of %d\n", run.MatchedOB, run.OBCandidates)
	fmt.Fprintf(out, "Dark currents:  %d of %d\n", run.MatchedDC, run.DCCandidates)
	if run.SkippedFrames > 0 {
		fmt.Fprintf(out, "Skipped frames: %d\n", run.SkippedFrames)
	}
	if run.DiagnosticsPath != "" {
		fmt.Fprintf(out, "Diagnostics:    %s\n", run.DiagnosticsPath)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:          %s\n", run.ErrorMessage)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
