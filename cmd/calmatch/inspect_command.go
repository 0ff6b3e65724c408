package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"calmatch/internal/frame"
	"calmatch/internal/frameset"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var label string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect <file|dir>...",
		Short: "Show the metadata calmatch reads from frames",
		Long: `Extracts the exposure time, detector and slit apertures from each TIFF frame.
Directories are walked recursively. Frames missing a field required by --label
are reported on stderr and left out of the table.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			profile, err := frame.ProfileFor(label)
			if err != nil {
				return err
			}

			paths, err := collectFrames(args, cfg.Matching.Extensions)
			if err != nil {
				return err
			}
			records, failures := frame.ExtractAll(cmd.Context(), paths, profile, cfg.Matching.ExtractWorkers)
			for _, failure := range failures {
				if !frame.IsExtractionError(failure) {
					return failure
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", failure)
			}

			if jsonOutput {
				if records == nil {
					records = []frame.Record{}
				}
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No readable frames")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecords(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "all", "Field set to require: all, sample, ob or dc")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")
	return cmd
}

func collectFrames(args []string, extensions []string) ([]string, error) {
	var files, dirs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", arg, err)
		}
		if info.IsDir() {
			dirs = append(dirs, arg)
			continue
		}
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, abs)
	}
	if len(dirs) > 0 {
		found, err := frameset.Enumerate(dirs, extensions)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func renderRecords(records []frame.Record) string {
	headers := []string{"File", "Time", "Exposure", "Detector", "HR", "HL", "VT", "VB"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			filepath.Base(r.Filename),
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
		}
		for _, f := range frame.AllFields {
			row = append(row, valueOrDash(r.Field(f)))
		}
		rows = append(rows, row)
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight}
	return renderTable(headers, rows, aligns)
}

func valueOrDash(v frame.Value) string {
	if !v.Present() || strings.TrimSpace(v.Raw) == "" {
		return "-"
	}
	return v.Raw
}
