package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"calmatch/internal/config"
	"calmatch/internal/matching"
	"calmatch/internal/matchrun"
)

type matchFlags struct {
	rawDir      string
	obDirs      []string
	dcDirs      []string
	maxOB       int
	maxOBOffset float64
	maxDC       int
	maxDCOffset float64
	strict      bool
	json        bool
	list        string
	exportPath  string
}

type matchOutput struct {
	RunID           string   `json:"run_id"`
	SampleFolder    string   `json:"sample_folder"`
	Exposure        string   `json:"exposure_time,omitempty"`
	Configuration   string   `json:"configuration,omitempty"`
	Configurations  int      `json:"configuration_count"`
	OB              []string `json:"ob"`
	DC              []string `json:"dc"`
	Skipped         int      `json:"skipped_frames"`
	DiagnosticsPath string   `json:"diagnostics_path,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var flags matchFlags

	cmd := &cobra.Command{
		Use:   "match <sample-folder>",
		Short: "Find the open-beam and dark-current frames matching a sample scan",
		Long: `Reads the exposure time, detector and slit apertures of every frame in the
sample folder, then selects the open-beam (raw/ob) and dark-current (raw/df,
raw/dc) frames acquired with the same settings.

When either list comes back empty the metadata of every frame is written to
<diagnostics_dir>/<folder>_sample_ob_dc_metadata.json and the command exits 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := buildMatchRequest(cmd, cfg, args[0], flags)
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.historyStore()
			if err != nil {
				return err
			}

			res, runErr := matchrun.New(cfg, logger, store).Run(cmd.Context(), req)
			if res == nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			switch {
			case flags.json:
				payload := newMatchOutput(res)
				if runErr != nil {
					payload.Error = runErr.Error()
				}
				if err := writeJSON(cmd, payload); err != nil {
					return err
				}
			case flags.list != "":
				writeLines(out, listFor(res, flags.list))
			default:
				printMatchSummary(out, res, shouldColorize(out))
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&flags.rawDir, "raw", "", "Experiment raw folder holding ob/, df/ and dc/ (inferred from the sample path when unset)")
	cmd.Flags().StringArrayVar(&flags.obDirs, "ob-dir", nil, "Open-beam search root (repeatable, overrides --raw)")
	cmd.Flags().StringArrayVar(&flags.dcDirs, "dc-dir", nil, "Dark-current search root (repeatable, overrides --raw)")
	cmd.Flags().IntVar(&flags.maxOB, "max-ob", 0, "Keep at most N open beams, closest in time first (0 = no limit)")
	cmd.Flags().Float64Var(&flags.maxOBOffset, "max-ob-offset", 0, "Drop open beams acquired more than MIN minutes outside the scan, fractions allowed (0 = no limit)")
	cmd.Flags().IntVar(&flags.maxDC, "max-dc", 0, "Keep at most N dark currents, closest in time first (0 = no limit)")
	cmd.Flags().Float64Var(&flags.maxDCOffset, "max-dc-offset", 0, "Drop dark currents acquired more than MIN minutes outside the scan, fractions allowed (0 = no limit)")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Fail when the sample frames span more than one acquisition configuration")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the result as JSON")
	cmd.Flags().StringVar(&flags.list, "list", "", "Print only the ob or dc filenames, one per line")
	cmd.Flags().StringVar(&flags.exportPath, "export", "", "Always write the metadata report to this path")

	cmd.MarkFlagsMutuallyExclusive("json", "list")
	return cmd
}

func buildMatchRequest(cmd *cobra.Command, cfg *config.Config, folder string, flags matchFlags) (matchrun.Request, error) {
	req := matchrun.RequestFromConfig(cfg, folder)

	if flags.list != "" {
		switch strings.ToLower(flags.list) {
		case string(matching.KindOB), string(matching.KindDC):
		default:
			return req, fmt.Errorf("--list must be ob or dc, got %q", flags.list)
		}
	}

	set := cmd.Flags().Changed
	if set("raw") {
		raw, err := config.ExpandPath(flags.rawDir)
		if err != nil {
			return req, err
		}
		req.RawDir = raw
		req.OBDirs, req.DCDirs = nil, nil
	}
	if len(flags.obDirs) > 0 {
		dirs, err := expandAll(flags.obDirs)
		if err != nil {
			return req, err
		}
		req.OBDirs = dirs
	}
	if len(flags.dcDirs) > 0 {
		dirs, err := expandAll(flags.dcDirs)
		if err != nil {
			return req, err
		}
		req.DCDirs = dirs
	}

	for name, value := range map[string]int{"max-ob": flags.maxOB, "max-dc": flags.maxDC} {
		if value < 0 {
			return req, fmt.Errorf("--%s must not be negative", name)
		}
	}
	for name, value := range map[string]float64{"max-ob-offset": flags.maxOBOffset, "max-dc-offset": flags.maxDCOffset} {
		if err := config.ValidateOffsetMinutes("--"+name, value); err != nil {
			return req, err
		}
	}
	if set("max-ob") {
		req.Options.OB.MaxCount = flags.maxOB
	}
	if set("max-ob-offset") {
		req.Options.OB.MaxOffset = config.MinutesDuration(flags.maxOBOffset)
	}
	if set("max-dc") {
		req.Options.DC.MaxCount = flags.maxDC
	}
	if set("max-dc-offset") {
		req.Options.DC.MaxOffset = config.MinutesDuration(flags.maxDCOffset)
	}
	if set("strict") {
		req.Strict = flags.strict
	}
	if flags.exportPath != "" {
		path, err := config.ExpandPath(flags.exportPath)
		if err != nil {
			return req, err
		}
		req.ExportPath = path
	}
	return req, nil
}

func expandAll(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		expanded, err := config.ExpandPath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return out, nil
}

func newMatchOutput(res *matchrun.Result) matchOutput {
	out := matchOutput{
		RunID:           res.RunID,
		SampleFolder:    res.SampleFolder,
		OB:              nonNilStrings(res.OB),
		DC:              nonNilStrings(res.DC),
		Skipped:         len(res.Skipped),
		DiagnosticsPath: res.DiagnosticsPath,
	}
	if res.Configuration != nil {
		out.Exposure = res.Configuration.Exposure
		out.Configuration = res.Configuration.ID
	}
	if res.Index != nil {
		out.Configurations = len(res.Index.Configurations())
	}
	return out
}

func listFor(res *matchrun.Result, kind string) []string {
	if matching.Kind(strings.ToLower(kind)) == matching.KindDC {
		return res.DC
	}
	return res.OB
}

func printMatchSummary(out io.Writer, res *matchrun.Result, colorize bool) {
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, res.RunID, colorize))
	fmt.Fprintln(out, renderStatusLine("Sample folder", statusInfo, res.SampleFolder, colorize))
	fmt.Fprintln(out, renderStatusLine("Samples", countStatus(res.SampleCount), fmt.Sprintf("%d frames", res.SampleCount), colorize))
	if res.Configuration != nil {
		msg := fmt.Sprintf("%s (exposure %s)", res.Configuration.ID, res.Configuration.Exposure)
		kind := statusOK
		if n := len(res.Index.Configurations()); n > 1 {
			kind = statusWarn
			msg += fmt.Sprintf(", %d configurations found", n)
		}
		fmt.Fprintln(out, renderStatusLine("Configuration", kind, msg, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Open beams", countStatus(len(res.OB)),
		fmt.Sprintf("%d of %d candidates", len(res.OB), res.OBCandidates), colorize))
	fmt.Fprintln(out, renderStatusLine("Dark currents", countStatus(len(res.DC)),
		fmt.Sprintf("%d of %d candidates", len(res.DC), res.DCCandidates), colorize))
	if n := len(res.Skipped); n > 0 {
		fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, fmt.Sprintf("%d unreadable frames (see log)", n), colorize))
	}
	if res.DiagnosticsPath != "" {
		fmt.Fprintln(out, renderStatusLine("Diagnostics", statusInfo, res.DiagnosticsPath, colorize))
	}

	printSection(out, "ob", res.OB)
	printSection(out, "dc", res.DC)
}

func printSection(out io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(out, "\n[%s]\n", title)
	writeLines(out, lines)
}

func writeLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
