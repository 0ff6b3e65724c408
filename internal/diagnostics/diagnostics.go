// Package diagnostics exports the metadata of a run that could not find open
// beams or dark currents, so the operator can see which tags disagreed.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"calmatch/internal/fileutil"
	"calmatch/internal/frame"
	"calmatch/internal/matching"
)

// FileSuffix is appended to the sample folder name to form the export filename.
const FileSuffix = "_sample_ob_dc_metadata.json"

// Report is the exported document.
type Report struct {
	// Sample is the first sample record in scan order, nil when no sample
	// could be read.
	Sample         *frame.Record   `json:"sample"`
	OB             []frame.Record  `json:"ob"`
	DC             []frame.Record  `json:"dc"`
	Configurations *matching.Index `json:"configurations"`
}

// NewReport builds a report from the extracted frames and the matched index.
func NewReport(samples, ob, dc []frame.Record, index *matching.Index) Report {
	report := Report{
		OB:             nonNil(ob),
		DC:             nonNil(dc),
		Configurations: index,
	}
	if len(samples) > 0 {
		first := samples[0]
		report.Sample = &first
	}
	return report
}

// Path returns <dir>/<sample folder name>_sample_ob_dc_metadata.json.
func Path(dir, sampleFolder string) string {
	name := filepath.Base(filepath.Clean(strings.TrimSpace(sampleFolder)))
	if name == "." || name == string(filepath.Separator) {
		name = "sample"
	}
	return filepath.Join(dir, name+FileSuffix)
}

// Write encodes report as indented JSON at path.
func Write(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write diagnostics %s: %w", path, err)
	}
	return nil
}

func nonNil(records []frame.Record) []frame.Record {
	if records == nil {
		return []frame.Record{}
	}
	return records
}
