package matching

import (
	"fmt"

	"calmatch/internal/frame"
)

// Partition groups sample records into acquisition configurations.
//
// Records are visited in input order. The earliest and latest samples are
// tracked across the whole run (strict comparisons, so the first record
// seen wins ties) and copied onto whichever configuration receives the
// current record. Records without an exposure time must be filtered out by
// the caller; Partition skips them, and they never become the first or last
// sample.
func Partition(samples []frame.Record) (*Index, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	index := newIndex()
	var first, last frame.Record
	seeded := false

	for _, sample := range samples {
		exposure := sample.ExposureKey()
		if exposure == "" {
			continue
		}
		switch {
		case !seeded:
			first, last = sample, sample
			seeded = true
		case sample.Timestamp.Before(first.Timestamp):
			first = sample
		case sample.Timestamp.After(last.Timestamp):
			last = sample
		}
		fingerprint := sample.Instrument()

		group, ok := index.group(exposure)
		if !ok {
			index.addGroup(exposure, newConfiguration("config0", exposure, sample, first, last))
			continue
		}

		placed := false
		for _, cfg := range group.configs {
			if Matches(cfg.Representative, fingerprint, frame.InstrumentFields) {
				cfg.appendSample(sample, first, last)
				placed = true
				break
			}
		}
		if !placed {
			id := fmt.Sprintf("config%d", len(group.configs))
			group.configs = append(group.configs, newConfiguration(id, exposure, sample, first, last))
		}
	}

	if len(index.groups) == 0 {
		return nil, ErrNoSamples
	}
	return index, nil
}
