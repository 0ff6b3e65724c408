package matching

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"calmatch/internal/frame"
)

// Caps bounds one kind of matched calibration list. Zero values are unbounded.
type Caps struct {
	MaxCount  int
	MaxOffset time.Duration
}

func (c Caps) bounded() bool {
	return c.MaxCount > 0 || c.MaxOffset > 0
}

// Options configures Match.
type Options struct {
	OB Caps
	DC Caps
}

// Match attaches open-beam and dark-current records to every configuration
// whose exposure time and instrument readings they share, then applies the
// optional caps. Records whose exposure time is not in the index are
// ignored. A record may be attached to more than one configuration.
func Match(index *Index, ob, dc []frame.Record, opts Options) {
	if index == nil {
		return
	}
	attach(index, ob, frame.InstrumentFields, (*Configuration).appendOB)
	attach(index, dc, frame.DarkCurrentFields, (*Configuration).appendDC)

	for _, cfg := range index.Configurations() {
		cfg.MatchedOB = applyCaps(cfg, cfg.MatchedOB, opts.OB)
		cfg.MatchedDC = applyCaps(cfg, cfg.MatchedDC, opts.DC)
		if opts.OB.MaxOffset > 0 {
			seconds := opts.OB.MaxOffset.Seconds()
			cfg.SelectedWindow = Window{Before: seconds, After: seconds}
		}
		cfg.ObservedWindow = observedWindow(cfg, cfg.MatchedOB)
	}
}

func attach(index *Index, records []frame.Record, fields []frame.Field, add func(*Configuration, frame.Record)) {
	for _, record := range records {
		exposure := record.ExposureKey()
		if exposure == "" {
			continue
		}
		group, ok := index.group(exposure)
		if !ok {
			continue
		}
		fingerprint := record.Instrument()
		for _, cfg := range group.configs {
			if Matches(cfg.Representative, fingerprint, fields) {
				add(cfg, record)
			}
		}
	}
}

// Offset returns how far t lies outside the configuration's sample time
// range; zero when inside it.
func (c *Configuration) Offset(t time.Time) time.Duration {
	start, end := c.FirstImage.Timestamp, c.LastImage.Timestamp
	switch {
	case t.Before(start):
		return start.Sub(t)
	case t.After(end):
		return t.Sub(end)
	default:
		return 0
	}
}

func applyCaps(cfg *Configuration, records []frame.Record, caps Caps) []frame.Record {
	if !caps.bounded() || len(records) == 0 {
		return records
	}

	type candidate struct {
		pos    int
		offset time.Duration
	}
	candidates := make([]candidate, 0, len(records))
	for i, r := range records {
		offset := cfg.Offset(r.Timestamp)
		if caps.MaxOffset > 0 && offset > caps.MaxOffset {
			continue
		}
		candidates = append(candidates, candidate{pos: i, offset: offset})
	}

	if caps.MaxCount > 0 && len(candidates) > caps.MaxCount {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].offset < candidates[j].offset
		})
		candidates = candidates[:caps.MaxCount]
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].pos < candidates[j].pos
		})
	}

	kept := make([]frame.Record, 0, len(candidates))
	for _, c := range candidates {
		kept = append(kept, records[c.pos])
	}
	return kept
}

func observedWindow(cfg *Configuration, records []frame.Record) Window {
	var before, after []float64
	for _, r := range records {
		switch {
		case r.Timestamp.Before(cfg.FirstImage.Timestamp):
			before = append(before, cfg.FirstImage.Timestamp.Sub(r.Timestamp).Seconds())
		case r.Timestamp.After(cfg.LastImage.Timestamp):
			after = append(after, r.Timestamp.Sub(cfg.LastImage.Timestamp).Seconds())
		}
	}
	w := unsetWindow()
	if len(before) > 0 {
		w.Before = floats.Max(before)
	}
	if len(after) > 0 {
		w.After = floats.Max(after)
	}
	return w
}
