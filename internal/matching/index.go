package matching

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"calmatch/internal/frame"
)

// Kind selects the open-beam or dark-current side of a configuration.
type Kind string

const (
	KindOB Kind = "ob"
	KindDC Kind = "dc"
)

var (
	// ErrNoSamples is returned when Partition receives no sample records.
	ErrNoSamples = errors.New("no sample records to partition")
	// ErrAmbiguousConfiguration is returned by Single when the samples span
	// more than one acquisition configuration.
	ErrAmbiguousConfiguration = errors.New("samples span more than one acquisition configuration")
)

// Window holds before/after offsets in seconds. NaN means not computed.
type Window struct {
	Before float64
	After  float64
}

func unsetWindow() Window {
	return Window{Before: math.NaN(), After: math.NaN()}
}

// MarshalJSON encodes NaN offsets as null.
func (w Window) MarshalJSON() ([]byte, error) {
	out := map[string]*float64{"before": nil, "after": nil}
	if !math.IsNaN(w.Before) {
		before := w.Before
		out["before"] = &before
	}
	if !math.IsNaN(w.After) {
		after := w.After
		out["after"] = &after
	}
	return json.Marshal(out)
}

// Configuration is a group of samples sharing one exposure time and one
// instrument fingerprint, together with the calibration frames matched to it.
type Configuration struct {
	ID             string
	Exposure       string
	SampleFrames   []frame.Record
	FirstImage     frame.Record
	LastImage      frame.Record
	MatchedOB      []frame.Record
	MatchedDC      []frame.Record
	Representative frame.Instrument
	SelectedWindow Window
	ObservedWindow Window
}

func newConfiguration(id, exposure string, sample, first, last frame.Record) *Configuration {
	return &Configuration{
		ID:             id,
		Exposure:       exposure,
		SampleFrames:   []frame.Record{sample},
		FirstImage:     first,
		LastImage:      last,
		MatchedOB:      []frame.Record{},
		MatchedDC:      []frame.Record{},
		Representative: sample.Instrument(),
		SelectedWindow: unsetWindow(),
		ObservedWindow: unsetWindow(),
	}
}

func (c *Configuration) appendSample(sample, first, last frame.Record) {
	c.SampleFrames = append(c.SampleFrames, sample)
	c.FirstImage = first
	c.LastImage = last
}

func (c *Configuration) appendOB(record frame.Record) {
	c.MatchedOB = append(c.MatchedOB, record)
}

func (c *Configuration) appendDC(record frame.Record) {
	c.MatchedDC = append(c.MatchedDC, record)
}

// Matched returns the calibration records of the given kind.
func (c *Configuration) Matched(kind Kind) []frame.Record {
	if kind == KindDC {
		return c.MatchedDC
	}
	return c.MatchedOB
}

// Filenames returns the matched filenames of the given kind, never nil.
func (c *Configuration) Filenames(kind Kind) []string {
	records := c.Matched(kind)
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Filename)
	}
	return out
}

func orEmpty(records []frame.Record) []frame.Record {
	if records == nil {
		return []frame.Record{}
	}
	return records
}

type configurationJSON struct {
	SampleFrames   []frame.Record   `json:"sample_frames"`
	FirstImage     frame.Record     `json:"first_image"`
	LastImage      frame.Record     `json:"last_image"`
	MatchedOB      []frame.Record   `json:"matched_ob"`
	MatchedDC      []frame.Record   `json:"matched_dc"`
	Representative frame.Instrument `json:"metadata"`
	SelectedWindow Window           `json:"selected_time_window_s"`
	ObservedWindow Window           `json:"observed_time_window_s"`
}

// MarshalJSON encodes the configuration for diagnostic export.
func (c *Configuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(configurationJSON{
		SampleFrames:   c.SampleFrames,
		FirstImage:     c.FirstImage,
		LastImage:      c.LastImage,
		MatchedOB:      orEmpty(c.MatchedOB),
		MatchedDC:      orEmpty(c.MatchedDC),
		Representative: c.Representative,
		SelectedWindow: c.SelectedWindow,
		ObservedWindow: c.ObservedWindow,
	})
}

type exposureGroup struct {
	exposure string
	configs  []*Configuration
}

// Index maps exposure time to its ordered configurations. Both levels keep
// first-seen order.
type Index struct {
	groups     []*exposureGroup
	byExposure map[string]*exposureGroup
}

func newIndex() *Index {
	return &Index{byExposure: make(map[string]*exposureGroup)}
}

func (x *Index) group(exposure string) (*exposureGroup, bool) {
	g, ok := x.byExposure[exposure]
	return g, ok
}

func (x *Index) addGroup(exposure string, first *Configuration) {
	g := &exposureGroup{exposure: exposure, configs: []*Configuration{first}}
	x.groups = append(x.groups, g)
	x.byExposure[exposure] = g
}

// Exposures lists the exposure-time keys in first-seen order.
func (x *Index) Exposures() []string {
	out := make([]string, 0, len(x.groups))
	for _, g := range x.groups {
		out = append(out, g.exposure)
	}
	return out
}

// ConfigurationsFor returns the configurations recorded for one exposure time.
func (x *Index) ConfigurationsFor(exposure string) []*Configuration {
	g, ok := x.byExposure[exposure]
	if !ok {
		return nil
	}
	return g.configs
}

// Configurations returns every configuration, exposure by exposure.
func (x *Index) Configurations() []*Configuration {
	var out []*Configuration
	for _, g := range x.groups {
		out = append(out, g.configs...)
	}
	return out
}

// First returns the first configuration of the first exposure time, or nil
// for an empty index.
func (x *Index) First() *Configuration {
	if x == nil || len(x.groups) == 0 || len(x.groups[0].configs) == 0 {
		return nil
	}
	return x.groups[0].configs[0]
}

// Single returns the only configuration, or ErrAmbiguousConfiguration when
// the samples were split.
func (x *Index) Single() (*Configuration, error) {
	configs := x.Configurations()
	switch len(configs) {
	case 0:
		return nil, ErrNoSamples
	case 1:
		return configs[0], nil
	default:
		labels := make([]string, 0, len(configs))
		for _, c := range configs {
			labels = append(labels, c.Exposure+"/"+c.ID)
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousConfiguration, strings.Join(labels, ", "))
	}
}

// MarshalJSON encodes the index as {exposure: {configID: configuration}} with
// insertion order preserved.
func (x *Index) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range x.groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(g.exposure)
		buf.Write(key)
		buf.WriteString(":{")
		for j, c := range g.configs {
			if j > 0 {
				buf.WriteByte(',')
			}
			id, _ := json.Marshal(c.ID)
			buf.Write(id)
			buf.WriteByte(':')
			body, err := json.Marshal(c)
			if err != nil {
				return nil, fmt.Errorf("encode %s/%s: %w", g.exposure, c.ID, err)
			}
			buf.Write(body)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
