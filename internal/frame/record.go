package frame

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field identifies one instrument reading carried by a frame.
type Field int

const (
	FieldExposureTime Field = iota
	FieldDetector
	FieldApertureHR
	FieldApertureHL
	FieldApertureVT
	FieldApertureVB

	fieldCount = int(FieldApertureVB) + 1
)

// AllFields lists every instrument field in tag-table order.
var AllFields = []Field{
	FieldExposureTime,
	FieldDetector,
	FieldApertureHR,
	FieldApertureHL,
	FieldApertureVT,
	FieldApertureVB,
}

// String returns the field's JSON/log name.
func (f Field) String() string {
	switch f {
	case FieldExposureTime:
		return "exposure_time"
	case FieldDetector:
		return "detector"
	case FieldApertureHR:
		return "aperture_hr"
	case FieldApertureHL:
		return "aperture_hl"
	case FieldApertureVT:
		return "aperture_vt"
	case FieldApertureVB:
		return "aperture_vb"
	default:
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
}

// Value is a single optional metadata reading. The zero Value is absent.
type Value struct {
	Raw     string
	Number  float64
	Numeric bool
	present bool
}

// TextValue builds a Value from a tag string, detecting numeric content.
func TextValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	v := Value{Raw: raw, present: true}
	if parsed, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
		v.Number = parsed
		v.Numeric = true
	}
	return v
}

// NumberValue builds a numeric Value.
func NumberValue(n float64) Value {
	return Value{
		Raw:     strconv.FormatFloat(n, 'f', -1, 64),
		Number:  n,
		Numeric: true,
		present: true,
	}
}

// Present reports whether the reading was recorded.
func (v Value) Present() bool {
	return v.present
}

// String returns the raw reading or an empty string when absent.
func (v Value) String() string {
	return v.Raw
}

// MarshalJSON emits numbers as JSON numbers, text as strings and absence as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case !v.present:
		return []byte("null"), nil
	case v.Numeric:
		return json.Marshal(v.Number)
	default:
		return json.Marshal(v.Raw)
	}
}

// Record is one file's identity and instrument snapshot.
type Record struct {
	Filename     string    `json:"filename"`
	Timestamp    time.Time `json:"time_stamp"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	ExposureTime Value     `json:"exposure_time"`
	Detector     Value     `json:"detector"`
	ApertureHR   Value     `json:"aperture_hr"`
	ApertureHL   Value     `json:"aperture_hl"`
	ApertureVT   Value     `json:"aperture_vt"`
	ApertureVB   Value     `json:"aperture_vb"`
}

// Field returns the reading for f.
func (r Record) Field(f Field) Value {
	switch f {
	case FieldExposureTime:
		return r.ExposureTime
	case FieldDetector:
		return r.Detector
	case FieldApertureHR:
		return r.ApertureHR
	case FieldApertureHL:
		return r.ApertureHL
	case FieldApertureVT:
		return r.ApertureVT
	case FieldApertureVB:
		return r.ApertureVB
	default:
		return Value{}
	}
}

// SetField stores v under f.
func (r *Record) SetField(f Field, v Value) {
	switch f {
	case FieldExposureTime:
		r.ExposureTime = v
	case FieldDetector:
		r.Detector = v
	case FieldApertureHR:
		r.ApertureHR = v
	case FieldApertureHL:
		r.ApertureHL = v
	case FieldApertureVT:
		r.ApertureVT = v
	case FieldApertureVB:
		r.ApertureVB = v
	}
}

// ExposureKey returns the canonical exposure-time key, or "" when the
// exposure time is absent.
func (r Record) ExposureKey() string {
	v := r.ExposureTime
	if !v.Present() {
		return ""
	}
	if v.Numeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Raw
}

// Instrument returns the record's instrument readings without identity
// fields and without the exposure time.
func (r Record) Instrument() Instrument {
	var in Instrument
	for _, f := range InstrumentFields {
		in.values[f] = r.Field(f)
	}
	return in
}

// InstrumentFields are the fields compared when grouping samples and
// matching open beams.
var InstrumentFields = []Field{
	FieldDetector,
	FieldApertureHR,
	FieldApertureHL,
	FieldApertureVT,
	FieldApertureVB,
}

// DarkCurrentFields are the fields compared when matching dark-current frames.
var DarkCurrentFields = []Field{FieldDetector}

// Instrument is the comparison subset of a Record.
type Instrument struct {
	values [fieldCount]Value
}

// Get returns the reading for f.
func (in Instrument) Get(f Field) Value {
	if f < 0 || int(f) >= len(in.values) {
		return Value{}
	}
	return in.values[f]
}

// String renders the present fields as name=value pairs.
func (in Instrument) String() string {
	parts := make([]string, 0, len(AllFields))
	for _, f := range AllFields {
		if v := in.Get(f); v.Present() {
			parts = append(parts, f.String()+"="+v.Raw)
		}
	}
	return strings.Join(parts, " ")
}

// MarshalJSON emits the present readings keyed by field name.
func (in Instrument) MarshalJSON() ([]byte, error) {
	out := make(map[string]Value, len(InstrumentFields))
	for _, f := range InstrumentFields {
		if v := in.values[f]; v.Present() {
			out[f.String()] = v
		}
	}
	return json.Marshal(out)
}
