package frame

import (
	"fmt"
	"strings"
)

// Private TIFF tags written by the CG1D acquisition software.
const (
	TagTimeStamp    uint16 = 65000
	TagDetector     uint16 = 65026
	TagExposureTime uint16 = 65027
	TagApertureVB   uint16 = 65064
	TagApertureVT   uint16 = 65066
	TagApertureHR   uint16 = 65068
	TagApertureHL   uint16 = 65070
)

var fieldTags = map[Field]uint16{
	FieldExposureTime: TagExposureTime,
	FieldDetector:     TagDetector,
	FieldApertureHR:   TagApertureHR,
	FieldApertureHL:   TagApertureHL,
	FieldApertureVT:   TagApertureVT,
	FieldApertureVB:   TagApertureVB,
}

// Tag returns the TIFF tag that stores f.
func (f Field) Tag() uint16 {
	return fieldTags[f]
}

// Profile names the fields an extraction must populate. Fields outside the
// profile are left absent.
type Profile struct {
	Label  string
	Fields []Field
}

var (
	ProfileAll    = Profile{Label: "all", Fields: AllFields}
	ProfileSample = Profile{Label: "sample", Fields: AllFields}
	ProfileOB     = Profile{Label: "ob", Fields: AllFields}
	ProfileDC     = Profile{Label: "dc", Fields: []Field{FieldExposureTime, FieldDetector}}
)

// ProfileFor resolves a label such as "ob" or "dc".
func ProfileFor(label string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "all":
		return ProfileAll, nil
	case "sample":
		return ProfileSample, nil
	case "ob":
		return ProfileOB, nil
	case "dc", "df":
		return ProfileDC, nil
	default:
		return Profile{}, fmt.Errorf("unknown metadata label %q (expected sample, ob, dc or all)", label)
	}
}

// tagText strips the "Name:" prefix the acquisition software prepends to
// ASCII tag values.
func tagText(raw string) string {
	raw = strings.TrimRight(raw, "\x00 \t\r\n")
	if idx := strings.Index(raw, ":"); idx >= 0 {
		return strings.TrimSpace(raw[idx+1:])
	}
	return strings.TrimSpace(raw)
}
