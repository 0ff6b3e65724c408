package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"calmatch/internal/frame"
)

// TIFFTag is one private tag written into a synthetic frame.
type TIFFTag struct {
	ID     uint16
	Text   string
	Double float64
	Short  uint16
	double bool
	short  bool
}

// TextTag builds an ASCII tag.
func TextTag(id uint16, text string) TIFFTag {
	return TIFFTag{ID: id, Text: text}
}

// ShortTag builds a SHORT tag. A baseline tag with the same id is replaced.
func ShortTag(id uint16, value uint16) TIFFTag {
	return TIFFTag{ID: id, Short: value, short: true}
}

// DoubleTag builds a DOUBLE tag.
func DoubleTag(id uint16, value float64) TIFFTag {
	return TIFFTag{ID: id, Double: value, double: true}
}

// Frame describes a synthetic radiograph. Empty strings omit the tag.
type Frame struct {
	Exposure  string
	Detector  string
	HR        string
	HL        string
	VT        string
	VB        string
	Timestamp time.Time
}

// Tags renders the frame the way the acquisition software stores it.
func (f Frame) Tags() []TIFFTag {
	var tags []TIFFTag
	add := func(id uint16, name, value string) {
		if value != "" {
			tags = append(tags, TextTag(id, name+":"+value))
		}
	}
	add(frame.TagExposureTime, "ExposureTime", f.Exposure)
	add(frame.TagDetector, "ManufacturerStr", f.Detector)
	add(frame.TagApertureHR, "MotSlitHR.RBV", f.HR)
	add(frame.TagApertureHL, "MotSlitHL.RBV", f.HL)
	add(frame.TagApertureVT, "MotSlitVT.RBV", f.VT)
	add(frame.TagApertureVB, "MotSlitVB.RBV", f.VB)
	if !f.Timestamp.IsZero() {
		secs := float64(f.Timestamp.UnixNano()) / 1e9
		tags = append(tags, DoubleTag(frame.TagTimeStamp, secs))
	}
	return tags
}

// WriteFrame writes a synthetic radiograph to path.
func WriteFrame(t testing.TB, path string, f Frame) string {
	t.Helper()
	return WriteTIFF(t, path, f.Tags()...)
}

// WriteTIFF writes a 1x1 8-bit grayscale little-endian TIFF carrying the
// provided private tags.
func WriteTIFF(t testing.TB, path string, tags ...TIFFTag) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, EncodeTIFF(tags...), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteFile writes size bytes of filler to path.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type ifdEntry struct {
	id    uint16
	typ   uint16
	count uint32
	data  []byte
}

const (
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

// EncodeTIFF returns the bytes of a minimal baseline TIFF with the given
// private tags appended to the first IFD.
func EncodeTIFF(tags ...TIFFTag) []byte {
	le := binary.LittleEndian
	short := func(id uint16, v uint16) ifdEntry {
		b := make([]byte, 2)
		le.PutUint16(b, v)
		return ifdEntry{id: id, typ: typeShort, count: 1, data: b}
	}
	long := func(id uint16, v uint32) ifdEntry {
		b := make([]byte, 4)
		le.PutUint32(b, v)
		return ifdEntry{id: id, typ: typeLong, count: 1, data: b}
	}

	entries := []ifdEntry{
		short(256, 1), // ImageWidth
		short(257, 1), // ImageLength
		short(258, 8), // BitsPerSample
		short(259, 1), // Compression: none
		short(262, 1), // PhotometricInterpretation: BlackIsZero
		long(273, 0),  // StripOffsets, patched below
		short(277, 1), // SamplesPerPixel
		short(278, 1), // RowsPerStrip
		long(279, 1),  // StripByteCounts
	}
	for _, tag := range tags {
		if tag.short {
			entry := short(tag.ID, tag.Short)
			replaced := false
			for i := range entries {
				if entries[i].id == tag.ID {
					entries[i] = entry
					replaced = true
				}
			}
			if !replaced {
				entries = append(entries, entry)
			}
			continue
		}
		if tag.double {
			b := make([]byte, 8)
			le.PutUint64(b, math.Float64bits(tag.Double))
			entries = append(entries, ifdEntry{id: tag.ID, typ: typeDouble, count: 1, data: b})
			continue
		}
		data := append([]byte(tag.Text), 0)
		entries = append(entries, ifdEntry{id: tag.ID, typ: typeASCII, count: uint32(len(data)), data: data})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	ifdSize := 2 + 12*len(entries) + 4
	pixelOffset := uint32(8 + ifdSize)
	for i := range entries {
		if entries[i].id == 273 {
			le.PutUint32(entries[i].data, pixelOffset)
		}
	}

	var extra bytes.Buffer
	extra.WriteByte(0x80) // pixel
	extra.WriteByte(0)    // word alignment

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, le, uint16(42))
	_ = binary.Write(&buf, le, uint32(8))
	_ = binary.Write(&buf, le, uint16(len(entries)))
	for _, entry := range entries {
		_ = binary.Write(&buf, le, entry.id)
		_ = binary.Write(&buf, le, entry.typ)
		_ = binary.Write(&buf, le, entry.count)
		if len(entry.data) <= 4 {
			field := make([]byte, 4)
			copy(field, entry.data)
			buf.Write(field)
			continue
		}
		offset := pixelOffset + uint32(extra.Len())
		_ = binary.Write(&buf, le, offset)
		extra.Write(entry.data)
		if extra.Len()%2 != 0 {
			extra.WriteByte(0)
		}
	}
	_ = binary.Write(&buf, le, uint32(0)) // no further IFDs
	buf.Write(extra.Bytes())
	return buf.Bytes()
}

// FrameName returns a CG1D-style projection filename.
func FrameName(prefix string, index int) string {
	return fmt.Sprintf("%s_%04d.tiff", prefix, index)
}
