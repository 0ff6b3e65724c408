package frame_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmatch/internal/frame"
	"calmatch/internal/testsupport"
)

func TestExtractReadsInstrumentTags(t *testing.T) {
	dir := t.TempDir()
	captured := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	path := testsupport.WriteFrame(t, filepath.Join(dir, "sample_0001.tiff"), testsupport.Frame{
		Exposure:  "500.000000",
		Detector:  "Andor",
		HR:        "10.5",
		HL:        "11",
		VT:        "-2.25",
		VB:        "3",
		Timestamp: captured,
	})

	record, err := frame.Extract(path, frame.ProfileSample)
	require.NoError(t, err)

	assert.Equal(t, path, record.Filename)
	assert.True(t, record.Timestamp.Equal(captured), "timestamp %v", record.Timestamp)
	assert.Equal(t, 1, record.Width)
	assert.Equal(t, 1, record.Height)
	assert.Equal(t, "500", record.ExposureKey())
	assert.False(t, record.Detector.Numeric)
	assert.Equal(t, "Andor", record.Detector.Raw)
	assert.InDelta(t, 10.5, record.ApertureHR.Number, 1e-9)
	assert.InDelta(t, -2.25, record.ApertureVT.Number, 1e-9)
}

func TestExtractDCProfileOmitsApertures(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteFrame(t, filepath.Join(dir, "dc_0001.tif"), testsupport.Frame{
		Exposure: "500",
		Detector: "Andor",
	})

	record, err := frame.Extract(path, frame.ProfileDC)
	require.NoError(t, err)
	assert.True(t, record.ExposureTime.Present())
	assert.True(t, record.Detector.Present())
	assert.False(t, record.ApertureHR.Present())
	assert.False(t, record.ApertureVB.Present())
}

func TestExtractFallsBackToModTime(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteFrame(t, filepath.Join(dir, "ob_0001.tif"), testsupport.Frame{
		Exposure: "500",
		Detector: "Andor",
	})
	mtime := time.Date(2023, 11, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	record, err := frame.Extract(path, frame.ProfileDC)
	require.NoError(t, err)
	assert.True(t, record.Timestamp.Equal(mtime))
}

func TestExtractMissingExposureFails(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteFrame(t, filepath.Join(dir, "bad.tiff"), testsupport.Frame{Detector: "Andor"})

	_, err := frame.Extract(path, frame.ProfileDC)
	require.Error(t, err)
	assert.True(t, errors.Is(err, frame.ErrMissingTag))

	var extractErr *frame.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, "exposure_time", extractErr.Field)
}

func TestExtractRejectsNonTIFF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.tiff")
	testsupport.WriteFile(t, path, 64)

	_, err := frame.Extract(path, frame.ProfileAll)
	require.Error(t, err)
	assert.True(t, errors.Is(err, frame.ErrNotTIFF))
	assert.True(t, frame.IsExtractionError(err))
}

func TestExtractNumericTagTypes(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteTIFF(t, filepath.Join(dir, "numeric.tiff"),
		testsupport.DoubleTag(frame.TagExposureTime, 250),
		testsupport.TextTag(frame.TagDetector, "ManufacturerStr:Andor"),
	)

	record, err := frame.Extract(path, frame.ProfileDC)
	require.NoError(t, err)
	assert.True(t, record.ExposureTime.Numeric)
	assert.Equal(t, "250", record.ExposureKey())
}

func TestExtractIgnoresUnsupportedSampleFormats(t *testing.T) {
	dir := t.TempDir()
	frameTags := testsupport.Frame{
		Exposure: "30", Detector: "Andor", HR: "10", HL: "10", VT: "8", VB: "8",
	}.Tags()

	for name, sampleFormat := range map[string]uint16{"float": 3, "signed": 2} {
		t.Run(name, func(t *testing.T) {
			tags := append([]testsupport.TIFFTag{
				testsupport.ShortTag(258, 32),           // BitsPerSample
				testsupport.ShortTag(339, sampleFormat), // SampleFormat
			}, frameTags...)
			path := testsupport.WriteTIFF(t, filepath.Join(dir, name+".tiff"), tags...)

			record, err := frame.Extract(path, frame.ProfileSample)
			require.NoError(t, err)
			assert.Equal(t, "30", record.ExposureKey())
			assert.Equal(t, "Andor", record.Detector.Raw)
			assert.Zero(t, record.Width)
			assert.Zero(t, record.Height)
		})
	}
}

func TestExtractAllPreservesOrderAndSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		f := testsupport.Frame{Exposure: "500", Detector: "Andor"}
		if i == 2 {
			f.Exposure = ""
		}
		paths = append(paths, testsupport.WriteFrame(t, filepath.Join(dir, testsupport.FrameName("ob", i)), f))
	}

	records, failures := frame.ExtractAll(context.Background(), paths, frame.ProfileDC, 3)
	require.Len(t, failures, 1)
	require.Len(t, records, 5)
	assert.True(t, errors.Is(failures[0], frame.ErrMissingTag))

	want := append(append([]string{}, paths[:2]...), paths[3:]...)
	for i, record := range records {
		assert.Equal(t, want[i], record.Filename)
	}
}

func TestExtractAllHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteFrame(t, filepath.Join(dir, "ob_0001.tiff"), testsupport.Frame{Exposure: "1", Detector: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, failures := frame.ExtractAll(ctx, []string{path}, frame.ProfileDC, 1)
	assert.Empty(t, records)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], context.Canceled)
}

func TestProfileFor(t *testing.T) {
	p, err := frame.ProfileFor("DF")
	require.NoError(t, err)
	assert.Equal(t, "dc", p.Label)

	_, err = frame.ProfileFor("flat")
	assert.Error(t, err)
}

func TestTextValueDetectsNumbers(t *testing.T) {
	assert.True(t, frame.TextValue(" 12.5 ").Numeric)
	assert.False(t, frame.TextValue("Andor iKon").Numeric)
	assert.False(t, frame.TextValue("NaN").Numeric)
	assert.False(t, frame.Value{}.Present())
}

func TestInstrumentStringListsPresentFields(t *testing.T) {
	var r frame.Record
	r.SetField(frame.FieldExposureTime, frame.TextValue("30"))
	r.SetField(frame.FieldDetector, frame.TextValue("Andor"))
	r.SetField(frame.FieldApertureVB, frame.NumberValue(8))

	assert.Equal(t, "detector=Andor aperture_vb=8", r.Instrument().String())
}
