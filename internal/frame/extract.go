package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rwcarlsen/goexif/tiff"
	xtiff "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds ExtractAll when the caller passes a non-positive
// worker count.
const DefaultWorkers = 8

// Extract reads one frame's identity and the profile's instrument fields.
func Extract(path string, profile Profile) (Record, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Record{}, &ExtractionError{Path: path, Err: err}
	}

	file, err := os.Open(absPath)
	if err != nil {
		return Record{}, &ExtractionError{Path: absPath, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Record{}, &ExtractionError{Path: absPath, Err: err}
	}

	decoded, err := tiff.Decode(file)
	if err != nil {
		return Record{}, &ExtractionError{Path: absPath, Err: fmt.Errorf("%w: %v", ErrNotTIFF, err)}
	}

	tags := indexTags(decoded)
	record := Record{
		Filename:  absPath,
		Timestamp: info.ModTime().UTC(),
	}
	// Dimensions are informational; float and signed sample formats have
	// no image.Config in x/image and keep 0x0.
	if _, err := file.Seek(0, io.SeekStart); err == nil {
		if cfg, err := xtiff.DecodeConfig(file); err == nil {
			record.Width, record.Height = cfg.Width, cfg.Height
		}
	}
	if tag, ok := tags[TagTimeStamp]; ok {
		if ts, ok := tagTime(tag); ok {
			record.Timestamp = ts
		}
	}

	for _, field := range profile.Fields {
		tag, ok := tags[field.Tag()]
		if !ok {
			return Record{}, &ExtractionError{Path: absPath, Field: field.String(), Err: ErrMissingTag}
		}
		value, err := tagValue(tag)
		if err != nil {
			return Record{}, &ExtractionError{Path: absPath, Field: field.String(), Err: err}
		}
		record.SetField(field, value)
	}
	return record, nil
}

// ExtractAll extracts every path in parallel and returns the successful
// records in input order. Failed files are reported separately and left out.
func ExtractAll(ctx context.Context, paths []string, profile Profile, workers int) ([]Record, []error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	records := make([]Record, len(paths))
	failures := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i], failures[i] = Extract(path, profile)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, []error{err}
	}

	out := make([]Record, 0, len(paths))
	var errs []error
	for i := range paths {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		out = append(out, records[i])
	}
	return out, errs
}

func indexTags(t *tiff.Tiff) map[uint16]*tiff.Tag {
	out := make(map[uint16]*tiff.Tag)
	if t == nil {
		return out
	}
	for _, dir := range t.Dirs {
		for _, tag := range dir.Tags {
			if _, seen := out[tag.Id]; !seen {
				out[tag.Id] = tag
			}
		}
	}
	return out
}

func tagValue(tag *tiff.Tag) (Value, error) {
	switch tag.Format() {
	case tiff.StringVal:
		raw, err := tag.StringVal()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformedTag, err)
		}
		text := tagText(raw)
		if text == "" {
			return Value{}, ErrMissingTag
		}
		return TextValue(text), nil
	case tiff.IntVal:
		n, err := tag.Int64(0)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformedTag, err)
		}
		return NumberValue(float64(n)), nil
	case tiff.FloatVal:
		f, err := tag.Float(0)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformedTag, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("%w: non-finite value", ErrMalformedTag)
		}
		return NumberValue(f), nil
	case tiff.RatVal:
		num, den, err := tag.Rat2(0)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformedTag, err)
		}
		if den == 0 {
			return Value{}, fmt.Errorf("%w: zero denominator", ErrMalformedTag)
		}
		return NumberValue(float64(num) / float64(den)), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported tag type %d", ErrMalformedTag, tag.Type)
	}
}

func tagTime(tag *tiff.Tag) (time.Time, bool) {
	value, err := tagValue(tag)
	if err != nil || !value.Numeric || value.Number <= 0 {
		return time.Time{}, false
	}
	secs, frac := math.Modf(value.Number)
	return time.Unix(int64(secs), int64(frac*1e9)).UTC(), true
}

// IsExtractionError reports whether err came from a per-file extraction.
func IsExtractionError(err error) bool {
	var extractErr *ExtractionError
	return errors.As(err, &extractErr)
}
