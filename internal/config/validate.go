package config

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.MaxOBCount < 0 {
		return errors.New("matching.max_ob_count must be >= 0")
	}
	if c.Matching.MaxDCCount < 0 {
		return errors.New("matching.max_dc_count must be >= 0")
	}
	if err := ValidateOffsetMinutes("matching.max_ob_offset_minutes", c.Matching.MaxOBOffsetMinutes); err != nil {
		return err
	}
	if err := ValidateOffsetMinutes("matching.max_dc_offset_minutes", c.Matching.MaxDCOffsetMinutes); err != nil {
		return err
	}
	if c.Matching.ExtractWorkers < 0 {
		return errors.New("matching.extract_workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// HasCalibrationRoots reports whether explicit OB/DC roots or a raw folder are configured.
func (c *Config) HasCalibrationRoots() bool {
	return c.Paths.RawDir != "" || len(c.Paths.OBDirs) > 0 || len(c.Paths.DCDirs) > 0
}

// maxOffsetMinutes keeps MinutesDuration inside time.Duration's range.
const maxOffsetMinutes = float64(math.MaxInt64 / int64(time.Minute))

// ValidateOffsetMinutes rejects negative, NaN and out-of-range minute caps.
func ValidateOffsetMinutes(name string, minutes float64) error {
	if math.IsNaN(minutes) || minutes < 0 || minutes > maxOffsetMinutes {
		return fmt.Errorf("%s must be between 0 and %.0f, got %v", name, maxOffsetMinutes, minutes)
	}
	return nil
}
