package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RawDir) == "" {
		if value, ok := os.LookupEnv("CALMATCH_RAW_DIR"); ok {
			c.Paths.RawDir = strings.TrimSpace(value)
		}
	}
	if c.Paths.RawDir, err = expandPath(strings.TrimSpace(c.Paths.RawDir)); err != nil {
		return fmt.Errorf("paths.raw_dir: %w", err)
	}
	if c.Paths.OBDirs, err = expandPaths(c.Paths.OBDirs); err != nil {
		return fmt.Errorf("paths.ob_dirs: %w", err)
	}
	if c.Paths.DCDirs, err = expandPaths(c.Paths.DCDirs); err != nil {
		return fmt.Errorf("paths.dc_dirs: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DiagnosticsDir) == "" {
		c.Paths.DiagnosticsDir = defaultDiagnosticsDir
	}
	if c.Paths.DiagnosticsDir, err = expandPath(c.Paths.DiagnosticsDir); err != nil {
		return fmt.Errorf("paths.diagnostics_dir: %w", err)
	}
	return nil
}

func expandPaths(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		expanded, err := expandPath(value)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return out, nil
}

func (c *Config) normalizeMatching() {
	exts := make([]string, 0, len(c.Matching.Extensions))
	seen := make(map[string]struct{}, len(c.Matching.Extensions))
	for _, ext := range c.Matching.Extensions {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	c.Matching.Extensions = exts
	if c.Matching.ExtractWorkers == 0 {
		c.Matching.ExtractWorkers = defaultExtractWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
