// Package frameset lists the TIFF files that make up sample and calibration
// frame sets.
package frameset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the radiograph extensions written by the detector.
var DefaultExtensions = []string{"tif", "tiff"}

// Calibration directory names beneath an experiment's raw folder. Dark
// current frames historically live under either "df" or "dc".
const (
	OBDir = "ob"
	DFDir = "df"
	DCDir = "dc"
)

// Enumerate walks every root recursively and returns the files whose
// extension is in extensions, compared case-insensitively. Missing roots are
// skipped; no matches yields an empty slice.
func Enumerate(roots []string, extensions []string) ([]string, error) {
	allowed := extensionSet(extensions)
	seen := make(map[string]struct{})
	out := []string{}

	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		// WalkDir does not follow a symlinked root; walk its target and
		// report paths under the root as given.
		target, err := filepath.EvalSymlinks(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("resolve %s: %w", root, err)
		}
		info, err := os.Stat(target)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			continue
		}

		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if errors.Is(walkErr, fs.ErrNotExist) {
					return nil
				}
				return walkErr
			}
			if d.IsDir() || !allowed.match(path) {
				return nil
			}
			rel, err := filepath.Rel(target, path)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(filepath.Join(root, rel))
			if err != nil {
				return err
			}
			if _, dup := seen[abs]; !dup {
				seen[abs] = struct{}{}
				out = append(out, abs)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

// Samples lists the frames directly inside folder, without recursing.
func Samples(folder string, extensions []string) ([]string, error) {
	allowed := extensionSet(extensions)
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read sample folder: %w", err)
	}
	out := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !allowed.match(entry.Name()) {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(folder, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}

// CalibrationRoots returns the open-beam and dark-current search roots under
// an experiment's raw folder.
func CalibrationRoots(rawDir string) (ob []string, dc []string) {
	if strings.TrimSpace(rawDir) == "" {
		return nil, nil
	}
	return []string{filepath.Join(rawDir, OBDir)},
		[]string{filepath.Join(rawDir, DFDir), filepath.Join(rawDir, DCDir)}
}

// RawDirName is the experiment folder that holds sample, ob, df and dc trees.
const RawDirName = "raw"

// InferRawDir walks up from a sample folder to the nearest ancestor named
// raw, the layout IPTS-<n>/raw/sample/<scan> used at the beamline.
func InferRawDir(sampleFolder string) (string, bool) {
	dir, err := filepath.Abs(strings.TrimSpace(sampleFolder))
	if err != nil || sampleFolder == "" {
		return "", false
	}
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
		if filepath.Base(dir) == RawDirName {
			return dir, true
		}
	}
}

type extSet map[string]struct{}

func extensionSet(extensions []string) extSet {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(extSet, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}

func (s extSet) match(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := s[ext]
	return ok
}
