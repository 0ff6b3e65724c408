package frameset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmatch/internal/testsupport"
)

func TestEnumerateRecursesAcrossRoots(t *testing.T) {
	raw := t.TempDir()
	want := []string{
		filepath.Join(raw, "dc", "2024_01", "dc_0001.tif"),
		filepath.Join(raw, "df", "df_0001.TIFF"),
		filepath.Join(raw, "df", "nested", "deeper", "df_0002.tiff"),
	}
	for _, path := range want {
		testsupport.WriteFile(t, path, 8)
	}
	testsupport.WriteFile(t, filepath.Join(raw, "df", "notes.txt"), 8)
	testsupport.WriteFile(t, filepath.Join(raw, "df", "preview.png"), 8)

	_, dcRoots := CalibrationRoots(raw)
	got, err := Enumerate(dcRoots, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)
}

func TestEnumerateMissingRootsYieldEmpty(t *testing.T) {
	raw := t.TempDir()
	obRoots, _ := CalibrationRoots(raw)

	got, err := Enumerate(obRoots, DefaultExtensions)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEnumerateDeduplicatesOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "sub", "ob_0001.tif"), 8)

	got, err := Enumerate([]string{root, filepath.Join(root, "sub")}, []string{".TIF"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSamplesDoesNotRecurse(t *testing.T) {
	folder := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(folder, "ct_0001.tiff"), 8)
	testsupport.WriteFile(t, filepath.Join(folder, "ct_0002.tif"), 8)
	testsupport.WriteFile(t, filepath.Join(folder, "sub", "ct_0003.tiff"), 8)
	require.NoError(t, os.WriteFile(filepath.Join(folder, "log.txt"), []byte("x"), 0o644))

	got, err := Samples(folder, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSamplesMissingFolder(t *testing.T) {
	_, err := Samples(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestCalibrationRootsEmptyRaw(t *testing.T) {
	ob, dc := CalibrationRoots(" ")
	assert.Nil(t, ob)
	assert.Nil(t, dc)
}

func TestInferRawDir(t *testing.T) {
	base := t.TempDir()
	raw := filepath.Join(base, "IPTS-1234", "raw")

	got, ok := InferRawDir(filepath.Join(raw, "sample", "scan_01"))
	require.True(t, ok)
	assert.Equal(t, raw, got)

	_, ok = InferRawDir(filepath.Join(base, "elsewhere", "scan_01"))
	assert.False(t, ok)

	_, ok = InferRawDir("")
	assert.False(t, ok)
}

func TestEnumerateFollowsSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	store := filepath.Join(base, "store", "ob")
	testsupport.WriteFile(t, filepath.Join(store, "run1", "ob_0001.tif"), 8)

	raw := filepath.Join(base, "raw")
	require.NoError(t, os.MkdirAll(raw, 0o755))
	require.NoError(t, os.Symlink(store, filepath.Join(raw, OBDir)))

	obRoots, _ := CalibrationRoots(raw)
	got, err := Enumerate(obRoots, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(raw, OBDir, "run1", "ob_0001.tif")}, got)
}
