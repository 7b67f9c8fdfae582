package hash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprint_Stable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.mzspeclib.txt")
	require.NoError(t, os.WriteFile(path, []byte("<mzSpecLib>\nMS:1003186|library format version=1.0\n"), 0o644))

	first, err := Fingerprint(path)
	require.NoError(t, err)

	second, err := Fingerprint(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestFingerprint_DetectsEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.mzspeclib.txt")
	require.NoError(t, os.WriteFile(path, []byte("<mzSpecLib>\n<Spectrum=1>\n"), 0o644))

	before, err := Fingerprint(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("<mzSpecLib>\n<Spectrum=2>\n"), 0o644))

	after, err := Fingerprint(path)
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestID(t *testing.T) {
	require.Equal(t, ID("Foo"), ID("Foo"))
	require.NotEqual(t, ID("Foo"), ID("Bar"))
}
