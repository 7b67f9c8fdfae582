package text

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/speclib/speclib/errs"
	"github.com/speclib/speclib/spectrum"
)

const twoSpectra = "<mzSpecLib>\n" +
	"MS:1003186|library format version=1.0\n" +
	"MS:1003188|library name=demo\n" +
	"\n" +
	"<Spectrum=1>\n" +
	"MS:1003061|library spectrum name=Foo\n" +
	"[1]MS:1000045|collision energy=30\n" +
	"[1]MS:1000044|dissociation method=MS:1000422|beam-type CID\n" +
	"<Analyte=1>\n" +
	"MS:1000041|charge state=2\n" +
	"<Interpretation=1>\n" +
	"MS:1002357|PSM-level probability=0.99\n" +
	"<Peaks>\n" +
	"100.5\t10.0\tb2/0.1\n" +
	"200.25\t20.5\ty1/-0.2,b3/0.3\t0.5\n" +
	"300.125\t30.0\t?\n" +
	"\n" +
	"<Spectrum=2>\n" +
	"MS:1003061|library spectrum name=Bar\n" +
	"<Analyte=1>\n" +
	"MS:1000041|charge state=2\n" +
	"<Analyte=2>\n" +
	"MS:1000041|charge state=3\n" +
	"<Interpretation=1>\n" +
	"MS:1003163|analyte mixture members=1,2\n" +
	"<Peaks>\n" +
	"120.0\t1.5\t?\n" +
	"\n" +
	"<Cluster=9>\n" +
	"MS:1003320|cluster size=2\n" +
	"\n"

func TestTwoSpectraOffsets(t *testing.T) {
	path := writeTemp(t, twoSpectra)
	lib, err := Open(path)
	require.NoError(t, err)
	defer lib.Close()

	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	for key, markerLine := range map[int64]string{
		1: "<Spectrum=1>",
		2: "<Spectrum=2>",
	} {
		rec, err := lib.Index().ByNumber(key)
		require.NoError(t, err)
		want := strings.Index(string(raw), markerLine)
		require.Equal(t, uint64(want), rec.Offset, "offset for spectrum %d", key)
	}

	rec, err := lib.Index().ClusterByNumber(9)
	require.NoError(t, err)
	require.Equal(t, uint64(strings.Index(string(raw), "<Cluster=9>")), rec.Offset)
}

func TestOffsetsWithCRLF(t *testing.T) {
	content := strings.ReplaceAll(twoSpectra, "\n", "\r\n")
	path := writeTemp(t, content)
	lib, err := Open(path)
	require.NoError(t, err)
	defer lib.Close()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	rec, err := lib.Index().ByNumber(2)
	require.NoError(t, err)
	require.Equal(t, uint64(strings.Index(string(raw), "<Spectrum=2>")), rec.Offset)

	spec, err := lib.GetSpectrum(2)
	require.NoError(t, err)
	require.Equal(t, "Bar", spec.Name())
}

func TestRandomAccessEquivalence(t *testing.T) {
	lib := openTemp(t, twoSpectra)

	var sequential []*spectrum.Spectrum
	for entry, err := range lib.All() {
		require.NoError(t, err)
		if spec, ok := entry.(*spectrum.Spectrum); ok {
			sequential = append(sequential, spec)
		}
	}
	require.Len(t, sequential, 2)

	for _, want := range sequential {
		got, err := lib.GetSpectrum(want.Key)
		require.NoError(t, err)
		requireSpectrumEqual(t, want, got)
		require.Equal(t, want.Index, got.Index)
	}
}

func requireSpectrumEqual(t *testing.T, want, got *spectrum.Spectrum) {
	t.Helper()

	require.Equal(t, want.Key, got.Key)
	require.True(t, want.Store.Equal(got.Store),
		"spectrum attributes differ\nwant: %v\ngot:  %v", want.Attributes(), got.Attributes())

	require.Equal(t, len(want.Analytes), len(got.Analytes))
	for id, wa := range want.Analytes {
		ga := got.Analyte(id)
		require.NotNil(t, ga, "missing analyte %s", id)
		require.True(t, wa.Store.Equal(ga.Store), "analyte %s attributes differ", id)
	}

	require.Equal(t, want.Interpretations.Len(), got.Interpretations.Len())
	for _, wi := range want.Interpretations.All() {
		gi := got.Interpretations.Get(wi.ID)
		require.NotNil(t, gi, "missing interpretation %s", wi.ID)
		require.True(t, wi.Store.Equal(gi.Store), "interpretation %s attributes differ", wi.ID)
		require.Equal(t, wi.AnalyteIDs(), gi.AnalyteIDs())
		require.Equal(t, len(wi.Members), len(gi.Members))
		for id, wm := range wi.Members {
			gm := gi.Members[id]
			require.NotNil(t, gm, "missing member %s", id)
			require.True(t, wm.Store.Equal(gm.Store), "member %s attributes differ", id)
		}
	}

	require.Equal(t, want.Peaks, got.Peaks)
}

func TestGetSpectrumByName(t *testing.T) {
	lib := openTemp(t, twoSpectra)

	spec, err := lib.GetSpectrumByName("Bar")
	require.NoError(t, err)
	require.Equal(t, int64(2), spec.Key)

	_, err = lib.GetSpectrumByName("Baz")
	require.ErrorIs(t, err, errs.ErrIndexLookup)
}

func TestSequentialIterationOrder(t *testing.T) {
	lib := openTemp(t, twoSpectra)

	var keys []int64
	var clusters []int64
	for entry, err := range lib.All() {
		require.NoError(t, err)
		switch e := entry.(type) {
		case *spectrum.Spectrum:
			keys = append(keys, e.Key)
		case *spectrum.SpectrumCluster:
			clusters = append(clusters, e.Key)
		}
	}
	require.Equal(t, []int64{1, 2}, keys)
	require.Equal(t, []int64{9}, clusters)

	// Seekable input can be iterated again.
	n := 0
	for _, err := range lib.All() {
		require.NoError(t, err)
		n++
	}
	require.Equal(t, 3, n)
}

func TestGzipSequentialOnly(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(twoSpectra))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := writeTemp(t, buf.String())
	lib, err := Open(path)
	require.NoError(t, err)
	defer lib.Close()

	_, err = lib.GetSpectrum(1)
	require.ErrorIs(t, err, errs.ErrNotSeekable)
	_, err = lib.Count()
	require.ErrorIs(t, err, errs.ErrIndexLookup)

	var names []string
	for entry, err := range lib.All() {
		require.NoError(t, err)
		if spec, ok := entry.(*spectrum.Spectrum); ok {
			names = append(names, spec.Name())
		}
	}
	require.Equal(t, []string{"Foo", "Bar"}, names)

	// A stream is exhausted after one pass.
	for _, err := range lib.All() {
		require.ErrorIs(t, err, errs.ErrNotSeekable)
	}
}

func TestGzipRejectsExplicitIndex(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(minimalLibrary))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := writeTemp(t, buf.String())
	_, err = Open(path, WithSQLiteIndex())
	require.ErrorIs(t, err, errs.ErrNotSeekable)
}

func TestNewReaderStream(t *testing.T) {
	lib, err := NewReader(strings.NewReader(twoSpectra))
	require.NoError(t, err)
	defer lib.Close()

	var keys []int64
	for entry, err := range lib.All() {
		require.NoError(t, err)
		keys = append(keys, entry.EntryKey())
	}
	require.Equal(t, []int64{1, 2, 9}, keys)

	_, err = lib.GetSpectrum(1)
	require.ErrorIs(t, err, errs.ErrNotSeekable)
}

func TestWithoutIndex(t *testing.T) {
	lib := openTemp(t, twoSpectra, WithoutIndex())

	_, err := lib.Count()
	require.ErrorIs(t, err, errs.ErrIndexLookup)
	_, err = lib.GetSpectrum(1)
	require.ErrorIs(t, err, errs.ErrIndexLookup)

	n := 0
	for _, err := range lib.All() {
		require.NoError(t, err)
		n++
	}
	require.Equal(t, 3, n)
}

func TestSQLiteSidecarReuseAndStaleness(t *testing.T) {
	path := writeTemp(t, twoSpectra)

	lib, err := Open(path, WithSQLiteIndex())
	require.NoError(t, err)
	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.NoError(t, lib.Close())

	// Reopen without options: the sidecar is preferred and reused.
	lib, err = Open(path)
	require.NoError(t, err)
	_, ok := lib.Index().(interface{ Path() string })
	require.True(t, ok, "expected the persistent index to be reused")
	n, err = lib.Count()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.NoError(t, lib.Close())

	// Appending a record invalidates the fingerprint; the sidecar is
	// rebuilt on the next open.
	extra := "<Spectrum=3>\n" +
		"MS:1003061|library spectrum name=Qux\n" +
		"<Peaks>\n" +
		"100.0\t10.0\t?\n\n"
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(extra)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	lib, err = Open(path)
	require.NoError(t, err)
	defer lib.Close()
	n, err = lib.Count()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	spec, err := lib.GetSpectrum(3)
	require.NoError(t, err)
	require.Equal(t, "Qux", spec.Name())
}

func TestMissingSpectrumNameDiagnostic(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1000041|charge state=2\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	var found bool
	for _, d := range lib.Diagnostics() {
		if d.Code == WarnMissingSpectrumName {
			found = true
		}
	}
	require.True(t, found)

	// The record is still indexed, just with an empty name.
	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestBlankLineEndsRecord(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n"+
		"\n"+
		"<Spectrum=2>\n"+
		"MS:1003061|library spectrum name=Bar\n"+
		"<Peaks>\n"+
		"200.0\t20.0\t?\n\n")

	// The stray blank line cuts spectrum 1 off before its peak list.
	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.Equal(t, "Foo", spec.Name())
	require.Empty(t, spec.Peaks)

	// Sequentially, the orphaned peak block is a bad record of its own;
	// iteration reports it and moves on.
	var keys []int64
	var errCount int
	for entry, err := range lib.All() {
		if err != nil {
			require.ErrorIs(t, err, errs.ErrIllegalMarker)
			errCount++

			continue
		}
		keys = append(keys, entry.EntryKey())
	}
	require.Equal(t, []int64{1, 2}, keys)
	require.Equal(t, 1, errCount)
}

func TestIndexScanRejectsBadMarkerKey(t *testing.T) {
	_, err := Open(writeTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=abc>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n"))
	require.ErrorIs(t, err, errs.ErrIllegalMarker)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "<Spectrum=abc>", perr.Line)
}

func TestDuplicateSpectrumNameDiagnostic(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n"+
		"\n"+
		"<Spectrum=2>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"200.0\t20.0\t?\n\n")

	var dup *Diagnostic
	for i, d := range lib.Diagnostics() {
		if d.Code == WarnDuplicateSpectrumName {
			dup = &lib.Diagnostics()[i]
		}
	}
	require.NotNil(t, dup)
	require.Contains(t, dup.Message, `"Foo"`)

	// Lookup resolves to the first claimant.
	spec, err := lib.GetSpectrumByName("Foo")
	require.NoError(t, err)
	require.Equal(t, int64(1), spec.Key)
}

func TestProgressCallback(t *testing.T) {
	var calls int
	var lastSpectra int64
	lib := openTemp(t, twoSpectra, WithProgress(func(bytesRead uint64, spectra, clusters int64) {
		calls++
		lastSpectra = spectra
		require.NotZero(t, bytesRead)
	}))
	defer lib.Close()

	require.NotZero(t, calls)
	require.Equal(t, int64(2), lastSpectra)
}
