package text

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speclib/speclib/attribute"
	"github.com/speclib/speclib/errs"
	"github.com/speclib/speclib/spectrum"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lib.mzlb.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func openTemp(t *testing.T, content string, opts ...Option) *Library {
	t.Helper()

	lib, err := Open(writeTemp(t, content), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	return lib
}

const minimalLibrary = "<mzSpecLib>\n" +
	"MS:1003186|library format version=1.0\n" +
	"\n" +
	"<Spectrum=1>\n" +
	"MS:1003061|library spectrum name=Foo\n" +
	"<Peaks>\n" +
	"100.0\t10.0\t?\n" +
	"\n"

func TestMinimalLibrary(t *testing.T) {
	lib := openTemp(t, minimalLibrary)

	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.Equal(t, "Foo", spec.Name())
	require.Equal(t, int64(1), spec.Key)
	require.Equal(t, int64(0), spec.Index)
	require.Equal(t, []spectrum.Peak{{MZ: 100.0, Intensity: 10.0}}, spec.Peaks)
	require.Equal(t, "1.0", lib.FormatVersion())
}

func TestGroupedAttributes(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"[1]MS:1000044|dissociation method=MS:1000422|beam-type CID\n"+
		"[1]MS:1000045|collision energy=30\n"+
		"[5]MS:1000828|isolation window lower offset=0.5\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)

	// Both [1] lines land in one local group.
	method, err := spec.GetInGroup("MS:1000044|dissociation method", 1)
	require.NoError(t, err)
	require.Equal(t, attribute.Term{Accession: "MS:1000422", Name: "beam-type CID"}, method)

	energy, err := spec.GetInGroup("MS:1000045|collision energy", 1)
	require.NoError(t, err)
	require.Equal(t, float64(30), energy)

	// The [5] source tag is remapped to the next local id, not kept.
	offset, err := spec.GetInGroup("MS:1000828|isolation window lower offset", 2)
	require.NoError(t, err)
	require.Equal(t, 0.5, offset)
}

func TestMissingFormatVersionBackfilled(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003188|library name=demo\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	require.Equal(t, "1.0", lib.FormatVersion())

	// The backfilled attribute goes first.
	attrs := lib.Attributes().Attributes()
	require.Equal(t, attribute.FormatVersion, attrs[0].Key)

	var found bool
	for _, d := range lib.Diagnostics() {
		if d.Code == WarnMissingFormatVersion {
			found = true
		}
	}
	require.True(t, found, "expected a missing format version diagnostic")
}

func TestMalformedPeakLine(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=7>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0\n\n")

	_, err := lib.GetSpectrum(7)
	require.ErrorIs(t, err, errs.ErrMalformedPeakLine)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, int64(7), perr.Key)
	require.Equal(t, "peaks", perr.State)
	// Line numbers are relative to the record start for random access.
	require.Equal(t, 4, perr.LineNumber)
	require.Equal(t, "100.0", perr.Line)
}

func TestPeakLineNotANumber(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"oops\t10.0\t?\n\n")

	_, err := lib.GetSpectrum(1)
	require.ErrorIs(t, err, errs.ErrMalformedPeakLine)
}

func TestSpaceDelimitedPeakFallback(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0 10.0 y1/0.2\n\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.Len(t, spec.Peaks, 1)
	require.Equal(t, 100.0, spec.Peaks[0].MZ)
	require.Equal(t, 10.0, spec.Peaks[0].Intensity)
	require.Len(t, spec.Peaks[0].Annotations, 1)
	require.Equal(t, "y1/0.2", spec.Peaks[0].Annotations[0].String())

	var found bool
	for _, d := range lib.Diagnostics() {
		if d.Code == WarnSpaceDelimitedPeaks {
			found = true
		}
	}
	require.True(t, found, "expected a space-delimited peak diagnostic")
}

func TestPeakAnnotationsAndAggregations(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0\t10.0\ty1/0.2,b2/0.1\t0.5\t3\n"+
		"200.0\t20.0\t\n"+
		"300.0\t30.0\n"+
		"\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.Len(t, spec.Peaks, 3)

	first := spec.Peaks[0]
	require.Len(t, first.Annotations, 2)
	require.Equal(t, "y1/0.2", first.Annotations[0].String())
	require.Equal(t, []attribute.Value{0.5, int64(3)}, first.Aggregations)

	// An empty annotation column means unannotated, and a bare
	// mz/intensity pair is a complete peak line.
	for _, peak := range spec.Peaks[1:] {
		require.Empty(t, peak.Annotations)
		require.Empty(t, peak.Aggregations)
	}
}

func TestMalformedAttributeLine(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"this line is garbage\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	_, err := lib.GetSpectrum(1)
	require.ErrorIs(t, err, errs.ErrMalformedAttribute)
}

func TestClusterRejectsNestedSections(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Cluster=3>\n"+
		"MS:1003320|cluster size=2\n"+
		"<Analyte=1>\n"+
		"MS:1000041|charge state=2\n\n")

	_, err := lib.GetCluster(3)
	require.ErrorIs(t, err, errs.ErrIllegalMarker)
}

func TestClusterParses(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Cluster=3>\n"+
		"MS:1003320|cluster size=2\n\n")

	n, err := lib.CountClusters()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	cluster, err := lib.GetCluster(3)
	require.NoError(t, err)
	require.Equal(t, int64(3), cluster.Key)
	require.Equal(t, int64(2), cluster.Size())
	require.Equal(t, int64(0), cluster.Index)
}

func TestMissingHeaderMarker(t *testing.T) {
	path := writeTemp(t, "MS:1003186|library format version=1.0\n<Spectrum=1>\n")

	_, err := Open(path)
	require.ErrorIs(t, err, errs.ErrMissingHeader)
}

func TestHeaderVersionInMarkerWarning(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib 1.0>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	var found bool
	for _, d := range lib.Diagnostics() {
		if d.Code == WarnVersionInMarker {
			found = true
		}
	}
	require.True(t, found)
}

func TestDuplicateFormatVersionSkipped(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"MS:1003186|library format version=2.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	require.Equal(t, "1.0", lib.FormatVersion())
	versions, err := lib.Attributes().GetAll(attribute.FormatVersion)
	require.NoError(t, err)
	require.Len(t, versions, 1)
}

func TestAttributeSetApplication(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<AttributeSet Spectrum=common>\n"+
		"[1]MS:1000044|dissociation method=MS:1000422|beam-type CID\n"+
		"[1]MS:1000045|collision energy=30\n"+
		"\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"MS:1003212|library attribute set name=common\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	set, ok := lib.AttributeSets().Get(attribute.SetKindSpectrum, "common")
	require.True(t, ok)
	require.Equal(t, 2, set.Len())

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.True(t, spec.HasAppliedSet("common"))

	energy, err := spec.Get("MS:1000045|collision energy")
	require.NoError(t, err)
	require.Equal(t, float64(30), energy)

	attr, err := spec.GetAttribute("MS:1000045|collision energy")
	require.NoError(t, err)
	require.Equal(t, "common", attr.OwnerID)
	require.NotZero(t, attr.GroupID)
}

func TestUnknownAttributeSet(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"MS:1003212|library attribute set name=nope\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	_, err := lib.GetSpectrum(1)
	require.ErrorIs(t, err, errs.ErrUnknownAttributeSet)
}

func TestImplicitAllSetApplied(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<AttributeSet Analyte=all>\n"+
		"MS:1001045|cleavage agent name=MS:1001251|Trypsin\n"+
		"\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Analyte=1>\n"+
		"MS:1000041|charge state=2\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	a := spec.Analyte("1")
	require.NotNil(t, a)
	require.True(t, a.Has("MS:1001045|cleavage agent name"))

	attr, err := a.GetAttribute("MS:1001045|cleavage agent name")
	require.NoError(t, err)
	require.Equal(t, "all", attr.OwnerID)
	// No reference attribute for the implicit set.
	require.False(t, a.Has(attribute.AttributeSetName))
}

func TestSpectrumKeyAndIndexDiverted(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"MS:1003237|library spectrum key=41\n"+
		"MS:1003062|library spectrum index=11\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.Equal(t, int64(41), spec.Key)
	require.Equal(t, int64(11), spec.Index)
	require.False(t, spec.Has(attribute.SpectrumKey))
	require.False(t, spec.Has(attribute.SpectrumIndex))
}

func TestInterpretationsAndMembers(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Analyte=1>\n"+
		"MS:1000041|charge state=2\n"+
		"<Analyte=2>\n"+
		"MS:1000041|charge state=3\n"+
		"<Interpretation=1>\n"+
		"MS:1002357|PSM-level probability=0.99\n"+
		"MS:1003163|analyte mixture members=1,2\n"+
		"<InterpretationMember=1>\n"+
		"MS:1001143|score=12.5\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.Len(t, spec.Analytes, 2)
	require.Equal(t, 1, spec.Interpretations.Len())

	interp := spec.Interpretations.Get("1")
	require.NotNil(t, interp)
	require.Equal(t, []string{"1", "2"}, interp.AnalyteIDs())

	mixture, err := interp.Get(attribute.AnalyteMixture)
	require.NoError(t, err)
	require.Equal(t, "1,2", mixture)

	require.Len(t, interp.Members, 1)
	member := interp.Members["1"]
	require.NotNil(t, member)
	score, err := member.Get("MS:1001143|score")
	require.NoError(t, err)
	require.Equal(t, 12.5, score)
}

func TestDefaultInterpretationBackfill(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Analyte=1>\n"+
		"MS:1000041|charge state=2\n"+
		"<Interpretation=1>\n"+
		"MS:1002357|PSM-level probability=0.99\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	interp := spec.Interpretations.Get("1")
	require.NotNil(t, interp)
	require.Equal(t, []string{"1"}, interp.AnalyteIDs())
}

func TestInterleavedAnalyteWarning(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Interpretation=1>\n"+
		"MS:1002357|PSM-level probability=0.99\n"+
		"<Analyte=1>\n"+
		"MS:1000041|charge state=2\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.Len(t, spec.Analytes, 1)

	var found bool
	for _, d := range lib.Diagnostics() {
		if d.Code == WarnInterleavedSections {
			found = true
		}
	}
	require.True(t, found)
}

func TestCommentsSkipped(t *testing.T) {
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"# a header comment\n"+
		"<Spectrum=1>\n"+
		"# a record comment\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	spec, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	require.Equal(t, "Foo", spec.Name())
}

func TestGroupIDsLocalToStore(t *testing.T) {
	// Two spectra both using source tag [1]: each must get its own local
	// group id starting from 1.
	lib := openTemp(t, "<mzSpecLib>\n"+
		"MS:1003186|library format version=1.0\n"+
		"<Spectrum=1>\n"+
		"MS:1003061|library spectrum name=Foo\n"+
		"[1]MS:1000045|collision energy=30\n"+
		"[1]MS:1000044|dissociation method=HCD\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n"+
		"\n"+
		"<Spectrum=2>\n"+
		"MS:1003061|library spectrum name=Bar\n"+
		"[1]MS:1000045|collision energy=35\n"+
		"<Peaks>\n"+
		"100.0\t10.0\t?\n\n")

	s1, err := lib.GetSpectrum(1)
	require.NoError(t, err)
	s2, err := lib.GetSpectrum(2)
	require.NoError(t, err)

	v1, err := s1.GetInGroup("MS:1000045|collision energy", 1)
	require.NoError(t, err)
	require.Equal(t, float64(30), v1)

	v2, err := s2.GetInGroup("MS:1000045|collision energy", 1)
	require.NoError(t, err)
	require.Equal(t, float64(35), v2)
}
