// Package speclib reads, writes, and indexes spectral libraries in the
// mzSpecLib plain-text format.
//
// The format is a line-oriented grammar of nested sections: a library
// header with reusable attribute set templates, followed by spectrum and
// cluster entries carrying controlled-vocabulary attribute lines, analyte
// and interpretation sub-sections, and tab-delimited peak lists.
//
// Opening a library builds (or reuses) a byte-offset index so individual
// spectra can be fetched by key or name without scanning the whole file:
//
//	lib, err := speclib.Open("library.mzlb.txt")
//	if err != nil { ... }
//	defer lib.Close()
//
//	spec, err := lib.GetSpectrum(42)
//
// Sequential iteration needs no index and also works on compressed or
// non-seekable input:
//
//	for entry, err := range lib.All() { ... }
//
// The subpackages can be used directly: text implements the parser,
// writer, and library access; attribute the ordered attribute model;
// index the offset tables; compress the stream format detection.
package speclib
